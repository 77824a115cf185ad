package catalog

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Asset is an imported media file that timeline elements refer to by ID.
type Asset struct {
	ID          string             `json:"id"`
	Path        string             `json:"path"`
	Name        string             `json:"name"`
	Kind        timeline.TrackKind `json:"kind"`
	Duration    float64            `json:"duration"`
	Probed      bool               `json:"probed"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Size        int64              `json:"size"`
	ObjectKey   string             `json:"object_key,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

const (
	JobTypeScan  = "scan"
	JobTypeProbe = "probe"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is background catalog work: scanning a folder or re-probing an asset.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	AssetID   string    `json:"asset_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var mediaExtensions = map[string]timeline.TrackKind{
	".mp4":  timeline.TrackVideo,
	".m4v":  timeline.TrackVideo,
	".mov":  timeline.TrackVideo,
	".mkv":  timeline.TrackVideo,
	".webm": timeline.TrackVideo,
	".mp3":  timeline.TrackAudio,
	".m4a":  timeline.TrackAudio,
	".aac":  timeline.TrackAudio,
	".wav":  timeline.TrackAudio,
	".ogg":  timeline.TrackAudio,
	".flac": timeline.TrackAudio,
}

func NewID() string {
	return uuid.NewString()
}

// KindOf returns the track kind for a media filename.
func KindOf(filename string) (timeline.TrackKind, bool) {
	k, ok := mediaExtensions[strings.ToLower(filepath.Ext(filename))]
	return k, ok
}

// IsMediaFile reports whether filename has a supported media extension.
func IsMediaFile(filename string) bool {
	_, ok := KindOf(filename)
	return ok
}
