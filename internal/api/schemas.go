package api

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        string       `json:"state"`
	LastError    string       `json:"last_error,omitempty"`
	ProjectCount int          `json:"project_count"`
	AssetCount   int          `json:"asset_count"`
	JobsRunning  int          `json:"jobs_running"`
	ActiveJob    *JobResponse `json:"active_job,omitempty"`
}

type CreateProjectRequest struct {
	Name      string  `json:"name"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

func (r CreateProjectRequest) Settings() timeline.ProjectSettings {
	s := timeline.DefaultSettings()
	if r.Name != "" {
		s.Name = r.Name
	}
	if r.Width > 0 {
		s.Width = r.Width
	}
	if r.Height > 0 {
		s.Height = r.Height
	}
	if r.FrameRate > 0 {
		s.FrameRate = r.FrameRate
	}
	return s
}

type ProjectSummary struct {
	ID        string                   `json:"id"`
	Settings  timeline.ProjectSettings `json:"settings"`
	Elements  int                      `json:"elements"`
	Duration  float64                  `json:"duration"`
	State     string                   `json:"state"`
	CreatedAt string                   `json:"created_at"`
}

type ProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

func SnapshotToSummary(s session.Snapshot) ProjectSummary {
	return ProjectSummary{
		ID:        s.ID,
		Settings:  s.Settings,
		Elements:  len(s.Elements),
		Duration:  s.Duration,
		State:     s.State,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

type AddElementRequest struct {
	TrackKind string `json:"track_kind"`
}

type ImportElementRequest struct {
	AssetID string `json:"asset_id"`
}

type ApplyPresetRequest struct {
	PresetID string `json:"preset_id"`
}

type SplitRequest struct {
	Time *float64 `json:"time"`
}

type SplitResponse struct {
	Created []string `json:"created"`
}

type ArrangeResponse struct {
	Arranged int `json:"arranged"`
}

type ElementsResponse struct {
	Elements []timeline.Element `json:"elements"`
}

type PlaybackRequest struct {
	Action string  `json:"action"`
	Time   float64 `json:"time"`
	Loop   bool    `json:"loop"`
}

type ViewRequest struct {
	PixelsPerSecond float64 `json:"pixels_per_second"`
	Magnet          *bool   `json:"magnet"`
}

type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
}

type ExportResponse struct {
	Artifact *render.Artifact `json:"artifact"`
}

type ImportAssetRequest struct {
	Path   string `json:"path"`
	Folder bool   `json:"folder,omitempty"`
}

type AssetsResponse struct {
	Assets []*catalog.Asset `json:"assets"`
}

type SavePresetRequest struct {
	Name string      `json:"name"`
	FX   timeline.FX `json:"fx"`
}

type PresetsResponse struct {
	Presets []*timeline.EffectPreset `json:"presets"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	AssetID   string `json:"asset_id,omitempty"`
	Path      string `json:"path,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *catalog.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		AssetID:   j.AssetID,
		Path:      j.Path,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
