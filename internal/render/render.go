// Package render hands a finished timeline to whatever produces the output
// artifact: a local EDL writer or a remote render service.
package render

import (
	"context"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	FormatEDL    = "edl"
	FormatRemote = "remote"
)

// Job is everything a renderer needs to produce output for a project.
type Job struct {
	ProjectID string                   `json:"project_id"`
	Title     string                   `json:"title"`
	Settings  timeline.ProjectSettings `json:"settings"`
	Elements  []timeline.Element       `json:"elements"`
	Duration  float64                  `json:"duration"`
	OutputDir string                   `json:"-"`
}

// Artifact describes a render result.
type Artifact struct {
	Format     string   `json:"format"`
	Status     string   `json:"status"`
	Path       string   `json:"path,omitempty"`
	URL        string   `json:"url,omitempty"`
	RemoteID   string   `json:"remote_id,omitempty"`
	EventCount int      `json:"event_count,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type Renderer interface {
	Render(ctx context.Context, job Job) (*Artifact, error)
}
