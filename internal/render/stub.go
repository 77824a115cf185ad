package render

import (
	"context"
	"log/slog"
)

// StubRenderer accepts jobs without producing anything. It stands in for
// the remote service when none is configured.
type StubRenderer struct {
	logger *slog.Logger
}

func NewStubRenderer(logger *slog.Logger) *StubRenderer {
	return &StubRenderer{logger: logger}
}

func (r *StubRenderer) Render(_ context.Context, job Job) (*Artifact, error) {
	r.logger.Info("render stub: no render service configured",
		"project_id", job.ProjectID,
		"elements", len(job.Elements),
		"duration", job.Duration,
	)
	return &Artifact{Format: FormatRemote, Status: "skipped"}, nil
}
