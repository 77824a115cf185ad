package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/heimdex/heimdex-editor/internal/export"
)

// EDLRenderer writes a CMX3600 edit decision list to disk.
type EDLRenderer struct {
	lookup     export.MediaLookup
	defaultDir string
	logger     *slog.Logger
}

// NewEDLRenderer returns a renderer that resolves element sources through
// lookup and writes into defaultDir when a job names no output directory.
func NewEDLRenderer(lookup export.MediaLookup, defaultDir string, logger *slog.Logger) *EDLRenderer {
	return &EDLRenderer{lookup: lookup, defaultDir: defaultDir, logger: logger}
}

func (r *EDLRenderer) Render(ctx context.Context, job Job) (*Artifact, error) {
	dir := job.OutputDir
	if dir == "" {
		dir = r.defaultDir
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := export.ValidateOutputDir(dir); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events, unresolved := export.EventsFromElements(job.Elements, r.lookup)
	title := job.Title
	if title == "" {
		title = job.Settings.Name
	}
	edl := export.GenerateEDL(events, title, job.Settings.FrameRate)

	path := filepath.Join(dir, export.FileName(title, "edl"))
	if err := os.WriteFile(path, []byte(edl), 0644); err != nil {
		return nil, fmt.Errorf("write edl: %w", err)
	}

	if r.logger != nil {
		r.logger.Info("edl written", "path", path, "events", len(events), "unresolved", len(unresolved))
	}

	return &Artifact{
		Format:     FormatEDL,
		Status:     "completed",
		Path:       path,
		EventCount: len(events),
		Unresolved: unresolved,
	}, nil
}
