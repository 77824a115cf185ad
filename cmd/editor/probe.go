package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/probe"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>...",
	Short: "Print the media metadata the editor would record for each file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger := logging.New(os.Stderr, cfg.LogLevel())
		prober := probe.NewFFprobe(cfg.FFprobePath(), cfg.ProbeTimeout(), logger)
		if !prober.Available() {
			return fmt.Errorf("ffprobe not found at %q", cfg.FFprobePath())
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		for _, path := range args {
			res, err := prober.Probe(context.Background(), path)
			if err != nil {
				logger.Error("probe failed", "path", logging.SanitizePath(path), "error", err)
				continue
			}
			if err := enc.Encode(map[string]any{"path": path, "result": res}); err != nil {
				return err
			}
		}
		return nil
	},
}
