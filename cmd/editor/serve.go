package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/probe"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/storage"
	"github.com/heimdex/heimdex-editor/internal/ui"
	"github.com/heimdex/heimdex-editor/internal/watcher"
)

const probeCacheTTL = 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	startTime := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	var logger *slog.Logger
	if path := cfg.LogFile(); path != "" {
		var closer io.Closer
		logger, closer = logging.NewFileLogger(cfg.LogLevel(), path)
		defer closer.Close()
	} else {
		logger = logging.NewLogger(cfg.LogLevel())
	}
	logger.Info("starting heimdex editor", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	apiURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port())
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  HEIMDEX EDITOR v%-25s║\n", Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    %-45s║\n", apiURL)
	fmt.Printf("║  Auth Token: %-45s║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober, closeCache := newProber(ctx, cfg, logger)
	defer closeCache()

	catalogSvc := catalog.NewService(repo, prober, cfg.DefaultAssetDuration(), logger)

	var resolver storage.Resolver = storage.NewLocalResolver(apiURL, authToken)
	if cfg.MinioEndpoint() != "" {
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint(),
			AccessKey: cfg.MinioAccessKey(),
			SecretKey: cfg.MinioSecretKey(),
			Bucket:    cfg.MinioBucket(),
			UseSSL:    cfg.MinioUseSSL(),
		}, resolver, logging.WithComponent(logger, "storage"))
		if err != nil {
			logger.Warn("object storage unavailable, serving media locally", "error", err)
		} else {
			resolver = store
			catalogSvc.SetPublisher(store)
			logger.Info("object storage enabled", "endpoint", cfg.MinioEndpoint(), "bucket", cfg.MinioBucket())
		}
	}

	runner := catalog.NewRunner(catalogSvc, repo, logger)
	go runner.Start(ctx)

	sessions := session.NewManager(session.Options{
		TickRate: cfg.TickRate(),
		Sync: playback.SyncConfig{
			DriftTolerance:     cfg.DriftTolerance(),
			SourceReadyTimeout: cfg.SourceReadyTimeout(),
			SeekTimeout:        cfg.SeekTimeout(),
		},
		Logger: logger,
	})
	defer sessions.Shutdown()

	lookup := func(ref string) (string, bool) {
		lctx, lcancel := context.WithTimeout(ctx, 2*time.Second)
		defer lcancel()
		asset, err := catalogSvc.Asset(lctx, ref)
		if err != nil || asset == nil {
			return "", false
		}
		return asset.Path, true
	}

	renderers := map[string]render.Renderer{
		render.FormatEDL: render.NewEDLRenderer(lookup, cfg.ExportDir(), logger),
	}
	if cfg.RenderURL() != "" {
		renderers[render.FormatRemote] = render.NewHTTPRenderer(cfg.RenderURL(), cfg.RenderToken(), logger)
		logger.Info("remote rendering enabled", "base_url", cfg.RenderURL())
	} else {
		renderers[render.FormatRemote] = render.NewStubRenderer(logger)
	}

	if dir := cfg.WatchDir(); dir != "" {
		w, err := startWatcher(ctx, dir, catalogSvc, logger)
		if err != nil {
			logger.Warn("folder watch unavailable", "path", dir, "error", err)
		} else {
			defer w.Stop()
		}
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Version:    Version,
		Sessions:   sessions,
		Catalog:    catalogSvc,
		Repository: repo,
		Runner:     runner,
		Media:      media.NewServer(logger),
		Resolver:   resolver,
		Renderers:  renderers,
		Logger:     logger,
		StartTime:  startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Sessions: sessions,
			Catalog:  catalogSvc,
			Runner:   runner,
			Logger:   logger,
			APIURL:   apiURL,
			OnQuit:   quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	sessions.PauseAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// newProber wraps ffprobe in a result cache, shared through Redis when one
// is configured.
func newProber(ctx context.Context, cfg *config.EnvConfig, logger *slog.Logger) (probe.Prober, func()) {
	ff := probe.NewFFprobe(cfg.FFprobePath(), cfg.ProbeTimeout(), logging.WithComponent(logger, "probe"))
	if !ff.Available() {
		logger.Warn("ffprobe not found, imported media will use the default duration", "path", cfg.FFprobePath())
	}

	if addr := cfg.RedisAddr(); addr != "" {
		rc, err := probe.NewRedisCache(ctx, addr, probeCacheTTL, logger)
		if err == nil {
			logger.Info("probe cache using redis", "addr", addr)
			return probe.NewCachedProber(ff, rc, logger), func() { rc.Close() }
		}
		logger.Warn("redis unavailable, using in-memory probe cache", "addr", addr, "error", err)
	}
	return probe.NewCachedProber(ff, probe.NewMemoryCache(), logger), func() {}
}

func startWatcher(ctx context.Context, dir string, svc *catalog.Service, logger *slog.Logger) (*watcher.FSWatcher, error) {
	w, err := watcher.NewFSWatcher(watcher.DefaultSettle, logging.WithComponent(logger, "watcher"))
	if err != nil {
		return nil, err
	}
	w.Filter = catalog.IsMediaFile
	w.OnChange(func(path string, event watcher.EventType) {
		switch event {
		case watcher.EventCreate, watcher.EventModify:
			if _, err := svc.ImportFile(ctx, path); err != nil {
				logger.Warn("auto-import failed", "path", logging.SanitizePath(path), "error", err)
			}
		case watcher.EventDelete:
			logger.Info("watched media removed", "path", logging.SanitizePath(path))
		}
	})
	if err := w.Watch(ctx, filepath.Clean(dir)); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

func ensureAuthToken(repo catalog.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
