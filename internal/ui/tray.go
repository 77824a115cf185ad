package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-editor/internal/catalog"
	"github.com/heimdex/heimdex-editor/internal/session"
)

const refreshInterval = 2 * time.Second

type Tray struct {
	sessions *session.Manager
	catalog  *catalog.Service
	runner   *catalog.Runner
	logger   *slog.Logger

	statusItem   *systray.MenuItem
	projectsItem *systray.MenuItem
	assetsItem   *systray.MenuItem
	pauseItem    *systray.MenuItem

	mu   sync.Mutex
	stop chan struct{}

	apiURL string
	onQuit func()
}

type TrayConfig struct {
	Sessions *session.Manager
	Catalog  *catalog.Service
	Runner   *catalog.Runner
	Logger   *slog.Logger
	// APIURL is shown in the menu so clients can be pointed at it.
	APIURL string
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
		apiURL:   cfg.APIURL,
		onQuit:   cfg.OnQuit,
		stop:     make(chan struct{}),
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Editor")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current editor status")
	t.statusItem.Disable()

	t.projectsItem = systray.AddMenuItem("Projects: 0", "Open projects")
	t.projectsItem.Disable()

	t.assetsItem = systray.AddMenuItem("Assets: 0", "Imported media")
	t.assetsItem.Disable()

	if t.apiURL != "" {
		urlItem := systray.AddMenuItem(t.apiURL, "Editor API address")
		urlItem.Disable()
	}

	systray.AddSeparator()

	stopPlaybackItem := systray.AddMenuItem("Stop Playback", "Pause every open project")
	t.pauseItem = systray.AddMenuItem("Pause Scanning", "Pause media scan and probe jobs")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Editor")

	go t.refreshLoop()

	go func() {
		for {
			select {
			case <-stopPlaybackItem.ClickedCh:
				if t.sessions != nil {
					t.sessions.PauseAll()
					t.logger.Info("playback stopped from tray")
				}
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	t.logger.Info("system tray exiting")
}

func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		t.refresh()
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
	}
}

func (t *Tray) refresh() {
	projects := 0
	if t.sessions != nil {
		projects = t.sessions.Count()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assets := -1
	if t.catalog != nil {
		if list, err := t.catalog.Assets(ctx); err == nil {
			assets = len(list)
		}
	}
	activeJobs := 0
	if t.runner != nil {
		activeJobs = t.runner.ActiveJobCount(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.projectsItem.SetTitle(fmt.Sprintf("Projects: %d", projects))
	if assets >= 0 {
		t.assetsItem.SetTitle(fmt.Sprintf("Assets: %d", assets))
	}
	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	status := "Idle"
	if activeJobs > 0 {
		status = "Scanning"
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Scanning")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Scanning")
		t.statusItem.SetTitle("Status: Paused")
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
