package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// mediaURLTTL is kept well under the object store's presign expiry so a
// cached URL is still valid while it is being refreshed.
const mediaURLTTL = time.Hour

type mediaURL struct {
	url      string
	resolved time.Time
}

// mediaURLs caches playable URLs by asset id. Lookup never does I/O, so it
// is safe to call with a session lock held; Warm does the catalog and
// storage round trips and must be called outside it.
type mediaURLs struct {
	resolve func(ctx context.Context, ref string) (string, error)
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu         sync.Mutex
	entries    map[string]mediaURL
	refreshing map[string]bool
}

func newMediaURLs(cfg ServerConfig) *mediaURLs {
	return &mediaURLs{
		resolve:    catalogURL(cfg),
		timeout:    resolveTimeout,
		ttl:        mediaURLTTL,
		now:        time.Now,
		logger:     cfg.Logger,
		entries:    make(map[string]mediaURL),
		refreshing: make(map[string]bool),
	}
}

// catalogURL maps an asset id to a URL through the catalog and the storage
// resolver.
func catalogURL(cfg ServerConfig) func(ctx context.Context, ref string) (string, error) {
	return func(ctx context.Context, ref string) (string, error) {
		if cfg.Catalog == nil || cfg.Resolver == nil {
			return "", nil
		}
		asset, err := cfg.Catalog.Asset(ctx, ref)
		if err != nil || asset == nil {
			return "", err
		}
		return cfg.Resolver.URL(ctx, asset.ID, asset.ObjectKey)
	}
}

// Warm resolves every ref that is missing or expired.
func (m *mediaURLs) Warm(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		m.mu.Lock()
		e, ok := m.entries[ref]
		fresh := ok && m.now().Sub(e.resolved) < m.ttl
		m.mu.Unlock()
		if !fresh {
			m.fetch(ctx, ref)
		}
	}
}

func (m *mediaURLs) fetch(ctx context.Context, ref string) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	u, err := m.resolve(ctx, ref)
	if err != nil {
		m.logger.Warn("failed to resolve asset url", "asset_id", ref, "error", err)
		return
	}
	if u == "" {
		return
	}
	m.mu.Lock()
	m.entries[ref] = mediaURL{url: u, resolved: m.now()}
	m.mu.Unlock()
}

// Lookup returns the cached URL for ref, or "" if none has been resolved.
// An expired entry is still returned and refreshed in the background.
func (m *mediaURLs) Lookup(ref string) string {
	if ref == "" {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[ref]
	if !ok {
		m.logger.Debug("asset url not cached", "asset_id", ref)
		return ""
	}
	if m.now().Sub(e.resolved) >= m.ttl && !m.refreshing[ref] {
		m.refreshing[ref] = true
		go func() {
			m.fetch(context.Background(), ref)
			m.mu.Lock()
			delete(m.refreshing, ref)
			m.mu.Unlock()
		}()
	}
	return e.url
}
