package session

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Manager tracks the open projects.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	logger   *slog.Logger
}

// NewManager returns an empty manager that builds sessions with opts.
func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Create opens a new project.
func (m *Manager) Create(settings timeline.ProjectSettings) *Session {
	s := newSession(uuid.NewString(), settings, m.opts)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("project opened", "project", s.id, "name", settings.Name)
	return s
}

// Get returns an open project.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns open projects, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// Count returns the number of open projects.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes and forgets a project.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	m.logger.Info("project closed", "project", id)
	return true
}

// PauseAll pauses playback in every project.
func (m *Manager) PauseAll() {
	for _, s := range m.List() {
		s.Pause()
	}
}

// Shutdown closes every project.
func (m *Manager) Shutdown() {
	for _, s := range m.List() {
		m.Close(s.id)
	}
}
