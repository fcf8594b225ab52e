// Package manager owns the set of active stream sessions: creating them
// with a fresh UUID, listing and looking them up, and tearing them down
// on removal.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"dash2hls/internal/platform/metrics"
	"dash2hls/internal/session"
)

// ErrNotFound is returned when a stream id has no matching session.
var ErrNotFound = fmt.Errorf("stream not found")

// Manager is a concurrency-safe registry of running sessions.
type Manager struct {
	baseOutputDir string
	log           *slog.Logger
	metrics       *metrics.Metrics
	defaults      session.Config

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// New returns a Manager that creates each session's output directory
// under baseOutputDir. m may be nil to disable metric recording.
func New(baseOutputDir string, log *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		baseOutputDir: baseOutputDir,
		log:           log,
		metrics:       m,
		sessions:      make(map[string]*session.Session),
	}
}

// SetDefaults overrides the poll interval / window / history / mp4decrypt
// path applied to sessions that don't specify their own, typically wired
// from gateway-wide configuration.
func (m *Manager) SetDefaults(d session.Config) {
	m.defaults = d
}

// Create registers a new session under a freshly generated UUID v4 id,
// starts it in a background goroutine, and returns its id.
func (m *Manager) Create(cfg session.Config) (string, error) {
	id := uuid.NewString()
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(m.baseOutputDir, id)
	}
	cfg = cfg.WithDefaults(m.defaults)

	s, err := session.New(id, cfg, m.log, m.metrics)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SetActiveStreams(m.ActiveCount())
	}

	go s.Run(context.Background())

	return id, nil
}

// Get returns the session registered under id, or ErrNotFound.
func (m *Manager) Get(id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns an Info snapshot for every registered session.
func (m *Manager) List() []session.Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]session.Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	return out
}

// Remove stops the session (blocking until its run loop has exited) and
// deregisters it. It is a no-op error (ErrNotFound) if id is unknown.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	s.Stop()
	if m.metrics != nil {
		m.metrics.SetActiveStreams(m.ActiveCount())
	}
	return nil
}

// ActiveCount returns the number of registered sessions (running or
// otherwise; removal is the only thing that deregisters one).
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// OutputDir returns the output directory for id, or "" if unknown.
func (m *Manager) OutputDir(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return ""
	}
	return s.OutputDir()
}
