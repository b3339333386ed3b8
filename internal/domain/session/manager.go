package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webdesk/internal/domain/desktop"
	"github.com/GriffinCanCode/webdesk/internal/shared/id"
)

var ErrTooManySessions = errors.New("too many desktop sessions")

// Metrics receives session and window operation counts
type Metrics interface {
	desktop.Metrics
	SetSessionsActive(count int)
}

// Config bounds session lifetime and count
type Config struct {
	TTL          time.Duration
	ReapInterval time.Duration
	MaxSessions  int
}

// DefaultConfig returns production session limits
func DefaultConfig() Config {
	return Config{
		TTL:          30 * time.Minute,
		ReapInterval: time.Minute,
		MaxSessions:  1000,
	}
}

// Desktop is one live desktop session
type Desktop struct {
	ID        id.SessionID
	Store     *desktop.Store
	CreatedAt time.Time

	lastSeen atomic.Int64 // unix nanoseconds
}

// LastSeen returns the last time the session was accessed
func (d *Desktop) LastSeen() time.Time {
	return time.Unix(0, d.lastSeen.Load())
}

func (d *Desktop) touch(now time.Time) {
	d.lastSeen.Store(now.UnixNano())
}

// Manager owns the desktop sessions of the process. State lives in memory
// only and is discarded when a session ends or idles out.
type Manager struct {
	registry desktop.Registry
	cfg      Config
	logger   *zap.Logger
	metrics  Metrics
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[id.SessionID]*Desktop // Protected by mu
}

// NewManager creates a session manager
func NewManager(registry desktop.Registry, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultConfig().ReapInterval
	}
	return &Manager{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[id.SessionID]*Desktop),
	}
}

// WithMetrics adds metrics tracking to the manager and its stores
func (m *Manager) WithMetrics(metrics Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create starts a new desktop session
func (m *Manager) Create() (*Desktop, error) {
	store := desktop.NewStore(m.registry)
	if m.metrics != nil {
		store.WithMetrics(m.metrics)
	}

	now := m.now()
	d := &Desktop{
		ID:        id.NewSessionID(),
		Store:     store,
		CreatedAt: now,
	}
	d.touch(now)

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.sessions[d.ID] = d
	m.publishLocked()
	m.mu.Unlock()

	m.logger.Debug("desktop session created", zap.String("session_id", d.ID.String()))
	return d, nil
}

// Get returns a live session and marks it as accessed
func (m *Manager) Get(sessionID string) (*Desktop, bool) {
	m.mu.RLock()
	d, ok := m.sessions[id.SessionID(sessionID)]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}
	d.touch(m.now())
	return d, true
}

// End discards a session and its window state
func (m *Manager) End(sessionID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id.SessionID(sessionID)]
	if ok {
		delete(m.sessions, id.SessionID(sessionID))
		m.publishLocked()
	}
	m.mu.Unlock()

	if ok {
		m.logger.Debug("desktop session ended", zap.String("session_id", sessionID))
	}
	return ok
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap ends every session idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Reap() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.TTL)

	m.mu.Lock()
	removed := 0
	for sid, d := range m.sessions {
		if d.LastSeen().Before(cutoff) {
			delete(m.sessions, sid)
			removed++
		}
	}
	count := len(m.sessions)
	if removed > 0 {
		m.publishLocked()
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Info("reaped idle desktop sessions",
			zap.Int("removed", removed),
			zap.Int("active", count),
		)
	}
	return removed
}

// Run reaps idle sessions until ctx is cancelled
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// publishLocked reports the session count. Callers hold mu so gauge updates
// land in the same order as the changes they describe.
func (m *Manager) publishLocked() {
	if m.metrics != nil {
		m.metrics.SetSessionsActive(len(m.sessions))
	}
}
