// Package session keeps the live game sessions of the server. Each session
// owns one engine, the equivalent of one mounted game screen.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/internal/metrics"
	"github.com/jxucoder/truthordare/model"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Config configures a Manager.
type Config struct {
	// IdleTimeout closes sessions that were not used for this long (default 30m).
	IdleTimeout time.Duration
	// ReapInterval is how often idle sessions are looked for (default 1m).
	ReapInterval time.Duration
	// MaxSessions caps the number of live sessions (default 1000).
	MaxSessions int
	// EngineOptions are applied to every new engine.
	EngineOptions []engine.Option
}

// Session is one live game.
type Session struct {
	ID        string
	CreatedAt time.Time

	engine     *engine.Engine
	lastActive atomic.Int64
}

// Engine returns the session's engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// LastActive returns when the session was last looked up.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load()).UTC()
}

func (s *Session) touch(now time.Time) { s.lastActive.Store(now.UnixNano()) }

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID         string             `json:"id"`
	State      model.SessionState `json:"state"`
	CreatedAt  time.Time          `json:"created_at"`
	LastActive time.Time          `json:"last_active"`
}

// Snapshot returns the session together with its current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:         s.ID,
		State:      s.engine.State(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
	}
}

// Manager creates, looks up and reaps sessions.
type Manager struct {
	config Config
	store  content.Store
	bus    eventbus.Bus
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager drawing prompts from store and publishing
// state changes to bus.
func NewManager(store content.Store, bus eventbus.Bus, cfg Config, logger *zap.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:   cfg,
		store:    store,
		bus:      bus,
		logger:   logger.Named("session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Bus returns the event bus.
func (m *Manager) Bus() eventbus.Bus { return m.bus }

// Create starts a new session in mode.
func (m *Manager) Create(mode model.Mode) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()[:8]
	for m.sessions[id] != nil {
		id = uuid.New().String()[:8]
	}
	now := m.now().UTC()
	logger := m.logger.With(zap.String("session_id", id))

	opts := []engine.Option{
		engine.WithMode(mode),
		engine.WithLogger(logger),
		engine.WithRecorder(metrics.Recorder{}),
		engine.WithObserver(func(state model.SessionState) {
			m.bus.Publish(id, &eventbus.Event{SessionID: id, Type: eventbus.TypeState, State: state})
		}),
	}
	opts = append(opts, m.config.EngineOptions...)

	sess := &Session{
		ID:        id,
		CreatedAt: now,
		engine:    engine.New(m.store, opts...),
	}
	sess.touch(now)
	m.sessions[id] = sess
	metrics.SessionOpened()

	logger.Info("session created", zap.String("mode", string(mode)))
	return sess, nil
}

// Get returns a session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(m.now())
	return sess, nil
}

// List returns all sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close discards a session and disconnects its subscribers.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.bus.Close(id)
	metrics.SessionClosed()
	m.logger.Info("session closed", zap.String("session_id", id))
	return nil
}

// Start runs the idle reaper until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.reapLoop()
	}()
}

// Stop stops the reaper and closes every session.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	for _, s := range m.List() {
		_ = m.Close(s.ID)
	}
}

func (m *Manager) reapLoop() {
	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

// reap closes sessions idle for longer than IdleTimeout and returns how
// many were closed.
func (m *Manager) reap() int {
	cutoff := m.now().Add(-m.config.IdleTimeout)
	n := 0
	for _, s := range m.List() {
		if s.LastActive().Before(cutoff) {
			if err := m.Close(s.ID); err == nil {
				m.logger.Info("reaped idle session", zap.String("session_id", s.ID))
				n++
			}
		}
	}
	return n
}
