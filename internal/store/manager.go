package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/service"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

// AuthSource resolves users and publishes sign-in and sign-out events.
// *service.AuthService implements it.
type AuthSource interface {
	UserSource
	Subscribe(fn func(model.AuthEvent)) func()
}

type ManagerOptions struct {
	Aggregator  tracking.Aggregator
	IdleTimeout time.Duration
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Manager hands out one Session per user. Sessions are created on first
// use, reloaded after a new sign-in, dropped on sign-out and swept once
// idle.
type Manager struct {
	auth  AuthSource
	tasks TaskBackend
	notes NoteBackend
	opts  ManagerOptions

	mu       sync.Mutex
	sessions map[string]*Session

	unsubscribe func()
	cron        *cron.Cron
}

func NewManager(auth AuthSource, tasks TaskBackend, notes NoteBackend, opts ManagerOptions) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		auth:     auth,
		tasks:    tasks,
		notes:    notes,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
	m.unsubscribe = auth.Subscribe(m.handleAuthEvent)
	return m
}

// Open returns the user's session, creating and initializing it if needed.
// A session torn down by a concurrent sweep while it was being opened is
// replaced once.
func (m *Manager) Open(ctx context.Context, userID string) (*Session, error) {
	for attempt := 0; ; attempt++ {
		s := m.acquire(userID)

		err := s.Init(ctx)
		if err == nil {
			return s, nil
		}
		m.drop(userID, s)
		if attempt == 0 && errors.Is(err, service.ErrUnauthenticated) && s.Closed() {
			continue
		}
		return nil, err
	}
}

// acquire returns the user's current session, or a new one, marked as used
// before the manager lock is released so a sweep cannot pick it.
func (m *Manager) acquire(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || s.Closed() {
		s = NewSession(userID, m.auth, m.tasks, m.notes, SessionOptions{
			Aggregator: m.opts.Aggregator,
			Now:        m.opts.Now,
		})
		m.sessions[userID] = s
	}
	s.touch()
	return s
}

// Close tears down and forgets the user's session.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Teardown()
	}
}

// Len reports how many sessions are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// drop removes s only if it is still the user's current session.
func (m *Manager) drop(userID string, s *Session) {
	m.mu.Lock()
	if m.sessions[userID] == s {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}

func (m *Manager) handleAuthEvent(event model.AuthEvent) {
	switch event.Type {
	case model.EventSignedOut:
		m.Close(event.UserID)
		m.opts.Logger.Info().Str("user_id", event.UserID).Msg("session closed on sign-out")
	case model.EventSignedIn:
		m.mu.Lock()
		s, ok := m.sessions[event.UserID]
		m.mu.Unlock()
		if ok {
			s.Invalidate()
		}
	}
}

// Sweep tears down sessions idle for longer than the idle timeout and
// returns how many it closed.
func (m *Manager) Sweep() int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.opts.Now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	idle := make(map[string]*Session)
	for userID, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			idle[userID] = s
		}
	}
	m.mu.Unlock()

	closed := 0
	for userID, s := range idle {
		if s.closeIfIdle(cutoff) {
			m.drop(userID, s)
			closed++
		}
	}
	if closed > 0 {
		m.opts.Logger.Debug().Int("count", closed).Msg("swept idle sessions")
	}
	return closed
}

// StartSweeper runs Sweep on the given cron schedule until Stop.
func (m *Manager) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Stop ends the sweeper, the auth subscription and every open session.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	for _, s := range sessions {
		s.Teardown()
	}
}
