// Package session keeps one pipeline per client session so that concurrent streams never
// share a buffer.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-rppg/internal/pipeline"
)

// Factory builds the pipeline of a new session.
type Factory func() (*pipeline.Pipeline, error)

// Session is one client stream. Its fields are only touched inside Manager.Do.
type Session struct {
	ID        string
	CreatedAt time.Time
	Pipeline  *pipeline.Pipeline
	// Frames counts frames seen by the session, with or without a sample.
	Frames int

	mu       sync.Mutex
	lastSeen time.Time
}

// NextTimestamp returns the capture time of the next frame on the nominal frame clock
// and advances it.
func (s *Session) NextTimestamp() float64 {
	ts := float64(s.Frames) / s.Pipeline.Config().FPS
	s.Frames++
	return ts
}

// Manager owns the sessions. Work on one session is serialized; different sessions
// proceed in parallel.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a manager whose sessions expire after ttl of inactivity.
func NewManager(factory Factory, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the wall clock used for expiry.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.New().String()
}

// Do runs fn on the session id, creating it on first use.
func (m *Manager) Do(id string, fn func(*Session) error) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.mu.Lock()
	s.lastSeen = m.now()
	m.mu.Unlock()

	return fn(s)
}

func (m *Manager) get(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	p, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for session %s: %w", id, err)
	}
	now := m.now()
	s := &Session{ID: id, CreatedAt: now, Pipeline: p, lastSeen: now}
	m.sessions[id] = s

	m.logger.Info("Session created", zap.String("session_id", id), zap.Int("sessions", len(m.sessions)))
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove drops a session. It reports whether the session existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Sweep evicts sessions idle for longer than the ttl and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	evicted := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Info("Expired sessions evicted", zap.Int("evicted", evicted), zap.Int("sessions", len(m.sessions)))
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
