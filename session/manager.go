package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flux-qa/flux-backend/logger"
)

// Manager owns the in-memory session table. Expired sessions are
// dropped lazily on Get and swept periodically once StartCleanup runs.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	duration time.Duration
	logger   logger.Logger
	stopCh   chan struct{}
}

// NewManager creates a manager whose sessions live for duration.
func NewManager(duration time.Duration, log logger.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		duration: duration,
		logger:   log,
		stopCh:   make(chan struct{}),
	}
}

// Create registers a fresh session for the user.
func (m *Manager) Create(userID uuid.UUID, email string) (*Session, error) {
	now := time.Now()
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.duration),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info(context.Background(), "session created", map[string]interface{}{
		"session_id": s.ID.String(),
		"user_id":    userID.String(),
	})

	return s, nil
}

// Get returns the session when it exists and is still live. An expired
// session is removed on the spot.
func (m *Manager) Get(sessionID uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ExpiredAt(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, ErrSessionExpired
	}

	return s, nil
}

// Delete removes a session, ending the login.
func (m *Manager) Delete(sessionID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	m.logger.Info(context.Background(), "session deleted", map[string]interface{}{
		"session_id": sessionID.String(),
	})
}

// sweep drops every expired session and reports how many went.
func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.ExpiredAt(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired sessions on the given interval until
// StopCleanup is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := m.sweep(time.Now()); removed > 0 {
					m.logger.Info(context.Background(), "expired sessions swept", map[string]interface{}{
						"removed": removed,
					})
				}
			case <-m.stopCh:
				return
			}
		}
	}()
}

// StopCleanup ends the sweep goroutine.
func (m *Manager) StopCleanup() {
	close(m.stopCh)
}
