// Package session holds cookie-backed login sessions in memory. Tokens
// in the apitoken package cover non-interactive callers; sessions cover
// the browser flow.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session is past its deadline.
	ErrSessionExpired = errors.New("session expired")
)

// Session is one authenticated login session.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt reports whether the session is past its deadline at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
