// Package apitoken issues bearer tokens for the CLI and CI callers.
// Only the SHA-256 digest of a token is ever stored; the raw value is
// shown once at creation time.
package apitoken

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound    = errors.New("api token not found")
	ErrInvalidTokenName = errors.New("token name is required")
	ErrInvalidScope     = errors.New("invalid scope: must be read_only or read_write")
	ErrMissingUser      = errors.New("token must belong to a user")
	ErrMissingHash      = errors.New("token hash is required")
	ErrMaxTokensReached = errors.New("maximum number of active tokens reached")
)

const (
	ScopeReadOnly  = "read_only"
	ScopeReadWrite = "read_write"

	// MaxTokensPerUser caps how many live tokens one account may hold.
	MaxTokensPerUser = 5

	DefaultExpiry = 30 * 24 * time.Hour
	MinExpiry     = 24 * time.Hour
	MaxExpiry     = 365 * 24 * time.Hour
)

// tokenPrefix marks raw flux tokens so leaked values are recognizable
// in log scanners.
const tokenPrefix = "fxt_"

// APIToken is one issued token. Scope gates write access; revocation
// flips IsActive and leaves the row in place.
type APIToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index:idx_api_tokens_user_id"`
	Name      string    `json:"name" gorm:"not null"`
	TokenHash string    `json:"-" gorm:"type:char(64);not null;uniqueIndex:idx_api_tokens_token_hash"`
	Scope     string    `json:"scope" gorm:"type:varchar(20);not null;default:read_only"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APIToken) TableName() string {
	return "api_tokens"
}

// BeforeCreate assigns an ID when the caller did not.
func (t *APIToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ValidScope reports whether s is one of the two known scopes.
func ValidScope(s string) bool {
	return s == ScopeReadOnly || s == ScopeReadWrite
}

// Validate checks the fields a row must carry before it is written.
func (t *APIToken) Validate() error {
	if t.Name == "" {
		return ErrInvalidTokenName
	}
	if !ValidScope(t.Scope) {
		return ErrInvalidScope
	}
	if t.UserID == uuid.Nil {
		return ErrMissingUser
	}
	if t.TokenHash == "" {
		return ErrMissingHash
	}
	return nil
}

// GenerateToken draws a fresh random token. It returns the raw value
// for the one-time reveal and the digest that gets persisted.
func GenerateToken() (rawToken string, hash string, err error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", "", fmt.Errorf("failed to draw token bytes: %w", err)
	}
	rawToken = tokenPrefix + base64.RawURLEncoding.EncodeToString(buf[:])
	return rawToken, HashToken(rawToken), nil
}

// HashToken returns the hex SHA-256 digest of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidateExpiry normalizes a requested lifetime. Zero means the
// default; anything outside the allowed window is clamped to it.
func ValidateExpiry(d time.Duration) (time.Duration, error) {
	switch {
	case d == 0:
		return DefaultExpiry, nil
	case d < MinExpiry:
		return MinExpiry, nil
	case d > MaxExpiry:
		return MaxExpiry, nil
	default:
		return d, nil
	}
}
