package scriptgen

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for persisted generated scripts.
type Store interface {
	// Create persists a generated script.
	Create(ctx context.Context, script *StoredScript) error

	// GetByID retrieves a stored script by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*StoredScript, error)

	// GetLatestByCase retrieves the most recent script for a test case.
	GetLatestByCase(ctx context.Context, caseID string) (*StoredScript, error)

	// ListByCase retrieves all stored scripts for a test case, newest first.
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]*StoredScript, error)
}
