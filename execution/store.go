package execution

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for execution record persistence.
type Store interface {
	// Create persists a record, assigning the next execution ID when unset.
	Create(ctx context.Context, record *Record) error

	// GetByExecutionID retrieves a record by its human-readable execution ID.
	GetByExecutionID(ctx context.Context, executionID string) (*Record, error)

	// ListByCase retrieves records for a test case, newest first.
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]*Record, error)

	// ListByProject retrieves records for a project, newest first.
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*Record, error)

	// Summary aggregates the execution history of a project.
	Summary(ctx context.Context, projectID uuid.UUID, recentLimit int) (*Summary, error)
}
