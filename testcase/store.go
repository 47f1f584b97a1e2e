package testcase

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for test case persistence operations.
type Store interface {
	// Create creates a new test case, assigning the next case ID when unset.
	Create(ctx context.Context, testCase *TestCase) error

	// GetByID retrieves a test case by its UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*TestCase, error)

	// GetByCaseID retrieves a test case by its human-readable case ID.
	GetByCaseID(ctx context.Context, caseID string) (*TestCase, error)

	// Update updates a test case with the given setters.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// Delete deletes a test case.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByProject retrieves a paginated list of test cases for a project.
	ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*TestCase, error)

	// CountByProject returns the total count of test cases for a project.
	CountByProject(ctx context.Context, projectID uuid.UUID) (int, error)
}

// UpdateSetter is a function that updates a test case field.
type UpdateSetter func(*TestCase) error
