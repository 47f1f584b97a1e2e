package project

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the interface for project persistence operations.
type Store interface {
	// Create creates a new project and enrols the owner as a member.
	Create(ctx context.Context, project *Project) error

	// GetByID retrieves a project by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// Update updates a project with the given setters.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error

	// Delete soft deletes a project by setting is_active to false.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByMember retrieves a paginated list of active projects the user
	// belongs to.
	ListByMember(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Project, error)

	// AddMember grants a user access to a project.
	AddMember(ctx context.Context, projectID, userID uuid.UUID, role string) error

	// RemoveMember revokes a user's access to a project.
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error

	// IsMember reports whether the user has access to the project.
	IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
}

// UpdateSetter mutates one field of a project inside Store.Update. A
// setter that returns an error aborts the whole update.
type UpdateSetter func(*Project) error

// SetName renames the project.
func SetName(name string) UpdateSetter {
	return func(p *Project) error {
		if name == "" {
			return ErrInvalidProjectName
		}
		p.Name = name
		return nil
	}
}

// SetDescription replaces the description. Empty clears it.
func SetDescription(description string) UpdateSetter {
	return func(p *Project) error {
		p.Description = description
		return nil
	}
}

// SetActive flips the soft-delete flag.
func SetActive(active bool) UpdateSetter {
	return func(p *Project) error {
		p.IsActive = active
		return nil
	}
}
