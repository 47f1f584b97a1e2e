package project

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Authorizer answers "may this user touch this project" for the
// execution pipeline and the HTTP handlers.
type Authorizer struct {
	store Store
}

// NewAuthorizer creates an authorizer backed by a project store.
func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// Authorize returns nil when the user is a member of the project.
func (a *Authorizer) Authorize(ctx context.Context, userID, projectID uuid.UUID) error {
	ok, err := a.store.IsMember(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("membership check failed: %w", err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
