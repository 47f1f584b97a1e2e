package apitoken

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence surface for issued tokens. Lookups for
// authentication go through GetByTokenHash, which only ever returns
// live, unexpired tokens.
type Store interface {
	Create(ctx context.Context, token *APIToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error)
	GetByTokenHash(ctx context.Context, hash string) (*APIToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*APIToken, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
