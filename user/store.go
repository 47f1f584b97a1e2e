package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no active user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")
)

// Store is the persistence surface for accounts. Reads only ever see
// active users; Delete deactivates rather than removes.
type Store interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, error)
}

// UpdateSetter mutates one field of a user inside Store.Update. A
// setter that returns an error aborts the whole update.
type UpdateSetter func(*User) error

// SetEmail changes the account email.
func SetEmail(email string) UpdateSetter {
	return func(u *User) error {
		if email == "" {
			return ErrInvalidEmail
		}
		u.Email = email
		return nil
	}
}

// SetDisplayName changes the name shown in the UI.
func SetDisplayName(name string) UpdateSetter {
	return func(u *User) error {
		if name == "" {
			return ErrInvalidDisplayName
		}
		u.DisplayName = name
		return nil
	}
}

// SetPassword rehashes and replaces the password.
func SetPassword(password string) UpdateSetter {
	return func(u *User) error {
		return u.SetPassword(password)
	}
}

// SetActive flips the soft-delete flag.
func SetActive(active bool) UpdateSetter {
	return func(u *User) error {
		u.IsActive = active
		return nil
	}
}
