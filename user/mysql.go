package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
)

// MySQLStore persists users through GORM.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a MySQL-backed user store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: log}
}

// duplicateKey reports whether err is a unique-index violation. The
// SQLite message check keeps the in-memory test database honest.
func duplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create validates and inserts the user.
func (s *MySQLStore) Create(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if duplicateKey(err) {
			return ErrDuplicateEmail
		}
		s.logger.Error(ctx, "user insert failed", map[string]interface{}{
			"error": err.Error(),
			"email": u.Email,
		})
		return err
	}

	s.logger.Info(ctx, "user created", map[string]interface{}{
		"user_id": u.ID.String(),
		"email":   u.Email,
	})
	return nil
}

// getActive runs a First query scoped to active users.
func (s *MySQLStore) getActive(ctx context.Context, query string, arg interface{}) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).
		Where(query, arg, true).
		First(&u).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "user lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return &u, nil
}

// GetByID returns the active user with the given ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getActive(ctx, "id = ? AND is_active = ?", id)
}

// GetByEmail returns the active user registered under email.
func (s *MySQLStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getActive(ctx, "email = ? AND is_active = ?", email)
}

// Update loads the user, applies the setters in order and saves the
// result. The first failing setter aborts without writing.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, set := range setters {
		if err := set(u); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		if duplicateKey(err) {
			return ErrDuplicateEmail
		}
		s.logger.Error(ctx, "user update failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "user updated", map[string]interface{}{
		"user_id": id.String(),
	})
	return nil
}

// Delete deactivates the user. The row stays for audit history.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		s.logger.Error(ctx, "user deactivation failed", map[string]interface{}{
			"error":   result.Error.Error(),
			"user_id": id.String(),
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.logger.Info(ctx, "user deactivated", map[string]interface{}{
		"user_id": id.String(),
	})
	return nil
}

// List returns a page of active users.
func (s *MySQLStore) List(ctx context.Context, limit, offset int) ([]*User, error) {
	var users []*User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Limit(limit).
		Offset(offset).
		Find(&users).Error

	if err != nil {
		s.logger.Error(ctx, "user list failed", map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		})
		return nil, err
	}
	return users, nil
}
