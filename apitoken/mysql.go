package apitoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
)

// MySQLStore persists tokens through GORM.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a MySQL-backed token store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{db: db, logger: log}
}

// Create validates and inserts the token, enforcing the per-user cap.
func (s *MySQLStore) Create(ctx context.Context, token *APIToken) error {
	if err := token.Validate(); err != nil {
		return err
	}

	count, err := s.CountActiveByUser(ctx, token.UserID)
	if err != nil {
		return err
	}
	if count >= MaxTokensPerUser {
		return ErrMaxTokensReached
	}

	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		s.logger.Error(ctx, "token insert failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": token.UserID.String(),
		})
		return err
	}
	return nil
}

// GetByID returns the token regardless of its active flag; callers
// use it for ownership checks before revoking.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error) {
	var token APIToken
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "token lookup failed", map[string]interface{}{
			"error":    err.Error(),
			"token_id": id.String(),
		})
		return nil, err
	}
	return &token, nil
}

// GetByTokenHash resolves a presented token for authentication.
// Revoked and expired tokens are indistinguishable from unknown ones.
func (s *MySQLStore) GetByTokenHash(ctx context.Context, hash string) (*APIToken, error) {
	var token APIToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND is_active = ? AND expires_at > ?", hash, true, time.Now()).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "token hash lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return &token, nil
}

// ListByUser returns the user's live tokens, newest first.
func (s *MySQLStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*APIToken, error) {
	var tokens []*APIToken
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&tokens).Error

	if err != nil {
		s.logger.Error(ctx, "token list failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
		})
		return nil, err
	}
	return tokens, nil
}

// CountActiveByUser counts the user's live tokens for the cap check.
func (s *MySQLStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&APIToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "token count failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
		})
		return 0, err
	}
	return int(count), nil
}

// Revoke deactivates the token, keeping the row for audit history.
func (s *MySQLStore) Revoke(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&APIToken{}).
		Where("id = ?", id).
		Update("is_active", false)

	if result.Error != nil {
		s.logger.Error(ctx, "token revoke failed", map[string]interface{}{
			"error":    result.Error.Error(),
			"token_id": id.String(),
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}

	s.logger.Info(ctx, "api token revoked", map[string]interface{}{
		"token_id": id.String(),
	})
	return nil
}

// Delete removes the row entirely.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&APIToken{})

	if result.Error != nil {
		s.logger.Error(ctx, "token delete failed", map[string]interface{}{
			"error":    result.Error.Error(),
			"token_id": id.String(),
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}

	s.logger.Info(ctx, "api token deleted", map[string]interface{}{
		"token_id": id.String(),
	})
	return nil
}
