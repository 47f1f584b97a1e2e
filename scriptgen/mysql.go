package scriptgen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed script store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create persists a generated script.
func (s *MySQLStore) Create(ctx context.Context, script *StoredScript) error {
	if err := script.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(script).Error; err != nil {
		s.logger.Error(ctx, "failed to create stored script", map[string]interface{}{
			"error":   err.Error(),
			"case_id": script.CaseID,
		})
		return err
	}

	s.logger.Info(ctx, "script stored", map[string]interface{}{
		"script_id":  script.ID.String(),
		"case_id":    script.CaseID,
		"provenance": string(script.Provenance),
	})

	return nil
}

// GetByID retrieves a stored script by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*StoredScript, error) {
	var script StoredScript
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&script).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		s.logger.Error(ctx, "failed to get stored script", map[string]interface{}{
			"error":     err.Error(),
			"script_id": id.String(),
		})
		return nil, err
	}

	return &script, nil
}

// GetLatestByCase retrieves the most recent script for a test case.
func (s *MySQLStore) GetLatestByCase(ctx context.Context, caseID string) (*StoredScript, error) {
	var script StoredScript
	err := s.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		First(&script).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		s.logger.Error(ctx, "failed to get latest script", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return nil, err
	}

	return &script, nil
}

// ListByCase retrieves stored scripts for a test case, newest first.
func (s *MySQLStore) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]*StoredScript, error) {
	var scripts []*StoredScript
	err := s.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&scripts).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list scripts by case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return nil, err
	}

	return scripts, nil
}
