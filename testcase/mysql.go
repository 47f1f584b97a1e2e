package testcase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
)

// MySQLStore implements the Store interface using GORM and MySQL.
type MySQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewMySQLStore creates a new MySQL-backed test case store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new test case. When the case ID is unset, the next
// sequential TCnnnn ID is assigned inside the same transaction.
func (s *MySQLStore) Create(ctx context.Context, testCase *TestCase) error {
	if err := testCase.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if testCase.CaseID == "" {
			var count int64
			if err := tx.Model(&TestCase{}).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count test cases: %w", err)
			}
			testCase.CaseID = FormatCaseID(int(count) + 1)
		}
		return tx.Create(testCase).Error
	})

	if err != nil {
		s.logger.Error(ctx, "failed to create test case", map[string]interface{}{
			"error":      err.Error(),
			"name":       testCase.Name,
			"project_id": testCase.ProjectID.String(),
		})
		return err
	}

	s.logger.Info(ctx, "test case created", map[string]interface{}{
		"test_case_id": testCase.ID.String(),
		"case_id":      testCase.CaseID,
		"project_id":   testCase.ProjectID.String(),
	})

	return nil
}

// GetByID retrieves a test case by its UUID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*TestCase, error) {
	var testCase TestCase
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&testCase).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestCaseNotFound
		}
		s.logger.Error(ctx, "failed to get test case by ID", map[string]interface{}{
			"error":        err.Error(),
			"test_case_id": id.String(),
		})
		return nil, err
	}

	return &testCase, nil
}

// GetByCaseID retrieves a test case by its human-readable case ID.
func (s *MySQLStore) GetByCaseID(ctx context.Context, caseID string) (*TestCase, error) {
	var testCase TestCase
	err := s.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		First(&testCase).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestCaseNotFound
		}
		s.logger.Error(ctx, "failed to get test case by case ID", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return nil, err
	}

	return &testCase, nil
}

// Update updates a test case with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var testCase TestCase
		if err := tx.Where("id = ?", id).First(&testCase).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTestCaseNotFound
			}
			return err
		}

		for _, setter := range setters {
			if err := setter(&testCase); err != nil {
				return err
			}
		}

		return tx.Save(&testCase).Error
	})

	if err != nil {
		s.logger.Error(ctx, "failed to update test case", map[string]interface{}{
			"error":        err.Error(),
			"test_case_id": id.String(),
		})
		return err
	}

	return nil
}

// Delete deletes a test case.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&TestCase{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete test case", map[string]interface{}{
			"error":        result.Error.Error(),
			"test_case_id": id.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTestCaseNotFound
	}

	s.logger.Info(ctx, "test case deleted", map[string]interface{}{
		"test_case_id": id.String(),
	})

	return nil
}

// ListByProject retrieves a paginated list of test cases for a project.
func (s *MySQLStore) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*TestCase, error) {
	var testCases []*TestCase
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("case_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&testCases).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list test cases by project", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
			"limit":      limit,
			"offset":     offset,
		})
		return nil, err
	}

	return testCases, nil
}

// CountByProject returns the total count of test cases for a project.
func (s *MySQLStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&TestCase{}).
		Where("project_id = ?", projectID).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to count test cases by project", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		return 0, err
	}

	return int(count), nil
}
