package execution

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

// NewMySQLStore creates a new MySQL-backed execution record store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create persists a record. When the execution ID is unset, the next
// sequential EXnnnn ID is assigned inside the same transaction.
func (s *MySQLStore) Create(ctx context.Context, record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if record.ExecutionID == "" {
			var count int64
			if err := tx.Model(&Record{}).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count executions: %w", err)
			}
			record.ExecutionID = FormatExecutionID(int(count) + 1)
		}
		return tx.Create(record).Error
	})

	if err != nil {
		s.logger.Error(ctx, "failed to create execution record", map[string]interface{}{
			"error":   err.Error(),
			"case_id": record.CaseID,
		})
		return err
	}

	s.logger.Info(ctx, "execution record created", map[string]interface{}{
		"execution_id": record.ExecutionID,
		"case_id":      record.CaseID,
		"status":       string(record.Status),
	})

	return nil
}

// GetByExecutionID retrieves a record by its human-readable execution ID.
func (s *MySQLStore) GetByExecutionID(ctx context.Context, executionID string) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&record).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error(ctx, "failed to get execution record", map[string]interface{}{
			"error":        err.Error(),
			"execution_id": executionID,
		})
		return nil, err
	}

	return &record, nil
}

// ListByCase retrieves records for a test case, newest first.
func (s *MySQLStore) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]*Record, error) {
	var records []*Record
	err := s.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list executions by case", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return nil, err
	}

	return records, nil
}

// ListByProject retrieves records for a project, newest first.
func (s *MySQLStore) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]*Record, error) {
	var records []*Record
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list executions by project", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		return nil, err
	}

	return records, nil
}

// Summary aggregates the execution history of a project.
func (s *MySQLStore) Summary(ctx context.Context, projectID uuid.UUID, recentLimit int) (*Summary, error) {
	summary := &Summary{}

	rows, err := s.db.WithContext(ctx).
		Model(&Record{}).
		Select("status, COUNT(*) as count").
		Where("project_id = ?", projectID).
		Group("status").
		Rows()
	if err != nil {
		s.logger.Error(ctx, "failed to aggregate executions", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
		})
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.Total += count
		switch status {
		case StatusSuccess:
			summary.SuccessCount = count
		case StatusFailed:
			summary.FailedCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var timedOut int64
	err = s.db.WithContext(ctx).
		Model(&Record{}).
		Where("project_id = ? AND status = ? AND message = ?", projectID, StatusFailed, MessageTimedOut).
		Count(&timedOut).Error
	if err != nil {
		return nil, err
	}
	summary.TimeoutCount = int(timedOut)

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.SuccessCount) / float64(summary.Total)
	}

	if recentLimit > 0 {
		recent, err := s.ListByProject(ctx, projectID, recentLimit, 0)
		if err != nil {
			return nil, err
		}
		summary.Recent = recent
	}

	return summary, nil
}
