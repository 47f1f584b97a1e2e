package project

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

// NewMySQLStore creates a new MySQL-backed project store.
func NewMySQLStore(db *gorm.DB, log logger.Logger) *MySQLStore {
	return &MySQLStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new project and enrols the owner as a member.
func (s *MySQLStore) Create(ctx context.Context, project *Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&Member{
			ProjectID: project.ID,
			UserID:    project.OwnerID,
			Role:      "owner",
		}).Error
	})

	if err != nil {
		s.logger.Error(ctx, "failed to create project", map[string]interface{}{
			"error":    err.Error(),
			"name":     project.Name,
			"owner_id": project.OwnerID.String(),
		})
		return err
	}

	s.logger.Info(ctx, "project created", map[string]interface{}{
		"project_id": project.ID.String(),
		"name":       project.Name,
		"owner_id":   project.OwnerID.String(),
	})

	return nil
}

// GetByID retrieves a project by its ID.
func (s *MySQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&project).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error(ctx, "failed to get project by ID", map[string]interface{}{
			"error":      err.Error(),
			"project_id": id.String(),
		})
		return nil, err
	}

	return &project, nil
}

// Update updates a project with the given setters.
func (s *MySQLStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	project, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(project); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		s.logger.Error(ctx, "failed to update project", map[string]interface{}{
			"error":      err.Error(),
			"project_id": id.String(),
		})
		return err
	}

	s.logger.Info(ctx, "project updated", map[string]interface{}{
		"project_id": id.String(),
	})

	return nil
}

// Delete soft deletes a project by setting is_active to false.
func (s *MySQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete project", map[string]interface{}{
			"error":      result.Error.Error(),
			"project_id": id.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}

	s.logger.Info(ctx, "project deleted", map[string]interface{}{
		"project_id": id.String(),
	})

	return nil
}

// ListByMember retrieves a paginated list of active projects the user
// belongs to.
func (s *MySQLStore) ListByMember(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Project, error) {
	var projects []*Project
	err := s.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ? AND projects.is_active = ?", userID, true).
		Order("projects.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list projects by member", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
			"limit":   limit,
			"offset":  offset,
		})
		return nil, err
	}

	return projects, nil
}

// AddMember grants a user access to a project.
func (s *MySQLStore) AddMember(ctx context.Context, projectID, userID uuid.UUID, role string) error {
	if role == "" {
		role = "member"
	}
	if _, err := s.GetByID(ctx, projectID); err != nil {
		return err
	}

	member := &Member{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		s.logger.Error(ctx, "failed to add project member", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
			"user_id":    userID.String(),
		})
		return err
	}

	s.logger.Info(ctx, "project member added", map[string]interface{}{
		"project_id": projectID.String(),
		"user_id":    userID.String(),
		"role":       role,
	})

	return nil
}

// RemoveMember revokes a user's access to a project.
func (s *MySQLStore) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&Member{})

	if result.Error != nil {
		s.logger.Error(ctx, "failed to remove project member", map[string]interface{}{
			"error":      result.Error.Error(),
			"project_id": projectID.String(),
			"user_id":    userID.String(),
		})
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotMember
	}

	return nil
}

// IsMember reports whether the user has access to the project.
func (s *MySQLStore) IsMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Member{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error

	if err != nil {
		s.logger.Error(ctx, "failed to check project membership", map[string]interface{}{
			"error":      err.Error(),
			"project_id": projectID.String(),
			"user_id":    userID.String(),
		})
		return false, err
	}

	return count > 0, nil
}
