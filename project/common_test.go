package project

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testutil"
)

// setupTestStore creates a test database and project store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Project{}, &Member{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// createTestProject creates a test project with default values.
func createTestProject(name, description string, ownerID uuid.UUID) *Project {
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		IsActive:    true,
	}
}
