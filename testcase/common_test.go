package testcase

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testutil"
)

// setupTestStore creates a test database and test case store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &TestCase{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// newTestCase creates a test case with default values.
func newTestCase(name string, projectID, createdBy uuid.UUID, steps Steps) *TestCase {
	return &TestCase{
		Name:      name,
		ProjectID: projectID,
		CreatedBy: createdBy,
		Steps:     steps,
	}
}
