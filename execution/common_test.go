package execution

import (
	"testing"

	"github.com/google/uuid"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testutil"
)

// setupTestStore creates a test database and execution store for testing.
func setupTestStore(t *testing.T) Store {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Record{})
	return NewMySQLStore(db, logger.NewTestLogger())
}

// newRecord creates a record with default values.
func newRecord(caseID string, projectID uuid.UUID, status Status) *Record {
	return &Record{
		CaseID:     caseID,
		ProjectID:  projectID,
		ScriptType: "web",
		Status:     status,
		Message:    "recorded by test",
		ExecutedBy: uuid.New(),
	}
}
