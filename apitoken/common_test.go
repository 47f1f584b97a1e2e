package apitoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testutil"
)

func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &APIToken{})
	return db, NewMySQLStore(db, logger.NewTestLogger())
}

// newToken builds a live token expiring a month out. The hash is
// derived from the name so each fixture stays unique.
func newToken(name string, userID uuid.UUID, scope string) *APIToken {
	return &APIToken{
		Name:      name,
		UserID:    userID,
		Scope:     scope,
		TokenHash: HashToken("fxt_fixture_" + name),
		ExpiresAt: time.Now().Add(DefaultExpiry),
		IsActive:  true,
	}
}
