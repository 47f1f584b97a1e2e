package user

import (
	"testing"

	"gorm.io/gorm"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testutil"
)

func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &User{})
	return db, NewMySQLStore(db, logger.NewTestLogger())
}

// newAccount builds an active account with the password already hashed.
func newAccount(t *testing.T, email, name string) *User {
	t.Helper()
	u := &User{
		Email:       email,
		DisplayName: name,
		IsActive:    true,
	}
	if err := u.SetPassword("flux-password-1"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return u
}
