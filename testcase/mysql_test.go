package testcase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMySQLStore_CreateAssignsCaseID(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()
	projectID := uuid.New()
	userID := uuid.New()

	first := newTestCase("Login", projectID, userID, Steps{{Text: "Given the login page"}})
	assert.NoError(t, store.Create(ctx, first))
	assert.Equal(t, "TC0001", first.CaseID)
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := newTestCase("Checkout", projectID, userID, nil)
	assert.NoError(t, store.Create(ctx, second))
	assert.Equal(t, "TC0002", second.CaseID)
}

func TestMySQLStore_CreateKeepsExplicitCaseID(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	tc := newTestCase("Imported", uuid.New(), uuid.New(), nil)
	tc.CaseID = "TC0099"
	assert.NoError(t, store.Create(ctx, tc))
	assert.Equal(t, "TC0099", tc.CaseID)
}

func TestMySQLStore_CreateInvalid(t *testing.T) {
	_, store := setupTestStore(t)

	tc := newTestCase("", uuid.New(), uuid.New(), nil)
	err := store.Create(context.Background(), tc)
	assert.ErrorIs(t, err, ErrInvalidTestCaseName)
}

func TestMySQLStore_GetByCaseID(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	tc := newTestCase("Login", uuid.New(), uuid.New(), Steps{{Text: "Given the login page"}})
	assert.NoError(t, store.Create(ctx, tc))

	found, err := store.GetByCaseID(ctx, tc.CaseID)
	assert.NoError(t, err)
	assert.Equal(t, tc.ID, found.ID)
	assert.Equal(t, tc.Steps, found.Steps)

	_, err = store.GetByCaseID(ctx, "TC9999")
	assert.ErrorIs(t, err, ErrTestCaseNotFound)
}

func TestMySQLStore_Update(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	tc := newTestCase("Login", uuid.New(), uuid.New(), nil)
	assert.NoError(t, store.Create(ctx, tc))

	err := store.Update(ctx, tc.ID,
		SetName("Login v2"),
		SetDescription("covers SSO"),
		SetSteps(Steps{{Text: "Given an SSO user", Arg: "acme"}}),
		SetPrereqCaseID("TC0001"),
	)
	assert.NoError(t, err)

	updated, err := store.GetByID(ctx, tc.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Login v2", updated.Name)
	assert.Equal(t, "covers SSO", updated.Description)
	assert.Equal(t, "TC0001", updated.PrereqCaseID)
	assert.Len(t, updated.Steps, 1)
}

func TestMySQLStore_UpdateInvalidSetter(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	tc := newTestCase("Login", uuid.New(), uuid.New(), nil)
	assert.NoError(t, store.Create(ctx, tc))

	err := store.Update(ctx, tc.ID, SetPrereqCaseID("bogus"))
	assert.ErrorIs(t, err, ErrInvalidCaseID)

	// Failed update must not persist partial state.
	unchanged, err := store.GetByID(ctx, tc.ID)
	assert.NoError(t, err)
	assert.Empty(t, unchanged.PrereqCaseID)
}

func TestMySQLStore_Delete(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()

	tc := newTestCase("Login", uuid.New(), uuid.New(), nil)
	assert.NoError(t, store.Create(ctx, tc))

	assert.NoError(t, store.Delete(ctx, tc.ID))
	_, err := store.GetByID(ctx, tc.ID)
	assert.ErrorIs(t, err, ErrTestCaseNotFound)

	assert.ErrorIs(t, store.Delete(ctx, tc.ID), ErrTestCaseNotFound)
}

func TestMySQLStore_ListByProject(t *testing.T) {
	_, store := setupTestStore(t)
	ctx := context.Background()
	projectID := uuid.New()
	otherProject := uuid.New()
	userID := uuid.New()

	for _, name := range []string{"A", "B", "C"} {
		assert.NoError(t, store.Create(ctx, newTestCase(name, projectID, userID, nil)))
	}
	assert.NoError(t, store.Create(ctx, newTestCase("other", otherProject, userID, nil)))

	cases, err := store.ListByProject(ctx, projectID, 10, 0)
	assert.NoError(t, err)
	assert.Len(t, cases, 3)
	assert.Equal(t, "TC0001", cases[0].CaseID)

	count, err := store.CountByProject(ctx, projectID)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)

	paged, err := store.ListByProject(ctx, projectID, 2, 2)
	assert.NoError(t, err)
	assert.Len(t, paged, 1)
}
