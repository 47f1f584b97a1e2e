package testcase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func seedChain(t *testing.T, store Store, links map[string]string) {
	t.Helper()
	projectID := uuid.New()
	userID := uuid.New()

	for caseID, prereq := range links {
		tc := newTestCase("case "+caseID, projectID, userID, Steps{{Text: "Given " + caseID}})
		tc.CaseID = caseID
		tc.PrereqCaseID = prereq
		assert.NoError(t, store.Create(context.Background(), tc))
	}
}

func TestChain_RootFirstOrder(t *testing.T) {
	_, store := setupTestStore(t)

	seedChain(t, store, map[string]string{
		"TC0001": "",
		"TC0002": "TC0001",
		"TC0003": "TC0002",
	})

	chain, err := Chain(context.Background(), store, "TC0003")
	assert.NoError(t, err)
	assert.Len(t, chain, 3)
	assert.Equal(t, "TC0001", chain[0].CaseID)
	assert.Equal(t, "TC0002", chain[1].CaseID)
	assert.Equal(t, "TC0003", chain[2].CaseID)
}

func TestChain_NoPrereq(t *testing.T) {
	_, store := setupTestStore(t)
	seedChain(t, store, map[string]string{"TC0010": ""})

	chain, err := Chain(context.Background(), store, "TC0010")
	assert.NoError(t, err)
	assert.Len(t, chain, 1)
}

func TestChain_CycleDetected(t *testing.T) {
	_, store := setupTestStore(t)

	seedChain(t, store, map[string]string{
		"TC0001": "TC0002",
		"TC0002": "TC0001",
	})

	_, err := Chain(context.Background(), store, "TC0001")
	assert.ErrorIs(t, err, ErrPrereqCycle)
}

func TestChain_SelfCycle(t *testing.T) {
	_, store := setupTestStore(t)
	seedChain(t, store, map[string]string{"TC0005": "TC0005"})

	_, err := Chain(context.Background(), store, "TC0005")
	assert.ErrorIs(t, err, ErrPrereqCycle)
}

func TestChain_MissingPrereq(t *testing.T) {
	_, store := setupTestStore(t)
	seedChain(t, store, map[string]string{"TC0001": "TC0404"})

	_, err := Chain(context.Background(), store, "TC0001")
	assert.ErrorIs(t, err, ErrTestCaseNotFound)
}
