package execution

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		wantErr error
	}{
		{
			name:   "valid",
			record: &Record{CaseID: "TC0001", Status: StatusSuccess},
		},
		{
			name:    "missing case",
			record:  &Record{Status: StatusSuccess},
			wantErr: ErrInvalidCaseID,
		},
		{
			name:    "bad status",
			record:  &Record{CaseID: "TC0001", Status: Status("RUNNING")},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "bad execution id",
			record:  &Record{CaseID: "TC0001", Status: StatusFailed, ExecutionID: "RUN-1"},
			wantErr: ErrInvalidExecutionID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMySQLStore_CreateAssignsExecutionID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	projectID := uuid.New()

	first := newRecord("TC0001", projectID, StatusSuccess)
	assert.NoError(t, store.Create(ctx, first))
	assert.Equal(t, "EX0001", first.ExecutionID)

	second := newRecord("TC0001", projectID, StatusFailed)
	assert.NoError(t, store.Create(ctx, second))
	assert.Equal(t, "EX0002", second.ExecutionID)
}

func TestMySQLStore_GetByExecutionID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := newRecord("TC0002", uuid.New(), StatusFailed)
	record.Output = "partial output"
	assert.NoError(t, store.Create(ctx, record))

	found, err := store.GetByExecutionID(ctx, record.ExecutionID)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, found.Status)
	assert.Equal(t, "partial output", found.Output)

	_, err = store.GetByExecutionID(ctx, "EX9999")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMySQLStore_ListByCase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	projectID := uuid.New()

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.Create(ctx, newRecord("TC0003", projectID, StatusSuccess)))
	}
	assert.NoError(t, store.Create(ctx, newRecord("TC0004", projectID, StatusSuccess)))

	records, err := store.ListByCase(ctx, "TC0003", 10, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestMySQLStore_Summary(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	projectID := uuid.New()
	otherProject := uuid.New()

	for i := 0; i < 3; i++ {
		assert.NoError(t, store.Create(ctx, newRecord("TC0001", projectID, StatusSuccess)))
	}
	assert.NoError(t, store.Create(ctx, newRecord("TC0001", projectID, StatusFailed)))
	timedOut := newRecord("TC0002", projectID, StatusFailed)
	timedOut.Message = MessageTimedOut
	assert.NoError(t, store.Create(ctx, timedOut))
	assert.NoError(t, store.Create(ctx, newRecord("TC0009", otherProject, StatusFailed)))

	summary, err := store.Summary(ctx, projectID, 2)
	assert.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.SuccessCount)
	assert.Equal(t, 2, summary.FailedCount)
	assert.Equal(t, 1, summary.TimeoutCount)
	assert.InDelta(t, 0.6, summary.SuccessRate, 0.001)
	assert.Len(t, summary.Recent, 2)
}

func TestMySQLStore_SummaryEmptyProject(t *testing.T) {
	store := setupTestStore(t)

	summary, err := store.Summary(context.Background(), uuid.New(), 5)
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.SuccessRate)
	assert.Empty(t, summary.Recent)
}

func TestFormatExecutionID(t *testing.T) {
	assert.Equal(t, "EX0001", FormatExecutionID(1))
	assert.Equal(t, "EX0100", FormatExecutionID(100))
}
