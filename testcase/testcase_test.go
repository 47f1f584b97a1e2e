package testcase

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTestCase_Validate(t *testing.T) {
	projectID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name     string
		testCase *TestCase
		wantErr  error
	}{
		{
			name: "valid test case",
			testCase: &TestCase{
				Name:      "Login flow",
				ProjectID: projectID,
				CreatedBy: userID,
				Steps: Steps{
					{Text: "Given the login page is open"},
					{Text: "When the user signs in as", Arg: "admin"},
				},
			},
			wantErr: nil,
		},
		{
			name: "missing name",
			testCase: &TestCase{
				ProjectID: projectID,
				CreatedBy: userID,
			},
			wantErr: ErrInvalidTestCaseName,
		},
		{
			name: "missing project",
			testCase: &TestCase{
				Name:      "Login flow",
				CreatedBy: userID,
			},
			wantErr: ErrInvalidProjectID,
		},
		{
			name: "missing created_by",
			testCase: &TestCase{
				Name:      "Login flow",
				ProjectID: projectID,
			},
			wantErr: ErrInvalidCreatedBy,
		},
		{
			name: "malformed case ID",
			testCase: &TestCase{
				Name:      "Login flow",
				ProjectID: projectID,
				CreatedBy: userID,
				CaseID:    "CASE-1",
			},
			wantErr: ErrInvalidCaseID,
		},
		{
			name: "step with empty text",
			testCase: &TestCase{
				Name:      "Login flow",
				ProjectID: projectID,
				CreatedBy: userID,
				Steps:     Steps{{Text: ""}},
			},
			wantErr: ErrInvalidSteps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.testCase.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStep_Query(t *testing.T) {
	assert.Equal(t, "Given the login page is open",
		Step{Text: "Given the login page is open"}.Query())
	assert.Equal(t, "When the user signs in as with admin",
		Step{Text: "When the user signs in as", Arg: "admin"}.Query())
}

func TestSteps_ValueScan(t *testing.T) {
	steps := Steps{
		{Text: "Given a cart", Arg: ""},
		{Text: "When the user adds", Arg: "2 items"},
	}

	val, err := steps.Value()
	assert.NoError(t, err)

	var decoded Steps
	assert.NoError(t, decoded.Scan(val.([]byte)))
	assert.Equal(t, steps, decoded)

	// Arg ordering survives the round trip alongside its step text.
	var generic []map[string]interface{}
	assert.NoError(t, json.Unmarshal(val.([]byte), &generic))
	assert.Equal(t, "When the user adds", generic[1]["step"])
	assert.Equal(t, "2 items", generic[1]["arg"])
}

func TestFormatCaseID(t *testing.T) {
	assert.Equal(t, "TC0001", FormatCaseID(1))
	assert.Equal(t, "TC0042", FormatCaseID(42))
	assert.Equal(t, "TC12345", FormatCaseID(12345))
}
