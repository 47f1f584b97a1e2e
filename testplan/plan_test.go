package testplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flux-qa/flux-backend/testcase"
)

func TestPrereqSteps_MarshalPreservesOrder(t *testing.T) {
	plan := &Plan{
		Prereq: PrereqSteps{
			{CaseID: "TC0003", Steps: testcase.Steps{{Text: "Given C"}}},
			{CaseID: "TC0001", Steps: testcase.Steps{{Text: "Given A"}}},
			{CaseID: "TC0002", Steps: testcase.Steps{{Text: "Given B"}}},
		},
		CurrentID: "TC0004",
		Current:   testcase.Steps{{Text: "When D runs"}},
	}

	raw, err := plan.JSON()
	assert.NoError(t, err)

	text := string(raw)
	// Insertion order, not lexical order.
	first := strings.Index(text, "TC0003")
	second := strings.Index(text, "TC0001")
	third := strings.Index(text, "TC0002")
	assert.True(t, first < second && second < third, "prerequisite order not preserved: %s", text)
	assert.Contains(t, text, `"pretestid_steps"`)
	assert.Contains(t, text, `"current_testid":"TC0004"`)
	assert.Contains(t, text, `"current_bdd_steps"`)
}

func TestPrereqSteps_UnmarshalPreservesOrder(t *testing.T) {
	raw := `{
		"pretestid_steps": {
			"TC0009": [{"step": "Given nine"}],
			"TC0002": [{"step": "Given two", "arg": "x"}]
		},
		"current_testid": "TC0010",
		"current_bdd_steps": [{"step": "When ten runs"}]
	}`

	plan, err := Parse([]byte(raw))
	assert.NoError(t, err)
	assert.Len(t, plan.Prereq, 2)
	assert.Equal(t, "TC0009", plan.Prereq[0].CaseID)
	assert.Equal(t, "TC0002", plan.Prereq[1].CaseID)
	assert.Equal(t, "x", plan.Prereq[1].Steps[0].Arg)
	assert.Equal(t, "TC0010", plan.CurrentID)
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *Plan
		wantErr error
	}{
		{
			name: "valid",
			plan: &Plan{
				CurrentID: "TC0001",
				Current:   testcase.Steps{{Text: "Given a user"}},
			},
		},
		{
			name:    "missing current ID",
			plan:    &Plan{Current: testcase.Steps{{Text: "Given a user"}}},
			wantErr: ErrInvalidPlan,
		},
		{
			name:    "no current steps",
			plan:    &Plan{CurrentID: "TC0001"},
			wantErr: ErrEmptyPlan,
		},
		{
			name: "blank step text",
			plan: &Plan{
				CurrentID: "TC0001",
				Current:   testcase.Steps{{Text: ""}},
			},
			wantErr: ErrInvalidPlan,
		},
		{
			name: "prereq without case ID",
			plan: &Plan{
				CurrentID: "TC0001",
				Current:   testcase.Steps{{Text: "Given a user"}},
				Prereq:    PrereqSteps{{CaseID: ""}},
			},
			wantErr: ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_RejectsUnknownTopLevelKeys(t *testing.T) {
	raw := `{
		"current_testid": "TC0001",
		"current_bdd_steps": [{"step": "Given a user"}],
		"extra_field": true
	}`

	_, err := Parse([]byte(raw))
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Contains(t, err.Error(), "extra_field")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"pretestid_steps": []}`))
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
