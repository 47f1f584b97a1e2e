package testplan

import (
	"context"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testcase"
)

// Builder assembles execution plans by walking prerequisite chains.
type Builder struct {
	store  testcase.Store
	logger logger.Logger
}

// NewBuilder creates a plan builder backed by a test case store.
func NewBuilder(store testcase.Store, log logger.Logger) *Builder {
	return &Builder{
		store:  store,
		logger: log,
	}
}

// Build resolves the prerequisite chain for the given case ID and
// assembles the plan. The final chain element is the case under
// execution; everything before it becomes a prerequisite entry.
func (b *Builder) Build(ctx context.Context, caseID string) (*Plan, error) {
	chain, err := testcase.Chain(ctx, b.store, caseID)
	if err != nil {
		b.logger.Error(ctx, "failed to resolve prerequisite chain", map[string]interface{}{
			"error":   err.Error(),
			"case_id": caseID,
		})
		return nil, err
	}

	current := chain[len(chain)-1]
	plan := &Plan{
		CurrentID: current.CaseID,
		Current:   current.Steps,
	}
	for _, tc := range chain[:len(chain)-1] {
		plan.Prereq = append(plan.Prereq, PrereqEntry{
			CaseID: tc.CaseID,
			Steps:  tc.Steps,
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	b.logger.Info(ctx, "plan built", map[string]interface{}{
		"case_id":      caseID,
		"prereq_count": len(plan.Prereq),
		"step_count":   len(plan.Current),
	})

	return plan, nil
}
