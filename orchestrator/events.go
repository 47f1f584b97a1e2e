package orchestrator

import (
	"encoding/json"

	"github.com/flux-qa/flux-backend/execlog"
	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/testplan"
)

// Status is the machine-readable tag on an outbound protocol event.
type Status string

const (
	StatusBuildingPlan  Status = "BUILDING_PLAN"
	StatusPlanReady     Status = "PLAN_READY"
	StatusSearchingMADL Status = "SEARCHING_MADL"
	StatusMethodsFound  Status = "METHODS_FOUND"
	StatusNoMADLMethods Status = "NO_MADL_METHODS"
	StatusGenerating    Status = "GENERATING"
	StatusExecuting     Status = "EXECUTING"
	StatusRunning       Status = "RUNNING"
	StatusAutoHealing   Status = "AUTO_HEALING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
)

// Event is one outbound protocol message. Every field except Status is
// optional; which ones are set depends on the status.
type Event struct {
	Status      Status                `json:"status"`
	Message     string                `json:"message,omitempty"`
	Plan        *testplan.Plan        `json:"plan,omitempty"`
	Methods     []madl.ReusableMethod `json:"methods,omitempty"`
	Log         string                `json:"log,omitempty"`
	ExecutionID string                `json:"execution_id,omitempty"`
	FinalStatus string                `json:"final_status,omitempty"`
	Summary     *execlog.Summary      `json:"summary,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Inbound action names.
const (
	ActionUpdateTestPlan   = "update_testplan"
	ActionSkipEdit         = "skip_edit"
	ActionConfirmSelection = "confirm_selection"
	ActionSkipMethods      = "skip_methods"
	ActionContinue         = "continue"
)

// Message is one inbound protocol message from the caller.
type Message struct {
	Action string `json:"action"`

	// Plan carries the edited plan for update_testplan.
	Plan json.RawMessage `json:"plan,omitempty"`

	// Selected carries method identity keys for confirm_selection.
	// Empty means keep all candidates.
	Selected []string `json:"selected,omitempty"`
}
