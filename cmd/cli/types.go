package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaginatedResponse matches handlers.PaginatedResponse.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse matches handlers.SuccessResponse.
type SuccessResponse struct {
	Message string `json:"message"`
}

// CreateProjectRequest matches handlers.CreateProjectRequest.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest matches handlers.UpdateProjectRequest.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// StepJSON matches testcase.Step on the wire.
type StepJSON struct {
	Text string `json:"step"`
	Arg  string `json:"arg,omitempty"`
}

// CreateTestCaseRequest matches handlers.CreateTestCaseRequest.
type CreateTestCaseRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Steps        []StepJSON `json:"steps"`
	PrereqCaseID string     `json:"prereq_case_id,omitempty"`
}

// UpdateTestCaseRequest matches handlers.UpdateTestCaseRequest.
type UpdateTestCaseRequest struct {
	Name         *string     `json:"name,omitempty"`
	Description  *string     `json:"description,omitempty"`
	Steps        *[]StepJSON `json:"steps,omitempty"`
	PrereqCaseID *string     `json:"prereq_case_id,omitempty"`
}

// CreateTokenRequest matches handlers.CreateTokenRequest.
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Scope          string `json:"scope"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// CreateTokenResponse matches handlers.CreateTokenResponse.
type CreateTokenResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// TokenListItem matches handlers.TokenListItem.
type TokenListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	ExpiresAt string `json:"expires_at"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// TokenListResponse matches handlers.TokenListResponse.
type TokenListResponse struct {
	Tokens []TokenListItem `json:"tokens"`
	Total  int             `json:"total"`
}

// ProjectResponse is used for deserializing project responses.
type ProjectResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"owner_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TestCaseResponse is used for deserializing test case responses.
type TestCaseResponse struct {
	ID           uuid.UUID  `json:"id"`
	CaseID       string     `json:"case_id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Steps        []StepJSON `json:"steps"`
	PrereqCaseID string     `json:"prereq_case_id,omitempty"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ExecutionResponse is used for deserializing execution record responses.
type ExecutionResponse struct {
	ID          uuid.UUID `json:"id"`
	ExecutionID string    `json:"execution_id"`
	CaseID      string    `json:"case_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	ScriptType  string    `json:"script_type"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Output      string    `json:"output"`
	ArtifactKey string    `json:"artifact_key,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	ExecutedBy  uuid.UUID `json:"executed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExecutionSummaryResponse is used for deserializing summary responses.
type ExecutionSummaryResponse struct {
	Total        int                 `json:"total"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	TimeoutCount int                 `json:"timeout_count"`
	SuccessRate  float64             `json:"success_rate"`
	Recent       []ExecutionResponse `json:"recent"`
}

// ExecutionEvent is one websocket event from the execute endpoint.
type ExecutionEvent struct {
	Status      string          `json:"status"`
	Message     string          `json:"message,omitempty"`
	Plan        json.RawMessage `json:"plan,omitempty"`
	Methods     []MethodJSON    `json:"methods,omitempty"`
	Log         string          `json:"log,omitempty"`
	ExecutionID string          `json:"execution_id,omitempty"`
	FinalStatus string          `json:"final_status,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// MethodJSON is a reusable method candidate on the wire.
type MethodJSON struct {
	ClassName  string  `json:"class_name"`
	MethodName string  `json:"method_name"`
	Intent     string  `json:"intent"`
	Score      float64 `json:"score"`
}

// ClientMessage is one inbound websocket message to the execute endpoint.
type ClientMessage struct {
	Action   string   `json:"action"`
	Selected []string `json:"selected,omitempty"`
}
