package execution

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrRecordNotFound is returned when an execution record is not found.
	ErrRecordNotFound = errors.New("execution record not found")

	// ErrInvalidCaseID is returned when case_id is not set.
	ErrInvalidCaseID = errors.New("case_id is required")

	// ErrInvalidStatus is returned when status is invalid.
	ErrInvalidStatus = errors.New("invalid execution status")

	// ErrInvalidExecutionID is returned when the execution ID is malformed.
	ErrInvalidExecutionID = errors.New("execution_id must match EXnnnn")
)

var executionIDPattern = regexp.MustCompile(`^EX\d{4,}$`)

// Status is the terminal status of a recorded execution. Timed-out runs
// persist as FAILED; MessageTimedOut keeps the distinction in history
// views.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// MessageTimedOut marks a FAILED record whose run exceeded the
// execution deadline.
const MessageTimedOut = "script execution timed out"

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// Record is the persisted result of one execution session.
type Record struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	ExecutionID string    `json:"execution_id" gorm:"type:varchar(20);not null;uniqueIndex:idx_executions_execution_id"`
	CaseID      string    `json:"case_id" gorm:"type:varchar(20);not null;index:idx_executions_case_id"`
	ProjectID   uuid.UUID `json:"project_id" gorm:"type:char(36);not null;index:idx_executions_project_id"`
	ScriptType  string    `json:"script_type" gorm:"type:varchar(20)"`
	Status      Status    `json:"status" gorm:"type:varchar(20);not null;index:idx_executions_status"`
	Message     string    `json:"message" gorm:"type:text"`
	Output      string    `json:"output" gorm:"type:mediumtext"`
	ArtifactKey string    `json:"artifact_key,omitempty" gorm:"type:varchar(255)"`
	DurationMS  int64     `json:"duration_ms"`
	ExecutedBy  uuid.UUID `json:"executed_by" gorm:"type:char(36);index:idx_executions_executed_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Record) TableName() string {
	return "executions"
}

// BeforeCreate hook to generate UUID before creating a new record.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Validate checks if the record has valid required fields.
func (r *Record) Validate() error {
	if r.CaseID == "" {
		return ErrInvalidCaseID
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if r.ExecutionID != "" && !executionIDPattern.MatchString(r.ExecutionID) {
		return ErrInvalidExecutionID
	}
	return nil
}

// FormatExecutionID renders a sequence number as a human-readable execution ID.
func FormatExecutionID(seq int) string {
	return fmt.Sprintf("EX%04d", seq)
}

// Summary aggregates a project's execution history.
type Summary struct {
	Total        int       `json:"total"`
	SuccessCount int       `json:"success_count"`
	FailedCount  int       `json:"failed_count"`
	TimeoutCount int       `json:"timeout_count"`
	SuccessRate  float64   `json:"success_rate"`
	Recent       []*Record `json:"recent"`
}
