package testcase

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrTestCaseNotFound is returned when a test case is not found.
	ErrTestCaseNotFound = errors.New("test case not found")

	// ErrInvalidTestCaseName is returned when a test case name is empty or invalid.
	ErrInvalidTestCaseName = errors.New("test case name is required")

	// ErrInvalidProjectID is returned when project_id is not set.
	ErrInvalidProjectID = errors.New("project_id is required")

	// ErrInvalidCreatedBy is returned when created_by is not set.
	ErrInvalidCreatedBy = errors.New("created_by is required")

	// ErrInvalidCaseID is returned when the human-readable case ID is malformed.
	ErrInvalidCaseID = errors.New("case_id must match TCnnnn")

	// ErrInvalidSteps is returned when the BDD steps are malformed.
	ErrInvalidSteps = errors.New("invalid steps")

	// ErrPrereqCycle is returned when prerequisite chain resolution detects a cycle.
	ErrPrereqCycle = errors.New("prerequisite chain contains a cycle")
)

var caseIDPattern = regexp.MustCompile(`^TC\d{4,}$`)

// Step is a single BDD step with its optional argument.
type Step struct {
	Text string `json:"step"`
	Arg  string `json:"arg,omitempty"`
}

// Query returns the step phrased for similarity search, folding the
// argument in when one is present.
func (s Step) Query() string {
	if s.Arg == "" {
		return s.Text
	}
	return s.Text + " with " + s.Arg
}

// Steps is the ordered list of BDD steps for a test case. Order is
// significant; each step carries its argument so the two never drift apart.
type Steps []Step

// Value implements the driver.Valuer interface for database storage.
func (s Steps) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (s *Steps) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Steps: not a byte slice")
	}

	return json.Unmarshal(bytes, s)
}

// TestCase represents a BDD test case in the system.
type TestCase struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	CaseID       string    `json:"case_id" gorm:"type:varchar(20);not null;uniqueIndex:idx_test_cases_case_id"`
	ProjectID    uuid.UUID `json:"project_id" gorm:"type:char(36);not null;index:idx_test_cases_project_id"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description" gorm:"type:text"`
	Steps        Steps     `json:"steps" gorm:"type:json"`
	PrereqCaseID string    `json:"prereq_case_id,omitempty" gorm:"type:varchar(20);index:idx_test_cases_prereq"`
	CreatedBy    uuid.UUID `json:"created_by" gorm:"type:char(36);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (TestCase) TableName() string {
	return "test_cases"
}

// BeforeCreate hook to generate UUID before creating a new test case
func (tc *TestCase) BeforeCreate(tx *gorm.DB) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	return nil
}

// Validate checks if the test case has valid required fields.
func (tc *TestCase) Validate() error {
	if tc.Name == "" {
		return ErrInvalidTestCaseName
	}
	if tc.ProjectID == uuid.Nil {
		return ErrInvalidProjectID
	}
	if tc.CreatedBy == uuid.Nil {
		return ErrInvalidCreatedBy
	}
	if tc.CaseID != "" && !caseIDPattern.MatchString(tc.CaseID) {
		return ErrInvalidCaseID
	}
	if tc.PrereqCaseID != "" && !caseIDPattern.MatchString(tc.PrereqCaseID) {
		return fmt.Errorf("%w: prereq %q", ErrInvalidCaseID, tc.PrereqCaseID)
	}
	for i, step := range tc.Steps {
		if step.Text == "" {
			return fmt.Errorf("%w: step %d has no text", ErrInvalidSteps, i)
		}
	}
	return nil
}

// FormatCaseID renders a sequence number as a human-readable case ID.
func FormatCaseID(seq int) string {
	return fmt.Sprintf("TC%04d", seq)
}
