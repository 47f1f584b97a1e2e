package scriptgen

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrScriptNotFound is returned when a stored script is not found.
	ErrScriptNotFound = errors.New("script not found")

	// ErrEmptyScript is returned when generation produced no usable code.
	ErrEmptyScript = errors.New("generated script is empty")

	// ErrContentEmpty is returned when a code block extraction leaves nothing.
	ErrContentEmpty = errors.New("content is empty after extraction")
)

// Provenance records how a script came to be.
type Provenance string

const (
	// ProvenanceOriginal marks a script produced by first-pass generation.
	ProvenanceOriginal Provenance = "ORIGINAL"

	// ProvenanceHealed marks a script produced by the healing cycle.
	ProvenanceHealed Provenance = "HEALED"
)

// IsValid checks if the provenance is valid.
func (p Provenance) IsValid() bool {
	return p == ProvenanceOriginal || p == ProvenanceHealed
}

// Script is a generated script flowing through the execution pipeline.
type Script struct {
	Content    string     `json:"content"`
	Provenance Provenance `json:"provenance"`
}

// StoredScript is the persisted form of a generated script.
type StoredScript struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	CaseID     string     `json:"case_id" gorm:"type:varchar(20);not null;index:idx_scripts_case_id"`
	ScriptType string     `json:"script_type" gorm:"type:varchar(20);not null"`
	Content    string     `json:"content" gorm:"type:mediumtext;not null"`
	Provenance Provenance `json:"provenance" gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (StoredScript) TableName() string {
	return "test_scripts"
}

// BeforeCreate hook to generate UUID before creating a new stored script.
func (s *StoredScript) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Validate checks if the stored script has valid required fields.
func (s *StoredScript) Validate() error {
	if s.CaseID == "" {
		return errors.New("case_id is required")
	}
	if s.Content == "" {
		return ErrEmptyScript
	}
	if !s.Provenance.IsValid() {
		return errors.New("invalid provenance")
	}
	return nil
}
