package execlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
	LevelAction  Level = "ACTION"
)

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelSuccess, LevelAction:
		return true
	default:
		return false
	}
}

// Category represents the pipeline phase a log entry belongs to.
type Category string

const (
	CategoryInit       Category = "INIT"
	CategoryPlan       Category = "PLAN"
	CategorySearch     Category = "SEARCH"
	CategoryGeneration Category = "GENERATION"
	CategoryExecution  Category = "EXECUTION"
	CategoryHealing    Category = "HEALING"
	CategoryStorage    Category = "STORAGE"
	CategoryCleanup    Category = "CLEANUP"
)

// IsValid checks if the category is valid.
func (c Category) IsValid() bool {
	switch c {
	case CategoryInit, CategoryPlan, CategorySearch, CategoryGeneration,
		CategoryExecution, CategoryHealing, CategoryStorage, CategoryCleanup:
		return true
	default:
		return false
	}
}

// Entry is a single record in an execution log trail.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Duration  time.Duration          `json:"duration_ms,omitempty"`
}

// Summary aggregates an execution log trail.
type Summary struct {
	TestCaseID   string `json:"test_case_id"`
	TotalEntries int    `json:"total_entries"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	Status       string `json:"status"`
}

// Recorder accumulates the log trail for a single execution session.
// Entries are append-only and ordered by insertion. A recorder is owned
// by one session goroutine and is not safe for concurrent writers.
type Recorder struct {
	testCaseID string
	started    time.Time
	entries    []Entry
}

// NewRecorder creates a recorder bound to a test case ID.
func NewRecorder(testCaseID string) *Recorder {
	return &Recorder{
		testCaseID: testCaseID,
		started:    time.Now(),
		entries:    make([]Entry, 0, 32),
	}
}

// TestCaseID returns the test case ID the recorder is bound to.
func (r *Recorder) TestCaseID() string {
	return r.testCaseID
}

// Append adds an entry with the given level and category.
func (r *Recorder) Append(level Level, category Category, message string, details map[string]interface{}) {
	r.entries = append(r.entries, Entry{
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Message:   message,
		Details:   details,
	})
}

// AppendTimed adds an entry carrying the duration of the phase it closes.
func (r *Recorder) AppendTimed(level Level, category Category, message string, d time.Duration) {
	r.entries = append(r.entries, Entry{
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Message:   message,
		Duration:  d,
	})
}

// Debug appends a DEBUG entry.
func (r *Recorder) Debug(category Category, message string) {
	r.Append(LevelDebug, category, message, nil)
}

// Info appends an INFO entry.
func (r *Recorder) Info(category Category, message string) {
	r.Append(LevelInfo, category, message, nil)
}

// Warning appends a WARNING entry.
func (r *Recorder) Warning(category Category, message string) {
	r.Append(LevelWarning, category, message, nil)
}

// Error appends an ERROR entry.
func (r *Recorder) Error(category Category, message string) {
	r.Append(LevelError, category, message, nil)
}

// Success appends a SUCCESS entry.
func (r *Recorder) Success(category Category, message string) {
	r.Append(LevelSuccess, category, message, nil)
}

// Action appends an ACTION entry for caller-driven decisions.
func (r *Recorder) Action(category Category, message string) {
	r.Append(LevelAction, category, message, nil)
}

// Entries returns a copy of the recorded entries in insertion order.
func (r *Recorder) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Readable renders the trail as line-oriented human-readable text.
func (r *Recorder) Readable() string {
	var b strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&b, "[%s] [%s] [%s] %s\n",
			e.Timestamp.Format("15:04:05.000"), e.Level, e.Category, e.Message)
	}
	return b.String()
}

// JSON renders the trail as a JSON array of entries.
func (r *Recorder) JSON() ([]byte, error) {
	return json.Marshal(r.entries)
}

// Summary derives the aggregate view of the trail. The status is FAILED
// when any ERROR entry was recorded, SUCCESS otherwise.
func (r *Recorder) Summary() Summary {
	s := Summary{
		TestCaseID:   r.testCaseID,
		TotalEntries: len(r.entries),
		ElapsedMS:    time.Since(r.started).Milliseconds(),
	}
	for _, e := range r.entries {
		switch e.Level {
		case LevelSuccess:
			s.SuccessCount++
		case LevelError:
			s.ErrorCount++
		}
	}
	if s.ErrorCount > 0 {
		s.Status = "FAILED"
	} else {
		s.Status = "SUCCESS"
	}
	return s
}
