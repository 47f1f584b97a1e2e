package runner

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrScriptEmpty is returned when an empty script is submitted for execution.
	ErrScriptEmpty = errors.New("script content is empty")

	// ErrSpawnFailed is returned when the interpreter subprocess could not be started.
	ErrSpawnFailed = errors.New("failed to spawn interpreter subprocess")
)

// Status is the terminal status of a script run.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusTimeout Status = "TIMEOUT"
)

// Outcome is the final result of a script run. A non-zero exit code is a
// normal negative outcome, not an error.
type Outcome struct {
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration_ms"`
}

// Execution is a script run in flight. Lines delivers output lines as the
// subprocess produces them; the channel is closed when the run ends. Wait
// blocks until the run ends and returns the outcome.
type Execution struct {
	lines   chan string
	done    chan struct{}
	outcome *Outcome
	err     error
}

// Lines returns the live output line channel.
func (e *Execution) Lines() <-chan string {
	return e.lines
}

// Wait blocks until the run completes and returns its outcome.
func (e *Execution) Wait() (*Outcome, error) {
	<-e.done
	return e.outcome, e.err
}

// NewStaticExecution returns an execution that replays pre-recorded lines
// and a fixed outcome. Used for dry runs and as a test double.
func NewStaticExecution(lines []string, outcome *Outcome) *Execution {
	e := &Execution{
		lines: make(chan string, len(lines)),
		done:  make(chan struct{}),
	}
	for _, line := range lines {
		e.lines <- line
	}
	close(e.lines)
	e.outcome = outcome
	close(e.done)
	return e
}

// Runner executes a script in isolation and streams its output.
type Runner interface {
	Run(ctx context.Context, script string) (*Execution, error)
}
