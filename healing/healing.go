package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/testplan"
)

var (
	// ErrHealFailed is returned when the healer could not produce a
	// usable corrected script. The caller keeps the original failure.
	ErrHealFailed = errors.New("healing attempt failed")
)

// maxHeadlineLines caps the diagnostic lines pulled from the failure output.
const maxHeadlineLines = 10

// Healer produces a corrected script from a failed one.
type Healer interface {
	Heal(ctx context.Context, plan *testplan.Plan, script *scriptgen.Script, failureLogs string) (*scriptgen.Script, error)
}

// Result is the product of a completed heal-and-retry cycle.
type Result struct {
	Script  *scriptgen.Script
	Outcome *runner.Outcome
}

// Controller drives the single heal-and-retry cycle: build diagnostic
// context from the failed run, ask the healer for a corrected script,
// and execute the correction exactly once.
type Controller struct {
	healer Healer
	runner runner.Runner
	logger logger.Logger
}

// NewController creates a healing controller.
func NewController(healer Healer, r runner.Runner, log logger.Logger) *Controller {
	return &Controller{
		healer: healer,
		runner: r,
		logger: log,
	}
}

// Heal runs one heal-and-retry cycle for a failed script. Output lines
// from the healed run are delivered through emit as they are produced.
// Healer failures and unusable corrections return ErrHealFailed; the
// caller's original failure context stays intact.
func (c *Controller) Heal(ctx context.Context, plan *testplan.Plan, failed *scriptgen.Script, outcome *runner.Outcome, emit func(line string)) (*Result, error) {
	failureLogs := FailureDigest(outcome.Output)

	c.logger.Info(ctx, "healing cycle started", map[string]interface{}{
		"case_id":        plan.CurrentID,
		"failure_status": string(outcome.Status),
		"exit_code":      outcome.ExitCode,
	})

	healed, err := c.healer.Heal(ctx, plan, failed, failureLogs)
	if err != nil {
		c.logger.Warn(ctx, "healer could not produce a correction", map[string]interface{}{
			"error":   err.Error(),
			"case_id": plan.CurrentID,
		})
		return nil, fmt.Errorf("%w: %v", ErrHealFailed, err)
	}
	if healed == nil || strings.TrimSpace(healed.Content) == "" {
		return nil, fmt.Errorf("%w: healer returned an empty script", ErrHealFailed)
	}

	execution, err := c.runner.Run(ctx, healed.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHealFailed, err)
	}

	for line := range execution.Lines() {
		if emit != nil {
			emit(line)
		}
	}

	healedOutcome, err := execution.Wait()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHealFailed, err)
	}

	c.logger.Info(ctx, "healing cycle finished", map[string]interface{}{
		"case_id": plan.CurrentID,
		"status":  string(healedOutcome.Status),
	})

	return &Result{
		Script:  healed,
		Outcome: healedOutcome,
	}, nil
}

// FailureDigest extracts the diagnostic headline from a failed run's
// output: up to 10 lines mentioning an error, failure, or exception,
// matched case-insensitively. When nothing matches, the tail of the
// output stands in so the healer always has something to work with.
func FailureDigest(output string) string {
	lines := strings.Split(output, "\n")

	var headlines []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "failed") ||
			strings.Contains(lower, "exception") {
			headlines = append(headlines, line)
			if len(headlines) == maxHeadlineLines {
				break
			}
		}
	}

	if len(headlines) == 0 {
		start := len(lines) - maxHeadlineLines
		if start < 0 {
			start = 0
		}
		for _, line := range lines[start:] {
			if strings.TrimSpace(line) != "" {
				headlines = append(headlines, line)
			}
		}
	}

	return strings.Join(headlines, "\n")
}
