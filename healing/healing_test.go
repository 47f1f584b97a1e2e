package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/testcase"
	"github.com/flux-qa/flux-backend/testplan"
)

type fakeHealer struct {
	script      *scriptgen.Script
	err         error
	failureLogs string
}

func (f *fakeHealer) Heal(ctx context.Context, plan *testplan.Plan, script *scriptgen.Script, failureLogs string) (*scriptgen.Script, error) {
	f.failureLogs = failureLogs
	return f.script, f.err
}

type fakeRunner struct {
	lines   []string
	outcome *runner.Outcome
	err     error
	ran     []string
}

func (f *fakeRunner) Run(ctx context.Context, script string) (*runner.Execution, error) {
	f.ran = append(f.ran, script)
	if f.err != nil {
		return nil, f.err
	}
	return runner.NewStaticExecution(f.lines, f.outcome), nil
}

func healPlan() *testplan.Plan {
	return &testplan.Plan{
		CurrentID: "TC0001",
		Current:   testcase.Steps{{Text: "When the page loads"}},
	}
}

func failedOutcome(output string) *runner.Outcome {
	return &runner.Outcome{
		Status:   runner.StatusFailed,
		ExitCode: 1,
		Output:   output,
	}
}

func TestController_HealSuccess(t *testing.T) {
	healer := &fakeHealer{
		script: &scriptgen.Script{Content: "fixed = True", Provenance: scriptgen.ProvenanceHealed},
	}
	r := &fakeRunner{
		lines:   []string{"step 1 ok", "step 2 ok"},
		outcome: &runner.Outcome{Status: runner.StatusSuccess, Output: "all good"},
	}
	c := NewController(healer, r, logger.NewTestLogger())

	var streamed []string
	failed := &scriptgen.Script{Content: "broken", Provenance: scriptgen.ProvenanceOriginal}
	result, err := c.Heal(context.Background(), healPlan(), failed,
		failedOutcome("Error: element not found"),
		func(line string) { streamed = append(streamed, line) })

	assert.NoError(t, err)
	assert.Equal(t, scriptgen.ProvenanceHealed, result.Script.Provenance)
	assert.Equal(t, runner.StatusSuccess, result.Outcome.Status)
	assert.Equal(t, []string{"step 1 ok", "step 2 ok"}, streamed)
	assert.Equal(t, []string{"fixed = True"}, r.ran)
	assert.Contains(t, healer.failureLogs, "Error: element not found")
}

func TestController_HealedRunCanStillFail(t *testing.T) {
	healer := &fakeHealer{
		script: &scriptgen.Script{Content: "still broken", Provenance: scriptgen.ProvenanceHealed},
	}
	r := &fakeRunner{
		outcome: &runner.Outcome{Status: runner.StatusFailed, ExitCode: 2, Output: "nope"},
	}
	c := NewController(healer, r, logger.NewTestLogger())

	failed := &scriptgen.Script{Content: "broken", Provenance: scriptgen.ProvenanceOriginal}
	result, err := c.Heal(context.Background(), healPlan(), failed, failedOutcome("Error: x"), nil)

	// A failed healed run is a completed cycle, not a healing error.
	assert.NoError(t, err)
	assert.Equal(t, runner.StatusFailed, result.Outcome.Status)
}

func TestController_HealerError(t *testing.T) {
	c := NewController(&fakeHealer{err: errors.New("llm down")}, &fakeRunner{}, logger.NewTestLogger())

	failed := &scriptgen.Script{Content: "broken", Provenance: scriptgen.ProvenanceOriginal}
	_, err := c.Heal(context.Background(), healPlan(), failed, failedOutcome("Error: x"), nil)
	assert.ErrorIs(t, err, ErrHealFailed)
}

func TestController_HealerEmptyScript(t *testing.T) {
	c := NewController(&fakeHealer{script: &scriptgen.Script{Content: "  "}}, &fakeRunner{}, logger.NewTestLogger())

	failed := &scriptgen.Script{Content: "broken", Provenance: scriptgen.ProvenanceOriginal}
	_, err := c.Heal(context.Background(), healPlan(), failed, failedOutcome("Error: x"), nil)
	assert.ErrorIs(t, err, ErrHealFailed)
}

func TestController_RunnerSpawnError(t *testing.T) {
	healer := &fakeHealer{script: &scriptgen.Script{Content: "ok", Provenance: scriptgen.ProvenanceHealed}}
	c := NewController(healer, &fakeRunner{err: errors.New("no interpreter")}, logger.NewTestLogger())

	failed := &scriptgen.Script{Content: "broken", Provenance: scriptgen.ProvenanceOriginal}
	_, err := c.Heal(context.Background(), healPlan(), failed, failedOutcome("Error: x"), nil)
	assert.ErrorIs(t, err, ErrHealFailed)
}

func TestFailureDigest(t *testing.T) {
	t.Run("matches case-insensitively", func(t *testing.T) {
		output := "step ok\nERROR: boom\nTraceback follows\nValueError Exception raised\nall FAILED here"
		digest := FailureDigest(output)
		assert.Contains(t, digest, "ERROR: boom")
		assert.Contains(t, digest, "ValueError Exception raised")
		assert.Contains(t, digest, "all FAILED here")
		assert.NotContains(t, digest, "step ok")
	})

	t.Run("caps at ten lines", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 25; i++ {
			fmt.Fprintf(&b, "error line %d\n", i)
		}
		digest := FailureDigest(b.String())
		assert.Len(t, strings.Split(digest, "\n"), 10)
		assert.Contains(t, digest, "error line 0")
		assert.Contains(t, digest, "error line 9")
		assert.NotContains(t, digest, "error line 10")
	})

	t.Run("falls back to output tail", func(t *testing.T) {
		digest := FailureDigest("line one\nline two\nline three")
		assert.Contains(t, digest, "line one")
		assert.Contains(t, digest, "line three")
	})
}
