package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flux-qa/flux-backend/logger"
)

func newShellRunner(t *testing.T, timeout time.Duration) (*ProcessRunner, string) {
	dir := t.TempDir()
	r := NewProcessRunner("sh", timeout, logger.NewTestLogger(),
		WithTempDir(dir), WithScriptSuffix(".sh"))
	return r, dir
}

func drain(t *testing.T, e *Execution) ([]string, *Outcome) {
	t.Helper()
	var lines []string
	for line := range e.Lines() {
		lines = append(lines, line)
	}
	outcome, err := e.Wait()
	assert.NoError(t, err)
	return lines, outcome
}

func assertNoLeftoverScripts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), "flux-script",
			"temp script not cleaned up: %s", filepath.Join(dir, entry.Name()))
	}
}

func TestProcessRunner_Success(t *testing.T) {
	r, dir := newShellRunner(t, 10*time.Second)

	e, err := r.Run(context.Background(), "echo step one\necho step two\nexit 0\n")
	assert.NoError(t, err)

	lines, outcome := drain(t, e)
	assert.Equal(t, []string{"step one", "step two"}, lines)
	assert.Equal(t, StatusSuccess, outcome.Status)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Output, "step one")
	assertNoLeftoverScripts(t, dir)
}

func TestProcessRunner_NonZeroExitIsFailedNotError(t *testing.T) {
	r, dir := newShellRunner(t, 10*time.Second)

	e, err := r.Run(context.Background(), "echo about to fail\nexit 3\n")
	assert.NoError(t, err)

	lines, outcome := drain(t, e)
	assert.Equal(t, []string{"about to fail"}, lines)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, 3, outcome.ExitCode)
	assertNoLeftoverScripts(t, dir)
}

func TestProcessRunner_Timeout(t *testing.T) {
	r, dir := newShellRunner(t, 200*time.Millisecond)

	e, err := r.Run(context.Background(), "echo before sleep\nsleep 30\necho never\n")
	assert.NoError(t, err)

	lines, outcome := drain(t, e)
	assert.Equal(t, []string{"before sleep"}, lines)
	assert.Equal(t, StatusTimeout, outcome.Status)
	assert.Equal(t, -1, outcome.ExitCode)
	assertNoLeftoverScripts(t, dir)
}

func TestProcessRunner_TimeoutKillsBackgroundChildren(t *testing.T) {
	r, dir := newShellRunner(t, 300*time.Millisecond)

	// The background sleep inherits the output pipe; without the group
	// kill it would hold the pipe open long past the deadline.
	e, err := r.Run(context.Background(), "echo started\nsleep 30 &\nsleep 5\n")
	assert.NoError(t, err)

	done := make(chan struct{})
	var lines []string
	var outcome *Outcome
	go func() {
		defer close(done)
		lines, outcome = drain(t, e)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome after the deadline: a background child kept the run alive")
	}

	assert.Equal(t, []string{"started"}, lines)
	assert.Equal(t, StatusTimeout, outcome.Status)
	assert.Equal(t, -1, outcome.ExitCode)
	assertNoLeftoverScripts(t, dir)
}

func TestProcessRunner_BlankLinesNotStreamed(t *testing.T) {
	r, _ := newShellRunner(t, 10*time.Second)

	e, err := r.Run(context.Background(), "echo first\necho ''\necho last\n")
	assert.NoError(t, err)

	lines, outcome := drain(t, e)
	assert.Equal(t, []string{"first", "last"}, lines)
	// Blank lines still belong to the captured output.
	assert.Contains(t, outcome.Output, "first\n\nlast\n")
}

func TestProcessRunner_StderrCombined(t *testing.T) {
	r, _ := newShellRunner(t, 10*time.Second)

	e, err := r.Run(context.Background(), "echo to stdout\necho to stderr 1>&2\n")
	assert.NoError(t, err)

	lines, outcome := drain(t, e)
	assert.Len(t, lines, 2)
	assert.Contains(t, outcome.Output, "to stdout")
	assert.Contains(t, outcome.Output, "to stderr")
}

func TestProcessRunner_EmptyScript(t *testing.T) {
	r, _ := newShellRunner(t, 10*time.Second)

	_, err := r.Run(context.Background(), "   \n\t\n")
	assert.ErrorIs(t, err, ErrScriptEmpty)
}

func TestProcessRunner_SpawnFailure(t *testing.T) {
	dir := t.TempDir()
	r := NewProcessRunner("/nonexistent/interpreter", time.Second,
		logger.NewTestLogger(), WithTempDir(dir))

	_, err := r.Run(context.Background(), "echo hi\n")
	assert.ErrorIs(t, err, ErrSpawnFailed)
	assertNoLeftoverScripts(t, dir)
}

func TestNewStaticExecution(t *testing.T) {
	e := NewStaticExecution([]string{"a", "b"}, &Outcome{Status: StatusSuccess})

	lines, outcome := drain(t, e)
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, StatusSuccess, outcome.Status)
}
