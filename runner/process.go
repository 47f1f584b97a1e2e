package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/flux-qa/flux-backend/logger"
)

const defaultTimeout = 5 * time.Minute

// pipeDrainGrace bounds how long the output scanner may keep reading
// after the run deadline. A process that escapes the script's process
// group can hold the write end of the pipe open past the group kill;
// closing the read end unblocks the scanner regardless.
const pipeDrainGrace = 2 * time.Second

// maxLineSize bounds a single output line; generated scripts occasionally
// dump DOM snapshots on one line.
const maxLineSize = 1024 * 1024

// Option configures a ProcessRunner.
type Option func(*ProcessRunner)

// WithArgs sets extra interpreter arguments placed before the script path.
func WithArgs(args ...string) Option {
	return func(r *ProcessRunner) {
		r.args = args
	}
}

// WithTempDir sets the directory scripts are materialized in.
func WithTempDir(dir string) Option {
	return func(r *ProcessRunner) {
		r.tempDir = dir
	}
}

// WithScriptSuffix sets the temp file suffix, e.g. ".py".
func WithScriptSuffix(suffix string) Option {
	return func(r *ProcessRunner) {
		r.suffix = suffix
	}
}

// ProcessRunner executes scripts in an interpreter subprocess. The script
// is written to a temp file which is removed on every exit path; stdout
// and stderr are combined and streamed line by line.
type ProcessRunner struct {
	interpreter string
	args        []string
	timeout     time.Duration
	tempDir     string
	suffix      string
	logger      logger.Logger
}

// NewProcessRunner creates a runner for the given interpreter binary.
func NewProcessRunner(interpreter string, timeout time.Duration, log logger.Logger, opts ...Option) *ProcessRunner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &ProcessRunner{
		interpreter: interpreter,
		timeout:     timeout,
		tempDir:     os.TempDir(),
		suffix:      ".py",
		logger:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run materializes the script and starts the interpreter subprocess.
// It returns once the subprocess is running; output is streamed through
// the returned execution.
func (r *ProcessRunner) Run(ctx context.Context, script string) (*Execution, error) {
	if strings.TrimSpace(script) == "" {
		return nil, ErrScriptEmpty
	}

	f, err := os.CreateTemp(r.tempDir, "flux-script-*"+r.suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to create script temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write script temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close script temp file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)

	args := append(append([]string{}, r.args...), path)
	cmd := exec.CommandContext(runCtx, r.interpreter, args...)

	// Scripts routinely leave children behind (browsers, drivers). The
	// interpreter gets its own process group so the deadline kill reaches
	// the whole tree, not just the direct child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if err == syscall.ESRCH {
			return os.ErrProcessDone
		}
		return err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		cancel()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	started := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		pr.Close()
		pw.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	// Child holds its own copy of the write end.
	pw.Close()

	r.logger.Info(ctx, "script subprocess started", map[string]interface{}{
		"interpreter": r.interpreter,
		"pid":         cmd.Process.Pid,
		"timeout":     r.timeout.String(),
	})

	e := &Execution{
		lines: make(chan string),
		done:  make(chan struct{}),
	}

	// Failsafe: once the deadline fires, give the scanner a short grace
	// to reach EOF, then force-close the read end so the run can never
	// outlive its timeout waiting on a leaked pipe writer.
	go func() {
		select {
		case <-e.done:
		case <-runCtx.Done():
			timer := time.NewTimer(pipeDrainGrace)
			defer timer.Stop()
			select {
			case <-e.done:
			case <-timer.C:
				pr.Close()
			}
		}
	}()

	go func() {
		defer close(e.done)
		defer os.Remove(path)
		defer cancel()
		defer pr.Close()

		var output strings.Builder
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			output.WriteString(line)
			output.WriteByte('\n')
			if strings.TrimSpace(line) != "" {
				e.lines <- line
			}
		}
		close(e.lines)

		waitErr := cmd.Wait()
		outcome := &Outcome{
			Output:   output.String(),
			Duration: time.Since(started),
		}

		switch {
		case runCtx.Err() == context.DeadlineExceeded:
			outcome.Status = StatusTimeout
			outcome.ExitCode = -1
		case waitErr != nil:
			outcome.Status = StatusFailed
			outcome.ExitCode = cmd.ProcessState.ExitCode()
		default:
			outcome.Status = StatusSuccess
			outcome.ExitCode = 0
		}

		r.logger.Info(context.Background(), "script subprocess finished", map[string]interface{}{
			"status":    string(outcome.Status),
			"exit_code": outcome.ExitCode,
			"duration":  outcome.Duration.String(),
		})

		e.outcome = outcome
	}()

	return e, nil
}
