package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-qa/flux-backend/execution"
	"github.com/flux-qa/flux-backend/healing"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
)

func TestRun_SuccessPath(t *testing.T) {
	env := newTestEnv()
	conn := newFakeConn()

	err := env.orchestrator().Run(context.Background(), conn, env.request())
	require.NoError(t, err)

	assert.Equal(t, []Status{
		StatusBuildingPlan,
		StatusPlanReady,
		StatusSearchingMADL,
		StatusNoMADLMethods,
		StatusGenerating,
		StatusExecuting,
		StatusRunning,
		StatusRunning,
		StatusCompleted,
	}, conn.statuses())

	final := conn.lastEvent()
	assert.Equal(t, "SUCCESS", final.FinalStatus)
	assert.Equal(t, "EX0001", final.ExecutionID)
	require.NotNil(t, final.Summary)
	assert.Equal(t, "SUCCESS", final.Summary.Status)

	require.Len(t, env.records.records, 1)
	record := env.records.records[0]
	assert.Equal(t, execution.StatusSuccess, record.Status)
	assert.Equal(t, "step one\nstep two\n", record.Output)

	// Reuse storage runs once on success.
	require.Len(t, env.reuse.stored, 1)
	assert.Equal(t, "LoginPage.enter_credentials", env.reuse.stored[0].Key())

	assert.Zero(t, env.healer.calls)
}

func TestRun_StreamsOutputLines(t *testing.T) {
	env := newTestEnv()
	env.runner.lines = []string{"opening browser", "clicking login"}
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))
	assert.Equal(t, []string{"opening browser", "clicking login"}, conn.runningLogs())
}

func TestRun_MethodsFoundAndConfirmed(t *testing.T) {
	env := newTestEnv()
	env.reuse.methods = candidateMethods()
	conn := newFakeConn(
		Message{Action: ActionSkipEdit},
		Message{Action: ActionConfirmSelection, Selected: []string{"LoginPage.submit"}},
	)

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	assert.True(t, conn.has(StatusMethodsFound))
	assert.False(t, conn.has(StatusNoMADLMethods))

	require.NotNil(t, env.generator.gotReq)
	require.Len(t, env.generator.gotReq.Methods, 1)
	assert.Equal(t, "LoginPage.submit", env.generator.gotReq.Methods[0].Key())
}

func TestRun_SkipMethods(t *testing.T) {
	env := newTestEnv()
	env.reuse.methods = candidateMethods()
	conn := newFakeConn(
		Message{Action: ActionSkipEdit},
		Message{Action: ActionSkipMethods},
	)

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))
	require.NotNil(t, env.generator.gotReq)
	assert.Empty(t, env.generator.gotReq.Methods)
}

func TestRun_SelectionTimeoutKeepsAllCandidates(t *testing.T) {
	env := newTestEnv()
	env.reuse.methods = candidateMethods()
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))
	require.NotNil(t, env.generator.gotReq)
	assert.Len(t, env.generator.gotReq.Methods, 3)
}

func TestRun_PlanEditReplacesPlan(t *testing.T) {
	env := newTestEnv()
	edited := `{"pretestid_steps":{},"current_testid":"TC0001","current_bdd_steps":[{"step":"Open settings"}]}`
	conn := newFakeConn(Message{Action: ActionUpdateTestPlan, Plan: []byte(edited)})

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	require.NotNil(t, env.generator.gotReq)
	require.Len(t, env.generator.gotReq.Plan.Current, 1)
	assert.Equal(t, "Open settings", env.generator.gotReq.Plan.Current[0].Text)
}

func TestRun_InvalidPlanEditKeepsOriginal(t *testing.T) {
	env := newTestEnv()
	conn := newFakeConn(Message{Action: ActionUpdateTestPlan, Plan: []byte(`{"current_testid":""}`)})

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	require.NotNil(t, env.generator.gotReq)
	assert.Equal(t, "Enter credentials", env.generator.gotReq.Plan.Current[0].Text)
}

func TestRun_FailureHealsAndSucceeds(t *testing.T) {
	env := newTestEnv()
	env.runner.outcome = &runner.Outcome{
		Status:   runner.StatusFailed,
		ExitCode: 1,
		Output:   "Error: element not found\n",
	}
	env.healer.result = &healing.Result{
		Script: &scriptgen.Script{Content: "print('fixed')", Provenance: scriptgen.ProvenanceHealed},
		Outcome: &runner.Outcome{
			Status:   runner.StatusSuccess,
			Output:   "healed output\n",
			Duration: 90 * time.Millisecond,
		},
	}
	env.healer.emitLines = []string{"retrying login"}
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	assert.True(t, conn.has(StatusAutoHealing))
	assert.Contains(t, conn.runningLogs(), "retrying login")

	final := conn.lastEvent()
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, "SUCCESS", final.FinalStatus)

	// The healed run's output replaces the original's.
	require.Len(t, env.records.records, 1)
	record := env.records.records[0]
	assert.Equal(t, execution.StatusSuccess, record.Status)
	assert.Equal(t, "healed output\n", record.Output)

	// Reuse storage runs against the healed script.
	assert.Len(t, env.reuse.stored, 1)
	assert.Equal(t, 1, env.healer.calls)
}

func TestRun_HealerFailureKeepsOriginalFailure(t *testing.T) {
	env := newTestEnv()
	env.runner.outcome = &runner.Outcome{
		Status:   runner.StatusFailed,
		ExitCode: 2,
		Output:   "Exception: boom\n",
	}
	env.healer.err = healing.ErrHealFailed
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	final := conn.lastEvent()
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, "FAILED", final.FinalStatus)

	require.Len(t, env.records.records, 1)
	record := env.records.records[0]
	assert.Equal(t, execution.StatusFailed, record.Status)
	assert.Equal(t, "Exception: boom\n", record.Output)
	assert.Contains(t, record.Message, "original failure")
	assert.Contains(t, record.Message, "exit code 2")

	assert.Empty(t, env.reuse.stored)
	assert.Equal(t, 1, env.healer.calls)
}

func TestRun_HealedScriptFailsTerminally(t *testing.T) {
	env := newTestEnv()
	env.runner.outcome = &runner.Outcome{
		Status:   runner.StatusFailed,
		ExitCode: 1,
		Output:   "Error: first failure\n",
	}
	env.healer.result = &healing.Result{
		Script:  &scriptgen.Script{Content: "print('still broken')", Provenance: scriptgen.ProvenanceHealed},
		Outcome: &runner.Outcome{Status: runner.StatusFailed, ExitCode: 1, Output: "Error: second failure\n"},
	}
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	// Exactly one heal cycle, no second retry.
	assert.Equal(t, 1, env.healer.calls)

	final := conn.lastEvent()
	assert.Equal(t, "FAILED", final.FinalStatus)

	require.Len(t, env.records.records, 1)
	assert.Equal(t, "Error: second failure\n", env.records.records[0].Output)
	assert.Empty(t, env.reuse.stored)
}

func TestRun_TimeoutPersistsFailedStatus(t *testing.T) {
	env := newTestEnv()
	env.runner.outcome = &runner.Outcome{Status: runner.StatusTimeout, ExitCode: -1, Output: "partial\n"}
	env.healer.result = &healing.Result{
		Script:  &scriptgen.Script{Content: "print('retry')", Provenance: scriptgen.ProvenanceHealed},
		Outcome: &runner.Outcome{Status: runner.StatusTimeout, ExitCode: -1, Output: "partial again\n"},
	}
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))

	// The persisted status vocabulary is SUCCESS/FAILED only; the
	// message keeps the timeout distinction.
	require.Len(t, env.records.records, 1)
	assert.Equal(t, execution.StatusFailed, env.records.records[0].Status)
	assert.Equal(t, execution.MessageTimedOut, env.records.records[0].Message)
	assert.Equal(t, "FAILED", conn.lastEvent().FinalStatus)
}

func TestRun_UnauthorizedShortCircuits(t *testing.T) {
	env := newTestEnv()
	env.authorizer.err = errors.New("not a project member")
	conn := newFakeConn()

	err := env.orchestrator().Run(context.Background(), conn, env.request())
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, []Status{StatusFailed}, conn.statuses())
	assert.Nil(t, env.generator.gotReq)
	assert.Empty(t, env.records.records)
	assert.Zero(t, env.runner.calls)
}

func TestRun_UnknownTestCase(t *testing.T) {
	env := newTestEnv()
	conn := newFakeConn()

	req := env.request()
	req.CaseID = "TC9999"
	err := env.orchestrator().Run(context.Background(), conn, req)
	assert.ErrorIs(t, err, ErrTestCaseNotFound)
	assert.Equal(t, []Status{StatusFailed}, conn.statuses())
}

func TestRun_MissingCaseID(t *testing.T) {
	env := newTestEnv()
	conn := newFakeConn()

	err := env.orchestrator().Run(context.Background(), conn, &Request{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_GenerationFailureIsTerminal(t *testing.T) {
	env := newTestEnv()
	env.generator.err = errors.New("model unavailable")
	conn := newFakeConn()

	err := env.orchestrator().Run(context.Background(), conn, env.request())
	require.Error(t, err)

	assert.Equal(t, StatusFailed, conn.lastEvent().Status)
	assert.Contains(t, conn.lastEvent().Error, "model unavailable")
	assert.Empty(t, env.records.records)
	assert.Zero(t, env.runner.calls)
}

func TestRun_PlanBuildFailureIsTerminal(t *testing.T) {
	env := newTestEnv()
	env.plans.err = errors.New("store down")
	conn := newFakeConn()

	err := env.orchestrator().Run(context.Background(), conn, env.request())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, conn.lastEvent().Status)
	assert.Zero(t, env.runner.calls)
}

func TestRun_ExtractionFailureDoesNotFailSession(t *testing.T) {
	env := newTestEnv()
	env.extractor.err = errors.New("no json in completion")
	conn := newFakeConn()

	require.NoError(t, env.orchestrator().Run(context.Background(), conn, env.request()))
	assert.Equal(t, "SUCCESS", conn.lastEvent().FinalStatus)
	assert.Empty(t, env.reuse.stored)
}

func TestRun_DisconnectedCallerStillPersists(t *testing.T) {
	env := newTestEnv()
	conn := newBrokenConn()

	err := env.orchestrator().Run(context.Background(), conn, env.request())
	require.NoError(t, err)

	// The record is persisted even though no event could be delivered.
	assert.Len(t, env.records.records, 1)
}

func TestReadPump_ReleasedWhenSessionStops(t *testing.T) {
	done := make(chan struct{})
	ch := readPump(&floodConn{}, done)
	close(done)

	// With the session gone, the pump must close its channel even
	// though the caller keeps sending; otherwise it parks forever on a
	// full channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("read pump still running after the session finished")
		}
	}
}

func TestFilterByKey(t *testing.T) {
	methods := candidateMethods()

	selected := filterByKey(methods, []string{"HomePage.assert_logged_in", "LoginPage.enter_credentials"})
	require.Len(t, selected, 2)
	assert.Equal(t, "LoginPage.enter_credentials", selected[0].Key())
	assert.Equal(t, "HomePage.assert_logged_in", selected[1].Key())

	assert.Empty(t, filterByKey(methods, []string{"Unknown.key"}))
}
