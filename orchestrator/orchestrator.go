package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flux-qa/flux-backend/artifact"
	"github.com/flux-qa/flux-backend/execlog"
	"github.com/flux-qa/flux-backend/execution"
	"github.com/flux-qa/flux-backend/healing"
	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/testcase"
	"github.com/flux-qa/flux-backend/testplan"
)

var (
	// ErrUnauthorized is returned when the caller has no access to the
	// test case's project.
	ErrUnauthorized = errors.New("not authorized to execute this test case")

	// ErrTestCaseNotFound is returned when the requested case does not exist.
	ErrTestCaseNotFound = errors.New("test case not found")

	// ErrInvalidInput is returned when the execution request is malformed.
	ErrInvalidInput = errors.New("invalid execution request")
)

const (
	// DefaultEditWait bounds the wait for a plan edit after PLAN_READY.
	DefaultEditWait = 30 * time.Second

	// DefaultSelectionWait bounds the wait for a method selection after
	// METHODS_FOUND.
	DefaultSelectionWait = 30 * time.Second

	// DefaultScriptType is used when the request does not name one.
	DefaultScriptType = "web"
)

// Authorizer gates execution on project membership.
type Authorizer interface {
	Authorize(ctx context.Context, userID, projectID uuid.UUID) error
}

// TestCaseSource resolves human-readable case IDs.
type TestCaseSource interface {
	GetByCaseID(ctx context.Context, caseID string) (*testcase.TestCase, error)
}

// PlanBuilder assembles the execution plan for a case.
type PlanBuilder interface {
	Build(ctx context.Context, caseID string) (*testplan.Plan, error)
}

// ReuseEngine searches and stores reusable methods. Both operations are
// advisory: search degrades to empty and store reports a boolean.
type ReuseEngine interface {
	Search(ctx context.Context, plan *testplan.Plan) []madl.ReusableMethod
	Store(ctx context.Context, method *madl.ReusableMethod) bool
}

// HealController drives the single heal-and-retry cycle.
type HealController interface {
	Heal(ctx context.Context, plan *testplan.Plan, failed *scriptgen.Script, outcome *runner.Outcome, emit func(line string)) (*healing.Result, error)
}

// MetadataExtractor derives reusable-method metadata from a successful run.
type MetadataExtractor interface {
	Extract(ctx context.Context, script string, plan *testplan.Plan, logTrail string) (*madl.ReusableMethod, error)
}

// RecordSink persists execution records.
type RecordSink interface {
	Create(ctx context.Context, record *execution.Record) error
}

// ScriptSink persists generated scripts.
type ScriptSink interface {
	Create(ctx context.Context, script *scriptgen.StoredScript) error
}

// Deps are the collaborators one orchestrator instance is wired with.
// Scripts, Artifacts, and Extractor are optional; the rest are required.
type Deps struct {
	Authorizer Authorizer
	TestCases  TestCaseSource
	Plans      PlanBuilder
	Reuse      ReuseEngine
	Generator  scriptgen.Generator
	Runner     runner.Runner
	Healer     HealController
	Extractor  MetadataExtractor
	Executions RecordSink
	Scripts    ScriptSink
	Artifacts  artifact.Store
	Logger     logger.Logger
}

// Config tunes the caller-interaction waits.
type Config struct {
	EditWait      time.Duration
	SelectionWait time.Duration
}

// Orchestrator sequences one execution session: plan assembly, reuse
// search, caller interaction, generation, execution, healing, and
// persistence. One instance serves many concurrent sessions; per-session
// state lives on the stack of Run.
type Orchestrator struct {
	deps Deps
	cfg  Config
}

// New creates an orchestrator. Zero wait values take the defaults.
func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.EditWait <= 0 {
		cfg.EditWait = DefaultEditWait
	}
	if cfg.SelectionWait <= 0 {
		cfg.SelectionWait = DefaultSelectionWait
	}
	return &Orchestrator{
		deps: deps,
		cfg:  cfg,
	}
}

// Request identifies what to execute and on whose behalf.
type Request struct {
	CaseID     string
	ScriptType string
	UserID     uuid.UUID
}

// Run drives one session over the connection until a terminal COMPLETED
// or FAILED event. The returned error mirrors the FAILED event for the
// caller's HTTP layer; a run that completes with a negative outcome is
// not an error.
func (o *Orchestrator) Run(ctx context.Context, conn Conn, req *Request) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		id:      uuid.New().String(),
		conn:    conn,
		inbound: readPump(conn, runCtx.Done()),
		logger:  o.deps.Logger,
		cancel:  cancel,
	}

	if req == nil || req.CaseID == "" {
		return s.fail(runCtx, fmt.Errorf("%w: case ID is required", ErrInvalidInput))
	}
	scriptType := req.ScriptType
	if scriptType == "" {
		scriptType = DefaultScriptType
	}

	tc, err := o.deps.TestCases.GetByCaseID(runCtx, req.CaseID)
	if err != nil {
		if errors.Is(err, testcase.ErrTestCaseNotFound) {
			return s.fail(runCtx, fmt.Errorf("%w: %s", ErrTestCaseNotFound, req.CaseID))
		}
		return s.fail(runCtx, fmt.Errorf("failed to load test case: %w", err))
	}

	if err := o.deps.Authorizer.Authorize(runCtx, req.UserID, tc.ProjectID); err != nil {
		return s.fail(runCtx, fmt.Errorf("%w: %v", ErrUnauthorized, err))
	}

	s.recorder = execlog.NewRecorder(req.CaseID)
	s.recorder.Info(execlog.CategoryInit, "execution session started")

	s.emit(&Event{Status: StatusBuildingPlan, Message: "building test plan"})
	s.recorder.Info(execlog.CategoryPlan, "building test plan")
	plan, err := o.deps.Plans.Build(runCtx, req.CaseID)
	if err != nil {
		return s.fail(runCtx, fmt.Errorf("failed to build test plan: %w", err))
	}

	s.emit(&Event{Status: StatusPlanReady, Plan: plan, Message: "plan ready for review"})
	plan = s.awaitPlanEdit(runCtx, plan, o.cfg.EditWait)

	s.emit(&Event{Status: StatusSearchingMADL, Message: "searching reusable methods"})
	s.recorder.Info(execlog.CategorySearch, "searching reusable methods")
	methods := o.deps.Reuse.Search(runCtx, plan)
	if len(methods) > 0 {
		s.recorder.Info(execlog.CategorySearch, fmt.Sprintf("%d candidate methods found", len(methods)))
		s.emit(&Event{Status: StatusMethodsFound, Methods: methods})
		methods = s.awaitSelection(runCtx, methods, o.cfg.SelectionWait)
	} else {
		s.recorder.Info(execlog.CategorySearch, "no reusable methods found")
		s.emit(&Event{Status: StatusNoMADLMethods, Message: "no reusable methods found"})
	}

	s.emit(&Event{Status: StatusGenerating, Message: "generating script"})
	s.recorder.Info(execlog.CategoryGeneration, "generating script")
	script, err := o.deps.Generator.Generate(runCtx, &scriptgen.Request{
		Plan:       plan,
		Methods:    methods,
		ScriptType: scriptType,
	})
	if err != nil {
		return s.fail(runCtx, fmt.Errorf("script generation failed: %w", err))
	}
	o.persistScript(runCtx, s, req.CaseID, scriptType, script)

	s.emit(&Event{Status: StatusExecuting, Message: "executing script"})
	s.recorder.Info(execlog.CategoryExecution, "executing script")
	exec, err := o.deps.Runner.Run(runCtx, script.Content)
	if err != nil {
		return s.fail(runCtx, fmt.Errorf("failed to start execution: %w", err))
	}
	for line := range exec.Lines() {
		s.emit(&Event{Status: StatusRunning, Log: line})
	}
	outcome, err := exec.Wait()
	if err != nil {
		return s.fail(runCtx, fmt.Errorf("execution failed: %w", err))
	}

	finalScript, finalOutcome := script, outcome
	var healErr error
	if outcome.Status == runner.StatusSuccess {
		s.recorder.Success(execlog.CategoryExecution, "script executed successfully")
	} else {
		// The original failure stays in the trail as a WARNING so the
		// summary status reflects the session outcome, not this attempt.
		s.recorder.Warning(execlog.CategoryExecution,
			fmt.Sprintf("script failed with status %s (exit %d)", outcome.Status, outcome.ExitCode))

		s.emit(&Event{Status: StatusAutoHealing, Message: "attempting automated heal"})
		s.recorder.Info(execlog.CategoryHealing, "healing cycle started")

		result, err := o.deps.Healer.Heal(runCtx, plan, script, outcome, func(line string) {
			s.emit(&Event{Status: StatusRunning, Log: line})
		})
		if err != nil {
			healErr = err
			s.recorder.Error(execlog.CategoryHealing, "healing failed: "+err.Error())
		} else {
			finalScript, finalOutcome = result.Script, result.Outcome
			o.persistScript(runCtx, s, req.CaseID, scriptType, result.Script)
			if result.Outcome.Status == runner.StatusSuccess {
				s.recorder.Success(execlog.CategoryHealing, "healed script executed successfully")
			} else {
				s.recorder.Error(execlog.CategoryHealing,
					fmt.Sprintf("healed script failed with status %s", result.Outcome.Status))
			}
		}
	}

	recordStatus := execution.StatusFailed
	if finalOutcome.Status == runner.StatusSuccess {
		recordStatus = execution.StatusSuccess
	}
	record := &execution.Record{
		CaseID:     req.CaseID,
		ProjectID:  tc.ProjectID,
		ScriptType: scriptType,
		Status:     recordStatus,
		Message:    recordMessage(finalScript, finalOutcome, outcome, healErr),
		Output:     finalOutcome.Output,
		DurationMS: finalOutcome.Duration.Milliseconds(),
		ExecutedBy: req.UserID,
	}

	if o.deps.Artifacts != nil {
		key := artifact.OutputKey(s.id)
		if err := artifact.SaveText(runCtx, o.deps.Artifacts, key, finalOutcome.Output); err != nil {
			s.recorder.Warning(execlog.CategoryStorage, "failed to save output artifact: "+err.Error())
		} else {
			record.ArtifactKey = key
		}
	}

	s.recorder.Info(execlog.CategoryStorage, "persisting execution record")
	if err := o.deps.Executions.Create(runCtx, record); err != nil {
		return s.fail(runCtx, fmt.Errorf("failed to persist execution record: %w", err))
	}

	if finalOutcome.Status == runner.StatusSuccess && o.deps.Extractor != nil {
		o.storeReusableMethod(runCtx, s, finalScript, plan)
	}

	s.recorder.Info(execlog.CategoryCleanup, "session complete")
	summary := s.recorder.Summary()

	finalStatus := string(runner.StatusFailed)
	if finalOutcome.Status == runner.StatusSuccess {
		finalStatus = string(runner.StatusSuccess)
	}

	s.emit(&Event{
		Status:      StatusCompleted,
		ExecutionID: record.ExecutionID,
		FinalStatus: finalStatus,
		Summary:     &summary,
	})

	o.deps.Logger.Info(runCtx, "execution session completed", map[string]interface{}{
		"case_id":      req.CaseID,
		"execution_id": record.ExecutionID,
		"final_status": finalStatus,
		"provenance":   string(finalScript.Provenance),
	})

	return nil
}

// persistScript saves a generated script when a script sink is wired.
// Failures are logged only; script history is advisory.
func (o *Orchestrator) persistScript(ctx context.Context, s *session, caseID, scriptType string, script *scriptgen.Script) {
	if o.deps.Scripts == nil {
		return
	}
	stored := &scriptgen.StoredScript{
		CaseID:     caseID,
		ScriptType: scriptType,
		Content:    script.Content,
		Provenance: script.Provenance,
	}
	if err := o.deps.Scripts.Create(ctx, stored); err != nil {
		s.recorder.Warning(execlog.CategoryStorage, "failed to persist script: "+err.Error())
	}
}

// storeReusableMethod extracts method metadata from the successful run
// and stores it to the reuse index. Best-effort on both steps.
func (o *Orchestrator) storeReusableMethod(ctx context.Context, s *session, script *scriptgen.Script, plan *testplan.Plan) {
	method, err := o.deps.Extractor.Extract(ctx, script.Content, plan, s.recorder.Readable())
	if err != nil {
		s.recorder.Warning(execlog.CategoryStorage, "method extraction failed: "+err.Error())
		return
	}
	if o.deps.Reuse.Store(ctx, method) {
		s.recorder.Info(execlog.CategoryStorage, "reusable method stored: "+method.Key())
	} else {
		s.recorder.Warning(execlog.CategoryStorage, "reusable method store failed: "+method.Key())
	}
}

// recordMessage renders the persisted record's human-readable message.
// When healing itself failed, the message references the original
// failure, which the healed record would otherwise hide.
func recordMessage(finalScript *scriptgen.Script, finalOutcome, originalOutcome *runner.Outcome, healErr error) string {
	if healErr != nil {
		return fmt.Sprintf("healing failed (%v); original failure: status %s, exit code %d",
			healErr, originalOutcome.Status, originalOutcome.ExitCode)
	}
	switch finalOutcome.Status {
	case runner.StatusSuccess:
		if finalScript.Provenance == scriptgen.ProvenanceHealed {
			return "script healed and executed successfully"
		}
		return "script executed successfully"
	case runner.StatusTimeout:
		return execution.MessageTimedOut
	default:
		return fmt.Sprintf("script failed with exit code %d", finalOutcome.ExitCode)
	}
}

// session is the per-connection state of one run.
type session struct {
	id           string
	conn         Conn
	inbound      <-chan Message
	recorder     *execlog.Recorder
	logger       logger.Logger
	cancel       context.CancelFunc
	disconnected bool
}

// emit writes one event to the caller. The first write failure marks the
// session disconnected and cancels its context so in-flight subprocesses
// are torn down; later emits become no-ops.
func (s *session) emit(ev *Event) {
	if s.disconnected {
		return
	}
	if err := s.conn.WriteJSON(ev); err != nil {
		s.disconnected = true
		s.cancel()
		s.logger.Warn(context.Background(), "caller disconnected mid-session", map[string]interface{}{
			"error":  err.Error(),
			"status": string(ev.Status),
		})
	}
}

// fail reports a terminal fault: logged, recorded, surfaced as a FAILED
// event, and returned to the caller.
func (s *session) fail(ctx context.Context, err error) error {
	if s.recorder != nil {
		s.recorder.Error(execlog.CategoryExecution, err.Error())
	}
	s.logger.Error(ctx, "execution session failed", map[string]interface{}{
		"error": err.Error(),
	})
	s.emit(&Event{Status: StatusFailed, Error: err.Error()})
	return err
}

// awaitPlanEdit waits for the caller to edit or accept the plan. A
// malformed edit keeps the original; so do skip_edit, continue, timeout,
// disconnect, and context cancellation.
func (s *session) awaitPlanEdit(ctx context.Context, plan *testplan.Plan, wait time.Duration) *testplan.Plan {
	if s.disconnected {
		return plan
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.inbound:
			if !ok {
				s.disconnected = true
				return plan
			}
			switch msg.Action {
			case ActionUpdateTestPlan:
				edited, err := testplan.Parse(msg.Plan)
				if err != nil {
					s.recorder.Warning(execlog.CategoryPlan, "ignoring invalid edited plan: "+err.Error())
					return plan
				}
				s.recorder.Action(execlog.CategoryPlan, "plan replaced by caller edit")
				return edited
			case ActionSkipEdit, ActionContinue:
				s.recorder.Action(execlog.CategoryPlan, "caller accepted the plan")
				return plan
			}
		case <-timer.C:
			s.recorder.Info(execlog.CategoryPlan, "no plan edit before deadline, using original")
			return plan
		case <-ctx.Done():
			return plan
		}
	}
}

// awaitSelection waits for the caller to pick a subset of the candidate
// methods. Timeout, disconnect, and continue keep the full set;
// skip_methods drops all of them.
func (s *session) awaitSelection(ctx context.Context, methods []madl.ReusableMethod, wait time.Duration) []madl.ReusableMethod {
	if s.disconnected {
		return methods
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.inbound:
			if !ok {
				s.disconnected = true
				return methods
			}
			switch msg.Action {
			case ActionConfirmSelection:
				if len(msg.Selected) == 0 {
					s.recorder.Action(execlog.CategorySearch, "caller confirmed all candidate methods")
					return methods
				}
				selected := filterByKey(methods, msg.Selected)
				s.recorder.Action(execlog.CategorySearch,
					fmt.Sprintf("caller selected %d of %d candidate methods", len(selected), len(methods)))
				return selected
			case ActionSkipMethods:
				s.recorder.Action(execlog.CategorySearch, "caller skipped reusable methods")
				return nil
			case ActionContinue:
				return methods
			}
		case <-timer.C:
			s.recorder.Info(execlog.CategorySearch, "no selection before deadline, using all candidates")
			return methods
		case <-ctx.Done():
			return methods
		}
	}
}

// filterByKey keeps the methods whose identity key appears in keys,
// preserving candidate order. Unknown keys are ignored.
func filterByKey(methods []madl.ReusableMethod, keys []string) []madl.ReusableMethod {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	var out []madl.ReusableMethod
	for _, m := range methods {
		if _, ok := wanted[m.Key()]; ok {
			out = append(out, m)
		}
	}
	return out
}
