package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flux-qa/flux-backend/execution"
	"github.com/flux-qa/flux-backend/healing"
	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/runner"
	"github.com/flux-qa/flux-backend/scriptgen"
	"github.com/flux-qa/flux-backend/testcase"
	"github.com/flux-qa/flux-backend/testplan"
)

// fakeConn records outbound events and replays scripted inbound messages.
type fakeConn struct {
	mu      sync.Mutex
	events  []Event
	inbound chan Message
}

func newFakeConn(msgs ...Message) *fakeConn {
	c := &fakeConn{inbound: make(chan Message, len(msgs)+1)}
	for _, m := range msgs {
		c.inbound <- m
	}
	return c
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	ev, ok := v.(*Event)
	if !ok {
		return fmt.Errorf("unexpected write payload %T", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, *ev)
	return nil
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	msg, ok := <-c.inbound
	if !ok {
		return io.EOF
	}
	*(v.(*Message)) = msg
	return nil
}

func (c *fakeConn) statuses() []Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Status, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Status)
	}
	return out
}

func (c *fakeConn) lastEvent() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *fakeConn) has(status Status) bool {
	for _, s := range c.statuses() {
		if s == status {
			return true
		}
	}
	return false
}

func (c *fakeConn) runningLogs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		if ev.Status == StatusRunning {
			out = append(out, ev.Log)
		}
	}
	return out
}

// brokenConn fails every write, simulating an immediate disconnect.
type brokenConn struct {
	inbound chan Message
}

func newBrokenConn() *brokenConn {
	return &brokenConn{inbound: make(chan Message)}
}

func (c *brokenConn) WriteJSON(v interface{}) error { return io.ErrClosedPipe }

func (c *brokenConn) ReadJSON(v interface{}) error {
	msg, ok := <-c.inbound
	if !ok {
		return io.EOF
	}
	*(v.(*Message)) = msg
	return nil
}

// floodConn never stops producing inbound messages.
type floodConn struct{}

func (c *floodConn) WriteJSON(v interface{}) error { return nil }

func (c *floodConn) ReadJSON(v interface{}) error {
	*(v.(*Message)) = Message{Action: ActionContinue}
	return nil
}

type fakeAuthorizer struct {
	err error
}

func (a *fakeAuthorizer) Authorize(ctx context.Context, userID, projectID uuid.UUID) error {
	return a.err
}

type fakeCaseSource struct {
	cases map[string]*testcase.TestCase
}

func (f *fakeCaseSource) GetByCaseID(ctx context.Context, caseID string) (*testcase.TestCase, error) {
	tc, ok := f.cases[caseID]
	if !ok {
		return nil, testcase.ErrTestCaseNotFound
	}
	return tc, nil
}

type fakePlans struct {
	plan *testplan.Plan
	err  error
}

func (f *fakePlans) Build(ctx context.Context, caseID string) (*testplan.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

type fakeReuse struct {
	methods []madl.ReusableMethod
	stored  []*madl.ReusableMethod
	storeOK bool
}

func (f *fakeReuse) Search(ctx context.Context, plan *testplan.Plan) []madl.ReusableMethod {
	return f.methods
}

func (f *fakeReuse) Store(ctx context.Context, method *madl.ReusableMethod) bool {
	f.stored = append(f.stored, method)
	return f.storeOK
}

type fakeGenerator struct {
	script *scriptgen.Script
	err    error
	gotReq *scriptgen.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req *scriptgen.Request) (*scriptgen.Script, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.script, nil
}

type fakeRunner struct {
	lines   []string
	outcome *runner.Outcome
	err     error
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context, script string) (*runner.Execution, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return runner.NewStaticExecution(f.lines, f.outcome), nil
}

type fakeHealer struct {
	result    *healing.Result
	err       error
	emitLines []string
	calls     int
}

func (f *fakeHealer) Heal(ctx context.Context, plan *testplan.Plan, failed *scriptgen.Script, outcome *runner.Outcome, emit func(line string)) (*healing.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for _, line := range f.emitLines {
		emit(line)
	}
	return f.result, nil
}

type fakeExtractor struct {
	method *madl.ReusableMethod
	err    error
}

func (f *fakeExtractor) Extract(ctx context.Context, script string, plan *testplan.Plan, logTrail string) (*madl.ReusableMethod, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.method, nil
}

type fakeRecords struct {
	records []*execution.Record
}

func (f *fakeRecords) Create(ctx context.Context, record *execution.Record) error {
	record.ExecutionID = execution.FormatExecutionID(len(f.records) + 1)
	f.records = append(f.records, record)
	return nil
}

// testEnv wires an orchestrator out of fakes with a passing happy path.
type testEnv struct {
	projectID  uuid.UUID
	authorizer *fakeAuthorizer
	cases      *fakeCaseSource
	plans      *fakePlans
	reuse      *fakeReuse
	generator  *fakeGenerator
	runner     *fakeRunner
	healer     *fakeHealer
	extractor  *fakeExtractor
	records    *fakeRecords
}

func newTestEnv() *testEnv {
	projectID := uuid.New()
	plan := &testplan.Plan{
		CurrentID: "TC0001",
		Current: testcase.Steps{
			{Text: "Enter credentials", Arg: "user/pass"},
		},
	}
	return &testEnv{
		projectID:  projectID,
		authorizer: &fakeAuthorizer{},
		cases: &fakeCaseSource{cases: map[string]*testcase.TestCase{
			"TC0001": {CaseID: "TC0001", ProjectID: projectID, Name: "login"},
		}},
		plans: &fakePlans{plan: plan},
		reuse: &fakeReuse{storeOK: true},
		generator: &fakeGenerator{script: &scriptgen.Script{
			Content:    "print('ok')",
			Provenance: scriptgen.ProvenanceOriginal,
		}},
		runner: &fakeRunner{
			lines:   []string{"step one", "step two"},
			outcome: &runner.Outcome{Status: runner.StatusSuccess, Output: "step one\nstep two\n", Duration: 120 * time.Millisecond},
		},
		healer: &fakeHealer{},
		extractor: &fakeExtractor{method: &madl.ReusableMethod{
			ClassName:  "LoginPage",
			MethodName: "enter_credentials",
			Signature:  "def enter_credentials(self, username, password)",
			Intent:     "log a user in",
		}},
		records: &fakeRecords{},
	}
}

func (e *testEnv) orchestrator() *Orchestrator {
	return New(Deps{
		Authorizer: e.authorizer,
		TestCases:  e.cases,
		Plans:      e.plans,
		Reuse:      e.reuse,
		Generator:  e.generator,
		Runner:     e.runner,
		Healer:     e.healer,
		Extractor:  e.extractor,
		Executions: e.records,
		Logger:     logger.NewTestLogger(),
	}, Config{
		EditWait:      20 * time.Millisecond,
		SelectionWait: 20 * time.Millisecond,
	})
}

func (e *testEnv) request() *Request {
	return &Request{
		CaseID:     "TC0001",
		ScriptType: "web",
		UserID:     uuid.New(),
	}
}

func candidateMethods() []madl.ReusableMethod {
	return []madl.ReusableMethod{
		{ClassName: "LoginPage", MethodName: "enter_credentials", Score: 0.9},
		{ClassName: "LoginPage", MethodName: "submit", Score: 0.8},
		{ClassName: "HomePage", MethodName: "assert_logged_in", Score: 0.7},
	}
}
