package testplan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flux-qa/flux-backend/testcase"
)

var (
	// ErrEmptyPlan is returned when a plan has no current steps.
	ErrEmptyPlan = errors.New("plan has no steps for the current test case")

	// ErrInvalidPlan is returned when a caller-supplied plan is malformed.
	ErrInvalidPlan = errors.New("invalid plan")
)

// PrereqEntry pairs a prerequisite test case with its steps.
type PrereqEntry struct {
	CaseID string
	Steps  testcase.Steps
}

// PrereqSteps is the ordered prerequisite map of a plan. JSON renders it
// as an object keyed by case ID; insertion order is preserved on both
// marshal and unmarshal, which plain Go maps cannot do.
type PrereqSteps []PrereqEntry

// MarshalJSON implements json.Marshaler, emitting keys in slice order.
func (p PrereqSteps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.CaseID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(entry.Steps)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, reading object keys in
// document order via the token stream.
func (p *PrereqSteps) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: pretestid_steps must be an object", ErrInvalidPlan)
	}

	var entries PrereqSteps
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		caseID, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: non-string prerequisite key", ErrInvalidPlan)
		}

		var steps testcase.Steps
		if err := dec.Decode(&steps); err != nil {
			return fmt.Errorf("%w: steps for %s: %v", ErrInvalidPlan, caseID, err)
		}
		entries = append(entries, PrereqEntry{CaseID: caseID, Steps: steps})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = entries
	return nil
}

// Plan is the execution plan for one session: the ordered prerequisite
// steps plus the BDD steps of the test case under execution.
type Plan struct {
	Prereq    PrereqSteps    `json:"pretestid_steps"`
	CurrentID string         `json:"current_testid"`
	Current   testcase.Steps `json:"current_bdd_steps"`
}

// Validate checks the plan shape before it drives generation.
func (p *Plan) Validate() error {
	if p.CurrentID == "" {
		return fmt.Errorf("%w: current_testid is required", ErrInvalidPlan)
	}
	if len(p.Current) == 0 {
		return ErrEmptyPlan
	}
	for i, step := range p.Current {
		if step.Text == "" {
			return fmt.Errorf("%w: current step %d has no text", ErrInvalidPlan, i)
		}
	}
	for _, entry := range p.Prereq {
		if entry.CaseID == "" {
			return fmt.Errorf("%w: prerequisite entry has no case ID", ErrInvalidPlan)
		}
	}
	return nil
}

// JSON renders the plan in its canonical wire shape.
func (p *Plan) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Parse decodes a caller-supplied plan and validates it. Unknown
// top-level keys are rejected so an edited plan cannot smuggle fields
// past the canonical schema.
func Parse(data []byte) (*Plan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}
