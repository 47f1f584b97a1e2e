package scriptgen

import (
	"fmt"
	"strings"

	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/testplan"
)

// BuildGenerationPrompt constructs the prompt for first-pass script
// generation. The plan is embedded in its canonical JSON shape; selected
// reusable methods are rendered so the model can call them instead of
// reinventing them.
func BuildGenerationPrompt(plan *testplan.Plan, methods []madl.ReusableMethod) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", err
	}

	planJSON, err := plan.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to render plan: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Generate a Python automation script for the following BDD test plan.

<test_plan>
%s
</test_plan>

The plan lists prerequisite test cases under "pretestid_steps"; their steps
must run first, in the order given. The steps under "current_bdd_steps"
belong to the test case under execution.
`, string(planJSON))

	if len(methods) > 0 {
		b.WriteString("\n<reusable_methods>\n")
		for _, m := range methods {
			fmt.Fprintf(&b, "- %s :: %s\n  intent: %s\n", m.Key(), m.Signature, m.Intent)
			if m.Example != "" {
				fmt.Fprintf(&b, "  example: %s\n", m.Example)
			}
		}
		b.WriteString("</reusable_methods>\n\nPrefer calling these existing methods over writing new code for the same behavior.\n")
	}

	b.WriteString(`
<requirements>
- Use Python 3.x syntax
- Execute each step in plan order and print a progress line per step
- Handle errors with try-except and meaningful messages
- Exit with status code 0 on success and non-zero on failure
- Return ONLY the Python code, inside a single fenced code block
</requirements>`)

	return b.String(), nil
}

// BuildRepairPrompt constructs the prompt for the healing cycle. The
// failed script and the diagnostic failure lines give the model the
// context the first pass lacked.
func BuildRepairPrompt(plan *testplan.Plan, script *Script, failureLogs string) (string, error) {
	planJSON, err := plan.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to render plan: %w", err)
	}

	return fmt.Sprintf(`The following Python automation script failed. Fix it so the test plan passes.

<test_plan>
%s
</test_plan>

<failed_script>
%s
</failed_script>

<failure_logs>
%s
</failure_logs>

<requirements>
- Keep the overall structure; change only what the failure requires
- Do not change which steps the script performs
- Exit with status code 0 on success and non-zero on failure
- Return ONLY the corrected Python code, inside a single fenced code block
</requirements>`, string(planJSON), script.Content, failureLogs), nil
}
