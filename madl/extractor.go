package madl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testplan"
)

var (
	// ErrNoMetadata is returned when the completion contains no JSON object.
	ErrNoMetadata = errors.New("completion contains no metadata JSON")

	// ErrIncompleteMetadata is returned when extracted metadata lacks identity fields.
	ErrIncompleteMetadata = errors.New("metadata missing class_name or method_name")
)

// Completer produces a completion for a prompt. The script generation
// clients satisfy this so extraction shares their LLM wiring.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Extractor derives reusable-method metadata from a successful run.
type Extractor struct {
	completer Completer
	logger    logger.Logger
}

// NewExtractor creates a metadata extractor.
func NewExtractor(completer Completer, log logger.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		logger:    log,
	}
}

// Extract asks the LLM to describe the script's central reusable method
// and parses the JSON out of the completion.
func (e *Extractor) Extract(ctx context.Context, script string, plan *testplan.Plan, logTrail string) (*ReusableMethod, error) {
	planJSON, err := plan.JSON()
	if err != nil {
		return nil, fmt.Errorf("failed to render plan: %w", err)
	}

	prompt := buildExtractionPrompt(script, string(planJSON), logTrail)

	completion, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("metadata completion failed: %w", err)
	}

	raw, err := extractJSON(completion)
	if err != nil {
		return nil, err
	}

	var method ReusableMethod
	if err := json.Unmarshal([]byte(raw), &method); err != nil {
		return nil, fmt.Errorf("failed to decode metadata JSON: %w", err)
	}

	if method.ClassName == "" || method.MethodName == "" {
		return nil, ErrIncompleteMetadata
	}

	method.SourceTestCase = plan.CurrentID

	e.logger.Info(ctx, "method metadata extracted", map[string]interface{}{
		"method":  method.Key(),
		"case_id": plan.CurrentID,
	})

	return &method, nil
}

// extractJSON pulls the outermost JSON object out of a completion that
// may wrap it in prose or markdown.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoMetadata
	}
	return s[start : end+1], nil
}

func buildExtractionPrompt(script, planJSON, logTrail string) string {
	return fmt.Sprintf(`Analyze this automation script that just executed successfully and describe its central reusable method.

<script>
%s
</script>

<test_plan>
%s
</test_plan>

<execution_log>
%s
</execution_log>

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "class_name": "page or component class the method belongs to",
  "method_name": "snake_case method name",
  "signature": "full method signature",
  "intent": "one sentence describing what the method accomplishes",
  "description": "two or three sentences of detail",
  "keywords": ["search", "terms"],
  "parameters": [{"name": "param", "type": "str"}],
  "return_type": "return type or empty string",
  "example": "one-line usage example"
}`, script, planJSON, logTrail)
}
