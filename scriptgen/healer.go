package scriptgen

import (
	"context"
	"fmt"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testplan"
)

// LLMHealer repairs failed scripts through the same Completer backends
// as generation. It satisfies the healing controller's Healer interface.
type LLMHealer struct {
	completer Completer
	logger    logger.Logger
}

// NewLLMHealer creates a healer backed by the given completer.
func NewLLMHealer(completer Completer, log logger.Logger) *LLMHealer {
	return &LLMHealer{
		completer: completer,
		logger:    log,
	}
}

// Heal asks the backend for a corrected script. The returned script
// carries HEALED provenance; an unusable completion is an error.
func (h *LLMHealer) Heal(ctx context.Context, plan *testplan.Plan, script *Script, failureLogs string) (*Script, error) {
	prompt, err := BuildRepairPrompt(plan, script, failureLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to build repair prompt: %w", err)
	}

	completion, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("script repair failed: %w", err)
	}

	content, err := ExtractCodeBlock(completion)
	if err != nil {
		return nil, ErrEmptyScript
	}

	h.logger.Info(ctx, "healed script produced", map[string]interface{}{
		"case_id":      plan.CurrentID,
		"script_bytes": len(content),
	})

	return &Script{
		Content:    content,
		Provenance: ProvenanceHealed,
	}, nil
}
