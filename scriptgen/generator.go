package scriptgen

import (
	"context"
	"fmt"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/madl"
	"github.com/flux-qa/flux-backend/testplan"
)

// Request carries everything generation needs: the confirmed plan and
// the reusable methods the caller selected for inclusion.
type Request struct {
	Plan       *testplan.Plan
	Methods    []madl.ReusableMethod
	ScriptType string
}

// Generator produces an automation script from a request.
// Implementations differ only in the LLM backend they talk to.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Script, error)
}

// Completer produces a completion for a prompt. Both LLM clients
// implement it; the generator and healer are written against it so the
// backend stays swappable.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMGenerator implements Generator on top of any Completer.
type LLMGenerator struct {
	completer Completer
	logger    logger.Logger
}

// NewLLMGenerator creates a generator backed by the given completer.
func NewLLMGenerator(completer Completer, log logger.Logger) *LLMGenerator {
	return &LLMGenerator{
		completer: completer,
		logger:    log,
	}
}

// Generate builds the generation prompt, invokes the backend, and
// extracts the script from the completion.
func (g *LLMGenerator) Generate(ctx context.Context, req *Request) (*Script, error) {
	prompt, err := BuildGenerationPrompt(req.Plan, req.Methods)
	if err != nil {
		return nil, fmt.Errorf("failed to build generation prompt: %w", err)
	}

	completion, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	content, err := ExtractCodeBlock(completion)
	if err != nil {
		return nil, ErrEmptyScript
	}

	g.logger.Info(ctx, "script generated", map[string]interface{}{
		"case_id":      req.Plan.CurrentID,
		"method_count": len(req.Methods),
		"script_bytes": len(content),
	})

	return &Script{
		Content:    content,
		Provenance: ProvenanceOriginal,
	}, nil
}
