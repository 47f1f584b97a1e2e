package testcase

import (
	"context"
	"fmt"
)

// maxChainDepth bounds prerequisite resolution independently of cycle
// detection so a pathological chain cannot stall a session.
const maxChainDepth = 50

// Chain resolves the prerequisite chain of a test case, returning the
// prerequisites in execution order (root first) followed by the case itself.
// A repeated case ID anywhere in the chain is reported as ErrPrereqCycle.
func Chain(ctx context.Context, store Store, caseID string) ([]*TestCase, error) {
	var reversed []*TestCase
	seen := make(map[string]bool)

	current := caseID
	for current != "" {
		if seen[current] {
			return nil, fmt.Errorf("%w: %s", ErrPrereqCycle, current)
		}
		if len(reversed) >= maxChainDepth {
			return nil, fmt.Errorf("%w: depth exceeds %d", ErrPrereqCycle, maxChainDepth)
		}
		seen[current] = true

		tc, err := store.GetByCaseID(ctx, current)
		if err != nil {
			return nil, err
		}

		reversed = append(reversed, tc)
		current = tc.PrereqCaseID
	}

	// Walked leaf-to-root; execution order is root-to-leaf.
	chain := make([]*TestCase, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		chain = append(chain, reversed[i])
	}

	return chain, nil
}
