package madl

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testplan"
)

const (
	// DefaultTopK is the per-step candidate count requested from the index.
	DefaultTopK = 5

	// DefaultMinScore is the similarity floor for candidates.
	DefaultMinScore = 0.6
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is a vector index over reusable methods.
type Index interface {
	// Search returns methods similar to the vector, best first, with
	// scores below minScore filtered out.
	Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]ReusableMethod, error)

	// Upsert stores a method under the given point ID.
	Upsert(ctx context.Context, id int64, vector []float32, method *ReusableMethod) error
}

// Engine ties the embedder and index into the search and store
// operations used by the execution pipeline. Both operations degrade
// rather than fail: search returns an empty candidate set and store
// reports false when a collaborator is down.
type Engine struct {
	embedder Embedder
	index    Index
	topK     int
	minScore float64
	logger   logger.Logger
}

// NewEngine creates an engine with the default topK and minScore.
func NewEngine(embedder Embedder, index Index, log logger.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
		topK:     DefaultTopK,
		minScore: DefaultMinScore,
		logger:   log,
	}
}

// SetLimits overrides topK and minScore. Zero values keep the defaults.
func (e *Engine) SetLimits(topK int, minScore float64) {
	if topK > 0 {
		e.topK = topK
	}
	if minScore > 0 {
		e.minScore = minScore
	}
}

// Search runs one similarity query per current-plan step and merges the
// results, deduplicating by method identity and keeping the highest
// score. A strictly greater score replaces an earlier hit; ties keep the
// first seen. Collaborator failures are logged and skipped.
func (e *Engine) Search(ctx context.Context, plan *testplan.Plan) []ReusableMethod {
	merged := make(map[string]ReusableMethod)
	var order []string

	for _, step := range plan.Current {
		query := step.Query()

		vector, err := e.embedder.Embed(ctx, query)
		if err != nil {
			e.logger.Warn(ctx, "madl embed failed, skipping step", map[string]interface{}{
				"error": err.Error(),
				"query": query,
			})
			continue
		}

		hits, err := e.index.Search(ctx, vector, e.topK, e.minScore)
		if err != nil {
			e.logger.Warn(ctx, "madl index search failed, skipping step", map[string]interface{}{
				"error": err.Error(),
				"query": query,
			})
			continue
		}

		for _, hit := range hits {
			key := hit.Key()
			existing, seen := merged[key]
			if !seen {
				merged[key] = hit
				order = append(order, key)
				continue
			}
			if hit.Score > existing.Score {
				merged[key] = hit
			}
		}
	}

	results := make([]ReusableMethod, 0, len(order))
	for _, key := range order {
		results = append(results, merged[key])
	}

	e.logger.Info(ctx, "madl search completed", map[string]interface{}{
		"case_id":    plan.CurrentID,
		"steps":      len(plan.Current),
		"candidates": len(results),
	})

	return results
}

// Store embeds the method's canonical text and upserts it under a fresh
// point ID. Failures are logged and reported through the return value;
// they never abort the calling pipeline.
func (e *Engine) Store(ctx context.Context, method *ReusableMethod) bool {
	text := method.CanonicalText()
	if text == "" {
		e.logger.Warn(ctx, "madl store skipped: method has no canonical text", map[string]interface{}{
			"method": method.Key(),
		})
		return false
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Warn(ctx, "madl store embed failed", map[string]interface{}{
			"error":  err.Error(),
			"method": method.Key(),
		})
		return false
	}

	id, err := newPointID()
	if err != nil {
		e.logger.Warn(ctx, "madl store skipped: no point id", map[string]interface{}{
			"error":  err.Error(),
			"method": method.Key(),
		})
		return false
	}
	if err := e.index.Upsert(ctx, id, vector, method); err != nil {
		e.logger.Warn(ctx, "madl store upsert failed", map[string]interface{}{
			"error":  err.Error(),
			"method": method.Key(),
		})
		return false
	}

	e.logger.Info(ctx, "madl method stored", map[string]interface{}{
		"method":   method.Key(),
		"point_id": id,
	})

	return true
}

// newPointID returns a random non-negative 63-bit identifier. Upsert
// replaces whatever sits at a reused ID, so a degraded entropy source
// must abort the store rather than risk overwriting an existing point.
func newPointID() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to draw a point id: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) &^ (1 << 63)), nil
}
