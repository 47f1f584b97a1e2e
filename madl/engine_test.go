package madl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flux-qa/flux-backend/logger"
	"github.com/flux-qa/flux-backend/testcase"
	"github.com/flux-qa/flux-backend/testplan"
)

type fakeEmbedder struct {
	err     error
	queries []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	return []float32{1, 0, 0}, nil
}

type fakeIndex struct {
	err      error
	upserts  []int64
	searches int
	queryIdx int
	perQuery [][]ReusableMethod
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, topK int, minScore float64) ([]ReusableMethod, error) {
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	if f.queryIdx < len(f.perQuery) {
		hits := f.perQuery[f.queryIdx]
		f.queryIdx++
		return hits, nil
	}
	return nil, nil
}

func (f *fakeIndex) Upsert(ctx context.Context, id int64, vector []float32, method *ReusableMethod) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, id)
	return nil
}

func planWithSteps(steps ...testcase.Step) *testplan.Plan {
	return &testplan.Plan{
		CurrentID: "TC0001",
		Current:   steps,
	}
}

func TestEngine_SearchOneQueryPerStep(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	engine := NewEngine(embedder, index, logger.NewTestLogger())

	plan := planWithSteps(
		testcase.Step{Text: "Given the login page"},
		testcase.Step{Text: "When the user signs in as", Arg: "admin"},
	)

	engine.Search(context.Background(), plan)

	assert.Equal(t, []string{
		"Given the login page",
		"When the user signs in as with admin",
	}, embedder.queries)
	assert.Equal(t, 2, index.searches)
}

func TestEngine_SearchDedupKeepsHighestScore(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{
		perQuery: [][]ReusableMethod{
			{
				{ClassName: "LoginPage", MethodName: "sign_in", Score: 0.7},
				{ClassName: "CartPage", MethodName: "open", Score: 0.65},
			},
			{
				{ClassName: "LoginPage", MethodName: "sign_in", Score: 0.9},
			},
		},
	}
	engine := NewEngine(embedder, index, logger.NewTestLogger())

	results := engine.Search(context.Background(), planWithSteps(
		testcase.Step{Text: "step one"},
		testcase.Step{Text: "step two"},
	))

	assert.Len(t, results, 2)
	assert.Equal(t, "LoginPage.sign_in", results[0].Key())
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "CartPage.open", results[1].Key())
}

func TestEngine_SearchEqualScoreKeepsFirstSeen(t *testing.T) {
	first := ReusableMethod{ClassName: "A", MethodName: "m", Intent: "first", Score: 0.8}
	second := ReusableMethod{ClassName: "A", MethodName: "m", Intent: "second", Score: 0.8}

	engine := NewEngine(&fakeEmbedder{}, &fakeIndex{
		perQuery: [][]ReusableMethod{{first}, {second}},
	}, logger.NewTestLogger())

	results := engine.Search(context.Background(), planWithSteps(
		testcase.Step{Text: "one"},
		testcase.Step{Text: "two"},
	))

	assert.Len(t, results, 1)
	assert.Equal(t, "first", results[0].Intent)
}

func TestEngine_SearchDegradedEmbedder(t *testing.T) {
	engine := NewEngine(
		&fakeEmbedder{err: errors.New("embedder down")},
		&fakeIndex{},
		logger.NewTestLogger(),
	)

	results := engine.Search(context.Background(), planWithSteps(testcase.Step{Text: "a step"}))
	assert.Empty(t, results)
}

func TestEngine_SearchDegradedIndex(t *testing.T) {
	engine := NewEngine(
		&fakeEmbedder{},
		&fakeIndex{err: errors.New("index down")},
		logger.NewTestLogger(),
	)

	results := engine.Search(context.Background(), planWithSteps(testcase.Step{Text: "a step"}))
	assert.Empty(t, results)
}

func TestEngine_Store(t *testing.T) {
	index := &fakeIndex{}
	engine := NewEngine(&fakeEmbedder{}, index, logger.NewTestLogger())

	ok := engine.Store(context.Background(), &ReusableMethod{
		ClassName:  "LoginPage",
		MethodName: "sign_in",
		Signature:  "def sign_in(self, username, password)",
		Intent:     "signs a user in",
	})

	assert.True(t, ok)
	assert.Len(t, index.upserts, 1)
	assert.GreaterOrEqual(t, index.upserts[0], int64(0), "point ID must be non-negative")
}

func TestEngine_StoreFailuresReturnFalse(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{err: errors.New("down")}, &fakeIndex{}, logger.NewTestLogger())
		ok := engine.Store(context.Background(), &ReusableMethod{
			ClassName: "A", MethodName: "m", Intent: "x",
		})
		assert.False(t, ok)
	})

	t.Run("index failure", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{}, &fakeIndex{err: errors.New("down")}, logger.NewTestLogger())
		ok := engine.Store(context.Background(), &ReusableMethod{
			ClassName: "A", MethodName: "m", Intent: "x",
		})
		assert.False(t, ok)
	})

	t.Run("empty method", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{}, &fakeIndex{}, logger.NewTestLogger())
		ok := engine.Store(context.Background(), &ReusableMethod{})
		assert.False(t, ok)
	})
}

func TestNewPointIDNonNegativeAndDistinct(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 100; i++ {
		id, err := newPointID()
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, id, int64(0))
		seen[id] = struct{}{}
	}
	// A fixed fallback id would collapse this set and let Upsert
	// overwrite unrelated points.
	assert.Len(t, seen, 100)
}
