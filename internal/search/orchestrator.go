package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akverma-qa/casefind/internal/embed"
	"github.com/akverma-qa/casefind/internal/store"
)

// minVectorCandidates is the KNN oversampling floor.
const minVectorCandidates = 100

// retrievalResult is one backend branch's outcome.
type retrievalResult struct {
	candidates []*Candidate
	elapsed    time.Duration
	err        error
}

// retrieval holds both branches of one fan-out.
type retrieval struct {
	lexical retrievalResult
	vector  retrievalResult
}

// orchestrator fans one query out to both backends concurrently.
// Join-both-or-degrade: a branch that fails or times out yields empty
// candidates and a logged degradation; the other branch's results are
// still used. Only the caller decides whether both failing is fatal.
type orchestrator struct {
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	embedder embed.Embedder
	fuzzy    store.FuzzyOptions
	logger   *slog.Logger
}

// retrieve runs the two backend calls concurrently and joins them.
// The embedding lookup is a sequential prerequisite of the vector
// branch only; it never blocks the lexical branch.
func (o *orchestrator) retrieve(ctx context.Context, queryText string, opts *Options) retrieval {
	var r retrieval

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.lexical = o.searchLexical(gctx, queryText, opts)
		return nil
	})
	g.Go(func() error {
		r.vector = o.searchVector(gctx, queryText, opts)
		return nil
	})
	// Branches report failure through retrievalResult, never through
	// the group: one slow backend must not cancel the other.
	_ = g.Wait()

	if r.lexical.err != nil {
		o.logger.Warn("backend_degraded",
			"backend", BackendLexical,
			"elapsed", r.lexical.elapsed,
			"error", r.lexical.err)
	}
	if r.vector.err != nil {
		o.logger.Warn("backend_degraded",
			"backend", BackendVector,
			"elapsed", r.vector.elapsed,
			"error", r.vector.err)
	}

	return r
}

func (o *orchestrator) searchLexical(ctx context.Context, queryText string, opts *Options) retrievalResult {
	start := time.Now()

	lexCtx, cancel := context.WithTimeout(ctx, opts.LexicalTimeout)
	defer cancel()

	hits, err := o.lexical.Search(lexCtx, store.LexicalQuery{
		Query:   queryText,
		Fields:  store.DefaultFieldBoosts(),
		Fuzzy:   o.fuzzy,
		Filters: opts.Filters,
		Limit:   opts.PoolSize,
	})
	elapsed := time.Since(start)
	if err != nil {
		return retrievalResult{elapsed: elapsed, err: err}
	}

	// Backend-native order becomes the 1-based rank; fusion correctness
	// depends on preserving it.
	candidates := make([]*Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = &Candidate{
			DocKey:  h.DocKey,
			Score:   h.Score,
			Rank:    i + 1,
			Backend: BackendLexical,
		}
	}
	return retrievalResult{candidates: candidates, elapsed: elapsed}
}

func (o *orchestrator) searchVector(ctx context.Context, queryText string, opts *Options) retrievalResult {
	start := time.Now()

	vecCtx, cancel := context.WithTimeout(ctx, opts.VectorTimeout)
	defer cancel()

	emb, err := o.embedder.Embed(vecCtx, queryText)
	if err != nil {
		return retrievalResult{elapsed: time.Since(start), err: err}
	}

	numCandidates := 2 * opts.PoolSize
	if numCandidates < minVectorCandidates {
		numCandidates = minVectorCandidates
	}

	hits, err := o.vector.Search(vecCtx, store.VectorQuery{
		Vector:        emb.Vector,
		NumCandidates: numCandidates,
		Limit:         opts.PoolSize,
		Filters:       opts.Filters,
	})
	elapsed := time.Since(start)
	if err != nil {
		return retrievalResult{elapsed: elapsed, err: err}
	}

	candidates := make([]*Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = &Candidate{
			DocKey:  h.DocKey,
			Score:   h.Score,
			Rank:    i + 1,
			Backend: BackendVector,
		}
	}
	return retrievalResult{candidates: candidates, elapsed: elapsed}
}
