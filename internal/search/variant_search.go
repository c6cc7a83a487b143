package search

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// variantParallelism bounds concurrent variant retrievals.
	variantParallelism = 4

	// consensusBoostStep is the per-extra-variant multiplier increment.
	// A document surfaced by several phrasings of the same intent is a
	// stronger match than its single best score suggests.
	consensusBoostStep = 0.15
)

// variantOutcome is one variant's fused list.
type variantOutcome struct {
	fused     []*FusedCandidate
	retrieval retrieval
}

// runVariants retrieves and fuses every variant independently, then
// merges the per-variant lists: each document keeps its best-scoring
// variant entry and gains a consensus boost per additional variant that
// also surfaced it. Outcome order follows the variant list, so the
// merge is deterministic.
func (e *Engine) runVariants(ctx context.Context, orch *orchestrator, variantStrings []string, opts *Options) ([]*FusedCandidate, retrieval, error) {
	outcomes := make([]variantOutcome, len(variantStrings))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(variantParallelism)

	for i, variant := range variantStrings {
		g.Go(func() error {
			ret := orch.retrieve(gctx, variant, opts)
			fused := e.fuseRetrieval(ret, opts.Method, *opts.Weights)

			mu.Lock()
			outcomes[i] = variantOutcome{fused: fused, retrieval: ret}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Total failure only when every variant's branches all failed.
	allFailed := true
	for _, o := range outcomes {
		if o.retrieval.lexical.err == nil || o.retrieval.vector.err == nil {
			allFailed = false
			break
		}
	}
	if allFailed {
		return nil, retrieval{}, ErrNoBackends
	}

	merged := mergeVariantLists(outcomes)
	// The primary variant's retrieval feeds the diagnostics block.
	return merged, outcomes[0].retrieval, nil
}

// mergeVariantLists folds per-variant fused lists into one, keyed by
// document.
func mergeVariantLists(outcomes []variantOutcome) []*FusedCandidate {
	type hitCount struct {
		best *FusedCandidate
		hits int
	}

	index := make(map[string]*hitCount)
	var order []*hitCount

	for _, o := range outcomes {
		for _, fc := range o.fused {
			hc, ok := index[fc.DocKey]
			if !ok {
				index[fc.DocKey] = &hitCount{best: fc, hits: 1}
				order = append(order, index[fc.DocKey])
				continue
			}
			hc.hits++
			// Provenance widens to both when variants disagree.
			widen := hc.best.FoundIn != fc.FoundIn
			if fc.FusedScore > hc.best.FusedScore {
				hc.best = fc
			}
			if widen {
				hc.best.FoundIn = FoundInBoth
			}
		}
	}

	merged := make([]*FusedCandidate, len(order))
	for i, hc := range order {
		fc := hc.best
		fc.FusedScore *= 1 + consensusBoostStep*float64(hc.hits-1)
		merged[i] = fc
	}

	sortFused(merged)
	return merged
}
