package search

import "sort"

// reorderByRerank sorts the reranked pool by oracle score descending.
// Ties keep the fused order (stable sort).
func reorderByRerank(pool []*RankedResult) {
	sort.SliceStable(pool, func(i, j int) bool {
		return *pool[i].RerankScore > *pool[j].RerankScore
	})
}

// assemble builds the final Response from ranked results: truncation to
// the limit, backend rank deltas, and coverage statistics.
func assemble(results []*RankedResult, fused []*FusedCandidate, opts Options, reranked, topChanged bool) *Response {
	// rankChange compares the final position against the rank the
	// candidate held in whichever backend it first appeared in
	// (lexical preferred); positive means the document moved up.
	for _, r := range results {
		if orig := OriginalRank(r.FusedCandidate); orig > 0 {
			r.RankChange = orig - r.Position
		}
	}

	var stats Stats
	for _, fc := range fused {
		switch fc.FoundIn {
		case FoundInBoth:
			stats.FoundInBoth++
		case FoundInLexical:
			stats.FoundInLexicalOnly++
		case FoundInVector:
			stats.FoundInVectorOnly++
		}
	}
	stats.TopResultChanged = topChanged

	limited := results
	if len(limited) > opts.Limit {
		limited = limited[:opts.Limit]
	}

	return &Response{
		Results:         limited,
		Count:           len(limited),
		TotalCandidates: len(fused),
		Stats:           stats,
		Weights:         *opts.Weights,
		FusionMethod:    opts.Method,
		Reranked:        reranked,
	}
}
