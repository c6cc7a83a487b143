package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI
// Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// Fuser merges reconciled candidate lists into one ranked list.
type Fuser struct {
	K int // RRF smoothing constant
}

// NewFuser creates a fuser with the default k=60.
func NewFuser() *Fuser {
	return &Fuser{K: DefaultRRFConstant}
}

// NewFuserWithK creates a fuser with a custom k. k <= 0 falls back to 60.
func NewFuserWithK(k int) *Fuser {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fuser{K: k}
}

// Fuse unions lexical and vector candidates by document key and scores
// the union with the selected method. lexNorm and vecNorm are the
// reconciled scores aligned index-for-index with the candidate lists.
//
// A candidate absent from a backend keeps zero raw/normalized score and
// a nil rank for it; its fused contribution from that backend is 0.
// Insertion order is lexical list first, then vector, which together
// with the rank tie-breaks makes fusion fully deterministic.
func (f *Fuser) Fuse(lexical, vector []*Candidate, lexNorm, vecNorm []float64, method FusionMethod, weights Weights) []*FusedCandidate {
	if len(lexical) == 0 && len(vector) == 0 {
		return []*FusedCandidate{}
	}

	index := make(map[string]*FusedCandidate, len(lexical)+len(vector))
	var order []*FusedCandidate

	for i, c := range lexical {
		rank := c.Rank
		fc := &FusedCandidate{
			DocKey:  c.DocKey,
			FoundIn: FoundInLexical,
			Lexical: BackendScore{Raw: c.Score, Normalized: lexNorm[i], Rank: &rank},
		}
		index[c.DocKey] = fc
		order = append(order, fc)
	}

	for i, c := range vector {
		rank := c.Rank
		if fc, ok := index[c.DocKey]; ok {
			fc.Vector = BackendScore{Raw: c.Score, Normalized: vecNorm[i], Rank: &rank}
			fc.FoundIn = FoundInBoth
			continue
		}
		fc := &FusedCandidate{
			DocKey:  c.DocKey,
			FoundIn: FoundInVector,
			Vector:  BackendScore{Raw: c.Score, Normalized: vecNorm[i], Rank: &rank},
		}
		index[c.DocKey] = fc
		order = append(order, fc)
	}

	for _, fc := range order {
		fc.FusedScore = f.score(fc, method, weights)
	}

	sortFused(order)
	return order
}

// score computes one candidate's fused score. Absent backends
// contribute 0 to every method.
func (f *Fuser) score(fc *FusedCandidate, method FusionMethod, weights Weights) float64 {
	switch method {
	case FusionWeighted:
		return fc.Lexical.Normalized*weights.BM25 + fc.Vector.Normalized*weights.Vector

	case FusionReciprocal:
		var s float64
		if fc.Lexical.Rank != nil {
			s += (1.0 / float64(*fc.Lexical.Rank)) * weights.BM25
		}
		if fc.Vector.Rank != nil {
			s += (1.0 / float64(*fc.Vector.Rank)) * weights.Vector
		}
		return s

	default: // FusionRRF
		var s float64
		if fc.Lexical.Rank != nil {
			s += 1.0 / float64(f.K+*fc.Lexical.Rank)
		}
		if fc.Vector.Rank != nil {
			s += 1.0 / float64(f.K+*fc.Vector.Rank)
		}
		return s
	}
}

// sortFused orders candidates by descending fused score; ties fall back
// to the lower lexical rank (nil last), then the lower vector rank.
// Stable sort keeps insertion order as the final tie-break.
func sortFused(results []*FusedCandidate) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if c := compareRanks(a.Lexical.Rank, b.Lexical.Rank); c != 0 {
			return c < 0
		}
		if c := compareRanks(a.Vector.Rank, b.Vector.Rank); c != 0 {
			return c < 0
		}
		return false
	})
}

// compareRanks orders present ranks ascending, nil after any value.
func compareRanks(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

// OriginalRank is the candidate's rank in whichever backend it first
// appeared in, lexical preferred when present in both.
func OriginalRank(fc *FusedCandidate) int {
	if fc.Lexical.Rank != nil {
		return *fc.Lexical.Rank
	}
	if fc.Vector.Rank != nil {
		return *fc.Vector.Rank
	}
	return 0
}
