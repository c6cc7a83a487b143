package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexCandidates(keys ...string) []*Candidate {
	out := make([]*Candidate, len(keys))
	for i, k := range keys {
		out[i] = &Candidate{DocKey: k, Score: float64(len(keys) - i), Rank: i + 1, Backend: BackendLexical}
	}
	return out
}

func vecCandidates(keys ...string) []*Candidate {
	out := make([]*Candidate, len(keys))
	for i, k := range keys {
		out[i] = &Candidate{DocKey: k, Score: 1 - float64(i)*0.1, Rank: i + 1, Backend: BackendVector}
	}
	return out
}

func fuse(t *testing.T, f *Fuser, lex, vec []*Candidate, method FusionMethod, w Weights) []*FusedCandidate {
	t.Helper()
	return f.Fuse(lex, vec, Reconcile(lex), Reconcile(vec), method, w)
}

func TestFuse_UnionInvariant(t *testing.T) {
	// Given: overlapping candidate sets
	lex := lexCandidates("a", "b", "c")
	vec := vecCandidates("b", "c", "d", "e")

	fused := fuse(t, NewFuser(), lex, vec, FusionRRF, DefaultWeights())

	// Then: the fused set is exactly the union by document key
	require.Len(t, fused, 5)
	keys := make(map[string]FoundIn)
	for _, fc := range fused {
		keys[fc.DocKey] = fc.FoundIn
	}
	assert.Equal(t, FoundInLexical, keys["a"])
	assert.Equal(t, FoundInBoth, keys["b"])
	assert.Equal(t, FoundInBoth, keys["c"])
	assert.Equal(t, FoundInVector, keys["d"])
	assert.Equal(t, FoundInVector, keys["e"])
}

func TestFuse_RRFScoreForBothBackends(t *testing.T) {
	// Given: one document at lexical rank 1 and vector rank 3
	lex := lexCandidates("doc", "x")
	vec := vecCandidates("y", "z", "doc")

	fused := fuse(t, NewFuser(), lex, vec, FusionRRF, DefaultWeights())

	var doc *FusedCandidate
	for _, fc := range fused {
		if fc.DocKey == "doc" {
			doc = fc
		}
	}
	require.NotNil(t, doc)

	// Then: fused score is exactly 1/61 + 1/63
	assert.InDelta(t, 1.0/61.0+1.0/63.0, doc.FusedScore, 1e-12)
	assert.Equal(t, FoundInBoth, doc.FoundIn)
	require.NotNil(t, doc.Lexical.Rank)
	require.NotNil(t, doc.Vector.Rank)
	assert.Equal(t, 1, *doc.Lexical.Rank)
	assert.Equal(t, 3, *doc.Vector.Rank)
}

func TestFuse_AbsentBackendContributesZero(t *testing.T) {
	// A vector-only document scores only its vector term; its lexical
	// side stays zero with a nil rank.
	fused := fuse(t, NewFuser(), nil, vecCandidates("v"), FusionRRF, DefaultWeights())

	require.Len(t, fused, 1)
	fc := fused[0]
	assert.InDelta(t, 1.0/61.0, fc.FusedScore, 1e-12)
	assert.Nil(t, fc.Lexical.Rank)
	assert.Zero(t, fc.Lexical.Raw)
	assert.Zero(t, fc.Lexical.Normalized)
	assert.Equal(t, FoundInVector, fc.FoundIn)
}

func TestFuse_RRFDeterminism(t *testing.T) {
	lex := lexCandidates("a", "b", "c")
	vec := vecCandidates("c", "a", "d")

	first := fuse(t, NewFuser(), lex, vec, FusionRRF, DefaultWeights())
	for i := 0; i < 10; i++ {
		again := fuse(t, NewFuser(), lexCandidates("a", "b", "c"), vecCandidates("c", "a", "d"), FusionRRF, DefaultWeights())
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].DocKey, again[j].DocKey)
			assert.Equal(t, first[j].FusedScore, again[j].FusedScore)
		}
	}
}

func TestFuse_WeightedMethod(t *testing.T) {
	lex := []*Candidate{{DocKey: "a", Score: 10, Rank: 1}, {DocKey: "b", Score: 5, Rank: 2}}
	vec := []*Candidate{{DocKey: "b", Score: 0.9, Rank: 1}}

	fused := fuse(t, NewFuser(), lex, vec, FusionWeighted, Weights{BM25: 0.5, Vector: 0.5})

	scores := map[string]float64{}
	for _, fc := range fused {
		scores[fc.DocKey] = fc.FusedScore
	}
	// a: lexNorm 1.0 * 0.5 + 0 = 0.5
	assert.InDelta(t, 0.5, scores["a"], 1e-12)
	// b: lexNorm 0.5 * 0.5 + vecNorm 0.9 * 0.5 = 0.7 (single vector
	// score keeps its absolute position under the floor/ceiling policy)
	assert.InDelta(t, 0.7, scores["b"], 1e-12)
	assert.Equal(t, "b", fused[0].DocKey)
}

func TestFuse_ReciprocalMethod(t *testing.T) {
	lex := lexCandidates("a", "b")
	vec := vecCandidates("b")

	fused := fuse(t, NewFuser(), lex, vec, FusionReciprocal, Weights{BM25: 0.4, Vector: 0.6})

	scores := map[string]float64{}
	for _, fc := range fused {
		scores[fc.DocKey] = fc.FusedScore
	}
	// a: (1/1)*0.4; b: (1/2)*0.4 + (1/1)*0.6
	assert.InDelta(t, 0.4, scores["a"], 1e-12)
	assert.InDelta(t, 0.8, scores["b"], 1e-12)
}

func TestFuse_TieBreakPrefersLexicalRank(t *testing.T) {
	// Two lexical-only docs share a fused score under weighted fusion
	// with zero weights; rank order must decide deterministically.
	lex := lexCandidates("first", "second")

	fused := fuse(t, NewFuser(), lex, nil, FusionWeighted, Weights{BM25: 0, Vector: 0})

	require.Len(t, fused, 2)
	assert.Equal(t, "first", fused[0].DocKey)
	assert.Equal(t, "second", fused[1].DocKey)
}

func TestFuse_EmptyInputs(t *testing.T) {
	fused := fuse(t, NewFuser(), nil, nil, FusionRRF, DefaultWeights())
	assert.NotNil(t, fused)
	assert.Empty(t, fused)
}

func TestOriginalRank_PrefersLexical(t *testing.T) {
	one, three := 1, 3
	fc := &FusedCandidate{Lexical: BackendScore{Rank: &three}, Vector: BackendScore{Rank: &one}}
	assert.Equal(t, 3, OriginalRank(fc))

	vecOnly := &FusedCandidate{Vector: BackendScore{Rank: &one}}
	assert.Equal(t, 1, OriginalRank(vecOnly))
}
