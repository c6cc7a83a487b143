// Package search implements the hybrid retrieval pipeline: concurrent
// lexical and vector fan-out, min-max score reconciliation, rank
// fusion, optional external reranking, and response assembly.
package search

import (
	"errors"
	"time"

	"github.com/akverma-qa/casefind/internal/query"
	"github.com/akverma-qa/casefind/internal/store"
)

// Sentinel errors surfaced to callers.
var (
	// ErrInvalidQuery means the query was empty or blank. Raised before
	// any backend call.
	ErrInvalidQuery = errors.New("invalid query: empty or blank")

	// ErrNoBackends means both retrieval branches failed; no candidates
	// are retrievable.
	ErrNoBackends = errors.New("no candidates retrievable: all backends failed")
)

// Backend tags a candidate's origin.
type Backend string

const (
	BackendLexical Backend = "lexical"
	BackendVector  Backend = "vector"
)

// FoundIn is the provenance of a fused candidate.
type FoundIn string

const (
	FoundInLexical FoundIn = "lexical"
	FoundInVector  FoundIn = "vector"
	FoundInBoth    FoundIn = "both"
)

// FusionMethod selects the fusion algorithm per request.
type FusionMethod string

const (
	// FusionRRF is reciprocal rank fusion, 1/(k+rank) terms with k=60.
	FusionRRF FusionMethod = "rrf"
	// FusionWeighted is a weighted sum of min-max normalized scores.
	FusionWeighted FusionMethod = "weighted"
	// FusionReciprocal is rank reciprocals scaled by backend weights.
	FusionReciprocal FusionMethod = "reciprocal"
)

// Valid reports whether m names a known fusion method.
func (m FusionMethod) Valid() bool {
	switch m {
	case FusionRRF, FusionWeighted, FusionReciprocal:
		return true
	}
	return false
}

// Weights emphasizes one backend over the other in weighted fusion.
// The engine does not enforce that they sum to 1; fusion math
// tolerates arbitrary weights.
type Weights struct {
	BM25   float64 `json:"bm25"`
	Vector float64 `json:"vector"`
}

// DefaultWeights favors the vector backend for natural-language queries.
func DefaultWeights() Weights {
	return Weights{BM25: 0.4, Vector: 0.6}
}

// Candidate is one retrieved document before fusion.
type Candidate struct {
	DocKey  string
	Score   float64
	Rank    int // 1-based position in the backend's list
	Backend Backend
}

// BackendScore is one backend's view of a fused candidate. Rank is nil
// when the document is absent from that backend's result set.
type BackendScore struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	Rank       *int    `json:"rank,omitempty"`
}

// FusedCandidate is a candidate merged across backends.
type FusedCandidate struct {
	DocKey     string       `json:"docKey"`
	Lexical    BackendScore `json:"lexical"`
	Vector     BackendScore `json:"vector"`
	FoundIn    FoundIn      `json:"foundIn"`
	FusedScore float64      `json:"fusedScore"`
}

// RankedResult is a fused candidate with its final position and, when
// reranked, the before/after comparison.
type RankedResult struct {
	*FusedCandidate

	Position         int  `json:"position"`
	OriginalPosition int  `json:"originalPosition"`
	RankChange       int  `json:"rankChange"`

	RerankScore      *float64 `json:"rerankScore,omitempty"`
	ScoreImprovement *float64 `json:"scoreImprovement,omitempty"`

	Case *store.Case `json:"case,omitempty"`
}

// Options are the per-request search parameters.
type Options struct {
	// Limit is the final result count.
	Limit int
	// PoolSize is how many candidates each backend retrieves (K).
	PoolSize int
	// Filters are key/value equality constraints applied in both backends.
	Filters map[string]string
	// Method selects the fusion algorithm.
	Method FusionMethod
	// Weights applies to weighted and reciprocal fusion; nil uses defaults.
	Weights *Weights
	// UseReranker sends the fused top candidates to the external oracle.
	UseReranker bool
	// AllVariants runs every generated query variant and fuses across them.
	AllVariants bool
	// Explain attaches the diagnostics block to the response.
	Explain bool

	LexicalTimeout time.Duration
	VectorTimeout  time.Duration
}

// applyDefaults fills zero values.
func (o *Options) applyDefaults() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 50
	}
	if !o.Method.Valid() {
		o.Method = FusionRRF
	}
	if o.Weights == nil {
		w := DefaultWeights()
		o.Weights = &w
	}
	if o.LexicalTimeout <= 0 {
		o.LexicalTimeout = 2 * time.Second
	}
	if o.VectorTimeout <= 0 {
		o.VectorTimeout = 5 * time.Second
	}
}

// Timing is the per-stage latency breakdown.
type Timing struct {
	SearchTime time.Duration `json:"searchTime"`
	FusionTime time.Duration `json:"fusionTime"`
	RerankTime time.Duration `json:"rerankTime"`
	TotalTime  time.Duration `json:"totalTime"`
}

// Stats is the coverage summary of one fusion run.
type Stats struct {
	FoundInBoth        int  `json:"foundInBoth"`
	FoundInLexicalOnly int  `json:"foundInLexicalOnly"`
	FoundInVectorOnly  int  `json:"foundInVectorOnly"`
	TopResultChanged   bool `json:"topResultChanged"`
}

// Response is the assembled result of one search request.
type Response struct {
	Results         []*RankedResult `json:"results"`
	Count           int             `json:"count"`
	TotalCandidates int             `json:"totalCandidates"`
	Timing          Timing          `json:"timing"`
	Stats           Stats           `json:"stats"`
	Weights         Weights         `json:"weights"`
	FusionMethod    FusionMethod    `json:"fusionMethod"`
	Reranked        bool            `json:"reranked"`

	Query   string `json:"query"`
	Variant string `json:"variant"`

	AbbrevMappings  []query.AbbrevMapping  `json:"abbreviationMappings,omitempty"`
	SynonymMappings []query.SynonymMapping `json:"synonymMappings,omitempty"`

	// Explain carries diagnostics when requested.
	Explain *Explain `json:"explain,omitempty"`
}

// Explain is the optional diagnostics block.
type Explain struct {
	NormalizedQuery string   `json:"normalizedQuery"`
	PreservedIDs    []string `json:"preservedIds,omitempty"`
	Variants        []string `json:"variants,omitempty"`
	LexicalElapsed  string   `json:"lexicalElapsed"`
	VectorElapsed   string   `json:"vectorElapsed"`
	LexicalError    string   `json:"lexicalError,omitempty"`
	VectorError     string   `json:"vectorError,omitempty"`
}
