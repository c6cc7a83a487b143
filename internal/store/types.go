// Package store holds the search backends: a bleve lexical index, an
// HNSW vector index, and a sqlite catalog of test cases.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Case is one QA test case as loaded from the ETL's JSON output.
type Case struct {
	// Key is the stable document key used across all three stores.
	Key            string   `json:"key"`
	CaseID         string   `json:"caseId"`
	Title          string   `json:"title"`
	Module         string   `json:"module"`
	Priority       string   `json:"priority"`
	Steps          string   `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
	Tags           []string `json:"tags,omitempty"`
}

// SearchText builds the document string sent to the reranking oracle
// and embedded at index time.
func (c *Case) SearchText() string {
	var b strings.Builder
	b.WriteString(c.CaseID)
	b.WriteString(" ")
	b.WriteString(c.Title)
	if c.Module != "" {
		b.WriteString(" [")
		b.WriteString(c.Module)
		b.WriteString("]")
	}
	if c.Steps != "" {
		b.WriteString(" ")
		b.WriteString(c.Steps)
	}
	if c.ExpectedResult != "" {
		b.WriteString(" expected: ")
		b.WriteString(c.ExpectedResult)
	}
	return b.String()
}

// FieldBoost weights one field in a lexical query.
type FieldBoost struct {
	Path   string
	Weight float64
}

// DefaultFieldBoosts weight identifier fields far above narrative ones.
func DefaultFieldBoosts() []FieldBoost {
	return []FieldBoost{
		{Path: "case_id", Weight: 10},
		{Path: "title", Weight: 3},
		{Path: "module", Weight: 2},
		{Path: "steps", Weight: 1},
		{Path: "expected_result", Weight: 1},
	}
}

// FuzzyOptions bounds fuzzy matching in a lexical query.
type FuzzyOptions struct {
	MaxEdits     int
	PrefixLength int
}

// LexicalQuery is a compound boosted keyword query.
type LexicalQuery struct {
	Query   string
	Fields  []FieldBoost
	Fuzzy   FuzzyOptions
	Filters map[string]string
	Limit   int
}

// LexicalHit is one lexical result in backend-native score order.
type LexicalHit struct {
	DocKey string
	Score  float64
}

// VectorQuery is a k-nearest-neighbor query.
type VectorQuery struct {
	Vector        []float32
	NumCandidates int
	Limit         int
	Filters       map[string]string
}

// VectorHit is one vector result in backend-native similarity order.
type VectorHit struct {
	DocKey string
	Score  float64
}

// LexicalIndex is the keyword search backend.
type LexicalIndex interface {
	Search(ctx context.Context, q LexicalQuery) ([]*LexicalHit, error)
	Index(ctx context.Context, cases []*Case) error
	Count() (int, error)
	Close() error
}

// VectorIndex is the dense retrieval backend.
type VectorIndex interface {
	Search(ctx context.Context, q VectorQuery) ([]*VectorHit, error)
	Index(ctx context.Context, keys []string, vectors [][]float32, meta []map[string]string) error
	Count() int
	Close() error
}

// ErrDimensionMismatch reports a vector of the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
