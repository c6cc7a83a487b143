package search

import "context"

// DefaultRerankPoolSize is how many fused candidates go to the oracle,
// independent of the final result limit.
const DefaultRerankPoolSize = 20

// Reranker scores documents against a query with an external relevance
// oracle. Scores come back in the same order and length as documents;
// that alignment is the oracle's contract.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	Available(ctx context.Context) bool
	Close() error
}

// NoOpReranker reports unavailable so the rerank stage is skipped.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string) ([]float64, error) {
	return make([]float64, len(documents)), nil
}

func (NoOpReranker) Available(_ context.Context) bool { return false }

func (NoOpReranker) Close() error { return nil }
