package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// StaticEmbedder produces deterministic hash-based vectors with no
// external service. Vectors capture token overlap only, not semantics;
// suitable for tests and offline smoke runs.
type StaticEmbedder struct {
	dimensions int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dimensions: StaticDimensions}
}

// Embed hashes each token into the vector space and normalizes.
// Identical text always yields an identical vector.
func (s *StaticEmbedder) Embed(_ context.Context, text string) (*Embedding, error) {
	vec := make([]float32, s.dimensions)
	tokens := strings.Fields(strings.ToLower(text))

	for _, tok := range tokens {
		h := sha256.Sum256([]byte(tok))
		// Each token contributes to a handful of dimensions.
		for i := 0; i < 8; i++ {
			idx := binary.BigEndian.Uint32(h[i*4:]) % uint32(s.dimensions)
			vec[idx] += 1.0
		}
	}

	return &Embedding{
		Vector:     normalizeVector(vec),
		TokensUsed: len(tokens),
	}, nil
}

// Dimensions returns the embedding dimension.
func (s *StaticEmbedder) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *StaticEmbedder) ModelName() string {
	return "static"
}

// Available always reports true.
func (s *StaticEmbedder) Available(_ context.Context) bool {
	return true
}

// Close is a no-op.
func (s *StaticEmbedder) Close() error {
	return nil
}
