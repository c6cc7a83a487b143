package store

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVector(t *testing.T) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(3)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	keys := []string{"case-1", "case-2", "case-3"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	meta := []map[string]string{
		{"module": "auth"},
		{"module": "records"},
		{"module": "auth"},
	}
	require.NoError(t, idx.Index(context.Background(), keys, vectors, meta))
	return idx
}

func TestHNSWVector_NearestNeighborFirst(t *testing.T) {
	idx := newTestVector(t)

	hits, err := idx.Search(context.Background(), VectorQuery{
		Vector:        []float32{1, 0, 0},
		NumCandidates: 10,
		Limit:         3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "case-1", hits[0].DocKey)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestHNSWVector_HitsSortedBySimilarity(t *testing.T) {
	// Given: many vectors at varying angles from the query so graph
	// traversal order differs from similarity order
	idx, err := NewHNSWVectorIndex(3)
	require.NoError(t, err)
	defer idx.Close()

	keys := make([]string, 20)
	vectors := make([][]float32, 20)
	metas := make([]map[string]string, 20)
	for i := range keys {
		keys[i] = "case-" + string(rune('a'+i))
		vectors[i] = []float32{1, float32(i) * 0.2, float32(i) * 0.1}
		metas[i] = map[string]string{}
	}
	require.NoError(t, idx.Index(context.Background(), keys, vectors, metas))

	// When: searching with a tight limit over a wide candidate pool
	hits, err := idx.Search(context.Background(), VectorQuery{
		Vector:        []float32{1, 0, 0},
		NumCandidates: 20,
		Limit:         5,
	})
	require.NoError(t, err)
	require.Len(t, hits, 5)

	// Then: hits come back nearest-first; rank assignment depends on it
	assert.True(t, sort.SliceIsSorted(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	}), "hits must be ordered by descending similarity")
	assert.Equal(t, "case-a", hits[0].DocKey)
}

func TestHNSWVector_PostFilters(t *testing.T) {
	idx := newTestVector(t)

	hits, err := idx.Search(context.Background(), VectorQuery{
		Vector:        []float32{1, 0, 0},
		NumCandidates: 10,
		Limit:         3,
		Filters:       map[string]string{"module": "records"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "case-2", hits[0].DocKey)
}

func TestHNSWVector_DimensionMismatch(t *testing.T) {
	idx := newTestVector(t)

	_, err := idx.Search(context.Background(), VectorQuery{Vector: []float32{1, 0}, Limit: 1})
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestHNSWVector_EmptyIndex(t *testing.T) {
	idx, err := NewHNSWVectorIndex(3)
	require.NoError(t, err)
	defer idx.Close()

	hits, err := idx.Search(context.Background(), VectorQuery{Vector: []float32{1, 0, 0}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWVector_ReinsertReplacesVector(t *testing.T) {
	idx := newTestVector(t)

	require.NoError(t, idx.Index(context.Background(),
		[]string{"case-1"}, [][]float32{{0, 0, 1}}, []map[string]string{{"module": "auth"}}))

	hits, err := idx.Search(context.Background(), VectorQuery{
		Vector:        []float32{0, 0, 1},
		NumCandidates: 10,
		Limit:         1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-1", hits[0].DocKey)
	assert.Equal(t, 3, idx.Count())
}

func TestHNSWVector_SaveAndLoad(t *testing.T) {
	idx := newTestVector(t)
	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, idx.Save(path))

	restored, err := NewHNSWVectorIndex(3)
	require.NoError(t, err)
	defer restored.Close()
	require.NoError(t, restored.Load(path))

	assert.Equal(t, 3, restored.Count())
	hits, err := restored.Search(context.Background(), VectorQuery{
		Vector:        []float32{0, 1, 0},
		NumCandidates: 10,
		Limit:         1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-2", hits[0].DocKey)
}
