package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWVectorIndex implements VectorIndex using the coder/hnsw pure Go
// graph with cosine distance. A metadata map per document supports
// post-filtering of KNN results.
type HNSWVectorIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	dimensions int

	idMap   map[string]uint64 // doc key -> internal key
	keyMap  map[uint64]string // internal key -> doc key
	meta    map[string]map[string]string
	nextKey uint64

	closed bool
}

var _ VectorIndex = (*HNSWVectorIndex)(nil)

// hnswSnapshot is the gob-encoded sidecar next to the graph export.
type hnswSnapshot struct {
	IDMap      map[string]uint64
	Meta       map[string]map[string]string
	NextKey    uint64
	Dimensions int
}

// NewHNSWVectorIndex creates an empty vector index.
func NewHNSWVectorIndex(dimensions int) (*HNSWVectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &HNSWVectorIndex{
		graph:      graph,
		dimensions: dimensions,
		idMap:      make(map[string]uint64),
		keyMap:     make(map[uint64]string),
		meta:       make(map[string]map[string]string),
	}, nil
}

// Index inserts vectors keyed by document key. meta may be nil or carry
// one filterable attribute map per key. Re-inserting a key lazily
// orphans the old graph node.
func (s *HNSWVectorIndex) Index(_ context.Context, keys []string, vectors [][]float32, meta []map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) != len(vectors) {
		return fmt.Errorf("keys and vectors length mismatch: %d vs %d", len(keys), len(vectors))
	}
	if meta != nil && len(meta) != len(keys) {
		return fmt.Errorf("keys and meta length mismatch: %d vs %d", len(keys), len(meta))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, v := range vectors {
		if len(v) != s.dimensions {
			return ErrDimensionMismatch{Expected: s.dimensions, Got: len(v)}
		}
	}

	for i, id := range keys {
		// Lazy deletion on re-insert: deleting nodes breaks the
		// coder/hnsw graph in edge cases, orphan the old key instead.
		if existing, ok := s.idMap[id]; ok {
			delete(s.keyMap, existing)
			delete(s.idMap, id)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
		if meta != nil {
			s.meta[id] = meta[i]
		}
	}

	return nil
}

// Search finds the nearest neighbors of q.Vector. NumCandidates drives
// oversampling so post-filters and orphaned nodes still leave Limit
// survivors.
func (s *HNSWVectorIndex) Search(_ context.Context, q VectorQuery) ([]*VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(q.Vector) != s.dimensions {
		return nil, ErrDimensionMismatch{Expected: s.dimensions, Got: len(q.Vector)}
	}
	if s.graph.Len() == 0 {
		return []*VectorHit{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	candidates := q.NumCandidates
	if candidates < limit {
		candidates = limit
	}

	vec := make([]float32, len(q.Vector))
	copy(vec, q.Vector)
	normalizeInPlace(vec)

	nodes := s.graph.Search(vec, candidates)

	// Graph traversal order is not nearest-first; score every survivor
	// and sort before truncating. Callers assign 1-based ranks from the
	// returned order.
	hits := make([]*VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			// Orphaned by lazy deletion.
			continue
		}
		if !matchesFilters(s.meta[id], q.Filters) {
			continue
		}

		distance := s.graph.Distance(vec, node.Value)
		hits = append(hits, &VectorHit{
			DocKey: id,
			// Cosine distance ranges 0-2; map onto a 0-1 similarity.
			Score: float64(1.0 - distance/2.0),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// matchesFilters applies key/value equality constraints.
func matchesFilters(meta map[string]string, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	for k, want := range filters {
		if meta[k] != want {
			return false
		}
	}
	return true
}

// Count returns the number of live vectors.
func (s *HNSWVectorIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Save persists the graph and its sidecar metadata atomically
// (temp file + rename).
func (s *HNSWVectorIndex) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := s.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return s.saveSnapshot(path + ".meta")
}

func (s *HNSWVectorIndex) saveSnapshot(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}

	snap := hnswSnapshot{
		IDMap:      s.idMap,
		Meta:       s.meta,
		NextKey:    s.nextKey,
		Dimensions: s.dimensions,
	}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load restores a saved index from disk.
func (s *HNSWVectorIndex) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("vector index is closed")
	}

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer metaFile.Close()

	var snap hnswSnapshot
	if err := gob.NewDecoder(metaFile).Decode(&snap); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	// bufio because Import requires io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	s.idMap = snap.IDMap
	s.meta = snap.Meta
	s.nextKey = snap.NextKey
	s.dimensions = snap.Dimensions
	s.keyMap = make(map[uint64]string, len(snap.IDMap))
	for id, key := range snap.IDMap {
		s.keyMap[key] = id
	}
	if s.meta == nil {
		s.meta = make(map[string]map[string]string)
	}

	return nil
}

// Close releases resources.
func (s *HNSWVectorIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}

// normalizeInPlace normalizes a vector to unit length in place.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
