package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 0.4, cfg.Search.BM25Weight)
	assert.Equal(t, 0.6, cfg.Search.VectorWeight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "rrf", cfg.Search.Method)
	assert.Equal(t, 50, cfg.Search.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.Search.LexicalTimeout)
	assert.False(t, cfg.Reranker.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
search:
  bm25_weight: 0.7
  vector_weight: 0.3
  method: weighted
  pool_size: 100
reranker:
  enabled: true
  top_k: 15
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".casefind.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Search.BM25Weight)
	assert.Equal(t, "weighted", cfg.Search.Method)
	assert.Equal(t, 100, cfg.Search.PoolSize)
	assert.True(t, cfg.Reranker.Enabled)
	assert.Equal(t, 15, cfg.Reranker.TopK)
	// Untouched fields keep defaults.
	assert.Equal(t, 60, cfg.Search.RRFConstant)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := "search:\n  rrf_constant: 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".casefind.yaml"), []byte(content), 0o644))

	t.Setenv("CASEFIND_RRF_CONSTANT", "90")
	t.Setenv("CASEFIND_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Search.RRFConstant)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_RejectsBadWeights(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.BM25Weight = 0.8
	cfg.Search.VectorWeight = 0.8

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must equal 1.0")
}

func TestValidate_RejectsUnknownMethod(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.Method = "borda"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.method")
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "grpc"

	require.Error(t, cfg.Validate())
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".casefind.yaml"), []byte("search: ["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestDerivedPaths(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.DataDir = "/data/casefind"

	assert.Equal(t, filepath.Join("/data/casefind", "lexical.bleve"), cfg.LexicalIndexPath())
	assert.Equal(t, filepath.Join("/data/casefind", "vectors.hnsw"), cfg.VectorIndexPath())
	assert.Equal(t, filepath.Join("/data/casefind", "cases.db"), cfg.CatalogPath())
}
