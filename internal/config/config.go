// Package config loads casefind configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.casefind.yaml in the working directory)
//  3. Environment variables (CASEFIND_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete casefind configuration.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
	Search       SearchConfig       `yaml:"search" json:"search"`
	Embeddings   EmbeddingsConfig   `yaml:"embeddings" json:"embeddings"`
	Reranker     RerankerConfig     `yaml:"reranker" json:"reranker"`
	Dictionaries DictionariesConfig `yaml:"dictionaries" json:"dictionaries"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// StorageConfig configures where indexes and the case catalog live.
type StorageConfig struct {
	// DataDir is the root directory for all persisted state.
	// Defaults to ~/.casefind.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures hybrid search parameters.
type SearchConfig struct {
	// BM25Weight is the weight for lexical matching in weighted fusion (0.0-1.0).
	// Must sum to 1.0 with VectorWeight.
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`

	// VectorWeight is the weight for vector similarity in weighted fusion (0.0-1.0).
	// Must sum to 1.0 with BM25Weight.
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// RRFConstant is the RRF fusion smoothing parameter (k).
	// Default: 60 (industry standard used by Azure AI Search, OpenSearch).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// Method selects the default fusion method: rrf, weighted, or reciprocal.
	Method string `yaml:"method" json:"method"`

	// MaxResults is the default result limit.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// PoolSize is how many candidates each backend retrieves before fusion.
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// LexicalTimeout bounds the lexical backend per search.
	LexicalTimeout time.Duration `yaml:"lexical_timeout" json:"lexical_timeout"`

	// VectorTimeout bounds the vector backend per search (embedding included).
	VectorTimeout time.Duration `yaml:"vector_timeout" json:"vector_timeout"`

	// FuzzyMaxEdits is the edit distance for fuzzy lexical matching (0-2).
	FuzzyMaxEdits int `yaml:"fuzzy_max_edits" json:"fuzzy_max_edits"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "http" or "static" (deterministic, for offline use).
	Provider   string        `yaml:"provider" json:"provider"`
	Endpoint   string        `yaml:"endpoint" json:"endpoint"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the LRU cache capacity for query embeddings.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// MaxRetries bounds transient-failure retries per request.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// RerankerConfig configures the optional external reranker.
type RerankerConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	// TopK is how many fused candidates are sent for reranking.
	TopK int `yaml:"top_k" json:"top_k"`
}

// DictionariesConfig configures the dictionary override file.
type DictionariesConfig struct {
	// Path is an optional YAML file with abbreviation and synonym
	// overrides. Entries merge over the built-in domain dictionaries.
	Path string `yaml:"path" json:"path"`
	// HotReload reloads the file on change.
	HotReload bool `yaml:"hot_reload" json:"hot_reload"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Search: SearchConfig{
			BM25Weight:   0.4,
			VectorWeight: 0.6,
			// RRF constant k=60 is industry standard (Azure AI Search, OpenSearch)
			RRFConstant:    60,
			Method:         "rrf",
			MaxResults:     10,
			PoolSize:       50,
			LexicalTimeout: 2 * time.Second,
			VectorTimeout:  5 * time.Second,
			FuzzyMaxEdits:  1,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "http",
			Endpoint:   "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			Timeout:    30 * time.Second,
			CacheSize:  1000,
			MaxRetries: 3,
		},
		Reranker: RerankerConfig{
			Enabled:  false,
			Endpoint: "http://localhost:9659",
			Model:    "bge-reranker-base",
			Timeout:  10 * time.Second,
			TopK:     20,
		},
		Dictionaries: DictionariesConfig{
			HotReload: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// defaultDataDir returns the default data directory (~/.casefind).
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".casefind")
	}
	return filepath.Join(home, ".casefind")
}

// LexicalIndexPath returns the on-disk path of the bleve index.
func (c *Config) LexicalIndexPath() string {
	return filepath.Join(c.Storage.DataDir, "lexical.bleve")
}

// VectorIndexPath returns the on-disk path of the vector index snapshot.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.Storage.DataDir, "vectors.hnsw")
}

// CatalogPath returns the on-disk path of the case catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Storage.DataDir, "cases.db")
}

// Load loads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .casefind.yaml or .casefind.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".casefind.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".casefind.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}

	// Search weights and RRF constant
	// Note: 0 is not a practical value for weights, so we only merge non-zero values
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.Method != "" {
		c.Search.Method = other.Search.Method
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.PoolSize != 0 {
		c.Search.PoolSize = other.Search.PoolSize
	}
	if other.Search.LexicalTimeout != 0 {
		c.Search.LexicalTimeout = other.Search.LexicalTimeout
	}
	if other.Search.VectorTimeout != 0 {
		c.Search.VectorTimeout = other.Search.VectorTimeout
	}
	if other.Search.FuzzyMaxEdits != 0 {
		c.Search.FuzzyMaxEdits = other.Search.FuzzyMaxEdits
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.MaxRetries != 0 {
		c.Embeddings.MaxRetries = other.Embeddings.MaxRetries
	}

	// Reranker
	// Enabled is boolean - merge it when any reranker field was set
	if other.Reranker.Endpoint != "" || other.Reranker.Model != "" ||
		other.Reranker.Timeout != 0 || other.Reranker.TopK != 0 || other.Reranker.Enabled {
		c.Reranker.Enabled = other.Reranker.Enabled
	}
	if other.Reranker.Endpoint != "" {
		c.Reranker.Endpoint = other.Reranker.Endpoint
	}
	if other.Reranker.Model != "" {
		c.Reranker.Model = other.Reranker.Model
	}
	if other.Reranker.Timeout != 0 {
		c.Reranker.Timeout = other.Reranker.Timeout
	}
	if other.Reranker.TopK != 0 {
		c.Reranker.TopK = other.Reranker.TopK
	}

	// Dictionaries
	if other.Dictionaries.Path != "" {
		c.Dictionaries.Path = other.Dictionaries.Path
	}
	if other.Dictionaries.HotReload {
		c.Dictionaries.HotReload = true
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies CASEFIND_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CASEFIND_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("CASEFIND_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("CASEFIND_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("CASEFIND_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("CASEFIND_FUSION_METHOD"); v != "" {
		c.Search.Method = v
	}
	if v := os.Getenv("CASEFIND_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CASEFIND_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("CASEFIND_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CASEFIND_RERANKER_ENABLED"); v != "" {
		c.Reranker.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("CASEFIND_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("CASEFIND_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("vector_weight must be between 0 and 1, got %f", c.Search.VectorWeight)
	}

	sum := c.Search.BM25Weight + c.Search.VectorWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + vector_weight must equal 1.0, got %.2f", sum)
	}

	validMethods := map[string]bool{"rrf": true, "weighted": true, "reciprocal": true}
	if !validMethods[strings.ToLower(c.Search.Method)] {
		return fmt.Errorf("search.method must be 'rrf', 'weighted', or 'reciprocal', got %s", c.Search.Method)
	}

	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.Search.PoolSize)
	}
	if c.Search.FuzzyMaxEdits < 0 || c.Search.FuzzyMaxEdits > 2 {
		return fmt.Errorf("fuzzy_max_edits must be 0, 1, or 2, got %d", c.Search.FuzzyMaxEdits)
	}

	validProviders := map[string]bool{"http": true, "static": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return fmt.Errorf("embeddings.provider must be 'http' or 'static', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
