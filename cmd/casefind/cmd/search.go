package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akverma-qa/casefind/internal/config"
	"github.com/akverma-qa/casefind/internal/embed"
	"github.com/akverma-qa/casefind/internal/query"
	"github.com/akverma-qa/casefind/internal/search"
	"github.com/akverma-qa/casefind/internal/store"
	"github.com/akverma-qa/casefind/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit        int
	poolSize     int
	method       string
	bm25Weight   float64
	vectorWeight float64
	rerank       bool
	filters      []string // key=value pairs

	bm25WeightSet   bool
	vectorWeightSet bool
	allVariants     bool
	format          string // "text", "json"
	explain         bool
	offline         bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed test cases",
		Long: `Search indexed test cases with hybrid retrieval.

The query is normalized, abbreviations expanded, and synonym variants
generated. Lexical and vector backends run concurrently and their
results are merged with rank fusion.

Examples:
  casefind search "UHID patient login issue"
  casefind search "OTP not working" -n 5 --filter module=Authentication
  casefind search "discharge summary" --method weighted --vector-weight 0.7
  casefind search "payment failed" --rerank --explain
  casefind search "appointment crash" --all-variants --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.bm25WeightSet = cmd.Flags().Changed("bm25-weight")
			opts.vectorWeightSet = cmd.Flags().Changed("vector-weight")
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.poolSize, "pool", 0, "Candidates retrieved per backend before fusion")
	cmd.Flags().StringVar(&opts.method, "method", "", "Fusion method: rrf, weighted, reciprocal")
	cmd.Flags().Float64Var(&opts.bm25Weight, "bm25-weight", 0, "Lexical weight for weighted fusion")
	cmd.Flags().Float64Var(&opts.vectorWeight, "vector-weight", 0, "Vector weight for weighted fusion")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank top candidates with the external service")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "Field filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.allVariants, "all-variants", false, "Search every synonym variant and merge")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the query transformation and backend diagnostics")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no embedding service)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, rawQuery string, opts searchOptions) error {
	filters, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}
	if opts.method != "" && !search.FusionMethod(opts.method).Valid() {
		return fmt.Errorf("unknown fusion method %q: want rrf, weighted, or reciprocal", opts.method)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.CatalogPath()); os.IsNotExist(err) {
		return fmt.Errorf("no index found in %s. Run 'casefind index' first", cfg.Storage.DataDir)
	}

	slog.Info("search_requested", "query", rawQuery, "limit", opts.limit, "rerank", opts.rerank)

	cases, err := store.NewCaseStore(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("open case catalog: %w", err)
	}
	defer func() { _ = cases.Close() }()

	lexical, err := store.NewBleveLexicalIndex(cfg.LexicalIndexPath())
	if err != nil {
		return fmt.Errorf("open lexical index: %w", err)
	}
	defer func() { _ = lexical.Close() }()

	embedder := newEmbedder(cfg, opts.offline)
	defer func() { _ = embedder.Close() }()

	vector, err := store.NewHNSWVectorIndex(embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	defer func() { _ = vector.Close() }()
	if _, err := os.Stat(cfg.VectorIndexPath()); err == nil {
		if err := vector.Load(cfg.VectorIndexPath()); err != nil {
			slog.Warn("vector_load_failed", "path", cfg.VectorIndexPath(), "error", err)
		}
	}

	engine, cleanup, err := newEngine(cfg, lexical, vector, embedder, cases, opts.rerank)
	if err != nil {
		return err
	}
	defer cleanup()

	searchOpts := buildSearchOptions(cfg, opts, filters)
	resp, err := engine.Search(ctx, rawQuery, searchOpts)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			return fmt.Errorf("query is empty")
		case errors.Is(err, search.ErrNoBackends):
			return fmt.Errorf("search backends unavailable: %w", err)
		default:
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	ui.NewRenderer(cmd.OutOrStdout(), noColor).Render(resp)
	return nil
}

// newEmbedder selects the embedding provider. Offline mode and the
// "static" provider use deterministic local embeddings.
func newEmbedder(cfg *config.Config, offline bool) embed.Embedder {
	if offline || cfg.Embeddings.Provider == "static" {
		return embed.NewStaticEmbedder()
	}
	httpEmbedder := embed.NewHTTPEmbedder(
		cfg.Embeddings.Endpoint,
		cfg.Embeddings.Model,
		cfg.Embeddings.Dimensions,
		embed.WithTimeout(cfg.Embeddings.Timeout),
	)
	return embed.NewCachedEmbedder(httpEmbedder, cfg.Embeddings.CacheSize)
}

// newEngine assembles the search engine from configuration. The
// returned cleanup closes the dictionary watcher.
func newEngine(cfg *config.Config, lexical store.LexicalIndex, vector store.VectorIndex, embedder embed.Embedder, cases *store.CaseStore, rerank bool) (*search.Engine, func(), error) {
	engineOpts := []search.EngineOption{
		search.WithRRFConstant(cfg.Search.RRFConstant),
		search.WithFuzzy(store.FuzzyOptions{MaxEdits: cfg.Search.FuzzyMaxEdits, PrefixLength: 2}),
		search.WithEngineLogger(slog.Default()),
	}

	cleanup := func() {}
	if cfg.Dictionaries.Path != "" {
		dict, err := query.NewDictionaryFile(cfg.Dictionaries.Path, slog.Default())
		if err != nil {
			return nil, nil, fmt.Errorf("load dictionary overrides: %w", err)
		}
		if cfg.Dictionaries.HotReload {
			if err := dict.Watch(); err != nil {
				slog.Warn("dictionary_watch_failed", "error", err)
			}
		}
		engineOpts = append(engineOpts, search.WithDictionary(dict))
		cleanup = func() { _ = dict.Close() }
	}

	if rerank || cfg.Reranker.Enabled {
		reranker := search.NewHTTPReranker(cfg.Reranker.Endpoint, cfg.Reranker.Model, cfg.Reranker.Timeout, slog.Default())
		engineOpts = append(engineOpts,
			search.WithReranker(reranker),
			search.WithRerankPoolSize(cfg.Reranker.TopK))
	}

	return search.NewEngine(lexical, vector, embedder, cases, engineOpts...), cleanup, nil
}

// buildSearchOptions merges CLI flags over configured defaults.
func buildSearchOptions(cfg *config.Config, opts searchOptions, filters map[string]string) search.Options {
	out := search.Options{
		Limit:          cfg.Search.MaxResults,
		PoolSize:       cfg.Search.PoolSize,
		Method:         search.FusionMethod(cfg.Search.Method),
		Filters:        filters,
		UseReranker:    opts.rerank || cfg.Reranker.Enabled,
		AllVariants:    opts.allVariants,
		Explain:        opts.explain,
		LexicalTimeout: cfg.Search.LexicalTimeout,
		VectorTimeout:  cfg.Search.VectorTimeout,
	}

	if opts.limit > 0 {
		out.Limit = opts.limit
	}
	if opts.poolSize > 0 {
		out.PoolSize = opts.poolSize
	}
	if opts.method != "" {
		out.Method = search.FusionMethod(opts.method)
	}

	// Each weight flag overrides its configured default on its own, so
	// passing only one keeps the other at the configured value.
	weights := search.Weights{BM25: cfg.Search.BM25Weight, Vector: cfg.Search.VectorWeight}
	if opts.bm25WeightSet {
		weights.BM25 = opts.bm25Weight
	}
	if opts.vectorWeightSet {
		weights.Vector = opts.vectorWeight
	}
	out.Weights = &weights

	return out
}

// parseFilters converts key=value pairs to a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return filters, nil
}
