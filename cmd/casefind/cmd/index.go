package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/akverma-qa/casefind/internal/store"
)

// defaultEmbedBatch is how many cases are embedded per progress report.
const defaultEmbedBatch = 64

// indexOptions holds CLI flags for index.
type indexOptions struct {
	file      string
	batchSize int
	offline   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build search indexes from exported test cases",
		Long: `Build search indexes from a JSON export of test cases.

The export is an array of cases with key, caseId, title, module,
priority, steps, and expectedResult fields. Each case is embedded and
written to the lexical index, the vector index, and the case catalog.

Examples:
  casefind index --file cases.json
  casefind index --file cases.json --data-dir ./qa-index --offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "JSON file of exported test cases (required)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", defaultEmbedBatch, "Cases embedded per batch")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use static embeddings (no embedding service)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	start := time.Now()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.batchSize <= 0 {
		opts.batchSize = defaultEmbedBatch
	}

	cases, err := loadCases(opts.file)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no test cases in %s", opts.file)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// One indexer at a time per data directory.
	lock, err := store.AcquireDirLock(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("another index run is in progress: %w", err)
	}
	defer func() { _ = lock.Release() }()

	embedder := newEmbedder(cfg, opts.offline)
	defer func() { _ = embedder.Close() }()
	if !embedder.Available(ctx) {
		return fmt.Errorf("embedding service at %s is unavailable; retry or pass --offline", cfg.Embeddings.Endpoint)
	}

	catalog, err := store.NewCaseStore(cfg.CatalogPath())
	if err != nil {
		return fmt.Errorf("open case catalog: %w", err)
	}
	defer func() { _ = catalog.Close() }()

	lexical, err := store.NewBleveLexicalIndex(cfg.LexicalIndexPath())
	if err != nil {
		return fmt.Errorf("open lexical index: %w", err)
	}
	defer func() { _ = lexical.Close() }()

	vector, err := store.NewHNSWVectorIndex(embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	defer func() { _ = vector.Close() }()

	fmt.Fprintf(out, "Indexing %d test cases with %s embeddings...\n", len(cases), embedder.ModelName())
	slog.Info("index_started", "file", opts.file, "cases", len(cases), "model", embedder.ModelName())

	for batchStart := 0; batchStart < len(cases); batchStart += opts.batchSize {
		batchEnd := batchStart + opts.batchSize
		if batchEnd > len(cases) {
			batchEnd = len(cases)
		}
		batch := cases[batchStart:batchEnd]

		keys := make([]string, len(batch))
		vectors := make([][]float32, len(batch))
		metas := make([]map[string]string, len(batch))
		for i, c := range batch {
			emb, err := embedder.Embed(ctx, c.SearchText())
			if err != nil {
				return fmt.Errorf("embed case %s: %w", c.CaseID, err)
			}
			keys[i] = c.Key
			vectors[i] = emb.Vector
			metas[i] = caseMeta(c)
		}

		if err := vector.Index(ctx, keys, vectors, metas); err != nil {
			return fmt.Errorf("index vectors: %w", err)
		}
		if err := lexical.Index(ctx, batch); err != nil {
			return fmt.Errorf("index lexical batch: %w", err)
		}
		if err := catalog.PutCases(ctx, batch); err != nil {
			return fmt.Errorf("store cases: %w", err)
		}

		fmt.Fprintf(out, "  %d/%d\n", batchEnd, len(cases))
		slog.Debug("index_batch_complete", "done", batchEnd, "total", len(cases))
	}

	if err := vector.Save(cfg.VectorIndexPath()); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Fprintf(out, "Indexed %d test cases in %s (%s)\n", len(cases), elapsed, cfg.Storage.DataDir)
	slog.Info("index_complete", "cases", len(cases), "elapsed", elapsed)
	return nil
}

// loadCases reads the ETL JSON export and fills in missing keys.
func loadCases(path string) ([]*store.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases file: %w", err)
	}

	var cases []*store.Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases file %s: %w", path, err)
	}

	for i, c := range cases {
		if c.CaseID == "" && c.Key == "" {
			return nil, fmt.Errorf("case %d has neither key nor caseId", i)
		}
		if c.Key == "" {
			c.Key = strings.ToLower(c.CaseID)
		}
	}
	return cases, nil
}

// caseMeta builds the filterable metadata stored beside each vector.
func caseMeta(c *store.Case) map[string]string {
	meta := map[string]string{}
	if c.Module != "" {
		meta["module"] = c.Module
	}
	if c.Priority != "" {
		meta["priority"] = c.Priority
	}
	return meta
}
