package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/akverma-qa/casefind/internal/embed"
	"github.com/akverma-qa/casefind/internal/query"
	"github.com/akverma-qa/casefind/internal/store"
)

// DefaultMaxVariants bounds synonym variant generation.
const DefaultMaxVariants = 5

// Engine runs the whole pipeline: query transformation, concurrent
// retrieval, reconciliation, fusion, optional rerank, assembly.
// Engines are stateless per request and safe for concurrent use.
type Engine struct {
	lexical  store.LexicalIndex
	vector   store.VectorIndex
	embedder embed.Embedder
	cases    *store.CaseStore
	reranker Reranker
	dict     *query.DictionaryFile

	fuser        *Fuser
	fuzzy        store.FuzzyOptions
	maxVariants  int
	rerankPool   int
	stripSpecial bool
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReranker sets the external relevance oracle.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) { e.reranker = r }
}

// WithDictionary sets the override dictionary source.
func WithDictionary(d *query.DictionaryFile) EngineOption {
	return func(e *Engine) { e.dict = d }
}

// WithRRFConstant overrides the RRF smoothing constant.
func WithRRFConstant(k int) EngineOption {
	return func(e *Engine) { e.fuser = NewFuserWithK(k) }
}

// WithFuzzy sets lexical fuzzy matching bounds.
func WithFuzzy(f store.FuzzyOptions) EngineOption {
	return func(e *Engine) { e.fuzzy = f }
}

// WithMaxVariants bounds synonym variant generation.
func WithMaxVariants(n int) EngineOption {
	return func(e *Engine) { e.maxVariants = n }
}

// WithRerankPoolSize sets how many fused candidates go to the oracle.
func WithRerankPoolSize(n int) EngineOption {
	return func(e *Engine) { e.rerankPool = n }
}

// WithStripSpecial strips non-alphanumeric characters during
// normalization.
func WithStripSpecial(enabled bool) EngineOption {
	return func(e *Engine) { e.stripSpecial = enabled }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine wires the pipeline over its backends.
func NewEngine(lexical store.LexicalIndex, vector store.VectorIndex, embedder embed.Embedder, cases *store.CaseStore, opts ...EngineOption) *Engine {
	e := &Engine{
		lexical:     lexical,
		vector:      vector,
		embedder:    embedder,
		cases:       cases,
		reranker:    NoOpReranker{},
		fuser:       NewFuser(),
		fuzzy:       store.FuzzyOptions{MaxEdits: 1, PrefixLength: 2},
		maxVariants: DefaultMaxVariants,
		rerankPool:  DefaultRerankPoolSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search executes one request. Empty queries fail fast with
// ErrInvalidQuery before any backend call; both backends failing
// surfaces ErrNoBackends; a single backend failing degrades silently.
func (e *Engine) Search(ctx context.Context, raw string, opts Options) (*Response, error) {
	start := time.Now()
	opts.applyDefaults()

	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidQuery
	}

	// Stage 1: transformation.
	norm := query.Normalize(raw, query.NormalizeOptions{StripSpecial: e.stripSpecial})
	expansion := query.ExpandAbbreviations(norm.Text, e.abbreviations())
	variants := query.GenerateVariants(expansion.Text, e.synonyms(), e.maxVariants, norm.Preserved)
	primary := variants.Strings[0]

	e.logger.Debug("search_started",
		"query", raw,
		"normalized", norm.Text,
		"primary_variant", primary,
		"method", opts.Method)
	if len(variants.Strings) > 1 {
		e.logger.Debug("variant_generated", "count", len(variants.Strings)-1)
	}

	orch := &orchestrator{
		lexical:  e.lexical,
		vector:   e.vector,
		embedder: e.embedder,
		fuzzy:    e.fuzzy,
		logger:   e.logger,
	}

	// Stage 2+3: retrieval and fusion.
	searchStart := time.Now()
	var fused []*FusedCandidate
	var ret retrieval
	if opts.AllVariants && len(variants.Strings) > 1 {
		var err error
		fused, ret, err = e.runVariants(ctx, orch, variants.Strings, &opts)
		if err != nil {
			return nil, err
		}
	} else {
		ret = orch.retrieve(ctx, primary, &opts)
		if ret.lexical.err != nil && ret.vector.err != nil {
			return nil, ErrNoBackends
		}
	}
	searchTime := time.Since(searchStart)

	fusionStart := time.Now()
	if fused == nil {
		fused = e.fuseRetrieval(ret, opts.Method, *opts.Weights)
	}
	fusionTime := time.Since(fusionStart)

	// Stage 4: hydrate enough cases to cover reranking and output.
	hydrateCount := opts.Limit
	if opts.UseReranker && e.rerankPool > hydrateCount {
		hydrateCount = e.rerankPool
	}
	caseMap := e.hydrate(ctx, fused, hydrateCount)

	// Stage 5: optional rerank.
	rerankStart := time.Now()
	results, reranked, topChanged := e.rerank(ctx, primary, fused, caseMap, &opts)
	rerankTime := time.Duration(0)
	if reranked {
		rerankTime = time.Since(rerankStart)
	}

	resp := assemble(results, fused, opts, reranked, topChanged)
	resp.Query = raw
	resp.Variant = primary
	resp.AbbrevMappings = expansion.Mappings
	resp.SynonymMappings = variants.Mappings
	resp.Timing = Timing{
		SearchTime: searchTime,
		FusionTime: fusionTime,
		RerankTime: rerankTime,
		TotalTime:  time.Since(start),
	}
	if opts.Explain {
		resp.Explain = e.explain(norm, variants, ret)
	}

	e.logger.Debug("search_complete",
		"count", resp.Count,
		"total_candidates", resp.TotalCandidates,
		"reranked", resp.Reranked,
		"total_time", resp.Timing.TotalTime)

	return resp, nil
}

// fuseRetrieval reconciles both branches and fuses them.
func (e *Engine) fuseRetrieval(ret retrieval, method FusionMethod, weights Weights) []*FusedCandidate {
	lexNorm := Reconcile(ret.lexical.candidates)
	vecNorm := Reconcile(ret.vector.candidates)
	return e.fuser.Fuse(ret.lexical.candidates, ret.vector.candidates, lexNorm, vecNorm, method, weights)
}

// hydrate batch-loads cases for the top n fused candidates.
func (e *Engine) hydrate(ctx context.Context, fused []*FusedCandidate, n int) map[string]*store.Case {
	if e.cases == nil || len(fused) == 0 {
		return nil
	}
	if n > len(fused) {
		n = len(fused)
	}
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fused[i].DocKey
	}
	caseMap, err := e.cases.GetCases(ctx, keys)
	if err != nil {
		e.logger.Warn("case_hydration_failed", "error", err)
		return nil
	}
	return caseMap
}

// rerank applies the external oracle to the fused top pool when enabled
// and available. Any oracle failure skips the stage; the fused order
// stands.
func (e *Engine) rerank(ctx context.Context, queryText string, fused []*FusedCandidate, caseMap map[string]*store.Case, opts *Options) (results []*RankedResult, reranked, topChanged bool) {
	results = make([]*RankedResult, len(fused))
	for i, fc := range fused {
		results[i] = &RankedResult{
			FusedCandidate:   fc,
			OriginalPosition: i + 1,
			Position:         i + 1,
		}
		if caseMap != nil {
			results[i].Case = caseMap[fc.DocKey]
		}
	}

	if !opts.UseReranker {
		return results, false, false
	}
	if !e.reranker.Available(ctx) {
		e.logger.Debug("rerank_skipped", "reason", "oracle unavailable")
		return results, false, false
	}

	pool := e.rerankPool
	if pool > len(results) {
		pool = len(results)
	}
	if pool == 0 {
		return results, false, false
	}

	documents := make([]string, pool)
	for i := 0; i < pool; i++ {
		if c := results[i].Case; c != nil {
			documents[i] = c.SearchText()
		} else {
			documents[i] = results[i].DocKey
		}
	}

	scores, err := e.reranker.Rerank(ctx, queryText, documents)
	if err != nil {
		e.logger.Warn("rerank_skipped", "reason", "oracle error", "error", err)
		return results, false, false
	}

	topBefore := results[0].DocKey
	for i := 0; i < pool; i++ {
		score := scores[i]
		improvement := (score - results[i].FusedScore) * 100
		results[i].RerankScore = &score
		results[i].ScoreImprovement = &improvement
	}

	reorderByRerank(results[:pool])
	for i, r := range results {
		r.Position = i + 1
	}

	return results, true, results[0].DocKey != topBefore
}

// abbreviations returns the active abbreviation dictionary.
func (e *Engine) abbreviations() map[string]string {
	if e.dict != nil {
		return e.dict.Abbreviations()
	}
	return nil // ExpandAbbreviations falls back to the built-ins
}

// synonyms returns the active synonym dictionary.
func (e *Engine) synonyms() map[string][]string {
	if e.dict != nil {
		return e.dict.Synonyms()
	}
	return nil
}

// explain builds the diagnostics block.
func (e *Engine) explain(norm query.Normalized, variants query.Variants, ret retrieval) *Explain {
	ex := &Explain{
		NormalizedQuery: norm.Text,
		Variants:        variants.Strings,
		LexicalElapsed:  ret.lexical.elapsed.String(),
		VectorElapsed:   ret.vector.elapsed.String(),
	}
	for _, p := range norm.Preserved {
		ex.PreservedIDs = append(ex.PreservedIDs, p.Canonical)
	}
	if ret.lexical.err != nil {
		ex.LexicalError = ret.lexical.err.Error()
	}
	if ret.vector.err != nil {
		ex.VectorError = ret.vector.err.Error()
	}
	return ex
}
