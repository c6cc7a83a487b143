package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// bleveCase is the document shape stored in the bleve index.
type bleveCase struct {
	CaseID         string `json:"case_id"`
	Title          string `json:"title"`
	Module         string `json:"module"`
	Priority       string `json:"priority"`
	Steps          string `json:"steps"`
	ExpectedResult string `json:"expected_result"`
	Tags           string `json:"tags"`
}

// BleveLexicalIndex implements LexicalIndex on a bleve BM25 index.
type BleveLexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ LexicalIndex = (*BleveLexicalIndex)(nil)

// NewBleveLexicalIndex opens (or creates) the index at path.
// An empty path creates an in-memory index.
func NewBleveLexicalIndex(path string) (*BleveLexicalIndex, error) {
	indexMapping := createCaseMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveLexicalIndex{index: idx, path: path}, nil
}

// keywordFieldPaths are the exact-match fields of the case mapping.
// Search issues per-token term queries against these instead of
// analyzed match queries.
var keywordFieldPaths = map[string]bool{
	"case_id":  true,
	"module":   true,
	"priority": true,
}

// createCaseMapping builds the field mapping for test case documents.
// case_id and module are keyword fields so filters and ID lookups match
// exactly; narrative fields use the standard analyzer.
func createCaseMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	textField := bleve.NewTextFieldMapping()

	caseMapping := bleve.NewDocumentMapping()
	caseMapping.AddFieldMappingsAt("case_id", keywordField)
	caseMapping.AddFieldMappingsAt("module", keywordField)
	caseMapping.AddFieldMappingsAt("priority", keywordField)
	caseMapping.AddFieldMappingsAt("title", textField)
	caseMapping.AddFieldMappingsAt("steps", textField)
	caseMapping.AddFieldMappingsAt("expected_result", textField)
	caseMapping.AddFieldMappingsAt("tags", textField)

	indexMapping.DefaultMapping = caseMapping
	return indexMapping
}

// Index adds test cases to the index in one batch.
func (b *BleveLexicalIndex) Index(ctx context.Context, cases []*Case) error {
	if len(cases) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := b.index.NewBatch()
	for _, c := range cases {
		doc := bleveCase{
			CaseID:         c.CaseID,
			Title:          c.Title,
			Module:         c.Module,
			Priority:       c.Priority,
			Steps:          c.Steps,
			ExpectedResult: c.ExpectedResult,
			Tags:           strings.Join(c.Tags, " "),
		}
		if err := batch.Index(c.Key, doc); err != nil {
			return fmt.Errorf("index case %s: %w", c.Key, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Search runs a compound boosted keyword query: a disjunction of
// per-field match queries (fuzziness applied to narrative fields),
// conjoined with exact term filters. Hits come back in backend-native
// score order.
func (b *BleveLexicalIndex) Search(ctx context.Context, q LexicalQuery) ([]*LexicalHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}
	if strings.TrimSpace(q.Query) == "" {
		return []*LexicalHit{}, nil
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = DefaultFieldBoosts()
	}

	var fieldQueries []query.Query
	for _, f := range fields {
		if keywordFieldPaths[f.Path] {
			// Keyword fields analyze the whole match input to a single
			// term, so a mixed query would never hit them. Query each
			// token exactly instead; identifier tokens arrive already
			// canonicalized.
			for _, token := range strings.Fields(q.Query) {
				tq := bleve.NewTermQuery(token)
				tq.SetField(f.Path)
				tq.SetBoost(f.Weight)
				fieldQueries = append(fieldQueries, tq)
			}
			continue
		}

		mq := bleve.NewMatchQuery(q.Query)
		mq.SetField(f.Path)
		mq.SetBoost(f.Weight)
		if q.Fuzzy.MaxEdits > 0 {
			mq.SetFuzziness(q.Fuzzy.MaxEdits)
			mq.SetPrefix(q.Fuzzy.PrefixLength)
		}
		fieldQueries = append(fieldQueries, mq)
	}
	compound := query.Query(bleve.NewDisjunctionQuery(fieldQueries...))

	if len(q.Filters) > 0 {
		parts := []query.Query{compound}
		for field, value := range q.Filters {
			tq := bleve.NewTermQuery(value)
			tq.SetField(field)
			parts = append(parts, tq)
		}
		compound = bleve.NewConjunctionQuery(parts...)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(compound)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]*LexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, &LexicalHit{DocKey: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (b *BleveLexicalIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("lexical index is closed")
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return int(n), nil
}

// Close releases the index.
func (b *BleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
