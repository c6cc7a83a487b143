package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCases() []*Case {
	return []*Case{
		{
			Key:            "case-1",
			CaseID:         "TC_101",
			Title:          "Patient login with one time password",
			Module:         "auth",
			Priority:       "P1",
			Steps:          "Open login page, enter unique health id, request otp code",
			ExpectedResult: "User lands on dashboard",
		},
		{
			Key:            "case-2",
			CaseID:         "TC_102",
			Title:          "Discharge summary download",
			Module:         "records",
			Priority:       "P2",
			Steps:          "Open patient record, click download summary",
			ExpectedResult: "PDF downloads with login user watermark",
		},
		{
			Key:            "case-3",
			CaseID:         "TC_103",
			Title:          "Appointment booking for outpatient department",
			Module:         "appointments",
			Priority:       "P1",
			Steps:          "Search doctor, pick slot, confirm booking",
			ExpectedResult: "Appointment appears in schedule",
		},
	}
}

func newTestLexical(t *testing.T) *BleveLexicalIndex {
	t.Helper()
	idx, err := NewBleveLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Index(context.Background(), testCases()))
	return idx
}

func TestBleveLexical_SearchReturnsOrderedHits(t *testing.T) {
	idx := newTestLexical(t)

	hits, err := idx.Search(context.Background(), LexicalQuery{
		Query: "patient login",
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// Scores come back in backend-native descending order.
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.Equal(t, "case-1", hits[0].DocKey)
}

func TestBleveLexical_CaseIDBoostDominates(t *testing.T) {
	idx := newTestLexical(t)

	// "TC_102" matches case-2 on the 10x case_id field; other cases can
	// only match weaker fields.
	hits, err := idx.Search(context.Background(), LexicalQuery{
		Query: "TC_102 login",
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-2", hits[0].DocKey)
}

func TestBleveLexical_KeywordFieldsMatchWithinMixedQueries(t *testing.T) {
	idx := newTestLexical(t)

	// A bare identifier query still hits its case directly.
	hits, err := idx.Search(context.Background(), LexicalQuery{
		Query: "TC_103",
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-3", hits[0].DocKey)

	// A module name inside a narrative query reaches the boosted
	// module field token by token.
	hits, err = idx.Search(context.Background(), LexicalQuery{
		Query: "appointments slot",
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-3", hits[0].DocKey)
}

func TestBleveLexical_FiltersRestrictResults(t *testing.T) {
	idx := newTestLexical(t)

	hits, err := idx.Search(context.Background(), LexicalQuery{
		Query:   "patient",
		Filters: map[string]string{"module": "records"},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "case-2", hits[0].DocKey)
}

func TestBleveLexical_FuzzyToleratesTypo(t *testing.T) {
	idx := newTestLexical(t)

	hits, err := idx.Search(context.Background(), LexicalQuery{
		Query: "discharge sumary",
		Fuzzy: FuzzyOptions{MaxEdits: 1, PrefixLength: 2},
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "case-2", hits[0].DocKey)
}

func TestBleveLexical_EmptyQueryYieldsNoHits(t *testing.T) {
	idx := newTestLexical(t)

	hits, err := idx.Search(context.Background(), LexicalQuery{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveLexical_Count(t *testing.T) {
	idx := newTestLexical(t)

	n, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
