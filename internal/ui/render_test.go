package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akverma-qa/casefind/internal/query"
	"github.com/akverma-qa/casefind/internal/search"
	"github.com/akverma-qa/casefind/internal/store"
)

func sampleResponse() *search.Response {
	rank := 1
	return &search.Response{
		Query:   "UHID login",
		Variant: "unique health id login",
		Results: []*search.RankedResult{
			{
				FusedCandidate: &search.FusedCandidate{
					DocKey:     "case-1",
					FoundIn:    search.FoundInBoth,
					FusedScore: 0.0328,
					Lexical:    search.BackendScore{Rank: &rank},
				},
				Position:         1,
				OriginalPosition: 1,
				Case: &store.Case{
					Key:      "case-1",
					CaseID:   "TC_101",
					Title:    "Login with valid OTP",
					Module:   "Authentication",
					Priority: "P1",
				},
			},
			{
				FusedCandidate: &search.FusedCandidate{
					DocKey:     "case-2",
					FoundIn:    search.FoundInVector,
					FusedScore: 0.0161,
				},
				Position:         2,
				OriginalPosition: 2,
				RankChange:       -1,
			},
		},
		Count:           2,
		TotalCandidates: 5,
		Stats:           search.Stats{FoundInBoth: 1, FoundInVectorOnly: 4},
		Timing:          search.Timing{SearchTime: 12 * time.Millisecond, TotalTime: 15 * time.Millisecond},
		AbbrevMappings: []query.AbbrevMapping{
			{Abbrev: "uhid", Expansion: "unique health id", Position: 0},
		},
	}
}

func TestRender_ShowsResultsAndStats(t *testing.T) {
	// Given: a renderer writing to a buffer (no TTY, so no color)
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	// When: rendering a response
	r.Render(sampleResponse())
	out := buf.String()

	// Then: query, expansion, results, and coverage all appear
	assert.Contains(t, out, "UHID login")
	assert.Contains(t, out, "unique health id login")
	assert.Contains(t, out, "uhid -> unique health id")
	assert.Contains(t, out, "TC_101")
	assert.Contains(t, out, "Login with valid OTP")
	assert.Contains(t, out, "Authentication / P1")
	assert.Contains(t, out, "2 shown of 5 candidates")
	assert.Contains(t, out, "both=1 lexical=0 vector=4")
	assert.Contains(t, out, "down 1")
}

func TestRender_EmptyResults(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.Render(&search.Response{Query: "nothing here", Variant: "nothing here"})

	assert.Contains(t, buf.String(), "No matching test cases.")
}

func TestRender_RerankedResponse(t *testing.T) {
	// Given: a reranked response where the top result changed
	resp := sampleResponse()
	resp.Reranked = true
	resp.Stats.TopResultChanged = true
	score := 0.91
	resp.Results[0].RerankScore = &score

	var buf bytes.Buffer
	NewRenderer(&buf, true).Render(resp)
	out := buf.String()

	assert.Contains(t, out, "rerank 0.9100")
	assert.Contains(t, out, "top result changed")
}

func TestRender_ExplainBlock(t *testing.T) {
	resp := sampleResponse()
	resp.Explain = &search.Explain{
		NormalizedQuery: "TC_101 login",
		PreservedIDs:    []string{"TC_101"},
		Variants:        []string{"TC_101 login", "TC_101 signin"},
		LexicalElapsed:  "2ms",
		VectorElapsed:   "5ms",
		LexicalError:    "index closed",
	}

	var buf bytes.Buffer
	NewRenderer(&buf, true).Render(resp)
	out := buf.String()

	assert.Contains(t, out, "Explain")
	assert.Contains(t, out, "preserved ids: TC_101")
	assert.Contains(t, out, "variant 1: TC_101 signin")
	assert.Contains(t, out, "lexical error: index closed")
}

func TestIsTTY_BufferIsNotTerminal(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestGetStyles(t *testing.T) {
	// Plain styles render text unchanged.
	plain := GetStyles(true)
	assert.Equal(t, "x", plain.Header.Render("x"))

	colored := GetStyles(false)
	assert.Contains(t, colored.Header.Render("x"), "x")
}
