package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/akverma-qa/casefind/internal/search"
)

// Renderer writes search responses as human-readable text.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer. Color is enabled only when out is a
// terminal and NO_COLOR is unset.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	if !IsTTY(out) || DetectNoColor() {
		noColor = true
	}
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// Render writes the full response: transformation summary, results,
// coverage stats, and timing.
func (r *Renderer) Render(resp *search.Response) {
	s := r.styles

	r.printf("%s %s\n", s.Label.Render("Query:"), s.Title.Render(resp.Query))
	if resp.Variant != resp.Query {
		r.printf("%s %s\n", s.Label.Render("Searched as:"), resp.Variant)
	}
	r.renderMappings(resp)
	r.printf("\n")

	if len(resp.Results) == 0 {
		r.printf("%s\n", s.Dim.Render("No matching test cases."))
		return
	}

	for _, result := range resp.Results {
		r.renderResult(result)
	}

	r.renderStats(resp)
	r.renderTiming(resp)
	if resp.Explain != nil {
		r.renderExplain(resp.Explain)
	}
}

// renderMappings prints the abbreviation and synonym substitutions that
// shaped the searched variant.
func (r *Renderer) renderMappings(resp *search.Response) {
	s := r.styles
	for _, m := range resp.AbbrevMappings {
		r.printf("  %s %s\n", s.Dim.Render("expanded"), fmt.Sprintf("%s -> %s", m.Abbrev, m.Expansion))
	}
	for _, m := range resp.SynonymMappings {
		r.printf("  %s %s\n", s.Dim.Render("synonyms"), fmt.Sprintf("%s: %s", m.Term, strings.Join(m.Synonyms, ", ")))
	}
}

func (r *Renderer) renderResult(result *search.RankedResult) {
	s := r.styles

	caseID := result.DocKey
	title := ""
	if result.Case != nil {
		caseID = result.Case.CaseID
		title = result.Case.Title
	}

	r.printf("%s %s %s\n",
		s.Header.Render(fmt.Sprintf("%2d.", result.Position)),
		s.CaseID.Render(caseID),
		s.Title.Render(title))

	score := result.FusedScore
	scoreLabel := "fused"
	if result.RerankScore != nil {
		score = *result.RerankScore
		scoreLabel = "rerank"
	}
	line := fmt.Sprintf("%s %.4f  %s %s", scoreLabel, score, "via", result.FoundIn)
	if delta := rankDelta(result, s); delta != "" {
		line += "  " + delta
	}
	r.printf("    %s\n", s.Score.Render(line))

	if result.Case != nil && result.Case.Module != "" {
		meta := result.Case.Module
		if result.Case.Priority != "" {
			meta += " / " + result.Case.Priority
		}
		r.printf("    %s\n", s.Provenance.Render(meta))
	}
}

// rankDelta formats the movement between backend rank and final position.
func rankDelta(result *search.RankedResult, s Styles) string {
	switch {
	case result.RankChange > 0:
		return s.Up.Render(fmt.Sprintf("up %d", result.RankChange))
	case result.RankChange < 0:
		return s.Down.Render(fmt.Sprintf("down %d", -result.RankChange))
	default:
		return ""
	}
}

func (r *Renderer) renderStats(resp *search.Response) {
	s := r.styles
	r.printf("\n%s %d shown of %d candidates  %s both=%d lexical=%d vector=%d\n",
		s.Label.Render("Results:"),
		resp.Count, resp.TotalCandidates,
		s.Dim.Render("coverage:"),
		resp.Stats.FoundInBoth,
		resp.Stats.FoundInLexicalOnly,
		resp.Stats.FoundInVectorOnly)
	if resp.Reranked {
		note := "reranked"
		if resp.Stats.TopResultChanged {
			note = "reranked, top result changed"
		}
		r.printf("%s %s\n", s.Label.Render("Oracle:"), s.Warning.Render(note))
	}
}

func (r *Renderer) renderTiming(resp *search.Response) {
	s := r.styles
	line := fmt.Sprintf("search=%s fusion=%s", resp.Timing.SearchTime, resp.Timing.FusionTime)
	if resp.Reranked {
		line += fmt.Sprintf(" rerank=%s", resp.Timing.RerankTime)
	}
	line += fmt.Sprintf(" total=%s", resp.Timing.TotalTime)
	r.printf("%s %s\n", s.Label.Render("Timing:"), s.Dim.Render(line))
}

func (r *Renderer) renderExplain(ex *search.Explain) {
	s := r.styles
	r.printf("\n%s\n", s.Header.Render("Explain"))
	r.printf("  %s %s\n", s.Label.Render("normalized:"), ex.NormalizedQuery)
	if len(ex.PreservedIDs) > 0 {
		r.printf("  %s %s\n", s.Label.Render("preserved ids:"), strings.Join(ex.PreservedIDs, ", "))
	}
	for i, v := range ex.Variants {
		r.printf("  %s %s\n", s.Label.Render(fmt.Sprintf("variant %d:", i)), v)
	}
	r.printf("  %s lexical=%s vector=%s\n", s.Label.Render("backend latency:"), ex.LexicalElapsed, ex.VectorElapsed)
	if ex.LexicalError != "" {
		r.printf("  %s %s\n", s.Error.Render("lexical error:"), ex.LexicalError)
	}
	if ex.VectorError != "" {
		r.printf("  %s %s\n", s.Error.Render("vector error:"), ex.VectorError)
	}
}

// Errorf writes an error line.
func (r *Renderer) Errorf(format string, args ...any) {
	r.printf("%s\n", r.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// printf ignores write errors, console output only.
func (r *Renderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
