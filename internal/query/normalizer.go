// Package query transforms raw search input: normalization, structured
// identifier extraction, abbreviation expansion, and bounded synonym
// variant generation.
package query

import (
	"regexp"
	"strings"
)

// NormalizeOptions configures normalization.
type NormalizeOptions struct {
	// StripSpecial removes characters outside [a-z0-9\s-] after
	// lowercasing. Identifier tokens are never stripped.
	StripSpecial bool
}

// Normalized is the output of Normalize.
type Normalized struct {
	// Text is the normalized query: canonical identifiers first,
	// then the lowercased, whitespace-collapsed remainder.
	Text string `json:"text"`
	// Tokens is Text split on whitespace.
	Tokens []string `json:"tokens"`
	// Preserved holds identifiers extracted before lossy transformation.
	Preserved []PreservedToken `json:"preserved,omitempty"`
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	specialChars  = regexp.MustCompile(`[^a-z0-9\s-]`)
)

// Normalize lowercases, collapses whitespace, trims, and extracts
// structured identifiers into canonical PREFIX_<digits> form. Empty input
// yields a zero-value Normalized. Idempotent: normalizing the Text of a
// previous result reproduces it.
func Normalize(raw string, opts NormalizeOptions) Normalized {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Normalized{}
	}

	// Identifiers come out before lowercasing destroys the separator
	// distinction between e.g. TC-101 and "tc 101".
	preserved, remainder := ExtractIdentifiers(trimmed)

	body := strings.ToLower(remainder)
	if opts.StripSpecial {
		body = specialChars.ReplaceAllString(body, " ")
	}
	body = strings.TrimSpace(whitespaceRun.ReplaceAllString(body, " "))

	parts := make([]string, 0, len(preserved)+1)
	for _, p := range preserved {
		parts = append(parts, p.Canonical)
	}
	if body != "" {
		parts = append(parts, body)
	}
	text := strings.Join(parts, " ")

	n := Normalized{
		Text:      text,
		Preserved: preserved,
	}
	if text != "" {
		n.Tokens = strings.Fields(text)
	}
	return n
}
