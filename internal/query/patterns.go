package query

import (
	"regexp"
	"strings"
)

// idPattern matches structured identifiers: a letter prefix, a separator,
// and a run of digits. Covers TC-101, tc_101, HMS#2043 and similar forms.
// The separator must be explicit so phrases like "error 404" stay prose.
var idPattern = regexp.MustCompile(`\b([A-Za-z]{1,10})[_\-#:]+(\d{1,10})\b`)

// PreservedToken is a structured identifier extracted before lossy
// transformation. Every derived variant carries it verbatim.
type PreservedToken struct {
	// Canonical is the PREFIX_<digits> form.
	Canonical string `json:"canonical"`
	// Original is the text as it appeared in the raw query.
	Original string `json:"original"`
}

// ExtractIdentifiers finds structured IDs in text and returns the
// preserved tokens alongside the text with the matched spans removed.
// Canonical form is uppercase prefix, underscore, digits.
func ExtractIdentifiers(text string) ([]PreservedToken, string) {
	matches := idPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	var preserved []PreservedToken
	var remainder strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		prefix := text[m[2]:m[3]]
		digits := text[m[4]:m[5]]
		preserved = append(preserved, PreservedToken{
			Canonical: strings.ToUpper(prefix) + "_" + digits,
			Original:  text[start:end],
		})
		remainder.WriteString(text[last:start])
		remainder.WriteString(" ")
		last = end
	}
	remainder.WriteString(text[last:])

	return preserved, remainder.String()
}

// CanonicalID reports whether token already has the canonical
// PREFIX_<digits> identifier shape.
func CanonicalID(token string) bool {
	i := strings.IndexByte(token, '_')
	if i <= 0 || i == len(token)-1 {
		return false
	}
	for _, r := range token[:i] {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	for _, r := range token[i+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
