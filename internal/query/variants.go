package query

import (
	"sort"
	"strings"
)

// DomainSynonyms maps query terms to alternative phrasings seen in test
// case titles and steps. User vocabulary on the left, corpus vocabulary
// on the right.
var DomainSynonyms = map[string][]string{
	"login":        {"sign in", "log in", "signin"},
	"logout":       {"sign out", "log out"},
	"error":        {"failure", "issue", "defect"},
	"issue":        {"problem", "error", "defect"},
	"fail":         {"failure", "error"},
	"failed":       {"failing", "unsuccessful"},
	"working":      {"functioning", "operational"},
	"broken":       {"not working", "failing"},
	"patient":      {"pt", "client"},
	"appointment":  {"booking", "schedule", "visit"},
	"register":     {"signup", "enroll", "create account"},
	"registration": {"signup", "enrollment"},
	"payment":      {"billing", "transaction", "charge"},
	"bill":         {"invoice", "payment"},
	"cancel":       {"abort", "void", "revoke"},
	"search":       {"find", "lookup", "filter"},
	"report":       {"summary", "statement"},
	"upload":       {"attach", "import"},
	"download":     {"export", "save"},
	"verify":       {"validate", "confirm", "check"},
	"check":        {"verify", "validate"},
	"display":      {"show", "render", "view"},
	"screen":       {"page", "view", "form"},
	"message":      {"notification", "alert", "prompt"},
	"password":     {"credential", "passcode"},
	"admin":        {"administrator", "superuser"},
	"doctor":       {"physician", "consultant", "practitioner"},
	"nurse":        {"staff", "attendant"},
	"discharge":    {"release", "checkout"},
	"admission":    {"admit", "intake"},
	"prescription": {"medication order", "rx"},
	"slow":         {"delay", "latency", "performance"},
	"crash":        {"freeze", "hang", "abort"},
}

// SynonymMapping records which term was eligible for substitution and
// what alternatives the dictionary offered.
type SynonymMapping struct {
	Term     string   `json:"term"`
	Synonyms []string `json:"synonyms"`
	// Position is the token index of the term in the input.
	Position int `json:"position"`
}

// Variants is the output of GenerateVariants.
type Variants struct {
	// Strings is the ordered variant list. Strings[0] is the input
	// unchanged (preserved tokens prefixed).
	Strings  []string         `json:"strings"`
	Mappings []SynonymMapping `json:"mappings,omitempty"`
}

// GenerateVariants produces up to max+1 alternative phrasings of text by
// substituting one eligible token at a time. Variant order is stable:
// terms in token order, synonyms in dictionary-list order. Every
// preserved token is prefixed verbatim onto every variant. A nil dict
// uses DomainSynonyms.
func GenerateVariants(text string, dict map[string][]string, max int, preserved []PreservedToken) Variants {
	if dict == nil {
		dict = DomainSynonyms
	}

	tokens := strings.Fields(text)

	// Drop identifier tokens from the substitution body; they are
	// reattached below and must never be rewritten.
	canonical := make(map[string]bool, len(preserved))
	for _, p := range preserved {
		canonical[p.Canonical] = true
	}
	body := tokens[:0:0]
	for _, tok := range tokens {
		if !canonical[tok] {
			body = append(body, tok)
		}
	}

	var mappings []SynonymMapping
	variants := []string{attach(preserved, strings.Join(body, " "))}

	for i, tok := range body {
		syns, ok := dict[strings.ToLower(tok)]
		if !ok || len(syns) == 0 {
			continue
		}
		mappings = append(mappings, SynonymMapping{
			Term:     tok,
			Synonyms: syns,
			Position: i,
		})
		for _, syn := range syns {
			if len(variants) > max {
				break
			}
			sub := make([]string, len(body))
			copy(sub, body)
			sub[i] = syn
			variants = append(variants, attach(preserved, strings.Join(sub, " ")))
		}
		if len(variants) > max {
			break
		}
	}

	return Variants{Strings: dedupe(variants), Mappings: mappings}
}

// attach prefixes preserved tokens verbatim onto a variant body.
func attach(preserved []PreservedToken, body string) string {
	if len(preserved) == 0 {
		return body
	}
	parts := make([]string, 0, len(preserved)+1)
	for _, p := range preserved {
		parts = append(parts, p.Canonical)
	}
	if body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, " ")
}

// dedupe removes later duplicates in place, keeping first occurrences.
// Substituting a synonym that equals another token's synonym can collide.
func dedupe(variants []string) []string {
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// EligibleTerms returns the dictionary terms present in text, sorted,
// for diagnostics output.
func EligibleTerms(text string, dict map[string][]string) []string {
	if dict == nil {
		dict = DomainSynonyms
	}
	var terms []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if _, ok := dict[tok]; ok && !seen[tok] {
			seen[tok] = true
			terms = append(terms, tok)
		}
	}
	sort.Strings(terms)
	return terms
}
