package query

import "strings"

// DomainAbbreviations maps healthcare QA abbreviations to full phrases.
// Callers may pass their own dictionary to ExpandAbbreviations; merged
// overrides come from the dictionary file (see DictionaryFile).
var DomainAbbreviations = map[string]string{
	"uhid": "unique health id",
	"otp":  "one time password",
	"emr":  "electronic medical record",
	"ehr":  "electronic health record",
	"opd":  "outpatient department",
	"ipd":  "inpatient department",
	"tc":   "test case",
	"uat":  "user acceptance testing",
	"qa":   "quality assurance",
	"lab":  "laboratory",
	"rx":   "prescription",
	"ot":   "operation theatre",
	"icu":  "intensive care unit",
	"mrn":  "medical record number",
	"pt":   "patient",
	"dob":  "date of birth",
	"sms":  "text message",
	"api":  "application programming interface",
	"ui":   "user interface",
	"db":   "database",
	"auth": "authentication",
	"regn": "registration",
	"appt": "appointment",
	"inv":  "invoice",
	"pharm": "pharmacy",
}

// AbbrevMapping records a single applied expansion for explainability.
type AbbrevMapping struct {
	Abbrev    string `json:"abbreviation"`
	Expansion string `json:"expansion"`
	// Position is the token index in the input stream.
	Position int `json:"position"`
}

// Expansion is the output of ExpandAbbreviations.
type Expansion struct {
	Text     string          `json:"text"`
	Mappings []AbbrevMapping `json:"mappings,omitempty"`
}

// ExpandAbbreviations rewrites whole-word abbreviations to full phrases
// in a single left-to-right pass. Matching is case-insensitive and never
// touches substrings inside longer words; the first dictionary match per
// word wins. A nil dict uses DomainAbbreviations.
func ExpandAbbreviations(text string, dict map[string]string) Expansion {
	if dict == nil {
		dict = DomainAbbreviations
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Expansion{Text: text}
	}

	out := make([]string, len(tokens))
	var mappings []AbbrevMapping
	for i, tok := range tokens {
		if full, ok := dict[strings.ToLower(tok)]; ok {
			out[i] = full
			mappings = append(mappings, AbbrevMapping{
				Abbrev:    tok,
				Expansion: full,
				Position:  i,
			})
			continue
		}
		out[i] = tok
	}

	return Expansion{
		Text:     strings.Join(out, " "),
		Mappings: mappings,
	}
}
