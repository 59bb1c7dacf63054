package kgbuilder

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Relation is a single extracted {From,To,Relation} triplet before
// sanitisation (4.E).
type Relation struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Relation string `json:"Relation"`
}

// charSubstitutions replaces characters the LLM sometimes emits unescaped
// (umlauts, ampersand) that would otherwise break both direct JSON decoding
// and the tolerant fallback parser, ported from KG_convert_to_relations.py's
// str.translate table.
var charSubstitutions = map[rune]string{
	'&': "and",
	'Ä': "Ae",
	'Ö': "Oe",
	'Ü': "Ue",
	'ß': "ss",
	'ä': "ae",
	'é': "e",
	'ö': "oe",
	'ü': "ue",
}

func applyCharSubstitutions(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := charSubstitutions[r]; ok {
			b.WriteString(rep)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// braceFragmentRe extracts the interior of each top-level {...} pair,
// matching KG_convert_to_relations.py's findall(r'(?<=\{).+?(?=\})') — no
// nesting support, which is fine since a relation object is always flat.
var braceFragmentRe = regexp.MustCompile(`\{([^{}]*)\}`)

// tripletKeyValueRe pulls out "Key": value pairs tolerating missing quotes
// around either the key or the value, which is the shape the tolerant
// fallback is built to repair.
var tripletKeyValueRe = regexp.MustCompile(`"?(From|To|Relation)"?\s*:\s*"?([^",{}]*)"?`)

// ParseRelations attempts a direct JSON decode of response; on failure it
// falls back to the tolerant reader: character substitution, brace-fragment
// extraction, then a sequential key/value scan over every fragment
// concatenated together (mirroring the original's "join all bracket
// interiors, then re-split" approach) that starts a new Relation whenever a
// key would otherwise be duplicated within the current one — this
// reproduces "split concatenated dicts, deduplicate key occurrences within
// a single dict" from a single pass instead of the original's index-arithmetic
// string surgery. Returns nil if no valid relation triplets anywhere.
func ParseRelations(response string) []Relation {
	if direct, ok := tryDirectDecode(response); ok {
		return direct
	}

	cleaned := applyCharSubstitutions(response)
	fragments := braceFragmentRe.FindAllStringSubmatch(cleaned, -1)
	if fragments == nil {
		return nil
	}

	var joined strings.Builder
	for _, f := range fragments {
		joined.WriteString(f[1])
	}

	return scanTriplets(joined.String())
}

func tryDirectDecode(response string) ([]Relation, bool) {
	trimmed := strings.TrimSpace(response)
	start := strings.IndexByte(trimmed, '[')
	end := strings.LastIndexByte(trimmed, ']')
	if start < 0 || end < 0 || end < start {
		return nil, false
	}

	var relations []Relation
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &relations); err != nil {
		return nil, false
	}
	if len(relations) == 0 {
		return nil, false
	}
	return relations, true
}

// scanTriplets walks every "Key": value match in text in order, flushing
// the current triplet and starting a new one whenever a key would repeat
// before all three fields are filled in.
func scanTriplets(text string) []Relation {
	matches := tripletKeyValueRe.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}

	var relations []Relation
	current := map[string]string{}

	flush := func() {
		if rel, ok := buildRelation(current); ok {
			relations = append(relations, rel)
		}
		current = map[string]string{}
	}

	for _, m := range matches {
		key := m[1]
		val := strings.TrimSpace(m[2])
		if _, dup := current[key]; dup {
			flush()
		}
		current[key] = val
	}
	flush()

	return relations
}

func buildRelation(m map[string]string) (Relation, bool) {
	from, to, rel := m["From"], m["To"], m["Relation"]
	if from == "" || to == "" || rel == "" {
		return Relation{}, false
	}
	return Relation{From: from, To: to, Relation: rel}, true
}

// sanitiseRe restricts sanitised relation fields to the character class
// KG_convert_to_relations.py enforces before insertion (4.E).
var sanitiseRe = regexp.MustCompile(`[^A-Za-z0-9_\-.@()+=;$!*%:,{}\[\]"]+`)

var whitespaceRe = regexp.MustCompile(`\s`)

// Sanitise replaces whitespace with underscores and strips every character
// outside the allowed class, matching 4.E's field-sanitisation rule.
func Sanitise(s string) string {
	s = whitespaceRe.ReplaceAllString(s, "_")
	return sanitiseRe.ReplaceAllString(s, "")
}
