package summarize

import (
	"encoding/json"
	"strings"
)

// minLabelLen and minDescriptionLen are the original indexer's validity
// thresholds for an accepted summary (4.I "len(label) >= 5 and
// len(description) >= 20").
const (
	minLabelLen       = 5
	minDescriptionLen = 20
)

type summaryResponse struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// parseSummary extracts a {"label","description"} pair from an LLM
// response, trying a strict JSON decode first and falling back to a
// marker-based scan when the model wraps the object in prose or uses
// single quotes (4.I, grounded on KG_5_CreateCommunitySummaries.py's
// eval()-then-substring-search fallback).
func parseSummary(response string) (label, description string, ok bool) {
	if l, d, ok := parseSummaryJSON(response); ok {
		return l, d, true
	}
	return parseSummaryFallback(response)
}

func parseSummaryJSON(response string) (string, string, bool) {
	trimmed := strings.TrimSpace(response)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return "", "", false
	}

	var r summaryResponse
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &r); err != nil {
		return "", "", false
	}
	if !validSummary(r.Label, r.Description) {
		return "", "", false
	}
	return r.Label, r.Description, true
}

// parseSummaryFallback locates the `"description":` marker in the raw text
// and splits the response into a "before" half (searched for `"label":`)
// and an "after" half (the description value), trimming surrounding
// punctuation and quotes from each.
func parseSummaryFallback(response string) (string, string, bool) {
	const descMarker = `"description":`
	descIdx := strings.Index(response, descMarker)
	if descIdx < 0 {
		return "", "", false
	}
	before := response[:descIdx]
	after := strings.TrimSpace(response[descIdx+len(descMarker):])

	if strings.Count(before, "{") != strings.Count(before, "}") {
		return "", "", false
	}
	after = strings.TrimRight(after, " \"'}\n")
	after = strings.TrimLeft(after, " \"'")

	const labelMarker = `"label":`
	labelIdx := strings.Index(before, labelMarker)
	if labelIdx < 0 {
		return "", "", false
	}
	label := strings.TrimSpace(before[labelIdx+len(labelMarker):])
	label = strings.TrimRight(label, " ,\"'\n")
	label = strings.TrimLeft(label, " \"'")

	if !validSummary(label, after) {
		return "", "", false
	}
	return label, after, true
}

func validSummary(label, description string) bool {
	return len(label) >= minLabelLen && len(description) >= minDescriptionLen
}
