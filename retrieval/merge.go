package retrieval

import "github.com/aqua777/graphrag-core/schema"

// MergeRanked concatenates records from several strategies run for the same
// prompt, preserving each strategy's internal order (already ranked by
// confidence/score) while interleaving strategies round-robin so no single
// strategy dominates the head of the merged list, then truncates to limit.
// Grounded on the original generation API's ranking merge across retrieval
// methods when a caller requests more than one strategy per prompt.
func MergeRanked(limit int, strategyResults ...[]schema.RetrievalRecord) []schema.RetrievalRecord {
	var merged []schema.RetrievalRecord
	for i := 0; ; i++ {
		added := false
		for _, results := range strategyResults {
			if i >= len(results) {
				continue
			}
			if results[i].Type == "NONE" {
				continue
			}
			merged = append(merged, results[i])
			added = true
			if limit > 0 && len(merged) >= limit {
				return merged
			}
		}
		if !added {
			break
		}
	}
	return merged
}
