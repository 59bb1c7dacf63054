// Package retrieval implements 4.J: the four retrieval strategies
// (NaiveRAG, NaiveGraphRAG, GARAG, GraphRAG) over the chunk and
// community-summary vector indices, plus a uniform record shape and a
// cross-strategy rank merge.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/aqua777/graphrag-core/schema"
)

// Searcher is the kNN query surface every strategy needs from a vector
// store. Defined at the point of use (the concrete chromem-go adapter's
// Query method already has this exact shape) rather than importing a
// concrete vectorstore package, matching kgbuilder's decoupling from a
// concrete llm.LLM implementation.
type Searcher interface {
	Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error)
}

// Options bounds every strategy's result set and sensitivity, defaulting
// exactly as the original retriever functions do when a value is omitted
// (4.J "kNN ... filter by score >= confidence_cutoff").
type Options struct {
	// MaxMatches caps the number of records returned. Default 10.
	MaxMatches int
	// ConfidenceCutoff discards hits scoring below it. Its scale depends on
	// the strategy: GraphRAG's LLM confidence is 0-100 (default 40); the
	// vector strategies' similarity score is 0-1 (default 0.04).
	ConfidenceCutoff float64
	// CommunityDegree bounds GraphRAG's community fetch to degrees
	// 0..CommunityDegree inclusive. Default 1.
	CommunityDegree int
	// ParallelLimit bounds GraphRAG's concurrent LLM calls. Default 1.
	ParallelLimit int
}

func (o Options) withDefaults() Options {
	if o.MaxMatches <= 0 {
		o.MaxMatches = 10
	}
	if o.CommunityDegree < 0 {
		o.CommunityDegree = 1
	}
	if o.ParallelLimit <= 0 {
		o.ParallelLimit = 1
	}
	return o
}

const (
	defaultVectorCutoff     = 0.04
	defaultConfidenceCutoff = 40
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// category is the category string every strategy's records share.
const category = "extracted data from multiple different files (sources)"

func noResults() []schema.RetrievalRecord {
	return []schema.RetrievalRecord{{
		Name:     "NO DOCUMENTS FOUND",
		Category: category,
		Type:     "NONE",
	}}
}

func keys(c schema.Counts) []string {
	out := make([]string, 0, len(c))
	for k := range c {
		if k == schema.TotalKey {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func formatKeys(keys []string) string {
	return fmt.Sprintf("%v", keys)
}
