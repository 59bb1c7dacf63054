package retrieval

import (
	"context"
	"fmt"

	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/schema"
)

// NaiveRAG runs a plain kNN search over the chunk vector index and returns
// every hit scoring at or above ConfidenceCutoff, ranked descending, up to
// MaxMatches (4.J "NaiveRAG").
func NaiveRAG(ctx context.Context, store Searcher, embedder embedding.EmbeddingModel, prompt string, opts Options) ([]schema.RetrievalRecord, error) {
	return vectorRetrieve(ctx, store, embedder, prompt, opts)
}

// NaiveGraphRAG runs the same kNN algorithm as NaiveRAG against the
// community-summary vector index instead of the chunk index (4.J
// "NaiveGraphRAG. Same algorithm against the community-summary vector
// index").
func NaiveGraphRAG(ctx context.Context, store Searcher, embedder embedding.EmbeddingModel, prompt string, opts Options) ([]schema.RetrievalRecord, error) {
	return vectorRetrieve(ctx, store, embedder, prompt, opts)
}

func vectorRetrieve(ctx context.Context, store Searcher, embedder embedding.EmbeddingModel, prompt string, opts Options) ([]schema.RetrievalRecord, error) {
	opts = opts.withDefaults()
	cutoff := opts.ConfidenceCutoff
	if cutoff == 0 {
		cutoff = defaultVectorCutoff
	}
	cutoff = clamp(cutoff, 0, 1)

	emb, err := embedder.GetQueryEmbedding(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	hits, err := store.Query(ctx, schema.VectorStoreQuery{Embedding: emb, TopK: opts.MaxMatches})
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector query: %w", err)
	}

	var results []schema.RetrievalRecord
	for _, hit := range hits {
		if hit.Score < cutoff {
			break
		}
		results = append(results, recordFromCommunityNode(hit.Node))
	}

	if len(results) == 0 {
		return noResults(), nil
	}
	return results, nil
}

// recordFromCommunityNode builds a uniform RetrievalRecord from a
// community-summary (or chunk) node's source/document metadata, matching
// the original's `list(eval(source).keys()).__repr__()` rendering.
func recordFromCommunityNode(node schema.Node) schema.RetrievalRecord {
	source := keys(toCounts(node.Metadata["source"]))
	document := keys(toCounts(node.Metadata["document"]))
	return schema.RetrievalRecord{
		Name:           formatKeys(source),
		Category:       category,
		Path:           formatKeys(document),
		Type:           "TEXT",
		MatchedContent: node.GetContent(),
	}
}

// toCounts tolerates both the in-process schema.Counts representation and a
// JSON-roundtripped map[string]interface{}, matching community/kgbuilder's
// own toCounts helpers.
func toCounts(v interface{}) schema.Counts {
	switch m := v.(type) {
	case schema.Counts:
		return m
	case map[string]int:
		return schema.Counts(m)
	case map[string]interface{}:
		out := make(schema.Counts, len(m))
		for k, val := range m {
			switch n := val.(type) {
			case int:
				out[k] = n
			case float64:
				out[k] = int(n)
			}
		}
		return out
	default:
		return schema.Counts{}
	}
}
