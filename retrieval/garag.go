package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/loader"
	"github.com/aqua777/graphrag-core/schema"
)

// GARAG runs a kNN search against the community-summary vector index with
// k = 2*MaxMatches, then for every hit above ConfidenceCutoff walks its
// source_ref map (excluding the running total) accumulating
// `score * count / total` into a per-file score. The highest-scored files
// are returned with their original chunk content (4.J "GARAG", the
// "GARAG score monotonicity" invariant: a strictly higher-scoring hit
// contributes strictly more to every source it touches, since its
// contribution is a strictly increasing function of score for fixed
// count/total).
func GARAG(ctx context.Context, store Searcher, files graphstore.GraphStore, embedder embedding.EmbeddingModel, prompt string, opts Options) ([]schema.RetrievalRecord, error) {
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

	hits, err := store.Query(ctx, schema.VectorStoreQuery{Embedding: emb, TopK: opts.MaxMatches * 2})
	if err != nil {
		return nil, fmt.Errorf("retrieval: vector query: %w", err)
	}

	sourceScores := map[string]float64{}
	for _, hit := range hits {
		if hit.Score < cutoff {
			continue
		}
		sourceRef := toCounts(hit.Node.Metadata["source_ref"])
		total := sourceRef[schema.TotalKey]
		if total == 0 {
			continue
		}
		for source, count := range sourceRef {
			if source == schema.TotalKey {
				continue
			}
			sourceScores[source] += hit.Score * float64(count) / float64(total)
		}
	}

	ranked := make([]string, 0, len(sourceScores))
	for source := range sourceScores {
		ranked = append(ranked, source)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if sourceScores[ranked[i]] != sourceScores[ranked[j]] {
			return sourceScores[ranked[i]] > sourceScores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	var results []schema.RetrievalRecord
	for _, sourceRef := range ranked {
		if len(results) >= opts.MaxMatches {
			break
		}
		file, found, err := files.GetVertex(ctx, loader.FileCollection, sourceRef)
		if err != nil {
			return nil, fmt.Errorf("retrieval: fetch file %s: %w", sourceRef, err)
		}
		if !found {
			continue
		}
		content, _ := file.Properties["content"].(string)
		results = append(results, schema.RetrievalRecord{
			Name:           formatKeys(keys(toCounts(file.Properties["source"]))),
			Category:       category,
			Path:           formatKeys(keys(toCounts(file.Properties["document"]))),
			Type:           "TEXT",
			MatchedContent: content,
		})
	}

	if len(results) == 0 {
		return noResults(), nil
	}
	return results, nil
}
