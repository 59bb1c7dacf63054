package retrieval

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/graphrag-core/community"
	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/llm"
	"github.com/aqua777/graphrag-core/schema"
)

// scoredAnswer is one bucket's LLM-extracted answer, ranked by confidence.
type scoredAnswer struct {
	confidence int
	info       string
	source     map[string]bool
	document   map[string]bool
}

// graphRAGMaxAttempts bounds the community-QA JSON parse retry loop (4.J
// "retry up to 10 times on schema failure").
const graphRAGMaxAttempts = 10

// graphRAGBucketLimit is the per-bucket character budget the original
// stitches community content into before splitting (4.J "stitch into
// <=4096-char buckets preserving source/document provenance at bucket
// boundaries").
const graphRAGBucketLimit = 4096

type communityBucket struct {
	information string
	source      map[string]bool
	document    map[string]bool
}

// GraphRAG fetches every non-leaf, non-copy community at degree <=
// CommunityDegree, shuffles them, stitches their content into
// graphRAGBucketLimit-sized buckets preserving source/document provenance,
// asks the LLM to extract `{information, confidence}` per bucket in
// parallel, and returns buckets scoring at or above ConfidenceCutoff sorted
// descending (4.J "GraphRAG").
func GraphRAG(ctx context.Context, graph graphstore.GraphStore, model llm.LLM, rng *rand.Rand, prompt string, opts Options) ([]schema.RetrievalRecord, error) {
	opts = opts.withDefaults()
	cutoff := opts.ConfidenceCutoff
	if cutoff == 0 {
		cutoff = defaultConfidenceCutoff
	}
	cutoff = clamp(cutoff, 0, 100)
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}

	communities, err := fetchCommunities(ctx, graph, opts.CommunityDegree)
	if err != nil {
		return nil, err
	}
	rng.Shuffle(len(communities), func(i, j int) { communities[i], communities[j] = communities[j], communities[i] })

	buckets := stitchBuckets(communities)

	out := make([]scoredAnswer, len(buckets))

	g := new(errgroup.Group)
	g.SetLimit(opts.ParallelLimit)
	for i, bucket := range buckets {
		i, bucket := i, bucket
		g.Go(func() error {
			confidence, info := answerCommunityQuestion(ctx, model, bucket.information, prompt)
			out[i] = scoredAnswer{confidence: confidence, info: info, source: bucket.source, document: bucket.document}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortScoredDescending(out)

	var results []schema.RetrievalRecord
	for _, s := range out {
		if float64(s.confidence) < cutoff {
			break
		}
		if len(results) >= opts.MaxMatches {
			break
		}
		if s.info == "" {
			continue
		}
		results = append(results, schema.RetrievalRecord{
			Name:           formatKeys(boolSetKeys(s.source)),
			Category:       category,
			Path:           formatKeys(boolSetKeys(s.document)),
			Type:           "TEXT",
			MatchedContent: s.info,
		})
	}

	if len(results) == 0 {
		return noResults(), nil
	}
	return results, nil
}

func sortScoredDescending(out []scoredAnswer) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].confidence > out[j].confidence })
}

func boolSetKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// fetchCommunities reads every non-leaf, non-copy CommunityNode at
// community_degree 0..maxDegree inclusive.
func fetchCommunities(ctx context.Context, graph graphstore.GraphStore, maxDegree int) ([]graphstore.Vertex, error) {
	var out []graphstore.Vertex
	for degree := 0; degree <= maxDegree; degree++ {
		it, err := graph.QueryVertices(ctx, graphstore.Query{
			Collection: community.Collection,
			Filters: []graphstore.Filter{
				{Field: "community_degree", Op: graphstore.FilterEq, Value: degree},
				{Field: "is_copy", Op: graphstore.FilterEq, Value: false},
				{Field: "is_leaf", Op: graphstore.FilterEq, Value: false},
			},
		})
		if err != nil {
			return nil, err
		}
		for it.Next(ctx) {
			out = append(out, it.Value())
		}
		if err := it.Err(); err != nil {
			it.Close()
			return nil, err
		}
		it.Close()
	}
	return out, nil
}

// stitchBuckets joins community content in order, splitting whenever the
// running length would reach graphRAGBucketLimit, exactly mirroring the
// original's accumulate-then-split loop.
func stitchBuckets(communities []graphstore.Vertex) []communityBucket {
	var buckets []communityBucket
	currentSource := map[string]bool{}
	currentDocument := map[string]bool{}
	currentLen := 0
	var currentInfo strings.Builder

	for _, c := range communities {
		content, _ := c.Properties["content"].(string)

		if currentLen+len(content)+1 >= graphRAGBucketLimit && currentInfo.Len() > 0 {
			buckets = append(buckets, communityBucket{
				information: currentInfo.String(),
				source:      currentSource,
				document:    currentDocument,
			})
			currentSource = map[string]bool{}
			currentDocument = map[string]bool{}
			currentLen = len(content)
			currentInfo.Reset()
			currentInfo.WriteString(content)
		} else {
			if currentInfo.Len() > 0 {
				currentInfo.WriteString("\n")
			}
			currentInfo.WriteString(content)
			currentLen += len(content) + 1
		}

		for _, k := range keys(toCounts(c.Properties["source"])) {
			currentSource[k] = true
		}
		for _, k := range keys(toCounts(c.Properties["document"])) {
			currentDocument[k] = true
		}
	}

	if currentInfo.Len() > 0 || len(buckets) == 0 {
		buckets = append(buckets, communityBucket{
			information: currentInfo.String(),
			source:      currentSource,
			document:    currentDocument,
		})
	}
	return buckets
}

type communityAnswer struct {
	Information string `json:"information"`
	Confidence  int    `json:"confidence"`
}

// answerCommunityQuestion calls the LLM up to graphRAGMaxAttempts times for
// a valid {"information","confidence"} response. A community that never
// parses contributes confidence 0 and is dropped by the cutoff, matching
// the original's "return (0, '', {}, {})" give-up branch.
func answerCommunityQuestion(ctx context.Context, model llm.LLM, information, prompt string) (int, string) {
	for attempt := 0; attempt < graphRAGMaxAttempts; attempt++ {
		response, err := model.Chat(ctx, []llm.ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(information, prompt)},
		})
		if err != nil {
			continue
		}
		if confidence, info, ok := parseCommunityAnswer(response); ok {
			return confidence, info
		}
	}
	return 0, ""
}

func parseCommunityAnswer(response string) (int, string, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return 0, "", false
	}

	var a communityAnswer
	if err := json.Unmarshal([]byte(response[start:end+1]), &a); err != nil {
		return 0, "", false
	}
	if a.Confidence < 0 || a.Confidence > 100 {
		return 0, "", false
	}
	return a.Confidence, strings.TrimSpace(a.Information), true
}
