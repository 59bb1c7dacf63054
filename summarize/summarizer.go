// Package summarize implements 4.I: generating a natural-language
// label/description for every non-leaf CommunityNode, bottom-up by
// community degree, then indexing the summarised (non-copy, non-leaf)
// communities into a vector store for retrieval.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/graphrag-core/community"
	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/ingestion"
	"github.com/aqua777/graphrag-core/llm"
	"github.com/aqua777/graphrag-core/schema"
	"github.com/aqua777/graphrag-core/tokencount"
)

// MaxAttempts bounds the retry loop for a malformed LLM summary response
// before giving up on this community for the current run (4.I REDESIGN: the
// original indexer retries forever on a persistently malformed response; a
// hard cap of 20 attempts, per the Open Question decision, turns a stuck LLM
// into a logged skip instead of an infinite loop).
const MaxAttempts = 20

// ContextTokenBudget is the model context window (in tokens) a community's
// stitched child descriptions must fit within, after reserving room for the
// system prompt (4.I REDESIGN: the original indexer approximates this with a
// chars-per-token heuristic, `4096*3.5 - len(SYSTEM_PROMPT)`; here it is a
// real token count via tokencount.Counter).
const ContextTokenBudget = 4096

// Summarizer generates and indexes community summaries.
type Summarizer struct {
	Graph         graphstore.GraphStore
	LLM           llm.LLM
	Tokens        *tokencount.Counter
	Rand          *rand.Rand
	ParallelLimit int
	Logger        *slog.Logger

	Embedder    embedding.EmbeddingModel
	VectorStore ingestion.VectorStoreInterface
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithParallelLimit bounds concurrent LLM calls within one degree layer.
func WithParallelLimit(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.ParallelLimit = n
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(s *Summarizer) { s.Logger = l } }

// WithRand overrides the default deterministic RNG.
func WithRand(r *rand.Rand) Option { return func(s *Summarizer) { s.Rand = r } }

// WithTokenCounter overrides the default cl100k_base token counter.
func WithTokenCounter(c *tokencount.Counter) Option { return func(s *Summarizer) { s.Tokens = c } }

// WithVectorStore sets the vector store indexed communities are upserted
// into.
func WithVectorStore(vs ingestion.VectorStoreInterface) Option {
	return func(s *Summarizer) { s.VectorStore = vs }
}

// WithEmbedder sets the embedding model used to index summarised
// communities.
func WithEmbedder(e embedding.EmbeddingModel) Option {
	return func(s *Summarizer) { s.Embedder = e }
}

// NewSummarizer builds a Summarizer over graph using model for summary
// generation. Returns an error only if no WithTokenCounter option is given
// and the default cl100k_base encoding fails to load.
func NewSummarizer(graph graphstore.GraphStore, model llm.LLM, opts ...Option) (*Summarizer, error) {
	s := &Summarizer{
		Graph:         graph,
		LLM:           model,
		Rand:          rand.New(rand.NewPCG(1, 1)),
		ParallelLimit: 4,
		Logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Tokens == nil {
		counter, err := tokencount.NewCounter("")
		if err != nil {
			return nil, fmt.Errorf("summarize: default token counter: %w", err)
		}
		s.Tokens = counter
	}
	return s, nil
}

func (s *Summarizer) budget() int {
	return ContextTokenBudget - s.Tokens.Count(SystemPrompt)
}

// Run walks the CommunityNode tree bottom-up by community_degree, filling in
// every pending label/content, one errgroup-bounded layer at a time with a
// full barrier between layers so a parent never summarises before all of its
// children have (4.I "processed strictly bottom-up ... with a full barrier
// between degree layers", grounded on KG_5_CreateCommunitySummaries.py's
// ThreadPoolExecutor-per-layer loop).
func (s *Summarizer) Run(ctx context.Context) error {
	byDegree, err := s.loadByDegree(ctx)
	if err != nil {
		return err
	}

	degrees := make([]int, 0, len(byDegree))
	for d := range byDegree {
		degrees = append(degrees, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(degrees)))

	for _, degree := range degrees {
		g := new(errgroup.Group)
		g.SetLimit(s.ParallelLimit)
		for _, v := range byDegree[degree] {
			v := v
			g.Go(func() error {
				s.summarizeVertexSafe(ctx, v)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Summarizer) summarizeVertexSafe(ctx context.Context, v graphstore.Vertex) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("summarize: panic while summarising community", "key", v.Key, "recover", r)
		}
	}()
	if err := s.summarizeVertex(ctx, v); err != nil {
		s.Logger.Error("summarize: failed to summarise community", "key", v.Key, "error", err)
	}
}

// summarizeVertex fills in one community's label/content. Already-summarised
// communities are skipped. A community with exactly one child copies that
// child's summary verbatim and marks the child is_copy (4.I "sum_vertex").
func (s *Summarizer) summarizeVertex(ctx context.Context, v graphstore.Vertex) error {
	content, _ := v.Properties["content"].(string)
	if content != "" && content != schema.PendingContent {
		return nil
	}

	children, err := s.children(ctx, v.ID())
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	if len(children) == 1 {
		return s.copyFromOnlyChild(ctx, v, children[0])
	}

	summary, weight, err := s.collectSummary(ctx, children)
	if err != nil {
		return err
	}

	label, description, ok := s.generateSummary(ctx, summary)
	if !ok {
		s.Logger.Warn("summarize: community left unsummarized after max attempts", "key", v.Key)
		return nil
	}

	v.Properties["label"] = label
	v.Properties["content"] = description
	v.Properties["weight"] = weight
	return s.Graph.UpsertVertex(ctx, v)
}

// copyFromOnlyChild promotes a single child's summary onto its parent and
// marks the child a copy, matching the original's "if len(children) == 1"
// branch.
func (s *Summarizer) copyFromOnlyChild(ctx context.Context, parent, child graphstore.Vertex) error {
	label, _ := child.Properties["label"].(string)
	content, _ := child.Properties["content"].(string)
	weight, _ := child.Properties["weight"].(float64)
	isLeaf, _ := child.Properties["is_leaf"].(bool)

	parent.Properties["label"] = label
	parent.Properties["content"] = content
	parent.Properties["weight"] = weight
	parent.Properties["is_leaf"] = isLeaf
	if err := s.Graph.UpsertVertex(ctx, parent); err != nil {
		return err
	}

	child.Properties["is_copy"] = true
	return s.Graph.UpsertVertex(ctx, child)
}

type summaryCandidate struct {
	content string
	weight  float64
	isLeaf  bool
	id      string
}

func candidateContent(label, content string) string {
	return fmt.Sprintf("%s: %s\n", label, content)
}

// collectSummary builds the stitched child description text fed to the LLM,
// fitting it to the token budget by either trimming (greedy inclusion) or
// expanding non-leaf children into their own children (4.I, grounded on
// KG_5_CreateCommunitySummaries.py's weighted-choice-without-replacement
// budget fitting).
func (s *Summarizer) collectSummary(ctx context.Context, children []graphstore.Vertex) (string, float64, error) {
	candidates := make([]summaryCandidate, len(children))
	weights := make([]float64, len(children))
	currentLen := 0
	for i, c := range children {
		label, _ := c.Properties["label"].(string)
		content, _ := c.Properties["content"].(string)
		weight, _ := c.Properties["weight"].(float64)
		isLeaf, _ := c.Properties["is_leaf"].(bool)
		text := candidateContent(label, content)

		candidates[i] = summaryCandidate{content: text, weight: weight, isLeaf: isLeaf, id: c.ID()}
		weights[i] = weight
		currentLen += s.Tokens.Count(text)
	}

	budget := s.budget()
	var chosen []summaryCandidate
	var chosenWeight float64
	var err error
	if currentLen >= budget {
		chosen, chosenWeight, err = s.greedyFit(candidates, weights, budget)
	} else {
		chosen, chosenWeight, err = s.expandToFit(ctx, candidates, weights, budget)
	}
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	for _, c := range chosen {
		sb.WriteString(c.content)
	}
	return sb.String(), chosenWeight, nil
}

// greedyFit repeatedly weighted-picks a remaining candidate, skipping (but
// still consuming) any pick that would push the running token total over
// budget.
func (s *Summarizer) greedyFit(candidates []summaryCandidate, weights []float64, budget int) ([]summaryCandidate, float64, error) {
	weights = append([]float64(nil), weights...)
	var chosen []summaryCandidate
	var weight float64
	currentLen := 0

	for remaining := len(candidates); remaining > 0; remaining-- {
		idx := pickWeighted(s.Rand, weights)
		if idx < 0 {
			break
		}
		weights[idx] = 0
		c := candidates[idx]
		tokens := s.Tokens.Count(c.content)
		if currentLen+tokens > budget {
			continue
		}
		currentLen += tokens
		chosen = append(chosen, c)
		weight += c.weight
	}
	return chosen, weight, nil
}

// expandToFit repeatedly weighted-picks a remaining candidate. Leaves are
// appended directly; non-leaf candidates are swapped for their own children
// when doing so still fits the budget, otherwise appended as-is.
func (s *Summarizer) expandToFit(ctx context.Context, candidates []summaryCandidate, weights []float64, budget int) ([]summaryCandidate, float64, error) {
	pool := append([]summaryCandidate(nil), candidates...)
	poolWeights := append([]float64(nil), weights...)
	var chosen []summaryCandidate
	var weight float64
	currentLen := 0

	for {
		idx := pickWeighted(s.Rand, poolWeights)
		if idx < 0 {
			break
		}
		poolWeights[idx] = 0
		c := pool[idx]

		if c.isLeaf {
			currentLen += s.Tokens.Count(c.content)
			chosen = append(chosen, c)
			weight += c.weight
			continue
		}

		grandchildren, err := s.children(ctx, c.id)
		if err != nil {
			return nil, 0, err
		}
		if len(grandchildren) == 0 {
			currentLen += s.Tokens.Count(c.content)
			chosen = append(chosen, c)
			weight += c.weight
			continue
		}

		expanded := make([]summaryCandidate, len(grandchildren))
		expandedTokens := 0
		for i, gc := range grandchildren {
			label, _ := gc.Properties["label"].(string)
			content, _ := gc.Properties["content"].(string)
			gw, _ := gc.Properties["weight"].(float64)
			isLeaf, _ := gc.Properties["is_leaf"].(bool)
			text := candidateContent(label, content)
			expanded[i] = summaryCandidate{content: text, weight: gw, isLeaf: isLeaf, id: gc.ID()}
			expandedTokens += s.Tokens.Count(text)
		}

		if currentLen-s.Tokens.Count(c.content)+expandedTokens <= budget {
			for _, e := range expanded {
				pool = append(pool, e)
				poolWeights = append(poolWeights, e.weight)
			}
			continue
		}

		currentLen += s.Tokens.Count(c.content)
		chosen = append(chosen, c)
		weight += c.weight
	}
	return chosen, weight, nil
}

// pickWeighted returns the index of a weighted-random pick among the
// strictly-positive weights, or -1 if none remain. Simulates Python's
// random.choices-then-zero-out-after-pick technique for sampling every item
// exactly once in weighted order without actually shuffling the slice.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	target := rng.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if target < w {
			return i
		}
		target -= w
	}
	for i, w := range weights {
		if w > 0 {
			return i
		}
	}
	return -1
}

// generateSummary calls the LLM up to MaxAttempts times for a valid
// {"label","description"} response. ok is false if every attempt failed or
// was malformed, in which case the caller leaves the community's placeholder
// content in place (4.I REDESIGN, see MaxAttempts).
func (s *Summarizer) generateSummary(ctx context.Context, information string) (label, description string, ok bool) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		response, err := s.LLM.Chat(ctx, []llm.ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(information)},
		})
		if err != nil {
			s.Logger.Warn("summarize: llm call failed, retrying", "attempt", attempt, "error", err)
			continue
		}
		if l, d, ok := parseSummary(response); ok {
			return l, d, true
		}
	}
	return "", "", false
}

// children returns every communityEdge target of parentID.
func (s *Summarizer) children(ctx context.Context, parentID string) ([]graphstore.Vertex, error) {
	it, err := s.Graph.QueryEdges(ctx, graphstore.Query{Collection: community.EdgeCollection})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for it.Next(ctx) {
		e := it.Value()
		if e.From == parentID {
			ids = append(ids, e.To)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	out := make([]graphstore.Vertex, 0, len(ids))
	for _, id := range ids {
		parts := strings.SplitN(id, "/", 2)
		if len(parts) != 2 {
			continue
		}
		v, found, err := s.Graph.GetVertex(ctx, parts[0], parts[1])
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, v)
		}
	}
	return out, nil
}

// loadByDegree groups every CommunityNode vertex by community_degree.
func (s *Summarizer) loadByDegree(ctx context.Context) (map[int][]graphstore.Vertex, error) {
	it, err := s.Graph.QueryVertices(ctx, graphstore.Query{Collection: community.Collection})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := map[int][]graphstore.Vertex{}
	for it.Next(ctx) {
		v := it.Value()
		degree, _ := v.Properties["community_degree"].(int)
		out[degree] = append(out[degree], v)
	}
	return out, it.Err()
}

// Index embeds and upserts every summarised, non-leaf, non-copy community
// into the vector store (4.I "CreateCommunityIndices"), batching the
// embedding calls when the embedder supports it.
func (s *Summarizer) Index(ctx context.Context) error {
	it, err := s.Graph.QueryVertices(ctx, graphstore.Query{
		Collection: community.Collection,
		Filters: []graphstore.Filter{
			{Field: "is_leaf", Op: graphstore.FilterEq, Value: false},
			{Field: "is_copy", Op: graphstore.FilterEq, Value: false},
		},
	})
	if err != nil {
		return err
	}
	defer it.Close()

	var vertices []graphstore.Vertex
	for it.Next(ctx) {
		vertices = append(vertices, it.Value())
	}
	if err := it.Err(); err != nil {
		return err
	}
	if len(vertices) == 0 {
		return nil
	}

	texts := make([]string, len(vertices))
	for i, v := range vertices {
		content, _ := v.Properties["content"].(string)
		texts[i] = content
	}

	embeddings, err := s.embedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("summarize: embed communities: %w", err)
	}

	nodes := make([]schema.Node, len(vertices))
	for i, v := range vertices {
		nodes[i] = schema.Node{
			ID:        v.ID(),
			Text:      texts[i],
			Type:      schema.ObjectTypeText,
			Embedding: embeddings[i],
			Metadata: map[string]interface{}{
				"community_key": v.Key,
				"source":        v.Properties["source"],
				"source_ref":    v.Properties["source_ref"],
				"document":      v.Properties["document"],
			},
		}
	}
	return s.VectorStore.Add(ctx, nodes)
}

func (s *Summarizer) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if batch, ok := s.Embedder.(embedding.EmbeddingModelWithBatch); ok {
		return batch.GetTextEmbeddingsBatch(ctx, texts, nil)
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		emb, err := s.Embedder.GetTextEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
