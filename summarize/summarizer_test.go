package summarize

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/aqua777/graphrag-core/community"
	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/llm"
	"github.com/aqua777/graphrag-core/schema"
)

type fakeVectorStore struct {
	added []schema.Node
}

func (f *fakeVectorStore) Add(ctx context.Context, nodes []schema.Node) error {
	f.added = append(f.added, nodes...)
	return nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, refDocID string) error {
	return nil
}

func setupCommunityGraph(t *testing.T) *graphstore.MemoryGraphStore {
	t.Helper()
	ctx := context.Background()
	g := graphstore.NewMemoryGraphStore()
	if err := g.EnsureVertexCollection(ctx, community.Collection); err != nil {
		t.Fatalf("EnsureVertexCollection: %v", err)
	}
	if err := g.EnsureEdgeCollection(ctx, community.EdgeCollection, graphstore.EdgeDefinition{
		Collection: community.EdgeCollection,
		From:       []string{community.Collection},
		To:         []string{community.Collection},
	}); err != nil {
		t.Fatalf("EnsureEdgeCollection: %v", err)
	}
	return g
}

func seedCommunity(t *testing.T, g *graphstore.MemoryGraphStore, key, label, content string, weight float64, isLeaf bool) {
	t.Helper()
	err := g.UpsertVertex(context.Background(), graphstore.Vertex{
		Collection: community.Collection,
		Key:        key,
		Label:      label,
		Properties: map[string]interface{}{
			"community_key":    key,
			"community_degree": degreeOf(key),
			"label":            label,
			"content":          content,
			"weight":           weight,
			"is_leaf":          isLeaf,
			"is_copy":          false,
			"source":           map[string]int{},
			"source_ref":       map[string]int{},
			"document":         map[string]int{},
		},
	})
	if err != nil {
		t.Fatalf("seed community %s: %v", key, err)
	}
}

func seedCommunityEdge(t *testing.T, g *graphstore.MemoryGraphStore, from, to string) {
	t.Helper()
	err := g.UpsertEdge(context.Background(), graphstore.Edge{
		Collection: community.EdgeCollection,
		Key:        from + "->" + to,
		From:       community.Collection + "/" + from,
		To:         community.Collection + "/" + to,
	})
	if err != nil {
		t.Fatalf("seed community edge %s->%s: %v", from, to, err)
	}
}

func degreeOf(key string) int {
	var degree int
	fmt.Sscanf(key, "%d/", &degree)
	return degree
}

func TestRunCopiesSingleChildSummaryUpward(t *testing.T) {
	ctx := context.Background()
	g := setupCommunityGraph(t)
	seedCommunity(t, g, "1/0", "Leaf", "a leaf description long enough to pass validation", 1, true)
	seedCommunity(t, g, "0/0", "", schema.PendingContent, 0, false)
	seedCommunityEdge(t, g, "0/0", "1/0")

	s, err := NewSummarizer(g, llm.NewMockLLM(""))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	parent, found, err := g.GetVertex(ctx, community.Collection, "0/0")
	if err != nil || !found {
		t.Fatalf("GetVertex parent: found=%v err=%v", found, err)
	}
	if parent.Properties["content"] != "a leaf description long enough to pass validation" {
		t.Fatalf("expected parent content copied from only child, got %v", parent.Properties["content"])
	}

	child, found, err := g.GetVertex(ctx, community.Collection, "1/0")
	if err != nil || !found {
		t.Fatalf("GetVertex child: found=%v err=%v", found, err)
	}
	if child.Properties["is_copy"] != true {
		t.Fatalf("expected child marked is_copy, got %+v", child.Properties)
	}
}

func TestRunGeneratesSummaryFromMultipleChildren(t *testing.T) {
	ctx := context.Background()
	g := setupCommunityGraph(t)
	seedCommunity(t, g, "1/0", "Alpha", "alpha description long enough to pass validation checks", 1, true)
	seedCommunity(t, g, "1/1", "Beta", "beta description long enough to pass validation checks too", 1, true)
	seedCommunity(t, g, "0/0", "", schema.PendingContent, 0, false)
	seedCommunityEdge(t, g, "0/0", "1/0")
	seedCommunityEdge(t, g, "0/0", "1/1")

	mockResponse := `{"label": "Alpha and Beta", "description": "a synthesized description of alpha and beta that is long enough"}`
	s, err := NewSummarizer(g, llm.NewMockLLM(mockResponse))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	parent, found, err := g.GetVertex(ctx, community.Collection, "0/0")
	if err != nil || !found {
		t.Fatalf("GetVertex parent: found=%v err=%v", found, err)
	}
	if parent.Properties["label"] != "Alpha and Beta" {
		t.Fatalf("expected generated label, got %v", parent.Properties["label"])
	}
	if parent.Properties["content"] == schema.PendingContent {
		t.Fatalf("expected parent content to be resolved")
	}
}

func TestRunLeavesCommunityUnsummarizedWhenLLMNeverReturnsValidSummary(t *testing.T) {
	ctx := context.Background()
	g := setupCommunityGraph(t)
	seedCommunity(t, g, "1/0", "Alpha", "alpha description long enough to pass validation checks", 1, true)
	seedCommunity(t, g, "1/1", "Beta", "beta description long enough to pass validation checks too", 1, true)
	seedCommunity(t, g, "0/0", "", schema.PendingContent, 0, false)
	seedCommunityEdge(t, g, "0/0", "1/0")
	seedCommunityEdge(t, g, "0/0", "1/1")

	s, err := NewSummarizer(g, llm.NewMockLLM("not valid json at all"))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	parent, found, err := g.GetVertex(ctx, community.Collection, "0/0")
	if err != nil || !found {
		t.Fatalf("GetVertex parent: found=%v err=%v", found, err)
	}
	content, _ := parent.Properties["content"].(string)
	if content != schema.PendingContent {
		t.Fatalf("expected the community to stay pending after exhausting retries, got %q", content)
	}
}

func TestParseSummaryFallbackScansRawMarkers(t *testing.T) {
	response := `Sure thing! {"label": "My Label", "description": "this description is definitely long enough to pass"}`
	label, desc, ok := parseSummary(response)
	if !ok {
		t.Fatalf("expected parseSummary to succeed")
	}
	if label != "My Label" {
		t.Fatalf("label = %q, want %q", label, "My Label")
	}
	if desc != "this description is definitely long enough to pass" {
		t.Fatalf("description = %q", desc)
	}
}

func TestParseSummaryRejectsTooShortFields(t *testing.T) {
	_, _, ok := parseSummary(`{"label": "ab", "description": "too short"}`)
	if ok {
		t.Fatalf("expected parseSummary to reject too-short fields")
	}
}

func TestIndexUpsertsOnlyNonLeafNonCopyCommunities(t *testing.T) {
	ctx := context.Background()
	g := setupCommunityGraph(t)
	seedCommunity(t, g, "1/0", "Leaf", "a leaf description long enough to pass validation", 1, true)
	seedCommunity(t, g, "0/0", "Root", "a resolved root summary long enough to pass validation", 2, false)

	s, err := NewSummarizer(g, llm.NewMockLLM(""), WithEmbedder(embedding.NewMockEmbeddingModel([]float64{0.1, 0.2})))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	store := &fakeVectorStore{}
	s.VectorStore = store

	if err := s.Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if len(store.added) != 1 {
		t.Fatalf("expected exactly 1 indexed node, got %d", len(store.added))
	}
	if store.added[0].Metadata["community_key"] != "0/0" {
		t.Fatalf("expected the root community indexed, got %+v", store.added[0].Metadata)
	}
}

func TestPickWeightedSkipsZeroWeights(t *testing.T) {
	s, err := NewSummarizer(setupCommunityGraph(t), llm.NewMockLLM(""))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	weights := []float64{0, 0, 5}
	idx := pickWeighted(s.Rand, weights)
	if idx != 2 {
		t.Fatalf("expected only nonzero-weight index 2, got %d", idx)
	}

	if pickWeighted(s.Rand, []float64{0, 0, 0}) != -1 {
		t.Fatalf("expected -1 when every weight is zero")
	}
}

func TestLoadByDegreeGroupsDescending(t *testing.T) {
	ctx := context.Background()
	g := setupCommunityGraph(t)
	seedCommunity(t, g, "2/0", "A", "a", 1, true)
	seedCommunity(t, g, "1/0", "B", "b", 1, true)
	seedCommunity(t, g, "0/0", "C", "_", 0, false)

	s, err := NewSummarizer(g, llm.NewMockLLM(""))
	if err != nil {
		t.Fatalf("NewSummarizer: %v", err)
	}
	byDegree, err := s.loadByDegree(ctx)
	if err != nil {
		t.Fatalf("loadByDegree: %v", err)
	}

	var degrees []int
	for d := range byDegree {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	want := []int{0, 1, 2}
	if len(degrees) != len(want) {
		t.Fatalf("degrees = %v, want %v", degrees, want)
	}
	for i, d := range want {
		if degrees[i] != d {
			t.Fatalf("degrees = %v, want %v", degrees, want)
		}
	}
}
