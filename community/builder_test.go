package community

import (
	"context"
	"sort"
	"testing"

	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/kgbuilder"
	"github.com/aqua777/graphrag-core/schema"
)

func setupGraph(t *testing.T) *graphstore.MemoryGraphStore {
	t.Helper()
	ctx := context.Background()
	g := graphstore.NewMemoryGraphStore()
	if err := g.EnsureVertexCollection(ctx, kgbuilder.NodeCollection); err != nil {
		t.Fatalf("EnsureVertexCollection Node: %v", err)
	}
	if err := g.EnsureEdgeCollection(ctx, kgbuilder.RelationCollection, graphstore.EdgeDefinition{
		Collection: kgbuilder.RelationCollection,
		From:       []string{kgbuilder.NodeCollection},
		To:         []string{kgbuilder.NodeCollection},
	}); err != nil {
		t.Fatalf("EnsureEdgeCollection Relation: %v", err)
	}
	return g
}

func seedNode(t *testing.T, g *graphstore.MemoryGraphStore, key, label string) {
	t.Helper()
	err := g.UpsertVertex(context.Background(), graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        key,
		Label:      label,
		Properties: map[string]interface{}{
			"document":   map[string]int{"doc.md": 1},
			"source":     map[string]int{"doc.md Page (1)": 1},
			"source_ref": map[string]int{key: 1, "_total": 1},
		},
	})
	if err != nil {
		t.Fatalf("UpsertVertex %s: %v", key, err)
	}
}

func seedRelation(t *testing.T, g *graphstore.MemoryGraphStore, from, to, label string) {
	t.Helper()
	err := g.UpsertEdge(context.Background(), graphstore.Edge{
		Collection: kgbuilder.RelationCollection,
		Key:        from + "|" + to + "|" + label,
		From:       kgbuilder.NodeCollection + "/" + from,
		To:         kgbuilder.NodeCollection + "/" + to,
		Label:      label,
		Weight:     1,
	})
	if err != nil {
		t.Fatalf("UpsertEdge %s->%s: %v", from, to, err)
	}
}

func TestRunCreatesRootCommunityCoveringAllNodes(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)
	seedNode(t, g, "A", "A")
	seedNode(t, g, "B", "B")
	seedNode(t, g, "C", "C")
	seedRelation(t, g, "A", "B", "relates_to")
	seedRelation(t, g, "B", "C", "relates_to")

	b := NewBuilder(g)
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	root, found, err := g.GetVertex(ctx, Collection, RootKey)
	if err != nil || !found {
		t.Fatalf("GetVertex root: found=%v err=%v", found, err)
	}
	vertices := toStringSlice(root.Properties["vertices"])
	sort.Strings(vertices)
	want := []string{"Node/A", "Node/B", "Node/C"}
	if len(vertices) != len(want) {
		t.Fatalf("expected %d root vertices, got %v", len(want), vertices)
	}
	for i, v := range want {
		if vertices[i] != v {
			t.Fatalf("root vertices = %v, want %v", vertices, want)
		}
	}

	// Every depth-1 community's members must union back to the full set.
	var union []string
	for _, v := range g.AllVertices(Collection) {
		degree, _ := v.Properties["community_degree"].(int)
		if degree != 1 {
			continue
		}
		union = append(union, toStringSlice(v.Properties["vertices"])...)
	}
	sort.Strings(union)
	if len(union) != len(want) {
		t.Fatalf("expected depth-1 communities to cover %d vertices, got %v", len(want), union)
	}

	var linkedFromRoot int
	for _, e := range g.AllEdges(EdgeCollection) {
		if e.From == Collection+"/"+RootKey {
			linkedFromRoot++
		}
	}
	if linkedFromRoot == 0 {
		t.Fatalf("expected at least one communityEdge from the root")
	}
}

func TestRunMarksIsolatedSingleVertexCommunityAsLeafWithDescription(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)
	seedNode(t, g, "Solo", "Solo")

	b := NewBuilder(g)
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	leaf, found, err := g.GetVertex(ctx, Collection, communityKey(1, 0))
	if err != nil || !found {
		t.Fatalf("GetVertex leaf: found=%v err=%v", found, err)
	}
	if leaf.Properties["is_leaf"] != true {
		t.Fatalf("expected is_leaf=true, got %+v", leaf.Properties)
	}
	content, _ := leaf.Properties["content"].(string)
	if content == "" || content == schema.PendingContent {
		t.Fatalf("expected a generated leaf description, got %q", content)
	}
}

func TestRunCarriesForwardPriorSummaryBySignature(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)
	seedNode(t, g, "Solo", "Solo")

	if err := g.EnsureVertexCollection(ctx, Collection); err != nil {
		t.Fatalf("EnsureVertexCollection Community: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: Collection,
		Key:        communityKey(1, 0),
		Label:      "Solo",
		Properties: map[string]interface{}{
			"vertices":   []string{"Node/Solo"},
			"edges":      []string{},
			"document":   map[string]int{},
			"source":     map[string]int{},
			"source_ref": map[string]int{},
			"content":    "hand-written summary",
			"label":      "Solo",
			"is_leaf":    true,
			"is_copy":    false,
			"weight":     0.0,
		},
	}); err != nil {
		t.Fatalf("seed prior CommunityNode: %v", err)
	}

	b := NewBuilder(g)
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	leaf, found, err := g.GetVertex(ctx, Collection, communityKey(1, 0))
	if err != nil || !found {
		t.Fatalf("GetVertex leaf: found=%v err=%v", found, err)
	}
	if leaf.Properties["content"] != "hand-written summary" {
		t.Fatalf("expected carried-forward content, got %v", leaf.Properties["content"])
	}
}

func TestRunSkipsEmptyGraph(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)

	b := NewBuilder(g)
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run on empty graph: %v", err)
	}
	if len(g.AllVertices(Collection)) != 0 {
		t.Fatalf("expected no community vertices for an empty graph")
	}
}
