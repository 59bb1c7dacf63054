package kgpost

import (
	"context"
	"testing"

	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/kgbuilder"
)

func setupGraph(t *testing.T) *graphstore.MemoryGraphStore {
	t.Helper()
	ctx := context.Background()
	g := graphstore.NewMemoryGraphStore()
	if err := g.EnsureVertexCollection(ctx, kgbuilder.NodeCollection); err != nil {
		t.Fatalf("EnsureVertexCollection Node: %v", err)
	}
	if err := g.EnsureVertexCollection(ctx, "File"); err != nil {
		t.Fatalf("EnsureVertexCollection File: %v", err)
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

func TestRunAddsMentionedInEdgeWhenNotAlreadyConnected(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)

	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        "A",
		Properties: map[string]interface{}{
			"source_ref": map[string]int{"doc1": 2, "_total": 2},
		},
	}); err != nil {
		t.Fatalf("UpsertVertex: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{Collection: "File", Key: "doc1"}); err != nil {
		t.Fatalf("UpsertVertex File: %v", err)
	}

	p := NewProcessor(g)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	edges := g.AllEdges(MentionedInCollection)
	if len(edges) != 1 {
		t.Fatalf("expected 1 mentionedIn edge, got %d", len(edges))
	}
	if edges[0].Weight != 2 {
		t.Fatalf("expected weight 2, got %v", edges[0].Weight)
	}
	if edges[0].Label != MentionedInLabel {
		t.Fatalf("expected label %q, got %q", MentionedInLabel, edges[0].Label)
	}
}

func TestRunSkipsMentionedInEdgeWhenAlreadyReachable(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)

	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        "A",
		Properties: map[string]interface{}{
			"source_ref": map[string]int{"doc1": 1, "_total": 1},
		},
	}); err != nil {
		t.Fatalf("UpsertVertex A: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        "doc1",
		Properties: map[string]interface{}{"source_ref": map[string]int{}},
	}); err != nil {
		t.Fatalf("UpsertVertex doc1-as-node: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{Collection: "File", Key: "doc1"}); err != nil {
		t.Fatalf("UpsertVertex File: %v", err)
	}
	// A -> Node/doc1 directly reachable within 3 hops via a Relation edge;
	// the check looks for File/doc1 reachability though, so this edge
	// alone should NOT suppress the direct mentionedIn edge. To actually
	// suppress it we need File/doc1 itself reachable, which requires a
	// path through mentionedIn or Relation edges ending at File/doc1 -
	// simulate a pre-existing mentionedIn edge from a second node that
	// also connects to A within hops.
	if err := g.UpsertEdge(ctx, graphstore.Edge{
		Collection: kgbuilder.RelationCollection,
		Key:        "A|doc1|ref",
		From:       "Node/A",
		To:         "Node/doc1",
		Label:      "ref",
		Weight:     1,
	}); err != nil {
		t.Fatalf("UpsertEdge: %v", err)
	}
	if err := g.EnsureEdgeCollection(ctx, MentionedInCollection, graphstore.EdgeDefinition{
		Collection: MentionedInCollection,
		From:       []string{kgbuilder.NodeCollection},
		To:         []string{"File"},
	}); err != nil {
		t.Fatalf("EnsureEdgeCollection mentionedIn: %v", err)
	}
	if err := g.UpsertEdge(ctx, graphstore.Edge{
		Collection: MentionedInCollection,
		Key:        "doc1|doc1",
		From:       "Node/doc1",
		To:         "File/doc1",
		Label:      MentionedInLabel,
		Weight:     1,
	}); err != nil {
		t.Fatalf("UpsertEdge mentionedIn seed: %v", err)
	}

	p := NewProcessor(g)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	edges := g.AllEdges(MentionedInCollection)
	for _, e := range edges {
		if e.Key == "A|doc1" {
			t.Fatalf("expected no direct A->File/doc1 edge since File/doc1 is already reachable, got %+v", e)
		}
	}
}

func TestRunAssignsInverseOccurrenceWeight(t *testing.T) {
	ctx := context.Background()
	g := setupGraph(t)

	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        "A",
		Properties: map[string]interface{}{"source_ref": map[string]int{"doc1": 1, "_total": 1}},
	}); err != nil {
		t.Fatalf("UpsertVertex A: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{
		Collection: kgbuilder.NodeCollection,
		Key:        "B",
		Properties: map[string]interface{}{"source_ref": map[string]int{"doc1": 1, "_total": 1}},
	}); err != nil {
		t.Fatalf("UpsertVertex B: %v", err)
	}
	if err := g.UpsertVertex(ctx, graphstore.Vertex{Collection: "File", Key: "doc1"}); err != nil {
		t.Fatalf("UpsertVertex File: %v", err)
	}

	p := NewProcessor(g)
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	a, found, err := g.GetVertex(ctx, kgbuilder.NodeCollection, "A")
	if err != nil || !found {
		t.Fatalf("GetVertex A: found=%v err=%v", found, err)
	}
	// doc1 occurs twice total (once via A, once via B), so per-source
	// weight is 1/2; A's own contribution is 1 * 0.5 = 0.5.
	weight, ok := a.Properties["weight"].(float64)
	if !ok || weight != 0.5 {
		t.Fatalf("expected weight 0.5, got %v (ok=%v)", a.Properties["weight"], ok)
	}
}
