package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *MemoryGraphStore {
	t.Helper()
	s := NewMemoryGraphStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureVertexCollection(ctx, "Node"))
	require.NoError(t, s.EnsureVertexCollection(ctx, "File"))
	require.NoError(t, s.EnsureEdgeCollection(ctx, "Relation", EdgeDefinition{From: []string{"Node"}, To: []string{"Node"}}))
	require.NoError(t, s.EnsureEdgeCollection(ctx, "mentionedIn", EdgeDefinition{From: []string{"Node"}, To: []string{"File"}}))
	return s
}

func TestUpsertVertexUnknownCollection(t *testing.T) {
	s := NewMemoryGraphStore()
	err := s.UpsertVertex(context.Background(), Vertex{Collection: "Node", Key: "a"})
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestUpsertVertexIdempotentOnKey(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "a", Label: "A"}))
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "a", Label: "A2"}))

	v, ok, err := s.GetVertex(ctx, "Node", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A2", v.Label)
	assert.Len(t, s.AllVertices("Node"), 1)
}

func TestNeighborsMultiHopUniqueByPath(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: k, Label: k}))
	}
	// a -> b -> c, and a -> c directly (two paths to c).
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e1", From: "Node/a", To: "Node/b"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e2", From: "Node/b", To: "Node/c"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e3", From: "Node/a", To: "Node/c"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e4", From: "Node/c", To: "Node/d"}))

	got, err := s.Neighbors(ctx, "Node/a", []string{"Relation"}, 3, DirectionOut)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Node/b", "Node/c", "Node/d"}, got)
}

func TestNeighborsRespectsMaxHops(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: k}))
	}
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e1", From: "Node/a", To: "Node/b"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e2", From: "Node/b", To: "Node/c"}))

	got, err := s.Neighbors(ctx, "Node/a", []string{"Relation"}, 1, DirectionOut)
	require.NoError(t, err)
	assert.Equal(t, []string{"Node/b"}, got)
}

func TestQueryVerticesFiltersByProperty(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "a", Properties: map[string]interface{}{"weight": 2.0}}))
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "b", Properties: map[string]interface{}{"weight": 5.0}}))

	it, err := s.QueryVertices(ctx, Query{Collection: "Node", Filters: []Filter{{Field: "weight", Op: FilterGt, Value: 3.0}}})
	require.NoError(t, err)

	var keys []string
	for it.Next(ctx) {
		keys = append(keys, it.Value().Key)
	}
	assert.Equal(t, []string{"b"}, keys)
}

func TestDeleteEdgeUpdatesAdjacency(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "a"}))
	require.NoError(t, s.UpsertVertex(ctx, Vertex{Collection: "Node", Key: "b"}))
	require.NoError(t, s.UpsertEdge(ctx, Edge{Collection: "Relation", Key: "e1", From: "Node/a", To: "Node/b"}))

	require.NoError(t, s.DeleteEdge(ctx, "Relation", "e1"))

	got, err := s.Neighbors(ctx, "Node/a", []string{"Relation"}, 1, DirectionOut)
	require.NoError(t, err)
	assert.Empty(t, got)
}
