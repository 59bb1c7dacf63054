package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountsMerge(t *testing.T) {
	a := Counts{"x.pdf": 1, TotalKey: 1}
	b := Counts{"x.pdf": 2, "y.pdf": 1, TotalKey: 1}

	a.Merge(b)

	assert.Equal(t, 3, a["x.pdf"])
	assert.Equal(t, 1, a["y.pdf"])
	assert.Equal(t, 2, a[TotalKey])
}

func TestKGNodeMergeIsAdditive(t *testing.T) {
	n := NewKGNode("alice", "Alice")
	n.Source.Add("doc1.pdf#Page (1)", 1)
	n.SourceRef.Add("bob", 1)
	n.SourceRef.Add(TotalKey, 1)

	other := NewKGNode("alice", "Alice")
	other.Source.Add("doc1.pdf#Page (1)", 1)
	other.SourceRef.Add("carol", 1)
	other.SourceRef.Add(TotalKey, 1)

	n.Merge(other)

	require.Equal(t, 2, n.Source["doc1.pdf#Page (1)"])
	require.Equal(t, 1, n.SourceRef["bob"])
	require.Equal(t, 1, n.SourceRef["carol"])
	require.Equal(t, 2, n.SourceRef[TotalKey])
}

func TestCommunityNodeSignatureStableUnderReorder(t *testing.T) {
	a := &CommunityNode{Vertices: []string{"a", "b"}, Edges: []string{"e1"}}
	b := &CommunityNode{Vertices: []string{"a", "b"}, Edges: []string{"e1"}}
	assert.Equal(t, a.Signature(), b.Signature())

	c := &CommunityNode{Vertices: []string{"a", "c"}, Edges: []string{"e1"}}
	assert.NotEqual(t, a.Signature(), c.Signature())
}

func TestCommunityAtOutOfRange(t *testing.T) {
	n := NewKGNode("x", "X")
	n.Communities = []int{0, 1}

	assert.Equal(t, 0, n.CommunityAt(0))
	assert.Equal(t, 1, n.CommunityAt(1))
	assert.Equal(t, -1, n.CommunityAt(2))
	assert.Equal(t, -1, n.CommunityAt(-1))
}

func TestNewFileAccumulatorsInitialised(t *testing.T) {
	f := NewFile("k1", "/docs/a.pdf", "a.pdf#Title", "# Title\n\nbody")
	f.Document.Add("a.pdf", 1)
	f.Source.Add("a.pdf#Page (1)", 1)
	f.SourceRef.Add(TotalKey, 1)

	assert.Equal(t, 1, f.Document["a.pdf"])
	assert.False(t, f.IsGraph)
}
