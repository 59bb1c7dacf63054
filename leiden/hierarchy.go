package leiden

import (
	"math/rand/v2"
	"sort"
)

// Community is the nested-partition node. Per spec.md §9's "typed sum
// variant Leaf(vertex_id) | Internal(children)" note, this is rendered as a
// single struct with a nil Children slice standing in for the Leaf variant
// — idiomatic Go avoids a two-case interface for a binary discriminant, and
// Vertices is always populated (even on internal nodes) so flatten-leaf
// enumeration never needs a type switch.
type Community struct {
	// Vertices is the sorted, flattened set of original vertex ids this
	// community covers.
	Vertices []int
	// Children is nil when this community was not split further (either it
	// fit within MaxClusterSize, or MaxDepth was exhausted).
	Children []*Community
}

// IsTreeLeaf reports whether this node was not split further.
func (c *Community) IsTreeLeaf() bool { return len(c.Children) == 0 }

// HierarchicalLeiden implements 4.G's hierarchical wrapping: run flat
// Leiden, then recurse into every resulting community larger than
// MaxClusterSize (while depth remains), doubling gamma each recursion.
func HierarchicalLeiden(g *Graph, gamma float64, depth int, rng *rand.Rand) []*Community {
	flat := FlatLeiden(g, gamma, rng)

	out := make([]*Community, 0, len(flat))
	for _, c := range flat {
		verts := sortedKeys(c)
		comm := &Community{Vertices: verts}
		if len(verts) > MaxClusterSize && depth > 0 {
			sub, mapping := buildSubgraph(g, verts)
			children := HierarchicalLeiden(sub, gamma*GammaMultiplier, depth-1, rng)
			comm.Children = translateChildren(children, mapping)
		}
		out = append(out, comm)
	}
	sort.Slice(out, func(i, j int) bool { return lessIntSlice(out[i].Vertices, out[j].Vertices) })
	return out
}

func lessIntSlice(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// buildSubgraph restricts g to verts, returning a fresh Graph with local
// ids 0..len(verts)-1 and the mapping from local id to original id.
func buildSubgraph(g *Graph, verts []int) (*Graph, []int) {
	sub := NewGraph(len(verts))
	localOf := make(map[int]int, len(verts))
	for i, v := range verts {
		localOf[v] = i
		sub.SetSize(i, g.Size(v))
	}
	for i, v := range verts {
		for nb, w := range g.weight[v] {
			j, ok := localOf[nb]
			if !ok {
				continue
			}
			if nb == v {
				sub.AddEdge(i, i, w)
			} else if j > i {
				sub.AddEdge(i, j, w)
			}
		}
	}
	return sub, verts
}

// translateChildren maps a community subtree's local vertex ids (0..m-1)
// back to original ids via mapping.
func translateChildren(children []*Community, mapping []int) []*Community {
	out := make([]*Community, len(children))
	for i, c := range children {
		out[i] = translateTree(c, mapping)
	}
	return out
}

func translateTree(c *Community, mapping []int) *Community {
	verts := make([]int, len(c.Vertices))
	for i, v := range c.Vertices {
		verts[i] = mapping[v]
	}
	sort.Ints(verts)
	out := &Community{Vertices: verts}
	if c.Children != nil {
		out.Children = translateChildren(c.Children, mapping)
	}
	return out
}

// HierarchyEdge is a parent-to-child edge in the community hierarchy graph
// (§3 "Community edge", §4.G "Community hierarchy graph").
type HierarchyEdge struct {
	FromDepth, FromIndex int
	ToDepth, ToIndex     int
	Weight               int
	IsCopy               bool
}

// HierarchyResult is 4.G's "Output artifacts": vertex_communities and the
// community_graph (layers + edges + a root pseudo-edge set).
type HierarchyResult struct {
	Depth             int
	Layers            [][]*Community
	VertexCommunities map[int][]int
	Edges             []HierarchyEdge
	RootEdges         []HierarchyEdge
}

// BuildHierarchy runs hierarchical Leiden on g and materialises the
// community hierarchy graph: D+1 layers (root = depth 0, deepest = refined
// leaves), copy edges for communities that terminate before depth D, cross
// edges weighted by original-graph crossing weight, and root edges from the
// full vertex set to every depth-0 community.
func BuildHierarchy(g *Graph, rng *rand.Rand) *HierarchyResult {
	gamma := DefaultGamma(g.N)
	top := HierarchicalLeiden(g, gamma, MaxDepth, rng)

	maxDepth := 0
	for _, c := range top {
		if d := treeDepth(c); d > maxDepth {
			maxDepth = d
		}
	}

	res := &HierarchyResult{
		Depth:             maxDepth,
		Layers:            make([][]*Community, maxDepth+1),
		VertexCommunities: make(map[int][]int),
	}

	for _, c := range top {
		idx := processNode(g, res, c, 0, maxDepth)
		res.RootEdges = append(res.RootEdges, HierarchyEdge{FromDepth: -1, FromIndex: 0, ToDepth: 0, ToIndex: idx, Weight: 1})
	}

	for d, layer := range res.Layers {
		for idx, c := range layer {
			for _, v := range c.Vertices {
				if res.VertexCommunities[v] == nil {
					res.VertexCommunities[v] = make([]int, maxDepth+1)
				}
				res.VertexCommunities[v][d] = idx
			}
		}
	}

	return res
}

func treeDepth(c *Community) int {
	if c.IsTreeLeaf() {
		return 0
	}
	best := 0
	for _, ch := range c.Children {
		if d := treeDepth(ch); d > best {
			best = d
		}
	}
	return 1 + best
}

// processNode appends node to res.Layers[depth], recurses (splitting on
// real children, or copy-forwarding a terminal node) until maxDepth, and
// returns node's assigned index within its layer.
func processNode(g *Graph, res *HierarchyResult, node *Community, depth, maxDepth int) int {
	res.Layers[depth] = append(res.Layers[depth], node)
	idx := len(res.Layers[depth]) - 1

	if depth >= maxDepth {
		return idx
	}

	if node.Children != nil {
		parentSet := setOf(node.Vertices)
		for _, child := range node.Children {
			childIdx := processNode(g, res, child, depth+1, maxDepth)
			rest := subtractSet(parentSet, setOf(child.Vertices))
			weight := int(pairwiseSum(g, setOf(child.Vertices), rest))
			if weight <= 0 {
				continue
			}
			res.Edges = append(res.Edges, HierarchyEdge{FromDepth: depth, FromIndex: idx, ToDepth: depth + 1, ToIndex: childIdx, Weight: weight})
		}
		return idx
	}

	copyNode := &Community{Vertices: node.Vertices}
	childIdx := processNode(g, res, copyNode, depth+1, maxDepth)
	res.Edges = append(res.Edges, HierarchyEdge{FromDepth: depth, FromIndex: idx, ToDepth: depth + 1, ToIndex: childIdx, Weight: 1, IsCopy: true})
	return idx
}
