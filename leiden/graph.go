// Package leiden implements the 4.G hierarchical Constant Potts Model (CPM)
// Leiden community detector: local-move, refine, aggregate, iterated to a
// fixed point and wrapped recursively into a nested partition.
//
// Grounded line-for-line on the reference Python implementation's
// G_LeidenAlgorithm (move_nodes, refine_partition/merge_nodes_subset,
// aggregate_graph, constant_potts_model/delta_potts_model).
package leiden

import "sort"

// Graph is an in-memory snapshot of an undirected weighted graph: vertex ids
// 0..n-1, a symmetric edge-weight map, and a size per vertex (1 for original
// vertices, the flattened leaf count for super-vertices produced by
// aggregation). Per spec.md §9's "Graph snapshot" design note, all Leiden
// operations work on these compact integer ids, never on external keys.
type Graph struct {
	N         int
	weight    []map[int]float64 // weight[u][v], symmetric: weight[u][v]==weight[v][u]
	size      []int             // flatten-size of vertex u
	neighbors []map[int]bool    // adjacency sets for O(1) neighbour tests
}

// NewGraph allocates an empty n-vertex graph with unit sizes.
func NewGraph(n int) *Graph {
	g := &Graph{
		N:         n,
		weight:    make([]map[int]float64, n),
		size:      make([]int, n),
		neighbors: make([]map[int]bool, n),
	}
	for i := 0; i < n; i++ {
		g.weight[i] = make(map[int]float64)
		g.neighbors[i] = make(map[int]bool)
		g.size[i] = 1
	}
	return g
}

// AddEdge adds weight to the (u,v) edge, symmetrically. Self-loops (u==v)
// are allowed and represent internal weight accumulated by aggregation.
func (g *Graph) AddEdge(u, v int, w float64) {
	if w == 0 {
		return
	}
	g.weight[u][v] += w
	g.neighbors[u][v] = true
	if u != v {
		g.weight[v][u] += w
		g.neighbors[v][u] = true
	}
}

// Weight returns the edge weight between u and v, 0 if absent.
func (g *Graph) Weight(u, v int) float64 {
	return g.weight[u][v]
}

// Neighbors returns the distinct neighbours of u (excluding u itself for
// a plain adjacency walk; self-loops are tracked in weight, not here).
func (g *Graph) Neighbors(u int) []int {
	out := make([]int, 0, len(g.neighbors[u]))
	for v := range g.neighbors[u] {
		if v == u {
			continue
		}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Size returns the flatten-size of vertex u.
func (g *Graph) Size(u int) int {
	return g.size[u]
}

// SetSize sets the flatten-size of a super-vertex produced by aggregation.
func (g *Graph) SetSize(u, n int) {
	g.size[u] = n
}

// edgesBetween returns the sum of edge weights between vertex v and every
// member of the set s, excluding v itself (the Δ-CPM formula's edges(v,C)).
func (g *Graph) edgesBetween(v int, s map[int]bool) float64 {
	var total float64
	for nb, w := range g.weight[v] {
		if nb == v {
			continue
		}
		if s[nb] {
			total += w
		}
	}
	return total
}

// internalWeight returns Σ edge weights with both endpoints in s, counting
// each unordered pair once and each self-loop once (the in(C) term of the
// CPM objective).
func internalWeight(g *Graph, s map[int]bool) float64 {
	var total float64
	seen := make(map[[2]int]bool)
	for v := range s {
		for nb, w := range g.weight[v] {
			if !s[nb] {
				continue
			}
			if nb == v {
				total += w
				continue
			}
			key := [2]int{v, nb}
			if v > nb {
				key = [2]int{nb, v}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			total += w
		}
	}
	return total
}

// flattenSize returns Σ size(v) for v in s.
func flattenSize(g *Graph, s map[int]bool) int {
	n := 0
	for v := range s {
		n += g.size[v]
	}
	return n
}

func setOf(ids []int) map[int]bool {
	s := make(map[int]bool, len(ids))
	for _, v := range ids {
		s[v] = true
	}
	return s
}

func sortedKeys(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
