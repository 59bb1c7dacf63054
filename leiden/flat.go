package leiden

import "math/rand/v2"

// FlatLeiden runs move-nodes/refine/aggregate to a fixed point on g and
// returns the resulting partition in terms of g's own vertex ids (0..g.N-1).
// This is 4.G's "Iteration" step before hierarchical wrapping is applied.
func FlatLeiden(g *Graph, gamma float64, rng *rand.Rand) Partition {
	curGraph := g
	curPartition := singletonPartition(curGraph)
	// origins[i] = set of original (top-level) vertex ids flattened under
	// curGraph's vertex i.
	origins := make([]map[int]bool, curGraph.N)
	for v := 0; v < curGraph.N; v++ {
		origins[v] = map[int]bool{v: true}
	}

	for {
		curPartition = moveNodes(curGraph, curPartition, gamma, rng)
		refined := refinePartition(curGraph, curPartition, gamma, rng)

		outerOf := make([]int, curGraph.N)
		for idx, c := range curPartition {
			for v := range c {
				outerOf[v] = idx
			}
		}

		agg := aggregateGraph(curGraph, refined, outerOf)

		if len(agg.lifted) == agg.graph.N {
			// No further progress: every super-vertex is its own community.
			return liftOriginalPartition(refined, origins)
		}

		newOrigins := make([]map[int]bool, agg.graph.N)
		for v := 0; v < curGraph.N; v++ {
			si := agg.superOf[v]
			if newOrigins[si] == nil {
				newOrigins[si] = make(map[int]bool)
			}
			for o := range origins[v] {
				newOrigins[si][o] = true
			}
		}

		curGraph = agg.graph
		curPartition = agg.lifted
		origins = newOrigins
	}
}

// liftOriginalPartition translates the final refined partition (over the
// current aggregated graph's vertex ids) back to original vertex ids via
// the accumulated origins map.
func liftOriginalPartition(refined Partition, origins []map[int]bool) Partition {
	out := make(Partition, 0, len(refined))
	for _, C := range refined {
		orig := make(map[int]bool)
		for v := range C {
			for o := range origins[v] {
				orig[o] = true
			}
		}
		out = append(out, orig)
	}
	return out
}
