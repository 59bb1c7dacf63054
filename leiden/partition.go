package leiden

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Partition is a list of disjoint, non-empty vertex-id sets covering a
// graph's vertex set.
type Partition []map[int]bool

// singletonPartition returns one singleton community per vertex 0..g.N-1.
func singletonPartition(g *Graph) Partition {
	p := make(Partition, g.N)
	for v := 0; v < g.N; v++ {
		p[v] = map[int]bool{v: true}
	}
	return p
}

// moveNodes implements 4.G's local-move phase. Vertices are processed off a
// queue seeded with a random permutation; a successful move requeues the
// moved vertex's neighbours whose community now differs. The queue (rather
// than the spec's separate "next set") is grown in place — functionally
// equivalent since a full pass with zero requeues is exactly an empty
// queue, which is this loop's termination condition.
func moveNodes(g *Graph, partition Partition, gamma float64, rng *rand.Rand) Partition {
	commOf := make([]int, g.N)
	comms := make([]map[int]bool, len(partition))
	copy(comms, partition)
	for idx, c := range comms {
		for v := range c {
			commOf[v] = idx
		}
	}

	order := make([]int, g.N)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	queue := order
	inQueue := make([]bool, g.N)
	for _, v := range queue {
		inQueue[v] = true
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		inQueue[v] = false

		curIdx := commOf[v]
		curWithoutV := without(comms[curIdx], v)

		bestDelta := 0.0
		bestIdx := -1 // -1 means "move to a fresh empty singleton"

		if d := deltaCPM(g, v, curWithoutV, map[int]bool{}, gamma); d > bestDelta {
			bestDelta = d
			bestIdx = -1
		}
		for idx, c := range comms {
			if idx == curIdx || len(c) == 0 {
				continue
			}
			if d := deltaCPM(g, v, curWithoutV, c, gamma); d > bestDelta {
				bestDelta = d
				bestIdx = idx
			}
		}

		if bestDelta <= 0 {
			continue
		}

		delete(comms[curIdx], v)
		if len(comms[curIdx]) == 0 {
			comms[curIdx] = nil
		}

		var newIdx int
		if bestIdx == -1 {
			comms = append(comms, map[int]bool{v: true})
			newIdx = len(comms) - 1
		} else {
			comms[bestIdx][v] = true
			newIdx = bestIdx
		}
		commOf[v] = newIdx

		for _, nb := range g.Neighbors(v) {
			if commOf[nb] != newIdx && !inQueue[nb] {
				queue = append(queue, nb)
				inQueue[nb] = true
			}
		}
	}

	return compactPartition(comms)
}

func compactPartition(comms []map[int]bool) Partition {
	out := make(Partition, 0, len(comms))
	for _, c := range comms {
		if len(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// refinePartition implements 4.G's refine_partition/merge_nodes_subset:
// a fresh singleton partition is seeded, then for every input community C,
// well-connected singleton members are probabilistically merged into a
// well-connected candidate sub-community within C.
func refinePartition(g *Graph, partition Partition, gamma float64, rng *rand.Rand) Partition {
	refCommOf := make([]int, g.N)
	refComms := make([]map[int]bool, g.N)
	for v := 0; v < g.N; v++ {
		refComms[v] = map[int]bool{v: true}
		refCommOf[v] = v
	}

	maxExp := MaxExp()

	for _, C := range partition {
		wellConnected := wellConnectedMembers(g, C, gamma)

		for _, v := range wellConnected {
			if len(refComms[refCommOf[v]]) != 1 {
				continue // no longer a singleton in the refined partition
			}

			type candidate struct {
				idx   int
				delta float64
			}
			var candidates []candidate
			seenIdx := map[int]bool{}

			for _, u := range sortedKeys(C) {
				ridx := refCommOf[u]
				if seenIdx[ridx] {
					continue
				}
				seenIdx[ridx] = true
				R := refComms[ridx]
				if !subsetOf(R, C) {
					continue
				}
				nR := flattenSize(g, R)
				rest := subtractSet(C, R)
				threshold := gamma * float64(nR) * float64(flattenSize(g, C)-nR)
				if pairwiseSum(g, R, rest) < threshold {
					continue
				}
				d := deltaCPM(g, v, without(refComms[refCommOf[v]], v), R, gamma)
				if d >= 0 {
					candidates = append(candidates, candidate{ridx, d})
				}
			}
			if len(candidates) == 0 {
				continue
			}

			weights := make([]float64, len(candidates))
			var total float64
			for i, c := range candidates {
				var w float64
				if c.delta >= maxExp {
					w = math.Exp(709)
				} else {
					w = math.Exp(c.delta / Theta)
				}
				weights[i] = w
				total += w
			}

			chosen := candidates[len(candidates)-1].idx
			if total > 0 {
				r := rng.Float64() * total
				var cum float64
				for i, w := range weights {
					cum += w
					if r <= cum {
						chosen = candidates[i].idx
						break
					}
				}
			}

			delete(refComms[refCommOf[v]], v)
			refComms[chosen][v] = true
			refCommOf[v] = chosen
		}
	}

	return compactPartition(refComms)
}

// wellConnectedMembers returns the members of C whose cross-edge weight to
// the rest of C meets the CPM threshold γ·n·(|C|−n).
func wellConnectedMembers(g *Graph, C map[int]bool, gamma float64) []int {
	var out []int
	for v := range C {
		n := g.Size(v)
		threshold := gamma * float64(n) * float64(flattenSize(g, C)-n)
		if g.edgesBetween(v, without(C, v)) >= threshold {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func subsetOf(a, b map[int]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func subtractSet(a, b map[int]bool) map[int]bool {
	out := make(map[int]bool, len(a))
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	return out
}

// pairwiseSum sums edge weights between every member of a and every member
// of b (a and b assumed disjoint).
func pairwiseSum(g *Graph, a, b map[int]bool) float64 {
	var total float64
	for u := range a {
		for v, w := range g.weight[u] {
			if b[v] {
				total += w
			}
		}
	}
	return total
}

// aggregation is the result of collapsing a refined partition into
// super-vertices: a new Graph plus the lifted outer partition (grouping
// super-vertices by the outer-partition community their members came from).
type aggregation struct {
	graph     *Graph
	lifted    Partition
	superOf   []int // superOf[v] = index of the super-vertex that vertex v of the aggregated graph falls into
}

// aggregateGraph implements 4.G's Aggregation step: refined communities
// become super-vertices; inter-super-vertex weight sums the original
// cross-community edges, and self-loops on a super-vertex carry its
// community's internal weight forward so CPM's objective is preserved
// across aggregation rounds. outerOf assigns every vertex of g to its
// pre-refinement community so the lifted partition can be built by
// containment.
func aggregateGraph(g *Graph, refined Partition, outerOf []int) aggregation {
	k := len(refined)
	ng := NewGraph(k)
	superOf := make([]int, g.N)
	outerOfSuper := make([]int, k)

	for i, C := range refined {
		ng.SetSize(i, flattenSize(g, C))
		for v := range C {
			superOf[v] = i
		}
		for v := range C {
			outerOfSuper[i] = outerOf[v]
			break
		}
	}

	for i, Ci := range refined {
		if w := internalWeight(g, Ci); w > 0 {
			ng.AddEdge(i, i, w)
		}
		for j := i + 1; j < k; j++ {
			Cj := refined[j]
			if w := pairwiseSum(g, Ci, Cj); w > 0 {
				ng.AddEdge(i, j, w)
			}
		}
	}

	liftGroups := make(map[int]map[int]bool)
	for i := 0; i < k; i++ {
		oc := outerOfSuper[i]
		if liftGroups[oc] == nil {
			liftGroups[oc] = make(map[int]bool)
		}
		liftGroups[oc][i] = true
	}
	lifted := make(Partition, 0, len(liftGroups))
	for _, set := range liftGroups {
		lifted = append(lifted, set)
	}

	return aggregation{graph: ng, lifted: lifted, superOf: superOf}
}
