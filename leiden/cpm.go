package leiden

// Constants from spec.md §4.G, named exactly as the reference Python names
// them so this file reads as a direct transcription.
const (
	Theta          = 0.1
	MaxClusterSize = 20
	MaxDepth       = 6
	GammaMultiplier = 2
)

// MaxExp returns θ's saturation bound: 709·θ, beyond which exp(Δ/θ) is
// replaced by the saturated representative exp(709) in refine's weighted
// sampling (4.G).
func MaxExp() float64 {
	return 709 * Theta
}

// DefaultGamma returns the CPM resolution parameter for a graph of the given
// vertex count: γ = 2.75/|V| + 0.0025.
func DefaultGamma(numVertices int) float64 {
	return 2.75/float64(numVertices) + 0.0025
}

// combHalf computes f(c,n) = 0.5·n·(1−n) − n·c, the CPM "pairs" helper used
// by both the objective and the Δ formula.
func combHalf(c, n int) float64 {
	nf := float64(n)
	return 0.5*nf*(1-nf) - nf*float64(c)
}

// ObjectiveCPM computes H(G,P) = Σ_C [in(C) − γ·C(|C|,2)] for partition
// communities, each given as a set of vertex ids.
func ObjectiveCPM(g *Graph, communities []map[int]bool, gamma float64) float64 {
	var h float64
	for _, c := range communities {
		n := flattenSize(g, c)
		h += internalWeight(g, c) - gamma*pairs(n)
	}
	return h
}

// pairs returns C(n,2) = 0.5·n·(n−1), the combinatorial pair count for a
// community of flattened size n.
func pairs(n int) float64 {
	nf := float64(n)
	return 0.5 * nf * (nf - 1)
}

// deltaCPM computes the optimised Δ-CPM formula (4.G) for moving vertex v
// (flatten-size n) out of curWithoutV (its current community, v already
// excluded by the caller) into target (possibly empty, v excluded).
func deltaCPM(g *Graph, v int, curWithoutV, target map[int]bool, gamma float64) float64 {
	n := g.Size(v)
	edgesToTarget := g.edgesBetween(v, target)
	edgesToCur := g.edgesBetween(v, curWithoutV)
	fTarget := combHalf(flattenSize(g, target), n)
	fCur := combHalf(flattenSize(g, curWithoutV), n)
	return edgesToTarget - edgesToCur + gamma*(fTarget-fCur)
}

// without returns a shallow copy of s with v removed.
func without(s map[int]bool, v int) map[int]bool {
	out := make(map[int]bool, len(s))
	for k := range s {
		if k != v {
			out[k] = true
		}
	}
	return out
}
