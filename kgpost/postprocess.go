// Package kgpost implements 4.F: connecting knowledge-graph nodes to their
// source files and computing inverse-occurrence node weights.
package kgpost

import (
	"context"
	"fmt"

	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/kgbuilder"
	"github.com/aqua777/graphrag-core/schema"
)

// MentionedInCollection is the edge collection connecting Node -> File.
const MentionedInCollection = "mentionedIn"

// MentionedInLabel mirrors the original's fixed edge label.
const MentionedInLabel = "is mentioned in"

// ReachabilityHops bounds the "already connected, skip the direct edge"
// check (4.F "enumerate all vertex keys reachable within 3 hops").
const ReachabilityHops = 3

// Processor runs the 4.F post-processing pass over a graph already
// populated by kgbuilder.
type Processor struct {
	Graph graphstore.GraphStore
}

// NewProcessor builds a Processor over graph.
func NewProcessor(graph graphstore.GraphStore) *Processor {
	return &Processor{Graph: graph}
}

// Run creates mentionedIn edges for every Node not already transitively
// connected to its source files, then sets each node's weight to the sum of
// per-source inverse-occurrence contributions (4.F).
func (p *Processor) Run(ctx context.Context) error {
	if err := p.Graph.EnsureEdgeCollection(ctx, MentionedInCollection, graphstore.EdgeDefinition{
		Collection: MentionedInCollection,
		From:       []string{kgbuilder.NodeCollection},
		To:         []string{"File"},
	}); err != nil {
		return err
	}

	edgeCollections, err := p.allEdgeCollectionNames(ctx)
	if err != nil {
		return err
	}

	it, err := p.Graph.QueryVertices(ctx, graphstore.Query{Collection: kgbuilder.NodeCollection})
	if err != nil {
		return err
	}
	var nodes []graphstore.Vertex
	for it.Next(ctx) {
		nodes = append(nodes, it.Value())
	}
	if err := it.Err(); err != nil {
		it.Close()
		return err
	}
	it.Close()

	sourceOccurrences := map[string]int{}
	for _, node := range nodes {
		if err := p.connectNodeToSources(ctx, node, edgeCollections, sourceOccurrences); err != nil {
			return fmt.Errorf("connect node %s: %w", node.Key, err)
		}
	}

	perSourceWeight := make(map[string]float64, len(sourceOccurrences))
	for source, count := range sourceOccurrences {
		if count > 0 {
			perSourceWeight[source] = 1.0 / float64(count)
		}
	}

	for _, node := range nodes {
		if err := p.assignNodeWeight(ctx, node, perSourceWeight); err != nil {
			return fmt.Errorf("assign weight for node %s: %w", node.Key, err)
		}
	}

	return nil
}

func (p *Processor) allEdgeCollectionNames(ctx context.Context) ([]string, error) {
	defs, err := p.Graph.EdgeDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Collection
	}
	return names, nil
}

func sourceRefOf(node graphstore.Vertex) map[string]int {
	raw, ok := node.Properties["source_ref"]
	if !ok {
		return nil
	}
	switch m := raw.(type) {
	case map[string]int:
		return m
	case map[string]interface{}:
		out := make(map[string]int, len(m))
		for k, v := range m {
			switch n := v.(type) {
			case int:
				out[k] = n
			case float64:
				out[k] = int(n)
			}
		}
		return out
	default:
		return nil
	}
}

// connectNodeToSources adds a direct mentionedIn edge for every source in
// node's source_ref not already reachable within ReachabilityHops, and folds
// every non-"_total" occurrence into the running global sourceOccurrences
// tally.
func (p *Processor) connectNodeToSources(ctx context.Context, node graphstore.Vertex, edgeCollections []string, sourceOccurrences map[string]int) error {
	sourceRef := sourceRefOf(node)
	if len(sourceRef) == 0 {
		return nil
	}

	connected, err := p.Graph.Neighbors(ctx, node.ID(), edgeCollections, ReachabilityHops, graphstore.DirectionAny)
	if err != nil {
		return err
	}
	connectedSet := make(map[string]bool, len(connected))
	for _, id := range connected {
		connectedSet[id] = true
	}

	for source, count := range sourceRef {
		if source == schema.TotalKey {
			continue
		}
		sourceOccurrences[source] += count

		fileID := "File/" + source
		if connectedSet[fileID] {
			continue
		}

		edge := graphstore.Edge{
			Collection: MentionedInCollection,
			Key:        node.Key + "|" + source,
			From:       node.ID(),
			To:         fileID,
			Label:      MentionedInLabel,
			Weight:     float64(count),
		}
		if err := p.Graph.UpsertEdge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) assignNodeWeight(ctx context.Context, node graphstore.Vertex, perSourceWeight map[string]float64) error {
	sourceRef := sourceRefOf(node)

	var weight float64
	for source, count := range sourceRef {
		if source == schema.TotalKey {
			continue
		}
		weight += perSourceWeight[source] * float64(count)
	}

	if node.Properties == nil {
		node.Properties = map[string]interface{}{}
	}
	node.Properties["weight"] = weight
	return p.Graph.UpsertVertex(ctx, node)
}
