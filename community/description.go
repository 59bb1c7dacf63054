package community

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aqua777/graphrag-core/graphstore"
)

// describeNode renders a knowledge-graph node's neighbourhood as a sentence
// per (edge label, up-to-five neighbour labels) chunk, grouped by edge
// collection and direction (4.H leaf content). Grounded on
// get_node_description in the original indexer's Arango client: walk every
// registered edge collection, bucket outbound and inbound neighbours by edge
// label, and emit one sentence per five-neighbour chunk.
func (b *Builder) describeNode(ctx context.Context, nodeID, nodeLabel string, edgeCollections []string) (string, error) {
	var desc strings.Builder

	for _, collection := range edgeCollections {
		out, in, err := b.collectNeighborLabels(ctx, collection, nodeID)
		if err != nil {
			return "", err
		}

		for _, label := range sortedKeys(out) {
			for _, chunk := range chunkBy5(out[label]) {
				fmt.Fprintf(&desc, "%s has relation %q with %s. ", nodeLabel, label, strings.Join(chunk, ", "))
			}
		}
		for _, label := range sortedKeys(in) {
			for _, chunk := range chunkBy5(in[label]) {
				fmt.Fprintf(&desc, "%s have relation %q with %s. ", strings.Join(chunk, ", "), label, nodeLabel)
			}
		}
	}

	result := strings.TrimSuffix(desc.String(), " ")
	if result == "" {
		return nodeLabel + ".", nil
	}
	return result, nil
}

// collectNeighborLabels scans every edge in collection once, bucketing the
// far-end vertex's label by edge label separately for edges starting at
// nodeID (out) and ending at nodeID (in).
func (b *Builder) collectNeighborLabels(ctx context.Context, collection, nodeID string) (out, in map[string][]string, err error) {
	it, err := b.Graph.QueryEdges(ctx, graphstore.Query{Collection: collection})
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	out = map[string][]string{}
	in = map[string][]string{}
	for it.Next(ctx) {
		e := it.Value()
		switch {
		case e.From == nodeID && e.To == nodeID:
			// self-loop; neither endpoint is "the other side".
		case e.From == nodeID:
			out[e.Label] = append(out[e.Label], b.vertexLabel(ctx, e.To))
		case e.To == nodeID:
			in[e.Label] = append(in[e.Label], b.vertexLabel(ctx, e.From))
		}
	}
	return out, in, it.Err()
}

// vertexLabel resolves a collection-qualified id to its vertex's label,
// falling back to the bare key when the vertex is missing or unlabelled.
func (b *Builder) vertexLabel(ctx context.Context, id string) string {
	parts := strings.SplitN(id, "/", 2)
	if len(parts) != 2 {
		return id
	}
	v, found, err := b.Graph.GetVertex(ctx, parts[0], parts[1])
	if err != nil || !found || v.Label == "" {
		return parts[1]
	}
	return v.Label
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func chunkBy5(items []string) [][]string {
	var chunks [][]string
	for i := 0; i < len(items); i += 5 {
		end := i + 5
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
