// Package community implements 4.H: materialising the Leiden community
// hierarchy into a CommunityNode/communityEdge graph, carrying forward
// prior summaries across rebuilds and describing leaf communities from
// their knowledge-graph neighbourhood.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/kgbuilder"
	"github.com/aqua777/graphrag-core/leiden"
	"github.com/aqua777/graphrag-core/schema"
)

// Collection and EdgeCollection name the community graph's vertex/edge
// collections, matching the original indexer's "CommunityNode"/
// "communityEdge" naming.
const (
	Collection     = "CommunityNode"
	EdgeCollection = "communityEdge"
)

// RootKey is the community key of the virtual root community covering every
// vertex, one layer above Leiden's own depth-0 partition (community_degree 0
// in the original indexer, with depth-0 Leiden communities shifted to
// community_degree 1 and so on).
const RootKey = "00000/00000"

// Builder walks a Node/Relation knowledge graph's Leiden hierarchy and
// materialises it as a CommunityNode tree.
type Builder struct {
	Graph  graphstore.GraphStore
	Rand   *rand.Rand
	Logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRand overrides the default deterministic RNG.
func WithRand(r *rand.Rand) Option { return func(b *Builder) { b.Rand = r } }

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.Logger = l } }

// NewBuilder builds a Builder over graph.
func NewBuilder(graph graphstore.GraphStore, opts ...Option) *Builder {
	b := &Builder{
		Graph:  graph,
		Rand:   rand.New(rand.NewPCG(1, 1)),
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run rebuilds the community hierarchy: snapshot the Node/Relation graph,
// run hierarchical Leiden, materialise a CommunityNode per community
// (carrying forward prior summaries by signature), connect them with
// communityEdge edges, and record each node's per-depth community index.
func (b *Builder) Run(ctx context.Context) error {
	if err := b.Graph.EnsureVertexCollection(ctx, Collection); err != nil {
		return err
	}
	if err := b.Graph.EnsureEdgeCollection(ctx, EdgeCollection, graphstore.EdgeDefinition{
		Collection: EdgeCollection,
		From:       []string{Collection},
		To:         []string{Collection},
	}); err != nil {
		return err
	}

	carryForward, err := b.loadCarryForward(ctx)
	if err != nil {
		return err
	}

	nodeKeys, nodes, g, err := b.buildSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(nodeKeys) == 0 {
		b.Logger.Info("community: no nodes to partition, skipping")
		return nil
	}

	edgeCollections, err := b.allEdgeCollectionNames(ctx)
	if err != nil {
		return err
	}
	incidentEdges, err := b.vertexIncidentEdges(ctx)
	if err != nil {
		return err
	}

	res := leiden.BuildHierarchy(g, b.Rand)

	communities := b.materialiseCommunities(nodeKeys, nodes, incidentEdges, res)

	for key, cn := range communities {
		if err := b.resolveContent(ctx, cn, carryForward, edgeCollections); err != nil {
			return fmt.Errorf("resolve content for community %s: %w", key, err)
		}
	}

	for _, cn := range communities {
		if err := b.upsertCommunityNode(ctx, cn); err != nil {
			return err
		}
	}
	if err := b.upsertCommunityEdges(ctx, res); err != nil {
		return err
	}
	if err := b.recordVertexCommunities(ctx, nodeKeys, nodes, res); err != nil {
		return err
	}

	return nil
}

// materialiseCommunities builds one aggregated CommunityNode per Leiden
// community plus the virtual root covering every vertex, keyed by
// "degree/index" with Leiden's own depth shifted up by one so the root can
// occupy degree 0 (4.H, grounded on KG_4_InitLeidenCommunities.py's
// "{:05}/{:05}".format(degree, index)" keying and its community_degree==0
// root lookup).
func (b *Builder) materialiseCommunities(nodeKeys []string, nodes []graphstore.Vertex, incidentEdges map[string][]string, res *leiden.HierarchyResult) map[string]*schema.CommunityNode {
	communities := make(map[string]*schema.CommunityNode)

	rootVertices := make([]string, len(nodeKeys))
	rootEdgeSet := map[string]bool{}
	for i, key := range nodeKeys {
		id := kgbuilder.NodeCollection + "/" + key
		rootVertices[i] = id
		for _, eid := range incidentEdges[id] {
			rootEdgeSet[eid] = true
		}
	}
	sort.Strings(rootVertices)
	communities[RootKey] = b.aggregate(nodes, rootVertices, sortedSet(rootEdgeSet), 0, 0)

	copyTargets := map[string]bool{}
	for _, e := range res.Edges {
		if e.IsCopy {
			copyTargets[communityKey(e.ToDepth+1, e.ToIndex)] = true
		}
	}

	for depth, layer := range res.Layers {
		degree := depth + 1
		for idx, c := range layer {
			vertices := make([]string, len(c.Vertices))
			members := make([]graphstore.Vertex, len(c.Vertices))
			edgeSet := map[string]bool{}
			for i, vid := range c.Vertices {
				vertices[i] = kgbuilder.NodeCollection + "/" + nodeKeys[vid]
				members[i] = nodes[vid]
				for _, eid := range incidentEdges[vertices[i]] {
					edgeSet[eid] = true
				}
			}
			sort.Strings(vertices)

			cn := b.aggregate(members, vertices, sortedSet(edgeSet), degree, idx)
			cn.IsLeaf = len(c.Vertices) == 1 && depth == res.Depth
			cn.IsCopy = copyTargets[cn.CommunityKey]
			communities[cn.CommunityKey] = cn
		}
	}

	return communities
}

// aggregate builds a CommunityNode's additive accumulators from members,
// defaulting label/content to the pending placeholder (4.H "basic node,
// filled with the child nodes and source references").
func (b *Builder) aggregate(members []graphstore.Vertex, vertices, edges []string, degree, index int) *schema.CommunityNode {
	cn := &schema.CommunityNode{
		CommunityKey:    communityKey(degree, index),
		CommunityDegree: degree,
		CommunityIndex:  index,
		Vertices:        vertices,
		Edges:           edges,
		Document:        schema.Counts{},
		Source:          schema.Counts{},
		SourceRef:       schema.Counts{},
		Label:           schema.PendingContent,
		Content:         schema.PendingContent,
	}
	for _, m := range members {
		cn.Document.Merge(toCounts(m.Properties["document"]))
		cn.Source.Merge(toCounts(m.Properties["source"]))
		cn.SourceRef.Merge(toCounts(m.Properties["source_ref"]))
	}
	return cn
}

// resolveContent applies the dedup-and-carry-forward rule: a prior
// community with the same (vertices, edges) signature and a non-placeholder
// summary overwrites cn's label/content/accumulators/weight wholesale;
// otherwise a fresh leaf gets a generated neighbourhood description.
func (b *Builder) resolveContent(ctx context.Context, cn *schema.CommunityNode, carryForward map[string]*schema.CommunityNode, edgeCollections []string) error {
	if saved, ok := carryForward[cn.Signature()]; ok {
		cn.Label = saved.Label
		cn.Content = saved.Content
		cn.Source = saved.Source
		cn.SourceRef = saved.SourceRef
		cn.Document = saved.Document
		cn.IsLeaf = saved.IsLeaf
		cn.IsCopy = saved.IsCopy
		cn.Weight = saved.Weight
		return nil
	}

	if !cn.IsLeaf {
		return nil
	}

	nodeID := cn.Vertices[0]
	parts := strings.SplitN(nodeID, "/", 2)
	if len(parts) != 2 {
		return nil
	}
	node, found, err := b.Graph.GetVertex(ctx, parts[0], parts[1])
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	label := node.Label
	if label == "" {
		label = parts[1]
	}
	content, err := b.describeNode(ctx, nodeID, label, edgeCollections)
	if err != nil {
		return err
	}

	cn.Label = label
	cn.Content = content
	if w, ok := node.Properties["weight"].(float64); ok {
		cn.Weight = w
	}
	return nil
}

func (b *Builder) upsertCommunityNode(ctx context.Context, cn *schema.CommunityNode) error {
	v := graphstore.Vertex{
		Collection: Collection,
		Key:        cn.CommunityKey,
		Label:      cn.Label,
		Properties: map[string]interface{}{
			"community_key":    cn.CommunityKey,
			"community_degree": cn.CommunityDegree,
			"community_index":  cn.CommunityIndex,
			"vertices":         cn.Vertices,
			"edges":            cn.Edges,
			"document":         countsProperty(cn.Document),
			"source":           countsProperty(cn.Source),
			"source_ref":       countsProperty(cn.SourceRef),
			"content":          cn.Content,
			"weight":           cn.Weight,
			"is_leaf":          cn.IsLeaf,
			"is_copy":          cn.IsCopy,
		},
	}
	return b.Graph.UpsertVertex(ctx, v)
}

// upsertCommunityEdges writes the root pseudo-edges (virtual root ->
// depth-0 communities) and every cross/copy edge from the hierarchy result,
// shifting Leiden depths up by one to match materialiseCommunities' keying.
func (b *Builder) upsertCommunityEdges(ctx context.Context, res *leiden.HierarchyResult) error {
	for _, re := range res.RootEdges {
		toKey := communityKey(re.ToDepth+1, re.ToIndex)
		if err := b.upsertCommunityEdge(ctx, RootKey, toKey, re.Weight); err != nil {
			return err
		}
	}
	for _, e := range res.Edges {
		fromKey := communityKey(e.FromDepth+1, e.FromIndex)
		toKey := communityKey(e.ToDepth+1, e.ToIndex)
		if err := b.upsertCommunityEdge(ctx, fromKey, toKey, e.Weight); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) upsertCommunityEdge(ctx context.Context, fromKey, toKey string, weight int) error {
	return b.Graph.UpsertEdge(ctx, graphstore.Edge{
		Collection: EdgeCollection,
		Key:        fromKey + "->" + toKey,
		From:       Collection + "/" + fromKey,
		To:         Collection + "/" + toKey,
		Weight:     float64(weight),
	})
}

// recordVertexCommunities writes each Node's per-depth community index back
// onto schema.KGNode's "communities" field (shallow-to-deep), so retrieval
// strategies can resolve a node's ancestry without re-running Leiden.
func (b *Builder) recordVertexCommunities(ctx context.Context, nodeKeys []string, nodes []graphstore.Vertex, res *leiden.HierarchyResult) error {
	for vid := range nodeKeys {
		comms, ok := res.VertexCommunities[vid]
		if !ok {
			continue
		}
		node := nodes[vid]
		if node.Properties == nil {
			node.Properties = map[string]interface{}{}
		}
		node.Properties["communities"] = comms
		if err := b.Graph.UpsertVertex(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

// loadCarryForward reads every CommunityNode already in the graph from a
// prior run, keyed by signature, keeping only those with a non-placeholder
// summary (4.H "if a previous community with the same signature carried a
// non-placeholder summary, copy that summary forward").
func (b *Builder) loadCarryForward(ctx context.Context) (map[string]*schema.CommunityNode, error) {
	it, err := b.Graph.QueryVertices(ctx, graphstore.Query{Collection: Collection})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := map[string]*schema.CommunityNode{}
	for it.Next(ctx) {
		v := it.Value()
		content, _ := v.Properties["content"].(string)
		if content == "" || content == schema.PendingContent {
			continue
		}
		cn := vertexToCommunityNode(v)
		out[cn.Signature()] = cn
	}
	return out, it.Err()
}

func vertexToCommunityNode(v graphstore.Vertex) *schema.CommunityNode {
	label, _ := v.Properties["label"].(string)
	content, _ := v.Properties["content"].(string)
	weight, _ := v.Properties["weight"].(float64)
	isLeaf, _ := v.Properties["is_leaf"].(bool)
	isCopy, _ := v.Properties["is_copy"].(bool)
	return &schema.CommunityNode{
		CommunityKey: v.Key,
		Vertices:     toStringSlice(v.Properties["vertices"]),
		Edges:        toStringSlice(v.Properties["edges"]),
		Document:     toCounts(v.Properties["document"]),
		Source:       toCounts(v.Properties["source"]),
		SourceRef:    toCounts(v.Properties["source_ref"]),
		Label:        label,
		Content:      content,
		Weight:       weight,
		IsLeaf:       isLeaf,
		IsCopy:       isCopy,
	}
}

// buildSnapshot reads every Node vertex and Relation edge once, assigning
// each Node a dense 0..n-1 Leiden vertex id by sorted key order (§9 "Graph
// snapshot").
func (b *Builder) buildSnapshot(ctx context.Context) (keys []string, nodes []graphstore.Vertex, g *leiden.Graph, err error) {
	it, err := b.Graph.QueryVertices(ctx, graphstore.Query{Collection: kgbuilder.NodeCollection})
	if err != nil {
		return nil, nil, nil, err
	}
	for it.Next(ctx) {
		keys = append(keys, it.Value().Key)
	}
	if err := it.Err(); err != nil {
		it.Close()
		return nil, nil, nil, err
	}
	it.Close()
	sort.Strings(keys)

	index := make(map[string]int, len(keys))
	nodes = make([]graphstore.Vertex, len(keys))
	for i, key := range keys {
		index[key] = i
		v, found, err := b.Graph.GetVertex(ctx, kgbuilder.NodeCollection, key)
		if err != nil {
			return nil, nil, nil, err
		}
		if !found {
			return nil, nil, nil, fmt.Errorf("community: node %s vanished mid-snapshot", key)
		}
		nodes[i] = v
	}

	g = leiden.NewGraph(len(keys))
	eit, err := b.Graph.QueryEdges(ctx, graphstore.Query{Collection: kgbuilder.RelationCollection})
	if err != nil {
		return nil, nil, nil, err
	}
	defer eit.Close()
	for eit.Next(ctx) {
		e := eit.Value()
		fromKey := strings.TrimPrefix(e.From, kgbuilder.NodeCollection+"/")
		toKey := strings.TrimPrefix(e.To, kgbuilder.NodeCollection+"/")
		fi, fok := index[fromKey]
		ti, tok := index[toKey]
		if !fok || !tok {
			continue
		}
		g.AddEdge(fi, ti, e.Weight)
	}
	if err := eit.Err(); err != nil {
		return nil, nil, nil, err
	}

	return keys, nodes, g, nil
}

// vertexIncidentEdges maps every Node/Relation-edge endpoint to the set of
// Relation edge ids touching it, computed once up front so community
// aggregation never re-walks the same vertex twice (4.H "cached per
// vertex").
func (b *Builder) vertexIncidentEdges(ctx context.Context) (map[string][]string, error) {
	it, err := b.Graph.QueryEdges(ctx, graphstore.Query{Collection: kgbuilder.RelationCollection})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := map[string][]string{}
	for it.Next(ctx) {
		e := it.Value()
		id := e.ID()
		out[e.From] = append(out[e.From], id)
		out[e.To] = append(out[e.To], id)
	}
	return out, it.Err()
}

func (b *Builder) allEdgeCollectionNames(ctx context.Context) ([]string, error) {
	defs, err := b.Graph.EdgeDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Collection
	}
	return names, nil
}

func communityKey(degree, index int) string {
	return fmt.Sprintf("%05d/%05d", degree, index)
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
