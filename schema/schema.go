// Package schema holds the attribute carriers shared across the ingestion,
// knowledge-graph, and retrieval packages.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// NodeType represents the type of an ingestion node.
type NodeType string

const (
	ObjectTypeText     NodeType = "TEXT"
	ObjectTypeImage    NodeType = "IMAGE"
	ObjectTypeIndex    NodeType = "INDEX"
	ObjectTypeDocument NodeType = "DOCUMENT"
)

// Node represents a chunk of data flowing through the ingestion pipeline,
// matching the BaseNode/TextNode concept the teacher ported from llama-index.
type Node struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Type      NodeType               `json:"type"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float64              `json:"embedding,omitempty"`
}

// GetContent returns the node's text content, matching the ingestion
// pipeline's content-hashing and embedding-input needs.
func (n Node) GetContent() string {
	return n.Text
}

// GetHash returns a stable content hash over the node's text and metadata,
// used by the ingestion docstore to detect changed documents across
// re-ingestion runs.
func (n Node) GetHash() string {
	keys := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(n.Text))
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%v", k, n.Metadata[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Document represents a source document.
type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NodeWithScore represents a node with a similarity score from a vector
// store query.
type NodeWithScore struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// FilterOperator represents the operator for a metadata filter.
type FilterOperator string

const (
	FilterOperatorEq  FilterOperator = "=="
	FilterOperatorGt  FilterOperator = ">"
	FilterOperatorLt  FilterOperator = "<"
	FilterOperatorNe  FilterOperator = "!="
	FilterOperatorGte FilterOperator = ">="
	FilterOperatorLte FilterOperator = "<="
	FilterOperatorIn  FilterOperator = "in"
	FilterOperatorNin FilterOperator = "nin"
)

// MetadataFilter represents a single metadata filter.
type MetadataFilter struct {
	Key      string         `json:"key"`
	Value    interface{}    `json:"value"`
	Operator FilterOperator `json:"operator"`
}

// MetadataFilters represents a list of metadata filters.
type MetadataFilters struct {
	Filters []MetadataFilter `json:"filters"`
}

// VectorStoreQuery represents a kNN query against a vector store.
type VectorStoreQuery struct {
	Embedding []float64        `json:"embedding"`
	TopK      int              `json:"top_k"`
	Filters   *MetadataFilters `json:"filters,omitempty"`
}

// Counts is an additive small-integer-keyed accumulator, used for the
// source/source_ref/document maps that grow monotonically as the knowledge
// graph is built (§3, §9 "Dict-of-counts accumulators").
type Counts map[string]int

// Add increments key by delta, creating the entry if absent.
func (c Counts) Add(key string, delta int) {
	c[key] += delta
}

// Merge additively folds other into c.
func (c Counts) Merge(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// TotalKey is the reserved key carrying the running total inside a
// source_ref accumulator (§4.F).
const TotalKey = "_total"

// File is the §3 "File chunk" entity: the unit the loader inserts and the
// KG builder attributes relations to.
type File struct {
	Key string `json:"key"`
	// Content is the chunk's Markdown body.
	Content string `json:"content"`
	// FilePath is the stable, re-ingestion-idempotent identifier.
	FilePath string `json:"file_path"`
	// Label is filename + h1, used for display.
	Label string `json:"label"`
	// Document maps filename -> occurrence count.
	Document Counts `json:"document"`
	// Source maps "filename+page-hint" -> occurrence count.
	Source Counts `json:"source"`
	// SourceRef maps self-key -> count, plus TotalKey -> running total.
	SourceRef Counts `json:"source_ref"`
	// IsGraph is set once the chunk has been passed through the KG builder.
	IsGraph bool `json:"is_graph"`
}

// NewFile builds an empty File ready for accumulation.
func NewFile(key, filePath, label, content string) *File {
	return &File{
		Key:       key,
		FilePath:  filePath,
		Label:     label,
		Content:   content,
		Document:  Counts{},
		Source:    Counts{},
		SourceRef: Counts{},
	}
}

// KGNode is the §3 "Knowledge node" entity.
type KGNode struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	// Document/Source/SourceRef are additive accumulators merged on upsert.
	Document  Counts `json:"document"`
	Source    Counts `json:"source"`
	SourceRef Counts `json:"source_ref"`
	// Weight is set by the post-processor (4.F).
	Weight float64 `json:"weight"`
	// Communities holds one community index per depth, shallow-to-deep.
	Communities []int `json:"communities"`
}

// NewKGNode builds an empty KGNode ready for accumulation.
func NewKGNode(key, label string) *KGNode {
	return &KGNode{
		Key:       key,
		Label:     label,
		Document:  Counts{},
		Source:    Counts{},
		SourceRef: Counts{},
	}
}

// Merge additively folds other's accumulators into n, matching the upsert
// semantics of 4.E ("additively merge source, source_ref, document maps").
func (n *KGNode) Merge(other *KGNode) {
	n.Document.Merge(other.Document)
	n.Source.Merge(other.Source)
	n.SourceRef.Merge(other.SourceRef)
}

// CommunityAt returns the node's community index at depth d, or -1 if the
// node has not been assigned a community at that depth.
func (n *KGNode) CommunityAt(depth int) int {
	if depth < 0 || depth >= len(n.Communities) {
		return -1
	}
	return n.Communities[depth]
}

// KGRelation is the §3 "Relation edge" entity.
type KGRelation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
}

// MentionedInRelation is the §3 "Mentioned-in edge": Node -> File.
type MentionedInRelation struct {
	NodeKey string `json:"node_key"`
	FileKey string `json:"file_key"`
	Weight  int    `json:"weight"`
}

// CommunityNode is the §3 "Community node" entity, materialised by the
// community builder (4.H) from the Leiden hierarchy.
type CommunityNode struct {
	// CommunityKey is "ddddd/iiiii" (degree/index, zero-padded).
	CommunityKey    string `json:"community_key"`
	CommunityDegree int    `json:"community_degree"`
	CommunityIndex  int    `json:"community_index"`
	// Vertices/Edges are sorted member id lists.
	Vertices []string `json:"vertices"`
	Edges    []string `json:"edges"`

	Document  Counts `json:"document"`
	Source    Counts `json:"source"`
	SourceRef Counts `json:"source_ref"`

	Label   string  `json:"label"`
	Content string  `json:"content"`
	Weight  float64 `json:"weight"`

	IsLeaf bool `json:"is_leaf"`
	IsCopy bool `json:"is_copy"`
}

// PendingContent is the placeholder content for a community awaiting
// summarisation (4.H/4.I: "_" when pending).
const PendingContent = "_"

// Signature returns the dedup identity used by the community builder to
// carry forward non-placeholder summaries across rebuilds (4.H).
func (c *CommunityNode) Signature() string {
	return signatureOf(c.Vertices, c.Edges)
}

func signatureOf(vertices, edges []string) string {
	s := "v:"
	for _, v := range vertices {
		s += v + ","
	}
	s += "|e:"
	for _, e := range edges {
		s += e + ","
	}
	return s
}

// CommunityEdge is a parent-to-child edge in the community hierarchy graph
// (§3 "Community edge").
type CommunityEdge struct {
	FromKey string `json:"from_key"`
	ToKey   string `json:"to_key"`
	Weight  int    `json:"weight"`
}

// RetrievalRecord is the uniform result shape every 4.J retrieval strategy
// returns.
type RetrievalRecord struct {
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Path               string   `json:"path"`
	Type               string   `json:"type"`
	MatchedContent     string   `json:"matchedContent"`
	SurroundingContent string   `json:"surroundingContent"`
	Links              []string `json:"links"`
}
