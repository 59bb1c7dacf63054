// Package graphstore provides the 4.A Graph adapter: uniform access to a
// vertex/edge property graph backed by an external store, generalizing the
// teacher's triplet-oriented GraphStore interface to typed collections with
// properties, declarative queries, indices and k-hop traversal.
package graphstore

import (
	"context"
	"errors"
	"fmt"
)

// Distinguished error kinds (§4.A, §7).
var (
	ErrCollectionNotFound = errors.New("graphstore: collection not found")
	ErrDuplicateKey       = errors.New("graphstore: duplicate key")
	ErrQueryFailed        = errors.New("graphstore: query failed")
)

// Vertex is a single node in a named collection, carrying arbitrary
// properties (the KG builder stores source/source_ref/document maps here,
// the community builder stores vertices/edges/label/content, and so on).
type Vertex struct {
	Collection string                 `json:"collection"`
	Key        string                 `json:"key"`
	Label      string                 `json:"label"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ID returns the collection-qualified id, e.g. "Node/alice".
func (v Vertex) ID() string {
	return v.Collection + "/" + v.Key
}

// Edge connects two vertex ids (collection-qualified) within a named edge
// collection.
type Edge struct {
	Collection string                 `json:"collection"`
	Key        string                 `json:"key"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Label      string                 `json:"label"`
	Weight     float64                `json:"weight"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ID returns the collection-qualified id.
func (e Edge) ID() string {
	return e.Collection + "/" + e.Key
}

// Query is a declarative graph query: an AQL/Cypher-shaped filter rather
// than a raw query string, matching spec.md §4.A's "execute a declarative
// graph query returning an iterator". Filters are ANDed.
type Query struct {
	Collection string
	Filters    []Filter
	Limit      int
}

// Filter is a single equality/comparison test on a vertex or edge property.
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// FilterOp enumerates the comparison operators a declarative Query supports.
type FilterOp string

const (
	FilterEq  FilterOp = "=="
	FilterNeq FilterOp = "!="
	FilterGt  FilterOp = ">"
	FilterLt  FilterOp = "<"
)

// Iterator walks a result set returned by Query or Neighbors without
// materialising the whole set up front.
type Iterator[T any] interface {
	Next(ctx context.Context) bool
	Value() T
	Err() error
	Close() error
}

// EdgeDefinition describes an edge collection's allowed endpoint
// collections, mirroring ArangoDB's graph edge-definition concept that
// spec.md §4.A's "edge-definition enumeration" names.
type EdgeDefinition struct {
	Collection string
	From       []string
	To         []string
}

// GraphStore is the uniform interface every backend (in-memory, neo4j,
// postgres) implements.
type GraphStore interface {
	// EnsureVertexCollection/EnsureEdgeCollection create a collection if
	// absent; idempotent.
	EnsureVertexCollection(ctx context.Context, name string) error
	EnsureEdgeCollection(ctx context.Context, name string, def EdgeDefinition) error

	// UpsertVertex inserts or merges a vertex; merge semantics (additive
	// accumulator merge vs. overwrite) are the caller's responsibility via
	// GetVertex+UpsertVertex, matching the teacher's upsert-is-explicit
	// convention.
	UpsertVertex(ctx context.Context, v Vertex) error
	GetVertex(ctx context.Context, collection, key string) (Vertex, bool, error)
	DeleteVertex(ctx context.Context, collection, key string) error

	UpsertEdge(ctx context.Context, e Edge) error
	GetEdge(ctx context.Context, collection, key string) (Edge, bool, error)
	DeleteEdge(ctx context.Context, collection, key string) error

	// AddIndex registers a field index on a collection (4.A "add index by
	// field"). Safe to call more than once.
	AddIndex(ctx context.Context, collection, field string) error

	// QueryVertices/QueryEdges run a declarative Query, returning an
	// iterator over matches (4.A "declarative graph query returning an
	// iterator").
	QueryVertices(ctx context.Context, q Query) (Iterator[Vertex], error)
	QueryEdges(ctx context.Context, q Query) (Iterator[Edge], error)

	// Neighbors enumerates vertices reachable from start within 1..maxHops
	// hops across the given edge collections, unique by path (4.A "1..k-hop
	// neighbour enumeration with uniqueness by path"). direction selects
	// out-edges, in-edges, or both.
	Neighbors(ctx context.Context, start string, edgeCollections []string, maxHops int, direction Direction) ([]string, error)

	// EdgeDefinitions returns the registered edge definitions (4.A
	// "edge-definition enumeration for a given graph").
	EdgeDefinitions(ctx context.Context) ([]EdgeDefinition, error)
}

// Direction constrains traversal to out-edges, in-edges, or both.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
	DirectionAny
)

// fmtCollectionErr wraps ErrCollectionNotFound with the offending name.
func fmtCollectionErr(name string) error {
	return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
}

func fmtDuplicateErr(id string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateKey, id)
}
