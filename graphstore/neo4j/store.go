// Package neo4j adapts a Neo4j database to the graphstore.GraphStore
// interface: vertices become labelled nodes, edges become relationships of
// type REL carrying a `collection` property, since spec.md's collections
// are a runtime concept (config-selected) while Cypher relationship types
// are fixed at query-compile time. Vertex/edge Properties maps are stored
// as a single JSON-encoded `props` string property and re-decoded on read,
// since they carry the accumulator maps (source/document/source_ref) the
// rest of the engine treats as opaque `map[string]interface{}` values.
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aqua777/graphrag-core/graphstore"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a graphstore.GraphStore backed by a real Neo4j driver.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// New connects to uri with basic auth and verifies connectivity.
func New(ctx context.Context, uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}
	return &Store{driver: driver, database: database}, nil
}

// Close releases the underlying driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

var _ graphstore.GraphStore = (*Store)(nil)

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("neo4j: %q is not a valid collection/field identifier", name)
	}
	return nil
}

func (s *Store) run(ctx context.Context, cypher string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database))
}

func (s *Store) EnsureVertexCollection(ctx context.Context, name string) error {
	if err := validIdentifier(name); err != nil {
		return err
	}
	_, err := s.run(ctx, fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:`%s`) REQUIRE n.key IS UNIQUE", name), nil)
	if err != nil {
		return fmt.Errorf("neo4j: ensure vertex collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) EnsureEdgeCollection(ctx context.Context, name string, def graphstore.EdgeDefinition) error {
	if err := validIdentifier(name); err != nil {
		return err
	}
	def.Collection = name
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("neo4j: marshal edge definition %s: %w", name, err)
	}
	_, err = s.run(ctx, "MERGE (d:EdgeDefinition {collection: $collection}) SET d.def = $def",
		map[string]interface{}{"collection": name, "def": string(payload)})
	if err != nil {
		return fmt.Errorf("neo4j: ensure edge collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) UpsertVertex(ctx context.Context, v graphstore.Vertex) error {
	if err := validIdentifier(v.Collection); err != nil {
		return err
	}
	props, err := json.Marshal(v.Properties)
	if err != nil {
		return fmt.Errorf("neo4j: marshal vertex properties %s: %w", v.ID(), err)
	}
	cypher := fmt.Sprintf("MERGE (n:`%s` {key: $key}) SET n.label = $label, n.props = $props", v.Collection)
	_, err = s.run(ctx, cypher, map[string]interface{}{"key": v.Key, "label": v.Label, "props": string(props)})
	if err != nil {
		return fmt.Errorf("neo4j: upsert vertex %s: %w", v.ID(), err)
	}
	return nil
}

func (s *Store) GetVertex(ctx context.Context, collection, key string) (graphstore.Vertex, bool, error) {
	if err := validIdentifier(collection); err != nil {
		return graphstore.Vertex{}, false, err
	}
	cypher := fmt.Sprintf("MATCH (n:`%s` {key: $key}) RETURN n.key AS key, n.label AS label, n.props AS props", collection)
	result, err := s.run(ctx, cypher, map[string]interface{}{"key": key})
	if err != nil {
		return graphstore.Vertex{}, false, fmt.Errorf("neo4j: get vertex %s/%s: %w", collection, key, err)
	}
	if len(result.Records) == 0 {
		return graphstore.Vertex{}, false, nil
	}
	v, err := recordToVertex(result.Records[0], collection)
	if err != nil {
		return graphstore.Vertex{}, false, err
	}
	return v, true, nil
}

func (s *Store) DeleteVertex(ctx context.Context, collection, key string) error {
	if err := validIdentifier(collection); err != nil {
		return err
	}
	cypher := fmt.Sprintf("MATCH (n:`%s` {key: $key}) DETACH DELETE n", collection)
	_, err := s.run(ctx, cypher, map[string]interface{}{"key": key})
	if err != nil {
		return fmt.Errorf("neo4j: delete vertex %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) UpsertEdge(ctx context.Context, e graphstore.Edge) error {
	if err := validIdentifier(e.Collection); err != nil {
		return err
	}
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("neo4j: marshal edge properties %s: %w", e.ID(), err)
	}
	cypher := `
MATCH (a {key: $fromKey}), (b {key: $toKey})
MERGE (a)-[r:REL {collection: $collection, key: $key}]->(b)
SET r.label = $label, r.weight = $weight, r.props = $props`
	_, err = s.run(ctx, cypher, map[string]interface{}{
		"fromKey":    idKey(e.From),
		"toKey":      idKey(e.To),
		"collection": e.Collection,
		"key":        e.Key,
		"label":      e.Label,
		"weight":     e.Weight,
		"props":      string(props),
	})
	if err != nil {
		return fmt.Errorf("neo4j: upsert edge %s: %w", e.ID(), err)
	}
	return nil
}

func (s *Store) GetEdge(ctx context.Context, collection, key string) (graphstore.Edge, bool, error) {
	cypher := `MATCH (a)-[r:REL {collection: $collection, key: $key}]->(b)
RETURN a.key AS fromKey, b.key AS toKey, r.label AS label, r.weight AS weight, r.props AS props`
	result, err := s.run(ctx, cypher, map[string]interface{}{"collection": collection, "key": key})
	if err != nil {
		return graphstore.Edge{}, false, fmt.Errorf("neo4j: get edge %s/%s: %w", collection, key, err)
	}
	if len(result.Records) == 0 {
		return graphstore.Edge{}, false, nil
	}
	e, err := recordToEdge(result.Records[0], collection, key)
	if err != nil {
		return graphstore.Edge{}, false, err
	}
	return e, true, nil
}

func (s *Store) DeleteEdge(ctx context.Context, collection, key string) error {
	cypher := `MATCH ()-[r:REL {collection: $collection, key: $key}]->() DELETE r`
	_, err := s.run(ctx, cypher, map[string]interface{}{"collection": collection, "key": key})
	if err != nil {
		return fmt.Errorf("neo4j: delete edge %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) AddIndex(ctx context.Context, collection, field string) error {
	if err := validIdentifier(collection); err != nil {
		return err
	}
	if err := validIdentifier(field); err != nil {
		return err
	}
	cypher := fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:`%s`) ON (n.%s)", collection, field)
	_, err := s.run(ctx, cypher, nil)
	if err != nil {
		return fmt.Errorf("neo4j: add index %s.%s: %w", collection, field, err)
	}
	return nil
}

func (s *Store) QueryVertices(ctx context.Context, q graphstore.Query) (graphstore.Iterator[graphstore.Vertex], error) {
	if err := validIdentifier(q.Collection); err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf("MATCH (n:`%s`) RETURN n.key AS key, n.label AS label, n.props AS props", q.Collection)
	result, err := s.run(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("neo4j: query vertices %s: %w", q.Collection, err)
	}
	var out []graphstore.Vertex
	for _, rec := range result.Records {
		v, err := recordToVertex(rec, q.Collection)
		if err != nil {
			return nil, err
		}
		if !matchesFilters(v.Properties, v.Key, v.Label, q.Filters) {
			continue
		}
		out = append(out, v)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return newSliceIterator(out), nil
}

func (s *Store) QueryEdges(ctx context.Context, q graphstore.Query) (graphstore.Iterator[graphstore.Edge], error) {
	cypher := `MATCH (a)-[r:REL {collection: $collection}]->(b)
RETURN a.key AS fromKey, b.key AS toKey, r.key AS key, r.label AS label, r.weight AS weight, r.props AS props`
	result, err := s.run(ctx, cypher, map[string]interface{}{"collection": q.Collection})
	if err != nil {
		return nil, fmt.Errorf("neo4j: query edges %s: %w", q.Collection, err)
	}
	var out []graphstore.Edge
	for _, rec := range result.Records {
		key, _ := rec.Get("key")
		e, err := recordToEdge(rec, q.Collection, fmt.Sprintf("%v", key))
		if err != nil {
			return nil, err
		}
		if !matchesFilters(e.Properties, "", e.Label, q.Filters) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return newSliceIterator(out), nil
}

func (s *Store) Neighbors(ctx context.Context, start string, edgeCollections []string, maxHops int, direction graphstore.Direction) ([]string, error) {
	arrow := "-[r:REL]-"
	switch direction {
	case graphstore.DirectionOut:
		arrow = "-[r:REL]->"
	case graphstore.DirectionIn:
		arrow = "<-[r:REL]-"
	}
	cypher := fmt.Sprintf(`MATCH p=(start {key: $startKey})%s{1,%d}(n)
WHERE ALL(rel IN relationships(p) WHERE rel.collection IN $collections)
RETURN DISTINCT n.key AS key`, arrow, maxHops)
	result, err := s.run(ctx, cypher, map[string]interface{}{
		"startKey":    idKey(start),
		"collections": edgeCollections,
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: neighbors of %s: %w", start, err)
	}
	var out []string
	for _, rec := range result.Records {
		key, _ := rec.Get("key")
		out = append(out, fmt.Sprintf("%v", key))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) EdgeDefinitions(ctx context.Context) ([]graphstore.EdgeDefinition, error) {
	result, err := s.run(ctx, "MATCH (d:EdgeDefinition) RETURN d.def AS def", nil)
	if err != nil {
		return nil, fmt.Errorf("neo4j: edge definitions: %w", err)
	}
	var out []graphstore.EdgeDefinition
	for _, rec := range result.Records {
		raw, _ := rec.Get("def")
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var def graphstore.EdgeDefinition
		if err := json.Unmarshal([]byte(s), &def); err != nil {
			return nil, fmt.Errorf("neo4j: decode edge definition: %w", err)
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out, nil
}

// idKey strips the "<Collection>/" prefix graphstore.Vertex.ID() adds,
// since vertices are keyed by their bare key within Neo4j.
func idKey(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			return id[i+1:]
		}
	}
	return id
}

func recordToVertex(rec *neo4j.Record, collection string) (graphstore.Vertex, error) {
	key, _ := rec.Get("key")
	label, _ := rec.Get("label")
	propsRaw, _ := rec.Get("props")

	v := graphstore.Vertex{
		Collection: collection,
		Key:        fmt.Sprintf("%v", key),
		Label:      fmt.Sprintf("%v", label),
	}
	if s, ok := propsRaw.(string); ok && s != "" {
		if err := json.Unmarshal([]byte(s), &v.Properties); err != nil {
			return graphstore.Vertex{}, fmt.Errorf("neo4j: decode vertex properties: %w", err)
		}
	}
	return v, nil
}

func recordToEdge(rec *neo4j.Record, collection, key string) (graphstore.Edge, error) {
	fromKey, _ := rec.Get("fromKey")
	toKey, _ := rec.Get("toKey")
	label, _ := rec.Get("label")
	weight, _ := rec.Get("weight")
	propsRaw, _ := rec.Get("props")

	w, _ := weight.(float64)
	e := graphstore.Edge{
		Collection: collection,
		Key:        key,
		From:       fmt.Sprintf("%v", fromKey),
		To:         fmt.Sprintf("%v", toKey),
		Label:      fmt.Sprintf("%v", label),
		Weight:     w,
	}
	if s, ok := propsRaw.(string); ok && s != "" {
		if err := json.Unmarshal([]byte(s), &e.Properties); err != nil {
			return graphstore.Edge{}, fmt.Errorf("neo4j: decode edge properties: %w", err)
		}
	}
	return e, nil
}

func matchesFilters(props map[string]interface{}, key, label string, filters []graphstore.Filter) bool {
	for _, f := range filters {
		var val interface{}
		var ok bool
		switch f.Field {
		case "key":
			val, ok = key, true
		case "label":
			val, ok = label, true
		default:
			val, ok = props[f.Field]
		}
		if !ok || !filterMatches(val, f) {
			return false
		}
	}
	return true
}

func filterMatches(v interface{}, f graphstore.Filter) bool {
	switch f.Op {
	case graphstore.FilterEq:
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", f.Value)
	case graphstore.FilterNeq:
		return fmt.Sprintf("%v", v) != fmt.Sprintf("%v", f.Value)
	case graphstore.FilterGt, graphstore.FilterLt:
		a, aok := toFloat(v)
		b, bok := toFloat(f.Value)
		if !aok || !bok {
			return false
		}
		if f.Op == graphstore.FilterGt {
			return a > b
		}
		return a < b
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

type sliceIterator[T any] struct {
	items []T
	pos   int
}

func newSliceIterator[T any](items []T) *sliceIterator[T] {
	return &sliceIterator[T]{items: items, pos: -1}
}

func (it *sliceIterator[T]) Next(_ context.Context) bool {
	it.pos++
	return it.pos < len(it.items)
}

func (it *sliceIterator[T]) Value() T   { return it.items[it.pos] }
func (it *sliceIterator[T]) Err() error { return nil }
func (it *sliceIterator[T]) Close() error { return nil }
