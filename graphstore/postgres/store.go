// Package postgres adapts a PostgreSQL database to the graphstore.GraphStore
// interface: vertices and edges live in shared `vertices`/`edges` tables
// keyed by (collection, key), with a JSONB properties column carrying each
// vertex/edge's arbitrary property map. Connection setup follows the
// pack's pgxpool.Pool dial pattern (DSN assembled from host/port/user/
// password/dbname/sslmode).
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqua777/graphrag-core/graphstore"
)

// Store is a graphstore.GraphStore backed by PostgreSQL via pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds the connection parameters New assembles into a DSN.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

// New connects to PostgreSQL, verifies connectivity and creates the
// vertices/edges tables (and their supporting indices) if absent.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

var _ graphstore.GraphStore = (*Store)(nil)

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vertices (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			label      TEXT NOT NULL DEFAULT '',
			properties JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (collection, key)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			"from"     TEXT NOT NULL,
			"to"       TEXT NOT NULL,
			label      TEXT NOT NULL DEFAULT '',
			weight     DOUBLE PRECISION NOT NULL DEFAULT 0,
			properties JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (collection, key)
		)`,
		`CREATE INDEX IF NOT EXISTS edges_from_idx ON edges ("from")`,
		`CREATE INDEX IF NOT EXISTS edges_to_idx ON edges ("to")`,
		`CREATE TABLE IF NOT EXISTS edge_definitions (
			collection TEXT PRIMARY KEY,
			"from"     TEXT[] NOT NULL,
			"to"       TEXT[] NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS field_indices (
			collection TEXT NOT NULL,
			field      TEXT NOT NULL,
			PRIMARY KEY (collection, field)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) EnsureVertexCollection(ctx context.Context, name string) error {
	// Vertices share one physical table partitioned by the collection
	// column; nothing to create per collection beyond the shared schema.
	_ = name
	return nil
}

func (s *Store) EnsureEdgeCollection(ctx context.Context, name string, def graphstore.EdgeDefinition) error {
	def.Collection = name
	_, err := s.pool.Exec(ctx,
		`INSERT INTO edge_definitions (collection, "from", "to") VALUES ($1, $2, $3)
		 ON CONFLICT (collection) DO UPDATE SET "from" = EXCLUDED."from", "to" = EXCLUDED."to"`,
		name, def.From, def.To)
	if err != nil {
		return fmt.Errorf("postgres: ensure edge collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) UpsertVertex(ctx context.Context, v graphstore.Vertex) error {
	props, err := json.Marshal(v.Properties)
	if err != nil {
		return fmt.Errorf("postgres: marshal vertex properties %s: %w", v.ID(), err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO vertices (collection, key, label, properties) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, key) DO UPDATE SET label = EXCLUDED.label, properties = EXCLUDED.properties`,
		v.Collection, v.Key, v.Label, props)
	if err != nil {
		return fmt.Errorf("postgres: upsert vertex %s: %w", v.ID(), err)
	}
	return nil
}

func (s *Store) GetVertex(ctx context.Context, collection, key string) (graphstore.Vertex, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT label, properties FROM vertices WHERE collection = $1 AND key = $2`, collection, key)
	var label string
	var props []byte
	if err := row.Scan(&label, &props); err != nil {
		if err == pgx.ErrNoRows {
			return graphstore.Vertex{}, false, nil
		}
		return graphstore.Vertex{}, false, fmt.Errorf("postgres: get vertex %s/%s: %w", collection, key, err)
	}
	v := graphstore.Vertex{Collection: collection, Key: key, Label: label}
	if err := json.Unmarshal(props, &v.Properties); err != nil {
		return graphstore.Vertex{}, false, fmt.Errorf("postgres: decode vertex properties %s/%s: %w", collection, key, err)
	}
	return v, true, nil
}

func (s *Store) DeleteVertex(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vertices WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("postgres: delete vertex %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) UpsertEdge(ctx context.Context, e graphstore.Edge) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("postgres: marshal edge properties %s: %w", e.ID(), err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO edges (collection, key, "from", "to", label, weight, properties)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (collection, key) DO UPDATE SET
			"from" = EXCLUDED."from", "to" = EXCLUDED."to",
			label = EXCLUDED.label, weight = EXCLUDED.weight, properties = EXCLUDED.properties`,
		e.Collection, e.Key, e.From, e.To, e.Label, e.Weight, props)
	if err != nil {
		return fmt.Errorf("postgres: upsert edge %s: %w", e.ID(), err)
	}
	return nil
}

func (s *Store) GetEdge(ctx context.Context, collection, key string) (graphstore.Edge, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT "from", "to", label, weight, properties FROM edges WHERE collection = $1 AND key = $2`,
		collection, key)
	e := graphstore.Edge{Collection: collection, Key: key}
	var props []byte
	if err := row.Scan(&e.From, &e.To, &e.Label, &e.Weight, &props); err != nil {
		if err == pgx.ErrNoRows {
			return graphstore.Edge{}, false, nil
		}
		return graphstore.Edge{}, false, fmt.Errorf("postgres: get edge %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(props, &e.Properties); err != nil {
		return graphstore.Edge{}, false, fmt.Errorf("postgres: decode edge properties %s/%s: %w", collection, key, err)
	}
	return e, true, nil
}

func (s *Store) DeleteEdge(ctx context.Context, collection, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM edges WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("postgres: delete edge %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) AddIndex(ctx context.Context, collection, field string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO field_indices (collection, field) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		collection, field)
	if err != nil {
		return fmt.Errorf("postgres: add index %s.%s: %w", collection, field, err)
	}
	// A generic JSONB properties column can't grow a native per-field btree
	// index without knowing the field's value type up front; field_indices
	// only records the request. QueryVertices/QueryEdges do not consult it:
	// they read every row of the collection and filter client-side.
	return nil
}

func (s *Store) QueryVertices(ctx context.Context, q graphstore.Query) (graphstore.Iterator[graphstore.Vertex], error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, label, properties FROM vertices WHERE collection = $1 ORDER BY key`, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: query vertices %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []graphstore.Vertex
	for rows.Next() {
		var key, label string
		var props []byte
		if err := rows.Scan(&key, &label, &props); err != nil {
			return nil, fmt.Errorf("postgres: scan vertex row: %w", err)
		}
		v := graphstore.Vertex{Collection: q.Collection, Key: key, Label: label}
		if err := json.Unmarshal(props, &v.Properties); err != nil {
			return nil, fmt.Errorf("postgres: decode vertex properties %s/%s: %w", q.Collection, key, err)
		}
		if !matchesFilters(v.Properties, v.Key, v.Label, q.Filters) {
			continue
		}
		out = append(out, v)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query vertices %s: %w", q.Collection, err)
	}
	return newSliceIterator(out), nil
}

func (s *Store) QueryEdges(ctx context.Context, q graphstore.Query) (graphstore.Iterator[graphstore.Edge], error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, "from", "to", label, weight, properties FROM edges WHERE collection = $1 ORDER BY key`, q.Collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: query edges %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []graphstore.Edge
	for rows.Next() {
		e := graphstore.Edge{Collection: q.Collection}
		var props []byte
		if err := rows.Scan(&e.Key, &e.From, &e.To, &e.Label, &e.Weight, &props); err != nil {
			return nil, fmt.Errorf("postgres: scan edge row: %w", err)
		}
		if err := json.Unmarshal(props, &e.Properties); err != nil {
			return nil, fmt.Errorf("postgres: decode edge properties %s/%s: %w", q.Collection, e.Key, err)
		}
		if !matchesFilters(e.Properties, "", e.Label, q.Filters) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query edges %s: %w", q.Collection, err)
	}
	return newSliceIterator(out), nil
}

// Neighbors performs a BFS over the edges table, bounded by maxHops and
// restricted to edgeCollections, mirroring MemoryGraphStore's
// uniqueness-by-visited-vertex semantics.
func (s *Store) Neighbors(ctx context.Context, start string, edgeCollections []string, maxHops int, direction graphstore.Direction) ([]string, error) {
	frontier := []string{start}
	visited := map[string]bool{start: true}
	var out []string

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, v := range frontier {
			neighbors, err := s.adjacent(ctx, v, edgeCollections, direction)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if visited[n] {
					continue
				}
				visited[n] = true
				out = append(out, n)
				next = append(next, n)
			}
		}
		frontier = next
	}

	sort.Strings(out)
	return out, nil
}

func (s *Store) adjacent(ctx context.Context, vertex string, edgeCollections []string, direction graphstore.Direction) ([]string, error) {
	var query string
	var args []interface{}
	switch direction {
	case graphstore.DirectionOut:
		query = `SELECT "to" FROM edges WHERE "from" = $1 AND collection = ANY($2)`
		args = []interface{}{vertex, edgeCollections}
	case graphstore.DirectionIn:
		query = `SELECT "from" FROM edges WHERE "to" = $1 AND collection = ANY($2)`
		args = []interface{}{vertex, edgeCollections}
	default:
		query = `SELECT "to" FROM edges WHERE "from" = $1 AND collection = ANY($2)
			  UNION
			  SELECT "from" FROM edges WHERE "to" = $1 AND collection = ANY($2)`
		args = []interface{}{vertex, edgeCollections}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: neighbors of %s: %w", vertex, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan neighbor row: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) EdgeDefinitions(ctx context.Context) ([]graphstore.EdgeDefinition, error) {
	rows, err := s.pool.Query(ctx, `SELECT collection, "from", "to" FROM edge_definitions ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("postgres: edge definitions: %w", err)
	}
	defer rows.Close()

	var out []graphstore.EdgeDefinition
	for rows.Next() {
		var def graphstore.EdgeDefinition
		if err := rows.Scan(&def.Collection, &def.From, &def.To); err != nil {
			return nil, fmt.Errorf("postgres: scan edge definition row: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
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

func (it *sliceIterator[T]) Value() T     { return it.items[it.pos] }
func (it *sliceIterator[T]) Err() error   { return nil }
func (it *sliceIterator[T]) Close() error { return nil }
