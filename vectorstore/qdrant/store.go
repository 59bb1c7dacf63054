// Package qdrant adapts a Qdrant collection to the Searcher/
// ingestion.VectorStoreInterface shapes retrieval and the loader expect, an
// alternate backend for the chunk and community-summary vector indices
// selectable via the config `VectorGR` section.
package qdrant

import (
	"context"
	"fmt"

	qdrantgo "github.com/qdrant/go-client/qdrant"

	"github.com/aqua777/graphrag-core/schema"
)

// Store wraps a Qdrant collection.
type Store struct {
	client     *qdrantgo.Client
	collection string
	dimensions uint64
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	host   string
	port   int
	apiKey string
	useTLS bool
}

// WithAPIKey sets the Qdrant Cloud API key.
func WithAPIKey(key string) Option { return func(c *storeConfig) { c.apiKey = key } }

// WithTLS enables TLS, required for Qdrant Cloud.
func WithTLS(useTLS bool) Option { return func(c *storeConfig) { c.useTLS = useTLS } }

// New connects to a Qdrant instance at host:port and ensures collection
// exists with the given vector dimensionality and cosine distance.
func New(ctx context.Context, host string, port int, collection string, dimensions int, opts ...Option) (*Store, error) {
	cfg := &storeConfig{host: host, port: port}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := qdrantgo.NewClient(&qdrantgo.Config{
		Host:   cfg.host,
		Port:   cfg.port,
		APIKey: cfg.apiKey,
		UseTLS: cfg.useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: connect: %w", err)
	}

	s := &Store{client: client, collection: collection, dimensions: uint64(dimensions)}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrantgo.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
			Size:     s.dimensions,
			Distance: qdrantgo.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Add upserts nodes as points, metadata and text carried in the payload.
func (s *Store) Add(ctx context.Context, nodes []schema.Node) error {
	points := make([]*qdrantgo.PointStruct, 0, len(nodes))
	for _, n := range nodes {
		payload, err := qdrantgo.TryValueMap(n.Metadata)
		if err != nil {
			return fmt.Errorf("qdrant: convert metadata for %s: %w", n.ID, err)
		}
		if payload == nil {
			payload = map[string]*qdrantgo.Value{}
		}
		contentValue, err := qdrantgo.NewValue(n.Text)
		if err != nil {
			return fmt.Errorf("qdrant: convert text for %s: %w", n.ID, err)
		}
		payload[payloadContentKey] = contentValue

		points = append(points, &qdrantgo.PointStruct{
			Id:      qdrantgo.NewID(n.ID),
			Vectors: qdrantgo.NewVectors(toFloat32(n.Embedding)...),
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Delete removes every point whose payload's refDocID field matches.
func (s *Store) Delete(ctx context.Context, refDocID string) error {
	filter := &qdrantgo.Filter{
		Must: []*qdrantgo.Condition{
			qdrantgo.NewMatch(payloadRefDocKey, refDocID),
		},
	}
	_, err := s.client.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrantgo.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete refDocID %s: %w", refDocID, err)
	}
	return nil
}

// Query satisfies retrieval.Searcher: kNN against query.Embedding, returning
// up to query.TopK hits.
func (s *Store) Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error) {
	limit := uint64(query.TopK)
	points, err := s.client.Query(ctx, &qdrantgo.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrantgo.NewQuery(toFloat32(query.Embedding)...),
		Limit:          &limit,
		WithPayload:    qdrantgo.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query collection %s: %w", s.collection, err)
	}

	out := make([]schema.NodeWithScore, 0, len(points))
	for _, p := range points {
		node := schema.Node{Type: schema.ObjectTypeText}
		if id := p.GetId(); id != nil {
			node.ID = id.GetUuid()
		}
		payload := p.GetPayload()
		if payload != nil {
			if content, ok := payload[payloadContentKey]; ok {
				node.Text = content.GetStringValue()
				delete(payload, payloadContentKey)
			}
			node.Metadata = payloadToMetadata(payload)
		}
		out = append(out, schema.NodeWithScore{Node: node, Score: float64(p.GetScore())})
	}
	return out, nil
}

const (
	payloadContentKey = "__content__"
	payloadRefDocKey  = "ref_doc_id"
)

func toFloat32(vs []float64) []float32 {
	out := make([]float32, len(vs))
	for i, v := range vs {
		out[i] = float32(v)
	}
	return out
}

func payloadToMetadata(payload map[string]*qdrantgo.Value) map[string]interface{} {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = qdrantValueToAny(v)
	}
	return out
}

func qdrantValueToAny(v *qdrantgo.Value) interface{} {
	if v == nil {
		return nil
	}
	switch kind := v.Kind.(type) {
	case *qdrantgo.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrantgo.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrantgo.Value_StringValue:
		return kind.StringValue
	case *qdrantgo.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}
