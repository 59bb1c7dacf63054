// Package kgbuilder implements 4.E: LLM-driven named-entity/relation
// extraction over File chunks, upserted into the Node/Relation graph.
package kgbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aqua777/graphrag-core/graphstore"
	"github.com/aqua777/graphrag-core/llm"
	"github.com/aqua777/graphrag-core/schema"
)

// MaxAttempts bounds the retry loop per chunk before giving up and marking
// the file processed anyway (4.E "give up after 8 attempts ... mark
// is_graph=true regardless to guarantee progress").
const MaxAttempts = 8

// NodeCollection and RelationCollection are the graphstore collections the
// builder reads from and writes to.
const (
	NodeCollection     = "Node"
	RelationCollection = "Relation"
)

// Builder runs NER/RE extraction over every unprocessed File vertex.
type Builder struct {
	Graph         graphstore.GraphStore
	LLM           llm.LLM
	ParallelLimit int
	Logger        *slog.Logger

	mu sync.Mutex // serializes Node/Relation writes, matching the original's _LOCK
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithParallelLimit bounds concurrent LLM calls.
func WithParallelLimit(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.ParallelLimit = n
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) { b.Logger = logger }
}

// NewBuilder builds a Builder over graph using model for extraction.
func NewBuilder(graph graphstore.GraphStore, model llm.LLM, opts ...BuilderOption) *Builder {
	b := &Builder{
		Graph:         graph,
		LLM:           model,
		ParallelLimit: 4,
		Logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run ensures the Node/Relation collections exist and processes every File
// vertex not yet marked is_graph, bounded by ParallelLimit.
func (b *Builder) Run(ctx context.Context) error {
	if err := b.Graph.EnsureVertexCollection(ctx, NodeCollection); err != nil {
		return err
	}
	if err := b.Graph.EnsureEdgeCollection(ctx, RelationCollection, graphstore.EdgeDefinition{
		Collection: RelationCollection,
		From:       []string{NodeCollection},
		To:         []string{NodeCollection},
	}); err != nil {
		return err
	}

	it, err := b.Graph.QueryVertices(ctx, graphstore.Query{
		Collection: "File",
		Filters:    []graphstore.Filter{{Field: "is_graph", Op: graphstore.FilterEq, Value: false}},
	})
	if err != nil {
		return err
	}
	defer it.Close()

	g := new(errgroup.Group)
	g.SetLimit(b.ParallelLimit)
	for it.Next(ctx) {
		file := it.Value()
		g.Go(func() error {
			b.processFileSafe(ctx, file)
			return nil
		})
	}
	if err := it.Err(); err != nil {
		return err
	}
	return g.Wait()
}

// processFileSafe recovers from panics and logs errors so one bad chunk
// never aborts siblings still in flight (same reasoning as loader's worker
// pool: errgroup's cancel-on-first-error is deliberately unused).
func (b *Builder) processFileSafe(ctx context.Context, file graphstore.Vertex) {
	defer func() {
		if r := recover(); r != nil {
			b.Logger.Error("kgbuilder: panic while processing file", "file_key", file.Key, "recover", r)
		}
	}()
	if err := b.processFile(ctx, file); err != nil {
		b.Logger.Error("kgbuilder: failed to process file", "file_key", file.Key, "error", err)
	}
}

// processFile runs the retry loop for one File vertex, then marks it
// is_graph=true unconditionally, matching 4.E's "guarantee progress" rule.
func (b *Builder) processFile(ctx context.Context, file graphstore.Vertex) error {
	content, _ := file.Properties["content"].(string)
	document := toCounts(file.Properties["document"])
	source := toCounts(file.Properties["source"])

	var relations []Relation
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		response, err := b.LLM.Chat(ctx, []llm.ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(content)},
		})
		if err != nil {
			b.Logger.Warn("kgbuilder: llm call failed, retrying", "file_key", file.Key, "attempt", attempt, "error", err)
			continue
		}
		if parsed := ParseRelations(response); len(parsed) > 0 {
			relations = parsed
			break
		}
	}

	if len(relations) > 0 {
		sourceRef := schema.Counts{file.Key: 1, schema.TotalKey: 1}
		if err := b.insertRelations(ctx, relations, sourceRef, source, document); err != nil {
			return fmt.Errorf("insert relations for %s: %w", file.Key, err)
		}
	}

	return b.markGraphed(ctx, file)
}

func (b *Builder) markGraphed(ctx context.Context, file graphstore.Vertex) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	file.Properties["is_graph"] = true
	return b.Graph.UpsertVertex(ctx, file)
}

// insertRelations sanitises and upserts every relation, matching
// _insert_relations's node/edge accumulation semantics (4.E).
func (b *Builder) insertRelations(ctx context.Context, relations []Relation, sourceRef, source, document schema.Counts) error {
	for _, rel := range relations {
		from := Sanitise(rel.From)
		to := Sanitise(rel.To)
		label := Sanitise(rel.Relation)
		if from == "" || to == "" || label == "" {
			continue
		}
		if from == to {
			continue
		}

		if err := b.upsertRelation(ctx, from, to, label, sourceRef, source, document); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) upsertRelation(ctx context.Context, from, to, label string, sourceRef, source, document schema.Counts) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fromID, err := b.upsertNode(ctx, from, sourceRef, source, document)
	if err != nil {
		return err
	}
	toID, err := b.upsertNode(ctx, to, sourceRef, source, document)
	if err != nil {
		return err
	}

	return b.upsertEdge(ctx, fromID, toID, label)
}

// upsertNode creates a Node keyed by key if absent, or additively merges the
// accumulators into the existing one.
func (b *Builder) upsertNode(ctx context.Context, key string, sourceRef, source, document schema.Counts) (string, error) {
	existing, found, err := b.Graph.GetVertex(ctx, NodeCollection, key)
	if err != nil {
		return "", err
	}

	v := graphstore.Vertex{Collection: NodeCollection, Key: key, Label: strings.ReplaceAll(key, "_", " ")}

	if !found {
		v.Properties = map[string]interface{}{
			"source_ref": countsProperty(sourceRef.Clone()),
			"source":     countsProperty(source.Clone()),
			"document":   countsProperty(document.Clone()),
		}
	} else {
		v.Label = existing.Label
		mergedRef := toCounts(existing.Properties["source_ref"])
		mergedRef.Merge(sourceRef)
		mergedSource := toCounts(existing.Properties["source"])
		mergedSource.Merge(source)
		mergedDoc := toCounts(existing.Properties["document"])
		mergedDoc.Merge(document)

		v.Properties = map[string]interface{}{
			"source_ref": countsProperty(mergedRef),
			"source":     countsProperty(mergedSource),
			"document":   countsProperty(mergedDoc),
		}
	}

	if err := b.Graph.UpsertVertex(ctx, v); err != nil {
		return "", err
	}
	return v.ID(), nil
}

// upsertEdge creates a (from,to,label) Relation edge with weight 1, or
// increments the weight of the existing one.
func (b *Builder) upsertEdge(ctx context.Context, fromID, toID, label string) error {
	edgeKey := fromID + "|" + toID + "|" + label

	existing, found, err := b.Graph.GetEdge(ctx, RelationCollection, edgeKey)
	if err != nil {
		return err
	}

	weight := 1.0
	if found {
		weight = existing.Weight + 1
	}

	return b.Graph.UpsertEdge(ctx, graphstore.Edge{
		Collection: RelationCollection,
		Key:        edgeKey,
		From:       fromID,
		To:         toID,
		Label:      label,
		Weight:     weight,
	})
}
