package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/aqua777/graphrag-core/chunker"
	"github.com/aqua777/graphrag-core/community"
	"github.com/aqua777/graphrag-core/config"
	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/graphstore"
	neo4jstore "github.com/aqua777/graphrag-core/graphstore/neo4j"
	postgresstore "github.com/aqua777/graphrag-core/graphstore/postgres"
	"github.com/aqua777/graphrag-core/ingestion"
	"github.com/aqua777/graphrag-core/kgbuilder"
	"github.com/aqua777/graphrag-core/kgpost"
	"github.com/aqua777/graphrag-core/llm"
	bedrockembed "github.com/aqua777/graphrag-core/llm/bedrock"
	"github.com/aqua777/graphrag-core/loader"
	chromemstore "github.com/aqua777/graphrag-core/rag/store/chromem"
	"github.com/aqua777/graphrag-core/retrieval"
	"github.com/aqua777/graphrag-core/schema"
	"github.com/aqua777/graphrag-core/summarize"
)

const (
	chunkCollectionName     = "chunks"
	communityCollectionName = "communities"
)

// coreCommand holds the constructed pipeline components, the way the
// teacher's RAGCommand holds its embedder/llm/vector store triple.
type coreCommand struct {
	cfg *config.Config

	graph graphstore.GraphStore
	model llm.LLM
	embed embedding.EmbeddingModel

	chunkStore     *chromemstore.ChromemStore
	communityStore *chromemstore.ChromemStore
}

// newCoreCommand builds a coreCommand from cfg, selecting the LLM/embedding
// provider named by provider. Every provider constructor reads its
// credentials from that provider's own well-known environment variable
// (OPENAI_API_KEY, COHERE_API_KEY, and so on), matching how each package
// already resolves them when no explicit functional option overrides it.
func newCoreCommand(cfg *config.Config, provider string) (*coreCommand, error) {
	dataDir := cfg.General.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("graphrag-core: create data dir: %w", err)
	}

	model, embed, err := newLLMAndEmbedding(provider, cfg.General.DefaultEmbeddingModel)
	if err != nil {
		return nil, err
	}

	graph, err := newGraphStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	chunkStore, err := chromemstore.NewChromemStore(filepath.Join(dataDir, "chunks.db"), chunkCollectionName)
	if err != nil {
		return nil, fmt.Errorf("graphrag-core: chunk vector store: %w", err)
	}
	communityStore, err := chromemstore.NewChromemStore(filepath.Join(dataDir, "communities.db"), communityCollectionName)
	if err != nil {
		return nil, fmt.Errorf("graphrag-core: community vector store: %w", err)
	}

	return &coreCommand{
		cfg:            cfg,
		graph:          graph,
		model:          model,
		embed:          embed,
		chunkStore:     chunkStore,
		communityStore: communityStore,
	}, nil
}

// newGraphStore selects the 4.A GraphStore backend named by
// general.graph_backend, wiring the matching [neo4j]/[postgres] store
// section. "memory" (the default) needs no external service and is what
// every other retrieval method exercises in tests.
func newGraphStore(ctx context.Context, cfg *config.Config) (graphstore.GraphStore, error) {
	switch cfg.General.GraphBackend {
	case "neo4j":
		store := cfg.Neo4j
		s, err := neo4jstore.New(ctx, store.URL, store.Username, store.Password, store.Database)
		if err != nil {
			return nil, fmt.Errorf("graphrag-core: neo4j graph store: %w", err)
		}
		return s, nil
	case "postgres":
		store := cfg.Postgres
		host, port := splitHostPort(store.URL)
		s, err := postgresstore.New(ctx, postgresstore.Config{
			Host:     host,
			Port:     port,
			User:     store.Username,
			Password: store.Password,
			Name:     store.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("graphrag-core: postgres graph store: %w", err)
		}
		return s, nil
	default:
		return graphstore.NewMemoryGraphStore(), nil
	}
}

// newLLMAndEmbedding selects the llm.LLM/embedding.EmbeddingModel pair named
// by provider, every one of SPEC_FULL.md's DOMAIN STACK-listed LLM/
// embedding backends reachable by name rather than wired only into their
// own package's tests.
func newLLMAndEmbedding(provider, embedModel string) (llm.LLM, embedding.EmbeddingModel, error) {
	switch provider {
	case "anthropic":
		return llm.NewAnthropicLLM(), embedding.NewOpenAIEmbedding("", embedModel), nil
	case "azure":
		return llm.NewAzureOpenAILLM(), embedding.NewAzureOpenAIEmbedding(), nil
	case "cohere":
		return llm.NewCohereLLM(), embedding.NewCohereEmbedding(), nil
	case "deepseek":
		return llm.NewDeepSeekLLM(), embedding.NewOpenAIEmbedding("", embedModel), nil
	case "groq":
		return llm.NewGroqLLM(), embedding.NewOpenAIEmbedding("", embedModel), nil
	case "mistral":
		return llm.NewMistralLLM(), embedding.NewOpenAIEmbedding("", embedModel), nil
	case "ollama":
		return llm.NewOllamaLLM(), embedding.NewOllamaEmbedding(), nil
	case "huggingface":
		// HuggingFace only backs an embedding model here; chat completion
		// still goes through OpenAI.
		return llm.NewOpenAILLM("", "", ""), embedding.NewHuggingFaceEmbedding(), nil
	case "bedrock":
		return llm.NewBedrockLLM(), bedrockembed.NewEmbedding(), nil
	case "openai", "":
		return llm.NewOpenAILLM("", "", ""), embedding.NewOpenAIEmbedding("", embedModel), nil
	default:
		return nil, nil, fmt.Errorf("graphrag-core: %q is not a recognised LLM/embedding provider", provider)
	}
}

// splitHostPort splits a "host:port" store URL, defaulting to PostgreSQL's
// standard port when no port is present.
func splitHostPort(url string) (host, port string) {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == ':' {
			return url[:i], url[i+1:]
		}
	}
	if url == "" {
		return "localhost", "5432"
	}
	return url, "5432"
}

// Index runs the full 4.D-4.I pipeline over paths: load and chunk files,
// extract the knowledge graph, connect mentions back to their sources,
// detect communities and summarise/index them bottom-up.
func (c *coreCommand) Index(ctx context.Context, paths []string) error {
	runID := uuid.New().String()
	slog.Default().Info("index run started", "run_id", runID, "paths", paths)

	parallel := c.cfg.General.ParallelLimit

	pipeline := ingestion.NewIngestionPipeline(
		ingestion.WithVectorStore(loader.NewChromemVectorStore(c.chunkStore)),
	)
	ld := loader.NewLoader(c.graph, pipeline, c.embed,
		loader.WithParallelLimit(parallel),
		loader.WithChunker(chunker.NewChunker()),
	)
	for _, path := range paths {
		if err := ld.LoadPath(ctx, path); err != nil {
			return fmt.Errorf("graphrag-core: load %s: %w", path, err)
		}
	}

	builder := kgbuilder.NewBuilder(c.graph, c.model, kgbuilder.WithParallelLimit(parallel))
	if err := builder.Run(ctx); err != nil {
		return fmt.Errorf("graphrag-core: build knowledge graph: %w", err)
	}

	if err := kgpost.NewProcessor(c.graph).Run(ctx); err != nil {
		return fmt.Errorf("graphrag-core: post-process knowledge graph: %w", err)
	}

	if err := community.NewBuilder(c.graph).Run(ctx); err != nil {
		return fmt.Errorf("graphrag-core: detect communities: %w", err)
	}

	summarizer, err := summarize.NewSummarizer(c.graph, c.model,
		summarize.WithParallelLimit(parallel),
		summarize.WithVectorStore(loader.NewChromemVectorStore(c.communityStore)),
		summarize.WithEmbedder(c.embed),
	)
	if err != nil {
		return fmt.Errorf("graphrag-core: build summarizer: %w", err)
	}
	if err := summarizer.Run(ctx); err != nil {
		return fmt.Errorf("graphrag-core: summarize communities: %w", err)
	}
	if err := summarizer.Index(ctx); err != nil {
		return fmt.Errorf("graphrag-core: index community summaries: %w", err)
	}

	return nil
}

// Query dispatches prompt to one retrieval strategy per name in methods and
// rank-merges the results when more than one is given.
func (c *coreCommand) Query(ctx context.Context, methods []string, prompt string) ([]schema.RetrievalRecord, error) {
	runID := uuid.New().String()
	slog.Default().Info("query run started", "run_id", runID, "methods", methods)

	var results [][]schema.RetrievalRecord
	for _, name := range methods {
		method, err := c.cfg.Method(name)
		if err != nil {
			return nil, err
		}
		opts, err := methodOptions(method)
		if err != nil {
			return nil, err
		}

		var records []schema.RetrievalRecord
		switch name {
		case "NaiveRAG":
			records, err = retrieval.NaiveRAG(ctx, c.chunkStore, c.embed, prompt, opts)
		case "NaiveGraphRAG":
			records, err = retrieval.NaiveGraphRAG(ctx, c.communityStore, c.embed, prompt, opts)
		case "GARAG":
			records, err = retrieval.GARAG(ctx, c.communityStore, c.graph, c.embed, prompt, opts)
		case "GraphRAG":
			records, err = retrieval.GraphRAG(ctx, c.graph, c.model, rand.New(rand.NewPCG(1, 1)), prompt, opts)
		default:
			return nil, fmt.Errorf("graphrag-core: %q is not a retrieval strategy", name)
		}
		if err != nil {
			return nil, fmt.Errorf("graphrag-core: %s: %w", name, err)
		}
		results = append(results, records)
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return retrieval.MergeRanked(10, results...), nil
}

// methodOptions decodes a config.Method's per-strategy JSON config blob
// into retrieval.Options, defaulting every field the blob omits.
func methodOptions(method config.Method) (retrieval.Options, error) {
	var raw struct {
		MaxMatches       int     `json:"max_matches"`
		ConfidenceCutoff float64 `json:"confidence_cutoff"`
		CommunityDegree  int     `json:"community_degree"`
		ParallelLimit    int     `json:"parallel_limit"`
	}
	if err := method.Unmarshal(&raw); err != nil {
		return retrieval.Options{}, fmt.Errorf("graphrag-core: decode method config: %w", err)
	}
	return retrieval.Options{
		MaxMatches:       raw.MaxMatches,
		ConfidenceCutoff: raw.ConfidenceCutoff,
		CommunityDegree:  raw.CommunityDegree,
		ParallelLimit:    raw.ParallelLimit,
	}, nil
}

func printRecords(records []schema.RetrievalRecord) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
