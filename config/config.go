// Package config loads the sectioned INI configuration described in
// spec.md §6: a `general` section, backing-store sections (`arangodb`,
// `elastic`, `neo4j`, `postgres`), and one section per retrieval method
// (`GARAG`, `GraphRAG`, `NaiveGraphRAG`, `NaiveRAG`, `VectorGR`, `HybridGR`,
// `Text2Cypher`). Loading follows the teacher CLI's own composition: viper
// reads the file, environment variables and command-line flags layer on
// top, matching `cli/main.go`'s `WithConfig`/`WithStringP` chain generalised
// from krait's flag builder to bare viper+pflag.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for the general section, matching the teacher CLI's
// DefaultChunkSize-style constant block in cli/config.go.
const (
	DefaultParallelLimit  = 4
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultAppDir         = "graphrag-core"
	DefaultGraphBackend   = "memory"
)

// Dotted viper keys for the general section's flag-bindable settings.
const (
	KeyDataDir               = "general.data_dir"
	KeyParallelLimit         = "general.parallel_limit"
	KeyDefaultEmbeddingModel = "general.default_embedding_model"
	KeyGraphBackend          = "general.graph_backend"
)

var (
	// ErrUnknownMethod is returned when a caller names a retrieval-method
	// section §6 does not define.
	ErrUnknownMethod = errors.New("config: unknown retrieval method")
	// ErrUnknownStore is returned when a caller names a backing-store
	// section §6 does not define.
	ErrUnknownStore = errors.New("config: unknown store")
)

// General holds the `[general]` section: corpus-wide defaults every stage
// (loader, KG builder, summariser) inherits unless a flag or env var
// overrides it.
type General struct {
	DataDir               string `mapstructure:"data_dir"`
	ParallelLimit         int    `mapstructure:"parallel_limit"`
	DefaultEmbeddingModel string `mapstructure:"default_embedding_model"`
	// GraphBackend selects the 4.A GraphStore implementation: "memory"
	// (default), "neo4j" or "postgres", the latter two backed by the
	// matching [neo4j]/[postgres] store sections.
	GraphBackend string `mapstructure:"graph_backend"`
}

// Store holds one of the four backing-store sections: connection URL,
// credentials, and the database/graph name to operate against.
type Store struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Graph    string `mapstructure:"graph"`
}

// Method holds one of the seven retrieval-method sections: a free-form JSON
// config blob, the embedding model to query with, and pointers naming which
// Store section backs it.
type Method struct {
	Config     string `mapstructure:"config"`
	EmbedModel string `mapstructure:"emb_model"`
	GraphDB    string `mapstructure:"graph_db"`
	VectorDB   string `mapstructure:"vector_db"`
}

// Unmarshal decodes the method's free-form JSON config blob into v.
func (m Method) Unmarshal(v interface{}) error {
	if strings.TrimSpace(m.Config) == "" {
		return nil
	}
	return json.Unmarshal([]byte(m.Config), v)
}

// Config is the full §6 sectioned configuration.
type Config struct {
	General       General `mapstructure:"general"`
	Arangodb      Store   `mapstructure:"arangodb"`
	Elastic       Store   `mapstructure:"elastic"`
	Neo4j         Store   `mapstructure:"neo4j"`
	Postgres      Store   `mapstructure:"postgres"`
	GARAG         Method  `mapstructure:"GARAG"`
	GraphRAG      Method  `mapstructure:"GraphRAG"`
	NaiveGraphRAG Method  `mapstructure:"NaiveGraphRAG"`
	NaiveRAG      Method  `mapstructure:"NaiveRAG"`
	VectorGR      Method  `mapstructure:"VectorGR"`
	HybridGR      Method  `mapstructure:"HybridGR"`
	Text2Cypher   Method  `mapstructure:"Text2Cypher"`
}

// Method looks up one of the seven retrieval-method sections by name.
func (c *Config) Method(name string) (Method, error) {
	switch name {
	case "GARAG":
		return c.GARAG, nil
	case "GraphRAG":
		return c.GraphRAG, nil
	case "NaiveGraphRAG":
		return c.NaiveGraphRAG, nil
	case "NaiveRAG":
		return c.NaiveRAG, nil
	case "VectorGR":
		return c.VectorGR, nil
	case "HybridGR":
		return c.HybridGR, nil
	case "Text2Cypher":
		return c.Text2Cypher, nil
	default:
		return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Store looks up one of the four backing-store sections by name.
func (c *Config) Store(name string) (Store, error) {
	switch strings.ToLower(name) {
	case "arangodb":
		return c.Arangodb, nil
	case "elastic":
		return c.Elastic, nil
	case "neo4j":
		return c.Neo4j, nil
	case "postgres":
		return c.Postgres, nil
	default:
		return Store{}, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
}

// DefaultDataDir returns the default corpus data directory, mirroring the
// teacher CLI's DefaultCacheDir (`~/.cache/<app>`).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + DefaultAppDir
	}
	return filepath.Join(home, ".cache", DefaultAppDir)
}

// RegisterFlags adds the global flags the CLI entrypoint exposes, named the
// way the teacher CLI names its global options (cli/main.go's
// WithStringP/WithIntP chain over krait, here built directly on pflag).
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("data-dir", DefaultDataDir(), "corpus data directory")
	fs.Int("parallel-limit", DefaultParallelLimit, "worker pool size for loader/KG-builder/summariser")
	fs.String("embed-model", DefaultEmbeddingModel, "default embedding model")
	fs.String("graph-backend", DefaultGraphBackend, "graph store backend: memory, neo4j or postgres")
}

// Load reads the INI file at path (if non-empty), applies GRAPHRAG_*
// environment variable overrides, binds the flags RegisterFlags added (if
// fs is non-nil), and unmarshals the result into a Config. An empty path
// skips the file: defaults plus env/flag overrides alone are a valid
// configuration for tests and ad-hoc runs. A non-empty path that cannot be
// read is an error.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvPrefix("GRAPHRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyParallelLimit, DefaultParallelLimit)
	v.SetDefault(KeyDefaultEmbeddingModel, DefaultEmbeddingModel)
	v.SetDefault(KeyGraphBackend, DefaultGraphBackend)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if fs != nil {
		for key, flagName := range map[string]string{
			KeyDataDir:               "data-dir",
			KeyParallelLimit:         "parallel-limit",
			KeyDefaultEmbeddingModel: "embed-model",
			KeyGraphBackend:          "graph-backend",
		} {
			flag := fs.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("config: bind flag %s: %w", flagName, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
