package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

const sampleINI = `
[general]
data_dir = /var/lib/graphrag
parallel_limit = 8
default_embedding_model = text-embedding-3-large

[neo4j]
url = bolt://localhost:7687
username = neo4j
password = secret
database = graphrag

[GraphRAG]
config = {"community_degree": 1, "confidence_cutoff": 40}
emb_model = text-embedding-3-large
graph_db = neo4j
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graphrag.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSectionsFromFile(t *testing.T) {
	path := writeConfig(t, sampleINI)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.General.DataDir != "/var/lib/graphrag" {
		t.Errorf("DataDir = %q", cfg.General.DataDir)
	}
	if cfg.General.ParallelLimit != 8 {
		t.Errorf("ParallelLimit = %d", cfg.General.ParallelLimit)
	}
	if cfg.Neo4j.URL != "bolt://localhost:7687" || cfg.Neo4j.Username != "neo4j" {
		t.Errorf("Neo4j = %+v", cfg.Neo4j)
	}
	if cfg.GraphRAG.EmbedModel != "text-embedding-3-large" || cfg.GraphRAG.GraphDB != "neo4j" {
		t.Errorf("GraphRAG = %+v", cfg.GraphRAG)
	}

	var methodParams struct {
		CommunityDegree  int `json:"community_degree"`
		ConfidenceCutoff int `json:"confidence_cutoff"`
	}
	if err := cfg.GraphRAG.Unmarshal(&methodParams); err != nil {
		t.Fatalf("Unmarshal method config: %v", err)
	}
	if methodParams.CommunityDegree != 1 || methodParams.ConfidenceCutoff != 40 {
		t.Errorf("methodParams = %+v", methodParams)
	}
}

func TestLoadAppliesDefaultsWithoutAFile(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.ParallelLimit != DefaultParallelLimit {
		t.Errorf("ParallelLimit = %d, want default %d", cfg.General.ParallelLimit, DefaultParallelLimit)
	}
	if cfg.General.DefaultEmbeddingModel != DefaultEmbeddingModel {
		t.Errorf("DefaultEmbeddingModel = %q", cfg.General.DefaultEmbeddingModel)
	}
}

func TestLoadFlagOverridesFileValue(t *testing.T) {
	path := writeConfig(t, sampleINI)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Set("parallel-limit", "16"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.ParallelLimit != 16 {
		t.Errorf("ParallelLimit = %d, want flag override 16", cfg.General.ParallelLimit)
	}
}

func TestMethodRejectsUnknownName(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.Method("NotAMethod"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestStoreRejectsUnknownName(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := cfg.Store("mongodb"); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
