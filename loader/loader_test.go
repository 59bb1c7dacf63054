package loader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aqua777/graphrag-core/embedding"
	"github.com/aqua777/graphrag-core/graphstore"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadPathInsertsMarkdownFileAsGraphVertex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "# Title\n\nSome body text.\n")

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, embedding.NewMockEmbeddingModel([]float64{0.1, 0.2}))

	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}

	vertices := graph.AllVertices(FileCollection)
	if len(vertices) != 1 {
		t.Fatalf("expected 1 File vertex, got %d", len(vertices))
	}
	if vertices[0].Properties["content"] == "" {
		t.Fatalf("expected non-empty content")
	}
}

func TestLoadPathSkipsOfficeLockFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "~$locked.docx", "garbage")

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, nil)

	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if len(graph.AllVertices(FileCollection)) != 0 {
		t.Fatalf("expected lock file to be skipped")
	}
}

func TestLoadPathSkipsUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "image.png", "not text")

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, nil)

	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if len(graph.AllVertices(FileCollection)) != 0 {
		t.Fatalf("expected unsupported extension to be skipped")
	}
}

func TestLoadPathDedupsOnFilePathAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "hello world")

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, embedding.NewMockEmbeddingModel([]float64{0.1}))

	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("first LoadPath: %v", err)
	}
	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("second LoadPath: %v", err)
	}

	if len(graph.AllVertices(FileCollection)) != 1 {
		t.Fatalf("expected dedup to prevent a second insert, got %d vertices", len(graph.AllVertices(FileCollection)))
	}
}

func TestLoadPathRecursesIntoNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, nested, "deep.md", "deep content")

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, embedding.NewMockEmbeddingModel([]float64{0.1}))

	if err := l.LoadPath(context.Background(), dir); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if len(graph.AllVertices(FileCollection)) != 1 {
		t.Fatalf("expected nested file to be loaded")
	}
}

func TestLoadPathHandlesZipArchive(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	if err := os.Mkdir(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, srcDir, "a.txt", "zipped content")

	zipPath := filepath.Join(dir, "archive.zip")
	if err := zipDir(srcDir, zipPath); err != nil {
		t.Fatalf("zipDir: %v", err)
	}

	destDir := filepath.Join(dir, "dest")
	if err := os.Mkdir(destDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Rename(zipPath, filepath.Join(destDir, "archive.zip")); err != nil {
		t.Fatalf("rename: %v", err)
	}

	graph := graphstore.NewMemoryGraphStore()
	l := NewLoader(graph, nil, embedding.NewMockEmbeddingModel([]float64{0.1}))

	if err := l.LoadPath(context.Background(), destDir); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if len(graph.AllVertices(FileCollection)) != 1 {
		t.Fatalf("expected zip entry to be loaded, got %d vertices", len(graph.AllVertices(FileCollection)))
	}
}

// zipDir is a tiny test helper building a single-level zip from srcDir's
// files, mirroring the shape walkZip expects to extract.
func zipDir(srcDir, zipPath string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			return err
		}
		w, err := zw.Create(entry.Name())
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
