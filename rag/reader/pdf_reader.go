package reader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aqua777/graphrag-core/pdfparse"
	"github.com/aqua777/graphrag-core/schema"
)

// PDFReader reads PDF files and converts them to documents using the
// from-scratch pdfparse decoder (xref/object/font/content-stream machine,
// layout inference and heading assignment) rather than delegating to a
// pre-built PDF library.
type PDFReader struct {
	// InputFiles is a list of PDF file paths to read
	InputFiles []string
	// InputDir is a directory containing PDF files
	InputDir string
	// Recursive determines if subdirectories should be searched
	Recursive bool
	// SplitByPage creates separate nodes for each page
	SplitByPage bool
	// ExtraMetadata is additional metadata to add to all documents
	ExtraMetadata map[string]interface{}
}

// PDFReaderOption configures PDFReader.
type PDFReaderOption func(*PDFReader)

// WithPDFInputFiles sets the input files.
func WithPDFInputFiles(files ...string) PDFReaderOption {
	return func(r *PDFReader) { r.InputFiles = files }
}

// WithPDFInputDir sets the input directory.
func WithPDFInputDir(dir string) PDFReaderOption {
	return func(r *PDFReader) { r.InputDir = dir }
}

// WithPDFRecursive enables recursive directory scanning.
func WithPDFRecursive(recursive bool) PDFReaderOption {
	return func(r *PDFReader) { r.Recursive = recursive }
}

// WithPDFSplitByPage enables splitting by page.
func WithPDFSplitByPage(split bool) PDFReaderOption {
	return func(r *PDFReader) { r.SplitByPage = split }
}

// WithPDFExtraMetadata sets extra metadata.
func WithPDFExtraMetadata(metadata map[string]interface{}) PDFReaderOption {
	return func(r *PDFReader) { r.ExtraMetadata = metadata }
}

// NewPDFReader creates a new PDFReader for specific files.
func NewPDFReader(inputFiles ...string) *PDFReader {
	return &PDFReader{InputFiles: inputFiles}
}

// NewPDFReaderFromDir creates a new PDFReader for a directory.
func NewPDFReaderFromDir(inputDir string, recursive bool) *PDFReader {
	return &PDFReader{InputDir: inputDir, Recursive: recursive}
}

// NewPDFReaderWithOptions creates a new PDFReader with options.
func NewPDFReaderWithOptions(opts ...PDFReaderOption) *PDFReader {
	r := &PDFReader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSplitByPage enables splitting by page (fluent API).
func (r *PDFReader) WithSplitByPage(split bool) *PDFReader {
	r.SplitByPage = split
	return r
}

// WithExtraMetadata sets extra metadata (fluent API).
func (r *PDFReader) WithExtraMetadata(metadata map[string]interface{}) *PDFReader {
	r.ExtraMetadata = metadata
	return r
}

// LoadData loads PDF files and returns documents.
func (r *PDFReader) LoadData() ([]schema.Node, error) {
	files, err := r.getFiles()
	if err != nil {
		return nil, err
	}

	var docs []schema.Node
	for _, file := range files {
		fileDocs, err := r.loadFile(file)
		if err != nil {
			return nil, NewReaderError(file, "failed to load PDF file", err)
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

// LoadDataWithContext loads PDF files with context support.
func (r *PDFReader) LoadDataWithContext(ctx context.Context) ([]schema.Node, error) {
	files, err := r.getFiles()
	if err != nil {
		return nil, err
	}

	var docs []schema.Node
	for _, file := range files {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
			fileDocs, err := r.loadFile(file)
			if err != nil {
				return nil, NewReaderError(file, "failed to load PDF file", err)
			}
			docs = append(docs, fileDocs...)
		}
	}
	return docs, nil
}

// LoadFromFile loads a single PDF file.
func (r *PDFReader) LoadFromFile(filePath string) ([]schema.Node, error) {
	return r.loadFile(filePath)
}

// Metadata returns reader metadata.
func (r *PDFReader) Metadata() ReaderMetadata {
	return ReaderMetadata{
		Name:                "PDFReader",
		SupportedExtensions: []string{".pdf"},
		Description:         "Reads PDF files via the from-scratch pdfparse decoder",
	}
}

func (r *PDFReader) getFiles() ([]string, error) {
	if len(r.InputFiles) > 0 {
		return r.InputFiles, nil
	}
	if r.InputDir == "" {
		return nil, fmt.Errorf("no input files or directory specified")
	}

	var files []string
	err := filepath.Walk(r.InputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != r.InputDir && !r.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == ".pdf" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return files, nil
}

func (r *PDFReader) loadFile(filePath string) ([]schema.Node, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	pages, err := pdfparse.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filePath
	}

	baseMetadata := map[string]interface{}{
		"file_path":   absPath,
		"file_name":   filepath.Base(filePath),
		"file_type":   "pdf",
		"total_pages": len(pages),
	}
	for k, v := range r.ExtraMetadata {
		baseMetadata[k] = v
	}

	if r.SplitByPage {
		return r.nodesByPage(pages, baseMetadata)
	}
	return r.nodeForWholeDocument(filePath, pages, baseMetadata)
}

func (r *PDFReader) nodesByPage(pages []string, baseMetadata map[string]interface{}) ([]schema.Node, error) {
	var nodes []schema.Node
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		metadata := make(map[string]interface{}, len(baseMetadata)+1)
		for k, v := range baseMetadata {
			metadata[k] = v
		}
		metadata["page_number"] = i + 1

		nodes = append(nodes, schema.Node{
			ID:       fmt.Sprintf("%v#page=%d", baseMetadata["file_path"], i+1),
			Text:     text,
			Type:     schema.ObjectTypeText,
			Metadata: metadata,
		})
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no text content found in PDF")
	}
	return nodes, nil
}

func (r *PDFReader) nodeForWholeDocument(filePath string, pages []string, baseMetadata map[string]interface{}) ([]schema.Node, error) {
	var parts []string
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	fullText := strings.TrimSpace(strings.Join(parts, "\n\n---\n\n"))
	if fullText == "" {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return []schema.Node{{
		ID:       filePath,
		Text:     fullText,
		Type:     schema.ObjectTypeDocument,
		Metadata: baseMetadata,
	}}, nil
}

// LazyLoadData returns a channel that yields documents one at a time.
func (r *PDFReader) LazyLoadData() (<-chan schema.Node, <-chan error) {
	nodeChan := make(chan schema.Node)
	errChan := make(chan error, 1)

	go func() {
		defer close(nodeChan)
		defer close(errChan)

		files, err := r.getFiles()
		if err != nil {
			errChan <- err
			return
		}
		for _, file := range files {
			nodes, err := r.loadFile(file)
			if err != nil {
				errChan <- NewReaderError(file, "failed to load PDF file", err)
				return
			}
			for _, node := range nodes {
				nodeChan <- node
			}
		}
	}()

	return nodeChan, errChan
}

// Ensure PDFReader implements the interfaces.
var _ Reader = (*PDFReader)(nil)
var _ FileReader = (*PDFReader)(nil)
var _ ReaderWithMetadata = (*PDFReader)(nil)
var _ ReaderWithContext = (*PDFReader)(nil)
var _ LazyReader = (*PDFReader)(nil)
