package reader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMinimalPDF writes a single-page PDF with a classic xref table to path,
// mirroring createTestDocxFile's pattern of building a minimal valid fixture
// programmatically rather than embedding a golden binary.
func writeMinimalPDF(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	offsets := make([]int, 6)

	buf.WriteString("%PDF-1.7\n")
	offsets[1] = buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")
	offsets[4] = buf.Len()
	buf.WriteString("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	offsets[5] = buf.Len()
	fmt.Fprintf(&buf, "5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(content), content)

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	buf.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	fmt.Fprintf(&buf, "%d\n%%%%EOF", xrefOffset)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestPDFReaderLoadsWholeDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeMinimalPDF(t, path, "BT /F1 12 Tf 72 700 Td (Quarterly results look strong across every region.) Tj ET")

	r := NewPDFReader(path)
	nodes, err := r.LoadData()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Contains(t, nodes[0].Text, "Quarterly results")
	assert.Equal(t, "pdf", nodes[0].Metadata["file_type"])
}

func TestPDFReaderSplitByPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeMinimalPDF(t, path, "BT /F1 12 Tf 72 700 Td (Page one content.) Tj ET")

	r := NewPDFReader(path).WithSplitByPage(true)
	nodes, err := r.LoadData()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 1, nodes[0].Metadata["page_number"])
}

func TestPDFReaderMetadataAndInterfaces(t *testing.T) {
	r := NewPDFReader("x.pdf")
	meta := r.Metadata()
	assert.Equal(t, "PDFReader", meta.Name)
	assert.Contains(t, meta.SupportedExtensions, ".pdf")
}
