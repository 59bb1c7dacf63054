package pdfparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helveticaFont() Font {
	f := Font{Widths: make(map[int]float64), ToUnicode: make(map[int]string), AvgWidth: 556}
	for c := 0x20; c <= 0x7E; c++ {
		f.ToUnicode[c] = string(rune(c))
	}
	return f
}

func TestContentMachineRunProducesTextRuns(t *testing.T) {
	fonts := map[string]Font{"F1": helveticaFont()}
	m := newContentMachine(fonts)
	content := []byte("BT /F1 24 Tf 72 700 Td (Heading) Tj ET BT /F1 12 Tf 72 650 Td (Body text) Tj ET")
	runs, rulings := m.Run(content)

	require.Len(t, runs, 2)
	assert.Equal(t, "Heading", runs[0].Text)
	assert.InDelta(t, 24, runs[0].FontSize, 0.01)
	assert.Equal(t, "Body text", runs[1].Text)
	assert.InDelta(t, 12, runs[1].FontSize, 0.01)
	assert.Empty(t, rulings)
}

func TestContentMachineClassifiesThinStrokeAsRulingLine(t *testing.T) {
	fonts := map[string]Font{}
	m := newContentMachine(fonts)
	// a horizontal line from (0,400) to (600,400): wide, near-zero height.
	content := []byte("0 400 m 600 400 l S")
	_, rulings := m.Run(content)

	require.Len(t, rulings, 1)
	assert.True(t, rulings[0].Horizontal)
	assert.InDelta(t, 400, rulings[0].Y0, 0.01)
}

func TestContentMachineSkipsUnknownOperators(t *testing.T) {
	fonts := map[string]Font{"F1": helveticaFont()}
	m := newContentMachine(fonts)
	// BX/EX are compatibility operators this machine doesn't implement;
	// they must not disrupt surrounding text extraction.
	content := []byte("BX /Unknown true frobnicate EX BT /F1 12 Tf 0 0 Td (still works) Tj ET")
	runs, _ := m.Run(content)

	require.Len(t, runs, 1)
	assert.Equal(t, "still works", runs[0].Text)
}

func TestContentMachineHonoursTzHorizontalScale(t *testing.T) {
	fonts := map[string]Font{"F1": helveticaFont()}

	m1 := newContentMachine(fonts)
	m1.Run([]byte("BT /F1 12 Tf 0 0 Td (AAAA) Tj ET"))

	m2 := newContentMachine(fonts)
	m2.Run([]byte("BT /F1 12 Tf 50 Tz 0 0 Td (AAAA) Tj ET"))

	require.Len(t, m1.runs, 1)
	require.Len(t, m2.runs, 1)
	// end-of-run X (quad[1]) should differ under a halved horizontal scale.
	assert.NotEqual(t, m1.runs[0].Quad[1][0], m2.runs[0].Quad[1][0])
}
