package pdfparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(text string, x, y, fontSize float64, bold bool) TextRun {
	return TextRun{
		Text:     text,
		X:        x,
		Y:        y,
		FontSize: fontSize,
		Bold:     bold,
		Quad:     [4][2]float64{{x, y}, {x + float64(len(text))*fontSize*0.5, y}, {x + float64(len(text))*fontSize*0.5, y + fontSize}, {x, y + fontSize}},
	}
}

func TestReconstructParagraphsMergesLinesAndSplitsOnGap(t *testing.T) {
	runs := []TextRun{
		run("First line of para one", 72, 700, 12, false),
		run("second line continues", 72, 686, 12, false),
		run("A new paragraph after a big gap", 72, 600, 12, false),
	}
	paragraphs := reconstructParagraphs(runs)
	require.Len(t, paragraphs, 2)
	assert.Contains(t, paragraphs[0].Text, "First line of para one")
	assert.Contains(t, paragraphs[0].Text, "second line continues")
	assert.Contains(t, paragraphs[1].Text, "A new paragraph after a big gap")
}

func TestReconstructParagraphsSplitsOnFontSizeChange(t *testing.T) {
	runs := []TextRun{
		run("A Heading", 72, 700, 24, false),
		run("Body text right below it", 72, 670, 12, false),
	}
	paragraphs := reconstructParagraphs(runs)
	require.Len(t, paragraphs, 2)
	assert.InDelta(t, 24, paragraphs[0].FontSize, 0.01)
	assert.InDelta(t, 12, paragraphs[1].FontSize, 0.01)
}

func TestReconstructParagraphsDropsHyphenOnContinuation(t *testing.T) {
	runs := []TextRun{
		run("a word that is hyphen-", 72, 700, 12, false),
		run("ated across two lines", 72, 686, 12, false),
	}
	paragraphs := reconstructParagraphs(runs)
	require.Len(t, paragraphs, 1)
	assert.Contains(t, paragraphs[0].Text, "hyphenated")
}

func TestReconstructParagraphsWrapsBoldRuns(t *testing.T) {
	runs := []TextRun{run("strong text", 72, 700, 12, true)}
	paragraphs := reconstructParagraphs(runs)
	require.Len(t, paragraphs, 1)
	assert.Equal(t, "**strong text**", paragraphs[0].Text)
}

func TestDominantOrientationPicksMajorityByCharCount(t *testing.T) {
	runs := []TextRun{
		{Text: "a lot of ordinary left-to-right text here", Quad: [4][2]float64{{0, 0}, {10, 0}}},
		{Text: "x", Quad: [4][2]float64{{0, 0}, {0, 10}}},
	}
	assert.Equal(t, orientRight, dominantOrientation(runs))
}

func TestSplitSectionsRespectsSpanThreshold(t *testing.T) {
	box := rect{0, 0, 600, 800}
	// a ruling spanning the full width at y=400 should split top/bottom.
	rulings := []RulingLine{{X0: 0, Y0: 400, X1: 600, Y1: 400, Horizontal: true}}
	boxes := splitSections(box, rulings, maxSectionDepth)
	require.Len(t, boxes, 2)

	// a short ruling spanning under 60% must not split.
	shortRulings := []RulingLine{{X0: 0, Y0: 400, X1: 200, Y1: 400, Horizontal: true}}
	boxes2 := splitSections(box, shortRulings, maxSectionDepth)
	require.Len(t, boxes2, 1)
}

func TestAssignRunsPicksSmallestEnclosingSection(t *testing.T) {
	outer := rect{0, 0, 600, 800}
	inner := rect{100, 100, 200, 200}
	boxes := []rect{outer, inner}
	runs := []TextRun{{Text: "in inner", X: 150, Y: 150}}
	sections := assignRuns(boxes, runs)
	assert.Empty(t, sections[0].runs)
	assert.Len(t, sections[1].runs, 1)
}
