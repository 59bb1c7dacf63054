package pdfparse

import "sort"

// headingBlock is one piece of document text carrying the font size that
// will decide its heading level (blocks with IsRaw set, such as table markup,
// are rendered as-is, bypassing the histogram).
type headingBlock struct {
	Text     string
	FontSize float64
	IsRaw    bool
}

// assignHeadingLevels implements 4.B's document-level heading assignment:
// a font-size histogram weighted by character count, walked ascending,
// escalating H4->H3->H2->H1 whenever the running bucket clears both the
// 0.1%-of-total-text floor and the 50%-of-remainder accumulation test.
// Grounded line-for-line on _annotate_pages's font_size_counts walk.
func assignHeadingLevels(blocks []headingBlock) map[float64]int {
	totalChars := 0
	counts := make(map[float64]int)
	for _, b := range blocks {
		if b.IsRaw {
			continue
		}
		totalChars += len(b.Text)
		counts[b.FontSize] += len(b.Text)
	}

	sizes := make([]float64, 0, len(counts))
	for s := range counts {
		sizes = append(sizes, s)
	}
	sort.Float64s(sizes)

	countMin := float64(totalChars) * 0.001
	remaining := float64(totalChars)
	level := 4
	charCount := 0.0

	levels := make(map[float64]int, len(sizes))
	for _, size := range sizes {
		count := counts[size]
		if float64(count) > countMin && charCount > 0.5*remaining {
			level = maxIntVal(level-1, 1)
			remaining -= charCount
			charCount = 0
		}
		charCount += float64(count)
		levels[size] = level
	}
	return levels
}

func maxIntVal(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// renderBlocks composes the final Markdown for one page given the
// document-wide size->level assignment (level 4 is inline body text).
func renderBlocks(blocks []headingBlock, levels map[float64]int) string {
	var out string
	for _, b := range blocks {
		if b.IsRaw {
			out += b.Text
			continue
		}
		switch levels[b.FontSize] {
		case 1:
			out += "\n\n# " + trimSpaceNL(b.Text) + "\n\n"
		case 2:
			out += "\n\n## " + trimSpaceNL(b.Text) + "\n\n"
		case 3:
			out += "\n\n### " + trimSpaceNL(b.Text) + "\n\n"
		default:
			out += b.Text
		}
	}
	return trimSpaceNL(out)
}

func trimSpaceNL(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}
