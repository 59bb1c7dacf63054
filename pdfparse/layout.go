package pdfparse

import "sort"

type rect struct{ minX, minY, maxX, maxY float64 }

func (r rect) width() float64  { return r.maxX - r.minX }
func (r rect) height() float64 { return r.maxY - r.minY }
func (r rect) contains(x, y float64) bool {
	return x >= r.minX && x <= r.maxX && y >= r.minY && y <= r.maxY
}

// section is one leaf of the recursive ruling-line split (4.B "Sectioning").
type section struct {
	box   rect
	runs  []TextRun
}

// orientation is the dominant text direction of a page, used to pick the
// reading-order sort axis (4.B "Reading order").
type orientation int

const (
	orientUp orientation = iota
	orientRight
	orientDown
	orientLeft
)

// splitSections recursively partitions box by ruling lines that span at
// least 60% of the section's interior along their axis (4.B step 1). Splits
// are bounded to a modest recursion depth to stay well clear of runaway
// ruling noise in malformed documents.
func splitSections(box rect, rulings []RulingLine, depth int) []rect {
	if depth <= 0 {
		return []rect{box}
	}
	for _, rl := range rulings {
		if rl.Horizontal {
			if rl.X0 < box.minX-0.5 || rl.X1 > box.maxX+0.5 {
				continue
			}
			span := rl.X1 - rl.X0
			if box.width() == 0 || span/box.width() < 0.6 {
				continue
			}
			y := (rl.Y0 + rl.Y1) / 2
			if y <= box.minY+1 || y >= box.maxY-1 {
				continue
			}
			top := rect{box.minX, y, box.maxX, box.maxY}
			bottom := rect{box.minX, box.minY, box.maxX, y}
			return append(splitSections(top, rulings, depth-1), splitSections(bottom, rulings, depth-1)...)
		}
	}
	for _, rl := range rulings {
		if !rl.Horizontal {
			if rl.Y0 < box.minY-0.5 || rl.Y1 > box.maxY+0.5 {
				continue
			}
			span := rl.Y1 - rl.Y0
			if box.height() == 0 || span/box.height() < 0.6 {
				continue
			}
			x := (rl.X0 + rl.X1) / 2
			if x <= box.minX+1 || x >= box.maxX-1 {
				continue
			}
			left := rect{box.minX, box.minY, x, box.maxY}
			right := rect{x, box.minY, box.maxX, box.maxY}
			return append(splitSections(left, rulings, depth-1), splitSections(right, rulings, depth-1)...)
		}
	}
	return []rect{box}
}

const maxSectionDepth = 6

// assignRuns attaches each run to the smallest-area enclosing section by
// its start point (4.B step 2).
func assignRuns(boxes []rect, runs []TextRun) []section {
	sections := make([]section, len(boxes))
	for i, b := range boxes {
		sections[i].box = b
	}
	for _, r := range runs {
		best := -1
		bestArea := -1.0
		for i, b := range boxes {
			if !b.contains(r.X, r.Y) {
				continue
			}
			area := b.width() * b.height()
			if best == -1 || area < bestArea {
				best = i
				bestArea = area
			}
		}
		if best == -1 {
			best = 0
		}
		sections[best].runs = append(sections[best].runs, r)
	}
	return sections
}

// dominantOrientation classifies the page's majority text direction by
// weighted character count over each run's baseline vector (4.B step 4).
func dominantOrientation(runs []TextRun) orientation {
	counts := make(map[orientation]int)
	for _, r := range runs {
		dx := r.Quad[1][0] - r.Quad[0][0]
		dy := r.Quad[1][1] - r.Quad[0][1]
		o := classifyDirection(dx, dy)
		counts[o] += len(r.Text)
	}
	best := orientUp
	bestCount := -1
	for o, c := range counts {
		if c > bestCount {
			best = o
			bestCount = c
		}
	}
	return best
}

func classifyDirection(dx, dy float64) orientation {
	if absF(dx) >= absF(dy) {
		if dx >= 0 {
			return orientRight
		}
		return orientLeft
	}
	if dy >= 0 {
		return orientUp
	}
	return orientDown
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// orderSections sorts sections by (major axis, minor axis) according to the
// page's dominant orientation (4.B step 4).
func orderSections(sections []section, o orientation) {
	sort.SliceStable(sections, func(i, j int) bool {
		a, b := sections[i].box, sections[j].box
		switch o {
		case orientRight:
			if a.minY != b.minY {
				return a.minY > b.minY
			}
			return a.minX < b.minX
		case orientLeft:
			if a.minY != b.minY {
				return a.minY < b.minY
			}
			return a.minX > b.minX
		case orientDown:
			if a.minX != b.minX {
				return a.minX < b.minX
			}
			return a.minY > b.minY
		default: // orientUp
			if a.minY != b.minY {
				return a.minY > b.minY
			}
			return a.minX < b.minX
		}
	})
}

// reconstructParagraphs groups a section's runs into lines (by Y proximity)
// then into paragraphs (by vertical gap threshold), honouring bold-weight
// transitions and dropping line-break hyphens (4.B step 3, simplified from
// the full lead-graph resolution to line/paragraph clustering by geometric
// proximity — directionally equivalent for the single- and two-column
// layouts this parser targets).
// paragraph is one reconstructed paragraph plus the font size of its first
// line, which the heading histogram treats as that block's representative
// size.
type paragraph struct {
	Text     string
	FontSize float64
}

func reconstructParagraphs(runs []TextRun) []paragraph {
	if len(runs) == 0 {
		return nil
	}
	sorted := make([]TextRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if absF(sorted[i].Y-sorted[j].Y) > sorted[i].FontSize*0.5 {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	type line struct {
		text     string
		y        float64
		fontSize float64
		bold     bool
	}
	var lines []line
	for _, r := range sorted {
		if len(lines) > 0 && absF(lines[len(lines)-1].y-r.Y) <= r.FontSize*0.5 {
			last := &lines[len(lines)-1]
			last.text = joinRunText(last.text, r.Text, last.bold, r.Bold)
			last.bold = r.Bold
			continue
		}
		lines = append(lines, line{text: boldWrap(r.Text, r.Bold), y: r.Y, fontSize: r.FontSize, bold: r.Bold})
	}

	var paragraphs []paragraph
	var cur string
	curSize := lines[0].fontSize
	for i, l := range lines {
		if i == 0 {
			cur = l.text
			continue
		}
		gap := lines[i-1].y - l.y
		sizeChanged := absF(l.fontSize-lines[i-1].fontSize) > lines[i-1].fontSize*0.15
		if gap > l.fontSize*1.8 || sizeChanged {
			paragraphs = append(paragraphs, paragraph{Text: cur, FontSize: curSize})
			cur = l.text
			curSize = l.fontSize
			continue
		}
		if endsWithHyphen(cur) {
			cur = cur[:len(cur)-1] + l.text
		} else {
			cur = cur + " " + l.text
		}
	}
	if cur != "" {
		paragraphs = append(paragraphs, paragraph{Text: cur, FontSize: curSize})
	}
	return paragraphs
}

func boldWrap(text string, bold bool) string {
	if bold && text != "" {
		return "**" + text + "**"
	}
	return text
}

func joinRunText(existing, next string, prevBold, nextBold bool) string {
	wrapped := boldWrap(next, nextBold)
	if existing == "" {
		return wrapped
	}
	return existing + wrapped
}

func endsWithHyphen(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '-'
}

// detectTable renders sibling sections that share a row (same major-axis
// band, more than one column) as a Markdown table (4.B step 5).
func detectTable(rowSections []section, o orientation) string {
	if len(rowSections) < 2 {
		return ""
	}
	orderSections(rowSections, o)
	header := "|"
	sep := "|"
	for range rowSections {
		header += " col |"
		sep += "---|"
	}
	row := "|"
	for _, s := range rowSections {
		content := ""
		for _, p := range reconstructParagraphs(s.runs) {
			content += p.Text + " "
		}
		row += " " + content + "|"
	}
	return header + "\n" + sep + "\n" + row
}
