package pdfparse

import "fmt"

// Parse runs the full 4.B pipeline over one PDF file's raw bytes: xref/object
// resolution, page tree walk, per-page font decoding, content-stream
// execution, layout inference and document-wide heading assignment. It
// returns one Markdown string per page, in page order.
//
// Failure semantics: a page whose content stream or resources cannot be
// decoded degrades to an empty page rather than failing the whole document;
// a document with no readable xref chain at all returns an error.
func Parse(data []byte) ([]string, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}

	type pageBlocks struct {
		blocks []headingBlock
	}
	perPage := make([]pageBlocks, len(pages))

	for i, page := range pages {
		fonts := resolveFonts(doc, page.Resources)
		machine := newContentMachine(fonts)
		runs, rulings := machine.Run(page.Content)
		if len(runs) == 0 {
			continue
		}

		box := rect{page.MediaBox[0], page.MediaBox[1], page.MediaBox[2], page.MediaBox[3]}
		boxes := splitSections(box, rulings, maxSectionDepth)
		sections := assignRuns(boxes, runs)
		orient := dominantOrientation(runs)
		orderSections(sections, orient)

		var blocks []headingBlock
		for _, s := range sections {
			if len(s.runs) == 0 {
				continue
			}
			blocks = append(blocks, paragraphBlocks(s.runs)...)
		}
		perPage[i] = pageBlocks{blocks: blocks}
	}

	var all []headingBlock
	for _, pb := range perPage {
		all = append(all, pb.blocks...)
	}
	levels := assignHeadingLevels(all)

	out := make([]string, len(pages))
	for i, pb := range perPage {
		out[i] = renderBlocks(pb.blocks, levels)
	}
	return out, nil
}

// resolveFonts decodes every /Font resource reachable from a page, keyed by
// the resource-dictionary name content streams reference via Tf.
func resolveFonts(doc *Document, resources map[string]Object) map[string]Font {
	fonts := make(map[string]Font)
	if resources == nil {
		return fonts
	}
	fontDict := doc.Resolve(resources["Font"])
	if fontDict.Kind != KindDict {
		return fonts
	}
	for name, ref := range fontDict.Dict {
		resolved := doc.Resolve(ref)
		if resolved.Kind != KindDict {
			continue
		}
		fonts[name] = doc.decodeFont(resolved)
	}
	return fonts
}

// ParseFile is a convenience wrapper returning a single Markdown document
// with page breaks rendered as a thematic break, for callers that don't need
// per-page boundaries (e.g. loader's ingestion path).
func ParseFile(data []byte) (string, error) {
	pages, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("pdfparse: %w", err)
	}
	var out string
	for i, p := range pages {
		if i > 0 {
			out += "\n\n---\n\n"
		}
		out += p
	}
	return out, nil
}
