package pdfparse

// paragraphBlocks turns a section's runs into heading-candidate blocks: one
// block per reconstructed paragraph, each tagged with that paragraph's own
// representative font size so a heading line and the body text around it
// land in different histogram buckets even within the same section.
func paragraphBlocks(runs []TextRun) []headingBlock {
	if len(runs) == 0 {
		return nil
	}
	paragraphs := reconstructParagraphs(runs)
	blocks := make([]headingBlock, 0, len(paragraphs))
	for _, p := range paragraphs {
		blocks = append(blocks, headingBlock{Text: p.Text, FontSize: p.FontSize})
	}
	return blocks
}
