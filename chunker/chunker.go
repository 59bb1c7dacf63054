// Package chunker splits the per-page Markdown produced by pdfparse (or any
// other reader) into header-scoped chunks, each carrying its own h1/h2/h3
// context, a page-reference list and a human page hint.
package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the default body-length ceiling in characters.
const DefaultMaxChunkSize = 4096

// sectionState tracks which header level is currently "open", mirroring the
// state machine's last-seen marker: 1/2/3 for an open h1/h2/h3 with no body
// yet, 4 once body text has started accumulating.
type sectionState int

const (
	stateNone sectionState = iota
	stateH1
	stateH2
	stateH3
	stateBody
)

// Chunk is one flushed header-scoped chunk.
type Chunk struct {
	H1, H2, H3 string
	Body       string
	// Pages holds the 0-indexed page numbers this chunk drew text from, ascending.
	Pages []int
	// PageHint is "Page (n)" or "Pages (a-b)", 1-indexed.
	PageHint string
	// Content is the composed Markdown: headings re-prefixed, then Body.
	Content string
}

// Chunker splits pages of Markdown into chunks.
type Chunker struct {
	MaxChunkSize int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMaxChunkSize overrides the default body-length ceiling.
func WithMaxChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.MaxChunkSize = n
		}
	}
}

// NewChunker builds a Chunker with DefaultMaxChunkSize unless overridden.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{MaxChunkSize: DefaultMaxChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// buildState is the mutable accumulator threaded through Split's scan.
type buildState struct {
	h1, h2, h3, body string
	pages            map[int]struct{}
	last             sectionState
	results          []Chunk
}

// Split concatenates pages section-wise (each page split on blank lines) and
// walks the resulting lines through a heading-state machine, flushing a
// chunk on every heading transition away from an accumulated body and
// whenever appending a body line would push Body past MaxChunkSize.
func (c *Chunker) Split(pages []string) []Chunk {
	st := &buildState{
		pages: map[int]struct{}{},
		last:  stateH1,
	}

	for idx, page := range pages {
		for _, line := range strings.Split(page, "\n\n") {
			c.step(st, idx, line)
		}
	}

	if st.last == stateBody {
		st.flush()
	}

	for i := range st.results {
		st.results[i].finalize()
	}
	return st.results
}

func (c *Chunker) step(st *buildState, pageIdx int, line string) {
	switch {
	case strings.HasPrefix(line, "### "):
		st.openHeading(stateH3, strings.TrimSpace(line[4:]))
	case strings.HasPrefix(line, "## "):
		st.openHeading(stateH2, strings.TrimSpace(line[3:]))
	case strings.HasPrefix(line, "# "):
		st.openHeading(stateH1, strings.TrimSpace(line[2:]))
	default:
		c.appendBody(st, pageIdx, line)
	}
}

// openHeading handles a heading line at the given level. Re-entering the
// same open level appends to it (a heading that itself spans multiple
// blank-line-separated segments); entering a new level flushes any
// accumulated body first and resets the deeper levels, but an unrelated
// higher level (h1) is preserved when opening h2/h3, and vice versa
// shallower levels are preserved when a deeper heading closes without ever
// reaching body text.
func (st *buildState) openHeading(level sectionState, text string) {
	if st.last == level {
		switch level {
		case stateH1:
			st.h1 = joinHeader(st.h1, text)
		case stateH2:
			st.h2 = joinHeader(st.h2, text)
		case stateH3:
			st.h3 = joinHeader(st.h3, text)
		}
		return
	}

	if st.last == stateBody {
		st.flush()
	}

	switch level {
	case stateH1:
		st.h1 = text
		st.h2, st.h3, st.body = "", "", ""
	case stateH2:
		st.h2 = text
		st.h3, st.body = "", ""
	case stateH3:
		st.h3 = text
		st.body = ""
	}
	st.last = level
}

func joinHeader(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + " " + next
}

// appendBody handles a non-heading line. The first body line after a
// heading opens the body state without triggering a size-based flush (there
// is nothing to compare against yet); subsequent lines flush-and-restart
// the chunk once Body would exceed MaxChunkSize.
func (c *Chunker) appendBody(st *buildState, pageIdx int, line string) {
	line = strings.TrimSpace(line)
	if st.last != stateBody {
		st.body = line
		st.last = stateBody
	} else if st.body != "" && utf8.RuneCountInString(st.body)+len("\n\n")+utf8.RuneCountInString(line) > c.MaxChunkSize {
		st.flush()
		st.pages = map[int]struct{}{pageIdx: {}}
		st.body = line
	} else if st.body == "" {
		st.body = line
	} else {
		st.body = st.body + "\n\n" + line
	}
	st.pages[pageIdx] = struct{}{}
}

func (st *buildState) flush() {
	pages := make([]int, 0, len(st.pages))
	for p := range st.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	st.results = append(st.results, Chunk{
		H1:    st.h1,
		H2:    st.h2,
		H3:    st.h3,
		Body:  st.body,
		Pages: pages,
	})
	st.pages = map[int]struct{}{}
}

// finalize computes PageHint and Content once a chunk's fields are fixed.
func (ch *Chunk) finalize() {
	if len(ch.Pages) == 1 {
		ch.PageHint = fmt.Sprintf("Page (%d)", ch.Pages[0]+1)
	} else if len(ch.Pages) > 1 {
		ch.PageHint = fmt.Sprintf("Pages (%d-%d)", ch.Pages[0]+1, ch.Pages[len(ch.Pages)-1]+1)
	}

	var b strings.Builder
	if ch.H1 != "" {
		b.WriteString("# " + ch.H1 + "\n\n")
	}
	if ch.H2 != "" {
		b.WriteString("## " + ch.H2 + "\n\n")
	}
	if ch.H3 != "" {
		b.WriteString("### " + ch.H3 + "\n\n")
	}
	b.WriteString(ch.Body)
	ch.Content = b.String()
}
