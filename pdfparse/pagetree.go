package pdfparse

import "fmt"

// Page is a resolved leaf of the /Pages tree: decoded content stream bytes
// plus the inherited attributes content-stream execution needs.
type Page struct {
	Resources map[string]Object
	MediaBox  [4]float64
	Content   []byte
}

var defaultMediaBox = [4]float64{0, 0, 612, 792} // US Letter, points

// Pages resolves /Root -> /Pages, inheriting /Resources and /MediaBox
// downward (4.B step 4), and concatenates + decodes every leaf's content
// stream(s).
func (doc *Document) Pages() ([]Page, error) {
	root := doc.Resolve(doc.trailer["Root"])
	if root.Kind != KindDict {
		return nil, fmt.Errorf("pdfparse: missing /Root")
	}
	pagesRoot := doc.Resolve(root.Dict["Pages"])
	if pagesRoot.Kind != KindDict {
		return nil, fmt.Errorf("pdfparse: missing /Pages")
	}

	var pages []Page
	visited := make(map[int]bool)
	var walk func(node Object, resources map[string]Object, mediaBox [4]float64, refNum int)
	walk = func(node Object, resources map[string]Object, mediaBox [4]float64, refNum int) {
		if refNum != 0 {
			if visited[refNum] {
				return
			}
			visited[refNum] = true
		}
		if res := doc.Resolve(node.Dict["Resources"]); res.Kind == KindDict {
			resources = res.Dict
		}
		if mb := doc.Resolve(node.Dict["MediaBox"]); mb.Kind == KindArray && len(mb.Array) == 4 {
			mediaBox = arrayToBox(mb)
		}

		typeName := ""
		if t, ok := node.Dict["Type"]; ok {
			typeName = t.Name
		}

		if typeName == "Pages" {
			kids := doc.Resolve(node.Dict["Kids"])
			if kids.Kind != KindArray {
				return
			}
			for _, kidRef := range kids.Array {
				kid := doc.Resolve(kidRef)
				if kid.Kind != KindDict {
					continue
				}
				walk(kid, resources, mediaBox, kidRef.Ref.Num)
			}
			return
		}

		content := doc.pageContent(node)
		pages = append(pages, Page{Resources: resources, MediaBox: mediaBox, Content: content})
	}

	walk(pagesRoot, nil, defaultMediaBox, 0)
	return pages, nil
}

func arrayToBox(arr Object) [4]float64 {
	var box [4]float64
	for i := 0; i < 4 && i < len(arr.Array); i++ {
		f, _ := arr.Array[i].AsFloat()
		box[i] = f
	}
	return box
}

// pageContent decodes and concatenates a page's /Contents (single stream or
// array of streams, per the spec; streams are joined with a newline so
// operators never straddle a stream boundary).
func (doc *Document) pageContent(page Object) []byte {
	contents := doc.Resolve(page.Dict["Contents"])
	var streams []Object
	switch contents.Kind {
	case KindStream:
		streams = []Object{contents}
	case KindArray:
		for _, c := range contents.Array {
			resolved := doc.Resolve(c)
			if resolved.Kind == KindStream {
				streams = append(streams, resolved)
			}
		}
	}

	var out []byte
	for _, s := range streams {
		decoded, err := decodeStream(s)
		if err != nil {
			continue // failure semantics: a bad content stream degrades the page, not the document
		}
		out = append(out, decoded...)
		out = append(out, '\n')
	}
	return out
}
