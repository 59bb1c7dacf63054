package pdfparse

import (
	"bytes"
	"fmt"
)

// xrefEntry locates one object, either directly by byte offset or inside an
// object stream (type-2 xref entry).
type xrefEntry struct {
	offset        int
	inStream      bool
	streamObjNum  int
	indexInStream int
}

// Document is a parsed PDF file: the raw bytes, the resolved cross-reference
// table and an object cache (objects are resolved lazily and memoised).
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer map[string]Object
	cache   map[int]Object
}

// Open locates the header and xref chain and builds the object table. It
// does not decode any page content yet (4.B pipeline step 1-2).
func Open(data []byte) (*Document, error) {
	headerIdx := bytes.Index(data, []byte("%PDF-"))
	if headerIdx < 0 {
		return nil, fmt.Errorf("pdfparse: missing %%PDF- header")
	}

	doc := &Document{data: data, xref: make(map[int]xrefEntry), cache: make(map[int]Object)}

	startOff, err := findStartXref(data)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for startOff >= 0 && !seen[startOff] {
		seen[startOff] = true
		trailer, prev, err := doc.readXrefSection(startOff)
		if err != nil {
			return nil, err
		}
		if doc.trailer == nil {
			doc.trailer = trailer
		} else {
			for k, v := range trailer {
				if _, exists := doc.trailer[k]; !exists {
					doc.trailer[k] = v
				}
			}
		}
		startOff = prev
	}

	if doc.trailer == nil {
		return nil, fmt.Errorf("pdfparse: no trailer found")
	}
	return doc, nil
}

func findStartXref(data []byte) (int, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	offBase := len(data) - len(tail)
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return -1, fmt.Errorf("pdfparse: missing startxref")
	}
	p := NewParser(data)
	p.Pos = offBase + idx + len("startxref")
	p.skipWS()
	obj, err := p.ParseObject()
	if err != nil || obj.Kind != KindInt {
		return -1, fmt.Errorf("pdfparse: malformed startxref")
	}
	return int(obj.Int), nil
}

// readXrefSection parses one xref table or xref stream at offset, returning
// its trailer dict and the /Prev offset (-1 if none).
func (doc *Document) readXrefSection(offset int) (map[string]Object, int, error) {
	if offset < 0 || offset >= len(doc.data) {
		return nil, -1, fmt.Errorf("pdfparse: xref offset out of range")
	}
	p := NewParser(doc.data)
	p.Pos = offset
	p.skipWS()

	if hasPrefixAt(doc.data, p.Pos, "xref") {
		return doc.readClassicXref(p)
	}
	return doc.readXrefStream(p)
}

func (doc *Document) readClassicXref(p *Parser) (map[string]Object, int, error) {
	p.Pos += len("xref")
	for {
		p.skipWS()
		if hasPrefixAt(doc.data, p.Pos, "trailer") {
			p.Pos += len("trailer")
			p.skipWS()
			trailerObj, err := p.ParseObject()
			if err != nil || trailerObj.Kind != KindDict {
				return nil, -1, fmt.Errorf("pdfparse: malformed trailer")
			}
			prev := -1
			if pv, ok := trailerObj.Dict["Prev"]; ok {
				if n, ok := pv.AsInt(); ok {
					prev = n
				}
			}
			if xs, ok := trailerObj.Dict["XRefStm"]; ok {
				if n, ok := xs.AsInt(); ok {
					if _, _, err := doc.readXrefSection(n); err == nil {
						// hybrid-reference file: merge handled by caller loop via recursion is
						// avoided here; entries already populated as a side effect.
					}
				}
			}
			return trailerObj.Dict, prev, nil
		}
		startObj, err := p.ParseObject()
		if err != nil {
			return nil, -1, err
		}
		startNum, ok1 := startObj.AsInt()
		countObj, err := p.ParseObject()
		if err != nil {
			return nil, -1, err
		}
		count, ok2 := countObj.AsInt()
		if !ok1 || !ok2 {
			return nil, -1, fmt.Errorf("pdfparse: malformed xref subsection header")
		}
		for i := 0; i < count; i++ {
			p.skipWS()
			if p.Pos+18 > len(doc.data) {
				break
			}
			line := doc.data[p.Pos : p.Pos+20]
			p.Pos += 20
			var off int
			var gen int
			var typ byte
			fmt.Sscanf(string(line[:10]), "%d", &off)
			fmt.Sscanf(string(line[11:16]), "%d", &gen)
			typ = line[17]
			num := startNum + i
			if typ == 'n' {
				if _, exists := doc.xref[num]; !exists {
					doc.xref[num] = xrefEntry{offset: off}
				}
			}
		}
	}
}

func (doc *Document) readXrefStream(p *Parser) (map[string]Object, int, error) {
	numObj, err := p.ParseObject()
	if err != nil {
		return nil, -1, err
	}
	_, _ = numObj.AsInt()
	if _, err := p.ParseObject(); err != nil { // gen
		return nil, -1, err
	}
	p.skipWS()
	if !hasPrefixAt(doc.data, p.Pos, "obj") {
		return nil, -1, fmt.Errorf("pdfparse: expected obj keyword for xref stream")
	}
	p.Pos += len("obj")
	streamObj, err := p.ParseObject()
	if err != nil || streamObj.Kind != KindStream {
		return nil, -1, fmt.Errorf("pdfparse: expected xref stream object")
	}

	wArr, ok := streamObj.Dict["W"]
	if !ok || wArr.Kind != KindArray || len(wArr.Array) != 3 {
		return nil, -1, fmt.Errorf("pdfparse: xref stream missing /W")
	}
	w0, _ := wArr.Array[0].AsInt()
	w1, _ := wArr.Array[1].AsInt()
	w2, _ := wArr.Array[2].AsInt()

	size, _ := streamObj.Dict["Size"].AsInt()
	var ranges [][2]int
	if idxObj, ok := streamObj.Dict["Index"]; ok && idxObj.Kind == KindArray {
		for i := 0; i+1 < len(idxObj.Array); i += 2 {
			s, _ := idxObj.Array[i].AsInt()
			c, _ := idxObj.Array[i+1].AsInt()
			ranges = append(ranges, [2]int{s, c})
		}
	} else {
		ranges = [][2]int{{0, size}}
	}

	decoded, err := decodeStream(streamObj)
	if err != nil {
		return nil, -1, fmt.Errorf("pdfparse: xref stream decode failed: %w", err)
	}

	rowLen := w0 + w1 + w2
	pos := 0
	for _, rg := range ranges {
		for i := 0; i < rg[1]; i++ {
			if pos+rowLen > len(decoded) {
				break
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen
			typ := 1
			if w0 > 0 {
				typ = int(beInt(row[:w0]))
			}
			f2 := beInt(row[w0 : w0+w1])
			f3 := beInt(row[w0+w1 : w0+w1+w2])
			num := rg[0] + i
			if _, exists := doc.xref[num]; exists {
				continue
			}
			switch typ {
			case 1:
				doc.xref[num] = xrefEntry{offset: int(f2)}
			case 2:
				doc.xref[num] = xrefEntry{inStream: true, streamObjNum: int(f2), indexInStream: int(f3)}
			}
		}
	}

	prev := -1
	if pv, ok := streamObj.Dict["Prev"]; ok {
		if n, ok := pv.AsInt(); ok {
			prev = n
		}
	}
	return streamObj.Dict, prev, nil
}

func beInt(b []byte) int64 {
	var n int64
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n
}

// Resolve dereferences obj if it is a KindRef, following the chain (object
// streams included) to a concrete object. Non-ref objects pass through
// unchanged.
func (doc *Document) Resolve(obj Object) Object {
	seen := make(map[int]bool)
	for obj.Kind == KindRef {
		if seen[obj.Ref.Num] {
			return Object{Kind: KindNull}
		}
		seen[obj.Ref.Num] = true
		obj = doc.getObject(obj.Ref.Num)
	}
	return obj
}

func (doc *Document) getObject(num int) Object {
	if o, ok := doc.cache[num]; ok {
		return o
	}
	entry, ok := doc.xref[num]
	if !ok {
		return Object{Kind: KindNull}
	}
	var obj Object
	if entry.inStream {
		obj = doc.objectFromStream(entry.streamObjNum, entry.indexInStream)
	} else {
		obj = doc.objectAtOffset(entry.offset)
	}
	doc.cache[num] = obj
	return obj
}

func (doc *Document) objectAtOffset(offset int) Object {
	if offset < 0 || offset >= len(doc.data) {
		return Object{Kind: KindNull}
	}
	p := NewParser(doc.data)
	p.Pos = offset
	p.skipWS()
	if _, err := p.ParseObject(); err != nil { // obj num
		return Object{Kind: KindNull}
	}
	if _, err := p.ParseObject(); err != nil { // gen
		return Object{Kind: KindNull}
	}
	p.skipWS()
	if !hasPrefixAt(doc.data, p.Pos, "obj") {
		return Object{Kind: KindNull}
	}
	p.Pos += len("obj")
	obj, err := p.ParseObject()
	if err != nil {
		return Object{Kind: KindNull}
	}
	return obj
}

func (doc *Document) objectFromStream(streamObjNum, index int) Object {
	streamObj := doc.getObject(streamObjNum)
	if streamObj.Kind != KindStream {
		return Object{Kind: KindNull}
	}
	decoded, err := decodeStream(streamObj)
	if err != nil {
		return Object{Kind: KindNull}
	}
	n, _ := streamObj.Dict["N"].AsInt()
	first, _ := streamObj.Dict["First"].AsInt()

	hp := NewParser(decoded)
	type pair struct{ num, off int }
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		numObj, err := hp.ParseObject()
		if err != nil {
			break
		}
		offObj, err := hp.ParseObject()
		if err != nil {
			break
		}
		num, _ := numObj.AsInt()
		off, _ := offObj.AsInt()
		pairs = append(pairs, pair{num, off})
	}
	if index < 0 || index >= len(pairs) {
		return Object{Kind: KindNull}
	}
	op := NewParser(decoded)
	op.Pos = first + pairs[index].off
	obj, err := op.ParseObject()
	if err != nil {
		return Object{Kind: KindNull}
	}
	return obj
}

// Trailer exposes the merged trailer dictionary.
func (doc *Document) Trailer() map[string]Object { return doc.trailer }
