package pdfparse

import "strconv"

// Font is a decoded font resource: enough to map content-stream byte
// strings to Unicode runs and to size a glyph run for layout.
type Font struct {
	Name       string
	Bold       bool
	FirstChar  int
	Widths     map[int]float64 // code -> width in 1/1000 em
	AvgWidth   float64
	ToUnicode  map[int]string // code (or CID) -> Unicode string
	TwoByte    bool           // Type0/CID: codes are decoded two bytes at a time
	Ascent     float64
	Descent    float64
}

const defaultFontWidth = 500.0

// decodeFont resolves a /Font resource dictionary entry into a Font.
func (doc *Document) decodeFont(fontDict Object) Font {
	f := Font{Widths: make(map[int]float64), ToUnicode: make(map[int]string), AvgWidth: defaultFontWidth}

	subtype := fontDict.Dict["Subtype"].Name
	f.TwoByte = subtype == "Type0"

	if bf, ok := fontDict.Dict["BaseFont"]; ok {
		f.Name = bf.Name
	}
	f.Bold = fontWeightIsBold(f.Name, doc.Resolve(fontDict.Dict["FontDescriptor"]))

	if f.TwoByte {
		doc.decodeType0(fontDict, &f)
	} else {
		doc.decodeSimpleFont(fontDict, &f)
	}

	if tu := doc.Resolve(fontDict.Dict["ToUnicode"]); tu.Kind == KindStream {
		if decoded, err := decodeStream(tu); err == nil {
			parseToUnicodeCMap(decoded, f.ToUnicode)
		}
	}

	if desc := doc.Resolve(fontDict.Dict["FontDescriptor"]); desc.Kind == KindDict {
		if a, ok := desc.Dict["Ascent"].AsFloat(); ok {
			f.Ascent = a
		}
		if d, ok := desc.Dict["Descent"].AsFloat(); ok {
			f.Descent = d
		}
		if aw, ok := desc.Dict["AvgWidth"].AsFloat(); ok && aw > 0 {
			f.AvgWidth = aw
		}
	}
	return f
}

func fontWeightIsBold(name string, descriptor Object) bool {
	if descriptor.Kind == KindDict {
		if w, ok := descriptor.Dict["StemV"].AsFloat(); ok && w >= 120 {
			return true
		}
		if flags, ok := descriptor.Dict["Flags"].AsInt(); ok && flags&(1<<18) != 0 {
			return true
		}
	}
	return containsFold(name, "Bold") || containsFold(name, "bold")
}

func containsFold(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// decodeSimpleFont handles Type1/TrueType fonts: a byte-wide encoding
// (WinAnsi/MacRoman plus per-font /Differences) and a /Widths array indexed
// from /FirstChar.
func (doc *Document) decodeSimpleFont(fontDict Object, f *Font) {
	base := winAnsiEncoding
	enc := doc.Resolve(fontDict.Dict["Encoding"])
	if enc.Kind == KindName && enc.Name == "MacRomanEncoding" {
		base = macRomanEncoding
	}
	if enc.Kind == KindDict {
		if bn, ok := enc.Dict["BaseEncoding"]; ok && bn.Name == "MacRomanEncoding" {
			base = macRomanEncoding
		}
	}
	for code, r := range base {
		f.ToUnicode[code] = string(r)
	}
	if enc.Kind == KindDict {
		if diffs := doc.Resolve(enc.Dict["Differences"]); diffs.Kind == KindArray {
			applyDifferences(diffs, f.ToUnicode)
		}
	}

	if fc, ok := fontDict.Dict["FirstChar"].AsInt(); ok {
		f.FirstChar = fc
	}
	if widths := doc.Resolve(fontDict.Dict["Widths"]); widths.Kind == KindArray {
		for i, w := range widths.Array {
			if wf, ok := w.AsFloat(); ok {
				f.Widths[f.FirstChar+i] = wf
			}
		}
	}
}

func applyDifferences(diffs Object, toUnicode map[int]string) {
	code := 0
	for _, item := range diffs.Array {
		switch item.Kind {
		case KindInt:
			code = int(item.Int)
		case KindName:
			if r, ok := glyphNameToRune(item.Name); ok {
				toUnicode[code] = string(r)
			}
			code++
		}
	}
}

// decodeType0 handles composite (CID-keyed) fonts: widths come from the
// descendant font's /W array (default width /DW otherwise); glyph-to-
// unicode mapping comes exclusively from /ToUnicode (parsed by the caller).
func (doc *Document) decodeType0(fontDict Object, f *Font) {
	descendants := doc.Resolve(fontDict.Dict["DescendantFonts"])
	if descendants.Kind != KindArray || len(descendants.Array) == 0 {
		f.AvgWidth = defaultFontWidth
		return
	}
	cidFont := doc.Resolve(descendants.Array[0])
	if dw, ok := cidFont.Dict["DW"].AsFloat(); ok {
		f.AvgWidth = dw
	} else {
		f.AvgWidth = 1000
	}
	wArr := doc.Resolve(cidFont.Dict["W"])
	if wArr.Kind != KindArray {
		return
	}
	i := 0
	for i < len(wArr.Array) {
		start, ok := wArr.Array[i].AsInt()
		if !ok || i+1 >= len(wArr.Array) {
			break
		}
		i++
		if wArr.Array[i].Kind == KindArray {
			for j, wObj := range wArr.Array[i].Array {
				if wf, ok := wObj.AsFloat(); ok {
					f.Widths[start+j] = wf
				}
			}
			i++
		} else {
			end, _ := wArr.Array[i].AsInt()
			i++
			if i >= len(wArr.Array) {
				break
			}
			wf, _ := wArr.Array[i].AsFloat()
			i++
			for c := start; c <= end; c++ {
				f.Widths[c] = wf
			}
		}
	}
}

// WidthOf returns the glyph width (1/1000 em) for a decoded code, falling
// back to the font's average width.
func (f Font) WidthOf(code int) float64 {
	if w, ok := f.Widths[code]; ok {
		return w
	}
	return f.AvgWidth
}

// Decode splits a content-stream string operand into per-glyph codes
// (one or two bytes, per f.TwoByte) and their Unicode text.
func (f Font) Decode(s []byte) []DecodedGlyph {
	var out []DecodedGlyph
	step := 1
	if f.TwoByte {
		step = 2
	}
	for i := 0; i+step <= len(s); i += step {
		var code int
		if step == 2 {
			code = int(s[i])<<8 | int(s[i+1])
		} else {
			code = int(s[i])
		}
		text, ok := f.ToUnicode[code]
		if !ok {
			if step == 1 {
				text = string(rune(code))
			} else {
				text = " " // Type3/unmapped CID: placeholder per 4.B failure semantics
			}
		}
		out = append(out, DecodedGlyph{Code: code, Text: text, Width: f.WidthOf(code)})
	}
	return out
}

// DecodedGlyph is one font.Decode result: its code point, Unicode text and
// advance width (1/1000 em).
type DecodedGlyph struct {
	Code  int
	Text  string
	Width float64
}

// parseToUnicodeCMap extracts bfchar/bfrange mappings from a /ToUnicode CMap
// stream (4.B "Font decoding"). Code-space ranges are not separately
// validated — bfchar/bfrange entries are self-describing in byte width.
func parseToUnicodeCMap(data []byte, out map[int]string) {
	p := NewParser(data)
	for !p.eof() {
		if hasPrefixAt(p.Data, p.Pos, "beginbfchar") {
			p.Pos += len("beginbfchar")
			parseBfChar(p, out)
			continue
		}
		if hasPrefixAt(p.Data, p.Pos, "beginbfrange") {
			p.Pos += len("beginbfrange")
			parseBfRange(p, out)
			continue
		}
		p.Pos++
	}
}

func parseBfChar(p *Parser, out map[int]string) {
	for {
		p.skipWS()
		if hasPrefixAt(p.Data, p.Pos, "endbfchar") {
			p.Pos += len("endbfchar")
			return
		}
		src, err := p.ParseObject()
		if err != nil || src.Kind != KindString {
			return
		}
		dst, err := p.ParseObject()
		if err != nil {
			return
		}
		out[bytesToCode(src.Str)] = cmapDestToText(dst)
	}
}

func parseBfRange(p *Parser, out map[int]string) {
	for {
		p.skipWS()
		if hasPrefixAt(p.Data, p.Pos, "endbfrange") {
			p.Pos += len("endbfrange")
			return
		}
		lo, err := p.ParseObject()
		if err != nil || lo.Kind != KindString {
			return
		}
		hi, err := p.ParseObject()
		if err != nil || hi.Kind != KindString {
			return
		}
		p.skipWS()
		loCode := bytesToCode(lo.Str)
		hiCode := bytesToCode(hi.Str)
		if !p.eof() && p.Data[p.Pos] == '[' {
			arr, err := p.parseArray()
			if err != nil {
				return
			}
			for i, item := range arr.Array {
				out[loCode+i] = cmapDestToText(item)
			}
			continue
		}
		dst, err := p.ParseObject()
		if err != nil {
			return
		}
		base := bytesToCode(dst.Str)
		for c := loCode; c <= hiCode; c++ {
			out[c] = string(rune(base + (c - loCode)))
		}
	}
}

func cmapDestToText(dst Object) string {
	if dst.Kind != KindString {
		return ""
	}
	return string(rune(bytesToCode(dst.Str)))
}

func bytesToCode(b []byte) int {
	n := 0
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n
}

func glyphNameToRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if n, err := strconv.Atoi(name); err == nil {
		return rune(n), true
	}
	return 0, false
}
