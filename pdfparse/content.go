package pdfparse

// Matrix is a PDF 2D affine transform [a b c d e f] applied as
// [x' y' 1] = [x y 1] * [[a b 0][c d 0][e f 1]].
type Matrix [6]float64

var identityMatrix = Matrix{1, 0, 0, 1, 0, 0}

func (m Matrix) Mul(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TextRun is one Tj/TJ text-showing operator's worth of output (4.B "Text
// show").
type TextRun struct {
	Text     string
	X, Y     float64
	Quad     [4][2]float64
	FontSize float64
	Bold     bool
}

// RulingLine is a committed stroke whose bounding-box minor side is below
// 0.5 units (4.B "Path construction").
type RulingLine struct {
	X0, Y0, X1, Y1 float64
	Horizontal     bool
}

type graphicsState struct {
	ctm       Matrix
	lineWidth float64
}

type textState struct {
	tm, tlm                   Matrix
	fontName                  string
	fontSize                  float64
	charSpace, wordSpace      float64
	hScale                    float64
	leading                   float64
	renderMode                int
}

// contentMachine is 4.B's "single loop over a token stream with a value
// stack": a graphics-state stack, path accumulator and text state evaluated
// against the decoded content-stream bytes of one page.
type contentMachine struct {
	fonts map[string]Font

	gsStack []graphicsState
	gs      graphicsState

	ts textState

	pathStart  [2]float64
	pathCur    [2]float64
	pathMinX   float64
	pathMaxX   float64
	pathMinY   float64
	pathMaxY   float64
	hasPath    bool

	runs    []TextRun
	rulings []RulingLine
}

func newContentMachine(fonts map[string]Font) *contentMachine {
	return &contentMachine{
		fonts: fonts,
		gs:    graphicsState{ctm: identityMatrix, lineWidth: 1},
		ts:    textState{hScale: 1},
	}
}

// Run executes a decoded content stream, returning text runs and ruling
// lines in emission order.
func (m *contentMachine) Run(content []byte) ([]TextRun, []RulingLine) {
	p := NewParser(content)
	var operands []Object

	for !p.eof() {
		p.skipWS()
		if p.eof() {
			break
		}
		b := p.Data[p.Pos]
		if b == '/' || b == '(' || b == '[' || b == '<' || b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9') {
			obj, err := p.ParseObject()
			if err != nil {
				break
			}
			operands = append(operands, obj)
			continue
		}

		op := p.readRegularToken()
		if op == "" {
			p.Pos++
			continue
		}
		if op == "BI" {
			skipInlineImage(p)
			operands = nil
			continue
		}
		m.exec(op, operands)
		operands = nil
	}
	return m.runs, m.rulings
}

func skipInlineImage(p *Parser) {
	idx := indexFrom(p.Data, p.Pos, "EI")
	if idx < 0 {
		p.Pos = len(p.Data)
		return
	}
	p.Pos = idx + 2
}

// exec dispatches one operator. Unknown operators are skipped with operand
// discard (4.B failure semantics: "unknown operators are skipped with a
// stack reset").
func (m *contentMachine) exec(op string, args []Object) {
	switch op {
	case "q":
		m.gsStack = append(m.gsStack, m.gs)
	case "Q":
		if n := len(m.gsStack); n > 0 {
			m.gs = m.gsStack[n-1]
			m.gsStack = m.gsStack[:n-1]
		}
	case "cm":
		if nm, ok := matrixFromArgs(args); ok {
			m.gs.ctm = nm.Mul(m.gs.ctm)
		}
	case "w":
		if len(args) == 1 {
			if v, ok := args[0].AsFloat(); ok {
				m.gs.lineWidth = v
			}
		}
	case "m":
		if x, y, ok := xy(args); ok {
			m.moveTo(x, y)
		}
	case "l":
		if x, y, ok := xy(args); ok {
			m.lineTo(x, y)
		}
	case "c":
		if len(args) == 6 {
			x, _ := args[4].AsFloat()
			y, _ := args[5].AsFloat()
			m.lineTo(x, y)
		}
	case "v", "y":
		if len(args) == 4 {
			x, _ := args[2].AsFloat()
			y, _ := args[3].AsFloat()
			m.lineTo(x, y)
		}
	case "re":
		if len(args) == 4 {
			x, _ := args[0].AsFloat()
			y, _ := args[1].AsFloat()
			w, _ := args[2].AsFloat()
			h, _ := args[3].AsFloat()
			m.moveTo(x, y)
			m.lineTo(x+w, y)
			m.lineTo(x+w, y+h)
			m.lineTo(x, y+h)
			m.lineTo(x, y)
		}
	case "h":
		m.lineTo(m.pathStart[0], m.pathStart[1])
	case "S", "s":
		m.commitStroke()
		m.resetPath()
	case "f", "F", "f*", "B", "B*", "b", "b*", "n":
		m.resetPath()
	case "BT":
		m.ts.tm = identityMatrix
		m.ts.tlm = identityMatrix
	case "ET":
	case "Tf":
		if len(args) == 2 && args[0].Kind == KindName {
			m.ts.fontName = args[0].Name
			if fs, ok := args[1].AsFloat(); ok {
				m.ts.fontSize = fs
			}
		}
	case "Tc":
		if len(args) == 1 {
			m.ts.charSpace, _ = args[0].AsFloat()
		}
	case "Tw":
		if len(args) == 1 {
			m.ts.wordSpace, _ = args[0].AsFloat()
		}
	case "Tz":
		if len(args) == 1 {
			if v, ok := args[0].AsFloat(); ok {
				m.ts.hScale = v / 100
			}
		}
	case "TL":
		if len(args) == 1 {
			m.ts.leading, _ = args[0].AsFloat()
		}
	case "Tr":
		if len(args) == 1 {
			if v, ok := args[0].AsInt(); ok {
				m.ts.renderMode = v
			}
		}
	case "Td":
		if x, y, ok := xy(args); ok {
			t := Matrix{1, 0, 0, 1, x, y}.Mul(m.ts.tlm)
			m.ts.tlm = t
			m.ts.tm = t
		}
	case "TD":
		if x, y, ok := xy(args); ok {
			m.ts.leading = -y
			t := Matrix{1, 0, 0, 1, x, y}.Mul(m.ts.tlm)
			m.ts.tlm = t
			m.ts.tm = t
		}
	case "Tm":
		if nm, ok := matrixFromArgs(args); ok {
			m.ts.tlm = nm
			m.ts.tm = nm
		}
	case "T*":
		t := Matrix{1, 0, 0, 1, 0, -m.ts.leading}.Mul(m.ts.tlm)
		m.ts.tlm = t
		m.ts.tm = t
	case "Tj":
		if len(args) == 1 && args[0].Kind == KindString {
			m.showText(args[0].Str)
		}
	case "'":
		if len(args) == 1 && args[0].Kind == KindString {
			t := Matrix{1, 0, 0, 1, 0, -m.ts.leading}.Mul(m.ts.tlm)
			m.ts.tlm = t
			m.ts.tm = t
			m.showText(args[0].Str)
		}
	case "TJ":
		if len(args) == 1 && args[0].Kind == KindArray {
			for _, item := range args[0].Array {
				if item.Kind == KindString {
					m.showText(item.Str)
				} else if adj, ok := item.AsFloat(); ok {
					dx := -adj / 1000 * m.ts.fontSize * m.ts.hScale
					m.ts.tm = Matrix{1, 0, 0, 1, dx, 0}.Mul(m.ts.tm)
				}
			}
		}
	}
}

func matrixFromArgs(args []Object) (Matrix, bool) {
	if len(args) != 6 {
		return Matrix{}, false
	}
	var m Matrix
	for i := range m {
		v, ok := args[i].AsFloat()
		if !ok {
			return Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func xy(args []Object) (float64, float64, bool) {
	if len(args) != 2 {
		return 0, 0, false
	}
	x, ok1 := args[0].AsFloat()
	y, ok2 := args[1].AsFloat()
	return x, y, ok1 && ok2
}

func (m *contentMachine) moveTo(x, y float64) {
	m.pathStart = [2]float64{x, y}
	m.pathCur = [2]float64{x, y}
	m.expandPathBounds(x, y)
}

func (m *contentMachine) lineTo(x, y float64) {
	m.pathCur = [2]float64{x, y}
	m.expandPathBounds(x, y)
}

func (m *contentMachine) expandPathBounds(x, y float64) {
	dx, dy := m.gs.ctm.Apply(x, y)
	if !m.hasPath {
		m.pathMinX, m.pathMaxX = dx, dx
		m.pathMinY, m.pathMaxY = dy, dy
		m.hasPath = true
		return
	}
	m.pathMinX = minF(m.pathMinX, dx)
	m.pathMaxX = maxF(m.pathMaxX, dx)
	m.pathMinY = minF(m.pathMinY, dy)
	m.pathMaxY = maxF(m.pathMaxY, dy)
}

// commitStroke classifies the current path's device-space bounding box: a
// minor side under 0.5 units is a ruling line (4.B "Path construction").
func (m *contentMachine) commitStroke() {
	if !m.hasPath {
		return
	}
	w := m.pathMaxX - m.pathMinX
	h := m.pathMaxY - m.pathMinY
	if minF(w, h) >= 0.5 {
		return
	}
	m.rulings = append(m.rulings, RulingLine{
		X0: m.pathMinX, Y0: m.pathMinY, X1: m.pathMaxX, Y1: m.pathMaxY,
		Horizontal: w >= h,
	})
}

func (m *contentMachine) resetPath() {
	m.hasPath = false
	m.pathMinX, m.pathMaxX, m.pathMinY, m.pathMaxY = 0, 0, 0, 0
}

// showText implements Tj/TJ: decode the byte string through the active
// font's cmap, accumulate advances (4.B "Text show").
func (m *contentMachine) showText(raw []byte) {
	font, ok := m.fonts[m.ts.fontName]
	if !ok {
		font = Font{AvgWidth: defaultFontWidth}
	}
	glyphs := font.Decode(raw)
	if len(glyphs) == 0 {
		return
	}

	trm := Matrix{m.ts.fontSize * m.ts.hScale, 0, 0, m.ts.fontSize, 0, 0}.Mul(m.ts.tm).Mul(m.gs.ctm)
	x0, y0 := trm.Apply(0, 0)
	x1, y1 := trm.Apply(0, 1)

	var text string
	var totalAdvance float64
	for _, g := range glyphs {
		text += g.Text
		advance := (g.Width/1000*m.ts.fontSize + m.ts.charSpace) * m.ts.hScale
		if g.Text == " " {
			advance += m.ts.wordSpace * m.ts.hScale
		}
		totalAdvance += advance
	}
	m.ts.tm = Matrix{1, 0, 0, 1, totalAdvance, 0}.Mul(m.ts.tm)

	endTrm := Matrix{m.ts.fontSize * m.ts.hScale, 0, 0, m.ts.fontSize, 0, 0}.Mul(m.ts.tm).Mul(m.gs.ctm)
	x2, y2 := endTrm.Apply(0, 0)
	x3, y3 := endTrm.Apply(0, 1)

	m.runs = append(m.runs, TextRun{
		Text:     text,
		X:        x0,
		Y:        y0,
		Quad:     [4][2]float64{{x0, y0}, {x2, y2}, {x3, y3}, {x1, y1}},
		FontSize: m.ts.fontSize * m.gs.ctm[3],
		Bold:     font.Bold,
	})
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
