package contentstream

import (
	"math"

	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/parser"
)

// Glyph boxes are approximated from the em square when the font program is
// not consulted: ascent 0.8 em, descent 0.2 em.
const (
	emAscent  = 0.8
	emDescent = 0.2
)

// defaultGlyphWidth is used when a font declares no width for a code,
// in 1/1000 em.
const defaultGlyphWidth = 500.0

// Extract interprets one page's decoded content and returns its text runs
// and filled rectangles in content-stream order.
func Extract(data []byte, fonts map[string]*parser.Font) *Page {
	in := &interpreter{
		fonts:    fonts,
		decoders: make(map[string]*toUnicodeMap),
		gs:       graphicsState{ctm: coords.Identity(), fill: Black},
		page:     &Page{},
	}
	in.run(data)
	in.flushRun()
	return in.page
}

type interpreter struct {
	fonts    map[string]*parser.Font
	decoders map[string]*toUnicodeMap
	page     *Page

	gs      graphicsState
	gsStack []graphicsState
	ts      textState

	// current path rectangles accumulated by re, consumed by paint operators
	pathRects []coords.Rect

	cur *TextRun
}

func (in *interpreter) run(data []byte) {
	tk := parser.NewContentTokenizer(data)
	var operands []parser.Object
	for {
		tok, err := tk.Next()
		if err != nil {
			return
		}
		if !tok.IsOperator() {
			operands = append(operands, tok.Operand)
			continue
		}
		in.apply(tok.Operator, operands)
		operands = operands[:0]
	}
}

func (in *interpreter) apply(op string, operands []parser.Object) {
	switch op {
	case "q":
		in.gsStack = append(in.gsStack, in.gs)
	case "Q":
		if n := len(in.gsStack); n > 0 {
			in.gs = in.gsStack[n-1]
			in.gsStack = in.gsStack[:n-1]
		}
	case "cm":
		if m, ok := matrixOperands(operands); ok {
			in.gs.ctm = m.Multiply(in.gs.ctm)
		}

	case "BT":
		in.flushRun()
		in.ts.tm = coords.Identity()
		in.ts.tlm = coords.Identity()
		if in.ts.hscale == 0 {
			in.ts.hscale = 1
		}
	case "ET":
		in.flushRun()
	case "Tf":
		in.flushRun()
		if len(operands) >= 2 {
			if name, ok := operands[len(operands)-2].(parser.Name); ok {
				in.ts.fontRes = string(name)
				in.ts.font = in.fonts[string(name)]
			}
			if size, ok := parser.Number(operands[len(operands)-1]); ok {
				in.ts.size = size
			}
		}
	case "Td":
		in.flushRun()
		if tx, ty, ok := twoNumbers(operands); ok {
			in.ts.tlm = coords.Translate(tx, ty).Multiply(in.ts.tlm)
			in.ts.tm = in.ts.tlm
		}
	case "TD":
		in.flushRun()
		if tx, ty, ok := twoNumbers(operands); ok {
			in.ts.leading = -ty
			in.ts.tlm = coords.Translate(tx, ty).Multiply(in.ts.tlm)
			in.ts.tm = in.ts.tlm
		}
	case "Tm":
		in.flushRun()
		if m, ok := matrixOperands(operands); ok {
			in.ts.tm = m
			in.ts.tlm = m
		}
	case "T*":
		in.flushRun()
		in.nextLine()
	case "TL":
		if v, ok := lastNumber(operands); ok {
			in.ts.leading = v
		}
	case "Tc":
		if v, ok := lastNumber(operands); ok {
			in.ts.charSpace = v
		}
	case "Tw":
		if v, ok := lastNumber(operands); ok {
			in.ts.wordSpace = v
		}
	case "Tz":
		if v, ok := lastNumber(operands); ok {
			in.ts.hscale = v / 100
		}
	case "Ts":
		if v, ok := lastNumber(operands); ok {
			in.ts.rise = v
		}

	case "Tj":
		if len(operands) >= 1 {
			if s, ok := operands[len(operands)-1].(parser.String); ok {
				in.showText([]byte(s))
			}
		}
	case "'":
		in.flushRun()
		in.nextLine()
		if len(operands) >= 1 {
			if s, ok := operands[len(operands)-1].(parser.String); ok {
				in.showText([]byte(s))
			}
		}
	case "\"":
		in.flushRun()
		if len(operands) >= 3 {
			if aw, ok := parser.Number(operands[len(operands)-3]); ok {
				in.ts.wordSpace = aw
			}
			if ac, ok := parser.Number(operands[len(operands)-2]); ok {
				in.ts.charSpace = ac
			}
			in.nextLine()
			if s, ok := operands[len(operands)-1].(parser.String); ok {
				in.showText([]byte(s))
			}
		}
	case "TJ":
		if len(operands) >= 1 {
			arr, _ := operands[len(operands)-1].(parser.Array)
			for _, item := range arr {
				switch v := item.(type) {
				case parser.String:
					in.showText([]byte(v))
				case parser.Integer, parser.Real:
					n, _ := parser.Number(v)
					tx := -n / 1000 * in.ts.size * in.ts.hscale
					in.ts.tm = coords.Translate(tx, 0).Multiply(in.ts.tm)
				}
			}
		}

	case "rg":
		if r, g, b, ok := threeNumbers(operands); ok {
			in.gs.fill = Color{r, g, b}
		}
	case "g":
		if v, ok := lastNumber(operands); ok {
			in.gs.fill = Color{v, v, v}
		}
	case "k":
		if len(operands) >= 4 {
			var vals [4]float64
			ok := true
			for i := 0; i < 4; i++ {
				v, o := parser.Number(operands[len(operands)-4+i])
				if !o {
					ok = false
					break
				}
				vals[i] = v
			}
			if ok {
				in.gs.fill = cmykToRGB(vals[0], vals[1], vals[2], vals[3])
			}
		}
	case "sc", "scn":
		if r, g, b, ok := threeNumbers(operands); ok {
			in.gs.fill = Color{r, g, b}
		} else if v, ok := lastNumber(operands); ok && len(operands) == 1 {
			in.gs.fill = Color{v, v, v}
		}

	case "re":
		if len(operands) >= 4 {
			var vals [4]float64
			ok := true
			for i := 0; i < 4; i++ {
				v, o := parser.Number(operands[len(operands)-4+i])
				if !o {
					ok = false
					break
				}
				vals[i] = v
			}
			if ok {
				r := coords.NewRect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3])
				in.pathRects = append(in.pathRects, in.gs.ctm.TransformRect(r))
			}
		}
	case "f", "F", "f*", "B", "B*", "b", "b*":
		for _, r := range in.pathRects {
			in.page.Fills = append(in.page.Fills, RectFill{Rect: r, Color: in.gs.fill})
		}
		in.pathRects = in.pathRects[:0]
	case "n", "S", "s":
		in.pathRects = in.pathRects[:0]
	}
}

func (in *interpreter) nextLine() {
	in.ts.tlm = coords.Translate(0, -in.ts.leading).Multiply(in.ts.tlm)
	in.ts.tm = in.ts.tlm
}

// showText positions each character code of s and accumulates it into the
// current run, starting a new run when style or position breaks continuity.
func (in *interpreter) showText(s []byte) {
	dec := in.decoderFor(in.ts.fontRes)
	codeLen := 1
	if dec != nil && dec.codeLen() > 1 {
		codeLen = dec.codeLen()
	}
	for i := 0; i < len(s); i += codeLen {
		end := i + codeLen
		if end > len(s) {
			end = len(s)
		}
		code := s[i:end]
		in.showGlyph(code, dec)
	}
}

func (in *interpreter) showGlyph(code []byte, dec *toUnicodeMap) {
	trm := in.ts.tm.Multiply(in.gs.ctm)
	origin := trm.Transform(coords.Point{X: 0, Y: in.ts.rise})

	w0 := in.glyphWidth(code) / 1000
	// Glyph box in text space, transformed to page space.
	box := coords.Rect{
		LLX: 0,
		LLY: in.ts.rise - emDescent*in.ts.size,
		URX: w0 * in.ts.size * in.ts.hscale,
		URY: in.ts.rise + emAscent*in.ts.size,
	}
	pageBox := trm.TransformRect(box)

	scaleY := math.Hypot(trm[2], trm[3])
	effSize := in.ts.size * scaleY

	text := decodeCode(code, dec)

	if in.cur != nil && !in.sameStyle(effSize) {
		in.flushRun()
	}
	if in.cur == nil {
		font := in.ts.font
		fontName := ""
		if font != nil {
			fontName = font.BaseFont
		}
		in.cur = &TextRun{
			Baseline: origin,
			FontRes:  in.ts.fontRes,
			FontName: fontName,
			Size:     effSize,
			Color:    in.gs.fill,
			BBox:     pageBox,
		}
	} else {
		in.cur.BBox = in.cur.BBox.Union(pageBox)
	}
	in.cur.Text += text
	in.cur.Codes = append(in.cur.Codes, code...)

	// Advance the text matrix past the glyph.
	adv := w0*in.ts.size + in.ts.charSpace
	if len(code) == 1 && code[0] == ' ' {
		adv += in.ts.wordSpace
	}
	tx := adv * in.ts.hscale
	in.ts.tm = coords.Translate(tx, 0).Multiply(in.ts.tm)
}

func (in *interpreter) sameStyle(effSize float64) bool {
	return in.cur != nil &&
		in.cur.FontRes == in.ts.fontRes &&
		math.Abs(in.cur.Size-effSize) < 0.01 &&
		in.cur.Color == in.gs.fill
}

func (in *interpreter) flushRun() {
	if in.cur == nil {
		return
	}
	if in.cur.Text != "" {
		in.page.TextRuns = append(in.page.TextRuns, *in.cur)
	}
	in.cur = nil
}

func (in *interpreter) glyphWidth(code []byte) float64 {
	font := in.ts.font
	if font == nil || len(font.Widths) == 0 || len(code) != 1 {
		return defaultGlyphWidth
	}
	idx := int(code[0]) - font.FirstChar
	if idx < 0 || idx >= len(font.Widths) {
		return defaultGlyphWidth
	}
	w := font.Widths[idx]
	if w <= 0 {
		return defaultGlyphWidth
	}
	return w
}

func (in *interpreter) decoderFor(res string) *toUnicodeMap {
	if res == "" {
		return nil
	}
	if dec, ok := in.decoders[res]; ok {
		return dec
	}
	var dec *toUnicodeMap
	if font := in.fonts[res]; font != nil && len(font.ToUnicode) > 0 {
		dec = parseToUnicode(font.ToUnicode)
	}
	in.decoders[res] = dec
	return dec
}

func decodeCode(code []byte, dec *toUnicodeMap) string {
	if dec != nil {
		if s, ok := dec.lookup(code); ok {
			return s
		}
	}
	// Latin-1 approximation for simple fonts without a ToUnicode map.
	out := make([]rune, len(code))
	for i, b := range code {
		out[i] = rune(b)
	}
	return string(out)
}

func cmykToRGB(c, m, y, k float64) Color {
	return Color{
		R: (1 - c) * (1 - k),
		G: (1 - m) * (1 - k),
		B: (1 - y) * (1 - k),
	}
}

func matrixOperands(operands []parser.Object) (coords.Matrix, bool) {
	if len(operands) < 6 {
		return coords.Matrix{}, false
	}
	var m coords.Matrix
	for i := 0; i < 6; i++ {
		v, ok := parser.Number(operands[len(operands)-6+i])
		if !ok {
			return coords.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func twoNumbers(operands []parser.Object) (float64, float64, bool) {
	if len(operands) < 2 {
		return 0, 0, false
	}
	a, ok1 := parser.Number(operands[len(operands)-2])
	b, ok2 := parser.Number(operands[len(operands)-1])
	return a, b, ok1 && ok2
}

func threeNumbers(operands []parser.Object) (float64, float64, float64, bool) {
	if len(operands) < 3 {
		return 0, 0, 0, false
	}
	a, ok1 := parser.Number(operands[len(operands)-3])
	b, ok2 := parser.Number(operands[len(operands)-2])
	c, ok3 := parser.Number(operands[len(operands)-1])
	return a, b, c, ok1 && ok2 && ok3
}

func lastNumber(operands []parser.Object) (float64, bool) {
	if len(operands) == 0 {
		return 0, false
	}
	return parser.Number(operands[len(operands)-1])
}
