// Package contentstream interprets decoded PDF page content and extracts
// positioned text runs and filled rectangles. Extraction is deterministic:
// runs are reported in content-stream order, and the same input always
// produces the same output.
package contentstream

import (
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/parser"
)

// Color is an RGB color with components in [0,1].
type Color struct {
	R, G, B float64
}

var (
	Black = Color{0, 0, 0}
	White = Color{1, 1, 1}
)

// TextRun is a maximal span of glyphs sharing font, size and fill color.
// Immutable once extracted; edits are overlays, never in-place mutation.
type TextRun struct {
	// BBox is the run's bounding box in page space.
	BBox coords.Rect
	// Baseline is the origin of the first glyph in page space.
	Baseline coords.Point
	// FontRes is the /Font resource name active for the run (e.g. "F1").
	FontRes string
	// FontName is the BaseFont name, when the resource declared one.
	FontName string
	// Size is the effective font size in page units after text and
	// transformation matrices are applied.
	Size float64
	// Color is the fill color of the run.
	Color Color
	// Text is the decoded Unicode text of the run.
	Text string
	// Codes holds the raw character codes in show order.
	Codes []byte
}

// RectFill is a filled rectangle drawn by the content stream, recorded for
// background color sampling behind text.
type RectFill struct {
	Rect  coords.Rect
	Color Color
}

// Page is the extraction result for one content stream.
type Page struct {
	TextRuns []TextRun
	Fills    []RectFill
}

// textState mirrors the PDF text state between BT/ET.
type textState struct {
	font      *parser.Font
	fontRes   string
	size      float64
	charSpace float64
	wordSpace float64
	hscale    float64 // Tz / 100
	leading   float64
	rise      float64
	tm        coords.Matrix
	tlm       coords.Matrix
}

// graphicsState is the subset of the PDF graphics state the extractor needs.
type graphicsState struct {
	ctm  coords.Matrix
	fill Color
}
