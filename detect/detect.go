// Package detect maps a click position to the text run under it and infers
// the properties a patch needs to cover that run invisibly: the run's style
// and the background color behind it.
package detect

import (
	"sort"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/document"
)

// marginPt is the width of the sampling band around a run's bounding box
// used for background inference, in page units. Kept narrow so the band
// stays inside the run's immediate surroundings.
const marginPt = 2.0

// Result describes the text run found at a position, with everything needed
// to seed a replacement overlay.
type Result struct {
	// Run is the detected text run.
	Run document.TextRun
	// Index is the run's position in content-stream order.
	Index int
	// Background is the inferred color behind the run.
	Background contentstream.Color
}

// Detect finds the text run at the given page position. When bounding boxes
// overlap, the smallest-area box wins; among equal areas the run drawn last
// wins, since later content paints on top. Detection never errors: a miss is
// reported by the boolean result.
func Detect(page *document.Page, at coords.Point) (Result, bool) {
	runs := page.TextRuns()
	best := -1
	bestArea := 0.0
	for i, run := range runs {
		if !run.BBox.Contains(at) {
			continue
		}
		area := run.BBox.Area()
		if best == -1 || area <= bestArea {
			best = i
			bestArea = area
		}
	}
	if best == -1 {
		return Result{}, false
	}
	run := runs[best]
	return Result{
		Run:        run,
		Index:      best,
		Background: BackgroundColor(page, run.BBox),
	}, true
}

// BackgroundColor infers the color behind a region by sampling narrow bands
// along its four sides, where original glyph ink is unlikely to reach. Each
// filled rectangle on the page that overlaps a band votes with its overlap
// area; later fills override earlier ones where they stack, so votes are
// taken against the topmost fill per band. Pages with no covering fill read
// as white.
func BackgroundColor(page *document.Page, region coords.Rect) contentstream.Color {
	region = region.Normalized()
	bands := [4]coords.Rect{
		coords.NewRect(region.LLX-marginPt, region.LLY, region.LLX, region.URY), // left
		coords.NewRect(region.URX, region.LLY, region.URX+marginPt, region.URY), // right
		coords.NewRect(region.LLX, region.URY, region.URX, region.URY+marginPt), // top
		coords.NewRect(region.LLX, region.LLY-marginPt, region.URX, region.LLY), // bottom
	}
	fills := page.Fills()

	votes := make(map[contentstream.Color]float64)
	for _, band := range bands {
		if band.IsEmpty() {
			continue
		}
		// Later fills paint over earlier ones; walk back to front and take
		// the first fill covering the band's center as its color.
		c, covered := topFillAt(fills, band.Center())
		if !covered {
			c = contentstream.White
		}
		votes[c] += band.Area()
	}

	// Modal color by voted area. Ties break toward the lighter color, which
	// keeps the white fallback stable on half-covered regions.
	type vote struct {
		color contentstream.Color
		area  float64
	}
	ranked := make([]vote, 0, len(votes))
	for c, a := range votes {
		ranked = append(ranked, vote{c, a})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].area != ranked[j].area {
			return ranked[i].area > ranked[j].area
		}
		return luma(ranked[i].color) > luma(ranked[j].color)
	})
	if len(ranked) == 0 {
		return contentstream.White
	}
	return ranked[0].color
}

func topFillAt(fills []contentstream.RectFill, p coords.Point) (contentstream.Color, bool) {
	for i := len(fills) - 1; i >= 0; i-- {
		if fills[i].Rect.Normalized().Contains(p) {
			return fills[i].Color, true
		}
	}
	return contentstream.Color{}, false
}

func luma(c contentstream.Color) float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}
