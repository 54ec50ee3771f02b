package detect

import (
	"testing"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/pdftest"
)

func loadPage(t *testing.T, content string) *document.Page {
	t.Helper()
	doc, err := document.LoadBytes(pdftest.SinglePage(content), "test.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	return page
}

func TestDetectHitInsideRun(t *testing.T) {
	// Ten default-width glyphs at size 20 from baseline (100,104) give the
	// bounding box (100,100)-(200,120).
	page := loadPage(t, pdftest.TextContent(100, 104, 20, "0123456789"))
	res, ok := Detect(page, coords.Point{X: 150, Y: 110})
	if !ok {
		t.Fatalf("expected hit")
	}
	if res.Run.Text != "0123456789" {
		t.Fatalf("text = %q", res.Run.Text)
	}
	if res.Run.Size != 20 {
		t.Fatalf("size = %g", res.Run.Size)
	}
	if res.Index != 0 {
		t.Fatalf("index = %d", res.Index)
	}
}

func TestDetectMissOutsideRuns(t *testing.T) {
	page := loadPage(t, pdftest.TextContent(100, 104, 20, "0123456789"))
	if _, ok := Detect(page, coords.Point{X: 50, Y: 50}); ok {
		t.Fatalf("expected miss")
	}
	if _, ok := Detect(page, coords.Point{X: 150, Y: 130}); ok {
		t.Fatalf("expected miss above the run")
	}
}

func TestDetectSmallestAreaWins(t *testing.T) {
	// A large run and a small run overlapping at (150,110): the small box
	// must win the hit test.
	content := pdftest.TextContent(100, 104, 20, "0123456789") + " " +
		pdftest.TextContent(145, 108, 8, "xx")
	page := loadPage(t, content)
	res, ok := Detect(page, coords.Point{X: 148, Y: 110})
	if !ok {
		t.Fatalf("expected hit")
	}
	if res.Run.Text != "xx" {
		t.Fatalf("smallest run should win, got %q", res.Run.Text)
	}
}

func TestDetectTieBreaksTopmost(t *testing.T) {
	// Two identical boxes: the run drawn later paints on top, so it is the
	// one the user sees and clicks.
	content := pdftest.TextContent(100, 104, 20, "aaaaaaaaaa") + " " +
		pdftest.TextContent(100, 104, 20, "bbbbbbbbbb")
	page := loadPage(t, content)
	res, ok := Detect(page, coords.Point{X: 150, Y: 110})
	if !ok {
		t.Fatalf("expected hit")
	}
	if res.Index != 1 || res.Run.Text != "bbbbbbbbbb" {
		t.Fatalf("tie should keep the topmost run, got index %d (%q)", res.Index, res.Run.Text)
	}
}

func TestBackgroundDefaultsToWhite(t *testing.T) {
	page := loadPage(t, pdftest.TextContent(100, 104, 20, "0123456789"))
	bg := BackgroundColor(page, coords.NewRect(100, 100, 200, 120))
	if bg != contentstream.White {
		t.Fatalf("background = %+v, want white", bg)
	}
}

func TestBackgroundDetectsFillBehindText(t *testing.T) {
	// A yellow block covers the run and its margins; the sampled bands all
	// land inside it.
	content := pdftest.FillContent(80, 80, 160, 60, 1, 1, 0) + " " +
		pdftest.TextContent(100, 104, 20, "0123456789")
	page := loadPage(t, content)
	bg := BackgroundColor(page, coords.NewRect(100, 100, 200, 120))
	if bg != (contentstream.Color{R: 1, G: 1, B: 0}) {
		t.Fatalf("background = %+v, want yellow", bg)
	}
}

func TestBackgroundTopmostFillWins(t *testing.T) {
	// Red painted over yellow: the later fill is what a viewer shows.
	content := pdftest.FillContent(80, 80, 160, 60, 1, 1, 0) + " " +
		pdftest.FillContent(80, 80, 160, 60, 1, 0, 0)
	page := loadPage(t, content)
	bg := BackgroundColor(page, coords.NewRect(100, 100, 200, 120))
	if bg != (contentstream.Color{R: 1, G: 0, B: 0}) {
		t.Fatalf("background = %+v, want red", bg)
	}
}

func TestBackgroundInResult(t *testing.T) {
	content := pdftest.FillContent(80, 80, 160, 60, 0, 0, 1) + " " +
		pdftest.TextContent(100, 104, 20, "0123456789")
	page := loadPage(t, content)
	res, ok := Detect(page, coords.Point{X: 150, Y: 110})
	if !ok {
		t.Fatalf("expected hit")
	}
	if res.Background != (contentstream.Color{R: 0, G: 0, B: 1}) {
		t.Fatalf("background = %+v, want blue", res.Background)
	}
}

func TestDetectNeverPanicsOnEmptyPage(t *testing.T) {
	page := loadPage(t, "")
	for i := 0; i < 3; i++ {
		if _, ok := Detect(page, coords.Point{X: float64(i * 100), Y: 100}); ok {
			t.Fatalf("empty page reported a hit")
		}
	}
}
