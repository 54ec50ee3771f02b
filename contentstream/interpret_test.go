package contentstream

import (
	"math"
	"testing"

	"github.com/textlayer/pdfpatch/coords"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func rectApprox(a, b coords.Rect) bool {
	return approx(a.LLX, b.LLX) && approx(a.LLY, b.LLY) &&
		approx(a.URX, b.URX) && approx(a.URY, b.URY)
}

func TestExtractSimpleTextRun(t *testing.T) {
	// Ten glyphs at the default 500/1000 em width and size 20 span exactly
	// 100 units; the em box puts ascent at +16 and descent at -4.
	content := "BT /F1 20 Tf 100 104 Td (0123456789) Tj ET"
	page := Extract([]byte(content), nil)
	if len(page.TextRuns) != 1 {
		t.Fatalf("expected 1 run, got %d", len(page.TextRuns))
	}
	run := page.TextRuns[0]
	if run.Text != "0123456789" {
		t.Fatalf("text = %q", run.Text)
	}
	want := coords.NewRect(100, 100, 200, 120)
	if !rectApprox(run.BBox, want) {
		t.Fatalf("bbox = %+v, want %+v", run.BBox, want)
	}
	if !approx(run.Baseline.X, 100) || !approx(run.Baseline.Y, 104) {
		t.Fatalf("baseline = %+v", run.Baseline)
	}
	if !approx(run.Size, 20) {
		t.Fatalf("size = %g", run.Size)
	}
	if run.Color != Black {
		t.Fatalf("color = %+v", run.Color)
	}
}

func TestExtractDeterministic(t *testing.T) {
	content := "BT /F1 12 Tf 72 700 Td (abc) Tj 0 -14 Td (def) Tj ET 1 0 0 rg 10 10 5 5 re f"
	a := Extract([]byte(content), nil)
	b := Extract([]byte(content), nil)
	if len(a.TextRuns) != len(b.TextRuns) {
		t.Fatalf("run counts differ: %d vs %d", len(a.TextRuns), len(b.TextRuns))
	}
	for i := range a.TextRuns {
		if a.TextRuns[i].Text != b.TextRuns[i].Text ||
			!rectApprox(a.TextRuns[i].BBox, b.TextRuns[i].BBox) {
			t.Fatalf("run %d differs between extractions", i)
		}
	}
	if len(a.Fills) != len(b.Fills) {
		t.Fatalf("fill counts differ")
	}
}

func TestExtractRunBreaksOnColorChange(t *testing.T) {
	content := "BT /F1 12 Tf 72 700 Td (red) Tj 1 0 0 rg (blue) Tj ET"
	page := Extract([]byte(content), nil)
	if len(page.TextRuns) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(page.TextRuns))
	}
	if page.TextRuns[0].Color != Black {
		t.Fatalf("first run color = %+v", page.TextRuns[0].Color)
	}
	if page.TextRuns[1].Color != (Color{1, 0, 0}) {
		t.Fatalf("second run color = %+v", page.TextRuns[1].Color)
	}
}

func TestExtractTJKerning(t *testing.T) {
	// The kern value -1000 at size 10 shifts the next glyph by +10 units.
	content := "BT /F1 10 Tf 0 0 Td [(A) -1000 (B)] TJ ET"
	page := Extract([]byte(content), nil)
	if len(page.TextRuns) != 1 {
		t.Fatalf("expected 1 run, got %d", len(page.TextRuns))
	}
	run := page.TextRuns[0]
	if run.Text != "AB" {
		t.Fatalf("text = %q", run.Text)
	}
	// A: 0..5, then kern +10 => B starts at 15, ends at 20.
	if !approx(run.BBox.URX, 20) {
		t.Fatalf("bbox URX = %g, want 20", run.BBox.URX)
	}
}

func TestExtractRectFill(t *testing.T) {
	content := "0 0.5 1 rg 100 100 100 20 re f"
	page := Extract([]byte(content), nil)
	if len(page.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(page.Fills))
	}
	fill := page.Fills[0]
	if !rectApprox(fill.Rect, coords.NewRect(100, 100, 200, 120)) {
		t.Fatalf("rect = %+v", fill.Rect)
	}
	if fill.Color != (Color{0, 0.5, 1}) {
		t.Fatalf("color = %+v", fill.Color)
	}
}

func TestExtractRectFillUnderCTM(t *testing.T) {
	content := "q 2 0 0 2 0 0 cm 0 g 10 10 20 20 re f Q"
	page := Extract([]byte(content), nil)
	if len(page.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(page.Fills))
	}
	if !rectApprox(page.Fills[0].Rect, coords.NewRect(20, 20, 60, 60)) {
		t.Fatalf("scaled rect = %+v", page.Fills[0].Rect)
	}
}

func TestExtractClippedPathNotFilled(t *testing.T) {
	content := "10 10 20 20 re n BT ET"
	page := Extract([]byte(content), nil)
	if len(page.Fills) != 0 {
		t.Fatalf("no-op path should not fill, got %d fills", len(page.Fills))
	}
}

func TestExtractGraphicsStateStack(t *testing.T) {
	content := "q 1 0 0 rg Q 0 0 10 10 re f"
	page := Extract([]byte(content), nil)
	if len(page.Fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(page.Fills))
	}
	if page.Fills[0].Color != Black {
		t.Fatalf("Q should restore fill color, got %+v", page.Fills[0].Color)
	}
}

func TestExtractCharSpacing(t *testing.T) {
	content := "BT /F1 10 Tf 2 Tc 0 0 Td (AB) Tj ET"
	page := Extract([]byte(content), nil)
	if len(page.TextRuns) != 1 {
		t.Fatalf("expected 1 run, got %d", len(page.TextRuns))
	}
	// A advances 5+2, B spans 7..12.
	if !approx(page.TextRuns[0].BBox.URX, 12) {
		t.Fatalf("URX = %g, want 12", page.TextRuns[0].BBox.URX)
	}
}

func TestExtractIgnoresMalformedTail(t *testing.T) {
	content := "BT /F1 12 Tf 0 0 Td (ok) Tj ET <<garbage"
	page := Extract([]byte(content), nil)
	if len(page.TextRuns) != 1 || page.TextRuns[0].Text != "ok" {
		t.Fatalf("runs = %+v", page.TextRuns)
	}
}

func TestCMYKConversion(t *testing.T) {
	content := "0 0 0 1 k 0 0 5 5 re f"
	page := Extract([]byte(content), nil)
	if len(page.Fills) != 1 || page.Fills[0].Color != Black {
		t.Fatalf("full K should be black, got %+v", page.Fills)
	}
}
