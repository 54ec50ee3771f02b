package document

import (
	"errors"
	"testing"

	"github.com/textlayer/pdfpatch/pdftest"
)

func TestLoadBytesSinglePage(t *testing.T) {
	data := pdftest.SinglePage(pdftest.TextContent(100, 104, 20, "0123456789"))
	doc, err := LoadBytes(data, "test.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.NumPages() != 1 {
		t.Fatalf("pages = %d", doc.NumPages())
	}
	if doc.Path() != "test.pdf" {
		t.Fatalf("path = %q", doc.Path())
	}
	page, err := doc.Page(0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.MediaBox().Width() != 612 {
		t.Fatalf("media box = %+v", page.MediaBox())
	}
}

func TestLoadBytesRejectsGarbage(t *testing.T) {
	_, err := LoadBytes([]byte("garbage"), "bad.pdf")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if le.Path != "bad.pdf" {
		t.Fatalf("path = %q", le.Path)
	}
}

func TestPageIndexOutOfRange(t *testing.T) {
	data := pdftest.SinglePage("BT ET")
	doc, err := LoadBytes(data, "x.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := doc.Page(1); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("expected ErrPageIndex, got %v", err)
	}
	if _, err := doc.Page(-1); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("expected ErrPageIndex for negative index, got %v", err)
	}
}

func TestTextRunsExtractedOnceAndStable(t *testing.T) {
	data := pdftest.SinglePage(pdftest.TextContent(100, 104, 20, "0123456789"))
	doc, err := LoadBytes(data, "x.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	page, _ := doc.Page(0)
	first := page.TextRuns()
	second := page.TextRuns()
	if len(first) != 1 {
		t.Fatalf("runs = %d", len(first))
	}
	if &first[0] != &second[0] {
		t.Fatalf("extraction re-ran instead of caching")
	}
	if first[0].Text != "0123456789" {
		t.Fatalf("text = %q", first[0].Text)
	}
	if first[0].FontName != "Helvetica" {
		t.Fatalf("font = %q", first[0].FontName)
	}
}

func TestFingerprintStableAndContentSensitive(t *testing.T) {
	a := pdftest.SinglePage("BT ET")
	b := pdftest.SinglePage("BT /F1 9 Tf ET")

	doc1, err := LoadBytes(a, "a.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc2, err := LoadBytes(a, "other-name.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc3, err := LoadBytes(b, "a.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !doc1.Fingerprint().Matches(doc2.Fingerprint()) {
		t.Fatalf("same bytes should match regardless of path")
	}
	if doc1.Fingerprint().Matches(doc3.Fingerprint()) {
		t.Fatalf("different bytes should not match")
	}
}

func TestFingerprintEmptyNeverMatches(t *testing.T) {
	var empty Fingerprint
	if empty.Matches(empty) {
		t.Fatalf("zero fingerprints must not match each other")
	}
}

func TestFillsExposed(t *testing.T) {
	data := pdftest.SinglePage(pdftest.FillContent(10, 10, 50, 5, 1, 0, 0))
	doc, err := LoadBytes(data, "x.pdf")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	page, _ := doc.Page(0)
	fills := page.Fills()
	if len(fills) != 1 {
		t.Fatalf("fills = %d", len(fills))
	}
	if fills[0].Color.R != 1 {
		t.Fatalf("fill color = %+v", fills[0].Color)
	}
}
