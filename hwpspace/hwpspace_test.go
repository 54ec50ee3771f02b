package hwpspace

import (
	"math"
	"testing"
)

func TestCorrectNoWideSpaces(t *testing.T) {
	c := Correct("plain ascii text")
	if c.Text != "plain ascii text" {
		t.Fatalf("text changed: %q", c.Text)
	}
	if c.Replaced != 0 || c.TrackingEM != 0 {
		t.Fatalf("unexpected correction: %+v", c)
	}
}

func TestCorrectReplacesIdeographicSpace(t *testing.T) {
	c := Correct("가　나")
	if c.Text != "가 나" {
		t.Fatalf("text = %q", c.Text)
	}
	if c.Replaced != 1 {
		t.Fatalf("replaced = %d", c.Replaced)
	}
	// One replacement spreads (1.5-1)*0.5 em over two gaps.
	want := 0.5 * 0.5 / 2
	if math.Abs(c.TrackingEM-want) > 1e-9 {
		t.Fatalf("tracking = %g, want %g", c.TrackingEM, want)
	}
}

func TestCorrectReplacesEmSpace(t *testing.T) {
	c := Correct("a b c")
	if c.Text != "a b c" {
		t.Fatalf("text = %q", c.Text)
	}
	if c.Replaced != 2 {
		t.Fatalf("replaced = %d", c.Replaced)
	}
}

func TestCorrectIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"unchanged",
		"가　나　다",
		" leading",
		"trailing　",
		"　",
	}
	for _, in := range inputs {
		first := Correct(in)
		second := Correct(first.Text)
		if second.Text != first.Text {
			t.Errorf("not idempotent for %q: %q -> %q", in, first.Text, second.Text)
		}
		if second.Replaced != 0 {
			t.Errorf("second pass replaced %d in %q", second.Replaced, in)
		}
		if second.TrackingEM != 0 {
			t.Errorf("second pass tracking %g in %q", second.TrackingEM, in)
		}
	}
}

func TestCorrectSingleRuneNoGaps(t *testing.T) {
	c := Correct("　")
	if c.Text != " " || c.TrackingEM != 0 {
		t.Fatalf("single wide space: %+v", c)
	}
}

func TestCorrectPreservesTotalWidth(t *testing.T) {
	// Modeled width before: n regular glyphs at their own advances plus wide
	// spaces at WideRatio*SpaceEM. After: spaces at SpaceEM plus tracking on
	// every gap. The difference must cancel.
	text := "ab　cd　ef"
	c := Correct(text)
	runes := []float64{} // advances in em, letters modeled at SpaceEM for simplicity
	for range c.Text {
		runes = append(runes, SpaceEM)
	}
	gaps := float64(len(runes) - 1)
	widthAfter := 0.0
	for _, a := range runes {
		widthAfter += a
	}
	widthAfter += gaps * c.TrackingEM
	widthBefore := 0.0
	for _, r := range text {
		if r == '　' {
			widthBefore += WideRatio * SpaceEM
		} else {
			widthBefore += SpaceEM
		}
	}
	if math.Abs(widthAfter-widthBefore) > 1e-9 {
		t.Fatalf("width drifted: before %g, after %g", widthBefore, widthAfter)
	}
}

func TestCorrectString(t *testing.T) {
	if got := CorrectString("x　y"); got != "x y" {
		t.Fatalf("CorrectString = %q", got)
	}
}
