// Package hwpspace normalizes the wide-space artifact produced by HWP
// document conversion: spaces emitted as full-width characters that render
// at roughly 1.5 times a standard space advance. Correction rewrites them as
// standard spaces and reports the width difference as a tracking adjustment,
// so the canonical character stream keeps the original visual width.
//
// The concrete rule: U+3000 (ideographic space) and U+2003 (em space) are
// wide spaces, modeled at WideRatio times the standard space advance of
// SpaceEM em. The transform is pure and idempotent.
package hwpspace

import "strings"

const (
	// WideRatio is the modeled advance of a wide space relative to U+0020.
	WideRatio = 1.5
	// SpaceEM is the modeled advance of U+0020 in em units.
	SpaceEM = 0.5
)

// Correction is the result of normalizing a text string.
type Correction struct {
	// Text is the canonical text with wide spaces replaced by U+0020.
	Text string
	// TrackingEM is the uniform extra advance to insert between glyphs, in
	// em units, so the corrected text occupies the original width. Zero when
	// nothing was replaced or the text has no inter-glyph gaps.
	TrackingEM float64
	// Replaced is the number of wide spaces that were normalized.
	Replaced int
}

func isWideSpace(r rune) bool {
	return r == '\u3000' || r == '\u2003'
}

// Correct normalizes wide spaces in text. Correct(Correct(t).Text).Text ==
// Correct(t).Text for all t, and a second pass reports zero replacements.
func Correct(text string) Correction {
	if !strings.ContainsFunc(text, isWideSpace) {
		return Correction{Text: text}
	}
	var b strings.Builder
	b.Grow(len(text))
	replaced := 0
	for _, r := range text {
		if isWideSpace(r) {
			b.WriteByte(' ')
			replaced++
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	gaps := len([]rune(out)) - 1
	tracking := 0.0
	if gaps > 0 {
		// Width lost per replacement: (WideRatio-1) * SpaceEM em.
		tracking = float64(replaced) * (WideRatio - 1) * SpaceEM / float64(gaps)
	}
	return Correction{Text: out, TrackingEM: tracking, Replaced: replaced}
}

// CorrectString returns only the canonical text.
func CorrectString(text string) string { return Correct(text).Text }
