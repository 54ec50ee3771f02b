// Package pdftest builds minimal single-purpose PDF files for tests. The
// generated files use uncompressed content streams and a classic xref table
// so test failures stay readable in a hex dump.
package pdftest

import (
	"bytes"
	"fmt"
)

// SinglePage returns a one-page US Letter PDF with the given content stream.
func SinglePage(content string) []byte {
	return MultiPage([]string{content})
}

// SinglePageWithBox returns a one-page PDF with an explicit MediaBox, for
// pages whose origin is not (0,0).
func SinglePageWithBox(llx, lly, urx, ury float64, content string) []byte {
	return build([4]float64{llx, lly, urx, ury}, []string{content})
}

// MultiPage returns a PDF with one US Letter page per content stream. Every
// page shares a /F1 Helvetica font resource.
func MultiPage(contents []string) []byte {
	return build([4]float64{0, 0, 612, 792}, contents)
}

func build(box [4]float64, contents []string) []byte {
	n := len(contents)
	var buf bytes.Buffer
	offsets := make([]int, 0, 3+2*n+1)

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		num := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	// 1: catalog, 2: page tree, 3..2+n: pages, 3+n..2+2n: content streams,
	// 3+2n: font.
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids, n))

	fontObj := 3 + 2*n
	for i := 0; i < n; i++ {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [%g %g %g %g] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>",
			box[0], box[1], box[2], box[3], 3+n+i, fontObj))
	}
	for _, content := range contents {
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOff)
	return buf.Bytes()
}

// TextContent returns a content stream drawing text at a baseline position
// with the /F1 resource at the given size.
func TextContent(x, y, size float64, text string) string {
	return fmt.Sprintf("BT /F1 %g Tf %g %g Td (%s) Tj ET", size, x, y, text)
}

// FillContent returns a content stream filling an axis-aligned rectangle
// with an RGB color.
func FillContent(x, y, w, h, r, g, b float64) string {
	return fmt.Sprintf("%g %g %g rg %g %g %g %g re f", r, g, b, x, y, w, h)
}
