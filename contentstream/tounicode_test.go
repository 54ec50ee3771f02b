package contentstream

import (
	"testing"

	"github.com/textlayer/pdfpatch/parser"
)

func fontMapWithCMap(cmap string) map[string]*parser.Font {
	return map[string]*parser.Font{
		"F1": {ResourceName: "F1", BaseFont: "TestCID", ToUnicode: []byte(cmap)},
	}
}

const sampleCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0041> <D55C>
<0042> <AE00>
endbfchar
1 beginbfrange
<0061> <0063> <0031>
endbfrange
endcmap
end
end`

func TestParseToUnicodeBfchar(t *testing.T) {
	m := parseToUnicode([]byte(sampleCMap))
	if got := m.codeLen(); got != 2 {
		t.Fatalf("codeLen = %d, want 2", got)
	}
	s, ok := m.lookup([]byte{0x00, 0x41})
	if !ok || s != "한" {
		t.Fatalf("lookup <0041> = %q, %v", s, ok)
	}
	s, ok = m.lookup([]byte{0x00, 0x42})
	if !ok || s != "글" {
		t.Fatalf("lookup <0042> = %q, %v", s, ok)
	}
}

func TestParseToUnicodeBfrange(t *testing.T) {
	m := parseToUnicode([]byte(sampleCMap))
	for i, want := range []string{"1", "2", "3"} {
		s, ok := m.lookup([]byte{0x00, byte(0x61 + i)})
		if !ok || s != want {
			t.Fatalf("range code %d = %q, want %q", i, s, want)
		}
	}
}

func TestParseToUnicodeBfrangeArray(t *testing.T) {
	cmap := `1 beginbfrange
<01> <02> [<0058> <0059>]
endbfrange`
	m := parseToUnicode([]byte(cmap))
	if s, ok := m.lookup([]byte{0x01}); !ok || s != "X" {
		t.Fatalf("lookup <01> = %q, %v", s, ok)
	}
	if s, ok := m.lookup([]byte{0x02}); !ok || s != "Y" {
		t.Fatalf("lookup <02> = %q, %v", s, ok)
	}
}

func TestShowTextUsesTwoByteCodes(t *testing.T) {
	fontsMap := fontMapWithCMap(sampleCMap)
	content := "BT /F1 10 Tf 0 0 Td <00410042> Tj ET"
	page := Extract([]byte(content), fontsMap)
	if len(page.TextRuns) != 1 {
		t.Fatalf("expected 1 run, got %d", len(page.TextRuns))
	}
	if got := page.TextRuns[0].Text; got != "한글" {
		t.Fatalf("text = %q, want 한글", got)
	}
}
