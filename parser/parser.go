// Package parser implements a read-only loader for classic PDF files: xref
// tables, indirect objects and decoded stream payloads. It exposes just
// enough structure for text-run extraction and patching; it never writes.
package parser

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/observability"
)

// File is a parsed PDF file open for reading.
type File struct {
	data    []byte
	xref    map[int]int64 // object number -> byte offset
	trailer Dict
	pages   []Dict
	cache   map[Ref]Object
	log     observability.Logger
}

// Option configures parsing.
type Option func(*File)

// WithLogger attaches a logger to the parse.
func WithLogger(l observability.Logger) Option {
	return func(f *File) {
		if l != nil {
			f.log = l
		}
	}
}

// Parse reads a complete PDF file image. A damaged or missing xref table is
// repaired by scanning the body for indirect objects.
func Parse(data []byte, opts ...Option) (*File, error) {
	f := &File{
		data:  data,
		xref:  make(map[int]int64),
		cache: make(map[Ref]Object),
		log:   observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if len(data) < 8 || !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("missing %PDF header")
	}
	if err := f.readXref(); err != nil {
		f.log.Warn("xref unreadable, scanning objects", observability.Error("cause", err))
		f.xref = make(map[int]int64)
		if err := f.scanObjects(); err != nil {
			return nil, err
		}
	}
	if err := f.readPages(); err != nil {
		return nil, err
	}
	f.log.Debug("parsed document",
		observability.Int("objects", len(f.xref)),
		observability.Int("pages", len(f.pages)))
	return f, nil
}

// NumPages returns the page count in document order.
func (f *File) NumPages() int { return len(f.pages) }

// PageDict returns the raw page dictionary for 0-indexed page i.
func (f *File) PageDict(i int) (Dict, error) {
	if i < 0 || i >= len(f.pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, len(f.pages))
	}
	return f.pages[i], nil
}

// MediaBox returns the media box for page i, inherited where necessary.
// Defaults to US Letter when absent, matching common viewer behavior.
func (f *File) MediaBox(i int) (coords.Rect, error) {
	page, err := f.PageDict(i)
	if err != nil {
		return coords.Rect{}, err
	}
	if arr, ok := f.Resolve(page["MediaBox"]).(Array); ok && len(arr) == 4 {
		vals := make([]float64, 4)
		for j, o := range arr {
			vals[j], _ = Number(f.Resolve(o))
		}
		return coords.NewRect(vals[0], vals[1], vals[2], vals[3]), nil
	}
	return coords.NewRect(0, 0, 612, 792), nil
}

// Contents returns the decoded, concatenated content streams for page i.
func (f *File) Contents(i int) ([]byte, error) {
	page, err := f.PageDict(i)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	var walk func(obj Object)
	walk = func(obj Object) {
		switch v := f.Resolve(obj).(type) {
		case Array:
			for _, item := range v {
				walk(item)
			}
		case *Stream:
			data, err := f.DecodeStream(v)
			if err != nil {
				f.log.Warn("content stream undecodable", observability.Error("cause", err))
				return
			}
			out.Write(data)
			out.WriteByte('\n')
		}
	}
	walk(page["Contents"])
	return out.Bytes(), nil
}

// Font describes one entry of a page's /Font resource dictionary.
type Font struct {
	ResourceName string // key in the resource dictionary, e.g. "F1"
	BaseFont     string
	Subtype      string
	FirstChar    int
	Widths       []float64 // glyph widths in 1/1000 em, indexed from FirstChar
	FontFile     []byte    // embedded font program, when present
	ToUnicode    []byte    // decoded ToUnicode CMap stream, when present
}

// Fonts returns the font resources declared by page i, keyed by resource name.
func (f *File) Fonts(i int) (map[string]*Font, error) {
	page, err := f.PageDict(i)
	if err != nil {
		return nil, err
	}
	res, _ := f.Resolve(page["Resources"]).(Dict)
	if res == nil {
		return nil, nil
	}
	fontsDict, _ := f.Resolve(res["Font"]).(Dict)
	if fontsDict == nil {
		return nil, nil
	}
	out := make(map[string]*Font, len(fontsDict))
	for name, obj := range fontsDict {
		dict, _ := f.Resolve(obj).(Dict)
		if dict == nil {
			continue
		}
		fn := &Font{ResourceName: string(name)}
		if bf, ok := f.Resolve(dict["BaseFont"]).(Name); ok {
			fn.BaseFont = string(bf)
		}
		if st, ok := f.Resolve(dict["Subtype"]).(Name); ok {
			fn.Subtype = string(st)
		}
		if fc, ok := Int(f.Resolve(dict["FirstChar"])); ok {
			fn.FirstChar = fc
		}
		if arr, ok := f.Resolve(dict["Widths"]).(Array); ok {
			fn.Widths = make([]float64, len(arr))
			for j, w := range arr {
				fn.Widths[j], _ = Number(f.Resolve(w))
			}
		}
		if desc, ok := f.Resolve(dict["FontDescriptor"]).(Dict); ok {
			for _, key := range []Name{"FontFile2", "FontFile3", "FontFile"} {
				if st, ok := f.Resolve(desc[key]).(*Stream); ok {
					if data, err := f.DecodeStream(st); err == nil {
						fn.FontFile = data
						break
					}
				}
			}
		}
		if st, ok := f.Resolve(dict["ToUnicode"]).(*Stream); ok {
			if data, err := f.DecodeStream(st); err == nil {
				fn.ToUnicode = data
			}
		}
		out[string(name)] = fn
	}
	return out, nil
}

// Resolve follows indirect references until a direct object is reached.
func (f *File) Resolve(obj Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		next, err := f.object(ref)
		if err != nil {
			return Null{}
		}
		obj = next
	}
	return Null{}
}

func (f *File) object(ref Ref) (Object, error) {
	if obj, ok := f.cache[ref]; ok {
		return obj, nil
	}
	off, ok := f.xref[ref.Num]
	if !ok {
		return nil, fmt.Errorf("object %v not in xref", ref)
	}
	obj, err := f.parseIndirectAt(off)
	if err != nil {
		return nil, err
	}
	f.cache[ref] = obj
	return obj, nil
}

// parseIndirectAt parses "N G obj ... endobj" at a byte offset.
func (f *File) parseIndirectAt(off int64) (Object, error) {
	if off < 0 || off >= int64(len(f.data)) {
		return nil, fmt.Errorf("offset %d out of file", off)
	}
	lx := &lexer{data: f.data, pos: int(off)}
	lx.skipSpace()
	if _, err := strconv.Atoi(lx.keyword()); err != nil {
		return nil, fmt.Errorf("malformed object header at %d", off)
	}
	lx.skipSpace()
	if _, err := strconv.Atoi(lx.keyword()); err != nil {
		return nil, fmt.Errorf("malformed object header at %d", off)
	}
	lx.skipSpace()
	if kw := lx.keyword(); kw != "obj" {
		return nil, fmt.Errorf("expected obj keyword at %d, got %q", off, kw)
	}
	obj, err := lx.object()
	if err != nil {
		return nil, err
	}
	if st, ok := obj.(*Stream); ok {
		length, _ := Int(f.Resolve(st.Dict["Length"]))
		start := lx.streamStart
		end := start + length
		if length <= 0 || end > len(f.data) {
			// Broken /Length: search for endstream.
			idx := bytes.Index(f.data[start:], []byte("endstream"))
			if idx < 0 {
				return nil, errors.New("unterminated stream")
			}
			end = start + idx
		}
		st.Raw = f.data[start:end]
	}
	return obj, nil
}

// DecodeStream applies the stream's filter chain and returns the payload.
// Supported filters: FlateDecode, ASCIIHexDecode, ASCII85Decode.
func (f *File) DecodeStream(st *Stream) ([]byte, error) {
	data := st.Raw
	var filters []Name
	switch v := f.Resolve(st.Dict["Filter"]).(type) {
	case Name:
		filters = []Name{v}
	case Array:
		for _, item := range v {
			if n, ok := f.Resolve(item).(Name); ok {
				filters = append(filters, n)
			}
		}
	}
	for _, filter := range filters {
		var err error
		switch filter {
		case "FlateDecode":
			data, err = flateDecode(data)
		case "ASCIIHexDecode":
			data, err = asciiHexDecode(data)
		case "ASCII85Decode":
			data, err = ascii85Decode(data)
		default:
			return nil, fmt.Errorf("unsupported filter %s", filter)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filter, err)
		}
	}
	return data, nil
}

func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return out, nil
}

func asciiHexDecode(data []byte) ([]byte, error) {
	var out []byte
	hi := -1
	for _, c := range data {
		if c == '>' {
			break
		}
		v := fromHex(c)
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4))
	}
	return out, nil
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if idx := bytes.Index(data, []byte("~>")); idx >= 0 {
		data = data[:idx]
	}
	dec := ascii85.NewDecoder(bytes.NewReader(data))
	return io.ReadAll(dec)
}

// readXref locates startxref and walks the xref table chain through /Prev.
func (f *File) readXref() error {
	tailStart := len(f.data) - 1024
	if tailStart < 0 {
		tailStart = 0
	}
	tail := f.data[tailStart:]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return errors.New("startxref not found")
	}
	lx := &lexer{data: tail, pos: idx + len("startxref")}
	lx.skipSpace()
	off, err := strconv.ParseInt(lx.keyword(), 10, 64)
	if err != nil {
		return fmt.Errorf("malformed startxref: %w", err)
	}
	seen := make(map[int64]bool)
	for off > 0 && !seen[off] {
		seen[off] = true
		trailer, prev, err := f.readXrefSection(off)
		if err != nil {
			return err
		}
		if f.trailer == nil {
			f.trailer = trailer
		} else {
			for k, v := range trailer {
				if _, ok := f.trailer[k]; !ok {
					f.trailer[k] = v
				}
			}
		}
		off = prev
	}
	if f.trailer == nil {
		return errors.New("no trailer")
	}
	return nil
}

func (f *File) readXrefSection(off int64) (trailer Dict, prev int64, err error) {
	if off < 0 || off >= int64(len(f.data)) {
		return nil, 0, fmt.Errorf("xref offset %d out of file", off)
	}
	lx := &lexer{data: f.data, pos: int(off)}
	lx.skipSpace()
	if kw := lx.keyword(); kw != "xref" {
		// Cross-reference streams (PDF 1.5+) are not parsed here; the caller
		// falls back to the object scan instead.
		return nil, 0, fmt.Errorf("expected xref keyword at %d, got %q", off, kw)
	}
	for {
		lx.skipSpace()
		if lx.keywordAt("trailer") {
			lx.keyword()
			obj, err := lx.object()
			if err != nil {
				return nil, 0, err
			}
			trailer, _ := obj.(Dict)
			if trailer == nil {
				return nil, 0, errors.New("trailer is not a dictionary")
			}
			prev := int64(0)
			if p, ok := Int(trailer["Prev"]); ok {
				prev = int64(p)
			}
			return trailer, prev, nil
		}
		start, err := strconv.Atoi(lx.keyword())
		if err != nil {
			return nil, 0, fmt.Errorf("malformed xref subsection at %d", lx.pos)
		}
		lx.skipSpace()
		count, err := strconv.Atoi(lx.keyword())
		if err != nil {
			return nil, 0, fmt.Errorf("malformed xref subsection at %d", lx.pos)
		}
		for i := 0; i < count; i++ {
			lx.skipSpace()
			offTok := lx.keyword()
			lx.skipSpace()
			lx.keyword() // generation
			lx.skipSpace()
			kind := lx.keyword()
			if kind != "n" {
				continue
			}
			objOff, err := strconv.ParseInt(offTok, 10, 64)
			if err != nil {
				continue
			}
			num := start + i
			// The newest table in the chain is read first and wins.
			if _, ok := f.xref[num]; !ok {
				f.xref[num] = objOff
			}
		}
	}
}

var objHeaderRE = regexp.MustCompile(`(?m)(^|[\r\n])\s*(\d+)\s+(\d+)\s+obj\b`)

// scanObjects rebuilds the xref by scanning the body for "N G obj" headers
// and the trailer by taking the last trailer dictionary in the file. This is
// the recovery path for truncated or inconsistent files.
func (f *File) scanObjects() error {
	matches := objHeaderRE.FindAllSubmatchIndex(f.data, -1)
	if len(matches) == 0 {
		return errors.New("no indirect objects found")
	}
	for _, m := range matches {
		num, err := strconv.Atoi(string(f.data[m[4]:m[5]]))
		if err != nil {
			continue
		}
		// Later definitions win: incremental updates append.
		f.xref[num] = int64(m[4])
	}
	idx := bytes.LastIndex(f.data, []byte("trailer"))
	if idx >= 0 {
		lx := &lexer{data: f.data, pos: idx + len("trailer")}
		if obj, err := lx.object(); err == nil {
			if d, ok := obj.(Dict); ok {
				f.trailer = d
			}
		}
	}
	if f.trailer == nil {
		// No trailer: find the catalog by inspecting object types.
		for num := range f.xref {
			obj, err := f.object(Ref{Num: num})
			if err != nil {
				continue
			}
			if d, ok := obj.(Dict); ok {
				if t, ok := d["Type"].(Name); ok && t == "Catalog" {
					f.trailer = Dict{"Root": Ref{Num: num}}
					break
				}
			}
		}
	}
	if f.trailer == nil {
		return errors.New("no trailer or catalog found")
	}
	return nil
}

// readPages flattens the page tree into document order, carrying inherited
// attributes down to the leaves.
func (f *File) readPages() error {
	root, _ := f.Resolve(f.trailer["Root"]).(Dict)
	if root == nil {
		return errors.New("document catalog missing")
	}
	pagesObj := f.Resolve(root["Pages"])
	inherited := []Name{"Resources", "MediaBox", "CropBox", "Rotate"}
	var walk func(obj Object, inh Dict, depth int)
	walk = func(obj Object, inh Dict, depth int) {
		if depth > 64 {
			return
		}
		node, _ := f.Resolve(obj).(Dict)
		if node == nil {
			return
		}
		merged := Dict{}
		for k, v := range inh {
			merged[k] = v
		}
		for _, k := range inherited {
			if v, ok := node[k]; ok {
				merged[k] = v
			}
		}
		t, _ := node["Type"].(Name)
		if t == "Page" {
			page := Dict{}
			for k, v := range node {
				page[k] = v
			}
			for k, v := range merged {
				if _, ok := page[k]; !ok {
					page[k] = v
				}
			}
			f.pages = append(f.pages, page)
			return
		}
		if kids, ok := f.Resolve(node["Kids"]).(Array); ok {
			for _, kid := range kids {
				walk(kid, merged, depth+1)
			}
		}
	}
	walk(pagesObj, Dict{}, 0)
	if len(f.pages) == 0 {
		return errors.New("document has no pages")
	}
	return nil
}

// Info returns the document information dictionary values as strings.
func (f *File) Info() map[string]string {
	info, _ := f.Resolve(f.trailer["Info"]).(Dict)
	if info == nil {
		return nil
	}
	out := make(map[string]string, len(info))
	for k, v := range info {
		if s, ok := f.Resolve(v).(String); ok {
			out[string(k)] = decodeTextString(s)
		}
	}
	return out
}

// decodeTextString interprets a PDF text string: UTF-16BE with BOM, or
// PDFDocEncoding approximated as Latin-1.
func decodeTextString(s String) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		var b strings.Builder
		for i := 2; i+1 < len(s); i += 2 {
			b.WriteRune(rune(uint16(s[i])<<8 | uint16(s[i+1])))
		}
		return b.String()
	}
	var b strings.Builder
	for _, c := range s {
		b.WriteRune(rune(c))
	}
	return b.String()
}
