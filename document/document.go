// Package document provides the read-only model of a loaded PDF: pages,
// their text runs and their resources. Documents are immutable; all editing
// happens in overlays that reference, but never touch, this model.
package document

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/observability"
	"github.com/textlayer/pdfpatch/parser"
)

// TextRun is re-exported from the extraction layer; see contentstream.TextRun.
type TextRun = contentstream.TextRun

// ErrPageIndex is returned when a nonexistent page is requested.
var ErrPageIndex = errors.New("page index out of range")

// LoadError wraps a failure to read or parse a source document.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Document is an immutable handle to a loaded PDF.
type Document struct {
	path  string
	fp    Fingerprint
	file  *parser.File
	pages []*Page
	log   observability.Logger
}

// Option configures loading.
type Option func(*loadConfig)

type loadConfig struct {
	log observability.Logger
}

// WithLogger attaches a logger to the document.
func WithLogger(l observability.Logger) Option {
	return func(c *loadConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// Load reads and parses the PDF at path.
func Load(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return LoadBytes(data, path, opts...)
}

// LoadBytes parses an in-memory PDF image. The path is recorded in the
// fingerprint but not accessed.
func LoadBytes(data []byte, path string, opts ...Option) (*Document, error) {
	cfg := loadConfig{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	file, err := parser.Parse(data, parser.WithLogger(cfg.log))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	doc := &Document{
		path: path,
		fp:   NewFingerprint(path, data),
		file: file,
		log:  cfg.log,
	}
	doc.pages = make([]*Page, file.NumPages())
	for i := range doc.pages {
		box, err := file.MediaBox(i)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		doc.pages[i] = &Page{doc: doc, index: i, mediaBox: box}
	}
	cfg.log.Info("document loaded",
		observability.String("path", path),
		observability.Int("pages", len(doc.pages)))
	return doc, nil
}

// Path returns the source path the document was loaded from.
func (d *Document) Path() string { return d.path }

// Fingerprint identifies the source document (path + content hash).
func (d *Document) Fingerprint() Fingerprint { return d.fp }

// NumPages returns the page count.
func (d *Document) NumPages() int { return len(d.pages) }

// Page returns the 0-indexed page.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageIndex, i, len(d.pages))
	}
	return d.pages[i], nil
}

// Page is one page of a loaded document. Text runs are extracted lazily on
// first access and cached for the document's lifetime; extraction runs at
// most once even under concurrent readers.
type Page struct {
	doc      *Document
	index    int
	mediaBox coords.Rect

	once      sync.Once
	extracted *contentstream.Page
	fonts     map[string]*parser.Font
}

// Index returns the 0-based page index.
func (p *Page) Index() int { return p.index }

// MediaBox returns the page bounds in page space.
func (p *Page) MediaBox() coords.Rect { return p.mediaBox }

func (p *Page) extract() {
	p.once.Do(func() {
		fonts, err := p.doc.file.Fonts(p.index)
		if err != nil {
			p.doc.log.Warn("font resources unreadable",
				observability.Int("page", p.index), observability.Error("cause", err))
		}
		p.fonts = fonts
		content, err := p.doc.file.Contents(p.index)
		if err != nil {
			p.doc.log.Warn("page content unreadable",
				observability.Int("page", p.index), observability.Error("cause", err))
			p.extracted = &contentstream.Page{}
			return
		}
		p.extracted = contentstream.Extract(content, fonts)
		p.doc.log.Debug("page extracted",
			observability.Int("page", p.index),
			observability.Int("textruns", len(p.extracted.TextRuns)))
	})
}

// TextRuns returns the page's text runs in content-stream order. The result
// is cached; callers must not mutate it.
func (p *Page) TextRuns() []TextRun {
	p.extract()
	return p.extracted.TextRuns
}

// Fills returns the filled rectangles drawn by the page content, used for
// background color inference.
func (p *Page) Fills() []contentstream.RectFill {
	p.extract()
	return p.extracted.Fills
}

// Fonts returns the page's font resources keyed by resource name.
func (p *Page) Fonts() map[string]*parser.Font {
	p.extract()
	return p.fonts
}
