// Package editor is the facade of the patch engine: one loaded document, its
// overlay model, and the undo history, with entry points for detection-seeded
// patching, preview, session persistence and flattening.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/detect"
	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/flatten"
	"github.com/textlayer/pdfpatch/fonts"
	"github.com/textlayer/pdfpatch/history"
	"github.com/textlayer/pdfpatch/hwpspace"
	"github.com/textlayer/pdfpatch/observability"
	"github.com/textlayer/pdfpatch/overlay"
	"github.com/textlayer/pdfpatch/render"
	"github.com/textlayer/pdfpatch/session"
)

// ErrNoTextRun is returned by PatchAt when no text lies under the position.
var ErrNoTextRun = errors.New("no text run at position")

// patchMargin expands a detected run's bounding box so the patch fully
// covers antialiased glyph edges, in page units.
const patchMargin = 1.0

// Editor owns one editing session over a loaded document. Not safe for
// concurrent mutation; flattening runs on a model clone and may proceed in
// the background.
type Editor struct {
	doc       *document.Document
	source    []byte
	model     *overlay.Model
	stack     *history.Stack
	registry  *fonts.Registry
	renderer  *render.Renderer
	flattener *flatten.Flattener
	log       observability.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger attaches a logger to the editor and its render/flatten layers.
func WithLogger(l observability.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithHistoryLimit caps the undo depth.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		e.stack = history.NewStack(history.WithLimit(n))
	}
}

// New wraps an already loaded document. Source bytes may be nil; they are
// only needed for sessions that embed the source.
func New(doc *document.Document, source []byte, registry *fonts.Registry, opts ...Option) *Editor {
	e := &Editor{
		doc:      doc,
		source:   source,
		model:    overlay.NewModel(),
		stack:    history.NewStack(),
		registry: registry,
		log:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.renderer = render.New(registry, render.WithLogger(e.log))
	e.flattener = flatten.New(e.renderer, flatten.WithLogger(e.log))
	return e
}

// Open loads the document at path and wraps it.
func Open(path string, registry *fonts.Registry, opts ...Option) (*Editor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &document.LoadError{Path: path, Err: err}
	}
	doc, err := document.LoadBytes(data, path)
	if err != nil {
		return nil, err
	}
	return New(doc, data, registry, opts...), nil
}

// Document returns the loaded document.
func (e *Editor) Document() *document.Document { return e.doc }

// Model returns the live overlay model. Callers must mutate it only through
// the editor so history stays consistent.
func (e *Editor) Model() *overlay.Model { return e.model }

// CanUndo reports whether an undo step is available.
func (e *Editor) CanUndo() bool { return e.stack.CanUndo() }

// CanRedo reports whether a redo step is available.
func (e *Editor) CanRedo() bool { return e.stack.CanRedo() }

// PatchAt detects the text run under the given position and seeds an overlay
// covering it: the patch rectangle is the run's bounding box with a safety
// margin, the patch color is the inferred background, and the replacement
// text inherits the run's font, size, color and baseline. Wide-space
// artifacts in the replacement are normalized, with the width difference
// carried as tracking. An empty replacement erases the run.
func (e *Editor) PatchAt(page int, at coords.Point, replacement string) (overlay.ID, error) {
	p, err := e.doc.Page(page)
	if err != nil {
		return 0, err
	}
	res, ok := detect.Detect(p, at)
	if !ok {
		return 0, fmt.Errorf("%w: page %d (%.1f, %.1f)", ErrNoTextRun, page, at.X, at.Y)
	}

	o := overlay.Overlay{
		PatchRect:  res.Run.BBox.Expand(patchMargin),
		PatchColor: res.Background,
	}
	if replacement != "" {
		var fontData []byte
		if f := p.Fonts()[res.Run.FontRes]; f != nil {
			fontData = f.FontFile
		}
		corr := hwpspace.Correct(replacement)
		style := overlay.DefaultStyle(res.Run.Size)
		style.Font = res.Run.FontName
		style.Color = res.Run.Color
		style.Position = res.Run.Baseline
		// The wide-space model assumes a 0.5 em space; rescale its tracking
		// to the real space advance when the run's font is embedded.
		spaceEM := fonts.SpaceAdvance(fontData) / 1000
		style.Tracking = corr.TrackingEM / hwpspace.SpaceEM * spaceEM * res.Run.Size
		// A replacement wider than the run would overrun the patch; squeeze
		// it to the run's width.
		w, err := fonts.Measure(corr.Text, fontData, res.Run.Size, 1.0, style.Tracking)
		if err == nil && res.Run.BBox.Width() > 0 && w > res.Run.BBox.Width() {
			style.Stretch = res.Run.BBox.Width() / w
		}
		o.Text = corr.Text
		o.Style = style
	}
	return e.AddOverlay(page, o)
}

// AddOverlay appends an overlay through the undo stack and returns its id.
func (e *Editor) AddOverlay(page int, o overlay.Overlay) (overlay.ID, error) {
	cmd := &history.Add{Page: page, Overlay: o}
	if err := e.stack.Push(e.model, cmd); err != nil {
		return 0, err
	}
	return cmd.ID(), nil
}

// RemoveOverlay deletes an overlay through the undo stack.
func (e *Editor) RemoveOverlay(page int, id overlay.ID) error {
	return e.stack.Push(e.model, &history.Remove{Page: page, ID: id})
}

// ModifyOverlay replaces an overlay's state through the undo stack.
func (e *Editor) ModifyOverlay(page int, id overlay.ID, next overlay.Overlay) error {
	return e.stack.Push(e.model, &history.Modify{Page: page, ID: id, Next: next})
}

// Undo reverts the last edit. Returns false when there is nothing to undo.
func (e *Editor) Undo() (bool, error) { return e.stack.Undo(e.model) }

// Redo re-applies the last undone edit.
func (e *Editor) Redo() (bool, error) { return e.stack.Redo(e.model) }

// Preview rasterizes one page with its overlays at the given resolution,
// through the same compositing routine flattening uses.
func (e *Editor) Preview(page int, dpi float64) (image.Image, error) {
	p, err := e.doc.Page(page)
	if err != nil {
		return nil, err
	}
	return e.renderer.RenderPage(p, e.model.OverlaysFor(page), dpi)
}

// Flatten writes the flattened document to w.
func (e *Editor) Flatten(ctx context.Context, w io.Writer, cfg flatten.Config) error {
	return e.flattener.Flatten(ctx, w, e.doc, e.model, cfg)
}

// SaveSession persists the overlay model and the document fingerprint to
// path. With embedSource the source document travels inside the session,
// making it self-contained.
func (e *Editor) SaveSession(path string, embedSource bool) error {
	var opts []session.SaveOption
	if embedSource {
		src := e.source
		if src == nil {
			data, err := os.ReadFile(e.doc.Path())
			if err != nil {
				return fmt.Errorf("embed source: %w", err)
			}
			src = data
		}
		opts = append(opts, session.WithSource(src))
	}
	return session.Save(path, e.doc.Fingerprint(), e.model, opts...)
}

// LoadSession restores the overlay model from a session file. The session
// must have been recorded against this document: on fingerprint mismatch
// nothing is applied and session.ErrFingerprintMismatch is returned. A
// successful load replaces the model and clears the undo history.
func (e *Editor) LoadSession(path string) error {
	s, err := session.Load(path)
	if err != nil {
		return err
	}
	if err := s.Verify(e.doc); err != nil {
		return err
	}
	e.model.Restore(s.Model)
	e.stack.Clear()
	e.log.Info("session loaded",
		observability.String("path", path),
		observability.Int("overlays", e.model.Len()))
	return nil
}
