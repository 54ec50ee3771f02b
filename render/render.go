// Package render composites a page's original content with its overlays.
// Preview and flattened output share one compositing routine, so what the
// user sees while editing is what the flattened document contains; only the
// raster resolution differs between the two.
//
// Canvas units are millimeters; page-space coordinates (points) are converted
// on the way in.
package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/fonts"
	"github.com/textlayer/pdfpatch/observability"
	"github.com/textlayer/pdfpatch/overlay"
)

// mmPerPt converts PDF points to millimeters.
const mmPerPt = 25.4 / 72.0

// boldStrokeFactor scales synthetic-bold stroke width: a weight step of 400
// (lightest to heaviest) strokes at 4% of the font size.
const boldStrokeFactor = 0.04

// Renderer composites pages. It caches parsed font families and is safe for
// concurrent use.
type Renderer struct {
	registry *fonts.Registry
	log      observability.Logger

	mu       sync.Mutex
	families map[string]*canvas.FontFamily
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// New returns a renderer drawing text with fonts from registry.
func New(registry *fonts.Registry, opts ...Option) *Renderer {
	r := &Renderer{
		registry: registry,
		log:      observability.NopLogger{},
		families: make(map[string]*canvas.FontFamily),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ComposePage draws the original page content and then the overlays in
// z-order onto a fresh canvas sized to the page's media box.
func (r *Renderer) ComposePage(page *document.Page, overlays []overlay.Overlay) (*canvas.Canvas, error) {
	box := page.MediaBox()
	w := box.Width() * mmPerPt
	h := box.Height() * mmPerPt
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)

	// Paper.
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	r.drawOriginal(ctx, page)

	for _, o := range overlays {
		if err := r.drawOverlay(ctx, box, o); err != nil {
			return nil, fmt.Errorf("overlay %d: %w", o.ID, err)
		}
	}
	return c, nil
}

// RenderPage rasterizes the composited page at the given resolution.
func (r *Renderer) RenderPage(page *document.Page, overlays []overlay.Overlay, dpi float64) (image.Image, error) {
	c, err := r.ComposePage(page, overlays)
	if err != nil {
		return nil, err
	}
	return rasterizer.Draw(c, canvas.DPI(dpi), canvas.DefaultColorSpace), nil
}

func (r *Renderer) drawOriginal(ctx *canvas.Context, page *document.Page) {
	box := page.MediaBox()
	for _, fill := range page.Fills() {
		rect := fill.Rect.Normalized()
		ctx.SetFillColor(toRGBA(fill.Color))
		ctx.DrawPath((rect.LLX-box.LLX)*mmPerPt, (rect.LLY-box.LLY)*mmPerPt,
			canvas.Rectangle(rect.Width()*mmPerPt, rect.Height()*mmPerPt))
	}
	for _, run := range page.TextRuns() {
		if run.Text == "" {
			continue
		}
		face, err := r.face(run.FontName, run.Size, run.Color)
		if err != nil {
			r.log.Warn("no font for text run",
				observability.String("font", run.FontName), observability.Error("cause", err))
			continue
		}
		line := canvas.NewTextLine(face, run.Text, canvas.Left)
		ctx.DrawText((run.Baseline.X-box.LLX)*mmPerPt, (run.Baseline.Y-box.LLY)*mmPerPt, line)
	}
}

// drawOverlay draws the patch rectangle and replacement text. Overlay
// coordinates are page space, offset by the media box origin like the
// original content.
func (r *Renderer) drawOverlay(ctx *canvas.Context, box coords.Rect, o overlay.Overlay) error {
	if !o.PatchRect.IsEmpty() {
		rect := o.PatchRect.Normalized()
		ctx.SetFillColor(toRGBA(o.PatchColor))
		ctx.DrawPath((rect.LLX-box.LLX)*mmPerPt, (rect.LLY-box.LLY)*mmPerPt,
			canvas.Rectangle(rect.Width()*mmPerPt, rect.Height()*mmPerPt))
	}
	if !o.HasText() {
		return nil
	}
	return r.drawStyledText(ctx, box, o.Text, o.Style)
}

// drawStyledText renders text glyph by glyph so stretch, tracking and
// synthetic bold apply uniformly. The glyph outline is stroked as well as
// filled when the weight exceeds 100, thickening it without changing
// advances.
func (r *Renderer) drawStyledText(ctx *canvas.Context, box coords.Rect, text string, st overlay.Style) error {
	face, err := r.face(st.Font, st.Size, st.Color)
	if err != nil {
		return err
	}

	fill := toRGBA(st.Color)
	strokeWidth := 0.0
	if st.Weight > 100 {
		strokeWidth = float64(st.Weight-100) / 400 * boldStrokeFactor * st.Size * mmPerPt
	}

	place := canvas.Identity.
		Translate((st.Position.X-box.LLX)*mmPerPt, (st.Position.Y-box.LLY)*mmPerPt).
		Rotate(st.Rotation)

	cursor := 0.0
	first := true
	for _, rn := range text {
		if !first {
			cursor += st.Tracking * mmPerPt
		}
		first = false

		p, adv, err := face.ToPath(string(rn))
		if err != nil {
			return fmt.Errorf("shape %q: %w", rn, err)
		}
		if p != nil && !p.Empty() {
			// Stretch scales the outline; the cursor is already in stretched
			// units, so it must translate unscaled (translate after scale).
			placed := p.Transform(canvas.Identity.Translate(cursor, 0).Scale(st.Stretch, 1))
			placed = placed.Transform(place)
			ctx.SetFillColor(fill)
			if strokeWidth > 0 {
				ctx.SetStrokeColor(fill)
				ctx.SetStrokeWidth(strokeWidth)
			} else {
				ctx.SetStrokeColor(canvas.Transparent)
			}
			ctx.DrawPath(0, 0, placed)
		}
		cursor += adv * st.Stretch
	}
	return nil
}

// face resolves a font family from the registry and returns a canvas face at
// the given size (points).
func (r *Renderer) face(name string, size float64, col contentstream.Color) (*canvas.FontFace, error) {
	family, data, err := r.registry.ResolveNamed(name)
	if err != nil {
		return nil, err
	}
	ff, err := r.family(family, data)
	if err != nil {
		return nil, err
	}
	return ff.Face(size, toRGBA(col), canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) family(name string, data []byte) (*canvas.FontFamily, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ff, ok := r.families[name]; ok {
		return ff, nil
	}
	ff := canvas.NewFontFamily(name)
	if err := ff.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("load font %s: %w", name, err)
	}
	r.families[name] = ff
	return ff, nil
}

func toRGBA(c contentstream.Color) color.RGBA {
	return color.RGBA{
		R: clamp8(c.R),
		G: clamp8(c.G),
		B: clamp8(c.B),
		A: 255,
	}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
