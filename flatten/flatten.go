// Package flatten bakes the overlay model into a new PDF. Each page is
// composited with the same routine the preview uses, rasterized at the
// configured resolution, and embedded as a full-page image, so the output is
// pixel-identical to the preview at that resolution.
package flatten

import (
	"context"
	"fmt"
	"image"
	"io"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/observability"
	"github.com/textlayer/pdfpatch/overlay"
	"github.com/textlayer/pdfpatch/render"
)

const mmPerPt = 25.4 / 72.0

// Config controls flattening.
type Config struct {
	// DPI is the raster resolution of the page images.
	DPI float64 `validate:"gte=72,lte=2400"`
	// MaxWorkers bounds concurrent page rasterization.
	MaxWorkers int `validate:"gte=1"`
}

// NewDefaultConfig returns the production defaults: print-quality raster
// resolution and one worker per CPU.
func NewDefaultConfig() Config {
	return Config{
		DPI:        600,
		MaxWorkers: runtime.NumCPU(),
	}
}

var validate = validator.New()

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("flatten config: %w", err)
	}
	return nil
}

// Flattener writes flattened documents.
type Flattener struct {
	renderer *render.Renderer
	log      observability.Logger
	tracer   observability.Tracer
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithLogger attaches a logger.
func WithLogger(l observability.Logger) Option {
	return func(f *Flattener) {
		if l != nil {
			f.log = l
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(t observability.Tracer) Option {
	return func(f *Flattener) {
		if t != nil {
			f.tracer = t
		}
	}
}

// New returns a flattener sharing the given renderer with the preview path.
func New(r *render.Renderer, opts ...Option) *Flattener {
	f := &Flattener{
		renderer: r,
		log:      observability.NopLogger{},
		tracer:   observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flatten composites every page of doc with the overlays from model and
// writes the result to w as a multi-page PDF. Cancelling ctx aborts between
// pages; nothing is written to w until every page has rendered, so a
// cancelled run leaves w untouched.
func (f *Flattener) Flatten(ctx context.Context, w io.Writer, doc *document.Document, model *overlay.Model, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, span := f.tracer.StartSpan(ctx, "flatten")
	defer span.Finish()
	span.SetTag(observability.MetricPageCount, doc.NumPages())

	start := time.Now()
	model = model.Clone()
	n := doc.NumPages()
	images := make([]image.Image, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxWorkers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := doc.Page(i)
			if err != nil {
				return err
			}
			img, err := f.renderer.RenderPage(page, model.OverlaysFor(i), cfg.DPI)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		if ctx.Err() != nil {
			f.log.Info("flatten cancelled", observability.Int("pages", n))
			return context.Cause(ctx)
		}
		return err
	}

	if err := f.assemble(w, doc, images, cfg.DPI); err != nil {
		return err
	}
	f.log.Info("document flattened",
		observability.Int("pages", n),
		observability.Int("overlays", model.Len()),
		observability.Float64("dpi", cfg.DPI),
		observability.Float64("seconds", time.Since(start).Seconds()))
	return nil
}

// assemble writes the page images into a multi-page PDF, one full-bleed
// image per page at the original page size.
func (f *Flattener) assemble(w io.Writer, doc *document.Document, images []image.Image, dpi float64) error {
	var p *pdf.PDF
	for i, img := range images {
		page, err := doc.Page(i)
		if err != nil {
			return err
		}
		box := page.MediaBox()
		wmm := box.Width() * mmPerPt
		hmm := box.Height() * mmPerPt

		c := canvas.New(wmm, hmm)
		cctx := canvas.NewContext(c)
		cctx.DrawImage(0, 0, img, canvas.DPI(dpi))

		if i == 0 {
			p = pdf.New(w, wmm, hmm, nil)
		} else {
			p.NewPage(wmm, hmm)
		}
		c.RenderTo(p)
	}
	if p == nil {
		return fmt.Errorf("document has no pages")
	}
	return p.Close()
}
