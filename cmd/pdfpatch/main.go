package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/editor"
	"github.com/textlayer/pdfpatch/flatten"
	"github.com/textlayer/pdfpatch/fonts"
	"github.com/textlayer/pdfpatch/session"
)

type options struct {
	sessionPath string
	pdfPath     string
	outPath     string
	fontDir     string
	dpi         float64
	workers     int
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfpatch: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfpatch: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfpatch [flags] <session file>\n")
		flag.PrintDefaults()
	}
	pdfPath := flag.String("pdf", "", "Source PDF (defaults to the session's embedded or recorded source)")
	outPath := flag.String("out", "patched.pdf", "Output PDF path")
	fontDir := flag.String("fonts", "", "Directory of .ttf/.otf fonts for replacement text")
	dpi := flag.Float64("dpi", 0, "Raster resolution (default 600)")
	workers := flag.Int("workers", 0, "Concurrent page workers (default NumCPU)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing session file")
	}
	opts.sessionPath = flag.Arg(0)
	opts.pdfPath = *pdfPath
	opts.outPath = *outPath
	opts.fontDir = *fontDir
	opts.dpi = *dpi
	opts.workers = *workers
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	s, err := session.Load(opts.sessionPath)
	if err != nil {
		return err
	}

	doc, source, err := openSource(s, opts.pdfPath)
	if err != nil {
		return err
	}
	if err := s.Verify(doc); err != nil {
		return err
	}

	registry := fonts.NewRegistry()
	if opts.fontDir != "" {
		if err := registerFonts(registry, opts.fontDir); err != nil {
			return err
		}
	}

	ed := editor.New(doc, source, registry)
	ed.Model().Restore(s.Model)

	cfg := flatten.NewDefaultConfig()
	if opts.dpi > 0 {
		cfg.DPI = opts.dpi
	}
	if opts.workers > 0 {
		cfg.MaxWorkers = opts.workers
	}

	out, err := os.Create(opts.outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := ed.Flatten(ctx, out, cfg); err != nil {
		os.Remove(opts.outPath)
		return fmt.Errorf("flatten: %w", err)
	}
	fmt.Printf("wrote %s (%d pages, %d overlays)\n", opts.outPath, doc.NumPages(), ed.Model().Len())
	return nil
}

// openSource resolves the document the session applies to: an explicit -pdf
// path wins, then the session's embedded copy, then the path recorded in the
// fingerprint.
func openSource(s *session.Session, override string) (*document.Document, []byte, error) {
	switch {
	case override != "":
		data, err := os.ReadFile(override)
		if err != nil {
			return nil, nil, fmt.Errorf("open source: %w", err)
		}
		doc, err := document.LoadBytes(data, override)
		return doc, data, err
	case s.Source != nil:
		doc, err := document.LoadBytes(s.Source, s.Fingerprint.Path)
		return doc, s.Source, err
	case s.Fingerprint.Path != "":
		data, err := os.ReadFile(s.Fingerprint.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open recorded source: %w", err)
		}
		doc, err := document.LoadBytes(data, s.Fingerprint.Path)
		return doc, data, err
	}
	return nil, nil, fmt.Errorf("session has no source document; pass -pdf")
}

func registerFonts(registry *fonts.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read font dir: %w", err)
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		family := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := registry.RegisterFile(family, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no fonts found in %s", dir)
	}
	return nil
}
