// Package session persists an editing session: the overlay model, the
// fingerprint of the document it was made against, and optionally the source
// document itself. The container is a zip archive holding session.json plus,
// when embedding is requested, source.pdf.
//
// Loading only deserializes; binding a session to a live document (and the
// fingerprint check that guards it) is the caller's step.
package session

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/textlayer/pdfpatch/document"
	"github.com/textlayer/pdfpatch/overlay"
)

// Version is the current session format version. Readers reject newer
// versions rather than guessing at their semantics.
const Version = 1

const (
	stateName  = "session.json"
	sourceName = "source.pdf"
)

// ErrVersion is returned when a session file declares a version this reader
// does not understand.
var ErrVersion = errors.New("unsupported session version")

// ErrFingerprintMismatch is returned by Verify when a session was recorded
// against a different document.
var ErrFingerprintMismatch = errors.New("session fingerprint does not match document")

// FormatError wraps a structurally invalid session file.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string { return fmt.Sprintf("session %s: %v", e.Path, e.Err) }
func (e *FormatError) Unwrap() error { return e.Err }

// state is the session.json schema.
type state struct {
	Version     int                       `json:"version"`
	Fingerprint document.Fingerprint      `json:"fingerprint"`
	Overlays    map[int][]overlay.Overlay `json:"overlays"`
}

// Session is a deserialized session, not yet bound to a document.
type Session struct {
	// Fingerprint identifies the document the session was recorded against.
	Fingerprint document.Fingerprint
	// Model holds the deserialized overlays.
	Model *overlay.Model
	// Source is the embedded source document, nil when none was embedded.
	Source []byte
}

// Verify checks that the session belongs to doc.
func (s *Session) Verify(doc *document.Document) error {
	if !s.Fingerprint.Matches(doc.Fingerprint()) {
		return fmt.Errorf("%w: session %s, document %s",
			ErrFingerprintMismatch, s.Fingerprint.Hash, doc.Fingerprint().Hash)
	}
	return nil
}

// SaveOption configures serialization.
type SaveOption func(*saveConfig)

type saveConfig struct {
	source []byte
}

// WithSource embeds the source document bytes in the archive, making the
// session self-contained.
func WithSource(data []byte) SaveOption {
	return func(c *saveConfig) { c.source = data }
}

// Write serializes the model and fingerprint to w.
func Write(w io.Writer, fp document.Fingerprint, m *overlay.Model, opts ...SaveOption) error {
	var cfg saveConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	st := state{
		Version:     Version,
		Fingerprint: fp,
		Overlays:    m.Snapshot(),
	}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	zw := zip.NewWriter(w)
	f, err := zw.Create(stateName)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		return err
	}
	if cfg.source != nil {
		// The source is already compressed PDF data most of the time; store
		// it without recompression.
		f, err := zw.CreateHeader(&zip.FileHeader{Name: sourceName, Method: zip.Store})
		if err != nil {
			return err
		}
		if _, err := f.Write(cfg.source); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Save writes the session to path.
func Save(path string, fp document.Fingerprint, m *overlay.Model, opts ...SaveOption) error {
	var buf bytes.Buffer
	if err := Write(&buf, fp, m, opts...); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Read deserializes a session from r. The returned session is standalone:
// it is not applied to any document and carries no history.
func Read(r io.ReaderAt, size int64) (*Session, error) {
	return read(r, size, "")
}

// Load reads the session file at path.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	return read(bytes.NewReader(data), int64(len(data)), path)
}

func read(r io.ReaderAt, size int64, path string) (*Session, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("not a session archive: %w", err)}
	}

	var st *state
	var source []byte
	for _, f := range zr.File {
		switch f.Name {
		case stateName:
			data, err := readAll(f)
			if err != nil {
				return nil, &FormatError{Path: path, Err: err}
			}
			var s state
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&s); err != nil {
				return nil, &FormatError{Path: path, Err: fmt.Errorf("decode %s: %w", stateName, err)}
			}
			st = &s
		case sourceName:
			data, err := readAll(f)
			if err != nil {
				return nil, &FormatError{Path: path, Err: err}
			}
			source = data
		}
	}
	if st == nil {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("missing %s", stateName)}
	}
	if st.Version > Version || st.Version < 1 {
		return nil, &FormatError{Path: path,
			Err: fmt.Errorf("%w: %d (reader supports up to %d)", ErrVersion, st.Version, Version)}
	}

	m := overlay.NewModel()
	for page, list := range st.Overlays {
		for i, o := range list {
			if err := m.Insert(page, i, o); err != nil {
				return nil, &FormatError{Path: path, Err: fmt.Errorf("page %d overlay %d: %w", page, o.ID, err)}
			}
		}
	}
	return &Session{Fingerprint: st.Fingerprint, Model: m, Source: source}, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
