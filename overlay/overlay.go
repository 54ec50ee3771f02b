// Package overlay holds the mutable edit layer: per-page ordered collections
// of patches and replacement text. The model itself has no history; callers
// wrap mutations in commands (package history). Single-writer: the model is
// mutated only from the interactive goroutine, while frozen clones are
// handed to background flattening.
package overlay

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
)

// ErrNotFound is returned when an overlay id does not exist on the page.
var ErrNotFound = errors.New("overlay not found")

// ID identifies an overlay within its model.
type ID int64

// Style carries the render parameters of replacement text. Stretch and
// weight are validated as numeric ranges only; font metrics are the render
// layer's concern.
type Style struct {
	// Font is the font family the text is rendered with.
	Font string `json:"font"`
	// Size is the point size.
	Size float64 `json:"size" validate:"gt=0"`
	// Color is the text fill color.
	Color contentstream.Color `json:"color"`
	// Stretch scales glyph advance widths horizontally; 1.0 is neutral.
	Stretch float64 `json:"stretch" validate:"gt=0"`
	// Tracking is extra spacing between glyphs in page units, may be negative.
	Tracking float64 `json:"tracking"`
	// Weight is the synthetic-bold weight: 100 (none) to 500.
	Weight int `json:"weight" validate:"min=100,max=500"`
	// Rotation is counterclockwise, in degrees.
	Rotation float64 `json:"rotation"`
	// Position is the text baseline origin in page space.
	Position coords.Point `json:"position"`
}

// DefaultStyle returns a neutral style at the given size.
func DefaultStyle(size float64) Style {
	return Style{
		Size:    size,
		Color:   contentstream.Black,
		Stretch: 1.0,
		Weight:  100,
	}
}

// Overlay is one user edit scoped to one page: a patch rectangle occluding
// original content plus optional replacement text.
type Overlay struct {
	ID ID `json:"id"`
	// PatchRect occludes original content; the empty rect means no patch
	// (pure addition). When meant to cover a text run it must fully contain
	// that run's bounding box, or original ink bleeds through after
	// flattening.
	PatchRect coords.Rect `json:"patch_rect"`
	// PatchColor fills the patch; defaults to the detected background color.
	PatchColor contentstream.Color `json:"patch_color"`
	// Text is the replacement text; empty means erase only.
	Text  string `json:"text"`
	Style Style  `json:"style"`
}

// HasText reports whether the overlay draws replacement text.
func (o Overlay) HasText() bool { return o.Text != "" }

var validate = validator.New()

// Validate checks numeric ranges. Overlays with text need a valid style;
// erase-only overlays are always valid.
func (o Overlay) Validate() error {
	if !o.HasText() {
		return nil
	}
	if err := validate.Struct(o.Style); err != nil {
		return fmt.Errorf("overlay style: %w", err)
	}
	return nil
}

// Model maps page indices to ordered overlay sequences. Order is z-order:
// later entries draw on top.
type Model struct {
	pages  map[int][]Overlay
	nextID ID
}

func NewModel() *Model {
	return &Model{pages: make(map[int][]Overlay), nextID: 1}
}

// Add appends an overlay to the page and returns its assigned id.
// The mutation is atomic: validation happens before any state changes.
func (m *Model) Add(page int, o Overlay) (ID, error) {
	if page < 0 {
		return 0, fmt.Errorf("negative page index %d", page)
	}
	if err := o.Validate(); err != nil {
		return 0, err
	}
	o.ID = m.nextID
	m.nextID++
	m.pages[page] = append(m.pages[page], o)
	return o.ID, nil
}

// Insert places an overlay at an explicit z-position, keeping the id carried
// by o. This is the restore hook used by undo/redo to reproduce prior state
// exactly; interactive additions go through Add.
func (m *Model) Insert(page, index int, o Overlay) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.ID == 0 {
		return errors.New("insert requires an assigned id")
	}
	list := m.pages[page]
	if index < 0 || index > len(list) {
		return fmt.Errorf("insert index %d out of range [0,%d]", index, len(list))
	}
	list = append(list[:index:index], append([]Overlay{o}, list[index:]...)...)
	m.pages[page] = list
	if o.ID >= m.nextID {
		m.nextID = o.ID + 1
	}
	return nil
}

// IndexOf returns the z-position of the overlay with the given id, or -1.
func (m *Model) IndexOf(page int, id ID) int {
	for i, o := range m.pages[page] {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns the structural state of the model: every page's overlays
// in z-order. Two models are structurally equal when their snapshots are;
// the internal id counter is identity allocation, not structural state.
func (m *Model) Snapshot() map[int][]Overlay {
	out := make(map[int][]Overlay, len(m.pages))
	for p, list := range m.pages {
		cp := make([]Overlay, len(list))
		copy(cp, list)
		out[p] = cp
	}
	return out
}

// Remove deletes the overlay with the given id, preserving the order of the
// remaining overlays.
func (m *Model) Remove(page int, id ID) error {
	list := m.pages[page]
	for i, o := range list {
		if o.ID == id {
			m.pages[page] = append(list[:i:i], list[i+1:]...)
			if len(m.pages[page]) == 0 {
				delete(m.pages, page)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: page %d id %d", ErrNotFound, page, id)
}

// Modify replaces the overlay's state, keeping its id and z-position.
func (m *Model) Modify(page int, id ID, next Overlay) error {
	if err := next.Validate(); err != nil {
		return err
	}
	list := m.pages[page]
	for i, o := range list {
		if o.ID == id {
			next.ID = id
			list[i] = next
			return nil
		}
	}
	return fmt.Errorf("%w: page %d id %d", ErrNotFound, page, id)
}

// Get returns the overlay with the given id.
func (m *Model) Get(page int, id ID) (Overlay, bool) {
	for _, o := range m.pages[page] {
		if o.ID == id {
			return o, true
		}
	}
	return Overlay{}, false
}

// OverlaysFor returns the page's overlays in z-order. The slice is a copy;
// mutating it does not affect the model.
func (m *Model) OverlaysFor(page int) []Overlay {
	list := m.pages[page]
	if len(list) == 0 {
		return nil
	}
	out := make([]Overlay, len(list))
	copy(out, list)
	return out
}

// Pages returns the page indices that carry overlays, ascending.
func (m *Model) Pages() []int {
	out := make([]int, 0, len(m.pages))
	for p := range m.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Len returns the total overlay count across pages.
func (m *Model) Len() int {
	n := 0
	for _, list := range m.pages {
		n += len(list)
	}
	return n
}

// Clone returns a deep copy. Flattening operates on a clone so concurrent
// edits to other pages can proceed.
func (m *Model) Clone() *Model {
	out := &Model{pages: make(map[int][]Overlay, len(m.pages)), nextID: m.nextID}
	for p, list := range m.pages {
		cp := make([]Overlay, len(list))
		copy(cp, list)
		out.pages[p] = cp
	}
	return out
}

// Restore replaces this model's contents with those of other. Used by undo
// to roll back to a snapshot.
func (m *Model) Restore(other *Model) {
	clone := other.Clone()
	m.pages = clone.pages
	m.nextID = clone.nextID
}
