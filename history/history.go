// Package history implements command-based undo/redo over the overlay model.
// Every mutation is expressed as a Command that knows how to invert itself
// exactly, so undo restores the model to its structural state before the
// command ran, including z-order and ids.
package history

import (
	"fmt"

	"github.com/textlayer/pdfpatch/observability"
	"github.com/textlayer/pdfpatch/overlay"
)

// Command is one reversible mutation of an overlay model. Apply performs the
// mutation; Invert reverses it. A command may be applied, inverted, and
// re-applied any number of times (undo then redo), and must restore the exact
// structural state each way.
type Command interface {
	Apply(m *overlay.Model) error
	Invert(m *overlay.Model) error
	Name() string
}

// Add appends an overlay to a page. The id is assigned by the model on first
// application and reused on redo so the edit keeps a stable identity.
type Add struct {
	Page    int
	Overlay overlay.Overlay

	id    overlay.ID
	index int
}

func (c *Add) Apply(m *overlay.Model) error {
	if c.id == 0 {
		id, err := m.Add(c.Page, c.Overlay)
		if err != nil {
			return err
		}
		c.id = id
		c.index = m.IndexOf(c.Page, id)
		return nil
	}
	o := c.Overlay
	o.ID = c.id
	return m.Insert(c.Page, c.index, o)
}

func (c *Add) Invert(m *overlay.Model) error {
	return m.Remove(c.Page, c.id)
}

func (c *Add) Name() string { return "add overlay" }

// ID returns the id assigned on first application, or 0 before that.
func (c *Add) ID() overlay.ID { return c.id }

// Remove deletes an overlay. The removed state and its z-position are
// captured on application so Invert can reinstate it exactly.
type Remove struct {
	Page int
	ID   overlay.ID

	saved overlay.Overlay
	index int
}

func (c *Remove) Apply(m *overlay.Model) error {
	o, ok := m.Get(c.Page, c.ID)
	if !ok {
		return fmt.Errorf("%w: page %d id %d", overlay.ErrNotFound, c.Page, c.ID)
	}
	c.saved = o
	c.index = m.IndexOf(c.Page, c.ID)
	return m.Remove(c.Page, c.ID)
}

func (c *Remove) Invert(m *overlay.Model) error {
	return m.Insert(c.Page, c.index, c.saved)
}

func (c *Remove) Name() string { return "remove overlay" }

// Modify replaces an overlay's state in place, keeping id and z-position.
type Modify struct {
	Page int
	ID   overlay.ID
	Next overlay.Overlay

	prev overlay.Overlay
}

func (c *Modify) Apply(m *overlay.Model) error {
	o, ok := m.Get(c.Page, c.ID)
	if !ok {
		return fmt.Errorf("%w: page %d id %d", overlay.ErrNotFound, c.Page, c.ID)
	}
	c.prev = o
	return m.Modify(c.Page, c.ID, c.Next)
}

func (c *Modify) Invert(m *overlay.Model) error {
	return m.Modify(c.Page, c.ID, c.prev)
}

func (c *Modify) Name() string { return "modify overlay" }

// Stack is a two-list undo/redo stack. Pushing a new command clears the redo
// list; undo and redo at the empty end are no-ops reported by their boolean
// result, never errors.
type Stack struct {
	undo  []Command
	redo  []Command
	limit int
	log   observability.Logger
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithLimit caps undo depth; the oldest command is dropped when exceeded.
// Zero or negative means unbounded.
func WithLimit(n int) StackOption {
	return func(s *Stack) { s.limit = n }
}

// WithLogger attaches a logger to the stack.
func WithLogger(l observability.Logger) StackOption {
	return func(s *Stack) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStack(opts ...StackOption) *Stack {
	s := &Stack{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push applies the command and records it for undo. A failed application
// leaves both the model and the stack untouched; in particular the redo list
// survives, so a rejected edit does not destroy redo history.
func (s *Stack) Push(m *overlay.Model, c Command) error {
	if err := c.Apply(m); err != nil {
		return err
	}
	s.undo = append(s.undo, c)
	s.redo = s.redo[:0]
	if s.limit > 0 && len(s.undo) > s.limit {
		s.undo = append(s.undo[:0:0], s.undo[len(s.undo)-s.limit:]...)
	}
	s.log.Debug("command applied", observability.String("command", c.Name()))
	return nil
}

// Undo inverts the most recent command. Returns false when there is nothing
// to undo. An inversion error leaves the command on the undo stack.
func (s *Stack) Undo(m *overlay.Model) (bool, error) {
	if len(s.undo) == 0 {
		return false, nil
	}
	c := s.undo[len(s.undo)-1]
	if err := c.Invert(m); err != nil {
		return false, fmt.Errorf("undo %s: %w", c.Name(), err)
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, c)
	s.log.Debug("command undone", observability.String("command", c.Name()))
	return true, nil
}

// Redo re-applies the most recently undone command. Returns false when there
// is nothing to redo.
func (s *Stack) Redo(m *overlay.Model) (bool, error) {
	if len(s.redo) == 0 {
		return false, nil
	}
	c := s.redo[len(s.redo)-1]
	if err := c.Apply(m); err != nil {
		return false, fmt.Errorf("redo %s: %w", c.Name(), err)
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, c)
	s.log.Debug("command redone", observability.String("command", c.Name()))
	return true, nil
}

// CanUndo reports whether the undo list is nonempty.
func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }

// CanRedo reports whether the redo list is nonempty.
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Depth returns the number of undoable commands.
func (s *Stack) Depth() int { return len(s.undo) }

// Clear drops all history, e.g. after loading a session.
func (s *Stack) Clear() {
	s.undo = s.undo[:0]
	s.redo = s.redo[:0]
}
