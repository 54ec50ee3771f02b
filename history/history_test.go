package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/textlayer/pdfpatch/contentstream"
	"github.com/textlayer/pdfpatch/coords"
	"github.com/textlayer/pdfpatch/overlay"
)

func sample(text string) overlay.Overlay {
	return overlay.Overlay{
		PatchRect:  coords.NewRect(100, 100, 200, 120),
		PatchColor: contentstream.White,
		Text:       text,
		Style:      overlay.DefaultStyle(12),
	}
}

func mustPush(t *testing.T, s *Stack, m *overlay.Model, c Command) {
	t.Helper()
	if err := s.Push(m, c); err != nil {
		t.Fatalf("push %s: %v", c.Name(), err)
	}
}

func TestUndoRestoresStateBeforePush(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("first")})
	before := m.Snapshot()

	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("second")})
	ok, err := s.Undo(m)
	if err != nil || !ok {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("undo did not restore state (-want +got):\n%s", diff)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("a")})
	after := m.Snapshot()

	if ok, err := s.Undo(m); !ok || err != nil {
		t.Fatalf("undo: ok=%v err=%v", ok, err)
	}
	if m.Len() != 0 {
		t.Fatalf("model not empty after undo")
	}
	if ok, err := s.Redo(m); !ok || err != nil {
		t.Fatalf("redo: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(after, m.Snapshot()); diff != "" {
		t.Fatalf("redo did not reproduce state (-want +got):\n%s", diff)
	}
}

func TestUndoUnderflowIsNoOp(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	ok, err := s.Undo(m)
	if ok || err != nil {
		t.Fatalf("underflow: ok=%v err=%v", ok, err)
	}
	ok, err = s.Redo(m)
	if ok || err != nil {
		t.Fatalf("redo underflow: ok=%v err=%v", ok, err)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("a")})
	if ok, _ := s.Undo(m); !ok {
		t.Fatalf("undo failed")
	}
	if !s.CanRedo() {
		t.Fatalf("redo should be available")
	}
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("b")})
	if s.CanRedo() {
		t.Fatalf("push must clear redo")
	}
}

func TestFailedPushKeepsStackAndModel(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("a")})
	if ok, _ := s.Undo(m); !ok {
		t.Fatalf("undo failed")
	}
	before := m.Snapshot()

	bad := sample("bad")
	bad.Style.Stretch = -1
	if err := s.Push(m, &Add{Page: 0, Overlay: bad}); err == nil {
		t.Fatalf("expected validation error")
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("failed push mutated model:\n%s", diff)
	}
	if !s.CanRedo() {
		t.Fatalf("failed push must not clear redo")
	}
}

func TestRemoveUndoRestoresZOrderAndID(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	addA := &Add{Page: 0, Overlay: sample("a")}
	addB := &Add{Page: 0, Overlay: sample("b")}
	addC := &Add{Page: 0, Overlay: sample("c")}
	mustPush(t, s, m, addA)
	mustPush(t, s, m, addB)
	mustPush(t, s, m, addC)
	before := m.Snapshot()

	mustPush(t, s, m, &Remove{Page: 0, ID: addB.ID()})
	if ok, err := s.Undo(m); !ok || err != nil {
		t.Fatalf("undo remove: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("middle removal not restored exactly (-want +got):\n%s", diff)
	}
}

func TestModifyUndoRestoresPriorState(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	add := &Add{Page: 0, Overlay: sample("orig")}
	mustPush(t, s, m, add)
	before := m.Snapshot()

	next := sample("changed")
	next.Style.Size = 30
	mustPush(t, s, m, &Modify{Page: 0, ID: add.ID(), Next: next})
	got, _ := m.Get(0, add.ID())
	if got.Text != "changed" {
		t.Fatalf("modify not applied: %+v", got)
	}
	if ok, err := s.Undo(m); !ok || err != nil {
		t.Fatalf("undo modify: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("modify undo incomplete (-want +got):\n%s", diff)
	}
}

func TestDeepUndoRedoSequence(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	snapshots := []map[int][]overlay.Overlay{m.Snapshot()}
	for _, text := range []string{"a", "b", "c", "d"} {
		mustPush(t, s, m, &Add{Page: 0, Overlay: sample(text)})
		snapshots = append(snapshots, m.Snapshot())
	}
	for i := len(snapshots) - 2; i >= 0; i-- {
		if ok, err := s.Undo(m); !ok || err != nil {
			t.Fatalf("undo to %d: ok=%v err=%v", i, ok, err)
		}
		if diff := cmp.Diff(snapshots[i], m.Snapshot()); diff != "" {
			t.Fatalf("state %d mismatch:\n%s", i, diff)
		}
	}
	for i := 1; i < len(snapshots); i++ {
		if ok, err := s.Redo(m); !ok || err != nil {
			t.Fatalf("redo to %d: ok=%v err=%v", i, ok, err)
		}
		if diff := cmp.Diff(snapshots[i], m.Snapshot()); diff != "" {
			t.Fatalf("redo state %d mismatch:\n%s", i, diff)
		}
	}
}

func TestStackLimitDropsOldest(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack(WithLimit(2))
	for _, text := range []string{"a", "b", "c"} {
		mustPush(t, s, m, &Add{Page: 0, Overlay: sample(text)})
	}
	if s.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", s.Depth())
	}
	// Only the two newest pushes can unwind.
	count := 0
	for {
		ok, err := s.Undo(m)
		if err != nil {
			t.Fatalf("undo: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("undid %d commands, want 2", count)
	}
	if m.Len() != 1 {
		t.Fatalf("oldest edit should survive, len = %d", m.Len())
	}
}

func TestClear(t *testing.T) {
	m := overlay.NewModel()
	s := NewStack()
	mustPush(t, s, m, &Add{Page: 0, Overlay: sample("a")})
	s.Clear()
	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("clear left history behind")
	}
}
