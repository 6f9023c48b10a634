package layer

import (
	"testing"

	"github.com/dshills/stratabuf/internal/engine/text"
)

func materializeString(l *Layer) string {
	return l.Materialize().String()
}

func TestBaseLayerRoundTrips(t *testing.T) {
	l := NewBase(text.FromString("hello world"))
	if l.Size() != 11 {
		t.Errorf("Size() = %d, want 11", l.Size())
	}
	if !l.IsBase() {
		t.Error("IsBase() = false, want true")
	}
	if l.Previous() != nil {
		t.Error("Previous() on a base layer must be nil")
	}
}

func TestPatchedLayerSplice(t *testing.T) {
	base := NewBase(text.FromString("hello world"))
	top := NewPatched(base)

	newText := text.FromUnits([]uint16{'t', 'h', 'e', 'r', 'e'})
	top.Splice(text.Point{Row: 0, Column: 6}, text.Point{Row: 0, Column: 5}, newText.Extent(), newText, 5)

	if got := materializeString(top); got != "hello there" {
		t.Errorf("Materialize() = %q, want %q", got, "hello there")
	}
	if top.Size() != 11 {
		t.Errorf("Size() = %d, want 11", top.Size())
	}
}

func TestPatchedLayerSpliceThenSplice(t *testing.T) {
	base := NewBase(text.FromString("abcdef"))
	top := NewPatched(base)

	ins := text.FromUnits([]uint16{'X'})
	top.Splice(text.Point{Row: 0, Column: 2}, text.Point{}, ins.Extent(), ins, 0)
	// abXcdef

	ins2 := text.FromUnits([]uint16{'Y'})
	top.Splice(text.Point{Row: 0, Column: 5}, text.Point{}, ins2.Extent(), ins2, 0)
	// abXcdYef

	if got := materializeString(top); got != "abXcdYef" {
		t.Errorf("Materialize() = %q, want %q", got, "abXcdYef")
	}
}

func TestLayerClipPositionThroughGapDelegatesToPrevious(t *testing.T) {
	base := NewBase(text.FromString("0123456789"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'a', 'b'})
	// Patch only touches column 2; column 7 (well past it) must clip
	// through the gap into the base layer unaffected.
	top.Splice(text.Point{Row: 0, Column: 2}, text.Point{}, ins.Extent(), ins, 0)

	clip := top.ClipPosition(text.Point{Row: 0, Column: 7})
	if clip.Position != (text.Point{Row: 0, Column: 7}) {
		t.Errorf("ClipPosition(0:7) = %v, want (0:7) unchanged, it falls in the post-patch gap", clip.Position)
	}
	if c := top.CharacterAt(clip.Position); c != '5' {
		t.Errorf("CharacterAt(%v) = %q, want '5'", clip.Position, c)
	}
}

func TestLayerCharacterAt(t *testing.T) {
	base := NewBase(text.FromString("abcdef"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'X', 'Y'})
	top.Splice(text.Point{Row: 0, Column: 2}, text.Point{Row: 0, Column: 1}, ins.Extent(), ins, 1)
	// abXYdef

	if c := top.CharacterAt(text.Point{Row: 0, Column: 2}); c != 'X' {
		t.Errorf("CharacterAt(0:2) = %q, want 'X'", c)
	}
	if c := top.CharacterAt(text.Point{Row: 0, Column: 5}); c != 'e' {
		t.Errorf("CharacterAt(0:5) = %q, want 'e'", c)
	}
}

func TestForEachChunkInRangeCoversWholeRange(t *testing.T) {
	base := NewBase(text.FromString("0123456789"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'a', 'b'})
	top.Splice(text.Point{Row: 0, Column: 5}, text.Point{}, ins.Extent(), ins, 0)
	// 01234ab56789

	var got []uint16
	top.ForEachChunkInRange(text.Zero, top.Extent(), func(s text.TextSlice) bool {
		got = append(got, s.Data()...)
		return true
	})
	if string(text.FromUnits(got).String()) != "01234ab56789" {
		t.Errorf("chunked reconstruction = %q, want %q", text.FromUnits(got).String(), "01234ab56789")
	}
}

func TestForEachChunkInRangeStopsEarly(t *testing.T) {
	base := NewBase(text.FromString("abcdefgh"))
	calls := 0
	base.ForEachChunkInRange(text.Zero, base.Extent(), func(s text.TextSlice) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 when callback returns false immediately", calls)
	}
}

func TestPositionForOffsetThroughPatch(t *testing.T) {
	base := NewBase(text.FromString("hello world"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'X', 'Y', 'Z'})
	top.Splice(text.Point{Row: 0, Column: 5}, text.Point{}, ins.Extent(), ins, 0)
	// helloXYZ world

	p := top.PositionForOffset(6)
	if p != (text.Point{Row: 0, Column: 6}) {
		t.Errorf("PositionForOffset(6) = %v, want (0:6)", p)
	}
	// Offset 9 lands one code unit past the inserted text, back in the gap.
	p2 := top.PositionForOffset(9)
	if p2 != (text.Point{Row: 0, Column: 9}) {
		t.Errorf("PositionForOffset(9) = %v, want (0:9)", p2)
	}
}

func TestIsModified(t *testing.T) {
	base := text.FromString("hello")
	l := NewBase(base)
	if l.IsModified(base) {
		t.Error("a freshly constructed base layer must not report modified against its own text")
	}

	top := NewPatched(l)
	ins := text.FromUnits([]uint16{'!'})
	top.Splice(top.Extent(), text.Point{}, ins.Extent(), ins, 0)
	if !top.IsModified(base) {
		t.Error("a layer with a pending insertion must report modified")
	}
}

func TestPinUnpinPropagatesToRoot(t *testing.T) {
	base := NewBase(text.FromString("x"))
	mid := NewPatched(base)
	top := NewPatched(mid)

	top.Pin()
	if base.IsMutable() {
		t.Error("pinning top must also pin the base, through every intermediate layer")
	}
	if mid.IsMutable() {
		t.Error("pinning top must also pin mid")
	}
	top.Unpin()
	if !base.IsMutable() {
		t.Error("unpinning top must release the base again")
	}
}

func TestBecomeBaseAndReparent(t *testing.T) {
	base := NewBase(text.FromString("abc"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'d'})
	top.Splice(top.Extent(), text.Point{}, ins.Extent(), ins, 0)

	merged := top.Materialize()
	top.BecomeBase(merged)
	if !top.IsBase() {
		t.Error("BecomeBase must make the layer report IsBase() == true")
	}
	if top.Previous() != nil {
		t.Error("BecomeBase must drop the previous-layer link")
	}
	if materializeString(top) != "abcd" {
		t.Errorf("Materialize() after BecomeBase = %q, want %q", materializeString(top), "abcd")
	}

	newBelow := NewBase(text.FromString("below"))
	top.Reparent(newBelow, nil)
	if top.IsBase() {
		t.Error("Reparent must make the layer report IsBase() == false")
	}
	if top.Previous() != newBelow {
		t.Error("Reparent must point Previous() at the new layer")
	}
}
