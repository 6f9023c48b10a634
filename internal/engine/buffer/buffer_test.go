package buffer

import (
	"testing"

	"github.com/dshills/stratabuf/internal/engine/text"
)

func TestNewFromStringAndText(t *testing.T) {
	b := NewFromString("hello world")
	if got := b.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
	if b.Size() != 11 {
		t.Errorf("Size() = %d, want 11", b.Size())
	}
}

func TestSetTextInRangeReplacesSpan(t *testing.T) {
	b := NewFromString("hello world")
	b.SetTextInRange(text.Range{Start: text.Point{Row: 0, Column: 6}, End: text.Point{Row: 0, Column: 11}}, "there")
	if got := b.Text(); got != "hello there" {
		t.Errorf("Text() = %q, want %q", got, "hello there")
	}
}

func TestSetTextInRangePushesNewLayerOverBase(t *testing.T) {
	b := NewFromString("abc")
	if b.LayerCount() != 1 {
		t.Fatalf("LayerCount() = %d, want 1 for a fresh buffer", b.LayerCount())
	}
	b.SetTextInRange(text.Range{Start: text.Zero, End: text.Zero}, "X")
	if b.LayerCount() != 2 {
		t.Errorf("LayerCount() = %d, want 2 after editing a base layer", b.LayerCount())
	}
}

func TestSetTextInRangeNoopCollapse(t *testing.T) {
	b := NewFromString("hello world")
	// Replace "hello" with itself: identical content, identical size,
	// entirely covered by the base layer underneath.
	b.SetTextInRange(text.Range{Start: text.Zero, End: text.Point{Row: 0, Column: 5}}, "hello")
	if b.IsModified() {
		t.Error("IsModified() = true, want false; the replacement was a noop and should collapse")
	}
	if b.LayerCount() != 1 {
		t.Errorf("LayerCount() = %d, want 1; a noop replace on a pristine buffer must not leave a layer behind", b.LayerCount())
	}
	if got := b.Text(); got != "hello world" {
		t.Errorf("Text() = %q, want %q", got, "hello world")
	}
}

func TestSetTextReplacesWholeBuffer(t *testing.T) {
	b := NewFromString("old content")
	b.SetText("new")
	if got := b.Text(); got != "new" {
		t.Errorf("Text() = %q, want %q", got, "new")
	}
}

func TestLineLengthAndLineEndingForRow(t *testing.T) {
	b := NewFromString("one\r\ntwo\nthree")

	length, ok := b.LineLengthForRow(0)
	if !ok || length != 3 {
		t.Errorf("LineLengthForRow(0) = (%d, %v), want (3, true)", length, ok)
	}
	ending, ok := b.LineEndingForRow(0)
	if !ok || ending != CRLF {
		t.Errorf("LineEndingForRow(0) = (%v, %v), want (CRLF, true)", ending, ok)
	}

	ending, ok = b.LineEndingForRow(1)
	if !ok || ending != LF {
		t.Errorf("LineEndingForRow(1) = (%v, %v), want (LF, true)", ending, ok)
	}

	ending, ok = b.LineEndingForRow(2)
	if !ok || ending != NoTerminator {
		t.Errorf("LineEndingForRow(2) = (%v, %v), want (NoTerminator, true)", ending, ok)
	}

	if _, ok := b.LineLengthForRow(99); ok {
		t.Error("LineLengthForRow(99) ok = true, want false past the buffer's extent")
	}
}

func TestLineEndingForRowLoneCRStaysMidRow(t *testing.T) {
	b := NewFromString("one\rtwo")
	if b.Extent() != (text.Point{Row: 0, Column: 7}) {
		t.Fatalf("Extent() = %v, want {0,7}; a lone CR must not start a new row", b.Extent())
	}
	ending, ok := b.LineEndingForRow(0)
	if !ok || ending != NoTerminator {
		t.Errorf("LineEndingForRow(0) = (%v, %v), want (NoTerminator, true)", ending, ok)
	}
	length, ok := b.LineLengthForRow(0)
	if !ok || length != 7 {
		t.Errorf("LineLengthForRow(0) = (%d, %v), want (7, true)", length, ok)
	}
}

func TestLineForRow(t *testing.T) {
	b := NewFromString("alpha\nbeta\ngamma")
	line, ok := b.LineForRow(1)
	if !ok || line != "beta" {
		t.Errorf("LineForRow(1) = (%q, %v), want (\"beta\", true)", line, ok)
	}
}

func TestIsModified(t *testing.T) {
	b := NewFromString("abc")
	if b.IsModified() {
		t.Error("a freshly constructed buffer must not report modified")
	}
	b.SetText("abcd")
	if !b.IsModified() {
		t.Error("IsModified() = false after an edit, want true")
	}
}

func TestResetOnUnpinnedBufferReplacesBaseInPlace(t *testing.T) {
	b := NewFromString("old")
	before := b.LayerCount()
	b.Reset(text.FromString("fresh"))
	if got := b.Text(); got != "fresh" {
		t.Errorf("Text() = %q, want %q", got, "fresh")
	}
	if b.LayerCount() != before {
		t.Errorf("LayerCount() = %d, want unchanged at %d when resetting an unpinned single-layer buffer", b.LayerCount(), before)
	}
	if b.IsModified() {
		t.Error("IsModified() = true right after Reset, want false (Reset establishes a new base)")
	}
}

func TestFlushChangesPromotesTopToBase(t *testing.T) {
	b := NewFromString("abc")
	b.SetText("abcd")
	b.FlushChanges()
	if b.IsModified() {
		t.Error("IsModified() = true after FlushChanges, want false")
	}
	if got := b.BaseText().String(); got != "abcd" {
		t.Errorf("BaseText().String() = %q, want %q", got, "abcd")
	}
}

func TestWithLineForRowAvoidsCopyForSingleChunk(t *testing.T) {
	b := NewFromString("alpha\nbeta\ngamma")
	var seen string
	ok := b.WithLineForRow(2, func(s text.TextSlice) { seen = s.String() })
	if !ok || seen != "gamma" {
		t.Errorf("WithLineForRow(2) = (%q, %v), want (\"gamma\", true)", seen, ok)
	}
}
