package buffer

import (
	"github.com/dshills/stratabuf/internal/engine/iregex"
	"github.com/dshills/stratabuf/internal/engine/layer"
	"github.com/dshills/stratabuf/internal/engine/text"
)

// Snapshot is a long-lived, read-only view of a TextBuffer at the point
// it was created: it pins its top and base layers so their content
// never changes, and subsequent edits on the owning buffer never touch
// them, regardless of how many more edits land afterward.
type Snapshot struct {
	owner    *TextBuffer
	top      *layer.Layer
	base     *layer.Layer
	released bool
}

// CreateSnapshot pins b's current top and base layers and returns a
// Snapshot over them.
func (b *TextBuffer) CreateSnapshot() *Snapshot {
	b.top.Pin()
	if b.base != b.top {
		b.base.Pin()
	}
	return &Snapshot{owner: b, top: b.top, base: b.base}
}

// Release unpins s's layers and lets the owning buffer consolidate any
// runs that are no longer held open by a live snapshot. Releasing a
// Snapshot twice is a programming error.
func (s *Snapshot) Release() {
	invariant(!s.released, "snapshot released twice")
	s.released = true
	s.top.Unpin()
	if s.base != s.top {
		s.base.Unpin()
	}
	invariant(s.top.PinCount() >= 0 && s.base.PinCount() >= 0, "snapshot count went negative")
	s.owner.consolidate()
}

// Size returns the snapshot's total code-unit length.
func (s *Snapshot) Size() text.Offset { return s.top.Size() }

// Extent returns the Point just past the snapshot's last code unit.
func (s *Snapshot) Extent() text.Point { return s.top.Extent() }

// BaseText returns the materialized text.Text of the snapshot's base
// layer — the oldest state the snapshot can still see.
func (s *Snapshot) BaseText() *text.Text { return s.base.BaseText() }

// LineLengthForRow returns the code-unit length of row in the
// snapshot's text, excluding its terminator.
func (s *Snapshot) LineLengthForRow(row uint32) (uint32, bool) {
	return lineLengthForRow(s.top, row)
}

// Text renders the snapshot's whole effective text as a Go string.
func (s *Snapshot) Text() string {
	return s.top.Materialize().String()
}

// TextInRange renders the slice of the snapshot's text in r as a Go
// string.
func (s *Snapshot) TextInRange(r text.Range) string {
	return textInRange(s.top, r)
}

// Chunks calls fn with every chunk of the snapshot's full effective
// text, in order, stopping early if fn returns false.
func (s *Snapshot) Chunks(fn func(text.TextSlice) bool) {
	s.top.ForEachChunkInRange(text.Zero, s.top.Extent(), fn)
}

// ChunksInRange calls fn with every chunk of the snapshot's text
// covering r, in order, stopping early if fn returns false.
func (s *Snapshot) ChunksInRange(r text.Range, fn func(text.TextSlice) bool) {
	s.top.ForEachChunkInRange(r.Start, r.End, fn)
}

// Search returns the first match of re within the snapshot's text.
func (s *Snapshot) Search(re *iregex.Regex) (text.Range, bool) {
	return s.top.SearchInRange(re, text.Range{Start: text.Zero, End: s.top.Extent()})
}

// FlushPrecedingChanges materializes the snapshot's pinned layer as
// text; if that layer sits above the buffer's current base, it is
// promoted to base. Consolidation runs afterward.
func (s *Snapshot) FlushPrecedingChanges() {
	if !s.top.IsBase() {
		s.top.BecomeBase(s.top.Materialize())
	}
	if s.owner.base != s.top {
		s.owner.promoteBase(s.top)
	}
	s.owner.consolidate()
}
