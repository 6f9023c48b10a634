package buffer

import (
	"unicode/utf16"

	"github.com/lestrrat-go/pdebug"

	"github.com/dshills/stratabuf/internal/engine/iregex"
	"github.com/dshills/stratabuf/internal/engine/layer"
	"github.com/dshills/stratabuf/internal/engine/patch"
	"github.com/dshills/stratabuf/internal/engine/text"
)

// TextBuffer is the editable, snapshot-capable document façade: it owns
// a chain of Layers rooted at a materialized base and a current top,
// and every edit lands on top. TextBuffer is not safe for concurrent
// mutation — see the package doc comment.
type TextBuffer struct {
	top   *layer.Layer
	base  *layer.Layer
	label string
}

// New returns an empty TextBuffer: a single base layer over no text.
func New(opts ...Option) *TextBuffer {
	return NewFromText(text.Empty(), opts...)
}

// NewFromString returns a TextBuffer materializing s as its initial
// base layer.
func NewFromString(s string, opts ...Option) *TextBuffer {
	return NewFromText(text.FromString(s), opts...)
}

// NewFromText returns a TextBuffer materializing t as its initial base
// layer. t is owned by the buffer from this point on.
func NewFromText(t *text.Text, opts ...Option) *TextBuffer {
	base := layer.NewBase(t)
	b := &TextBuffer{top: base, base: base}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *TextBuffer) trace(name string) func() {
	if !pdebug.Enabled {
		return func() {}
	}
	g := pdebug.Marker(b.label + ":" + name)
	return g.End
}

// Accessors

// BaseText returns the materialized text.Text of the buffer's current
// base layer — the oldest state still reachable without replaying a
// patch.
func (b *TextBuffer) BaseText() *text.Text { return b.base.BaseText() }

// Extent returns the Point just past the buffer's last code unit.
func (b *TextBuffer) Extent() text.Point { return b.top.Extent() }

// Size returns the buffer's total code-unit length.
func (b *TextBuffer) Size() text.Offset { return b.top.Size() }

// ClipPosition maps p to the nearest valid Point and its Offset.
func (b *TextBuffer) ClipPosition(p text.Point) text.ClipResult { return b.top.ClipPosition(p) }

// PositionForOffset converts a code-unit offset to its Point.
func (b *TextBuffer) PositionForOffset(offset text.Offset) text.Point {
	return b.top.PositionForOffset(offset)
}

// rowInfo, lineLengthForRow and textInRange are shared between
// TextBuffer and Snapshot, since both operate over a *layer.Layer top.

// rowInfo scans row's content forward from its start, stopping at the
// first terminator code unit or at the next row's start, whichever
// comes first. It returns the row's content range (excluding any
// terminator) and which terminator (if any) follows it.
func rowInfo(top *layer.Layer, row uint32) (content text.Range, ending LineEnding, ok bool) {
	extent := top.Extent()
	if row > extent.Row {
		return text.Range{}, NoTerminator, false
	}
	start := text.Point{Row: row, Column: 0}
	if row == extent.Row {
		return text.Range{Start: start, End: extent}, NoTerminator, true
	}

	end := start
	term := NoTerminator
	var lastUnit uint16
	haveLast := false
	top.ForEachChunkInRange(start, text.Point{Row: row + 1, Column: 0}, func(s text.TextSlice) bool {
		data := s.Data()
		for i, u := range data {
			if u != '\n' {
				continue
			}
			col := uint32(i)
			crBefore := false
			if i > 0 {
				crBefore = data[i-1] == '\r'
			} else {
				crBefore = haveLast && lastUnit == '\r'
			}
			if crBefore {
				term = CRLF
				col--
			} else {
				term = LF
			}
			end = end.Traverse(text.Point{Column: col})
			return false
		}
		if len(data) > 0 {
			lastUnit = data[len(data)-1]
			haveLast = true
		}
		end = end.Traverse(s.Extent())
		return true
	})
	return text.Range{Start: start, End: end}, term, true
}

func lineLengthForRow(top *layer.Layer, row uint32) (uint32, bool) {
	content, _, ok := rowInfo(top, row)
	if !ok {
		return 0, false
	}
	return content.End.Traversal(content.Start).Column, true
}

func textInRange(top *layer.Layer, r text.Range) string {
	var units []uint16
	top.ForEachChunkInRange(r.Start, r.End, func(s text.TextSlice) bool {
		units = append(units, s.Data()...)
		return true
	})
	return text.FromUnits(units).String()
}

// LineLengthForRow returns the code-unit length of row, excluding its
// terminator, or false if row is past the buffer's extent.
func (b *TextBuffer) LineLengthForRow(row uint32) (uint32, bool) {
	return lineLengthForRow(b.top, row)
}

// LineEndingForRow reports which terminator (if any) ends row.
func (b *TextBuffer) LineEndingForRow(row uint32) (LineEnding, bool) {
	_, ending, ok := rowInfo(b.top, row)
	return ending, ok
}

// LineForRow returns the text of row, without its terminator.
func (b *TextBuffer) LineForRow(row uint32) (string, bool) {
	length, ok := b.LineLengthForRow(row)
	if !ok {
		return "", false
	}
	return textInRange(b.top, text.Range{
		Start: text.Point{Row: row, Column: 0},
		End:   text.Point{Row: row, Column: length},
	}), true
}

// WithLineForRow calls fn with the TextSlice of row's content, without
// its terminator, avoiding a copy when the row is covered by a single
// underlying chunk. Returns false if row is past the buffer's extent.
func (b *TextBuffer) WithLineForRow(row uint32, fn func(text.TextSlice)) bool {
	length, ok := b.LineLengthForRow(row)
	if !ok {
		return false
	}
	r := text.Range{Start: text.Point{Row: row, Column: 0}, End: text.Point{Row: row, Column: length}}
	var whole text.TextSlice
	chunkCount := 0
	b.top.ForEachChunkInRange(r.Start, r.End, func(s text.TextSlice) bool {
		chunkCount++
		whole = s
		return chunkCount < 2
	})
	if chunkCount == 1 {
		fn(whole)
		return true
	}
	var units []uint16
	b.top.ForEachChunkInRange(r.Start, r.End, func(s text.TextSlice) bool {
		units = append(units, s.Data()...)
		return true
	})
	fn(text.FromUnits(units))
	return true
}

// Text renders the buffer's whole effective text as a Go string.
func (b *TextBuffer) Text() string {
	return b.top.Materialize().String()
}

// TextInRange renders the slice of the buffer's text in r as a Go
// string.
func (b *TextBuffer) TextInRange(r text.Range) string {
	return textInRange(b.top, r)
}

// Chunks calls fn with every chunk of the buffer's full effective text,
// in order, stopping early if fn returns false.
func (b *TextBuffer) Chunks(fn func(text.TextSlice) bool) {
	b.top.ForEachChunkInRange(text.Zero, b.top.Extent(), fn)
}

// Search returns the first match of re in the buffer's text.
func (b *TextBuffer) Search(re *iregex.Regex) (text.Range, bool) {
	return b.top.SearchInRange(re, text.Range{Start: text.Zero, End: b.top.Extent()})
}

// SearchAll returns every non-overlapping match of re in the buffer's
// text.
func (b *TextBuffer) SearchAll(re *iregex.Regex) []text.Range {
	return b.top.SearchAllInRange(re, text.Range{Start: text.Zero, End: b.top.Extent()})
}

// Mutators

// SetTextInRange replaces the code units in r with newText, pushing a
// new patch-only layer above the current top first if the top is
// frozen (it is the base, or a live snapshot pins it).
func (b *TextBuffer) SetTextInRange(r text.Range, newText string) {
	defer b.trace("SetTextInRange")()

	pushed := false
	if b.top.IsBase() || !b.top.IsMutable() {
		b.top = layer.NewPatched(b.top)
		pushed = true
	}

	startClip := b.top.ClipPosition(r.Start)
	endClip := b.top.ClipPosition(r.End)

	deletedExtent := endClip.Position.Traversal(startClip.Position)
	deletedTextSize := endClip.Offset - startClip.Offset

	units := utf16.Encode([]rune(newText))
	slice := text.FromUnits(units)
	insertedExtent := slice.Extent()

	change := b.top.Splice(startClip.Position, deletedExtent, insertedExtent, slice, deletedTextSize)

	// Noop collapse: an edit that replaces a span with identical content
	// of the same size doesn't need a Change at all, nor a layer pushed
	// just to hold it.
	if change.OldTextSize == change.NewText.Size() && b.spanMatches(change) {
		b.top.SpliceOld(change.OldStart)
		if pushed && b.top.Patch().IsEmpty() {
			b.top = b.top.Previous()
		}
	}
}

// spanMatches reports whether the previous layer's content across
// change's old range is code-unit-identical to change's new text.
func (b *TextBuffer) spanMatches(change *patch.Change) bool {
	prev := b.top.Previous()
	if prev == nil {
		return false
	}
	matched := true
	var pos text.Offset
	newUnits := change.NewText.Data()
	prev.ForEachChunkInRange(change.OldStart, change.OldEnd, func(s text.TextSlice) bool {
		data := s.Data()
		if int(pos)+len(data) > len(newUnits) {
			matched = false
			return false
		}
		for i, u := range data {
			if newUnits[int(pos)+i] != u {
				matched = false
				return false
			}
		}
		pos += s.Size()
		return true
	})
	return matched
}

// SetText replaces the buffer's entire content with newText.
func (b *TextBuffer) SetText(newText string) {
	b.SetTextInRange(text.Range{Start: text.Zero, End: b.top.Extent()}, newText)
}

// Reset replaces the buffer's content with newBase's, discarding all
// layer history when the top is the only, unpinned layer; otherwise it
// falls back to SetText followed by FlushChanges.
func (b *TextBuffer) Reset(newBase *text.Text) {
	defer b.trace("Reset")()

	if b.top == b.base && b.top.IsMutable() {
		b.top.BecomeBase(newBase)
		b.base = b.top
		return
	}
	b.SetText(newBase.String())
	b.FlushChanges()
}

// FlushChanges materializes the top layer's text (if it isn't already
// materialized), promotes it to base, and consolidates.
func (b *TextBuffer) FlushChanges() {
	defer b.trace("FlushChanges")()

	if !b.top.IsBase() {
		b.top.BecomeBase(b.top.Materialize())
	}
	b.promoteBase(b.top)
	b.consolidate()
}

func (b *TextBuffer) promoteBase(l *layer.Layer) {
	b.base = l
}

// Modification

// IsModified reports whether the buffer's text differs from its
// current base layer's.
func (b *TextBuffer) IsModified() bool {
	return b.top.IsModified(b.base.BaseText())
}

// IsModifiedFrom reports whether the buffer's text differs from the
// text captured by snap's base layer — not snap's top — matching
// is_modified's own base-relative definition.
func (b *TextBuffer) IsModifiedFrom(snap *Snapshot) bool {
	if b.top == snap.base {
		return false
	}
	return b.top.IsModified(snap.base.BaseText())
}

// Introspection

// LayerCount returns the number of layers from top to root, inclusive.
func (b *TextBuffer) LayerCount() int {
	n := 0
	for l := b.top; l != nil; l = l.Previous() {
		n++
	}
	return n
}
