package text

import "unicode/utf16"

// Text is a growable, mutable sequence of UTF-16 code units with an
// associated line-start index so that Point<->Offset conversion does not
// require a linear scan from the start of the document on every call.
//
// Text is not safe for concurrent use; layers that hold a Text either own
// it exclusively (the mutable top/base layer) or treat it as frozen once a
// Snapshot pins the layer (see package buffer).
type Text struct {
	units      []uint16
	lineStarts []Offset // lineStarts[i] is the code-unit offset of row i
}

// Empty returns a new, empty Text.
func Empty() *Text {
	return &Text{lineStarts: []Offset{0}}
}

// New builds a Text from raw UTF-16 code units.
func New(units []uint16) *Text {
	t := &Text{units: units}
	t.reindex()
	return t
}

// FromString builds a Text from a UTF-8 Go string.
func FromString(s string) *Text {
	return New(utf16.Encode([]rune(s)))
}

// reindex rebuilds the line-start table from scratch. Only LF adds a row:
// a lone CR stays mid-row, and the LF of a CRLF pair is what actually
// starts the next row (the CR just precedes it).
func (t *Text) reindex() {
	t.lineStarts = computeLineStarts(t.units)
}

// computeLineStarts scans units and returns the code-unit offset of each
// row's first code unit, with computeLineStarts(units)[0] always 0. Only
// LF is a row break; a bare CR is ordinary row content.
func computeLineStarts(units []uint16) []Offset {
	lineStarts := []Offset{0}
	for i, u := range units {
		if u == '\n' {
			lineStarts = append(lineStarts, Offset(i+1))
		}
	}
	return lineStarts
}

// Units returns the underlying code-unit slice. Callers must not retain a
// mutable reference across a Splice.
func (t *Text) Units() []uint16 { return t.units }

// Size returns the number of UTF-16 code units.
func (t *Text) Size() Offset { return Offset(len(t.units)) }

// Extent returns the Point just past the last code unit.
func (t *Text) Extent() Point {
	row := len(t.lineStarts) - 1
	return Point{Row: uint32(row), Column: uint32(len(t.units)) - uint32(t.lineStarts[row])}
}

// String renders the text back to a UTF-8 Go string.
func (t *Text) String() string {
	return string(utf16.Decode(t.units))
}

// lineLen returns the code-unit length of row, excluding its terminator.
func (t *Text) lineLen(row uint32) uint32 {
	start := t.lineStarts[row]
	var end Offset
	if int(row)+1 < len(t.lineStarts) {
		end = t.lineStarts[row+1]
		// strip the terminator
		if end > start && t.units[end-1] == '\n' {
			end--
			if end > start && t.units[end-1] == '\r' {
				end--
			}
		} else if end > start && t.units[end-1] == '\r' {
			end--
		}
	} else {
		end = Offset(len(t.units))
	}
	return uint32(end - start)
}

// At returns the code unit at a valid Point.
func (t *Text) At(p Point) uint16 {
	off := t.lineStarts[p.Row] + Offset(p.Column)
	if int(off) >= len(t.units) {
		return 0
	}
	return t.units[off]
}

// OffsetForPoint converts a valid Point to an Offset without clipping.
func (t *Text) OffsetForPoint(p Point) Offset {
	return t.lineStarts[p.Row] + Offset(p.Column)
}

// ClipPosition maps p to the nearest valid Point, enforcing CRLF atomicity:
// a position addressing the LF of a CRLF pair is moved one column back,
// onto the CR.
func (t *Text) ClipPosition(p Point) ClipResult {
	maxRow := uint32(len(t.lineStarts) - 1)
	row := p.Row
	if row > maxRow {
		row = maxRow
	}
	lineLen := t.lineLen(row)
	column := p.Column
	if column > lineLen {
		column = lineLen
	}

	off := t.lineStarts[row] + Offset(column)
	if column > 0 && int(off) < len(t.units) && t.units[off] == '\n' && t.units[off-1] == '\r' {
		column--
		off--
	}

	return ClipResult{Position: Point{Row: row, Column: column}, Offset: off}
}

// PositionForOffset converts a code-unit Offset to its Point. Offsets past
// the end of the text clip to Extent().
func (t *Text) PositionForOffset(offset Offset) Point {
	if int(offset) >= len(t.units) {
		return t.Extent()
	}
	// binary search for the last lineStart <= offset
	lo, hi := 0, len(t.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Point{Row: uint32(lo), Column: uint32(offset - t.lineStarts[lo])}
}

// Slice returns a read-only view of the code units in [start, end). The
// returned slice carries an identity back-reference to t so that
// is_modified's chunk-equality fast path can recognize unmodified spans.
func (t *Text) Slice(start, end Offset) TextSlice {
	return TextSlice{units: t.units[start:end], origin: t, originStart: start}
}

// SliceRange is a convenience wrapper around Slice taking a Point Range.
func (t *Text) SliceRange(r Range) TextSlice {
	return t.Slice(t.OffsetForPoint(r.Start), t.OffsetForPoint(r.End))
}

// Splice performs an in-place edit: it removes oldExtent worth of rows and
// columns starting at newStart, then inserts newText there. newStart must
// be a valid Point in the text's current content; this is used while
// squashing layers to fold a patch's changes into a materialized Text.
func (t *Text) Splice(newStart Point, oldExtent Point, newText TextSlice) {
	startOffset := t.OffsetForPoint(newStart)
	oldEnd := newStart.Traverse(oldExtent)
	endOffset := t.OffsetForPoint(oldEnd)

	replacement := make([]uint16, 0, int(endOffset-startOffset)+len(newText.units))
	replacement = append(replacement, newText.units...)

	units := make([]uint16, 0, len(t.units)-int(endOffset-startOffset)+len(newText.units))
	units = append(units, t.units[:startOffset]...)
	units = append(units, replacement...)
	units = append(units, t.units[endOffset:]...)
	t.units = units
	t.reindex()
}

// Append adds slice's code units to the end of t.
func (t *Text) Append(slice TextSlice) {
	t.units = append(t.units, slice.units...)
	t.reindex()
}

// Assign replaces t's contents with slice's code units.
func (t *Text) Assign(slice TextSlice) {
	t.units = append(t.units[:0], slice.units...)
	t.reindex()
}

// Clear empties t in place.
func (t *Text) Clear() {
	t.units = t.units[:0]
	t.reindex()
}

// IsEmpty reports whether t holds no code units.
func (t *Text) IsEmpty() bool { return len(t.units) == 0 }
