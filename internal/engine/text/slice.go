package text

// TextSlice is a read-only view over a contiguous run of UTF-16 code
// units. It is the unit the layer's chunk iteration and the regex scanner
// exchange: no copying happens when a slice is carved out of an existing
// Text or a larger TextSlice, only when one is built from scratch (e.g. a
// Patch's new_text).
type TextSlice struct {
	units []uint16

	// origin and originStart identify the Text this slice was sliced from
	// verbatim, with no edits applied. is_modified uses this to short-
	// circuit comparison against the base layer's text by pointer
	// identity instead of a code-unit-by-code-unit comparison.
	origin      *Text
	originStart Offset

	lineStarts []Offset // lazily computed by lines()
}

// FromUnits wraps raw code units in a TextSlice with no origin identity.
func FromUnits(units []uint16) TextSlice {
	return TextSlice{units: units}
}

// Data returns the slice's raw code units.
func (s TextSlice) Data() []uint16 { return s.units }

// Size returns the number of code units in the slice.
func (s TextSlice) Size() Offset { return Offset(len(s.units)) }

// IsEmpty reports whether the slice has zero code units.
func (s TextSlice) IsEmpty() bool { return len(s.units) == 0 }

// Front returns the first code unit and true, or (0, false) if empty.
func (s TextSlice) Front() (uint16, bool) {
	if len(s.units) == 0 {
		return 0, false
	}
	return s.units[0], true
}

// Back returns the last code unit and true, or (0, false) if empty.
func (s TextSlice) Back() (uint16, bool) {
	if len(s.units) == 0 {
		return 0, false
	}
	return s.units[len(s.units)-1], true
}

// At returns the code unit at the given offset within the slice.
func (s TextSlice) At(offset Offset) uint16 { return s.units[offset] }

// String renders the slice back to a UTF-8 Go string.
func (s TextSlice) String() string {
	return New(s.units).String()
}

func (s *TextSlice) lines() []Offset {
	if s.lineStarts == nil {
		s.lineStarts = computeLineStarts(s.units)
	}
	return s.lineStarts
}

// Extent returns the Point just past the slice's last code unit, relative
// to the slice's own origin at (0, 0).
func (s TextSlice) Extent() Point {
	lineStarts := s.lines()
	row := len(lineStarts) - 1
	return Point{Row: uint32(row), Column: uint32(len(s.units)) - uint32(lineStarts[row])}
}

func (s TextSlice) lineLen(row uint32) uint32 {
	lineStarts := s.lines()
	start := lineStarts[row]
	var end Offset
	if int(row)+1 < len(lineStarts) {
		end = lineStarts[row+1]
		if end > start && s.units[end-1] == '\n' {
			end--
			if end > start && s.units[end-1] == '\r' {
				end--
			}
		} else if end > start && s.units[end-1] == '\r' {
			end--
		}
	} else {
		end = Offset(len(s.units))
	}
	return uint32(end - start)
}

// ClipPosition maps a Point relative to this slice to its nearest valid
// Point and Offset, enforcing CRLF atomicity.
func (s TextSlice) ClipPosition(p Point) ClipResult {
	lineStarts := s.lines()
	maxRow := uint32(len(lineStarts) - 1)
	row := p.Row
	if row > maxRow {
		row = maxRow
	}
	lineLen := s.lineLen(row)
	column := p.Column
	if column > lineLen {
		column = lineLen
	}

	off := lineStarts[row] + Offset(column)
	if column > 0 && int(off) < len(s.units) && s.units[off] == '\n' && s.units[off-1] == '\r' {
		column--
		off--
	}

	return ClipResult{Position: Point{Row: row, Column: column}, Offset: off}
}

// PositionForOffset converts a code-unit offset within the slice to its
// Point, relative to the slice's own origin.
func (s TextSlice) PositionForOffset(offset Offset) Point {
	lineStarts := s.lines()
	if int(offset) >= len(s.units) {
		row := len(lineStarts) - 1
		return Point{Row: uint32(row), Column: uint32(len(s.units)) - uint32(lineStarts[row])}
	}
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Point{Row: uint32(lo), Column: uint32(offset - lineStarts[lo])}
}

// Slice narrows s to the Point range r, relative to s's own coordinates.
func (s TextSlice) Slice(r Range) TextSlice {
	start := s.ClipPosition(r.Start)
	end := s.ClipPosition(r.End)
	out := TextSlice{units: s.units[start.Offset:end.Offset]}
	if s.origin != nil {
		out.origin = s.origin
		out.originStart = s.originStart + start.Offset
	}
	return out
}

// SliceOffsets narrows s to the code-unit range [start, end).
func (s TextSlice) SliceOffsets(start, end Offset) TextSlice {
	out := TextSlice{units: s.units[start:end]}
	if s.origin != nil {
		out.origin = s.origin
		out.originStart = s.originStart + start
	}
	return out
}

// Prefix returns the portion of s up to end.
func (s TextSlice) Prefix(end Point) TextSlice { return s.Slice(Range{Start: Zero, End: end}) }

// Suffix returns the portion of s from start to its extent.
func (s TextSlice) Suffix(start Point) TextSlice { return s.Slice(Range{Start: start, End: s.Extent()}) }

// PrefixOffset returns at most n code units from the start of s.
func (s TextSlice) PrefixOffset(n Offset) TextSlice {
	if n > Offset(len(s.units)) {
		n = Offset(len(s.units))
	}
	return s.SliceOffsets(0, n)
}

// IdenticalTo reports whether s is an unmodified view into base starting
// at base offset atOffset — i.e. whether s could be skipped by pointer
// identity rather than a code-unit comparison when diffing against base.
func (s TextSlice) IdenticalTo(base *Text, atOffset Offset) bool {
	return s.origin == base && s.originStart == atOffset
}

// Equal reports whether s and other hold the same code units.
func (s TextSlice) Equal(other TextSlice) bool {
	if len(s.units) != len(other.units) {
		return false
	}
	for i, u := range s.units {
		if other.units[i] != u {
			return false
		}
	}
	return true
}
