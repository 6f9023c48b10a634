// Package layer implements the single layer in a buffer's patch stack: a
// layer is either the base (materialized text.Text, no previous layer) or
// a patch over the layer directly below it. All position/offset
// conversion, chunked traversal and incremental search recurse through
// this previous-layer chain, stitching each layer's patch.Patch changes
// together with whatever the layer below contributes in the gaps.
package layer

import (
	"github.com/dshills/stratabuf/internal/engine/patch"
	"github.com/dshills/stratabuf/internal/engine/text"
)

// Layer is one level of a buffer's patch stack.
type Layer struct {
	previous *Layer
	baseText *text.Text // non-nil only for the base layer
	patch    *patch.Patch

	snapshotCount int
}

// NewBase returns a fresh base layer materializing t.
func NewBase(t *text.Text) *Layer {
	return &Layer{baseText: t}
}

// NewPatched returns a new layer sitting above previous, with an empty
// patch ready to receive edits.
func NewPatched(previous *Layer) *Layer {
	return &Layer{previous: previous, patch: patch.New()}
}

// NewPatchedWith returns a new layer sitting above previous, with p as
// its starting patch (used when deserializing a previously-saved set of
// pending changes).
func NewPatchedWith(previous *Layer, p *patch.Patch) *Layer {
	return &Layer{previous: previous, patch: p}
}

// IsBase reports whether l materializes its own text rather than
// patching a layer below it.
func (l *Layer) IsBase() bool { return l.baseText != nil }

// Previous returns the layer below l, or nil if l is the base.
func (l *Layer) Previous() *Layer { return l.previous }

// Patch returns l's patch, or nil if l is the base.
func (l *Layer) Patch() *patch.Patch { return l.patch }

// BaseText returns l's materialized text, or nil if l is not a base
// layer.
func (l *Layer) BaseText() *text.Text { return l.baseText }

// BecomeBase converts l in place into a base layer materializing t,
// dropping its patch and previous-layer link. Used when a mutable run
// of layers is squashed all the way down to the buffer's root: the
// topmost layer of the run keeps its pointer identity but becomes the
// new base.
func (l *Layer) BecomeBase(t *text.Text) {
	l.baseText = t
	l.patch = nil
	l.previous = nil
}

// Reparent converts l in place into a patched layer sitting directly
// above previous with patch p, dropping any materialized text. Used
// when a mutable run is squashed but stops short of the root, because
// a pinned layer remains beneath it.
func (l *Layer) Reparent(previous *Layer, p *patch.Patch) {
	l.baseText = nil
	l.previous = previous
	l.patch = p
}

// Pin increments l's snapshot reference count, marking it (and every
// layer below it up to and including the base) as immutable: a pinned
// layer must never be spliced into directly again.
func (l *Layer) Pin() {
	for cur := l; cur != nil; cur = cur.previous {
		cur.snapshotCount++
	}
}

// Unpin reverses Pin.
func (l *Layer) Unpin() {
	for cur := l; cur != nil; cur = cur.previous {
		cur.snapshotCount--
	}
}

// IsMutable reports whether l may still be spliced into directly, i.e.
// no live Snapshot is pinning it.
func (l *Layer) IsMutable() bool { return l.snapshotCount == 0 }

// PinCount returns l's pin count: every Pin call on l or on a layer above
// it adds one, so a snapshot whose top sits above its base counts twice
// on that base. Exposed for debug introspection.
func (l *Layer) PinCount() int { return l.snapshotCount }

// Extent returns the Point just past l's last code unit.
func (l *Layer) Extent() text.Point {
	if l.IsBase() {
		return l.baseText.Extent()
	}
	changes := l.patch.Changes()
	if len(changes) == 0 {
		return l.previous.Extent()
	}
	last := changes[len(changes)-1]
	return last.NewEnd.Traverse(l.previous.Extent().Traversal(last.OldEnd))
}

// Size returns the total code-unit length of l's effective text.
func (l *Layer) Size() text.Offset {
	if l.IsBase() {
		return l.baseText.Size()
	}
	return l.ClipPosition(l.Extent()).Offset
}

// gapAnchors returns the new/old boundary a gap position is measured
// from: either the edge of the change preceding it, or the origin if
// there is no preceding change.
func gapAnchors(change *patch.Change) (newAnchor, oldAnchor text.Point) {
	if change == nil {
		return text.Zero, text.Zero
	}
	return change.NewEnd, change.OldEnd
}

// CharacterAt returns the code unit at a valid Point in l's effective text.
func (l *Layer) CharacterAt(pos text.Point) uint16 {
	if l.IsBase() {
		return l.baseText.At(pos)
	}
	change := l.patch.GetChangeStartingBeforeNewPosition(pos)
	if change != nil && pos.Before(change.NewEnd) {
		within := pos.Traversal(change.NewStart)
		off := change.NewText.ClipPosition(within).Offset
		return change.NewText.At(off)
	}
	newAnchor, oldAnchor := gapAnchors(change)
	return l.previous.CharacterAt(oldAnchor.Traverse(pos.Traversal(newAnchor)))
}

// ClipPosition maps pos to the nearest valid Point in l's effective text
// and its corresponding Offset, enforcing CRLF atomicity even where the
// pair straddles a patch boundary (the LF is in a change's replacement
// text and the CR is in the layer below it, or vice versa).
func (l *Layer) ClipPosition(pos text.Point) text.ClipResult {
	if l.IsBase() {
		return l.baseText.ClipPosition(pos)
	}

	change := l.patch.GetChangeStartingBeforeNewPosition(pos)
	if change != nil && pos.Before(change.NewEnd) {
		within := pos.Traversal(change.NewStart)
		clip := change.NewText.ClipPosition(within)

		if clip.Position.IsZero() && change.NewStart.Column > 0 && change.OldStart.Column > 0 {
			if first, ok := change.NewText.Front(); ok && first == '\n' {
				if l.previous.CharacterAt(change.OldStart.PreviousColumn()) == '\r' {
					return l.ClipPosition(change.NewStart.PreviousColumn())
				}
			}
		}

		return text.ClipResult{
			Position: change.NewStart.Traverse(clip.Position),
			Offset:   l.changeNewStartOffset(change) + clip.Offset,
		}
	}

	if change != nil && pos.Compare(change.NewEnd) == 0 {
		if last, ok := change.NewText.Back(); ok && last == '\r' {
			if l.previous.CharacterAt(change.OldEnd) == '\n' {
				return l.ClipPosition(change.NewEnd.PreviousColumn())
			}
		}
	}

	newAnchor, oldAnchor := gapAnchors(change)
	newAnchorOffset := l.changeNewEndOffset(change)
	oldAnchorOffset := l.previous.ClipPosition(oldAnchor).Offset

	prevClip := l.previous.ClipPosition(oldAnchor.Traverse(pos.Traversal(newAnchor)))

	return text.ClipResult{
		Position: newAnchor.Traverse(prevClip.Position.Traversal(oldAnchor)),
		Offset:   newAnchorOffset + (prevClip.Offset - oldAnchorOffset),
	}
}

// changeNewStartOffset returns the true cumulative new-space offset of
// change.NewStart. PrecedingNewTextSize alone only sums prior changes'
// replacement sizes; it omits the unmodified gaps between them, so the
// gap contribution is recovered here by querying the layer below for the
// true offset of change.OldStart.
func (l *Layer) changeNewStartOffset(change *patch.Change) text.Offset {
	return change.PrecedingNewTextSize + (l.previous.ClipPosition(change.OldStart).Offset - change.PrecedingOldTextSize)
}

func (l *Layer) changeNewEndOffset(change *patch.Change) text.Offset {
	if change == nil {
		return 0
	}
	return l.changeNewStartOffset(change) + change.NewText.Size()
}

// PositionForOffset converts a code-unit Offset in l's effective text to
// its Point.
func (l *Layer) PositionForOffset(offset text.Offset) text.Point {
	if l.IsBase() {
		return l.baseText.PositionForOffset(offset)
	}

	var anchorNew, anchorOld text.Point
	var anchorOffset text.Offset

	for _, c := range l.patch.Changes() {
		start := l.changeNewStartOffset(c)
		end := start + c.NewText.Size()
		if offset < start {
			break
		}
		if offset < end {
			return c.NewStart.Traverse(c.NewText.PositionForOffset(offset - start))
		}
		anchorNew, anchorOld, anchorOffset = c.NewEnd, c.OldEnd, end
	}

	anchorOldOffset := l.previous.ClipPosition(anchorOld).Offset
	prevPos := l.previous.PositionForOffset(anchorOldOffset + (offset - anchorOffset))
	return anchorNew.Traverse(prevPos.Traversal(anchorOld))
}

// firstChangeAfter returns the change with the smallest NewStart strictly
// greater than pos, or nil if none.
func firstChangeAfter(p *patch.Patch, pos text.Point) *patch.Change {
	for _, c := range p.Changes() {
		if c.NewStart.After(pos) {
			return c
		}
	}
	return nil
}

// ForEachChunkInRange calls fn with successive TextSlices covering
// [start, end) of l's effective text, in order, stopping early if fn
// returns false.
func (l *Layer) ForEachChunkInRange(start, end text.Point, fn func(text.TextSlice) bool) {
	if l.IsBase() {
		fn(l.baseText.SliceRange(text.Range{Start: start, End: end}))
		return
	}

	pos := start
	for pos.Before(end) {
		change := l.patch.GetChangeStartingBeforeNewPosition(pos)
		if change != nil && pos.Before(change.NewEnd) {
			segEnd := text.Min(end, change.NewEnd)
			within := pos.Traversal(change.NewStart)
			withinEnd := segEnd.Traversal(change.NewStart)
			if !fn(change.NewText.Slice(text.Range{Start: within, End: withinEnd})) {
				return
			}
			pos = segEnd
			continue
		}

		next := firstChangeAfter(l.patch, pos)
		gapEnd := end
		if next != nil && next.NewStart.Before(end) {
			gapEnd = next.NewStart
		}

		newAnchor, oldAnchor := gapAnchors(change)
		oldStart := oldAnchor.Traverse(pos.Traversal(newAnchor))
		oldEnd := oldAnchor.Traverse(gapEnd.Traversal(newAnchor))

		stopped := false
		l.previous.ForEachChunkInRange(oldStart, oldEnd, func(s text.TextSlice) bool {
			if !fn(s) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		pos = gapEnd
	}
}

// Materialize renders l's whole effective text into a fresh text.Text,
// reading it chunk by chunk through ForEachChunkInRange. Used when
// squashing a mutable run or flushing pending changes into a new base.
func (l *Layer) Materialize() *text.Text {
	if l.IsBase() {
		return text.New(append([]uint16(nil), l.baseText.Units()...))
	}
	units := make([]uint16, 0, l.Size())
	l.ForEachChunkInRange(text.Zero, l.Extent(), func(s text.TextSlice) bool {
		units = append(units, s.Data()...)
		return true
	})
	return text.New(units)
}

// IsModified reports whether l's effective text differs from base's, by
// walking chunks of both in lockstep and comparing content (short-
// circuiting via TextSlice.IdenticalTo wherever a chunk is an unmodified
// view into base itself).
func (l *Layer) IsModified(base *text.Text) bool {
	if l.IsBase() {
		return l.baseText != base && !l.baseText.Slice(0, l.baseText.Size()).Equal(base.Slice(0, base.Size()))
	}
	if l.Size() != text.Offset(len(base.Units())) {
		return true
	}
	modified := false
	var pos text.Offset
	l.ForEachChunkInRange(text.Zero, l.Extent(), func(s text.TextSlice) bool {
		if s.IdenticalTo(base, pos) {
			pos += s.Size()
			return true
		}
		baseSlice := base.Slice(pos, pos+s.Size())
		if !s.Equal(baseSlice) {
			modified = true
			return false
		}
		pos += s.Size()
		return true
	})
	return modified
}

// Splice replaces the span [newStart, newStart+oldExtent) of l's current
// effective text with newText, mapping the edit down through l's patch.
// It returns the change's corresponding old-space span (on the layer
// below) so that the caller can decide whether the edit collapsed to a
// no-op and should be erased rather than kept.
func (l *Layer) Splice(newStart, oldExtent, newExtent text.Point, newText text.TextSlice, oldTextSize text.Offset) *patch.Change {
	return l.patch.Splice(newStart, oldExtent, newExtent, newText, oldTextSize)
}

// SpliceOld erases the change with the given OldStart, collapsing a
// just-applied edit that turned out to be a no-op.
func (l *Layer) SpliceOld(oldStart text.Point) {
	l.patch.SpliceOld(oldStart)
}
