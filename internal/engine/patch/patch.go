// Package patch implements the differential container the layered buffer
// splices its edits into: a set of non-overlapping Change records mapping
// old ranges (on the layer below) to new ranges (in the patched layer's
// own coordinate space).
//
// Patch's internal representation is explicitly out of scope for the
// layered-buffer spec this package backs (only its query/splice contract
// is consumed); this implementation favors a correct, readable splice
// algorithm over the splay-tree self-balancing the original keeps. See
// DESIGN.md for the tradeoffs this buys.
package patch

import (
	"github.com/google/btree"

	"github.com/dshills/stratabuf/internal/engine/text"
)

// Change is one record in a Patch: the span [OldStart, OldEnd) on the
// layer below is replaced by NewText, landing at [NewStart, NewEnd) in
// this patch's own coordinate space.
type Change struct {
	OldStart, OldEnd text.Point
	NewStart, NewEnd text.Point
	NewText          text.TextSlice
	OldTextSize      text.Offset

	// PrecedingOldTextSize/PrecedingNewTextSize are the cumulative sizes
	// of every change before this one in Patch order, giving O(1) offset
	// math once the preceding change has been located.
	PrecedingOldTextSize text.Offset
	PrecedingNewTextSize text.Offset
}

// changeItem adapts *Change to btree.Item, ordering by NewStart.
type changeItem struct{ c *Change }

func (a changeItem) Less(other btree.Item) bool {
	return a.c.NewStart.Compare(other.(changeItem).c.NewStart) < 0
}

// Patch is an ordered, non-overlapping set of Changes in new-space order.
// Lookups by new position go through a btree index; the canonical change
// list is a plain sorted slice so that Splice can freely examine and
// replace runs of overlapping neighbors.
type Patch struct {
	changes []*Change
	index   *btree.BTree
}

// New returns an empty Patch.
func New() *Patch {
	return &Patch{index: btree.New(32)}
}

// Clone returns a copy holding its own copy of every Change (rebuildIndex
// rewrites each Change's Preceding sizes in place), so splicing either
// patch leaves the other untouched.
func (p *Patch) Clone() *Patch {
	out := &Patch{changes: make([]*Change, len(p.changes)), index: btree.New(32)}
	for i, c := range p.changes {
		cc := *c
		out.changes[i] = &cc
	}
	out.rebuildIndex()
	return out
}

// IsEmpty reports whether the patch has no changes.
func (p *Patch) IsEmpty() bool { return len(p.changes) == 0 }

// Changes returns the patch's changes in ascending NewStart order. The
// returned slice must not be mutated.
func (p *Patch) Changes() []*Change { return p.changes }

func (p *Patch) rebuildIndex() {
	p.index = btree.New(32)
	var precedingOld, precedingNew text.Offset
	for _, c := range p.changes {
		c.PrecedingOldTextSize = precedingOld
		c.PrecedingNewTextSize = precedingNew
		precedingOld += c.OldTextSize
		precedingNew += c.NewText.Size()
		p.index.ReplaceOrInsert(changeItem{c})
	}
}

// GetChangeStartingBeforeNewPosition returns the change with the greatest
// NewStart <= pos, or nil if pos precedes every change.
func (p *Patch) GetChangeStartingBeforeNewPosition(pos text.Point) *Change {
	var result *Change
	pivot := changeItem{&Change{NewStart: pos}}
	p.index.DescendLessOrEqual(pivot, func(item btree.Item) bool {
		result = item.(changeItem).c
		return false
	})
	return result
}

// GetChangesInNewRange returns changes with NewStart in [start, end), in
// ascending order.
func (p *Patch) GetChangesInNewRange(start, end text.Point) []*Change {
	var result []*Change
	lo := changeItem{&Change{NewStart: start}}
	hi := changeItem{&Change{NewStart: end}}
	p.index.AscendRange(lo, hi, func(item btree.Item) bool {
		result = append(result, item.(changeItem).c)
		return true
	})
	return result
}

// gapOldPosition maps a new-space point p, known to fall strictly after
// anchor's new-range (or before the first change, if anchor is nil), to
// its corresponding old-space point.
func gapOldPosition(anchor *Change, p text.Point) text.Point {
	if anchor == nil {
		return p
	}
	return anchor.OldEnd.Traverse(p.Traversal(anchor.NewEnd))
}

// Splice replaces the span of length deletedExtent starting at newStart
// (in this patch's current new-coordinate space) with insertedExtent-sized
// newText. It returns the single merged Change that now occupies that
// span, folding in (and discarding) any changes it overlapped.
func (p *Patch) Splice(newStart, deletedExtent, insertedExtent text.Point, newText text.TextSlice, deletedTextSize text.Offset) *Change {
	newEnd := newStart.Traverse(deletedExtent)

	startAnchor := p.GetChangeStartingBeforeNewPosition(newStart)
	var oldStart text.Point
	if startAnchor != nil && newStart.Before(startAnchor.NewEnd) {
		oldStart = startAnchor.OldStart
	} else {
		oldStart = gapOldPosition(startAnchor, newStart)
	}

	endAnchor := p.GetChangeStartingBeforeNewPosition(newEnd)
	var oldEnd text.Point
	if endAnchor != nil && newEnd.Before(endAnchor.NewEnd) {
		oldEnd = endAnchor.OldEnd
	} else {
		oldEnd = gapOldPosition(endAnchor, newEnd)
	}

	// Changes strictly overlapping [newStart, newEnd) are fully consumed.
	first := len(p.changes)
	last := 0
	for i, c := range p.changes {
		if c.NewStart.Before(newEnd) && c.NewEnd.After(newStart) {
			if i < first {
				first = i
			}
			if i+1 > last {
				last = i + 1
			}
		}
	}
	if first > last {
		// No overlap: the new change goes after every change ending at or
		// before newStart.
		first = 0
		for first < len(p.changes) && !p.changes[first].NewEnd.After(newStart) {
			first++
		}
		last = first
	}

	merged := &Change{
		OldStart:    oldStart,
		OldEnd:      oldEnd,
		NewStart:    newStart,
		NewEnd:      newStart.Traverse(insertedExtent),
		NewText:     newText,
		OldTextSize: deletedTextSize,
	}

	before := p.changes[:first]
	after := p.changes[last:]

	shifted := make([]*Change, len(after))
	for i, c := range after {
		shifted[i] = &Change{
			OldStart:    c.OldStart,
			OldEnd:      c.OldEnd,
			NewStart:    merged.NewEnd.Traverse(c.NewStart.Traversal(newEnd)),
			NewEnd:      merged.NewEnd.Traverse(c.NewEnd.Traversal(newEnd)),
			NewText:     c.NewText,
			OldTextSize: c.OldTextSize,
		}
	}

	result := make([]*Change, 0, len(before)+1+len(shifted))
	result = append(result, before...)
	result = append(result, merged)
	result = append(result, shifted...)
	p.changes = result
	p.rebuildIndex()

	return merged
}

// SpliceOld removes the change whose OldStart equals oldStart. It is used
// to collapse a just-spliced change back out when it turned out to be a
// no-op (same-sized replacement with identical content).
func (p *Patch) SpliceOld(oldStart text.Point) {
	for i, c := range p.changes {
		if c.OldStart == oldStart {
			p.changes = append(p.changes[:i], p.changes[i+1:]...)
			p.rebuildIndex()
			return
		}
	}
}

// NewPositionForNewOffset finds the Point in this patch's new-coordinate
// space corresponding to goalOffset, consulting the layer below through
// the two supplied callbacks for positions/offsets outside any change.
func (p *Patch) NewPositionForNewOffset(goalOffset text.Offset, oldPositionToOffset func(text.Point) text.Offset, oldOffsetToPosition func(text.Offset) text.Point) text.Point {
	var lastNewEnd, lastOldEnd text.Point
	var newAnchorOffset text.Offset

	for _, c := range p.changes {
		newStartOffset := c.PrecedingNewTextSize + (oldPositionToOffset(c.OldStart) - c.PrecedingOldTextSize)
		newEndOffset := newStartOffset + c.NewText.Size()

		if goalOffset < newStartOffset {
			break
		}
		if goalOffset < newEndOffset {
			return c.NewStart.Traverse(c.NewText.PositionForOffset(goalOffset - newStartOffset))
		}
		lastNewEnd, lastOldEnd, newAnchorOffset = c.NewEnd, c.OldEnd, newEndOffset
	}

	oldGoalOffset := oldPositionToOffset(lastOldEnd) + (goalOffset - newAnchorOffset)
	oldPosition := oldOffsetToPosition(oldGoalOffset)
	return lastNewEnd.Traverse(oldPosition.Traversal(lastOldEnd))
}

// FromReplacement builds a Patch with a single Change that replaces the
// entire previous-layer document (of the given extent/size) with newText.
// This is deliberately non-minimal: it is used only when composing the
// patches of several layers together (squashing, serialization, change
// inversion), where Patch's internal combination algorithm is explicitly
// outside this spec's scope and a single coarse Change is just as correct
// as a minimal diff for every contract Layer relies on.
func FromReplacement(oldExtent text.Point, oldSize text.Offset, newText text.TextSlice) *Patch {
	p := New()
	if oldExtent.IsZero() && oldSize == 0 && newText.IsEmpty() {
		return p
	}
	p.changes = []*Change{{
		OldStart:    text.Zero,
		OldEnd:      oldExtent,
		NewStart:    text.Zero,
		NewEnd:      newText.Extent(),
		NewText:     newText,
		OldTextSize: oldSize,
	}}
	p.rebuildIndex()
	return p
}
