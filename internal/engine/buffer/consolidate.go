package buffer

import (
	"github.com/lestrrat-go/pdebug"

	"github.com/dshills/stratabuf/internal/engine/layer"
	"github.com/dshills/stratabuf/internal/engine/patch"
	"github.com/dshills/stratabuf/internal/engine/text"
)

func textSliceOf(t *text.Text) text.TextSlice {
	return t.Slice(0, t.Size())
}

// consolidate walks the layer chain from top to root, squashing each
// contiguous run of mutable (unpinned) layers into one. Pinning a layer
// also pins every layer below it down to the root (Layer.Pin walks the
// whole chain), so a single pass suffices: the first pinned layer
// encountered marks where the current run ends, and everything below
// it is already consolidated by an earlier snapshot's release.
func (b *TextBuffer) consolidate() {
	defer b.trace("consolidate")()

	var run []*layer.Layer
	cur := b.top
	for cur != nil {
		if !cur.IsMutable() {
			b.squashRun(run, cur)
			return
		}
		run = append(run, cur)
		if cur.IsBase() {
			b.squashRun(run, nil)
			return
		}
		cur = cur.Previous()
	}
	b.squashRun(run, nil)
}

// squashRun collapses run (ordered top-to-bottom) into its topmost
// element, which keeps its pointer identity so any outstanding
// reference to it (held only by b.top, since nothing in run is
// pinned) stays valid. below is the first immutable layer beneath the
// run, or nil if the run reaches the buffer's root.
func (b *TextBuffer) squashRun(run []*layer.Layer, below *layer.Layer) {
	if len(run) < 2 {
		return
	}
	top := run[0]

	if pdebug.Enabled {
		g := pdebug.Marker(b.label + ":squash")
		defer g.End()
	}

	merged := top.Materialize()

	if below == nil {
		top.BecomeBase(merged)
		b.base = top
		return
	}

	p := patch.FromReplacement(below.Extent(), below.Size(), textSliceOf(merged))
	top.Reparent(below, p)
}
