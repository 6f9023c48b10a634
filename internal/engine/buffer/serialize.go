package buffer

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/dshills/stratabuf/internal/engine/layer"
	"github.com/dshills/stratabuf/internal/engine/patch"
	"github.com/dshills/stratabuf/internal/engine/text"
)

var serializeMagic = []byte("SBPC") // Stratabuf Pending Changes

const serializeVersion = 1

// InvertedChange is one instruction for undoing a composed edit: it
// replaces [Range.Start, Range.End) of the buffer's current text
// (currently holding Replacement's complement) with Replacement, the
// literal content the snapshot's base held there.
type InvertedChange struct {
	Range           text.Range
	Replacement     text.TextSlice
	DeletedTextSize text.Offset
}

// composeSinceBase renders the single coarse Change mapping base's
// extent/size to top's full materialized text, or nil if top is base
// (no pending changes to compose).
func composeSinceBase(base, top *layer.Layer) *patch.Change {
	if base == top {
		return nil
	}
	newText := textSliceOf(top.Materialize())
	p := patch.FromReplacement(base.Extent(), base.Size(), newText)
	changes := p.Changes()
	if len(changes) == 0 {
		return nil
	}
	return changes[0]
}

// SerializeChanges writes the buffer's pending changes (everything
// accumulated above its current base layer) to w: the top layer's
// size and extent, followed by the single composed Patch describing
// how to reach it from the base.
func (b *TextBuffer) SerializeChanges(w io.Writer) error {
	defer b.trace("SerializeChanges")()

	bw := bufio.NewWriter(w)

	if _, err := bw.Write(serializeMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(serializeVersion)); err != nil {
		return err
	}

	size := b.top.Size()
	extent := b.top.Extent()
	if err := binary.Write(bw, binary.LittleEndian, uint32(size)); err != nil {
		return err
	}
	if err := writePoint(bw, extent); err != nil {
		return err
	}

	change := composeSinceBase(b.base, b.top)
	if change == nil {
		if err := binary.Write(bw, binary.LittleEndian, uint32(0)); err != nil {
			return err
		}
		return bw.Flush()
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(1)); err != nil {
		return err
	}
	if err := writePoint(bw, change.OldEnd); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(change.OldTextSize)); err != nil {
		return err
	}
	if err := writeUnits(bw, change.NewText.Data()); err != nil {
		return err
	}

	return bw.Flush()
}

// DeserializeChanges reads a set of pending changes written by
// SerializeChanges and applies them as a new top layer above the
// buffer's base. It only succeeds when the buffer is currently a
// single, pristine base layer (b.top == b.base); otherwise it returns
// ErrNotPristineBase without modifying the buffer.
func (b *TextBuffer) DeserializeChanges(r io.Reader) (bool, error) {
	defer b.trace("DeserializeChanges")()

	if b.top != b.base {
		return false, ErrNotPristineBase
	}

	br := bufio.NewReader(r)

	magic := make([]byte, len(serializeMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return false, err
	}
	if string(magic) != string(serializeMagic) {
		return false, ErrBadMagic
	}

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return false, err
	}
	if version != serializeVersion {
		return false, ErrVersionMismatch
	}

	var size uint32
	if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
		return false, err
	}
	if _, err := readPoint(br); err != nil { // extent: validated implicitly by the patch below
		return false, err
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return false, err
	}
	if count == 0 {
		return true, nil
	}

	oldExtent, err := readPoint(br)
	if err != nil {
		return false, err
	}
	var oldTextSize uint32
	if err := binary.Read(br, binary.LittleEndian, &oldTextSize); err != nil {
		return false, err
	}
	units, err := readUnits(br)
	if err != nil {
		return false, err
	}

	p := patch.FromReplacement(oldExtent, text.Offset(oldTextSize), text.FromUnits(units))
	b.top = layer.NewPatchedWith(b.base, p)
	return true, nil
}

// GetInvertedChanges composes the patches between snap's base and the
// buffer's current top, then for each resulting Change synthesizes the
// InvertedChange that would undo it: replacing the range the change
// currently occupies in the buffer's text with the original content
// sliced from snap's base. The result is ordered so that applying it
// in order (highest NewStart first) to the buffer's current text
// restores the text snap was taken over.
func (b *TextBuffer) GetInvertedChanges(snap *Snapshot) []InvertedChange {
	defer b.trace("GetInvertedChanges")()

	change := composeSinceBase(snap.base, b.top)
	if change == nil {
		return nil
	}
	baseText := snap.base.BaseText()
	return []InvertedChange{{
		Range:           text.Range{Start: change.NewStart, End: change.NewEnd},
		Replacement:     baseText.SliceRange(text.Range{Start: change.OldStart, End: change.OldEnd}),
		DeletedTextSize: change.NewText.Size(),
	}}
}

func writePoint(w io.Writer, p text.Point) error {
	if err := binary.Write(w, binary.LittleEndian, p.Row); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, p.Column)
}

func readPoint(r io.Reader) (text.Point, error) {
	var p text.Point
	if err := binary.Read(r, binary.LittleEndian, &p.Row); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.LittleEndian, &p.Column); err != nil {
		return p, err
	}
	return p, nil
}

func writeUnits(w io.Writer, units []uint16) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(units))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, units)
}

func readUnits(r io.Reader) ([]uint16, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	units := make([]uint16, n)
	if err := binary.Read(r, binary.LittleEndian, units); err != nil {
		return nil, err
	}
	return units, nil
}
