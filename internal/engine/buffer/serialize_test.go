package buffer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dshills/stratabuf/internal/engine/text"
)

func textRange(startCol, endCol uint32) text.Range {
	return text.Range{Start: text.Point{Column: startCol}, End: text.Point{Column: endCol}}
}

func rangeFrom(start, end text.Point) text.Range {
	return text.Range{Start: start, End: end}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	src := NewFromString("hello world")
	src.SetTextInRange(textRange(0, 5), "goodbye")

	var buf bytes.Buffer
	if err := src.SerializeChanges(&buf); err != nil {
		t.Fatalf("SerializeChanges() error = %v", err)
	}

	dst := NewFromString("hello world")
	ok, err := dst.DeserializeChanges(&buf)
	if err != nil {
		t.Fatalf("DeserializeChanges() error = %v", err)
	}
	if !ok {
		t.Fatal("DeserializeChanges() ok = false, want true")
	}
	if got, want := dst.Text(), src.Text(); got != want {
		t.Errorf("dst.Text() = %q, want %q", got, want)
	}
}

func TestSerializeChangesNoopWhenUnmodified(t *testing.T) {
	src := NewFromString("hello world")

	var buf bytes.Buffer
	if err := src.SerializeChanges(&buf); err != nil {
		t.Fatalf("SerializeChanges() error = %v", err)
	}

	dst := NewFromString("hello world")
	ok, err := dst.DeserializeChanges(&buf)
	if err != nil {
		t.Fatalf("DeserializeChanges() error = %v", err)
	}
	if !ok {
		t.Fatal("DeserializeChanges() ok = false, want true")
	}
	if dst.IsModified() {
		t.Error("IsModified() = true after deserializing an empty change set, want false")
	}
}

func TestDeserializeChangesRejectsNonPristineBuffer(t *testing.T) {
	src := NewFromString("hello world")
	var buf bytes.Buffer
	if err := src.SerializeChanges(&buf); err != nil {
		t.Fatalf("SerializeChanges() error = %v", err)
	}

	dst := NewFromString("hello world")
	dst.SetText("already edited")

	ok, err := dst.DeserializeChanges(&buf)
	if ok {
		t.Error("DeserializeChanges() ok = true on a non-pristine buffer, want false")
	}
	if err != ErrNotPristineBase {
		t.Errorf("DeserializeChanges() error = %v, want ErrNotPristineBase", err)
	}
}

func TestDeserializeChangesRejectsBadMagic(t *testing.T) {
	dst := NewFromString("hello world")
	_, err := dst.DeserializeChanges(strings.NewReader("not a stratabuf stream"))
	if err != ErrBadMagic {
		t.Errorf("DeserializeChanges() error = %v, want ErrBadMagic", err)
	}
}

func TestGetInvertedChangesRestoresSnapshotText(t *testing.T) {
	b := NewFromString("hello world")
	snap := b.CreateSnapshot()

	b.SetTextInRange(textRange(6, 11), "there")
	if got := b.Text(); got != "hello there" {
		t.Fatalf("Text() = %q, want %q", got, "hello there")
	}

	inverted := b.GetInvertedChanges(snap)
	if len(inverted) != 1 {
		t.Fatalf("len(GetInvertedChanges()) = %d, want 1", len(inverted))
	}
	inv := inverted[0]
	restored := b.TextInRange(textRange(0, inv.Range.Start.Column)) +
		inv.Replacement.String() +
		b.TextInRange(rangeFrom(inv.Range.End, b.Extent()))
	if restored != "hello world" {
		t.Errorf("text reconstructed from the inverted change = %q, want %q", restored, "hello world")
	}
	snap.Release()
}
