package layer

import (
	"testing"

	"github.com/dshills/stratabuf/internal/engine/iregex"
	"github.com/dshills/stratabuf/internal/engine/text"
)

func mustCompile(t *testing.T, pattern string) *iregex.Regex {
	t.Helper()
	re, err := iregex.Compile(pattern)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", pattern, err)
	}
	return re
}

func TestSearchInRangeFindsMatchOnBaseLayer(t *testing.T) {
	l := NewBase(text.FromString("the quick brown fox"))
	re := mustCompile(t, "brown")

	r, ok := l.SearchInRange(re, text.Range{Start: text.Zero, End: l.Extent()})
	if !ok {
		t.Fatal("SearchInRange() ok = false, want true")
	}
	if r.Start != (text.Point{Row: 0, Column: 10}) {
		t.Errorf("match Start = %v, want (0:10)", r.Start)
	}
	if r.End != (text.Point{Row: 0, Column: 15}) {
		t.Errorf("match End = %v, want (0:15)", r.End)
	}
}

func TestSearchInRangeNoMatch(t *testing.T) {
	l := NewBase(text.FromString("nothing here"))
	re := mustCompile(t, "zzz")

	_, ok := l.SearchInRange(re, text.Range{Start: text.Zero, End: l.Extent()})
	if ok {
		t.Error("SearchInRange() ok = true, want false")
	}
}

func TestSearchAllInRangeFindsEveryMatch(t *testing.T) {
	l := NewBase(text.FromString("cat cat cat"))
	re := mustCompile(t, "cat")

	matches := l.SearchAllInRange(re, text.Range{Start: text.Zero, End: l.Extent()})
	if len(matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(matches))
	}
	wantStarts := []uint32{0, 4, 8}
	for i, m := range matches {
		if m.Start.Column != wantStarts[i] {
			t.Errorf("matches[%d].Start.Column = %d, want %d", i, m.Start.Column, wantStarts[i])
		}
	}
}

func TestScanInRangeAcrossPatchChunks(t *testing.T) {
	base := NewBase(text.FromString("abcdefghij"))
	top := NewPatched(base)
	ins := text.FromUnits([]uint16{'X', 'Y', 'Z'})
	top.Splice(text.Point{Row: 0, Column: 5}, text.Point{}, ins.Extent(), ins, 0)
	// "abcdeXYZfghij"

	re := mustCompile(t, "eXYZf")
	r, ok := top.SearchInRange(re, text.Range{Start: text.Zero, End: top.Extent()})
	if !ok {
		t.Fatal("SearchInRange() ok = false, want true; the match spans gap, patch and gap chunks")
	}
	if r.Start != (text.Point{Row: 0, Column: 4}) {
		t.Errorf("match Start = %v, want (0:4)", r.Start)
	}
	if r.End != (text.Point{Row: 0, Column: 9}) {
		t.Errorf("match End = %v, want (0:9)", r.End)
	}
}

func TestScanInRangeStopsAtSearchRangeEnd(t *testing.T) {
	l := NewBase(text.FromString("cat cat cat"))
	re := mustCompile(t, "cat")

	matches := l.SearchAllInRange(re, text.Range{Start: text.Zero, End: text.Point{Row: 0, Column: 7}})
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2 when the search range cuts off before the third match", len(matches))
	}
}

func TestScanInRangeEmptyDocument(t *testing.T) {
	l := NewBase(text.Empty())
	re := mustCompile(t, "anything")

	_, ok := l.SearchInRange(re, text.Range{Start: text.Zero, End: l.Extent()})
	if ok {
		t.Error("SearchInRange() on an empty document ok = true, want false")
	}
}
