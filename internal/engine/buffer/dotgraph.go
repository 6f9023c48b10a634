package buffer

import (
	"fmt"
	"strings"

	"github.com/dshills/stratabuf/internal/engine/layer"
)

// GetDotGraph renders b's layer stack as a Graphviz DOT digraph, top
// layer first, for inspecting layer lifetimes and pin state while
// debugging.
func (b *TextBuffer) GetDotGraph() string {
	var sb strings.Builder

	title := b.label
	if title == "" {
		title = "TextBuffer"
	}
	fmt.Fprintf(&sb, "digraph %q {\n", title)
	sb.WriteString("    rankdir=BT;\n")
	sb.WriteString("    node [shape=box];\n\n")

	id := func(l *layer.Layer) string { return fmt.Sprintf("layer_%p", l) }

	for l := b.top; l != nil; l = l.Previous() {
		label := fmt.Sprintf("size=%d pins=%d", l.Size(), l.PinCount())
		switch {
		case l.IsBase():
			label = "base\\n" + label
		default:
			label = "patch\\n" + label
		}
		if l == b.top {
			label += "\\n(top)"
		}
		if l == b.base {
			label += "\\n(base)"
		}
		fmt.Fprintf(&sb, "    %s [label=%q];\n", id(l), label)
		if prev := l.Previous(); prev != nil {
			fmt.Fprintf(&sb, "    %s -> %s;\n", id(l), id(prev))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
