// Package main implements stratainspect, a debug CLI/TUI for inspecting a
// TextBuffer's layer stack and regex search matches.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/jessevdk/go-flags"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/pkg/errors"

	"github.com/dshills/stratabuf/internal/engine/buffer"
	"github.com/dshills/stratabuf/internal/engine/iregex"
	"github.com/dshills/stratabuf/internal/engine/text"
)

// Options are stratainspect's command-line flags.
type Options struct {
	File     string `short:"f" long:"file" description:"path to a text file to load into the buffer (default: stdin)"`
	Pattern  string `short:"p" long:"pattern" description:"regex pattern to search for across the buffer"`
	Label    string `short:"l" long:"label" default:"stratainspect" description:"debug label for the buffer, shown in the graph title"`
	Headless bool   `long:"headless" description:"print the layer graph and matches to stdout instead of opening the terminal UI"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.PrintErrors)
	if _, err := parser.ParseArgs(args); err != nil {
		return 1
	}

	b, err := loadBuffer(opts, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "stratainspect: %v\n", err)
		return 1
	}

	var matches []text.Range
	if opts.Pattern != "" {
		re, err := iregex.Compile(opts.Pattern)
		if err != nil {
			fmt.Fprintf(stderr, "stratainspect: bad pattern: %v\n", err)
			return 1
		}
		matches = b.SearchAll(re)
	}

	if opts.Headless {
		printReport(stdout, b, opts.Pattern, matches)
		return 0
	}

	if err := runTUI(b, opts.Pattern, matches); err != nil {
		fmt.Fprintf(stderr, "stratainspect: %v\n", err)
		return 1
	}
	return 0
}

func loadBuffer(opts Options, stdin io.Reader) (*buffer.TextBuffer, error) {
	var data []byte
	var err error
	if opts.File != "" {
		data, err = os.ReadFile(opts.File)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", opts.File)
		}
	} else {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "reading stdin")
		}
	}
	return buffer.NewFromString(string(data), buffer.WithLabel(opts.Label)), nil
}

func printReport(w io.Writer, b *buffer.TextBuffer, pattern string, matches []text.Range) {
	fmt.Fprintln(w, b.GetDotGraph())
	if pattern == "" {
		return
	}
	fmt.Fprintf(w, "matches for %q: %d\n", pattern, len(matches))
	for i, m := range matches {
		fmt.Fprintf(w, "  [%d] {%d,%d}-{%d,%d}\n", i, m.Start.Row, m.Start.Column, m.End.Row, m.End.Column)
	}
}

// runTUI opens a real terminal screen and renders the buffer's layer graph
// and search matches until the user quits with q or Esc.
func runTUI(b *buffer.TextBuffer, pattern string, matches []text.Range) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "creating terminal screen")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "initializing terminal screen")
	}
	defer screen.Fini()

	matchStyle := styleFromHex("#ffcc00")
	headerStyle := styleFromHex("#66ccff")

	for {
		draw(screen, b, pattern, matches, headerStyle, matchStyle)
		screen.Show()

		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
				return nil
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

func styleFromHex(hex string) tcell.Style {
	c, err := colorful.Hex(hex)
	if err != nil {
		return tcell.StyleDefault
	}
	r, g, bl := c.RGB255()
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(r), int32(g), int32(bl)))
}

func draw(screen tcell.Screen, b *buffer.TextBuffer, pattern string, matches []text.Range, headerStyle, matchStyle tcell.Style) {
	screen.Clear()
	width, height := screen.Size()

	drawLine(screen, 0, 0, "stratainspect", headerStyle)

	row := 2
	for _, line := range strings.Split(b.GetDotGraph(), "\n") {
		if row >= height-3 {
			break
		}
		drawLine(screen, 0, row, line, tcell.StyleDefault)
		row++
	}

	status := fmt.Sprintf("size=%d extent={%d,%d} modified=%v", b.Size(), b.Extent().Row, b.Extent().Column, b.IsModified())
	if pattern != "" {
		status += fmt.Sprintf(" | /%s/ matches=%d", pattern, len(matches))
	}
	status = runewidth.Truncate(status, width, "…")
	drawLine(screen, 0, height-2, status, matchStyle)
	drawLine(screen, 0, height-1, "press q or Esc to quit", tcell.StyleDefault)
}

func drawLine(screen tcell.Screen, x, y int, s string, style tcell.Style) {
	col := x
	for _, r := range s {
		screen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
}
