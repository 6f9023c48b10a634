package iregex

import (
	"regexp/syntax"

	"github.com/pkg/errors"
)

type opcode uint8

const (
	opChar opcode = iota
	opAny
	opAnyNotNL
	opClass
	opSplit
	opJmp
	opBeginText
	opEndText
	opMatch
)

type codeRange struct{ lo, hi uint16 }

type inst struct {
	op     opcode
	c      uint16
	ranges []codeRange
	x, y   int // opSplit: two successors. opJmp: x is the target.
}

// program is the compiled instruction list for a pattern, plus the
// source text for diagnostics.
type program struct {
	insts   []inst
	pattern string
}

// compile parses pattern with regexp/syntax and lowers it to a flat
// instruction list via Thompson construction with backpatched jumps.
func compile(pattern string) (*program, error) {
	parsed, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, errors.Wrapf(err, "iregex: parsing pattern %q", pattern)
	}
	parsed = parsed.Simplify()

	c := &compiler{}
	c.node(parsed)
	c.emit(inst{op: opMatch})

	return &program{insts: c.insts, pattern: pattern}, nil
}

type compiler struct {
	insts []inst
}

func (c *compiler) emit(i inst) int {
	c.insts = append(c.insts, i)
	return len(c.insts) - 1
}

// node compiles re and every descendant, appending instructions in place.
func (c *compiler) node(re *syntax.Regexp) {
	switch re.Op {
	case syntax.OpNoMatch:
		c.emit(inst{op: opSplit, x: -1, y: -1}) // never taken, dead branch
	case syntax.OpEmptyMatch:
		// no-op: matches the empty string
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			c.emit(inst{op: opChar, c: uint16(r)})
		}
	case syntax.OpCharClass:
		ranges := make([]codeRange, 0, len(re.Rune)/2)
		for i := 0; i+1 < len(re.Rune); i += 2 {
			ranges = append(ranges, codeRange{lo: uint16(re.Rune[i]), hi: uint16(re.Rune[i+1])})
		}
		c.emit(inst{op: opClass, ranges: ranges})
	case syntax.OpAnyCharNotNL:
		c.emit(inst{op: opAnyNotNL})
	case syntax.OpAnyChar:
		c.emit(inst{op: opAny})
	case syntax.OpBeginLine, syntax.OpBeginText:
		c.emit(inst{op: opBeginText})
	case syntax.OpEndLine, syntax.OpEndText:
		c.emit(inst{op: opEndText})
	case syntax.OpCapture:
		c.node(re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			c.node(sub)
		}
	case syntax.OpAlternate:
		c.alternate(re.Sub)
	case syntax.OpStar:
		c.star(re.Sub[0], re.Flags&syntax.NonGreedy != 0)
	case syntax.OpPlus:
		c.plus(re.Sub[0], re.Flags&syntax.NonGreedy != 0)
	case syntax.OpQuest:
		c.quest(re.Sub[0], re.Flags&syntax.NonGreedy != 0)
	case syntax.OpRepeat:
		c.repeat(re.Sub[0], re.Min, re.Max, re.Flags&syntax.NonGreedy != 0)
	default:
		// Unsupported node (word boundaries and the like): treat as a
		// zero-width no-op rather than failing compilation outright.
	}
}

func (c *compiler) alternate(subs []*syntax.Regexp) {
	if len(subs) == 1 {
		c.node(subs[0])
		return
	}
	splitIdx := c.emit(inst{op: opSplit})
	c.insts[splitIdx].x = len(c.insts)
	c.node(subs[0])
	jmpIdx := c.emit(inst{op: opJmp})
	c.insts[splitIdx].y = len(c.insts)
	c.alternate(subs[1:])
	c.insts[jmpIdx].x = len(c.insts)
}

func (c *compiler) star(sub *syntax.Regexp, lazy bool) {
	splitIdx := c.emit(inst{op: opSplit})
	bodyStart := len(c.insts)
	c.node(sub)
	c.emit(inst{op: opJmp, x: splitIdx})
	after := len(c.insts)
	if lazy {
		c.insts[splitIdx].x, c.insts[splitIdx].y = after, bodyStart
	} else {
		c.insts[splitIdx].x, c.insts[splitIdx].y = bodyStart, after
	}
}

func (c *compiler) plus(sub *syntax.Regexp, lazy bool) {
	bodyStart := len(c.insts)
	c.node(sub)
	splitIdx := c.emit(inst{op: opSplit})
	after := len(c.insts)
	if lazy {
		c.insts[splitIdx].x, c.insts[splitIdx].y = after, bodyStart
	} else {
		c.insts[splitIdx].x, c.insts[splitIdx].y = bodyStart, after
	}
}

func (c *compiler) quest(sub *syntax.Regexp, lazy bool) {
	splitIdx := c.emit(inst{op: opSplit})
	bodyStart := len(c.insts)
	c.node(sub)
	after := len(c.insts)
	if lazy {
		c.insts[splitIdx].x, c.insts[splitIdx].y = after, bodyStart
	} else {
		c.insts[splitIdx].x, c.insts[splitIdx].y = bodyStart, after
	}
}

// repeatCap bounds how many optional copies (max - min) repeat() will
// unroll for a bounded repetition, to keep pathological patterns from
// blowing up compile time. An unbounded upper limit compiles to a star
// loop and needs no cap.
const repeatCap = 1000

func (c *compiler) repeat(sub *syntax.Regexp, min, max int, lazy bool) {
	for i := 0; i < min; i++ {
		c.node(sub)
	}
	if max == -1 {
		c.star(sub, lazy)
		return
	}
	n := max - min
	if n > repeatCap {
		n = repeatCap
	}
	for i := 0; i < n; i++ {
		c.quest(sub, lazy)
	}
}
