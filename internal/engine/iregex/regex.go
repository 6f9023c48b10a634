package iregex

import "github.com/dshills/stratabuf/internal/engine/text"

// ResultType classifies a Match outcome.
type ResultType uint8

const (
	// None means the data scanned so far cannot match, with or without
	// more input.
	None ResultType = iota
	// Partial means a match may still be completing; the caller should
	// retain data from StartOffset and retry once more input is available.
	Partial
	// Full means a match completed within the data scanned.
	Full
	// Error means the match could not proceed (unreachable for a Regex
	// built via Compile, which rejects bad patterns up front; kept so
	// callers can treat Result uniformly without a separate error return).
	Error
)

// Result is the outcome of one Match call.
type Result struct {
	Type        ResultType
	StartOffset text.Offset
	EndOffset   text.Offset
}

// Regex is a compiled, incrementally-matchable pattern.
type Regex struct {
	prog *program
}

// Compile parses and lowers pattern into a Regex ready for incremental
// matching.
func Compile(pattern string) (*Regex, error) {
	p, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{prog: p}, nil
}

// MatchData is reusable scratch space for Match, avoiding a fresh thread-
// list allocation on every call. It carries no state between calls: each
// Match call scans its given data slice as an independent attempt.
type MatchData struct {
	clist, nlist threadList
	visited      []int
	gen          int
}

// NewMatchData allocates scratch space sized for this regex's program.
func (r *Regex) NewMatchData() *MatchData {
	n := len(r.prog.insts)
	return &MatchData{
		clist:   threadList{threads: make([]thread, 0, n)},
		nlist:   threadList{threads: make([]thread, 0, n)},
		visited: make([]int, n),
	}
}

type thread struct {
	pc    int
	start int
}

type threadList struct {
	threads []thread
}

func (l *threadList) reset() { l.threads = l.threads[:0] }

// Match scans data (a contiguous run of UTF-16 code units) for the
// leftmost match of r's pattern. isFinal tells the engine no more data
// will follow this call's slice; without it, a still-possible-but-
// unresolved match is reported as Partial instead of None.
func (r *Regex) Match(data []uint16, md *MatchData, isFinal bool) Result {
	md.gen++
	md.clist.reset()
	md.nlist.reset()

	insts := r.prog.insts
	curPos := 0 // position in data of the threads being added

	addThread := func(list *threadList, pc, start int) {
		var add func(pc, start int)
		add = func(pc, start int) {
			if pc < 0 || md.visited[pc] == md.gen {
				return
			}
			md.visited[pc] = md.gen
			switch insts[pc].op {
			case opJmp:
				add(insts[pc].x, start)
			case opSplit:
				add(insts[pc].x, start)
				add(insts[pc].y, start)
			case opBeginText:
				if start == 0 {
					add(pc+1, start)
				}
			case opEndText:
				// Passable only at the end of data. When more input may
				// follow, the thread stays pending instead of passing.
				if curPos == len(data) {
					if isFinal {
						add(pc+1, start)
					} else {
						list.threads = append(list.threads, thread{pc: pc, start: start})
					}
				}
			default:
				list.threads = append(list.threads, thread{pc: pc, start: start})
			}
		}
		add(pc, start)
	}

	var matched bool
	var matchStart, matchEnd int

	step := func(pos int, c uint16, haveChar bool) {
		md.gen++
		curPos = pos + 1
		md.nlist.reset()
		for i := 0; i < len(md.clist.threads); i++ {
			th := md.clist.threads[i]
			in := insts[th.pc]
			switch in.op {
			case opMatch:
				matched = true
				matchStart, matchEnd = th.start, pos
				// Lower-priority threads this round cannot improve on a
				// higher-priority thread's match; stop considering them,
				// but keep whatever higher-priority threads already made
				// it into nlist.
				goto doneThreads
			case opChar:
				if haveChar && c == in.c {
					addThread(&md.nlist, th.pc+1, th.start)
				}
			case opAny:
				if haveChar {
					addThread(&md.nlist, th.pc+1, th.start)
				}
			case opAnyNotNL:
				if haveChar && c != '\n' {
					addThread(&md.nlist, th.pc+1, th.start)
				}
			case opClass:
				if haveChar && inRanges(in.ranges, c) {
					addThread(&md.nlist, th.pc+1, th.start)
				}
			}
		}
	doneThreads:
		md.clist, md.nlist = md.nlist, md.clist
	}

	addThread(&md.clist, 0, 0)

	for pos := 0; pos < len(data); pos++ {
		step(pos, data[pos], true)
		if !matched {
			addThread(&md.clist, 0, pos+1)
		}
	}

	// Threads still pending real input, as of the end of data but before
	// resolving any that sit at opMatch purely via epsilon closure.
	pending := append([]thread(nil), md.clist.threads...)
	alive := hasPendingThread(insts, pending)

	step(len(data), 0, false)

	switch {
	case matched && !alive:
		return Result{Type: Full, StartOffset: text.Offset(matchStart), EndOffset: text.Offset(matchEnd)}
	case matched && alive && isFinal:
		return Result{Type: Full, StartOffset: text.Offset(matchStart), EndOffset: text.Offset(matchEnd)}
	case matched && alive && !isFinal:
		return Result{Type: Partial, StartOffset: text.Offset(earliestStart(pending, matchStart)), EndOffset: text.Offset(len(data))}
	case !matched && alive && !isFinal:
		return Result{Type: Partial, StartOffset: text.Offset(earliestStart(pending, len(data))), EndOffset: text.Offset(len(data))}
	default:
		return Result{Type: None, StartOffset: text.Offset(len(data)), EndOffset: text.Offset(len(data))}
	}
}

func hasPendingThread(insts []inst, threads []thread) bool {
	for _, th := range threads {
		if insts[th.pc].op != opMatch {
			return true
		}
	}
	return false
}

func earliestStart(threads []thread, fallback int) int {
	earliest := fallback
	for _, th := range threads {
		if th.start < earliest {
			earliest = th.start
		}
	}
	return earliest
}

func inRanges(ranges []codeRange, c uint16) bool {
	for _, r := range ranges {
		if c >= r.lo && c <= r.hi {
			return true
		}
	}
	return false
}
