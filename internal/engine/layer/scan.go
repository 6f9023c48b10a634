package layer

import (
	"github.com/dshills/stratabuf/internal/engine/iregex"
	"github.com/dshills/stratabuf/internal/engine/text"
)

// maxChunkSizeToCopy bounds how much of a still-unresolved partial match's
// prefix scan_in_range will retain across chunk boundaries, so a pattern
// that never resolves can't grow the retained buffer without limit.
const maxChunkSizeToCopy = 1024

// ScanInRange calls onMatch for every non-overlapping match of re within
// searchRange, without ever materializing the layer's full effective
// text: chunks are requested from ForEachChunkInRange and fed to the
// regex incrementally, re-trying the unresolved tail of any Partial
// result against the next chunk.
//
// A Full match that ends exactly on a CR at the edge of the data seen
// so far is held back rather than emitted immediately: until the next
// chunk's leading code unit is known, there's no way to tell whether
// that CR is the first half of an atomic CRLF pair. If the next chunk
// begins with LF, the held-back match's end Point is walked one column
// back onto the CR, so the reported Range never addresses the LF of a
// CRLF pair — consistent with ClipPosition's atomicity guarantee.
//
// Returns early if onMatch returns false.
func (l *Layer) ScanInRange(re *iregex.Regex, searchRange text.Range, onMatch func(text.Range) bool) {
	matchData := re.NewMatchData()

	buf := make([]uint16, 0, 256)
	bufStart := searchRange.Start
	pos := searchRange.Start

	resume := func(consumedThroughAbs text.Point, consumedUnits text.Offset) {
		buf = buf[consumedUnits:]
		bufStart = consumedThroughAbs
	}

	var pendingRange text.Range
	var pendingAdvance, pendingEndOffset text.Offset
	hasPending := false

	emitPending := func() bool {
		r := pendingRange
		advance := pendingAdvance
		hasPending = false
		if !onMatch(r) {
			return false
		}
		bufSlice := text.FromUnits(buf)
		resume(bufStart.Traverse(bufSlice.PositionForOffset(advance)), advance)
		return true
	}

	l.ForEachChunkInRange(searchRange.Start, searchRange.End, func(chunk text.TextSlice) bool {
		buf = append(buf, chunk.Data()...)
		pos = pos.Traverse(chunk.Extent())
		isFinal := !pos.Before(searchRange.End)

		if hasPending {
			if int(pendingEndOffset) < len(buf) && buf[pendingEndOffset] == '\n' {
				pendingRange.End = pendingRange.End.PreviousColumn()
			}
			if !emitPending() {
				return false
			}
		}

		for {
			result := re.Match(buf, matchData, isFinal)
			switch result.Type {
			case iregex.Full:
				bufSlice := text.FromUnits(buf)
				endsInCR := result.EndOffset > result.StartOffset &&
					int(result.EndOffset) == len(buf) &&
					buf[result.EndOffset-1] == '\r'
				startPos := bufStart.Traverse(bufSlice.PositionForOffset(result.StartOffset))
				endPos := bufStart.Traverse(bufSlice.PositionForOffset(result.EndOffset))
				if result.EndOffset > 0 && int(result.EndOffset) < len(buf) &&
					buf[result.EndOffset-1] == '\r' && buf[result.EndOffset] == '\n' {
					endPos = endPos.PreviousColumn()
				}

				if endsInCR && !isFinal {
					pendingRange = text.Range{Start: startPos, End: endPos}
					pendingAdvance = result.EndOffset
					pendingEndOffset = result.EndOffset
					hasPending = true
					return true
				}

				if !onMatch(text.Range{Start: startPos, End: endPos}) {
					return false
				}
				advance := result.EndOffset
				if advance == result.StartOffset && advance < text.Offset(len(buf)) {
					// Zero-length match: advance one unit so the next
					// attempt can't match the same empty span forever.
					advance++
				}
				resume(bufStart.Traverse(bufSlice.PositionForOffset(advance)), advance)
				if advance == 0 {
					return true
				}
				continue
			case iregex.Partial:
				bufSlice := text.FromUnits(buf)
				trim := result.StartOffset
				if text.Offset(len(buf))-trim > maxChunkSizeToCopy {
					trim = text.Offset(len(buf)) - maxChunkSizeToCopy
				}
				resume(bufStart.Traverse(bufSlice.PositionForOffset(trim)), trim)
				return true
			case iregex.None:
				bufStart = pos
				buf = buf[:0]
				return true
			case iregex.Error:
				buf = buf[:0]
				return false
			}
			return true
		}
	})

	if hasPending {
		onMatch(pendingRange)
	}
}

// SearchInRange returns the first match of re within searchRange, if any.
func (l *Layer) SearchInRange(re *iregex.Regex, searchRange text.Range) (text.Range, bool) {
	var found text.Range
	ok := false
	l.ScanInRange(re, searchRange, func(r text.Range) bool {
		found, ok = r, true
		return false
	})
	return found, ok
}

// SearchAllInRange returns every non-overlapping match of re within
// searchRange, in order.
func (l *Layer) SearchAllInRange(re *iregex.Regex, searchRange text.Range) []text.Range {
	var results []text.Range
	l.ScanInRange(re, searchRange, func(r text.Range) bool {
		results = append(results, r)
		return true
	})
	return results
}
