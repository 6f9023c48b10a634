// Package buffer provides TextBuffer, the editable, snapshot-capable
// document façade built on top of the engine's layer stack: a TextBuffer
// owns a chain of internal/engine/layer.Layer values rooted at a
// materialized base and exposes edits, coordinate conversion, chunked
// reads, incremental regex search and serialization of pending changes
// over that chain, while Snapshot pins a (top, base) pair so reads
// against an older state stay valid while further edits land on top.
//
// Basic usage:
//
//	buf := buffer.NewFromString("hello")
//	buf.SetTextInRange(text.Range{Start: text.Point{Row: 0, Column: 0}, End: buf.Extent()}, "world")
//
//	snap := buf.CreateSnapshot()
//	defer snap.Release()
//	// snap.Text() still reads "world" even after further edits to buf.
//
// TextBuffer is not safe for concurrent mutation: all edits and reads on
// a given TextBuffer must be serialized by the caller. A Snapshot may be
// read concurrently with further edits on the buffer it was taken from,
// since the layers it pins are never mutated while pinned.
package buffer
