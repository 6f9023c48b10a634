// Package iregex implements incremental matching over UTF-16 code-unit
// buffers: a pattern can be fed successive, non-contiguous chunks of a
// document and report whether a match is impossible yet (None), still
// possible but unresolved (Partial, pending more input), or complete
// (Full), without ever materializing the whole document.
//
// The matcher is a small Pike-VM (Thompson NFA executed breadth-first,
// one thread per live parse state) compiled from a github.com/pkg/errors-
// wrapped regexp/syntax parse tree. regexp/syntax supplies pattern
// parsing only; no ecosystem package in reach exposes partial-match
// results over a chunked, non-materialized input, so the execution
// engine itself is original.
package iregex
