// Package text implements the Text/TextSlice contract that the layered
// buffer reads and writes through: a growable UTF-16 code-unit sequence
// with Point (row, column) <-> Offset (code-unit index) conversion and
// CRLF-atomic clipping.
//
// Text is intentionally simple — a flat []uint16 plus a line-start index —
// rather than a rope or piece table. The buffer's own layer stack is what
// gives large documents sublinear edits; Text only needs to be a correct,
// mutable backing store for a single layer's materialized content.
package text
