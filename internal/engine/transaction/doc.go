// Package transaction defines the edit representation consumed by the
// undo history engine.
//
// A Transaction is an ordered list of operations over a text buffer:
//
//   - Retain(n): keep the next n units of input unchanged
//   - Delete(n): drop the next n units of input
//   - Insert(text): produce text without consuming input
//
// Applying a transaction consumes exactly Len units of input and
// produces exactly LenAfter units of output; Validate checks this
// invariant. Transactions are immutable once built and are shared by
// pointer between the forward and inverse halves of a revision, so a
// history traversal never copies them.
//
// A transaction may carry the selection that resulted from the edit,
// so that undo/redo can restore cursor state. Selections follow the
// anchor/head model: Anchor is where the selection started, Head is
// where the cursor is.
package transaction
