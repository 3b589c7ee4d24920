// Package session ties one open document to its persisted undo
// history.
//
// A session owns the in-memory history for a document, knows where
// that document's undo file lives, and handles the save/load/
// reconcile lifecycle:
//
//   - Save appends the revisions recorded since the last save to the
//     undo file and rewrites its header, staging the write through a
//     temporary file so it is all-or-nothing.
//   - Load restores the history from the undo file, refusing
//     (ErrOutdated) when the document changed since the history was
//     written.
//   - Reconcile merges this session's divergent tail onto the history
//     another session persisted for the same document.
//
// A session can also watch the document for external modification and
// flag itself stale, so a later Save cannot silently pair a fresh
// document digest with a history that no longer describes it.
package session
