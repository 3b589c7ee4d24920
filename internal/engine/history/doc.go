// Package history maintains the undo tree for one document.
//
// The tree is stored arena-style: a flat, append-only slice of
// revisions where each revision knows only its parent index and the
// index of its most recently created child. Index 0 is always the
// canonical empty root. Because parents always precede children, the
// structure contains no cycles and can be rebuilt from a single
// forward scan.
//
// # Navigation
//
// Undo moves the current pointer to the parent of the current
// revision; redo follows the parent's last-child pointer, i.e. the
// most recent branch taken from that node. Neither mutates the
// revision list: history only grows, or is replaced wholesale by a
// merge.
//
// # Merge
//
// Merge reconciles two histories of the same document that diverged
// after a common prefix, grafting this history's divergent suffix
// onto the other tree at the last revision both agree on. Both
// branches survive; the graft becomes the default redo target at its
// attachment point.
//
// A History has a single logical owner and is not safe for concurrent
// use; callers that share one across goroutines must serialize access.
package history
