// Package undostore keeps a content-addressed log of incremental
// history snapshots, so that many saved states of one document share
// a single growing log instead of one full serialization per save.
//
// Each node records the document's content digest at a checkpoint, an
// optional parent node, and a diff: the revisions that are new since
// the parent checkpoint plus the history's current pointer at commit
// time. Concatenating a node's diff with all ancestor diffs back to a
// parentless node reconstructs a complete history: copy-on-write
// snapshots over hash-linked ancestry.
//
// The Map variant carries only digests, parent links, and revision
// counts. Two editors can compare digests along their parent walks to
// decide whether their chains share ancestry before paying for a full
// history merge.
package undostore
