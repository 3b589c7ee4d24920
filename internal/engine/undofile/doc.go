// Package undofile persists a history tree to disk and loads it back.
//
// # File layout
//
// A fixed-width header block, then an append-only revision log:
//
//	magic "UNDOF"      5 bytes
//	version            1 byte
//	current revision   uint64 LE
//	last-saved rev     uint64 LE
//	last-saved time    uint64 LE, Unix seconds
//	content digest     32 bytes (BLAKE2b-256 of the document)
//	revision count     uint64 LE
//	revisions          variable, appended in order
//
// Header integers are fixed-width so the header can be rewritten in
// place on every save without disturbing the revision log that
// follows it. Integers inside revision records use unsigned varints;
// strings are length-prefixed UTF-8.
//
// Once written, revision bytes are never modified: a save appends the
// revisions recorded since the last save and rewrites only the
// header. Writers that cannot guarantee an all-or-nothing header
// update should go through WriteAtomic.
//
// # Integrity
//
// The header stores the digest of the document as it was at save
// time, computed fresh from the document file during Serialize. On
// load the digest is recomputed and compared; a mismatch means the
// document changed since the history was synchronized with it, and
// the history must not be applied as-is (ErrOutdated).
package undofile
