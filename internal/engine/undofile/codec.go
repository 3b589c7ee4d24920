package undofile

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/history"
)

// Serialize writes h into w, which holds the undo file being updated.
//
// The header is rewritten in place with the history's current
// revision, the revision index being recorded as last saved, the save
// time, and a digest computed fresh from the document at livePath,
// never from a cached value, so the persisted header always matches
// what is actually on disk at serialization time. Revision records
// are then appended after the existing end of w: offset is the count
// of revisions already persisted there, and only revisions[offset:]
// are written. Previously written revision bytes are never touched.
//
// For offset 0, w must be empty. Callers that need the header update
// to be all-or-nothing should stage w through WriteAtomic.
func Serialize(w io.WriteSeeker, h *history.History, livePath string, lastSaved, offset int) error {
	revs := h.Revisions()
	if offset < 0 || offset > len(revs) {
		return fmt.Errorf("%w: persisted offset %d with %d revisions", history.ErrInvalidOffset, offset, len(revs))
	}
	if lastSaved < 0 || lastSaved >= len(revs) {
		return fmt.Errorf("%w: last-saved revision %d with %d revisions", history.ErrInvalidOffset, lastSaved, len(revs))
	}

	digest, err := hash.File(livePath)
	if err != nil {
		return fmt.Errorf("hashing document %s: %w", livePath, err)
	}

	hdr := Header{
		Current:       h.CurrentRevision(),
		LastSaved:     lastSaved,
		LastSavedTime: time.Now(),
		Digest:        digest,
		Revisions:     len(revs),
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := hdr.encode(w); err != nil {
		return err
	}

	if _, err := w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i := offset; i < len(revs); i++ {
		if err := WriteRevision(bw, revs[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Deserialize reads an undo file from r, validating the header
// against the document at livePath, and reconstructs the history.
//
// Revisions are read in order; child links are rebuilt from parent
// references as they arrive. A revision referencing a parent outside
// the already-read list means the file is corrupt or truncated, and a
// first revision that is not the canonical empty root means the file
// does not start at the tree root; both fail with an error matching
// history.ErrInvalidData.
//
// The returned index and time are the last-saved revision and save
// time from the header, letting the caller detect whether the on-disk
// state is ahead of or behind the in-memory session.
func Deserialize(r io.Reader, livePath string) (*history.History, int, time.Time, error) {
	br := bufio.NewReader(r)

	hdr, err := ReadHeader(br, livePath)
	if err != nil {
		return nil, 0, time.Time{}, err
	}

	revs := make([]history.Revision, 0, hdr.Revisions)
	for i := 0; i < hdr.Revisions; i++ {
		rev, err := ReadRevision(br)
		if err != nil {
			return nil, 0, time.Time{}, err
		}
		revs = append(revs, rev)
	}

	h, err := history.FromRevisions(revs, hdr.Current)
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	if hdr.LastSaved >= len(revs) {
		return nil, 0, time.Time{}, invalidData("last-saved revision %d out of range (%d revisions)", hdr.LastSaved, len(revs))
	}
	return h, hdr.LastSaved, hdr.LastSavedTime, nil
}
