package history

// Merge reconciles this history with another history of the same
// logical document, where both share a common prefix and each may
// have diverged after it. The typical shape: this session's
// un-persisted tail grafted onto a tree another session persisted and
// extended.
//
// The algorithm finds n, the longest prefix over which both histories
// agree pairwise (parent, forward transaction, inversion). This
// history's revisions beyond n are the divergent suffix; the shared
// prefix is discarded since other carries an equal one. Each suffix
// revision is re-appended onto other's sequence with its parent index
// rewritten when it pointed into the divergent region, and its new
// parent's last-child pointer updated, so the graft becomes the
// default redo target at its attachment point. The displaced branch
// stays reachable in the revision list. Finally this history adopts
// the merged sequence; other is left unmodified.
//
// With no divergent suffix the merge is a no-op. A rewritten parent
// index falling outside the merged sequence returns ErrInvalidOffset:
// merge inputs come from disk, so the invariant is checked, not
// assumed.
func (h *History) Merge(other *History) error {
	n := 0
	for n < len(h.revisions) && n < len(other.revisions) {
		if !h.revisions[n].EqualContent(other.revisions[n]) {
			break
		}
		n++
	}

	if n == len(h.revisions) {
		// Everything here is already in other; the histories were
		// consistent and nothing needs to move.
		return nil
	}
	newRevs := h.revisions[n:]

	offset := saturatingSub(len(other.revisions)-n, 1)

	merged := make([]Revision, len(other.revisions), len(other.revisions)+len(newRevs))
	copy(merged, other.revisions)

	for _, r := range newRevs {
		if r.Parent >= n {
			r.Parent += offset
		}
		if r.Parent < 0 || r.Parent >= len(merged) {
			return ErrInvalidOffset
		}
		idx := len(merged)
		merged[r.Parent].LastChild = idx
		// LastChild is derived; grafted nodes start childless and are
		// re-linked as their own children are appended.
		r.LastChild = NoChild
		merged = append(merged, r)
	}

	if h.current >= n {
		h.current += offset
	}
	h.revisions = merged
	return nil
}

// saturatingSub returns a-b, clamped at zero.
func saturatingSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}
