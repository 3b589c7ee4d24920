package history

import (
	"time"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/transaction"
)

// Checkpoint records the snapshot-chain node a history was loaded
// from: the node index plus the content digest recorded there. The
// storage layer verifies it before committing incremental diffs.
type Checkpoint struct {
	Node   int
	Digest hash.Digest
}

// History is the undo tree for one document. Index 0 of the revision
// list is always the canonical empty root; current points at the
// revision representing the present document state.
type History struct {
	revisions  []Revision
	current    int
	checkpoint *Checkpoint
}

// New creates a history containing only the canonical root.
func New() *History {
	return &History{
		revisions: []Revision{rootRevision()},
	}
}

// FromRevisions rebuilds a history from an ordered revision list, as
// read from disk. It validates the structural invariants and
// recomputes every LastChild pointer from parent links:
//
//   - the first revision must be the canonical empty root
//   - every later revision's parent must reference an earlier index
//
// Violations return an error matching ErrInvalidData.
func FromRevisions(revs []Revision, current int) (*History, error) {
	if len(revs) == 0 {
		return nil, invalidDataf("empty revision list")
	}
	if !revs[0].IsRoot() {
		return nil, invalidDataf("first revision is not the canonical root")
	}

	rebuilt := make([]Revision, len(revs))
	copy(rebuilt, revs)

	rebuilt[0].LastChild = NoChild
	for i := 1; i < len(rebuilt); i++ {
		rebuilt[i].LastChild = NoChild
	}
	for i := 1; i < len(rebuilt); i++ {
		p := rebuilt[i].Parent
		if p < 0 || p >= i {
			return nil, invalidDataf("revision %d references parent %d outside the already-read list", i, p)
		}
		rebuilt[p].LastChild = i
	}

	if current < 0 || current >= len(rebuilt) {
		return nil, invalidDataf("current revision %d out of range (%d revisions)", current, len(rebuilt))
	}

	return &History{revisions: rebuilt, current: current}, nil
}

// Record appends a new revision whose parent is the current revision,
// makes it the parent's most recent child, and advances current to it.
func (h *History) Record(tx, inversion *transaction.Transaction, ts time.Time) {
	idx := len(h.revisions)
	h.revisions = append(h.revisions, Revision{
		Parent:      h.current,
		LastChild:   NoChild,
		Transaction: tx,
		Inversion:   inversion,
		Timestamp:   ts,
	})
	h.revisions[h.current].LastChild = idx
	h.current = idx
}

// Undo moves current to its parent. At the root it is a silent no-op.
// Reports whether the pointer moved.
func (h *History) Undo() bool {
	if h.current == 0 {
		return false
	}
	h.current = h.revisions[h.current].Parent
	return true
}

// Redo moves current to the most recent branch taken from it. With no
// child it is a silent no-op. Reports whether the pointer moved.
func (h *History) Redo() bool {
	next := h.revisions[h.current].LastChild
	if next == NoChild {
		return false
	}
	h.current = next
	return true
}

// CurrentRevision returns the index of the revision representing the
// present document state.
func (h *History) CurrentRevision() int {
	return h.current
}

// Revisions returns the full ordered revision sequence. The slice is
// a read-only view into the history; callers must not modify it.
func (h *History) Revisions() []Revision {
	return h.revisions
}

// Len returns the number of revisions, including the root.
func (h *History) Len() int {
	return len(h.revisions)
}

// At returns the revision at index i.
func (h *History) At(i int) (Revision, bool) {
	if i < 0 || i >= len(h.revisions) {
		return Revision{}, false
	}
	return h.revisions[i], true
}

// AtRoot reports whether current is the root revision.
func (h *History) AtRoot() bool {
	return h.current == 0
}

// SetCheckpoint records the chain node this history was loaded from.
func (h *History) SetCheckpoint(node int, d hash.Digest) {
	h.checkpoint = &Checkpoint{Node: node, Digest: d}
}

// ClearCheckpoint forgets the recorded chain lineage.
func (h *History) ClearCheckpoint() {
	h.checkpoint = nil
}

// Checkpoint returns the recorded chain lineage, if any.
func (h *History) Checkpoint() (Checkpoint, bool) {
	if h.checkpoint == nil {
		return Checkpoint{}, false
	}
	return *h.checkpoint, true
}
