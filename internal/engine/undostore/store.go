package undostore

import (
	"errors"
	"fmt"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/history"
)

// NoParent marks a chain root.
const NoParent = -1

// Errors reported by chain operations.
var (
	// ErrStaleCheckpoint means the chain node a history claims it was
	// derived from no longer carries the expected digest: the chain
	// was mutated by another writer and is inconsistent with this
	// session's assumed lineage.
	ErrStaleCheckpoint = errors.New("chain checkpoint does not match history lineage")
)

// StateDiff is the payload of one chain node: the revisions new since
// the parent checkpoint, and the history's current pointer at commit
// time. Unlike a history's revision list, a diff on its own is neither
// contiguous nor independently valid; histories are reconstructed by
// concatenating diffs along the parent chain.
type StateDiff struct {
	Revisions []history.Revision
	Current   int
}

// Node is one checkpoint in the chain.
type Node struct {
	Digest hash.Digest // Document content at this checkpoint
	Parent int         // Previous checkpoint, or NoParent
	Diff   StateDiff
}

// Storage is the snapshot chain for one document. The most recent
// checkpoint is always the last node.
type Storage struct {
	nodes []Node
}

// New returns an empty chain.
func New() *Storage {
	return &Storage{}
}

// Len returns the number of checkpoints.
func (s *Storage) Len() int {
	return len(s.nodes)
}

// Nodes returns the node sequence. Read-only view; callers must not
// modify it.
func (s *Storage) Nodes() []Node {
	return s.nodes
}

// Node returns the checkpoint at index i.
func (s *Storage) Node(i int) (Node, bool) {
	if i < 0 || i >= len(s.nodes) {
		return Node{}, false
	}
	return s.nodes[i], true
}

// FindDigest locates the most recent checkpoint recorded for the
// given document content. This is the cheap ancestry probe used
// before attempting a cross-session merge.
func (s *Storage) FindDigest(d hash.Digest) (int, bool) {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].Digest == d {
			return i, true
		}
	}
	return 0, false
}

// offsetOf walks parent links from node idx to its chain root,
// summing diff lengths: the count of revisions the chain already
// holds along that lineage.
func (s *Storage) offsetOf(idx int) (int, error) {
	offset := 0
	for steps := 0; ; steps++ {
		if steps > len(s.nodes) {
			return 0, &history.InvalidDataError{Detail: "chain parent links form a cycle"}
		}
		node := s.nodes[idx]
		offset += len(node.Diff.Revisions)
		if node.Parent == NoParent {
			return offset, nil
		}
		if node.Parent < 0 || node.Parent >= len(s.nodes) {
			return 0, &history.InvalidDataError{Detail: fmt.Sprintf("chain node %d references parent %d out of range", idx, node.Parent)}
		}
		idx = node.Parent
	}
}

// Commit appends a checkpoint for the document state identified by
// fileDigest, carrying only the revisions h gained since the
// checkpoint it was loaded from.
//
// When h records a known checkpoint, the chain node at that index
// must still hold the matching digest (ErrStaleCheckpoint otherwise);
// the ancestor walk from there determines how many revisions are
// already represented, and the diff is the slice beyond them. Without
// a checkpoint the diff is the full revision sequence and the node
// becomes a chain root. Returns the new node's index; the caller
// updates the history's checkpoint to it.
func (s *Storage) Commit(h *history.History, fileDigest hash.Digest) (int, error) {
	revs := h.Revisions()

	cp, ok := h.Checkpoint()
	if !ok {
		s.nodes = append(s.nodes, Node{
			Digest: fileDigest,
			Parent: NoParent,
			Diff: StateDiff{
				Revisions: cloneRevisions(revs),
				Current:   h.CurrentRevision(),
			},
		})
		return len(s.nodes) - 1, nil
	}

	if cp.Node < 0 || cp.Node >= len(s.nodes) {
		return 0, fmt.Errorf("%w: node %d out of range", ErrStaleCheckpoint, cp.Node)
	}
	if s.nodes[cp.Node].Digest != cp.Digest {
		return 0, fmt.Errorf("%w: node %d digest changed", ErrStaleCheckpoint, cp.Node)
	}

	offset, err := s.offsetOf(cp.Node)
	if err != nil {
		return 0, err
	}
	if offset > len(revs) {
		return 0, fmt.Errorf("%w: chain holds %d revisions, history has %d", history.ErrInvalidOffset, offset, len(revs))
	}

	s.nodes = append(s.nodes, Node{
		Digest: fileDigest,
		Parent: len(s.nodes) - 1,
		Diff: StateDiff{
			Revisions: cloneRevisions(revs[offset:]),
			Current:   h.CurrentRevision(),
		},
	})
	return len(s.nodes) - 1, nil
}

// Reconstruct rebuilds the full history as of checkpoint idx by
// concatenating ancestor diffs from the chain root forward. The
// result is validated the same way a deserialized undo file is.
func (s *Storage) Reconstruct(idx int) (*history.History, error) {
	if idx < 0 || idx >= len(s.nodes) {
		return nil, &history.InvalidDataError{Detail: fmt.Sprintf("chain node %d out of range", idx)}
	}

	// Collect the lineage leaf-to-root, then replay it forward.
	var lineage []int
	for steps := 0; ; steps++ {
		if steps > len(s.nodes) {
			return nil, &history.InvalidDataError{Detail: "chain parent links form a cycle"}
		}
		lineage = append(lineage, idx)
		parent := s.nodes[idx].Parent
		if parent == NoParent {
			break
		}
		if parent < 0 || parent >= len(s.nodes) {
			return nil, &history.InvalidDataError{Detail: fmt.Sprintf("chain node %d references parent %d out of range", idx, parent)}
		}
		idx = parent
	}

	var revs []history.Revision
	for i := len(lineage) - 1; i >= 0; i-- {
		revs = append(revs, s.nodes[lineage[i]].Diff.Revisions...)
	}
	return history.FromRevisions(revs, s.nodes[lineage[0]].Diff.Current)
}

// cloneRevisions copies the slice so later history growth cannot
// alias committed diffs. Transactions stay shared; they are immutable.
func cloneRevisions(revs []history.Revision) []history.Revision {
	out := make([]history.Revision, len(revs))
	copy(out, revs)
	return out
}
