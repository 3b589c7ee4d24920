package undostore

import (
	"fmt"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/history"
)

// MapNode is the payload-free form of a chain node: enough to walk
// ancestry and count revisions without loading any diff contents.
type MapNode struct {
	Digest        hash.Digest
	Parent        int // NoParent for a chain root
	RevisionCount int
}

// Map is the lightweight chain variant used for cross-session
// ancestry checks.
type Map struct {
	nodes []MapNode
}

// MapOf strips a storage chain down to its map form.
func MapOf(s *Storage) Map {
	nodes := make([]MapNode, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = MapNode{
			Digest:        n.Digest,
			Parent:        n.Parent,
			RevisionCount: len(n.Diff.Revisions),
		}
	}
	return Map{nodes: nodes}
}

// Len returns the number of checkpoints.
func (m Map) Len() int {
	return len(m.nodes)
}

// Node returns the checkpoint at index i.
func (m Map) Node(i int) (MapNode, bool) {
	if i < 0 || i >= len(m.nodes) {
		return MapNode{}, false
	}
	return m.nodes[i], true
}

// FindDigest locates the most recent checkpoint for the given
// document content.
func (m Map) FindDigest(d hash.Digest) (int, bool) {
	for i := len(m.nodes) - 1; i >= 0; i-- {
		if m.nodes[i].Digest == d {
			return i, true
		}
	}
	return 0, false
}

// OffsetOf sums revision counts along the parent walk from node idx
// to its chain root: the number of revisions the chain already holds
// for that lineage.
func (m Map) OffsetOf(idx int) (int, error) {
	if idx < 0 || idx >= len(m.nodes) {
		return 0, &history.InvalidDataError{Detail: fmt.Sprintf("chain node %d out of range", idx)}
	}
	offset := 0
	for steps := 0; ; steps++ {
		if steps > len(m.nodes) {
			return 0, &history.InvalidDataError{Detail: "chain parent links form a cycle"}
		}
		node := m.nodes[idx]
		offset += node.RevisionCount
		if node.Parent == NoParent {
			return offset, nil
		}
		if node.Parent < 0 || node.Parent >= len(m.nodes) {
			return 0, &history.InvalidDataError{Detail: fmt.Sprintf("chain node %d references parent %d out of range", idx, node.Parent)}
		}
		idx = node.Parent
	}
}

// SharesAncestry reports whether the checkpoint digests along the
// parent walk from node idx appear, in order, in other's lineage from
// otherIdx. A true result means the two chains describe the same
// document lineage up to that point and a history merge is worth
// attempting.
func (m Map) SharesAncestry(idx int, other Map, otherIdx int) bool {
	mine := m.lineageDigests(idx)
	theirs := make(map[hash.Digest]bool)
	for _, d := range other.lineageDigests(otherIdx) {
		theirs[d] = true
	}
	for _, d := range mine {
		if theirs[d] {
			return true
		}
	}
	return false
}

// lineageDigests collects digests from node idx back to its root.
func (m Map) lineageDigests(idx int) []hash.Digest {
	var out []hash.Digest
	for steps := 0; steps <= len(m.nodes); steps++ {
		if idx < 0 || idx >= len(m.nodes) {
			break
		}
		node := m.nodes[idx]
		out = append(out, node.Digest)
		if node.Parent == NoParent {
			break
		}
		idx = node.Parent
	}
	return out
}
