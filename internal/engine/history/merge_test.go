package history

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/undotree/internal/engine/transaction"
)

func recordAt(h *History, text string, ts int64) {
	tx, inv := edit(text)
	h.Record(tx, inv, time.Unix(ts, 0))
}

// txOf returns the forward transaction at index i, for identifying
// revisions independently of their position.
func txOf(h *History, i int) *transaction.Transaction {
	r, ok := h.At(i)
	if !ok {
		return nil
	}
	return r.Transaction
}

func TestMergeIdenticalIsNoop(t *testing.T) {
	a := New()
	recordAt(a, "x", 1)
	recordAt(a, "y", 2)
	b := New()
	recordAt(b, "x", 1)
	recordAt(b, "y", 2)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
	if a.CurrentRevision() != 2 {
		t.Errorf("current = %d, want 2", a.CurrentRevision())
	}
}

func TestMergeSelfIsPrefixIsNoop(t *testing.T) {
	a := New()
	recordAt(a, "x", 1)
	b := New()
	recordAt(b, "x", 1)
	recordAt(b, "y", 2)

	// Everything in a already exists in b: nothing to graft.
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (no-op keeps a unchanged)", a.Len())
	}
}

func TestMergeFastForwardSuffix(t *testing.T) {
	// Other is exactly the shared prefix; self carries a chained
	// divergent suffix. The graft re-appends it at identical indices.
	a := New()
	recordAt(a, "x", 1)
	recordAt(a, "y", 2)
	recordAt(a, "z", 3)
	b := New()
	recordAt(b, "x", 1)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if a.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", a.Len())
	}
	for i, wantParent := range []int{0, 0, 1, 2} {
		r, _ := a.At(i)
		if r.Parent != wantParent {
			t.Errorf("revision %d parent = %d, want %d", i, r.Parent, wantParent)
		}
	}
	if a.CurrentRevision() != 3 {
		t.Errorf("current = %d, want 3", a.CurrentRevision())
	}
	r1, _ := a.At(1)
	if r1.LastChild != 2 {
		t.Errorf("r1.LastChild = %d, want 2", r1.LastChild)
	}
}

func TestMergeDivergentBranches(t *testing.T) {
	// A = [root, R1, R2], B = [root, R1, R3]; both diverge after R1.
	a := New()
	recordAt(a, "shared", 1)
	recordAt(a, "mine", 2)
	b := New()
	recordAt(b, "shared", 1)
	recordAt(b, "theirs", 3)

	r2 := txOf(a, 2)
	r3 := txOf(b, 2)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if a.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", a.Len())
	}

	// Other's branch keeps its position; ours is grafted at the end,
	// still attached to the shared R1.
	if got := txOf(a, 2); !got.Equal(r3) {
		t.Error("revision 2 should be the branch from b")
	}
	grafted, _ := a.At(3)
	if !grafted.Transaction.Equal(r2) {
		t.Error("revision 3 should be the grafted branch from a")
	}
	if grafted.Parent != 1 {
		t.Errorf("grafted parent = %d, want 1 (shared region parents are unchanged)", grafted.Parent)
	}
}

func TestMergeLastChildPolicy(t *testing.T) {
	// The graft always wins the default redo target at its attachment
	// point; the displaced branch stays reachable in the list.
	a := New()
	recordAt(a, "shared", 1)
	recordAt(a, "mine", 2)
	b := New()
	recordAt(b, "shared", 1)
	recordAt(b, "theirs", 3)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}

	r1, _ := a.At(1)
	if r1.LastChild != 3 {
		t.Errorf("r1.LastChild = %d, want 3 (grafted branch wins redo)", r1.LastChild)
	}
	// Both children of R1 are present.
	r2, _ := a.At(2)
	r3, _ := a.At(3)
	if r2.Parent != 1 || r3.Parent != 1 {
		t.Errorf("parents = %d,%d, want 1,1", r2.Parent, r3.Parent)
	}
}

func TestMergePrefixLengthOne(t *testing.T) {
	// Only the roots agree.
	a := New()
	recordAt(a, "left", 1)
	b := New()
	recordAt(b, "right", 2)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	root, _ := a.At(0)
	if root.LastChild != 2 {
		t.Errorf("root.LastChild = %d, want 2", root.LastChild)
	}
	left, _ := a.At(2)
	if left.Parent != 0 {
		t.Errorf("grafted parent = %d, want 0", left.Parent)
	}
}

// mergeEdges returns the parent edges as transaction pairs, a
// position-independent fingerprint of the tree.
func mergeEdges(h *History) map[string]string {
	edges := make(map[string]string)
	for i := 1; i < h.Len(); i++ {
		r, _ := h.At(i)
		p, _ := h.At(r.Parent)
		edges[r.Transaction.String()] = p.Transaction.String()
	}
	return edges
}

func TestMergeOrderIndependence(t *testing.T) {
	build := func(texts ...string) *History {
		h := New()
		for i, s := range texts {
			recordAt(h, s, int64(i+1))
		}
		return h
	}

	// A and B2 diverge independently from B's prefix.
	mk := func() (a, b, b2 *History) {
		return build("shared", "from-a"), build("shared"), build("shared", "from-b2")
	}

	a1, b1, b21 := mk()
	if err := a1.Merge(b1); err != nil {
		t.Fatal(err)
	}
	if err := a1.Merge(b21); err != nil {
		t.Fatal(err)
	}

	a2, _, b22 := mk()
	if err := b22.Merge(a2); err != nil {
		t.Fatal(err)
	}

	e1, e2 := mergeEdges(a1), mergeEdges(b22)
	if len(e1) != len(e2) {
		t.Fatalf("edge counts differ: %d vs %d", len(e1), len(e2))
	}
	for child, parent := range e1 {
		if e2[child] != parent {
			t.Errorf("edge %q->%q missing or different in other order (%q)", child, parent, e2[child])
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := New()
	recordAt(a, "shared", 1)
	recordAt(a, "mine", 2)
	b := New()
	recordAt(b, "shared", 1)
	recordAt(b, "theirs", 3)

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	before := mergeEdges(a)
	lenBefore := a.Len()

	// Merging against the same disk state again must not duplicate
	// the grafted branch.
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Len() != lenBefore {
		t.Errorf("Len() = %d after re-merge, want %d", a.Len(), lenBefore)
	}
	after := mergeEdges(a)
	for child, parent := range before {
		if after[child] != parent {
			t.Errorf("edge %q->%q changed after re-merge", child, parent)
		}
	}
}

func TestMergeInvalidOffset(t *testing.T) {
	// Structurally valid histories can never trip the parent bounds
	// check, so corrupt one directly the way a hostile undo file
	// could after bypassing reconstruction.
	tx, inv := edit("a")
	a := &History{
		revisions: []Revision{
			rootRevision(),
			{Parent: 1000, LastChild: NoChild, Transaction: tx, Inversion: inv},
		},
		current: 1,
	}
	b := New()
	recordAt(b, "other", 1)

	if err := a.Merge(b); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("Merge() error = %v, want ErrInvalidOffset", err)
	}
}
