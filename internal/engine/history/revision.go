package history

import (
	"time"

	"github.com/dshills/undotree/internal/engine/transaction"
)

// NoChild marks a revision with no children.
const NoChild = -1

// Revision is one node of the undo tree: a forward edit plus the
// transaction that undoes it. Transaction and Inversion are immutable
// and shared by pointer; traversals never copy them.
//
// Parent always references an earlier index (the root references
// itself at index 0). LastChild is the most recently created child,
// or NoChild; it is derived state, rebuilt from parent links whenever
// a tree is reconstructed.
type Revision struct {
	Parent      int
	LastChild   int
	Transaction *transaction.Transaction
	Inversion   *transaction.Transaction
	Timestamp   time.Time
}

// EqualContent reports whether two revisions agree on parent linkage
// and both transactions. LastChild and Timestamp are excluded:
// LastChild is derived, and timestamps may differ between sessions
// that recorded the same edit. This is the pairwise comparison the
// merge algorithm uses to find the common prefix.
func (r Revision) EqualContent(other Revision) bool {
	return r.Parent == other.Parent &&
		r.Transaction.Equal(other.Transaction) &&
		r.Inversion.Equal(other.Inversion)
}

// IsRoot reports whether the revision is the canonical empty root:
// self-referencing parent and empty transactions.
func (r Revision) IsRoot() bool {
	return r.Parent == 0 &&
		r.Transaction != nil && r.Transaction.IsEmpty() &&
		r.Inversion != nil && r.Inversion.IsEmpty()
}

// rootRevision returns a fresh canonical root.
func rootRevision() Revision {
	return Revision{
		Parent:      0,
		LastChild:   NoChild,
		Transaction: transaction.New(),
		Inversion:   transaction.New(),
	}
}
