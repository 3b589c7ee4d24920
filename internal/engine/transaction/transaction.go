package transaction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLengthMismatch is returned by Validate when the operation list
// does not consume Len units or produce LenAfter units.
var ErrLengthMismatch = errors.New("transaction length mismatch")

// Transaction is an ordered sequence of operations over a text buffer.
// Len is the input length the operations consume; LenAfter is the
// output length they produce. Selection, when present, is the cursor
// state after applying the transaction.
//
// Transactions are immutable once built. The history engine shares
// them by pointer between revisions and traversals.
type Transaction struct {
	Operations []Operation
	Len        uint64
	LenAfter   uint64
	Selection  *SelectionSet
}

// New builds a transaction from operations, computing Len and
// LenAfter from what the operations consume and produce.
func New(ops ...Operation) *Transaction {
	t := &Transaction{Operations: ops}
	for _, op := range ops {
		t.Len += op.Consumes()
		t.LenAfter += op.Produces()
	}
	return t
}

// WithSelection returns a copy of the transaction carrying the given
// selection. The operation list is shared, not copied.
func (t *Transaction) WithSelection(sel *SelectionSet) *Transaction {
	return &Transaction{
		Operations: t.Operations,
		Len:        t.Len,
		LenAfter:   t.LenAfter,
		Selection:  sel,
	}
}

// Validate checks that the operations consume exactly Len units and
// produce exactly LenAfter units.
func (t *Transaction) Validate() error {
	var consumed, produced uint64
	for _, op := range t.Operations {
		consumed += op.Consumes()
		produced += op.Produces()
	}
	if consumed != t.Len || produced != t.LenAfter {
		return fmt.Errorf("%w: consumes %d/%d, produces %d/%d",
			ErrLengthMismatch, consumed, t.Len, produced, t.LenAfter)
	}
	return nil
}

// IsEmpty reports whether the transaction has no operations and no
// selection. The canonical root revision of a history holds empty
// transactions.
func (t *Transaction) IsEmpty() bool {
	return len(t.Operations) == 0 && t.Selection == nil
}

// IsIdentity reports whether applying the transaction leaves the
// document unchanged (only retains, or nothing at all).
func (t *Transaction) IsIdentity() bool {
	for _, op := range t.Operations {
		if op.Kind != OpRetain {
			return false
		}
	}
	return true
}

// Equal reports whether two transactions are identical: same lengths,
// same operations in the same order, same selection.
func (t *Transaction) Equal(other *Transaction) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Len != other.Len || t.LenAfter != other.LenAfter {
		return false
	}
	if len(t.Operations) != len(other.Operations) {
		return false
	}
	for i := range t.Operations {
		if !t.Operations[i].Equal(other.Operations[i]) {
			return false
		}
	}
	return t.Selection.Equal(other.Selection)
}

// String returns a compact debug form, e.g. "retain(3) insert(\"ab\") delete(1)".
func (t *Transaction) String() string {
	var b strings.Builder
	for i, op := range t.Operations {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch op.Kind {
		case OpInsert:
			fmt.Fprintf(&b, "insert(%q)", op.Text)
		default:
			fmt.Fprintf(&b, "%s(%d)", op.Kind, op.N)
		}
	}
	return b.String()
}
