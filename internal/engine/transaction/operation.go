package transaction

import "fmt"

// OpKind identifies the kind of a single operation.
type OpKind uint8

const (
	OpRetain OpKind = iota // Keep the next N input units
	OpDelete               // Drop the next N input units
	OpInsert               // Produce Text without consuming input
)

// String returns the operation kind name.
func (k OpKind) String() string {
	switch k {
	case OpRetain:
		return "retain"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Operation is one step of a transaction. N is meaningful for retain
// and delete; Text is meaningful for insert. Operation is an immutable
// value type.
type Operation struct {
	Kind OpKind
	N    uint64
	Text string
}

// Retain returns an operation keeping the next n input units.
func Retain(n uint64) Operation {
	return Operation{Kind: OpRetain, N: n}
}

// Delete returns an operation dropping the next n input units.
func Delete(n uint64) Operation {
	return Operation{Kind: OpDelete, N: n}
}

// Insert returns an operation producing text.
func Insert(text string) Operation {
	return Operation{Kind: OpInsert, Text: text}
}

// Consumes returns how many input units the operation consumes.
func (op Operation) Consumes() uint64 {
	switch op.Kind {
	case OpRetain, OpDelete:
		return op.N
	default:
		return 0
	}
}

// Produces returns how many output units the operation produces.
func (op Operation) Produces() uint64 {
	switch op.Kind {
	case OpRetain:
		return op.N
	case OpInsert:
		return uint64(len(op.Text))
	default:
		return 0
	}
}

// Equal reports whether two operations are identical.
func (op Operation) Equal(other Operation) bool {
	if op.Kind != other.Kind {
		return false
	}
	if op.Kind == OpInsert {
		return op.Text == other.Text
	}
	return op.N == other.N
}
