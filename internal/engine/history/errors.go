package history

import (
	"errors"
	"fmt"
)

// Error kinds shared by the history engine and its codecs.
var (
	// ErrInvalidOffset reports a parent index that fell outside the
	// revision list, typically during a merge of disk-loaded
	// histories. It indicates a broken tree invariant, not user error,
	// and must never be silently recovered from.
	ErrInvalidOffset = errors.New("invalid revision offset")

	// ErrInvalidData is the sentinel for structural violations found
	// while reconstructing a tree: non-contiguous parent references,
	// or a first revision that is not the canonical root. Matched
	// with errors.Is; the concrete error carries detail.
	ErrInvalidData = errors.New("invalid history data")
)

// InvalidDataError wraps ErrInvalidData with detail about the
// structural violation.
type InvalidDataError struct {
	Detail string
}

func (e *InvalidDataError) Error() string {
	return "invalid history data: " + e.Detail
}

func (e *InvalidDataError) Is(target error) bool {
	return target == ErrInvalidData
}

// invalidDataf builds an InvalidDataError with a formatted detail.
func invalidDataf(format string, args ...any) error {
	return &InvalidDataError{Detail: fmt.Sprintf(format, args...)}
}
