package undofile

import (
	"errors"
	"fmt"

	"github.com/dshills/undotree/internal/engine/history"
)

// Errors reported while reading or writing undo files. Structural
// violations inside the revision log surface as history.ErrInvalidData
// and invalid tree offsets as history.ErrInvalidOffset; underlying
// I/O failures are wrapped and match with errors.Is as usual.
var (
	// ErrOutdated means the stored content digest does not match the
	// document on disk: the history is stale relative to the file and
	// must not be trusted without reconciliation. Non-retryable; the
	// caller should ask the user to discard or reconcile.
	ErrOutdated = errors.New("undo file is outdated relative to the document")

	// ErrInvalidHeader means the input is not a recognized undo file.
	ErrInvalidHeader = errors.New("invalid undo file header")

	// ErrUnsupportedVersion means the file carries a format version
	// this build does not understand. Matches ErrInvalidHeader with
	// errors.Is.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", ErrInvalidHeader)
)

// invalidData reports a corrupt or truncated revision log.
func invalidData(format string, args ...any) error {
	return &history.InvalidDataError{Detail: fmt.Sprintf(format, args...)}
}
