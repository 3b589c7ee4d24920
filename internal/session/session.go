package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/undotree/internal/config"
	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/transaction"
	"github.com/dshills/undotree/internal/engine/undofile"
)

// Errors returned by session operations.
var (
	// ErrStaleDocument means the document was modified outside this
	// session. Saving the undo history would pair a fresh document
	// digest with revisions that no longer describe it; the caller
	// must reconcile or discard first.
	ErrStaleDocument = errors.New("document changed outside this session")

	// ErrHistoryFull means the configured revision cap was reached.
	ErrHistoryFull = errors.New("history revision limit reached")
)

// Session owns the undo history for one open document.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	filePath string
	undoPath string
	cfg      config.Config
	log      *slog.Logger

	history   *history.History
	persisted int // Revisions already in the undo file
	lastSaved int // Revision recorded as last written to the document

	stale   bool
	watcher *watcher
}

// New opens a session for the document at filePath. When watching is
// enabled in cfg, external modifications to the document flag the
// session stale. A nil logger disables logging.
func New(filePath string, cfg config.Config, log *slog.Logger) (*Session, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	undoPath, err := UndoPathFor(cfg.UndoDir, abs)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := uuid.New()
	s := &Session{
		id:       id,
		filePath: abs,
		undoPath: undoPath,
		cfg:      cfg,
		log:      log.With("session", id.String(), "file", abs),
		history:  history.New(),
	}

	if cfg.Watch {
		w, err := newWatcher(abs, cfg.WatchDebounce(), s.markStale)
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", abs, err)
		}
		s.watcher = w
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// FilePath returns the absolute document path.
func (s *Session) FilePath() string {
	return s.filePath
}

// UndoPath returns where this document's undo file lives.
func (s *Session) UndoPath() string {
	return s.undoPath
}

// History returns the session's history. The session keeps ownership;
// callers must not retain it across Load or Reconcile.
func (s *Session) History() *history.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Record appends an edit to the history.
func (s *Session) Record(tx, inversion *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxRevisions > 0 && s.history.Len() >= s.cfg.MaxRevisions {
		return fmt.Errorf("%w (%d revisions)", ErrHistoryFull, s.history.Len())
	}
	s.history.Record(tx, inversion, time.Now())
	return nil
}

// Undo steps the history back one revision. No-op at the root.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Undo()
}

// Redo steps the history forward along the most recent branch.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Redo()
}

// Stale reports whether the document changed outside this session.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// ClearStale acknowledges an external change, typically after the
// caller reloaded the document or chose to discard the undo file.
func (s *Session) ClearStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = false
}

func (s *Session) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.log.Warn("document modified externally; undo history is stale")
}

// Save persists the history, to be called right after the document
// itself has been written. Only revisions recorded since the last
// save are appended; the header is rewritten with the current
// revision and a fresh digest of the document. The whole update is
// staged through a temporary file and renamed into place.
//
// Save refuses with ErrStaleDocument while the session is flagged
// stale: the history no longer describes the document on disk.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stale {
		return ErrStaleDocument
	}
	if err := os.MkdirAll(filepath.Dir(s.undoPath), 0o755); err != nil {
		return err
	}

	offset := s.persisted
	existing, err := os.ReadFile(s.undoPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		offset = 0
	} else if offset == 0 {
		// A file exists but this session never loaded it; rewrite it
		// from scratch rather than appending to unknown content.
		existing = nil
	}

	saved := s.history.CurrentRevision()
	err = undofile.WriteAtomic(s.undoPath, func(w io.WriteSeeker) error {
		if offset > 0 {
			if _, err := w.Write(existing); err != nil {
				return err
			}
		}
		return undofile.Serialize(w, s.history, s.filePath, saved, offset)
	})
	if err != nil {
		return fmt.Errorf("saving undo file %s: %w", s.undoPath, err)
	}

	appended := s.history.Len() - offset
	s.persisted = s.history.Len()
	s.lastSaved = saved
	s.log.Debug("undo history saved", "revisions", s.history.Len(), "appended", appended)
	return nil
}

// Load restores the history from the undo file, validating it against
// the document's current contents. Reports whether an undo file was
// found; a missing file leaves the fresh history in place.
//
// ErrOutdated and ErrInvalidHeader surface unchanged so the caller
// can put the discard-or-reconcile decision to the user.
func (s *Session) Load() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.undoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	h, lastSaved, savedAt, err := undofile.Deserialize(f, s.filePath)
	if err != nil {
		return true, fmt.Errorf("loading undo file %s: %w", s.undoPath, err)
	}

	s.history = h
	s.persisted = h.Len()
	s.lastSaved = lastSaved
	s.log.Debug("undo history loaded",
		"revisions", h.Len(), "current", h.CurrentRevision(), "saved_at", savedAt)
	return true, nil
}

// Reconcile merges this session's un-persisted tail onto the history
// currently in the undo file, which another session may have extended
// since we loaded it. The on-disk history must still validate against
// the document; afterwards the divergent revisions from this session
// hang off the merged tree and the next Save appends them.
func (s *Session) Reconcile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.undoPath)
	if err != nil {
		return err
	}
	defer f.Close()

	theirs, lastSaved, _, err := undofile.Deserialize(f, s.filePath)
	if err != nil {
		return fmt.Errorf("loading undo file %s: %w", s.undoPath, err)
	}

	mine := s.history.Len()
	if err := s.history.Merge(theirs); err != nil {
		return err
	}
	if s.history.Len() < theirs.Len() {
		// Nothing here diverged; the disk history strictly extends
		// ours, so fast-forward to it.
		s.history = theirs
	}

	s.persisted = theirs.Len()
	s.lastSaved = lastSaved
	s.stale = false
	s.log.Info("undo histories reconciled",
		"ours", mine, "theirs", theirs.Len(), "merged", s.history.Len())
	return nil
}

// PersistedRevisions returns how many revisions the undo file already
// holds for this session.
func (s *Session) PersistedRevisions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

// LastSavedRevision returns the revision recorded as last written to
// the document.
func (s *Session) LastSavedRevision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Close stops the document watcher. The history stays usable.
func (s *Session) Close() error {
	if s.watcher != nil {
		return s.watcher.close()
	}
	return nil
}

// IsOutdated reports whether err means the undo file is stale
// relative to the document.
func IsOutdated(err error) bool {
	return errors.Is(err, undofile.ErrOutdated)
}

// IsInvalid reports whether err means the undo file is corrupt,
// truncated, or not an undo file at all.
func IsInvalid(err error) bool {
	return errors.Is(err, undofile.ErrInvalidHeader) || errors.Is(err, history.ErrInvalidData)
}
