package session

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher flags external modifications to a single document. It
// watches the document's directory rather than the file itself, so
// editors that save by write-to-temp-then-rename are still seen.
// Bursts of events within the debounce window collapse into one
// callback invocation.
type watcher struct {
	fsw      *fsnotify.Watcher
	name     string // base name of the watched document
	debounce time.Duration
	onChange func()

	closeOnce sync.Once
	closeCh   chan struct{}
	done      sync.WaitGroup
}

func newWatcher(path string, debounce time.Duration, onChange func()) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{
		fsw:      fsw,
		name:     filepath.Base(path),
		debounce: debounce,
		onChange: onChange,
		closeCh:  make(chan struct{}),
	}
	w.done.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer w.done.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if w.debounce <= 0 {
				w.onChange()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.onChange()

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are not actionable here; staleness is only
			// a safety net and the next save still verifies the digest.
		}
	}
}

// relevant reports whether ev touches the watched document.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.name {
		return false
	}
	return ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Create) ||
		ev.Op.Has(fsnotify.Rename) ||
		ev.Op.Has(fsnotify.Remove)
}

func (w *watcher) close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.fsw.Close()
		w.done.Wait()
	})
	return err
}
