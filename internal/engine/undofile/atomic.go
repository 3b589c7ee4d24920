package undofile

import (
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic stages an undo file write through a temporary file in
// the same directory and renames it over path only after fn succeeds
// and the data is synced. An interrupted save can therefore never
// leave a file whose header claims more revisions than are readable:
// the old file survives intact until the rename.
//
// fn receives the temporary file, positioned at offset 0. Callers
// updating an existing undo file copy its bytes in before appending;
// see session.Save for the usual sequence.
func WriteAtomic(path string, fn func(w io.WriteSeeker) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".undotree-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
