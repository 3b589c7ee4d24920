package session

import (
	"os"
	"path/filepath"
	"strings"
)

// UndoPathFor maps a document path to its undo file inside dir. The
// absolute document path is flattened into a single file name with
// path separators percent-encoded, so distinct documents can never
// collide and the mapping is reversible.
func UndoPathFor(dir, docPath string) (string, error) {
	abs, err := filepath.Abs(docPath)
	if err != nil {
		return "", err
	}
	name := strings.ReplaceAll(abs, "%", "%25")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "%2F")
	return filepath.Join(dir, name+".undo"), nil
}
