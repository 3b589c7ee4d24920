package undofile

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/transaction"
)

// writeDoc creates the live document the undo file is validated against.
func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func record(h *history.History, text string) {
	tx := transaction.New(transaction.Insert(text))
	inv := transaction.New(transaction.Delete(uint64(len(text))))
	h.Record(tx, inv, time.Unix(1700000100, 0))
}

// saveNew serializes h into a fresh undo file next to the document.
func saveNew(t *testing.T, h *history.History, docPath string, lastSaved int) string {
	t.Helper()
	undoPath := docPath + ".undo"
	err := WriteAtomic(undoPath, func(w io.WriteSeeker) error {
		return Serialize(w, h, docPath, lastSaved, 0)
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	return undoPath
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	doc := writeDoc(t, "hello world")

	h := history.New()
	record(h, "R1")
	record(h, "R2")

	undoPath := saveNew(t, h, doc, h.CurrentRevision())

	f, err := os.Open(undoPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	loaded, lastSaved, savedAt, err := Deserialize(f, doc)
	if err != nil {
		t.Fatalf("Deserialize() error: %v", err)
	}

	if loaded.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", loaded.Len())
	}
	if loaded.CurrentRevision() != 2 {
		t.Errorf("current = %d, want 2", loaded.CurrentRevision())
	}
	if lastSaved != 2 {
		t.Errorf("lastSaved = %d, want 2", lastSaved)
	}
	if savedAt.IsZero() {
		t.Error("save timestamp should be recorded")
	}

	// Reconstructed child links: root -> R1 -> R2.
	r0, _ := loaded.At(0)
	r1, _ := loaded.At(1)
	if r0.LastChild != 1 || r1.LastChild != 2 {
		t.Errorf("LastChild = %d,%d, want 1,2", r0.LastChild, r1.LastChild)
	}

	// Revision contents survive.
	for i := 0; i < h.Len(); i++ {
		want, _ := h.At(i)
		got, _ := loaded.At(i)
		if !got.EqualContent(want) {
			t.Errorf("revision %d differs after round trip", i)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("revision %d timestamp = %v, want %v", i, got.Timestamp, want.Timestamp)
		}
	}
}

func TestSerializeAppendsOnly(t *testing.T) {
	doc := writeDoc(t, "content")

	h := history.New()
	record(h, "R1")
	undoPath := saveNew(t, h, doc, 1)

	firstSize := fileSize(t, undoPath)
	firstBody := readBody(t, undoPath)

	// Record one more revision and append it to the existing file.
	record(h, "R2")
	f, err := os.OpenFile(undoPath, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if err := Serialize(f, h, doc, 2, 2); err != nil {
		t.Fatalf("append Serialize() error: %v", err)
	}
	f.Close()

	if got := fileSize(t, undoPath); got <= firstSize {
		t.Errorf("file should grow on append: %d -> %d", firstSize, got)
	}
	// Previously written revision bytes are untouched.
	if !bytes.Equal(readBody(t, undoPath)[:len(firstBody)], firstBody) {
		t.Error("append rewrote existing revision bytes")
	}

	f2, err := os.Open(undoPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f2.Close()
	loaded, _, _, err := Deserialize(f2, doc)
	if err != nil {
		t.Fatalf("Deserialize() after append: %v", err)
	}
	if loaded.Len() != 3 || loaded.CurrentRevision() != 2 {
		t.Errorf("loaded %d revisions, current %d; want 3, 2", loaded.Len(), loaded.CurrentRevision())
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	doc := writeDoc(t, "abc")

	sel := transaction.NewSelection(1,
		transaction.SelRange{Anchor: 0, Head: 2},
		transaction.SelRange{Anchor: 5, Head: 3, Visual: &transaction.VisualPosition{Row: 1, Col: 7}},
	)
	h := history.New()
	tx := transaction.New(transaction.Insert("abc")).WithSelection(sel)
	inv := transaction.New(transaction.Delete(3))
	h.Record(tx, inv, time.Unix(1700000200, 0))

	undoPath := saveNew(t, h, doc, 1)

	f, err := os.Open(undoPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	loaded, _, _, err := Deserialize(f, doc)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := loaded.At(1)
	if !got.Transaction.Selection.Equal(sel) {
		t.Errorf("selection did not round-trip: %+v", got.Transaction.Selection)
	}
}

func TestDeserializeOutdated(t *testing.T) {
	doc := writeDoc(t, "original")
	h := history.New()
	record(h, "R1")
	undoPath := saveNew(t, h, doc, 1)

	// Modify the document after the undo file was written.
	if err := os.WriteFile(doc, []byte("original+"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(undoPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, _, _, err := Deserialize(f, doc); !errors.Is(err, ErrOutdated) {
		t.Errorf("error = %v, want ErrOutdated", err)
	}

	f2, _ := os.Open(undoPath)
	defer f2.Close()
	if IsValid(f2, doc) {
		t.Error("IsValid should be false for a modified document")
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	doc := writeDoc(t, "x")

	buf := bytes.NewBufferString("NOTIT")
	buf.Write(make([]byte, HeaderSize))
	if _, err := ReadHeader(bytes.NewReader(buf.Bytes()), doc); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("error = %v, want ErrInvalidHeader", err)
	}
}

func TestReadHeaderRejectsFutureVersion(t *testing.T) {
	doc := writeDoc(t, "x")

	var buf bytes.Buffer
	hdr := Header{Digest: hash.Sum([]byte("x"))}
	if err := hdr.encode(&buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[len(Magic)] = Version + 1

	_, err := ReadHeader(bytes.NewReader(raw), doc)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("error = %v, want ErrUnsupportedVersion", err)
	}
	if !errors.Is(err, ErrInvalidHeader) {
		t.Error("unsupported version should also match ErrInvalidHeader")
	}
}

func TestReadHeaderRejectsShortInput(t *testing.T) {
	doc := writeDoc(t, "x")
	if _, err := ReadHeader(bytes.NewReader([]byte("UND")), doc); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("error = %v, want ErrInvalidHeader", err)
	}
}

func TestDeserializeRejectsNonRootFirst(t *testing.T) {
	doc := writeDoc(t, "x")

	var buf bytes.Buffer
	hdr := Header{Current: 0, Revisions: 1, Digest: hash.Sum([]byte("x"))}
	if err := hdr.encode(&buf); err != nil {
		t.Fatal(err)
	}
	rev := history.Revision{
		Parent:      0,
		LastChild:   history.NoChild,
		Transaction: transaction.New(transaction.Insert("not-root")),
		Inversion:   transaction.New(transaction.Delete(8)),
	}
	if err := WriteRevision(&buf, rev); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := Deserialize(bytes.NewReader(buf.Bytes()), doc); !errors.Is(err, history.ErrInvalidData) {
		t.Errorf("error = %v, want ErrInvalidData", err)
	}
}

func TestDeserializeRejectsTruncatedLog(t *testing.T) {
	doc := writeDoc(t, "x")

	// Header promises three revisions but only the root follows.
	var buf bytes.Buffer
	hdr := Header{Current: 2, Revisions: 3, Digest: hash.Sum([]byte("x"))}
	if err := hdr.encode(&buf); err != nil {
		t.Fatal(err)
	}
	root := history.New().Revisions()[0]
	if err := WriteRevision(&buf, root); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := Deserialize(bytes.NewReader(buf.Bytes()), doc); !errors.Is(err, history.ErrInvalidData) {
		t.Errorf("error = %v, want ErrInvalidData", err)
	}
}

func TestSerializeRejectsBadOffsets(t *testing.T) {
	doc := writeDoc(t, "x")
	h := history.New()
	record(h, "R1")

	var sink seekBuffer
	if err := Serialize(&sink, h, doc, 1, 5); !errors.Is(err, history.ErrInvalidOffset) {
		t.Errorf("offset error = %v, want ErrInvalidOffset", err)
	}
	if err := Serialize(&sink, h, doc, 9, 0); !errors.Is(err, history.ErrInvalidOffset) {
		t.Errorf("lastSaved error = %v, want ErrInvalidOffset", err)
	}
}

func TestWriteAtomicCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.undo")
	boom := errors.New("boom")

	err := WriteAtomic(path, func(w io.WriteSeeker) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

// seekBuffer is an in-memory WriteSeeker for error-path tests.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		b.pos = offset
	case 1:
		b.pos += offset
	case 2:
		b.pos = int64(len(b.data)) + offset
	}
	return b.pos, nil
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info.Size()
}

// readBody returns the revision log portion of an undo file.
func readBody(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data[HeaderSize:]
}
