package hash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
)

func TestReaderDeterministic(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	d1, err := Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader() error: %v", err)
	}
	d2, err := Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader() error: %v", err)
	}
	if d1 != d2 {
		t.Error("same input should produce same digest")
	}
}

func TestReaderMatchesSum(t *testing.T) {
	data := []byte("hello undo tree")

	d1, err := Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader() error: %v", err)
	}
	if d2 := Sum(data); d1 != d2 {
		t.Errorf("Reader = %s, Sum = %s", d1, d2)
	}
}

func TestSingleByteChangeChangesDigest(t *testing.T) {
	// Large enough to cross several 8 KiB read chunks.
	data := bytes.Repeat([]byte("abcdefgh"), 4096)
	base := Sum(data)

	for _, pos := range []int{0, 8191, 8192, len(data) - 1} {
		mutated := bytes.Clone(data)
		mutated[pos] ^= 0x01
		if Sum(mutated) == base {
			t.Errorf("flipping byte %d did not change digest", pos)
		}
	}
}

func TestReaderChunkedEqualsWhole(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 20000)

	whole := Sum(data)
	chunked, err := Reader(iotest.OneByteReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Reader() error: %v", err)
	}
	if chunked != whole {
		t.Error("chunked reading should produce the same digest")
	}
}

func TestReaderPropagatesIOError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := Reader(iotest.ErrReader(boom)); !errors.Is(err, boom) {
		t.Errorf("Reader() error = %v, want boom", err)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.txt")
	if err := os.WriteFile(path, []byte("file content"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := File(path)
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if d != Sum([]byte("file content")) {
		t.Error("File digest should match Sum of contents")
	}

	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("File() on missing path should fail")
	}
}

func TestParseRoundTrip(t *testing.T) {
	d := Sum([]byte("round trip"))

	got, err := Parse(d.String())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got != d {
		t.Error("Parse(String()) should round-trip")
	}

	if _, err := Parse("abcd"); err == nil {
		t.Error("short hex should fail")
	}
	if _, err := Parse(strings.Repeat("zz", DigestLength)); err == nil {
		t.Error("invalid hex should fail")
	}
}
