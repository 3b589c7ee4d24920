// Package hash computes content digests for staleness detection and
// content addressing.
//
// The digest function is pinned: BLAKE2b-256, 32 bytes. The width is
// part of the on-disk undo file format and is not self-describing in
// the header, so changing either the function or the width requires a
// format version bump.
package hash

import (
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// DigestLength is the fixed digest width in bytes. Format constant.
const DigestLength = 32

// Digest is the content hash of a byte stream.
type Digest [DigestLength]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a hex string produced by Digest.String.
func Parse(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != DigestLength {
		return d, hex.ErrLength
	}
	copy(d[:], b)
	return d, nil
}

// Reader hashes everything readable from r, consuming it in 8 KiB
// chunks so arbitrarily large files never need to fit in memory.
// I/O errors from r are returned as-is.
func Reader(r io.Reader) (Digest, error) {
	var d Digest

	h, err := blake2b.New256(nil)
	if err != nil {
		return d, err
	}

	buf := make([]byte, 8192)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return d, err
		}
	}

	copy(d[:], h.Sum(nil))
	return d, nil
}

// File hashes the contents of the file at path.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	return Reader(f)
}

// Sum hashes an in-memory byte slice.
func Sum(b []byte) Digest {
	return Digest(blake2b.Sum256(b))
}
