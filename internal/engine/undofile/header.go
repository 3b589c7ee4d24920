package undofile

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/dshills/undotree/internal/engine/hash"
)

// Format constants. The digest width is part of the format: it is not
// self-describing in the header, so it can only change together with
// the version byte.
const (
	Magic   = "UNDOF"
	Version = byte(1)

	// HeaderSize is the fixed byte length of the header block,
	// including the revision count. Every save rewrites exactly this
	// prefix and appends after the current end of file.
	HeaderSize = len(Magic) + 1 + 8 + 8 + 8 + hash.DigestLength + 8
)

// Header is the decoded fixed-width prefix of an undo file.
type Header struct {
	Current       int         // Revision the document was at when saved
	LastSaved     int         // Revision recorded as last written to the document
	LastSavedTime time.Time   // When the document was last saved
	Digest        hash.Digest // Content digest of the document at save time
	Revisions     int         // Number of revision records that follow
}

// encode writes the fixed-width header block.
func (h Header) encode(w io.Writer) error {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, Magic...)
	buf = append(buf, Version)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Current))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.LastSaved))
	var ts uint64
	if !h.LastSavedTime.IsZero() {
		ts = uint64(h.LastSavedTime.Unix())
	}
	buf = binary.LittleEndian.AppendUint64(buf, ts)
	buf = append(buf, h.Digest[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Revisions))
	_, err := w.Write(buf)
	return err
}

// DecodeHeader reads and validates the magic tag and version byte,
// then the remaining header fields. It does not verify the digest
// against any document; use ReadHeader for that.
func DecodeHeader(r io.Reader) (Header, error) {
	var hdr Header

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return hdr, ErrInvalidHeader
		}
		return hdr, err
	}

	if string(buf[:len(Magic)]) != Magic {
		return hdr, ErrInvalidHeader
	}
	if buf[len(Magic)] != Version {
		return hdr, ErrUnsupportedVersion
	}

	off := len(Magic) + 1
	current := binary.LittleEndian.Uint64(buf[off:])
	lastSaved := binary.LittleEndian.Uint64(buf[off+8:])
	ts := binary.LittleEndian.Uint64(buf[off+16:])
	copy(hdr.Digest[:], buf[off+24:off+24+hash.DigestLength])
	count := binary.LittleEndian.Uint64(buf[off+24+hash.DigestLength:])

	if current > math.MaxInt32 || lastSaved > math.MaxInt32 || count > math.MaxInt32 {
		return hdr, invalidData("header indices exceed format limit")
	}
	hdr.Current = int(current)
	hdr.LastSaved = int(lastSaved)
	if ts > 0 {
		hdr.LastSavedTime = time.Unix(int64(ts), 0)
	}
	hdr.Revisions = int(count)
	return hdr, nil
}

// ReadHeader decodes the header and verifies the stored digest
// against a fresh digest of the document at livePath. A mismatch
// returns ErrOutdated: the document was modified since this history
// was last synchronized with it.
func ReadHeader(r io.Reader, livePath string) (Header, error) {
	hdr, err := DecodeHeader(r)
	if err != nil {
		return hdr, err
	}

	live, err := hash.File(livePath)
	if err != nil {
		return hdr, err
	}
	if live != hdr.Digest {
		return hdr, ErrOutdated
	}
	return hdr, nil
}

// IsValid reports whether r holds a well-formed undo file header that
// matches the document at livePath. It is the cheap existence and
// sanity probe: no revision records are read.
func IsValid(r io.Reader, livePath string) bool {
	_, err := ReadHeader(r, livePath)
	return err == nil
}
