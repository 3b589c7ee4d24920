package undofile

import (
	"encoding/binary"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/transaction"
)

// Operation tags in the revision log.
const (
	tagRetain byte = 0
	tagDelete byte = 1
	tagInsert byte = 2
)

// Reader is the byte source revision records are decoded from.
// bufio.Reader and bytes.Reader both satisfy it.
type Reader interface {
	io.Reader
	io.ByteReader
}

// maxBlob caps length prefixes read from untrusted files so a corrupt
// count cannot trigger a giant allocation.
const maxBlob = 1 << 30

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

// readUvarint reads a varint and converts it to a non-negative int,
// rejecting values that cannot index a slice on any platform.
func readUvarint(r Reader, what string) (int, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, truncated(err, what)
	}
	if v > math.MaxInt32 {
		return 0, invalidData("%s %d exceeds format limit", what, v)
	}
	return int(v), nil
}

func readUvarint64(r Reader, what string) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, truncated(err, what)
	}
	return v, nil
}

// truncated maps end-of-input inside a record to invalid data: the
// revision count in the header promised more bytes than exist.
func truncated(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return invalidData("unexpected end of file reading %s", what)
	}
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUvarint(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r Reader, what string) (string, error) {
	n, err := readUvarint(r, what)
	if err != nil {
		return "", err
	}
	if n > maxBlob {
		return "", invalidData("%s length %d exceeds format limit", what, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncated(err, what)
	}
	if !utf8.Valid(buf) {
		return "", invalidData("%s is not valid UTF-8", what)
	}
	return string(buf), nil
}

func writeBool(w io.Writer, b bool) error {
	v := byte(0)
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r Reader, what string) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, truncated(err, what)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, invalidData("%s flag has invalid value %d", what, b)
	}
}

// Selection: primary, range count, then each range as anchor, head,
// and an optional cached visual position (two fixed uint32s).

func writeSelection(w io.Writer, sel *transaction.SelectionSet) error {
	if err := writeUvarint(w, sel.Primary); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(sel.Ranges))); err != nil {
		return err
	}
	for _, rg := range sel.Ranges {
		if err := writeUvarint(w, rg.Anchor); err != nil {
			return err
		}
		if err := writeUvarint(w, rg.Head); err != nil {
			return err
		}
		if err := writeBool(w, rg.Visual != nil); err != nil {
			return err
		}
		if rg.Visual != nil {
			var buf [8]byte
			binary.LittleEndian.PutUint32(buf[0:4], rg.Visual.Row)
			binary.LittleEndian.PutUint32(buf[4:8], rg.Visual.Col)
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func readSelection(r Reader) (*transaction.SelectionSet, error) {
	primary, err := readUvarint64(r, "selection primary")
	if err != nil {
		return nil, err
	}
	count, err := readUvarint(r, "selection range count")
	if err != nil {
		return nil, err
	}

	sel := &transaction.SelectionSet{Primary: primary}
	for i := 0; i < count; i++ {
		var rg transaction.SelRange
		if rg.Anchor, err = readUvarint64(r, "selection anchor"); err != nil {
			return nil, err
		}
		if rg.Head, err = readUvarint64(r, "selection head"); err != nil {
			return nil, err
		}
		hasVisual, err := readBool(r, "visual position")
		if err != nil {
			return nil, err
		}
		if hasVisual {
			var buf [8]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, truncated(err, "visual position")
			}
			rg.Visual = &transaction.VisualPosition{
				Row: binary.LittleEndian.Uint32(buf[0:4]),
				Col: binary.LittleEndian.Uint32(buf[4:8]),
			}
		}
		sel.Ranges = append(sel.Ranges, rg)
	}
	return sel, nil
}

// Transaction: optional selection, input length, output length, then
// the tagged operation list.

func writeTransaction(w io.Writer, tx *transaction.Transaction) error {
	if err := writeBool(w, tx.Selection != nil); err != nil {
		return err
	}
	if tx.Selection != nil {
		if err := writeSelection(w, tx.Selection); err != nil {
			return err
		}
	}
	if err := writeUvarint(w, tx.Len); err != nil {
		return err
	}
	if err := writeUvarint(w, tx.LenAfter); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(tx.Operations))); err != nil {
		return err
	}
	for _, op := range tx.Operations {
		switch op.Kind {
		case transaction.OpRetain:
			if _, err := w.Write([]byte{tagRetain}); err != nil {
				return err
			}
			if err := writeUvarint(w, op.N); err != nil {
				return err
			}
		case transaction.OpDelete:
			if _, err := w.Write([]byte{tagDelete}); err != nil {
				return err
			}
			if err := writeUvarint(w, op.N); err != nil {
				return err
			}
		case transaction.OpInsert:
			if _, err := w.Write([]byte{tagInsert}); err != nil {
				return err
			}
			if err := writeString(w, op.Text); err != nil {
				return err
			}
		default:
			return invalidData("unencodable operation kind %d", op.Kind)
		}
	}
	return nil
}

func readTransaction(r Reader) (*transaction.Transaction, error) {
	hasSel, err := readBool(r, "selection presence")
	if err != nil {
		return nil, err
	}

	tx := &transaction.Transaction{}
	if hasSel {
		if tx.Selection, err = readSelection(r); err != nil {
			return nil, err
		}
	}
	if tx.Len, err = readUvarint64(r, "transaction length"); err != nil {
		return nil, err
	}
	if tx.LenAfter, err = readUvarint64(r, "transaction length-after"); err != nil {
		return nil, err
	}
	opCount, err := readUvarint(r, "operation count")
	if err != nil {
		return nil, err
	}

	for i := 0; i < opCount; i++ {
		tag, err := r.ReadByte()
		if err != nil {
			return nil, truncated(err, "operation tag")
		}
		switch tag {
		case tagRetain, tagDelete:
			n, err := readUvarint64(r, "operation count value")
			if err != nil {
				return nil, err
			}
			if tag == tagRetain {
				tx.Operations = append(tx.Operations, transaction.Retain(n))
			} else {
				tx.Operations = append(tx.Operations, transaction.Delete(n))
			}
		case tagInsert:
			text, err := readString(r, "insert text")
			if err != nil {
				return nil, err
			}
			tx.Operations = append(tx.Operations, transaction.Insert(text))
		default:
			return nil, invalidData("unknown operation tag %d", tag)
		}
	}

	if err := tx.Validate(); err != nil {
		return nil, invalidData("transaction lengths inconsistent: %v", err)
	}
	return tx, nil
}

// WriteRevision encodes one revision record: parent index, forward
// transaction, inverse transaction, timestamp in Unix seconds.
func WriteRevision(w io.Writer, rev history.Revision) error {
	if rev.Parent < 0 {
		return invalidData("revision parent %d is negative", rev.Parent)
	}
	if err := writeUvarint(w, uint64(rev.Parent)); err != nil {
		return err
	}
	if err := writeTransaction(w, rev.Transaction); err != nil {
		return err
	}
	if err := writeTransaction(w, rev.Inversion); err != nil {
		return err
	}
	var ts uint64
	if !rev.Timestamp.IsZero() {
		ts = uint64(rev.Timestamp.Unix())
	}
	return writeUvarint(w, ts)
}

// ReadRevision decodes one revision record. LastChild is left at
// NoChild; callers reconstruct child links from parent references.
func ReadRevision(r Reader) (history.Revision, error) {
	rev := history.Revision{LastChild: history.NoChild}

	parent, err := readUvarint(r, "revision parent")
	if err != nil {
		return rev, err
	}
	rev.Parent = parent

	if rev.Transaction, err = readTransaction(r); err != nil {
		return rev, err
	}
	if rev.Inversion, err = readTransaction(r); err != nil {
		return rev, err
	}

	ts, err := readUvarint64(r, "revision timestamp")
	if err != nil {
		return rev, err
	}
	if ts > 0 {
		rev.Timestamp = time.Unix(int64(ts), 0)
	}
	return rev, nil
}
