package undostore

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/dshills/undotree/internal/engine/hash"
	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/undofile"
)

// Chain file format constants. Same discipline as the undo file: a
// fixed-width header rewritten on every commit, followed by an
// append-only node log.
const (
	ChainMagic   = "UNDOS"
	ChainVersion = byte(1)

	chainHeaderSize = len(ChainMagic) + 1 + 8
)

// Serialize writes the chain into w. The header is rewritten in place
// with the current node count; node records from fromNode onward are
// appended after the existing end of w. For fromNode 0, w must be
// empty.
func (s *Storage) Serialize(w io.WriteSeeker, fromNode int) error {
	if fromNode < 0 || fromNode > len(s.nodes) {
		return &history.InvalidDataError{Detail: "append offset out of range"}
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hdr := make([]byte, 0, chainHeaderSize)
	hdr = append(hdr, ChainMagic...)
	hdr = append(hdr, ChainVersion)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(len(s.nodes)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	if _, err := w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i := fromNode; i < len(s.nodes); i++ {
		if err := writeNode(bw, s.nodes[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Deserialize reads a chain file. Node payloads are validated only
// structurally; full history validation happens in Reconstruct.
func Deserialize(r io.Reader) (*Storage, error) {
	br := bufio.NewReader(r)

	hdr := make([]byte, chainHeaderSize)
	if _, err := io.ReadFull(br, hdr); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, undofile.ErrInvalidHeader
		}
		return nil, err
	}
	if string(hdr[:len(ChainMagic)]) != ChainMagic {
		return nil, undofile.ErrInvalidHeader
	}
	if hdr[len(ChainMagic)] != ChainVersion {
		return nil, undofile.ErrUnsupportedVersion
	}
	count := binary.LittleEndian.Uint64(hdr[len(ChainMagic)+1:])
	if count > math.MaxInt32 {
		return nil, &history.InvalidDataError{Detail: "chain node count exceeds format limit"}
	}

	s := New()
	for i := 0; i < int(count); i++ {
		node, err := readNode(br, i)
		if err != nil {
			return nil, err
		}
		s.nodes = append(s.nodes, node)
	}
	return s, nil
}

func writeNode(w io.Writer, n Node) error {
	if _, err := w.Write(n.Digest[:]); err != nil {
		return err
	}
	hasParent := n.Parent != NoParent
	flag := byte(0)
	if hasParent {
		flag = 1
	}
	if _, err := w.Write([]byte{flag}); err != nil {
		return err
	}
	if hasParent {
		if err := putUvarint(w, uint64(n.Parent)); err != nil {
			return err
		}
	}
	if err := putUvarint(w, uint64(n.Diff.Current)); err != nil {
		return err
	}
	if err := putUvarint(w, uint64(len(n.Diff.Revisions))); err != nil {
		return err
	}
	for _, rev := range n.Diff.Revisions {
		if err := undofile.WriteRevision(w, rev); err != nil {
			return err
		}
	}
	return nil
}

func readNode(r undofile.Reader, idx int) (Node, error) {
	node := Node{Parent: NoParent}

	var digest hash.Digest
	if _, err := io.ReadFull(r, digest[:]); err != nil {
		return node, chainTruncated(err)
	}
	node.Digest = digest

	flag, err := r.ReadByte()
	if err != nil {
		return node, chainTruncated(err)
	}
	switch flag {
	case 0:
	case 1:
		parent, err := getUvarint(r)
		if err != nil {
			return node, err
		}
		if parent >= idx {
			return node, &history.InvalidDataError{Detail: "chain node references itself or a later node as parent"}
		}
		node.Parent = parent
	default:
		return node, &history.InvalidDataError{Detail: "chain node parent flag has invalid value"}
	}

	if node.Diff.Current, err = getUvarint(r); err != nil {
		return node, err
	}
	revCount, err := getUvarint(r)
	if err != nil {
		return node, err
	}
	for i := 0; i < revCount; i++ {
		rev, err := undofile.ReadRevision(r)
		if err != nil {
			return node, err
		}
		node.Diff.Revisions = append(node.Diff.Revisions, rev)
	}
	return node, nil
}

func putUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func getUvarint(r io.ByteReader) (int, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, chainTruncated(err)
	}
	if v > math.MaxInt32 {
		return 0, &history.InvalidDataError{Detail: "chain value exceeds format limit"}
	}
	return int(v), nil
}

func chainTruncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &history.InvalidDataError{Detail: "unexpected end of chain file"}
	}
	return err
}
