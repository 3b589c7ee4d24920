package main

import (
	"encoding/json"
	"time"

	"github.com/dshills/undotree/internal/engine/history"
	"github.com/dshills/undotree/internal/engine/transaction"
	"github.com/dshills/undotree/internal/engine/undofile"
)

// JSON shapes for the dump command.
type dumpDoc struct {
	Current   int            `json:"current"`
	LastSaved int            `json:"last_saved"`
	SavedAt   string         `json:"saved_at,omitempty"`
	Digest    string         `json:"digest"`
	Revisions []dumpRevision `json:"revisions"`
}

type dumpRevision struct {
	Index       int              `json:"index"`
	Parent      int              `json:"parent"`
	LastChild   *int             `json:"last_child,omitempty"`
	Timestamp   string           `json:"timestamp,omitempty"`
	Transaction *dumpTransaction `json:"transaction,omitempty"`
	Inversion   *dumpTransaction `json:"inversion,omitempty"`
}

type dumpTransaction struct {
	Len       uint64         `json:"len"`
	LenAfter  uint64         `json:"len_after"`
	Ops       []dumpOp       `json:"ops"`
	Selection *dumpSelection `json:"selection,omitempty"`
}

type dumpOp struct {
	Op   string `json:"op"`
	N    uint64 `json:"n,omitempty"`
	Text string `json:"text,omitempty"`
}

type dumpSelection struct {
	Primary uint64      `json:"primary"`
	Ranges  []dumpRange `json:"ranges"`
}

type dumpRange struct {
	Anchor uint64 `json:"anchor"`
	Head   uint64 `json:"head"`
}

func dumpJSON(hdr undofile.Header, h *history.History) ([]byte, error) {
	doc := dumpDoc{
		Current:   hdr.Current,
		LastSaved: hdr.LastSaved,
		Digest:    hdr.Digest.String(),
		Revisions: make([]dumpRevision, 0, h.Len()),
	}
	if !hdr.LastSavedTime.IsZero() {
		doc.SavedAt = hdr.LastSavedTime.Format(time.RFC3339)
	}

	for i := 0; i < h.Len(); i++ {
		rev, _ := h.At(i)
		dr := dumpRevision{
			Index:       i,
			Parent:      rev.Parent,
			Transaction: dumpTx(rev.Transaction),
			Inversion:   dumpTx(rev.Inversion),
		}
		if rev.LastChild != history.NoChild {
			child := rev.LastChild
			dr.LastChild = &child
		}
		if !rev.Timestamp.IsZero() {
			dr.Timestamp = rev.Timestamp.UTC().Format(time.RFC3339)
		}
		doc.Revisions = append(doc.Revisions, dr)
	}

	return json.MarshalIndent(doc, "", "  ")
}

func dumpTx(tx *transaction.Transaction) *dumpTransaction {
	if tx == nil || tx.IsEmpty() {
		return nil
	}
	dt := &dumpTransaction{
		Len:      tx.Len,
		LenAfter: tx.LenAfter,
		Ops:      make([]dumpOp, 0, len(tx.Operations)),
	}
	for _, op := range tx.Operations {
		d := dumpOp{Op: op.Kind.String()}
		if op.Kind == transaction.OpInsert {
			d.Text = op.Text
		} else {
			d.N = op.N
		}
		dt.Ops = append(dt.Ops, d)
	}
	if sel := tx.Selection; sel != nil {
		ds := &dumpSelection{Primary: sel.Primary}
		for _, r := range sel.Ranges {
			ds.Ranges = append(ds.Ranges, dumpRange{Anchor: r.Anchor, Head: r.Head})
		}
		dt.Selection = ds
	}
	return dt
}
