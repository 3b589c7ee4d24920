package transaction

// VisualPosition is a cached row/column screen position for a
// selection range. It is advisory: consumers recompute it when absent.
type VisualPosition struct {
	Row uint32
	Col uint32
}

// SelRange is a single selected range. Anchor is where the selection
// started; Head is the cursor position. Anchor == Head represents a
// bare cursor. SelRange is an immutable value type.
type SelRange struct {
	Anchor uint64
	Head   uint64
	Visual *VisualPosition // Optional cached screen position
}

// Equal reports whether two ranges are identical, including the
// cached visual position.
func (r SelRange) Equal(other SelRange) bool {
	if r.Anchor != other.Anchor || r.Head != other.Head {
		return false
	}
	if (r.Visual == nil) != (other.Visual == nil) {
		return false
	}
	return r.Visual == nil || *r.Visual == *other.Visual
}

// SelectionSet is the set of cursor ranges resulting from an edit.
// Primary indexes the range that owns the "real" cursor.
type SelectionSet struct {
	Primary uint64
	Ranges  []SelRange
}

// NewSelection builds a selection set with the given primary index.
func NewSelection(primary uint64, ranges ...SelRange) *SelectionSet {
	return &SelectionSet{Primary: primary, Ranges: ranges}
}

// Equal reports whether two selection sets are identical.
func (s *SelectionSet) Equal(other *SelectionSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Primary != other.Primary || len(s.Ranges) != len(other.Ranges) {
		return false
	}
	for i := range s.Ranges {
		if !s.Ranges[i].Equal(other.Ranges[i]) {
			return false
		}
	}
	return true
}
