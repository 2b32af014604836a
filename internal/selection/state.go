// Package selection tracks which rows and columns of one table the user has
// picked, plus the anchor used for shift-click range selection.
//
// Row indices are body-relative and column indices are content-relative
// (any injected control column is excluded). Indices are never validated
// against the live table: a stale index simply reads as empty later on.
package selection

import "sort"

// State is the per-table selection record. The zero value is ready to use.
// A State is owned by exactly one table handle and is not safe for
// concurrent use.
type State struct {
	rows   map[int]struct{}
	cols   map[int]struct{}
	anchor *int
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// ToggleRow flips membership of row i and makes it the range anchor.
func (s *State) ToggleRow(i int) {
	s.rows = toggle(s.rows, i)
	s.setAnchor(i)
}

// RangeSelectRows adds every row in the inclusive span between anchor and
// target. It never removes rows and does not move the anchor.
func (s *State) RangeSelectRows(anchor, target int) {
	lo, hi := anchor, target
	if lo > hi {
		lo, hi = hi, lo
	}
	if s.rows == nil {
		s.rows = make(map[int]struct{}, hi-lo+1)
	}
	for i := lo; i <= hi; i++ {
		s.rows[i] = struct{}{}
	}
}

// ClickRow applies a row click. A modified (shift) click with an existing
// anchor selects the range; otherwise the row is toggled and becomes the
// new anchor.
func (s *State) ClickRow(i int, modified bool) {
	if modified && s.anchor != nil {
		s.RangeSelectRows(*s.anchor, i)
		return
	}
	s.ToggleRow(i)
}

// SelectAllRows replaces the row selection with 0..n-1.
func (s *State) SelectAllRows(n int) {
	s.rows = fill(n)
}

// ClearAllRows empties the row selection.
func (s *State) ClearAllRows() {
	s.rows = nil
}

// SetRow forces membership of row i without touching the anchor.
func (s *State) SetRow(i int, on bool) {
	s.rows = set(s.rows, i, on)
}

// ToggleCol flips membership of column i.
func (s *State) ToggleCol(i int) {
	s.cols = toggle(s.cols, i)
}

// SetCol forces membership of column i.
func (s *State) SetCol(i int, on bool) {
	s.cols = set(s.cols, i, on)
}

// SelectAllCols replaces the column selection with 0..n-1.
func (s *State) SelectAllCols(n int) {
	s.cols = fill(n)
}

// ClearAllCols empties the column selection.
func (s *State) ClearAllCols() {
	s.cols = nil
}

// Clear drops rows, columns and the anchor.
func (s *State) Clear() {
	s.rows = nil
	s.cols = nil
	s.anchor = nil
}

func (s *State) HasRow(i int) bool { _, ok := s.rows[i]; return ok }
func (s *State) HasCol(i int) bool { _, ok := s.cols[i]; return ok }
func (s *State) RowCount() int     { return len(s.rows) }
func (s *State) ColCount() int     { return len(s.cols) }

// Rows returns the selected rows in ascending order.
func (s *State) Rows() []int { return sorted(s.rows) }

// Cols returns the selected columns in ascending order.
func (s *State) Cols() []int { return sorted(s.cols) }

// Anchor returns the last plain-clicked row.
func (s *State) Anchor() (int, bool) {
	if s.anchor == nil {
		return 0, false
	}
	return *s.anchor, true
}

func (s *State) setAnchor(i int) {
	v := i
	s.anchor = &v
}

func toggle(m map[int]struct{}, i int) map[int]struct{} {
	_, ok := m[i]
	return set(m, i, !ok)
}

func set(m map[int]struct{}, i int, on bool) map[int]struct{} {
	if !on {
		delete(m, i)
		return m
	}
	if m == nil {
		m = make(map[int]struct{})
	}
	m[i] = struct{}{}
	return m
}

func fill(n int) map[int]struct{} {
	if n <= 0 {
		return nil
	}
	m := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		m[i] = struct{}{}
	}
	return m
}

func sorted(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
