package selection

// Controls is the interactive surface bound to one table: a select-all-rows
// control, one control per body row and one per content column.
// Implementations must tolerate indices outside the current bounds.
type Controls interface {
	// RowTotal is the number of body rows present right now.
	RowTotal() int
	// ColTotal is the number of content columns, excluding any control column.
	ColTotal() int
	// EnsureRowControls creates controls for rows that have none yet.
	EnsureRowControls()
	SetRowChecked(i int, on bool)
	SetAllRowsChecked(on bool)
	SetColChecked(i int, on bool)
}

// Binding keeps a State and its Controls consistent. All row and column
// mutations made through the UI should go through a Binding.
type Binding struct {
	state    *State
	controls Controls
}

// Bind couples s with c and performs an initial Refresh.
func Bind(s *State, c Controls) *Binding {
	b := &Binding{state: s, controls: c}
	b.Refresh()
	return b
}

func (b *Binding) State() *State { return b.state }

// ToggleRow flips row i and updates the select-all control.
func (b *Binding) ToggleRow(i int) {
	b.ClickRow(i, false)
}

// ClickRow applies a plain or modified click on row i.
func (b *Binding) ClickRow(i int, modified bool) {
	if a, ok := b.state.Anchor(); modified && ok {
		b.RangeSelectRows(a, i)
		return
	}
	b.state.ToggleRow(i)
	b.syncRows()
}

// RangeSelectRows adds the inclusive span between anchor and target, clipped
// to the rows present right now. A span entirely past the last row adds
// nothing.
func (b *Binding) RangeSelectRows(anchor, target int) {
	lo, hi := anchor, target
	if lo > hi {
		lo, hi = hi, lo
	}
	if last := b.controls.RowTotal() - 1; hi > last {
		hi = last
	}
	if lo < 0 {
		lo = 0
	}
	if lo <= hi {
		b.state.RangeSelectRows(lo, hi)
	}
	b.syncRows()
}

// SelectAllRows selects every row present at call time.
func (b *Binding) SelectAllRows() {
	b.state.SelectAllRows(b.controls.RowTotal())
	b.controls.SetAllRowsChecked(true)
	b.Refresh()
}

// ClearAllRows deselects every row.
func (b *Binding) ClearAllRows() {
	b.state.ClearAllRows()
	b.controls.SetAllRowsChecked(false)
	b.Refresh()
}

// SetAllRows mirrors the select-all control being switched on or off.
func (b *Binding) SetAllRows(on bool) {
	if on {
		b.SelectAllRows()
		return
	}
	b.ClearAllRows()
}

// ToggleCol flips column i.
func (b *Binding) ToggleCol(i int) {
	b.state.ToggleCol(i)
	b.controls.SetColChecked(i, b.state.HasCol(i))
}

// SelectAllCols selects every content column present at call time.
func (b *Binding) SelectAllCols() {
	n := b.controls.ColTotal()
	b.state.SelectAllCols(n)
	for c := 0; c < n; c++ {
		b.controls.SetColChecked(c, true)
	}
}

// ClearAllCols deselects every column.
func (b *Binding) ClearAllCols() {
	b.state.ClearAllCols()
	b.syncCols()
}

// SelectAll selects every row and column.
func (b *Binding) SelectAll() {
	b.SelectAllRows()
	b.SelectAllCols()
}

// Clear empties both selections. The range anchor is kept, so a modified
// click after clearing still ranges from the last plain-clicked row.
func (b *Binding) Clear() {
	b.ClearAllCols()
	b.ClearAllRows()
}

// Refresh creates controls for rows added since the last refresh and
// resynchronises every row and column control from the State.
func (b *Binding) Refresh() {
	b.controls.EnsureRowControls()
	b.syncRows()
	b.syncCols()
}

func (b *Binding) syncRows() {
	total := b.controls.RowTotal()
	for i := 0; i < total; i++ {
		b.controls.SetRowChecked(i, b.state.HasRow(i))
	}
	b.controls.SetAllRowsChecked(total > 0 && b.state.RowCount() == total)
}

func (b *Binding) syncCols() {
	for c := 0; c < b.controls.ColTotal(); c++ {
		b.controls.SetColChecked(c, b.state.HasCol(c))
	}
}
