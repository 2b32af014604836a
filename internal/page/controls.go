package page

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperifyio/tablepick/internal/extract"
)

// Marker names written into the document.
const (
	ExtClass      = "tpc-ext"
	ProcessedAttr = "data-tpc-processed"
	TableClass    = ExtClass + "-table"
	ToolbarClass  = ExtClass + "-toolbar"
	HandleAttr    = "data-tpc-handle"

	rowSelectClass   = ExtClass + "-row-select"
	rowSelectTHClass = ExtClass + "-row-select-th"
	colHeaderClass   = ExtClass + "-col-header"
	colTitleClass    = ExtClass + "-col-title"
	colCheckboxClass = ExtClass + "-col-cb"
	colAttr          = "data-tpc-col"
)

// Processed reports whether the one-shot processed marker is set on n.
func Processed(n *html.Node) bool {
	v, ok := attr(n, ProcessedAttr)
	return ok && v != ""
}

// MarkProcessed sets the processed marker and the visual marker class.
func MarkProcessed(n *html.Node) {
	setAttr(n, ProcessedAttr, "1")
	addClass(n, TableClass)
}

func isControlCell(n *html.Node) bool {
	return hasClass(n, rowSelectClass) || hasClass(n, rowSelectTHClass)
}

// Controls is the checkbox surface injected into an attached table. It
// implements selection.Controls on top of the live tree.
type Controls struct {
	table *Table
	all   *html.Node
}

// InjectControls normalizes t, inserts the row-select control column and
// per-column header checkboxes, and places a toolbar marker before the table.
// It must only be called once per table; callers guard with Processed.
func InjectControls(t *Table, handleID string) *Controls {
	t.Normalize()
	c := &Controls{table: t}

	headRow := t.HeadRow()
	if headRow != nil {
		th := newElement(atom.Th, "class", rowSelectTHClass, "title", "Select all rows")
		c.all = checkbox()
		th.AppendChild(c.all)
		headRow.InsertBefore(th, headRow.FirstChild)

		for i, cell := range contentCells(headRow) {
			decorateHeader(cell, i)
		}
	}

	toolbar := newElement(atom.Div, "class", ToolbarClass, HandleAttr, handleID)
	hint := newElement(atom.Div, "class", ExtClass+"-hint")
	hint.AppendChild(newText("Tip: Use the header checkboxes to pick columns, and the left edge to pick rows. Shift-click a row checkbox to select a range."))
	toolbar.AppendChild(hint)
	if t.Node.Parent != nil {
		t.Node.Parent.InsertBefore(toolbar, t.Node)
	}

	c.EnsureRowControls()
	return c
}

// AdoptControls rebuilds a Controls view for a table that was already
// injected, for example after the registry lost track of it.
func AdoptControls(t *Table) *Controls {
	c := &Controls{table: t}
	if hr := t.HeadRow(); hr != nil {
		if cells := Cells(hr); len(cells) > 0 && isControlCell(cells[0]) {
			c.all = findInput(cells[0])
		}
	}
	return c
}

func decorateHeader(th *html.Node, col int) {
	title := strings.TrimSpace(extract.CellText(th))
	if title == "" {
		title = fmt.Sprintf("Col %d", col+1)
	}
	wrapper := newElement(atom.Div, "class", colHeaderClass)
	cb := checkbox("class", colCheckboxClass, "title", "Select column", colAttr, strconv.Itoa(col))
	span := newElement(atom.Span, "class", colTitleClass)
	span.AppendChild(newText(title))
	wrapper.AppendChild(cb)
	wrapper.AppendChild(span)
	removeChildren(th)
	th.AppendChild(wrapper)
}

func checkbox(attrs ...string) *html.Node {
	return newElement(atom.Input, append([]string{"type", "checkbox"}, attrs...)...)
}

func findInput(n *html.Node) *html.Node {
	if isElement(n, atom.Input) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if in := findInput(c); in != nil {
			return in
		}
	}
	return nil
}

func setChecked(in *html.Node, on bool) {
	if in == nil {
		return
	}
	if on {
		setAttr(in, "checked", "")
	} else {
		removeAttr(in, "checked")
	}
}

// IsChecked reports whether a checkbox element carries the checked attribute.
func IsChecked(in *html.Node) bool {
	if in == nil {
		return false
	}
	_, ok := attr(in, "checked")
	return ok
}

func (c *Controls) RowTotal() int { return len(c.table.BodyRows()) }

func (c *Controls) ColTotal() int {
	if hr := c.table.HeadRow(); hr != nil {
		return len(contentCells(hr))
	}
	return 0
}

// EnsureRowControls inserts a control cell into every body row lacking one.
func (c *Controls) EnsureRowControls() {
	for _, tr := range c.table.BodyRows() {
		cells := Cells(tr)
		if len(cells) > 0 && isControlCell(cells[0]) {
			continue
		}
		td := newElement(atom.Td, "class", rowSelectClass)
		td.AppendChild(checkbox())
		tr.InsertBefore(td, tr.FirstChild)
	}
}

func (c *Controls) SetRowChecked(i int, on bool) {
	setChecked(c.rowInput(i), on)
}

func (c *Controls) SetAllRowsChecked(on bool) {
	setChecked(c.all, on)
}

func (c *Controls) SetColChecked(i int, on bool) {
	setChecked(c.colInput(i), on)
}

// RowChecked reports the visual state of row i's checkbox.
func (c *Controls) RowChecked(i int) bool { return IsChecked(c.rowInput(i)) }

// ColChecked reports the visual state of column i's checkbox.
func (c *Controls) ColChecked(i int) bool { return IsChecked(c.colInput(i)) }

// AllRowsChecked reports the visual state of the select-all checkbox.
func (c *Controls) AllRowsChecked() bool { return IsChecked(c.all) }

func (c *Controls) rowInput(i int) *html.Node {
	rows := c.table.BodyRows()
	if i < 0 || i >= len(rows) {
		return nil
	}
	cells := Cells(rows[i])
	if len(cells) == 0 || !isControlCell(cells[0]) {
		return nil
	}
	return findInput(cells[0])
}

func (c *Controls) colInput(i int) *html.Node {
	hr := c.table.HeadRow()
	if hr == nil {
		return nil
	}
	cells := contentCells(hr)
	if i < 0 || i >= len(cells) {
		return nil
	}
	return findInput(cells[i])
}
