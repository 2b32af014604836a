package page

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperifyio/tablepick/internal/classify"
	"github.com/hyperifyio/tablepick/internal/extract"
)

// Table is a view over a live <table> element. It holds no copy of the
// content: every accessor reads the tree as it is now.
type Table struct {
	Node *html.Node
}

// NewTable wraps a <table> element.
func NewTable(n *html.Node) *Table {
	return &Table{Node: n}
}

// Rows returns the table's own rows in document order: thead, tbody, tfoot
// and bare <tr> children. Rows of nested tables are not included.
func (t *Table) Rows() []*html.Node {
	var out []*html.Node
	for c := t.Node.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isElement(c, atom.Tr):
			out = append(out, c)
		case isElement(c, atom.Thead), isElement(c, atom.Tbody), isElement(c, atom.Tfoot):
			out = append(out, childElements(c, atom.Tr)...)
		}
	}
	return out
}

// Spans returns the column/row span of every cell, for classification.
func (t *Table) Spans() []classify.Row {
	rows := t.Rows()
	out := make([]classify.Row, len(rows))
	for i, tr := range rows {
		cells := Cells(tr)
		r := make(classify.Row, len(cells))
		for j, td := range cells {
			cs, _ := attr(td, "colspan")
			rs, _ := attr(td, "rowspan")
			r[j] = classify.Span{Col: classify.ParseSpan(cs), Row: classify.ParseSpan(rs)}
		}
		out[i] = r
	}
	return out
}

// Check reports why the table cannot be attached, or nil when it can.
func (t *Table) Check() error {
	return classify.Check(t.Spans())
}

// Head returns the first <thead>, or nil.
func (t *Table) Head() *html.Node {
	return firstChildElement(t.Node, atom.Thead)
}

// HeadRow returns the first row of the header section, or nil.
func (t *Table) HeadRow() *html.Node {
	if h := t.Head(); h != nil {
		return firstChildElement(h, atom.Tr)
	}
	return nil
}

// BodyRows returns the rows of every <tbody>, in document order.
func (t *Table) BodyRows() []*html.Node {
	var out []*html.Node
	for _, tb := range childElements(t.Node, atom.Tbody) {
		out = append(out, childElements(tb, atom.Tr)...)
	}
	return out
}

// Cells returns the <td>/<th> children of a row.
func Cells(tr *html.Node) []*html.Node {
	return childElements(tr, atom.Td, atom.Th)
}

// contentCells drops the injected control cell, if the row has one.
func contentCells(tr *html.Node) []*html.Node {
	cells := Cells(tr)
	if len(cells) > 0 && isControlCell(cells[0]) {
		return cells[1:]
	}
	return cells
}

// Content snapshots the rendered text of the table. The control column is
// excluded per row, so rows added after attachment that have not been
// refreshed yet are still addressed correctly.
func (t *Table) Content() extract.Content {
	var c extract.Content
	if hr := t.HeadRow(); hr != nil {
		c.HasHeader = true
		c.Header = texts(contentCells(hr))
	}
	rows := t.BodyRows()
	if t.Head() == nil {
		// Not normalized yet: every row is a body row.
		rows = t.Rows()
	}
	c.Body = make([][]string, len(rows))
	for i, tr := range rows {
		c.Body[i] = texts(contentCells(tr))
	}
	return c
}

func texts(cells []*html.Node) []string {
	out := make([]string, len(cells))
	for i, td := range cells {
		out[i] = extract.CellText(td)
	}
	return out
}

// Normalize makes sure the table has a header section holding its first row
// and a body section holding the remaining rows, so that header and body
// indices are well defined. Rows inside <tfoot> stay where they are.
func (t *Table) Normalize() {
	if t.HeadRow() == nil {
		head := t.Head()
		if head == nil {
			head = newElement(atom.Thead)
			t.Node.InsertBefore(head, t.firstSectionChild())
		}
		if rows := t.Rows(); len(rows) > 0 {
			first := rows[0]
			if first.Parent != head {
				head.AppendChild(detach(first))
			}
		}
	}
	if len(childElements(t.Node, atom.Tbody)) == 0 {
		body := newElement(atom.Tbody)
		head := t.Head()
		for _, tr := range t.Rows() {
			if tr.Parent == head || isElement(tr.Parent, atom.Tfoot) {
				continue
			}
			body.AppendChild(detach(tr))
		}
		if foot := firstChildElement(t.Node, atom.Tfoot); foot != nil {
			t.Node.InsertBefore(body, foot)
		} else {
			t.Node.AppendChild(body)
		}
	}
}

// firstSectionChild is where a new <thead> goes: after any caption and
// colgroup elements.
func (t *Table) firstSectionChild() *html.Node {
	for c := t.Node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Caption || c.DataAtom == atom.Colgroup {
			continue
		}
		return c
	}
	return nil
}
