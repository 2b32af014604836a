// Package preview renders selections and table listings for the terminal.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hyperifyio/tablepick/internal/extract"
	"github.com/hyperifyio/tablepick/internal/scan"
	"github.com/hyperifyio/tablepick/internal/selection"
)

// MaxCellWidth caps rendered cell width; longer text is truncated.
const MaxCellWidth = 40

// Matrix writes m as a boxed table. The first row is rendered as a header
// when header is true.
func Matrix(w io.Writer, m extract.Matrix, header bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	width := 0
	for _, row := range m {
		if len(row) > width {
			width = len(row)
		}
	}
	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: MaxCellWidth, WidthMaxEnforcer: text.Trim}
	}
	t.SetColumnConfigs(configs)

	body := m
	if header && len(m) > 0 {
		t.AppendHeader(toRow(m[0]))
		body = m[1:]
	}
	for _, r := range body {
		t.AppendRow(toRow(r))
	}
	if len(m) == 0 {
		fmt.Fprintln(w, "(empty selection)")
		return
	}
	t.Render()
}

func toRow(cells []string) table.Row {
	r := make(table.Row, len(cells))
	for i, c := range cells {
		r[i] = strings.ReplaceAll(c, "\n", " ⏎ ")
	}
	return r
}

// TableInfo describes one attached table in a listing.
type TableInfo struct {
	Index    int
	Key      string
	Caption  string
	Rows     int
	Cols     int
	Selected string
	Current  bool
}

// Tables writes a listing of attached tables.
func Tables(w io.Writer, infos []TableInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No eligible tables.")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "#", "Key", "Header", "Rows", "Cols", "Selected"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: MaxCellWidth, WidthMaxEnforcer: text.Trim}})
	for _, in := range infos {
		mark := ""
		if in.Current {
			mark = "*"
		}
		t.AppendRow(table.Row{mark, in.Index, in.Key, in.Caption, in.Rows, in.Cols, in.Selected})
	}
	t.Render()
}

// Describe builds the listing entries for handles; current is the key of
// the table commands act on.
func Describe(handles []*scan.Handle, current string) []TableInfo {
	out := make([]TableInfo, len(handles))
	for i, h := range handles {
		c := h.Table.Content()
		label := c.Header
		if !c.HasHeader && len(c.Body) > 0 {
			label = c.Body[0]
		}
		out[i] = TableInfo{
			Index:    i,
			Key:      h.Key,
			Caption:  strings.Join(label, ", "),
			Rows:     len(c.Body),
			Cols:     c.Columns(),
			Selected: Summary(h.State),
			Current:  h.Key == current,
		}
	}
	return out
}

// Summary is a one-line description of a selection.
func Summary(s *selection.State) string {
	return "rows " + selection.FormatIndices(s.Rows()) + " cols " + selection.FormatIndices(s.Cols())
}
