// Package extract projects a table selection onto live table content,
// producing the rectangular text matrix that encoders serialize.
package extract

import (
	"sort"

	"github.com/hyperifyio/tablepick/internal/selection"
)

// Matrix is ordered rows of ordered cell text. Row 0 is the header row iff
// the header was requested and present at extraction time.
type Matrix [][]string

// Content is a snapshot of a table's rendered text with any control column
// already removed.
type Content struct {
	Header    []string
	HasHeader bool
	Body      [][]string
}

// Columns is the size of the content column index space: the header width
// when there is a header, otherwise the width of the first body row.
func (c Content) Columns() int {
	if c.HasHeader {
		return len(c.Header)
	}
	if len(c.Body) > 0 {
		return len(c.Body[0])
	}
	return 0
}

// Source provides live table content at the moment of extraction.
type Source interface {
	Content() Content
}

// Extract builds the matrix for the given row and column selections. An
// empty rows or cols selection means every row or column. Rows are emitted
// in document order and columns in ascending order regardless of the order
// in which they were picked. Indices beyond the live table read as "".
func Extract(c Content, rows, cols []int, includeHeader bool) Matrix {
	effRows := effectiveRows(len(c.Body), rows)
	effCols := effectiveCols(c.Columns(), cols)

	m := make(Matrix, 0, len(effRows)+1)
	if includeHeader && c.HasHeader {
		m = append(m, pick(c.Header, effCols))
	}
	for _, r := range effRows {
		m = append(m, pick(c.Body[r], effCols))
	}
	return m
}

// FromState extracts using a table's selection state.
func FromState(c Content, s *selection.State, includeHeader bool) Matrix {
	if s == nil {
		return Extract(c, nil, nil, includeHeader)
	}
	return Extract(c, s.Rows(), s.Cols(), includeHeader)
}

// FromSource reads live content from src and extracts with s.
func FromSource(src Source, s *selection.State, includeHeader bool) Matrix {
	return FromState(src.Content(), s, includeHeader)
}

// effectiveRows keeps selected rows that still exist, in document order.
// Stale row indices have no row to read and are dropped.
func effectiveRows(n int, selected []int) []int {
	if len(selected) == 0 {
		return seq(n)
	}
	keep := make(map[int]struct{}, len(selected))
	for _, r := range selected {
		keep[r] = struct{}{}
	}
	out := make([]int, 0, len(selected))
	for i := 0; i < n; i++ {
		if _, ok := keep[i]; ok {
			out = append(out, i)
		}
	}
	return out
}

func effectiveCols(n int, selected []int) []int {
	if len(selected) == 0 {
		return seq(n)
	}
	out := append([]int(nil), selected...)
	sort.Ints(out)
	return dedupe(out)
}

func pick(cells []string, cols []int) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		if c >= 0 && c < len(cells) {
			row[i] = cells[c]
		}
	}
	return row
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
