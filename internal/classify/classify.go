// Package classify decides whether a table has an unambiguous rectangular
// index space. Only tables where every cell spans exactly one row and one
// column are eligible; anything with merged cells is rejected up front.
package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrClassificationRejected is the parent of every rejection reason. It is
// logged at debug level by callers and never surfaced to the user.
var ErrClassificationRejected = errors.New("table rejected")

var (
	ErrEmptyTable  = fmt.Errorf("%w: no rows or no cells in first row", ErrClassificationRejected)
	ErrMergedCells = fmt.Errorf("%w: merged cells", ErrClassificationRejected)
)

// Span is the extent of one cell.
type Span struct {
	Col int
	Row int
}

// Row is an ordered set of cell spans.
type Row []Span

// Eligible reports whether rows describe a span-free, non-empty table.
func Eligible(rows []Row) bool {
	return Check(rows) == nil
}

// Check returns nil for an eligible table or the reason it was rejected.
func Check(rows []Row) error {
	for ri, r := range rows {
		for ci, s := range r {
			if s.Col > 1 || s.Row > 1 {
				return fmt.Errorf("%w at row %d cell %d (%dx%d)", ErrMergedCells, ri, ci, s.Col, s.Row)
			}
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ErrEmptyTable
	}
	return nil
}

// ParseSpan reads a colspan/rowspan attribute value the way browsers do:
// missing, malformed, zero or negative values all mean 1. Leading digits are
// honoured so "2px" is 2.
func ParseSpan(v string) int {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 1
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
