// Package delimited serializes a text matrix as CSV, TSV or any other
// delimiter-separated format. One quoting rule applies to every delimiter:
// it is RFC 4180 generalized to arbitrary delimiter strings.
package delimited

import (
	"strings"
	"unicode"
)

// Quote is the quote character used for every format.
const Quote = `"`

// DefaultDelimiter is used when an empty delimiter is supplied.
const DefaultDelimiter = ","

// EscapeCell returns v ready to be placed between delimiters. Line endings
// are normalized to LF. The cell is quoted when alwaysQuote is set, when it
// contains the delimiter, the quote or a line feed, or when the delimiter
// itself contains whitespace.
func EscapeCell(v, delimiter, quote string, alwaysQuote bool) string {
	if quote == "" {
		quote = Quote
	}
	v = normalizeNewlines(v)
	must := alwaysQuote ||
		(delimiter != "" && strings.Contains(v, delimiter)) ||
		strings.Contains(v, quote) ||
		strings.Contains(v, "\n") ||
		hasSpace(delimiter)
	if !must {
		return v
	}
	return quote + strings.ReplaceAll(v, quote, quote+quote) + quote
}

// Encode joins cells with delimiter and rows with a line feed. There is no
// trailing line feed.
func Encode(matrix [][]string, delimiter string, alwaysQuote bool) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	var b strings.Builder
	for ri, row := range matrix {
		if ri > 0 {
			b.WriteByte('\n')
		}
		for ci, cell := range row {
			if ci > 0 {
				b.WriteString(delimiter)
			}
			b.WriteString(EscapeCell(cell, delimiter, Quote, alwaysQuote))
		}
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
