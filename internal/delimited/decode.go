package delimited

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote is returned by Decode when a quoted cell never closes.
var ErrUnterminatedQuote = errors.New("delimited: unterminated quoted cell")

// Decode parses text produced by Encode back into a matrix. Rows are split
// on line feeds outside quotes. Characters following a closing quote up to
// the next delimiter are kept verbatim. Empty input yields a nil matrix.
func Decode(text, delimiter string) ([][]string, error) {
	if text == "" {
		return nil, nil
	}
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	text = normalizeNewlines(text)

	var (
		out [][]string
		row []string
		i   int
	)
	for {
		var cell strings.Builder
		if strings.HasPrefix(text[i:], Quote) {
			i += len(Quote)
			closed := false
			for i < len(text) {
				if strings.HasPrefix(text[i:], Quote+Quote) {
					cell.WriteString(Quote)
					i += 2 * len(Quote)
					continue
				}
				if strings.HasPrefix(text[i:], Quote) {
					i += len(Quote)
					closed = true
					break
				}
				cell.WriteByte(text[i])
				i++
			}
			if !closed {
				return out, ErrUnterminatedQuote
			}
		}
		for i < len(text) && text[i] != '\n' && !strings.HasPrefix(text[i:], delimiter) {
			cell.WriteByte(text[i])
			i++
		}
		row = append(row, cell.String())

		switch {
		case i >= len(text):
			return append(out, row), nil
		case text[i] == '\n':
			out = append(out, row)
			row = nil
			i++
		default:
			i += len(delimiter)
		}
	}
}
