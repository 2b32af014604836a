package page

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hyperifyio/tablepick/internal/delimited"
)

// delimiterFor reports the delimiter implied by a local file's extension.
func delimiterFor(src string) (string, bool) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".csv":
		return ",", true
	case ".tsv", ".tab":
		return "\t", true
	}
	return "", false
}

// FromDelimited decodes CSV or TSV text, with or without a byte order mark,
// into a single-table document whose first record is the header row.
func FromDelimited(body []byte, delimiter string) (*Document, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), body)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	// A final line break ends the last record rather than starting a new one.
	records, err := delimited.Decode(strings.TrimRight(string(text), "\r\n"), delimiter)
	if err != nil {
		return nil, err
	}
	return FromRecords(records)
}

// FromRecords renders records as a one-table document. Cells are styled
// white-space:pre so their text reads back exactly, spaces and line breaks
// included.
func FromRecords(records [][]string) (*Document, error) {
	if len(records) == 0 {
		return nil, ErrNoDocument
	}
	var b strings.Builder
	b.WriteString("<!doctype html><html><body><table>")
	for i, rec := range records {
		switch i {
		case 0:
			b.WriteString("<thead>")
		case 1:
			b.WriteString("<tbody>")
		}
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, cell := range rec {
			fmt.Fprintf(&b, `<%s style="white-space:pre">%s</%s>`, tag, strings.ReplaceAll(html.EscapeString(cell), "\n", "<br>"), tag)
		}
		b.WriteString("</tr>")
		if i == 0 {
			b.WriteString("</thead>")
		}
	}
	if len(records) > 1 {
		b.WriteString("</tbody>")
	}
	b.WriteString("</table></body></html>")
	return Parse([]byte(b.String()), "text/html; charset=utf-8")
}
