// Package export turns an extracted selection into delimited text and hands
// it to a sink: the clipboard, a downloaded file, an XLSX workbook or a PDF.
package export

import (
	"strings"

	"github.com/hyperifyio/tablepick/internal/delimited"
)

const (
	// BaseFilename is the stem of every downloaded selection.
	BaseFilename = "table-selection"

	MIMETSV = "text/tab-separated-values;charset=utf-8"
	MIMECSV = "text/csv;charset=utf-8"
)

// Options are the per-export settings a user can change between exports.
type Options struct {
	// Delimiter is the literal separator. Empty means comma.
	Delimiter     string
	IncludeHeader bool
	AlwaysQuote   bool
	// BOM prefixes downloaded files with a UTF-8 byte order mark.
	BOM bool
}

// DefaultOptions: comma, header included, minimal quoting.
func DefaultOptions() Options {
	return Options{Delimiter: delimited.DefaultDelimiter, IncludeHeader: true}
}

// delim returns the effective delimiter.
func (o Options) delim() string {
	if o.Delimiter == "" {
		return delimited.DefaultDelimiter
	}
	return o.Delimiter
}

// ResolveDelimiter maps a delimiter choice to its literal form. Named
// choices are comma, tab, semicolon and pipe; "custom" takes the custom
// value and falls back to comma when it is empty; anything else is used
// verbatim.
func ResolveDelimiter(choice, custom string) string {
	switch strings.ToLower(choice) {
	case "", "comma", "csv":
		return ","
	case "tab", "tsv", `\t`:
		return "\t"
	case "semicolon":
		return ";"
	case "pipe":
		return "|"
	case "custom":
		if custom == "" {
			return ","
		}
		return custom
	}
	return choice
}

// DelimiterName is the inverse of ResolveDelimiter for display.
func DelimiterName(d string) string {
	switch d {
	case "", ",":
		return "comma"
	case "\t":
		return "tab"
	case ";":
		return "semicolon"
	case "|":
		return "pipe"
	}
	return "custom (" + d + ")"
}

// Filename is table-selection.tsv when the delimiter is exactly a tab and
// table-selection.csv otherwise.
func Filename(delim string) string {
	if delim == "\t" {
		return BaseFilename + ".tsv"
	}
	return BaseFilename + ".csv"
}

// MIME is the content type of a download using delim.
func MIME(delim string) string {
	if delim == "\t" {
		return MIMETSV
	}
	return MIMECSV
}
