// Package page holds the live document a session works on: a parsed HTML
// tree, views over its tables, and the selection controls injected into
// them.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/tablepick/internal/extract"
)

// ErrNoDocument is returned when a source yields nothing parseable.
var ErrNoDocument = errors.New("no document")

// Getter fetches a remote page. fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Document is a parsed page.
type Document struct {
	Root        *html.Node
	Source      string
	ContentType string
}

// Parse decodes body according to contentType, a BOM or a <meta> charset
// declaration, and parses it as HTML.
func Parse(body []byte, contentType string) (*Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrNoDocument
	}
	if contentType == "" {
		// Leave the charset out so <meta charset> prescanning still applies.
		contentType = "text/html"
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{Root: root, ContentType: contentType}, nil
}

// IsURL reports whether src should be fetched rather than read from disk.
func IsURL(src string) bool {
	s := strings.ToLower(src)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Read returns the raw bytes and content type of src.
func Read(ctx context.Context, src string, g Getter) ([]byte, string, error) {
	if IsURL(src) {
		if g == nil {
			return nil, "", fmt.Errorf("fetch %s: no http client configured", src)
		}
		return g.Get(ctx, src)
	}
	var (
		b   []byte
		err error
	)
	if src == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", src, err)
	}
	return b, "", nil
}

// Load reads and parses src, a file path, "-" for stdin, or an http(s) URL.
// Files ending in .csv or .tsv are loaded as a single table.
func Load(ctx context.Context, src string, g Getter) (*Document, error) {
	b, ct, err := Read(ctx, src, g)
	if err != nil {
		return nil, err
	}
	var doc *Document
	if d, ok := delimiterFor(src); ok && !IsURL(src) {
		doc, err = FromDelimited(b, d)
	} else {
		doc, err = Parse(b, ct)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	doc.Source = src
	return doc, nil
}

// Title returns the document title.
func (d *Document) Title() string {
	return extract.Title(d.Root)
}

// Contains reports whether n is still attached to the document tree.
func (d *Document) Contains(n *html.Node) bool {
	return n != nil && contains(d.Root, n)
}

// Render writes the document, including any injected controls, as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.Root)
}
