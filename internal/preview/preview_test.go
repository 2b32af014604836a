package preview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperifyio/tablepick/internal/extract"
	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/scan"
)

func TestMatrix_HeaderAndBody(t *testing.T) {
	var buf bytes.Buffer
	Matrix(&buf, extract.Matrix{{"H1", "H2"}, {"a1", "b1"}}, true)
	out := buf.String()
	assert.Contains(t, out, "H1")
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "┌")
}

func TestMatrix_TruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", MaxCellWidth*2)
	Matrix(&buf, extract.Matrix{{long}}, false)
	assert.NotContains(t, buf.String(), long)
}

func TestMatrix_Empty(t *testing.T) {
	var buf bytes.Buffer
	Matrix(&buf, nil, true)
	assert.Equal(t, "(empty selection)\n", buf.String())
}

func TestTables_Listing(t *testing.T) {
	var buf bytes.Buffer
	Tables(&buf, []TableInfo{
		{Index: 0, Key: "doc#prices", Caption: "Item, Price", Rows: 3, Cols: 2, Selected: "rows 1 cols 0", Current: true},
		{Index: 1, Key: "doc/1", Rows: 1, Cols: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "doc#prices")
	assert.Contains(t, out, "doc/1")
	assert.Contains(t, out, "*")

	buf.Reset()
	Tables(&buf, nil)
	assert.Equal(t, "No eligible tables.\n", buf.String())
}

func TestDescribe_FromScannedPage(t *testing.T) {
	doc, err := page.Parse([]byte(`<table id="p"><tr><th>Item</th><th>Price</th></tr><tr><td>a</td><td>1</td></tr></table>`), "text/html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := scan.New(doc, scan.NewRegistry(), scan.Options{})
	s.ScanAll()
	h := s.Registry().Handles()[0]
	h.Binding.ToggleCol(1)

	infos := Describe(s.Registry().Handles(), h.Key)
	assert.Equal(t, []TableInfo{{
		Index: 0, Key: "doc#p", Caption: "Item, Price", Rows: 1, Cols: 2,
		Selected: "rows all cols 1", Current: true,
	}}, infos)
}
