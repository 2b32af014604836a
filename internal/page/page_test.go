package page

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/hyperifyio/tablepick/internal/classify"
)

const simpleTable = `
<table>
  <thead><tr><th>H1</th><th>H2</th></tr></thead>
  <tbody>
    <tr><td>a1</td><td>b1</td></tr>
    <tr><td>a2</td><td>b2</td></tr>
  </tbody>
</table>`

func parse(t *testing.T, body string) *Document {
	t.Helper()
	doc, err := Parse([]byte("<!doctype html><html><body>"+body+"</body></html>"), "text/html; charset=utf-8")
	require.NoError(t, err)
	return doc
}

func firstTable(t *testing.T, doc *Document) *Table {
	t.Helper()
	tables := Tables(doc.Root)
	require.NotEmpty(t, tables)
	return NewTable(tables[0])
}

func TestContent_BeforeAndAfterInjection(t *testing.T) {
	doc := parse(t, simpleTable)
	tbl := firstTable(t, doc)
	want := [][]string{{"a1", "b1"}, {"a2", "b2"}}

	c := tbl.Content()
	assert.True(t, c.HasHeader)
	assert.Equal(t, []string{"H1", "H2"}, c.Header)
	assert.Equal(t, want, c.Body)

	InjectControls(tbl, "h1")
	c = tbl.Content()
	assert.Equal(t, []string{"H1", "H2"}, c.Header, "control column is excluded")
	assert.Equal(t, want, c.Body)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, firstTable(t, parse(t, simpleTable)).Check())
	assert.ErrorIs(t, firstTable(t, parse(t, `<table><tr><td colspan="2">x</td></tr></table>`)).Check(), classify.ErrMergedCells)
	assert.ErrorIs(t, firstTable(t, parse(t, `<table><tr><td rowspan="2">x</td><td>y</td></tr><tr><td>z</td></tr></table>`)).Check(), classify.ErrMergedCells)
	assert.ErrorIs(t, firstTable(t, parse(t, `<table></table>`)).Check(), classify.ErrEmptyTable)
}

func TestNormalize_MovesFirstRowIntoHead(t *testing.T) {
	doc := parse(t, `<table><caption>c</caption><tr><td>A</td><td>B</td></tr><tr><td>1</td><td>2</td></tr></table>`)
	tbl := firstTable(t, doc)
	tbl.Normalize()

	require.NotNil(t, tbl.HeadRow())
	c := tbl.Content()
	assert.Equal(t, []string{"A", "B"}, c.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, c.Body)
	assert.Len(t, tbl.BodyRows(), 1)
}

func TestInjectControls_HeaderAndRows(t *testing.T) {
	doc := parse(t, `<table><thead><tr><th>Name</th><th></th></tr></thead><tbody><tr><td>x</td><td>y</td></tr></tbody></table>`)
	tbl := firstTable(t, doc)
	c := InjectControls(tbl, "abc")

	assert.Equal(t, 1, c.RowTotal())
	assert.Equal(t, 2, c.ColTotal())
	assert.Equal(t, []string{"Name", "Col 2"}, tbl.Content().Header)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, `class="tpc-ext-toolbar"`)
	assert.Contains(t, out, `data-tpc-handle="abc"`)
	assert.Contains(t, out, `class="tpc-ext-row-select-th"`)
	assert.Equal(t, 2, strings.Count(out, "tpc-ext-col-cb"))
	assert.Equal(t, 1, strings.Count(out, `class="tpc-ext-row-select"`))
}

func TestControls_CheckedState(t *testing.T) {
	doc := parse(t, simpleTable)
	c := InjectControls(firstTable(t, doc), "x")

	c.SetRowChecked(1, true)
	c.SetColChecked(0, true)
	c.SetAllRowsChecked(true)
	assert.True(t, c.RowChecked(1))
	assert.False(t, c.RowChecked(0))
	assert.True(t, c.ColChecked(0))
	assert.True(t, c.AllRowsChecked())

	c.SetRowChecked(1, false)
	assert.False(t, c.RowChecked(1))
	// out of range is a no-op
	c.SetRowChecked(42, true)
	c.SetColChecked(-1, true)
}

func TestControls_NewRowsGetControlsOnEnsure(t *testing.T) {
	doc := parse(t, simpleTable)
	tbl := firstTable(t, doc)
	c := InjectControls(tbl, "x")

	body := tbl.BodyRows()[0].Parent
	extra, err := html.ParseFragment(strings.NewReader("<tr><td>a3</td><td>b3</td></tr>"), body)
	require.NoError(t, err)
	for _, n := range extra {
		body.AppendChild(n)
	}
	assert.Equal(t, []string{"a3", "b3"}, tbl.Content().Body[2], "unrefreshed row read without offset")
	assert.False(t, c.RowChecked(2))

	c.EnsureRowControls()
	c.SetRowChecked(2, true)
	assert.True(t, c.RowChecked(2))
	assert.Equal(t, []string{"a3", "b3"}, tbl.Content().Body[2])
}

func TestAdoptControls(t *testing.T) {
	doc := parse(t, simpleTable)
	tbl := firstTable(t, doc)
	InjectControls(tbl, "x").SetAllRowsChecked(true)
	assert.True(t, AdoptControls(tbl).AllRowsChecked())
}

func TestProcessedMarker(t *testing.T) {
	doc := parse(t, simpleTable)
	n := firstTable(t, doc).Node
	assert.False(t, Processed(n))
	MarkProcessed(n)
	MarkProcessed(n)
	assert.True(t, Processed(n))
	v, _ := attr(n, "class")
	assert.Equal(t, TableClass, v)
}

func TestCellTextIsRendered(t *testing.T) {
	doc := parse(t, `<table><tr><th>Item</th></tr><tr><td> <a href="#">Tea</a>&amp;<b>cake</b> </td></tr></table>`)
	c := firstTable(t, doc).Content()
	assert.Equal(t, "Tea&cake", c.Body[len(c.Body)-1][0])
}

func TestLoad_FileAndCharset(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "latin1.html")
	body := []byte("<html><head><meta charset=\"iso-8859-1\"><title>T</title></head><body><table><tr><td>caf\xe9</td></tr></table></body></html>")
	require.NoError(t, os.WriteFile(p, body, 0o644))

	doc, err := Load(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, "T", doc.Title())
	assert.Equal(t, p, doc.Source)
	c := firstTable(t, doc).Content()
	assert.Equal(t, "café", c.Body[0][0])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.html"), nil)
	assert.Error(t, err)
	_, err = Load(context.Background(), "https://example.invalid/", nil)
	assert.Error(t, err)
	_, err = Parse([]byte("   "), "")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestContains(t *testing.T) {
	doc := parse(t, simpleTable)
	n := firstTable(t, doc).Node
	assert.True(t, doc.Contains(n))
	n.Parent.RemoveChild(n)
	assert.False(t, doc.Contains(n))
}

func TestLoad_DelimitedFileBecomesTable(t *testing.T) {
	p := filepath.Join(t.TempDir(), "prices.tsv")
	text := "\xef\xbb\xbfItem\tNote\napple\t\"two\nlines\"\npear\t<b>&\n"
	require.NoError(t, os.WriteFile(p, []byte(text), 0o644))

	doc, err := Load(context.Background(), p, nil)
	require.NoError(t, err)
	tbl := firstTable(t, doc)
	c := tbl.Content()
	assert.True(t, c.HasHeader)
	assert.Equal(t, []string{"Item", "Note"}, c.Header)
	assert.Equal(t, [][]string{{"apple", "two\nlines"}, {"pear", "<b>&"}}, c.Body)
}

func TestFromRecords_KeepsCellWhitespace(t *testing.T) {
	doc, err := FromDelimited([]byte("Name,Code\n  padded ,a  b\n"), ",")
	require.NoError(t, err)
	c := firstTable(t, doc).Content()
	assert.Equal(t, [][]string{{"  padded ", "a  b"}}, c.Body)
}

func TestFromRecords_Empty(t *testing.T) {
	_, err := FromRecords(nil)
	assert.ErrorIs(t, err, ErrNoDocument)
}
