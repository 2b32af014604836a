package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/tablepick/internal/extract"
)

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteText(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

type saved struct {
	name, mime string
	data       []byte
}

type memDownloader struct{ files []saved }

func (m *memDownloader) Save(_ context.Context, name string, data []byte, mime string) (string, error) {
	m.files = append(m.files, saved{name: name, mime: mime, data: data})
	return "mem://" + name, nil
}

type recorded struct {
	sink string
	ok   bool
}

type recorder struct{ got []recorded }

func (r *recorder) Export(sink string, err error) {
	r.got = append(r.got, recorded{sink, err == nil})
}

var sample = extract.Matrix{{"A", "B"}, {"1", "2"}}

func TestResolveDelimiter(t *testing.T) {
	cases := []struct{ choice, custom, want string }{
		{"comma", "", ","},
		{"tab", "", "\t"},
		{"semicolon", "", ";"},
		{"pipe", "", "|"},
		{"custom", "::", "::"},
		{"custom", "", ","},
		{"", "", ","},
		{"~", "", "~"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ResolveDelimiter(c.choice, c.custom), "%q/%q", c.choice, c.custom)
	}
}

func TestFilenameAndMIME(t *testing.T) {
	assert.Equal(t, "table-selection.tsv", Filename("\t"))
	assert.Equal(t, "table-selection.csv", Filename(","))
	assert.Equal(t, "table-selection.csv", Filename(" \t"))
	assert.Equal(t, "table-selection.csv", Filename(";"))
	assert.Equal(t, MIMETSV, MIME("\t"))
	assert.Equal(t, MIMECSV, MIME("|"))
}

func TestCopy_WritesEncodedText(t *testing.T) {
	cb := &fakeClipboard{}
	rec := &recorder{}
	e := &Exporter{Clipboard: cb, Recorder: rec}
	require.NoError(t, e.Copy(context.Background(), sample, DefaultOptions()))
	assert.Equal(t, "A,B\n1,2", cb.text)
	assert.Equal(t, []recorded{{SinkClipboard, true}}, rec.got)
}

func TestCopy_DeniedIsReported(t *testing.T) {
	cause := errors.New("no display")
	rec := &recorder{}
	e := &Exporter{Clipboard: &fakeClipboard{err: cause}, Recorder: rec}
	err := e.Copy(context.Background(), sample, DefaultOptions())
	assert.ErrorIs(t, err, ErrClipboardDenied)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []recorded{{SinkClipboard, false}}, rec.got)
}

func TestDownload_TabAndBOM(t *testing.T) {
	dl := &memDownloader{}
	e := &Exporter{Downloader: dl}
	opts := Options{Delimiter: "\t", IncludeHeader: true, BOM: true}
	path, err := e.Download(context.Background(), extract.Matrix{{"a b", "c"}}, opts)
	require.NoError(t, err)
	assert.Equal(t, "mem://table-selection.tsv", path)
	require.Len(t, dl.files, 1)
	assert.Equal(t, MIMETSV, dl.files[0].mime)
	assert.Equal(t, "\xef\xbb\xbf\"a b\"\t\"c\"", string(dl.files[0].data))
}

func TestDirDownloader_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	d := DirDownloader{Dir: dir}
	p1, err := d.Save(context.Background(), "table-selection.csv", []byte("one"), MIMECSV)
	require.NoError(t, err)
	p2, err := d.Save(context.Background(), "table-selection.csv", []byte("two"), MIMECSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "table-selection.csv"), p1)
	assert.Equal(t, filepath.Join(dir, "table-selection (1).csv"), p2)

	b, err := os.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))
}

func TestWriteXLSX_CellsStayStrings(t *testing.T) {
	var buf bytes.Buffer
	m := extract.Matrix{{"Name", "Qty"}, {"apple", "007"}, {"pear", "1e3"}}
	require.NoError(t, WriteXLSX(&buf, m, true))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Qty"}, {"apple", "007"}, {"pear", "1e3"}}, rows)

	typ, err := f.GetCellType(sheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, typ)
}

func TestPDF_SavedThroughDownloader(t *testing.T) {
	dl := &memDownloader{}
	rec := &recorder{}
	e := &Exporter{Downloader: dl, Recorder: rec}
	_, err := e.PDF(context.Background(), sample, "Prices", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, dl.files, 1)
	assert.Equal(t, "table-selection.pdf", dl.files[0].name)
	assert.True(t, bytes.HasPrefix(dl.files[0].data, []byte("%PDF-")))
	assert.Equal(t, []recorded{{SinkPDF, true}}, rec.got)
}
