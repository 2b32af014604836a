package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/tablepick/internal/export"
	"github.com/hyperifyio/tablepick/internal/fetch"
	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/scan"
)

const twoTables = `<html><head><title>T</title></head><body>
<table id="a"><thead><tr><th>H1</th><th>H2</th></tr></thead>
<tbody><tr><td>a1</td><td>b1</td></tr><tr><td>a2</td><td>b2</td></tr><tr><td>a3</td><td>b3</td></tr></tbody></table>
<table id="b"><tr><td>x</td><td>y</td></tr></table>
</body></html>`

type memClipboard struct {
	text string
	err  error
}

func (m *memClipboard) WriteText(_ context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

type fixture struct {
	s    *Session
	out  *bytes.Buffer
	clip *memClipboard
	dir  string
	body string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{out: &bytes.Buffer{}, clip: &memClipboard{}, dir: t.TempDir(), body: twoTables}
	doc, err := page.Parse([]byte(f.body), "")
	require.NoError(t, err)
	sc := scan.New(doc, scan.NewRegistry(), scan.Options{})
	sc.Start()
	f.s = New(Config{
		Scanner:  sc,
		Exporter: &export.Exporter{Clipboard: f.clip, Downloader: export.DirDownloader{Dir: f.dir}},
		Options:  export.DefaultOptions(),
		Out:      f.out,
		Load: func(context.Context) (*page.Document, error) {
			return page.Parse([]byte(f.body), "")
		},
	})
	return f
}

func (f *fixture) run(lines ...string) string {
	f.out.Reset()
	for _, l := range lines {
		f.s.Execute(l)
	}
	return f.out.String()
}

func TestExecute_SelectAndCopy(t *testing.T) {
	f := newFixture(t)
	out := f.run("col 1", "row 0", "row 2", "copy")
	assert.Contains(t, out, "Copied!")
	assert.Equal(t, "H2\nb1\nb3", f.clip.text)
}

func TestExecute_ShiftRowSelectsRange(t *testing.T) {
	f := newFixture(t)
	f.run("row 0", "row 2 shift", "delim tab", "copy")
	// A delimiter containing whitespace quotes every cell.
	assert.Equal(t, "\"H1\"\t\"H2\"\n\"a1\"\t\"b1\"\n\"a2\"\t\"b2\"\n\"a3\"\t\"b3\"", f.clip.text)
}

func TestExecute_RangeStopsAtLastRow(t *testing.T) {
	f := newFixture(t)
	f.run("range 1 3000000")
	h, ok := f.s.scanner.Registry().ByKey("doc#a")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, h.State.Rows())

	out := f.run("row 4000000", "col 9")
	assert.Contains(t, out, "row 4000000 out of range (3 rows)")
	assert.Contains(t, out, "column 9 out of range (2 columns)")
	assert.Equal(t, 2, h.State.RowCount())
	assert.Zero(t, h.State.ColCount())
}

func TestExecute_ClearKeepsRangeAnchor(t *testing.T) {
	f := newFixture(t)
	f.run("row 0", "clear", "row 1 shift", "header off", "copy")
	assert.Equal(t, "a1,b1\na2,b2", f.clip.text)
}

func TestExecute_CustomDelimiterKeepsSpaces(t *testing.T) {
	f := newFixture(t)
	out := f.run("delim custom  |  ", "header off", "row 0", "copy")
	assert.Contains(t, out, "delimiter:")
	assert.Equal(t, " |  ", f.s.opts.Delimiter)
	assert.Equal(t, "\"a1\" |  \"b1\"", f.clip.text)
}

func TestExecute_CopyFailedIsTransient(t *testing.T) {
	f := newFixture(t)
	f.clip.err = errors.New("denied")
	out := f.run("copy")
	assert.Contains(t, out, "Copy failed")
	assert.False(t, f.s.Execute("show"))
}

func TestExecute_UseSwitchesTable(t *testing.T) {
	f := newFixture(t)
	out := f.run("use 1", "tables")
	assert.Contains(t, out, "Using table 1 (doc#b)")
	// The first row of a headless table is promoted to its header.
	f.run("copy")
	assert.Equal(t, "x,y", f.clip.text)
	f.run("header off", "copy")
	assert.Equal(t, "", f.clip.text)

	out = f.run("use 5")
	assert.Contains(t, out, "out of range")
}

func TestExecute_DownloadNamesFileByDelimiter(t *testing.T) {
	f := newFixture(t)
	out := f.run("delim tab", "download", "delim semicolon", "download")
	assert.Contains(t, out, "Saved")
	_, err := os.Stat(filepath.Join(f.dir, "table-selection.tsv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(f.dir, "table-selection.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "H1;H2\n"))
}

func TestExecute_CustomDelimiterFallsBackToComma(t *testing.T) {
	f := newFixture(t)
	f.run("delim custom", "header off", "rows none", "row 0", "copy")
	assert.Equal(t, "a1,b1", f.clip.text)
}

func TestExecute_UnknownAndQuit(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.run("frobnicate"), "unknown command")
	assert.Contains(t, f.run("row x"), "invalid index")
	assert.False(t, f.s.Execute(""))
	assert.True(t, f.s.Execute("quit"))
}

func TestReload_KeepsSelectionByIdentity(t *testing.T) {
	f := newFixture(t)
	f.run("col 0", "row 1")
	before, ok := f.s.scanner.Registry().ByKey("doc#a")
	require.True(t, ok)

	f.body = strings.Replace(twoTables, "<td>a3</td><td>b3</td>", "<td>a3</td><td>b3</td></tr><tr><td>a4</td><td>b4</td>", 1)
	out := f.run("reload")
	assert.Contains(t, out, "Reloaded, 2 eligible table(s)")

	after, ok := f.s.scanner.Registry().ByKey("doc#a")
	require.True(t, ok)
	assert.NotSame(t, before.Node(), after.Node())
	assert.Equal(t, []int{0}, after.State.Cols())
	assert.Equal(t, []int{1}, after.State.Rows())
	assert.True(t, after.Controls.RowChecked(1))

	f.run("copy")
	assert.Equal(t, "H1\na2", f.clip.text)
}

func TestReload_IneligibleTableDropsOut(t *testing.T) {
	f := newFixture(t)
	f.body = strings.Replace(twoTables, `<td>x</td><td>y</td>`, `<td colspan="2">x</td>`, 1)
	f.run("use 1", "reload")
	_, ok := f.s.scanner.Registry().ByKey("doc#b")
	assert.False(t, ok)
	assert.Equal(t, 1, f.s.scanner.Registry().Len())
}

func TestSave_WritesAnnotatedPage(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "annotated.html")
	f.run("save " + path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), `class="tpc-ext-toolbar"`))
}

type fakePoller struct {
	results []fetch.Result
}

func (p *fakePoller) Poll(context.Context, string) (fetch.Result, error) {
	r := p.results[0]
	p.results = p.results[1:]
	return r, nil
}

func TestURLPoller_OnlyChangedBodies(t *testing.T) {
	body := []byte(twoTables)
	p := &urlPoller{
		client: &fakePoller{results: []fetch.Result{
			{Body: body, Changed: false},
			{Body: body, Changed: true},
			{Body: []byte(`<table><tr><td>z</td></tr></table>`), Changed: true},
		}},
		url:  "https://example.test/",
		last: body,
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		doc, err := p.check(ctx)
		require.NoError(t, err)
		assert.Nil(t, doc)
	}
	doc, err := p.check(ctx)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "https://example.test/", doc.Source)
}

func TestLoop_RunsPostedAndTimedEvents(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var order []string
	l.Post(func() { order = append(order, "posted") })
	l.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "timer")
		cancel()
	})
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"posted", "timer"}, order)
}

func TestLoop_KeepsOrderPastBurst(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []int
	for i := 0; i < 500; i++ {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(cancel)
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
	require.Len(t, got, 500)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d ran event %d", i, v)
		}
	}

	ran := false
	l.Post(func() { ran = true })
	l.mu.Lock()
	assert.Empty(t, l.pending)
	l.mu.Unlock()
	assert.False(t, ran)
}

func TestRun_ExecutesCommandsUntilQuit(t *testing.T) {
	f := newFixture(t)
	doc, err := page.Parse([]byte(twoTables), "")
	require.NoError(t, err)
	loop := NewLoop()
	sc := scan.New(doc, scan.NewRegistry(), scan.Options{Scheduler: loop})
	s := New(Config{
		Loop:     loop,
		Scanner:  sc,
		Exporter: &export.Exporter{Clipboard: f.clip},
		Options:  export.DefaultOptions(),
		Out:      f.out,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = s.Run(ctx, strings.NewReader("col 0\nheader off\ncopy\nquit\nrow 0\n"))
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "2 eligible table(s)")
	assert.Equal(t, "a1\na2\na3", f.clip.text)
}

func TestWatchFile_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(twoTables), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, func() { changed <- struct{}{} })
	}()

	deadline := time.After(4 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-changed:
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			_ = os.WriteFile(filepath.Join(dir, "other.html"), []byte("x"), 0o644)
			_ = os.WriteFile(path, []byte(twoTables), 0o644)
		case <-deadline:
			t.Fatal("no change event")
		}
	}
}
