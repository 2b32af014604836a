package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"

	"github.com/hyperifyio/tablepick/internal/clipboard"
	"github.com/hyperifyio/tablepick/internal/delimited"
	"github.com/hyperifyio/tablepick/internal/extract"
)

// ErrClipboardDenied is returned by Copy when neither the clipboard nor the
// fallback accepted the text. Callers show it as a transient status.
var ErrClipboardDenied = errors.New("clipboard write denied")

// Sink names reported to the Recorder.
const (
	SinkClipboard = "clipboard"
	SinkFile      = "file"
	SinkXLSX      = "xlsx"
	SinkPDF       = "pdf"
)

// Recorder observes export outcomes. metrics.Collector implements it.
type Recorder interface {
	Export(sink string, err error)
}

type nopRecorder struct{}

func (nopRecorder) Export(string, error) {}

// Downloader persists a named file and returns where it ended up.
type Downloader interface {
	Save(ctx context.Context, filename string, data []byte, mime string) (string, error)
}

// DirDownloader saves into Dir the way a browser saves downloads: an
// existing file is never overwritten, a numbered name is chosen instead.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Save(ctx context.Context, filename string, data []byte, mime string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := d.Dir
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("download dir: %w", err)
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 0; ; i++ {
		name := filename
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		log.Debug().Str("path", path).Str("mime", mime).Int("bytes", len(data)).Msg("download saved")
		return path, nil
	}
}

// Exporter serializes matrices and hands them to sinks.
type Exporter struct {
	Clipboard  clipboard.Writer
	Downloader Downloader
	Recorder   Recorder
}

// New returns an Exporter with the default clipboard chain saving downloads
// into dir.
func New(dir string, rec Recorder) *Exporter {
	return &Exporter{
		Clipboard:  clipboard.Default(),
		Downloader: DirDownloader{Dir: dir},
		Recorder:   rec,
	}
}

func (e *Exporter) recorder() Recorder {
	if e.Recorder == nil {
		return nopRecorder{}
	}
	return e.Recorder
}

// Text encodes m with the delimiter and quoting rule from opts.
func Text(m extract.Matrix, opts Options) string {
	return delimited.Encode(m, opts.delim(), opts.AlwaysQuote)
}

// Copy writes the encoded matrix to the clipboard. Any failure is reported
// as ErrClipboardDenied wrapping the cause.
func (e *Exporter) Copy(ctx context.Context, m extract.Matrix, opts Options) error {
	err := e.copy(ctx, Text(m, opts))
	e.recorder().Export(SinkClipboard, err)
	return err
}

func (e *Exporter) copy(ctx context.Context, text string) error {
	if e.Clipboard == nil {
		return ErrClipboardDenied
	}
	if err := e.Clipboard.WriteText(ctx, text); err != nil {
		return fmt.Errorf("%w: %w", ErrClipboardDenied, err)
	}
	return nil
}

// Download saves the encoded matrix as table-selection.csv or .tsv and
// returns the saved path.
func (e *Exporter) Download(ctx context.Context, m extract.Matrix, opts Options) (string, error) {
	path, err := e.download(ctx, m, opts)
	e.recorder().Export(SinkFile, err)
	return path, err
}

func (e *Exporter) download(ctx context.Context, m extract.Matrix, opts Options) (string, error) {
	if e.Downloader == nil {
		return "", errors.New("no downloader configured")
	}
	data, err := Bytes(m, opts)
	if err != nil {
		return "", err
	}
	d := opts.delim()
	return e.Downloader.Save(ctx, Filename(d), data, MIME(d))
}

// Bytes is the file form of Text, with a byte order mark when opts.BOM is
// set.
func Bytes(m extract.Matrix, opts Options) ([]byte, error) {
	text := Text(m, opts)
	if !opts.BOM {
		return []byte(text), nil
	}
	out, err := unicode.UTF8BOM.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("bom: %w", err)
	}
	return []byte(out), nil
}
