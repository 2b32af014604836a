package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tablepick/internal/cache"
	"github.com/hyperifyio/tablepick/internal/export"
	"github.com/hyperifyio/tablepick/internal/extract"
	"github.com/hyperifyio/tablepick/internal/fetch"
	"github.com/hyperifyio/tablepick/internal/metrics"
	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/preview"
	"github.com/hyperifyio/tablepick/internal/robots"
	"github.com/hyperifyio/tablepick/internal/scan"
	"github.com/hyperifyio/tablepick/internal/selection"
)

// ErrNoTables is returned when the page has no eligible table. Per the exit
// code policy this condition results in exit status 2.
var ErrNoTables = errors.New("no eligible tables")

type App struct {
	cfg      Config
	fetcher  *fetch.Client
	exporter *export.Exporter
	metrics  *metrics.Collector
	robots   *robots.Policy
}

func New(cfg Config) (*App, error) {
	a := &App{cfg: cfg, metrics: metrics.New(nil)}

	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(cfg.Timeout),
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       3,
		PerRequestTimeout: cfg.Timeout,
	}
	if cfg.CacheDir != "" {
		// Apply cache invalidation controls
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("cache purged")
			}
		}
		a.fetcher.Cache = &cache.PageCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	a.robots = &robots.Policy{
		HTTPClient: a.fetcher.HTTPClient,
		Cache:      a.fetcher.Cache,
		UserAgent:  cfg.UserAgent,
	}
	a.exporter = export.New(cfg.DownloadDir, a.metrics)
	return a, nil
}

func (a *App) Config() Config { return a.cfg }
func (a *App) Fetcher() *fetch.Client { return a.fetcher }
func (a *App) Exporter() *export.Exporter { return a.exporter }
func (a *App) Metrics() *metrics.Collector { return a.metrics }
func (a *App) SetExporter(e *export.Exporter) { a.exporter = e }

// ExportOptions derives export settings from the configuration.
func (a *App) ExportOptions() export.Options {
	return export.Options{
		Delimiter:     export.ResolveDelimiter(a.cfg.Delimiter, a.cfg.CustomDelimiter),
		IncludeHeader: a.cfg.IncludeHeader,
		AlwaysQuote:   a.cfg.AlwaysQuote,
		BOM:           a.cfg.BOM,
	}
}

// Load reads and parses the configured source.
func (a *App) Load(ctx context.Context) (*page.Document, error) {
	doc, err := page.Load(ctx, a.cfg.Source, a.fetcher)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", a.cfg.Source).Str("title", doc.Title()).Msg("document loaded")
	return doc, nil
}

// NewScanner returns a scanner over doc reporting to the app's metrics.
func (a *App) NewScanner(doc *page.Document, opts scan.Options) *scan.Scanner {
	if opts.Interval == 0 {
		opts.Interval = a.cfg.ScanInterval
	}
	if opts.Observer == nil {
		opts.Observer = a.metrics
	}
	return scan.New(doc, scan.NewRegistry(), opts)
}

// Discover runs one synchronous scan of doc.
func (a *App) Discover(doc *page.Document) (*scan.Scanner, error) {
	s := a.NewScanner(doc, scan.Options{})
	s.ScanAll()
	a.metrics.SetLive(s.Registry().Len())
	if s.Registry().Len() == 0 {
		return s, ErrNoTables
	}
	return s, nil
}

// Select picks the configured table and applies the configured row and
// column lists to its selection.
func (a *App) Select(s *scan.Scanner) (*scan.Handle, error) {
	handles := s.Registry().Handles()
	if a.cfg.Table >= len(handles) {
		return nil, fmt.Errorf("table %d out of range (found %d)", a.cfg.Table, len(handles))
	}
	h := handles[a.cfg.Table]
	content := h.Table.Content()
	rows, err := selection.ParseIndices(a.cfg.Rows, len(content.Body))
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	cols, err := selection.ParseIndices(a.cfg.Cols, content.Columns())
	if err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}
	for _, r := range rows {
		h.State.SetRow(r, true)
	}
	for _, c := range cols {
		h.State.SetCol(c, true)
	}
	h.Binding.Refresh()
	return h, nil
}

// List writes the discovered tables to w.
func (a *App) List(ctx context.Context, w io.Writer) error {
	doc, err := a.Load(ctx)
	if err != nil {
		return err
	}
	s, err := a.Discover(doc)
	if err != nil {
		return err
	}
	preview.Tables(w, preview.Describe(s.Registry().Handles(), ""))
	return nil
}

// Export performs a one-shot export of the configured selection. Delimited
// output goes to the clipboard when Copy is set, otherwise to OutputPath
// ("-" is w). XLSX and PDF are saved through the downloader.
func (a *App) Export(ctx context.Context, w io.Writer) error {
	doc, err := a.Load(ctx)
	if err != nil {
		return err
	}
	s, err := a.Discover(doc)
	if err != nil {
		return err
	}
	h, err := a.Select(s)
	if err != nil {
		return err
	}
	opts := a.ExportOptions()
	m := extract.FromSource(h.Table, h.State, opts.IncludeHeader)

	switch a.cfg.Format {
	case FormatXLSX:
		path, err := a.exporter.XLSX(ctx, m, opts)
		if err == nil {
			log.Info().Str("path", path).Msg("saved")
		}
		return err
	case FormatPDF:
		path, err := a.exporter.PDF(ctx, m, doc.Title(), opts)
		if err == nil {
			log.Info().Str("path", path).Msg("saved")
		}
		return err
	}

	if a.cfg.Copy {
		if err := a.exporter.Copy(ctx, m, opts); err != nil {
			return err
		}
		log.Info().Int("rows", len(m)).Msg("copied to clipboard")
		return nil
	}
	switch a.cfg.OutputPath {
	case "", "-":
		_, err = io.WriteString(w, export.Text(m, opts)+"\n")
		return err
	case "download":
		path, err := a.exporter.Download(ctx, m, opts)
		if err == nil {
			log.Info().Str("path", path).Msg("saved")
		}
		return err
	}
	data, err := export.Bytes(m, opts)
	if err == nil {
		err = os.WriteFile(a.cfg.OutputPath, data, 0o644)
	}
	a.metrics.Export(export.SinkFile, err)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// Annotate writes the document with selection controls attached to every
// eligible table.
func (a *App) Annotate(ctx context.Context, w io.Writer) error {
	doc, err := a.Load(ctx)
	if err != nil {
		return err
	}
	if _, err := a.Discover(doc); err != nil {
		return err
	}
	return doc.Render(w)
}
