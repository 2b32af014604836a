package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/robots"
	"github.com/hyperifyio/tablepick/internal/scan"
	"github.com/hyperifyio/tablepick/internal/session"
)

// Watch runs an interactive session over the configured source, reading
// commands from in. A file source is reloaded when it changes on disk and a
// URL source is polled every PollInterval.
func (a *App) Watch(ctx context.Context, in io.Reader, out io.Writer) error {
	src := a.cfg.Source
	if src == "-" {
		return errors.New("watch needs a file or URL source; stdin carries commands")
	}
	var (
		doc  *page.Document
		body []byte
		err  error
	)
	if page.IsURL(src) {
		// The poller compares against the body the session started from.
		var ct string
		if body, ct, err = page.Read(ctx, src, a.fetcher); err != nil {
			return err
		}
		if doc, err = page.Parse(body, ct); err != nil {
			return err
		}
		doc.Source = src
	} else if doc, err = a.Load(ctx); err != nil {
		return err
	}

	loop := session.NewLoop()
	s := session.New(session.Config{
		Loop:           loop,
		Scanner:        a.NewScanner(doc, scan.Options{Scheduler: loop}),
		Exporter:       a.exporter,
		Options:        a.ExportOptions(),
		Metrics:        a.metrics,
		Load:           a.Load,
		Out:            out,
		ReloadInterval: a.cfg.ScanInterval,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if addr := a.cfg.MetricsAddr; addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, addr); err != nil {
				log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
			}
		}()
	}
	if page.IsURL(src) {
		if interval := a.pollInterval(ctx, src); interval > 0 {
			go s.PollURL(ctx, a.fetcher, src, interval, body)
		}
	} else {
		go func() {
			if err := s.WatchFile(ctx, src); err != nil {
				log.Warn().Err(err).Msg("file watch disabled")
			}
		}()
	}
	return s.Run(ctx, in)
}

// pollInterval is the configured poll interval adjusted by robots.txt. Zero
// disables polling.
func (a *App) pollInterval(ctx context.Context, src string) time.Duration {
	interval := a.cfg.PollInterval
	if interval <= 0 || a.cfg.IgnoreRobots {
		return interval
	}
	iv, err := a.robots.PollInterval(ctx, src, interval)
	if errors.Is(err, robots.ErrDisallowed) {
		log.Warn().Str("url", src).Msg("polling disabled by robots.txt; use --robots.ignore to override")
		return 0
	}
	if err != nil {
		log.Warn().Err(err).Msg("robots check failed")
		return interval
	}
	if iv != interval {
		log.Info().Dur("interval", iv).Msg("poll interval raised to crawl delay")
	}
	return iv
}
