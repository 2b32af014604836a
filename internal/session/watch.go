package session

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tablepick/internal/fetch"
	"github.com/hyperifyio/tablepick/internal/page"
)

// WatchFile calls onChange whenever path is written, created or renamed
// into place. The parent directory is watched because editors commonly
// replace a file instead of writing it in place. It blocks until ctx is done.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	log.Debug().Str("path", target).Msg("watching file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(ev.Name)
			if name != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				log.Debug().Str("op", ev.Op.String()).Msg("file changed")
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// WatchFile reloads the session, throttled, whenever path changes.
func (s *Session) WatchFile(ctx context.Context, path string) error {
	return WatchFile(ctx, path, func() {
		s.loop.Post(func() { s.ReloadSoon("file") })
	})
}

// Poller performs conditional fetches. fetch.Client satisfies it.
type Poller interface {
	Poll(ctx context.Context, url string) (fetch.Result, error)
}

// urlPoller remembers the last body it handed out so servers without
// validators do not cause a reload on every tick.
type urlPoller struct {
	client Poller
	url    string
	last   []byte
}

// check returns a new document when the page changed, nil otherwise.
func (p *urlPoller) check(ctx context.Context) (*page.Document, error) {
	res, err := p.client.Poll(ctx, p.url)
	if err != nil {
		return nil, err
	}
	if !res.Changed || bytes.Equal(res.Body, p.last) {
		return nil, nil
	}
	p.last = res.Body
	doc, err := page.Parse(res.Body, res.ContentType)
	if err != nil {
		return nil, err
	}
	doc.Source = p.url
	return doc, nil
}

// PollURL re-fetches url at most once per interval and applies changed
// pages on the loop. Fetching and parsing happen off the loop. initial is
// the body the session started from.
func (s *Session) PollURL(ctx context.Context, client Poller, url string, interval time.Duration, initial []byte) error {
	p := &urlPoller{client: client, url: url, last: initial}
	lim := fetch.NewLimiter(interval)
	for {
		if err := lim.Wait(ctx); err != nil {
			return nil
		}
		doc, err := p.check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("url", url).Msg("poll failed")
			continue
		}
		if doc != nil {
			s.loop.Post(func() { s.Apply(doc, "poll") })
		}
	}
}
