// Package fetch retrieves HTML pages over HTTP for loading and watching.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/tablepick/internal/cache"
)

// DefaultUserAgent identifies tablepick to servers.
const DefaultUserAgent = "tablepick/1.0 (+https://github.com/hyperifyio/tablepick)"

// Client wraps http.Client and provides timeouts, limited retry on transient
// errors and conditional revalidation against a PageCache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache used for conditional GET.
	Cache *cache.PageCache
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// Limiter bounds request rate, mostly so a short poll interval cannot
	// hammer a server. Nil means unlimited.
	Limiter *rate.Limiter
	// MaxBodyBytes caps the page size. Zero means 32 MiB.
	MaxBodyBytes int64
}

// Result is the outcome of a Poll.
type Result struct {
	Body        []byte
	ContentType string
	// Changed is false when the server answered 304 Not Modified.
	Changed bool
}

type statusError struct{ code int }

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error: %d", e.code)
	}
	return fmt.Sprintf("unexpected status: %d", e.code)
}

// ErrUnsupportedContentType is returned for responses that are not HTML.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// NewLimiter allows one request per interval with a burst of one.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get returns the page body and content type. With a cache configured a
// 304 answer is served from the cached body. Get satisfies page.Getter.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	res, err := c.Poll(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	return res.Body, res.ContentType, nil
}

// Poll issues a conditional GET. Result.Changed reports whether the page
// differs from the cached copy; the body is always filled in.
func (c *Client) Poll(ctx context.Context, rawURL string) (Result, error) {
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.settle(ctx, rawURL, resp)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Int("attempt", i+1).Str("url", rawURL).Msg("retrying fetch")
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	return Result{}, lastErr
}

type response struct {
	status       int
	body         []byte
	contentType  string
	etag         string
	lastModified string
}

func (c *Client) settle(ctx context.Context, rawURL string, r response) (Result, error) {
	if r.status == http.StatusNotModified {
		if c.Cache == nil {
			return Result{}, errors.New("not modified without a cached copy")
		}
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return Result{}, fmt.Errorf("cached body: %w", err)
		}
		ct := r.contentType
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta.ContentType != "" {
			ct = meta.ContentType
		}
		return Result{Body: body, ContentType: ct, Changed: false}, nil
	}
	if c.Cache != nil {
		if err := c.Cache.Save(ctx, rawURL, r.contentType, r.etag, r.lastModified, r.body); err != nil {
			log.Warn().Err(err).Msg("page cache save failed")
		}
	}
	return Result{Body: r.body, ContentType: r.contentType, Changed: true}, nil
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return response{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		status:       resp.StatusCode,
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, &statusError{code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(out.contentType) {
		return response{}, fmt.Errorf("%w: %s", ErrUnsupportedContentType, out.contentType)
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > limit {
		return response{}, fmt.Errorf("page larger than %d bytes", limit)
	}
	out.body = b
	return out, nil
}

// isTransient treats HTTP 5xx and deadline expiry as worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.code >= 500
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// An absent header is accepted; the parser sniffs the charset itself.
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
