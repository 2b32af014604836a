// Package robots decides whether watch mode may poll a URL and how often,
// from the site's robots.txt.
package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tablepick/internal/cache"
)

// ErrDisallowed is returned by PollInterval when robots.txt forbids the path
// for our user agent.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one User-agent block.
type Group struct {
	Agents     []string
	Allow      []string
	Disallow   []string
	CrawlDelay time.Duration
}

// Policy fetches robots.txt per host, revalidating through the page cache,
// and remembers parsed rules for Expiry.
type Policy struct {
	HTTPClient *http.Client
	Cache      *cache.PageCache
	UserAgent  string
	Expiry     time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

// PollInterval returns the interval to poll pageURL at: requested, raised to
// the Crawl-delay for our agent when that is longer. A missing or
// unreadable robots.txt allows everything.
func (p *Policy) PollInterval(ctx context.Context, pageURL string, requested time.Duration) (time.Duration, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return 0, fmt.Errorf("parse url: %w", err)
	}
	rules, err := p.Rules(ctx, robotsURL(u))
	if err != nil {
		log.Debug().Err(err).Str("url", pageURL).Msg("robots.txt unavailable; polling allowed")
		return requested, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !rules.Allowed(p.UserAgent, path) {
		return 0, ErrDisallowed
	}
	if d := rules.Delay(p.UserAgent); d > requested {
		log.Debug().Dur("crawlDelay", d).Msg("poll interval raised by robots.txt")
		return d, nil
	}
	return requested, nil
}

func robotsURL(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
}

// Rules returns the parsed robots.txt at rawURL. A 404 yields empty rules.
func (p *Policy) Rules(ctx context.Context, rawURL string) (Rules, error) {
	p.mu.Lock()
	if p.now == nil {
		p.now = time.Now
	}
	if p.mem == nil {
		p.mem = make(map[string]memEntry)
	}
	if ent, ok := p.mem[rawURL]; ok && p.now().Before(ent.expiry) {
		p.mu.Unlock()
		return ent.rules, nil
	}
	p.mu.Unlock()

	text, err := p.fetch(ctx, rawURL)
	if err != nil {
		return Rules{}, err
	}
	rules := Parse(text)

	exp := p.Expiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	p.mu.Lock()
	p.mem[rawURL] = memEntry{rules: rules, expiry: p.now().Add(exp)}
	p.mu.Unlock()
	return rules, nil
}

func (p *Policy) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if p.Cache != nil {
		if meta, err := p.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			if meta.ETag != "" {
				req.Header.Set("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.Header.Set("If-Modified-Since", meta.LastModified)
			}
		}
	}
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && p.Cache != nil:
		body, err := p.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return "", fmt.Errorf("load cached robots: %w", err)
		}
		return string(body), nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return "", fmt.Errorf("read robots: %w", err)
	}
	if p.Cache != nil {
		_ = p.Cache.Save(ctx, rawURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), data)
	}
	return string(data), nil
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []Group
	cur := Group{}
	hasRules := func() bool {
		return len(cur.Allow) > 0 || len(cur.Disallow) > 0 || cur.CrawlDelay > 0
	}
	flush := func() {
		if len(cur.Agents) > 0 || hasRules() {
			groups = append(groups, cur)
		}
		cur = Group{}
	}
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent", "useragent":
			if len(cur.Agents) > 0 && hasRules() {
				flush()
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
		case "allow":
			cur.Allow = append(cur.Allow, val)
		case "disallow":
			cur.Disallow = append(cur.Disallow, val)
		case "crawl-delay", "crawldelay":
			if secs, err := strconv.ParseFloat(val, 64); err == nil && secs > 0 {
				cur.CrawlDelay = time.Duration(secs * float64(time.Second))
			}
		}
	}
	flush()
	return Rules{Groups: groups}
}

// Allowed reports whether path (with optional query) may be fetched by
// userAgent. The longest matching pattern wins; on a tie Allow wins; with
// no match the path is allowed.
func (r Rules) Allowed(userAgent, path string) bool {
	g, ok := r.group(userAgent)
	if !ok {
		return true
	}
	best, allow := -1, true
	consider := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" || !matches(p, path) {
				continue
			}
			if s := specificity(p); s > best || (s == best && isAllow && !allow) {
				best, allow = s, isAllow
			}
		}
	}
	consider(g.Disallow, false)
	consider(g.Allow, true)
	return allow
}

// Delay is the Crawl-delay for userAgent, zero when unset.
func (r Rules) Delay(userAgent string) time.Duration {
	if g, ok := r.group(userAgent); ok {
		return g.CrawlDelay
	}
	return 0
}

// group picks the block whose agent token is the longest substring of
// userAgent; "*" matches anything but loses to any named agent.
func (r Rules) group(userAgent string) (Group, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	idx, score := -1, -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			s := -1
			switch {
			case a == "":
			case a == "*":
				s = 0
			case strings.Contains(ua, a):
				s = len(a)
			}
			if s > score {
				idx, score = i, s
			}
		}
	}
	if idx < 0 {
		return Group{}, false
	}
	return r.Groups[idx], true
}

// matches anchors pattern at the start of path; '*' matches any run and a
// trailing '$' anchors the end.
func matches(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchored {
		expr += "$"
	}
	return regexp.MustCompile(expr).MatchString(path)
}

func specificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}
