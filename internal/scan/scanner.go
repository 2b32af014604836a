package scan

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/throttle"
)

// DefaultInterval is the minimum time between two scan passes of one root.
const DefaultInterval = 400 * time.Millisecond

// Observer receives scan outcomes. metrics.Collector implements it.
type Observer interface {
	ScanPass(root string)
	TableAttached()
	TableRejected()
}

type nopObserver struct{}

func (nopObserver) ScanPass(string) {}
func (nopObserver) TableAttached()  {}
func (nopObserver) TableRejected()  {}

// Options configures a Scanner.
type Options struct {
	Interval  time.Duration
	Scheduler throttle.Scheduler
	Observer  Observer
	// OnAttach is called once per newly attached table.
	OnAttach func(*Handle)
}

// Scanner keeps a document's eligible tables attached. It is driven from a
// single goroutine; see package throttle for the scheduling contract.
type Scanner struct {
	doc  *page.Document
	reg  *Registry
	opts Options

	throttles map[*html.Node]*throttle.Throttle
	paths     map[*html.Node]string
}

// New returns a scanner over doc that records handles in reg.
func New(doc *page.Document, reg *Registry, opts Options) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	s := &Scanner{doc: doc, reg: reg, opts: opts}
	s.reset()
	return s
}

func (s *Scanner) reset() {
	s.throttles = make(map[*html.Node]*throttle.Throttle)
	s.paths = map[*html.Node]string{s.doc.Root: "doc"}
}

// Registry returns the handle registry.
func (s *Scanner) Registry() *Registry { return s.reg }

// Document returns the document being scanned.
func (s *Scanner) Document() *page.Document { return s.doc }

// Start runs the initial pass.
func (s *Scanner) Start() {
	s.Notify()
}

// Notify requests a re-scan after a structural mutation or a resize. Bursts
// collapse into at most one immediate and one trailing pass per interval.
// Without a Scheduler every notification runs a full synchronous pass.
func (s *Scanner) Notify() {
	if s.opts.Scheduler == nil {
		s.ScanAll()
		return
	}
	s.throttleFor(s.doc.Root).Trigger()
}

// SetDocument swaps in a re-parsed document. Handles of the old tree are
// retired on the next pass and their selections carried over to tables
// with the same identity.
func (s *Scanner) SetDocument(doc *page.Document) {
	s.doc = doc
	s.reset()
}

// ScanAll performs one full pass synchronously, recursing into every
// rendering boundary without rate limiting. It returns the number of newly
// attached tables.
func (s *Scanner) ScanAll() int {
	s.prune()
	return s.scanTree(s.doc.Root)
}

func (s *Scanner) scanTree(root *html.Node) int {
	n := s.scanRoot(root)
	for _, b := range page.Boundaries(root) {
		s.pathFor(b, root)
		n += s.scanTree(b)
	}
	return n
}

func (s *Scanner) throttleFor(root *html.Node) *throttle.Throttle {
	if t, ok := s.throttles[root]; ok {
		return t
	}
	t := throttle.New(s.opts.Interval, s.opts.Scheduler, func() { s.pass(root) })
	s.throttles[root] = t
	return t
}

// pass is one throttled scan of root followed by throttled scans of the
// boundaries nested directly in it.
func (s *Scanner) pass(root *html.Node) {
	if root == s.doc.Root {
		s.prune()
	} else if !s.doc.Contains(root) {
		delete(s.throttles, root)
		return
	}
	s.scanRoot(root)
	for _, b := range page.Boundaries(root) {
		s.pathFor(b, root)
		s.throttleFor(b).Trigger()
	}
}

func (s *Scanner) prune() {
	if n := s.reg.Prune(s.doc.Contains); n > 0 {
		log.Debug().Int("count", n).Msg("tables detached")
	}
}

// scanRoot attaches every eligible table owned by root and returns how many
// were newly attached.
func (s *Scanner) scanRoot(root *html.Node) int {
	path := s.paths[root]
	s.opts.Observer.ScanPass(path)
	attached := 0
	seen := make(map[string]bool)
	for i, n := range page.Tables(root) {
		key := tableKey(path, n, i, seen)
		if _, ok := s.Attach(n, key); ok {
			attached++
		}
	}
	if attached > 0 {
		log.Debug().Str("root", path).Int("attached", attached).Msg("scan pass")
	}
	return attached
}

// Attach moves a table from UNSEEN to ATTACHED if it classifies as
// eligible. It is idempotent: a table carrying the processed marker is
// never attached again. The second result reports a new attachment.
func (s *Scanner) Attach(n *html.Node, key string) (*Handle, bool) {
	if h, ok := s.reg.Lookup(n); ok {
		return h, false
	}
	tbl := page.NewTable(n)
	if page.Processed(n) {
		return s.reg.adopt(key, tbl), false
	}
	if err := tbl.Check(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("table skipped")
		s.opts.Observer.TableRejected()
		return nil, false
	}
	page.MarkProcessed(n)
	h := s.reg.attach(key, tbl)
	s.opts.Observer.TableAttached()
	if s.opts.OnAttach != nil {
		s.opts.OnAttach(h)
	}
	return h, true
}

func (s *Scanner) pathFor(boundary, parent *html.Node) string {
	if p, ok := s.paths[boundary]; ok {
		return p
	}
	idx := 0
	for i, b := range page.Boundaries(parent) {
		if b == boundary {
			idx = i
			break
		}
	}
	p := fmt.Sprintf("%s>%d", s.paths[parent], idx)
	s.paths[boundary] = p
	return p
}

// tableKey derives a stable identity for a table: its id attribute when it
// is unique within the root, its ordinal otherwise.
func tableKey(path string, n *html.Node, ordinal int, seen map[string]bool) string {
	for _, a := range n.Attr {
		if a.Key == "id" && a.Val != "" {
			k := path + "#" + a.Val
			if !seen[k] {
				seen[k] = true
				return k
			}
		}
	}
	return fmt.Sprintf("%s/%d", path, ordinal)
}
