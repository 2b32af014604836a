// Package scan discovers eligible tables in a live document, attaches
// selection controls to each exactly once, and re-scans on mutation under a
// leading+trailing rate limiter.
package scan

import (
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/selection"
)

// Handle is one attached table. It owns the table's selection state for as
// long as the table exists.
type Handle struct {
	ID       string
	Key      string
	Table    *page.Table
	State    *selection.State
	Binding  *selection.Binding
	Controls *page.Controls
}

// Node returns the underlying <table> element.
func (h *Handle) Node() *html.Node { return h.Table.Node }

// Registry maps table identity to its Handle. It is the single owner of
// every selection state.
type Registry struct {
	byNode  map[*html.Node]*Handle
	byKey   map[string]*Handle
	order   []*Handle
	retired map[string]*selection.State
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byNode:  make(map[*html.Node]*Handle),
		byKey:   make(map[string]*Handle),
		retired: make(map[string]*selection.State),
	}
}

// Lookup returns the handle attached to n.
func (r *Registry) Lookup(n *html.Node) (*Handle, bool) {
	h, ok := r.byNode[n]
	return h, ok
}

// ByKey returns the handle registered under a stable identity key.
func (r *Registry) ByKey(key string) (*Handle, bool) {
	h, ok := r.byKey[key]
	return h, ok
}

// Handles returns live handles in attachment order.
func (r *Registry) Handles() []*Handle {
	return append([]*Handle(nil), r.order...)
}

// Len is the number of live handles.
func (r *Registry) Len() int { return len(r.order) }

// attach registers a freshly marked table. A retired state with the same key
// is carried over so a re-rendered table keeps the user's selection. A key
// still held by a live table is never shared.
func (r *Registry) attach(key string, tbl *page.Table) *Handle {
	id := uuid.NewString()
	if _, taken := r.byKey[key]; taken {
		key = key + "~" + id[:8]
	}
	state := r.takeRetired(key)
	controls := page.InjectControls(tbl, id)
	h := &Handle{
		ID:       id,
		Key:      key,
		Table:    tbl,
		State:    state,
		Controls: controls,
	}
	h.Binding = selection.Bind(state, controls)
	r.add(h)
	return h
}

// adopt registers a table that already carries the processed marker but is
// unknown to this registry, without injecting a second set of controls.
func (r *Registry) adopt(key string, tbl *page.Table) *Handle {
	if _, taken := r.byKey[key]; taken {
		key = key + "~" + uuid.NewString()[:8]
	}
	state := r.takeRetired(key)
	controls := page.AdoptControls(tbl)
	h := &Handle{
		ID:       uuid.NewString(),
		Key:      key,
		Table:    tbl,
		State:    state,
		Controls: controls,
	}
	h.Binding = selection.Bind(state, controls)
	r.add(h)
	return h
}

func (r *Registry) takeRetired(key string) *selection.State {
	if st, ok := r.retired[key]; ok {
		delete(r.retired, key)
		return st
	}
	return selection.New()
}

func (r *Registry) add(h *Handle) {
	r.byNode[h.Node()] = h
	r.byKey[h.Key] = h
	r.order = append(r.order, h)
}

func (r *Registry) remove(h *Handle) {
	delete(r.byNode, h.Node())
	delete(r.byKey, h.Key)
	for i, x := range r.order {
		if x == h {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Prune drops handles whose table is no longer reachable through alive.
// Their selection is retired under the handle's key so a table re-appearing
// with the same identity picks it up again.
func (r *Registry) Prune(alive func(*html.Node) bool) int {
	n := 0
	for _, h := range r.Handles() {
		if alive(h.Node()) {
			continue
		}
		r.remove(h)
		r.retired[h.Key] = h.State
		n++
	}
	return n
}
