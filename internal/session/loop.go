// Package session runs the interactive side of tablepick: one goroutine owns
// the document, the registry and every selection, and everything else
// (commands, file events, polls, resizes, throttle timers) is posted to it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hyperifyio/tablepick/internal/throttle"
)

// Loop is a single-goroutine event queue. It implements throttle.Scheduler
// so trailing scans are delivered on the loop like any other event.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool
	wake    chan struct{}
}

// NewLoop returns an idle loop; call Run to start draining it.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn behind every event posted before it. It never blocks the
// caller, including when called from the loop goroutine itself. Events
// posted after Run has returned are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes posted events in order until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for _, fn := range l.take() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.pending = nil
	l.mu.Unlock()
}

func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) throttle.Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

var _ throttle.Scheduler = (*Loop)(nil)
