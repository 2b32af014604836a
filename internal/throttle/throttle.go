// Package throttle implements a leading+trailing rate limiter. The first
// trigger in a quiet window runs immediately; triggers arriving inside the
// window collapse into exactly one trailing run at the window boundary.
//
// A Throttle is driven from a single goroutine. The Scheduler must deliver
// trailing callbacks on that same goroutine (for example by posting them to
// an event loop), which is what guarantees that two runs never overlap.
package throttle

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler supplies time and deferred execution.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Throttle wraps fn with a minimum interval between runs.
type Throttle struct {
	fn    func()
	wait  time.Duration
	sched Scheduler

	last    time.Time
	pending Timer
	gen     uint64
	runs    int
}

// New returns a Throttle that runs fn at most once per wait.
func New(wait time.Duration, sched Scheduler, fn func()) *Throttle {
	return &Throttle{fn: fn, wait: wait, sched: sched}
}

// Trigger requests a run.
func (t *Throttle) Trigger() {
	now := t.sched.Now()
	remaining := t.wait - now.Sub(t.last)
	if t.last.IsZero() || remaining <= 0 {
		t.cancelPending()
		t.last = now
		t.run()
		return
	}
	if t.pending != nil {
		return
	}
	t.gen++
	gen := t.gen
	t.pending = t.sched.AfterFunc(remaining, func() {
		// A leading run may have superseded this callback after it fired.
		if gen != t.gen || t.pending == nil {
			return
		}
		t.pending = nil
		t.last = t.sched.Now()
		t.run()
	})
}

// Pending reports whether a trailing run is scheduled.
func (t *Throttle) Pending() bool { return t.pending != nil }

// Runs returns how many times fn has run.
func (t *Throttle) Runs() int { return t.runs }

func (t *Throttle) run() {
	t.runs++
	t.fn()
}

func (t *Throttle) cancelPending() {
	if t.pending == nil {
		return
	}
	t.pending.Stop()
	t.pending = nil
	t.gen++
}
