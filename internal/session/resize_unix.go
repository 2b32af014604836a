//go:build unix

package session

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// notifyResize calls fn on every terminal resize until ctx is done.
func notifyResize(ctx context.Context, fn func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				fn()
			}
		}
	}()
}
