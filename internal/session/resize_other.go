//go:build !unix

package session

import "context"

func notifyResize(context.Context, func()) {}
