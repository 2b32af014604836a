// Package clipboard writes text to the system clipboard, falling back to the
// OSC 52 terminal sequence when no clipboard utility is available.
package clipboard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable means a writer has no way to reach a clipboard.
var ErrUnavailable = errors.New("clipboard unavailable")

// Writer places text on a clipboard.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// System uses the platform clipboard utility (pbcopy, xclip, wl-copy, ...).
type System struct{}

func (System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("system clipboard: %w", err)
	}
	return nil
}

// OSC52 asks the terminal emulator to set its clipboard. Out must be a
// terminal unless Force is set; output redirected to a file would only
// collect escape codes.
type OSC52 struct {
	Out   io.Writer
	Force bool
}

func (o OSC52) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.Out == nil {
		return ErrUnavailable
	}
	if !o.Force {
		f, ok := o.Out.(*os.File)
		if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return ErrUnavailable
		}
	}
	seq := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\a"
	if _, err := io.WriteString(o.Out, seq); err != nil {
		return fmt.Errorf("osc52: %w", err)
	}
	return nil
}

// Fallback tries each writer in order and stops at the first success. When
// every writer fails the joined error is returned.
type Fallback []Writer

func (f Fallback) WriteText(ctx context.Context, text string) error {
	var errs []error
	for _, w := range f {
		err := w.WriteText(ctx, text)
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Msg("clipboard writer failed")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrUnavailable
	}
	return errors.Join(errs...)
}

// Default is the system clipboard with an OSC 52 fallback on stderr.
func Default() Writer {
	return Fallback{System{}, OSC52{Out: os.Stderr}}
}
