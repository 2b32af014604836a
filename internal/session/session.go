package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tablepick/internal/export"
	"github.com/hyperifyio/tablepick/internal/extract"
	"github.com/hyperifyio/tablepick/internal/metrics"
	"github.com/hyperifyio/tablepick/internal/page"
	"github.com/hyperifyio/tablepick/internal/preview"
	"github.com/hyperifyio/tablepick/internal/scan"
	"github.com/hyperifyio/tablepick/internal/throttle"
)

// Prompt is printed before each command is read.
const Prompt = "tablepick> "

// Loader re-reads the session's source.
type Loader func(ctx context.Context) (*page.Document, error)

// Config wires a Session. Loop may be nil, in which case throttled work runs
// immediately on the calling goroutine.
type Config struct {
	Loop     *Loop
	Scanner  *scan.Scanner
	Exporter *export.Exporter
	Options  export.Options
	Metrics  *metrics.Collector
	Load     Loader
	Out      io.Writer
	// ReloadInterval throttles file-triggered reloads.
	ReloadInterval time.Duration
}

// Session is the command interpreter bound to one document.
type Session struct {
	loop     *Loop
	scanner  *scan.Scanner
	exporter *export.Exporter
	opts     export.Options
	metrics  *metrics.Collector
	load     Loader
	out      io.Writer

	ctx           context.Context
	current       string
	reloads       *throttle.Throttle
	reloadTrigger string
}

// New returns a session; nothing runs until Run or Execute is called.
func New(cfg Config) *Session {
	s := &Session{
		loop:     cfg.Loop,
		scanner:  cfg.Scanner,
		exporter: cfg.Exporter,
		opts:     cfg.Options,
		metrics:  cfg.Metrics,
		load:     cfg.Load,
		out:      cfg.Out,
		ctx:      context.Background(),
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.loop != nil {
		interval := cfg.ReloadInterval
		if interval <= 0 {
			interval = scan.DefaultInterval
		}
		s.reloads = throttle.New(interval, s.loop, func() { s.Reload(s.reloadTrigger) })
	}
	return s
}

// Options returns the current export settings.
func (s *Session) Options() export.Options { return s.opts }

// Run starts the loop, performs the initial scan and executes commands read
// from in until quit, end of input or ctx cancellation.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	if s.loop == nil {
		return errors.New("session: Run needs a loop")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.loop.Post(func() {
		s.scanner.Start()
		s.syncLive()
		fmt.Fprintf(s.out, "%d eligible table(s). Type \"help\" for commands.\n", s.scanner.Registry().Len())
		fmt.Fprint(s.out, Prompt)
	})
	notifyResize(ctx, func() { s.loop.Post(s.scanner.Notify) })
	go s.readCommands(ctx, in, cancel)

	err := s.loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) readCommands(ctx context.Context, in io.Reader, stop context.CancelFunc) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		done := make(chan bool, 1)
		s.loop.Post(func() {
			quit := s.Execute(line)
			if !quit {
				fmt.Fprint(s.out, Prompt)
			}
			done <- quit
		})
		select {
		case <-ctx.Done():
			return
		case quit := <-done:
			if quit {
				stop()
				return
			}
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Msg("reading commands")
	}
	stop()
}

// Execute runs one command line and reports whether the session should end.
func (s *Session) Execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)[len(fields[0]):]
	if err := s.dispatch(cmd, args, rest); err != nil {
		if errors.Is(err, errQuit) {
			return true
		}
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

var errQuit = errors.New("quit")

// dispatch runs cmd. rest is the raw line after the command word, for
// arguments whose whitespace matters.
func (s *Session) dispatch(cmd string, args []string, rest string) error {
	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprint(s.out, helpText)
		return nil
	case "tables", "ls":
		preview.Tables(s.out, preview.Describe(s.scanner.Registry().Handles(), s.currentKey()))
		return nil
	case "use":
		return s.use(args)
	case "rescan":
		s.scanner.Notify()
		s.syncLive()
		fmt.Fprintf(s.out, "%d eligible table(s)\n", s.scanner.Registry().Len())
		return nil
	case "reload":
		return s.Reload("manual")
	case "delim", "delimiter":
		return s.delim(rest)
	case "header", "quote", "bom":
		return s.toggleOption(cmd, args)
	case "save":
		return s.save(args)
	}

	h, err := s.handle()
	if err != nil {
		return err
	}
	switch cmd {
	case "row":
		i, err := intArg(args, 0)
		if err != nil {
			return err
		}
		if n := h.Controls.RowTotal(); i >= n {
			return fmt.Errorf("row %d out of range (%d rows)", i, n)
		}
		h.Binding.ClickRow(i, len(args) > 1 && strings.EqualFold(args[1], "shift"))
	case "range":
		a, err := intArg(args, 0)
		if err != nil {
			return err
		}
		b, err := intArg(args, 1)
		if err != nil {
			return err
		}
		h.Binding.RangeSelectRows(a, b)
	case "rows":
		on, err := allNone(args)
		if err != nil {
			return err
		}
		h.Binding.SetAllRows(on)
	case "col":
		i, err := intArg(args, 0)
		if err != nil {
			return err
		}
		if n := h.Controls.ColTotal(); i >= n {
			return fmt.Errorf("column %d out of range (%d columns)", i, n)
		}
		h.Binding.ToggleCol(i)
	case "cols":
		on, err := allNone(args)
		if err != nil {
			return err
		}
		if on {
			h.Binding.SelectAllCols()
		} else {
			h.Binding.ClearAllCols()
		}
	case "all":
		h.Binding.SelectAll()
	case "clear":
		h.Binding.Clear()
	case "show":
		m := s.matrix(h)
		preview.Matrix(s.out, m, s.opts.IncludeHeader && h.Table.Content().HasHeader)
		fmt.Fprintln(s.out, preview.Summary(h.State))
		return nil
	case "copy":
		s.copy(h)
		return nil
	case "download":
		return s.saved(s.exporter.Download(s.ctx, s.matrix(h), s.opts))
	case "xlsx":
		return s.saved(s.exporter.XLSX(s.ctx, s.matrix(h), s.opts))
	case "pdf":
		return s.saved(s.exporter.PDF(s.ctx, s.matrix(h), s.scanner.Document().Title(), s.opts))
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", cmd)
	}
	fmt.Fprintln(s.out, preview.Summary(h.State))
	return nil
}

func (s *Session) matrix(h *scan.Handle) extract.Matrix {
	return extract.FromSource(h.Table, h.State, s.opts.IncludeHeader)
}

func (s *Session) copy(h *scan.Handle) {
	if err := s.exporter.Copy(s.ctx, s.matrix(h), s.opts); err != nil {
		log.Debug().Err(err).Msg("copy")
		fmt.Fprintln(s.out, "Copy failed")
		return
	}
	fmt.Fprintln(s.out, "Copied!")
}

func (s *Session) saved(path string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
	return nil
}

func (s *Session) use(args []string) error {
	i, err := intArg(args, 0)
	if err != nil {
		return err
	}
	handles := s.scanner.Registry().Handles()
	if i < 0 || i >= len(handles) {
		return fmt.Errorf("table %d out of range (found %d)", i, len(handles))
	}
	s.current = handles[i].Key
	fmt.Fprintf(s.out, "Using table %d (%s)\n", i, s.current)
	return nil
}

// handle returns the table commands act on. When the current table has gone
// away the first live table takes its place.
func (s *Session) handle() (*scan.Handle, error) {
	reg := s.scanner.Registry()
	if h, ok := reg.ByKey(s.current); ok {
		return h, nil
	}
	handles := reg.Handles()
	if len(handles) == 0 {
		return nil, errors.New("no eligible tables")
	}
	s.current = handles[0].Key
	return handles[0], nil
}

func (s *Session) currentKey() string {
	if h, err := s.handle(); err == nil {
		return h.Key
	}
	return ""
}

// delim sets the delimiter from "NAME [TEXT]". TEXT is everything after the
// single space following NAME, kept verbatim.
func (s *Session) delim(rest string) error {
	rest = strings.TrimRight(strings.TrimLeft(rest, " \t"), "\r")
	if strings.TrimSpace(rest) == "" {
		fmt.Fprintf(s.out, "delimiter: %s\n", export.DelimiterName(s.opts.Delimiter))
		return nil
	}
	name, custom, _ := strings.Cut(rest, " ")
	s.opts.Delimiter = export.ResolveDelimiter(name, custom)
	fmt.Fprintf(s.out, "delimiter: %s\n", export.DelimiterName(s.opts.Delimiter))
	return nil
}

func (s *Session) toggleOption(name string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s on|off", name)
	}
	var on bool
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		on = true
	case "off", "false", "no", "0":
	default:
		return fmt.Errorf("usage: %s on|off", name)
	}
	switch name {
	case "header":
		s.opts.IncludeHeader = on
	case "quote":
		s.opts.AlwaysQuote = on
	case "bom":
		s.opts.BOM = on
	}
	fmt.Fprintf(s.out, "%s: %s\n", name, args[0])
	return nil
}

func (s *Session) save(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: save FILE")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := s.scanner.Document().Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", args[0])
	return nil
}

// ReloadSoon schedules a throttled reload. Bursts of file events collapse
// into one leading and at most one trailing reload per interval.
func (s *Session) ReloadSoon(trigger string) {
	if s.reloads == nil {
		if err := s.Reload(trigger); err != nil {
			log.Warn().Err(err).Str("trigger", trigger).Msg("reload failed")
		}
		return
	}
	s.reloadTrigger = trigger
	s.reloads.Trigger()
}

// Reload re-reads the source and applies it.
func (s *Session) Reload(trigger string) error {
	if s.load == nil {
		return errors.New("reload not available for this source")
	}
	doc, err := s.load(s.ctx)
	if err != nil {
		log.Warn().Err(err).Str("trigger", trigger).Msg("reload failed")
		return err
	}
	s.Apply(doc, trigger)
	return nil
}

// Apply swaps in a freshly parsed document and rescans it. Tables that keep
// their identity keep their selection.
func (s *Session) Apply(doc *page.Document, trigger string) {
	s.scanner.SetDocument(doc)
	s.scanner.Notify()
	s.metrics.Reload(trigger)
	s.syncLive()
	log.Info().Str("trigger", trigger).Int("tables", s.scanner.Registry().Len()).Msg("document reloaded")
	if trigger != "manual" {
		fmt.Fprintf(s.out, "\n[%s] reloaded, %d eligible table(s)\n%s", trigger, s.scanner.Registry().Len(), Prompt)
	} else {
		fmt.Fprintf(s.out, "Reloaded, %d eligible table(s)\n", s.scanner.Registry().Len())
	}
}

func (s *Session) syncLive() {
	s.metrics.SetLive(s.scanner.Registry().Len())
}

func intArg(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, errors.New("missing index argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", args[i])
	}
	return n, nil
}

func allNone(args []string) (bool, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "all":
			return true, nil
		case "none":
			return false, nil
		}
	}
	return false, errors.New("expected all or none")
}

const helpText = `Commands:
  tables              list eligible tables (* marks the current one)
  use N               act on table N
  row I [shift]       toggle body row I; shift selects the range from the last row
  range A B           add rows A..B
  rows all|none       select or clear every row
  col C               toggle content column C
  cols all|none       select or clear every column
  all | clear         select everything / clear the selection
  show                preview the current selection
  delim NAME [TEXT]   comma, tab, semicolon, pipe, or custom TEXT
  header|quote|bom on|off
  copy                copy the selection to the clipboard
  download            save table-selection.csv or .tsv
  xlsx | pdf          save the selection as a workbook or PDF
  rescan | reload     re-scan the page / re-read the source
  save FILE           write the annotated page
  quit
`
