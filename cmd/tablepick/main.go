package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/tablepick/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("tablepick failed")
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the process status: 2 when the page had no
// eligible table, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, app.ErrNoTables) {
		return 2
	}
	return 1
}

type rootOptions struct {
	configPath string
	envFiles   []string
	flags      app.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{flags: app.Defaults()}

	root := &cobra.Command{
		Use:           "tablepick",
		Short:         "Pick rows and columns out of HTML tables and export them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "Path to a YAML or JSON config file")
	pf.StringSliceVar(&o.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading TABLEPICK_* variables")
	bindConfigFlags(pf, &o.flags)

	root.AddCommand(
		&cobra.Command{
			Use:   "list SOURCE",
			Short: "List eligible tables",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := o.newApp(cmd, args[0])
				if err != nil {
					return err
				}
				return a.List(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "export SOURCE",
			Short: "Export the selected rows and columns of one table",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := o.newApp(cmd, args[0])
				if err != nil {
					return err
				}
				return a.Export(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "annotate SOURCE",
			Short: "Write the page with selection controls attached",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := o.newApp(cmd, args[0])
				if err != nil {
					return err
				}
				return withOutput(a.Config().OutputPath, cmd.OutOrStdout(), func(w io.Writer) error {
					return a.Annotate(cmd.Context(), w)
				})
			},
		},
		&cobra.Command{
			Use:     "watch SOURCE",
			Aliases: []string{"repl"},
			Short:   "Select interactively and follow changes to the page",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := o.newApp(cmd, args[0])
				if err != nil {
					return err
				}
				return a.Watch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
			},
		},
	)
	return root
}

func bindConfigFlags(fs *pflag.FlagSet, c *app.Config) {
	fs.IntVar(&c.Table, "table", c.Table, "Index of the table to export (see list)")
	fs.StringVar(&c.Rows, "rows", c.Rows, "Body rows to export, e.g. 0-2,5; empty means all")
	fs.StringVar(&c.Cols, "cols", c.Cols, "Columns to export, e.g. 1,3; empty means all")
	fs.StringVar(&c.Delimiter, "delimiter", c.Delimiter, "comma, tab, semicolon, pipe, custom, or a literal delimiter")
	fs.StringVar(&c.CustomDelimiter, "custom-delimiter", c.CustomDelimiter, "Delimiter text used with --delimiter custom")
	fs.BoolVar(&c.IncludeHeader, "header", c.IncludeHeader, "Include the header row")
	fs.BoolVar(&c.AlwaysQuote, "quote", c.AlwaysQuote, "Quote every cell")
	fs.BoolVar(&c.BOM, "bom", c.BOM, "Prefix file output with a UTF-8 byte order mark")
	fs.StringVar(&c.Format, "format", c.Format, "Output format: csv, xlsx or pdf")
	fs.StringVarP(&c.OutputPath, "out", "o", c.OutputPath, "Output path; - for stdout, download for the download directory")
	fs.BoolVar(&c.Copy, "copy", c.Copy, "Copy the export to the clipboard instead of writing it")
	fs.StringVar(&c.DownloadDir, "download-dir", c.DownloadDir, "Directory for downloads, xlsx and pdf output")
	fs.StringVar(&c.UserAgent, "user-agent", c.UserAgent, "User-Agent for fetching URLs")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Per-request timeout for fetching URLs")
	fs.StringVar(&c.CacheDir, "cache.dir", c.CacheDir, "Page cache directory; empty disables caching")
	fs.DurationVar(&c.CacheMaxAge, "cache.maxAge", c.CacheMaxAge, "Purge cache entries older than this; 0 disables")
	fs.BoolVar(&c.CacheClear, "cache.clear", c.CacheClear, "Clear the cache directory before running")
	fs.BoolVar(&c.CacheStrictPerms, "cache.strictPerms", c.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&c.IgnoreRobots, "robots.ignore", c.IgnoreRobots, "Poll URLs even where robots.txt disallows it")
	fs.DurationVar(&c.PollInterval, "poll", c.PollInterval, "Polling interval for URL sources in watch mode; 0 disables")
	fs.DurationVar(&c.ScanInterval, "scan-interval", c.ScanInterval, "Minimum time between two scans of the page")
	fs.StringVar(&c.MetricsAddr, "metrics.addr", c.MetricsAddr, "Serve Prometheus metrics on this address in watch mode")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "Verbose logging")
}

// resolveConfig layers defaults, the config file, the environment and the
// flags given on the command line, in that order.
func (o *rootOptions) resolveConfig(cmd *cobra.Command, source string) (app.Config, error) {
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return app.Config{}, err
	}
	cfg := app.Defaults()
	if o.configPath != "" {
		fc, err := app.LoadConfigFile(o.configPath)
		if err != nil {
			return app.Config{}, err
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	var changed []string
	cmd.Flags().Visit(func(f *pflag.Flag) { changed = append(changed, f.Name) })
	app.MergeFlags(&cfg, o.flags, changed)

	cfg.Source = source
	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func (o *rootOptions) newApp(cmd *cobra.Command, source string) (*app.App, error) {
	cfg, err := o.resolveConfig(cmd, source)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

// withOutput runs fn against stdout for "-" and against a created file
// otherwise.
func withOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
