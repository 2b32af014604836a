package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// Source is a file path, "-" for stdin, or an http(s) URL.
	Source string

	// Selection
	Table int
	Rows  string
	Cols  string

	// Export
	Delimiter       string
	CustomDelimiter string
	IncludeHeader   bool
	AlwaysQuote     bool
	BOM             bool
	Format          string
	OutputPath      string
	Copy            bool
	DownloadDir     string

	// Fetching and caching
	UserAgent        string
	Timeout          time.Duration
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	// IgnoreRobots lets watch mode poll paths robots.txt disallows.
	IgnoreRobots     bool

	// Watching
	PollInterval time.Duration
	ScanInterval time.Duration
	MetricsAddr  string

	// Behavior
	Verbose bool
}

// Export formats.
const (
	FormatDelimited = "csv"
	FormatXLSX      = "xlsx"
	FormatPDF       = "pdf"
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Delimiter:     "comma",
		IncludeHeader: true,
		Format:        FormatDelimited,
		OutputPath:    "-",
		DownloadDir:   ".",
		UserAgent:     "tablepick/1.0 (+https://github.com/hyperifyio/tablepick)",
		Timeout:       15 * time.Second,
		CacheDir:      ".tablepick-cache",
		PollInterval:  5 * time.Second,
		ScanInterval:  400 * time.Millisecond,
	}
}

// MergeFlags copies the fields behind the named flags from flags into cfg.
// It is applied last so explicit flags win over file and environment.
func MergeFlags(cfg *Config, flags Config, names []string) {
	if cfg == nil { return }
	for _, name := range names {
		switch name {
		case "table":
			cfg.Table = flags.Table
		case "rows":
			cfg.Rows = flags.Rows
		case "cols":
			cfg.Cols = flags.Cols
		case "delimiter":
			cfg.Delimiter = flags.Delimiter
		case "custom-delimiter":
			cfg.CustomDelimiter = flags.CustomDelimiter
		case "header":
			cfg.IncludeHeader = flags.IncludeHeader
		case "quote":
			cfg.AlwaysQuote = flags.AlwaysQuote
		case "bom":
			cfg.BOM = flags.BOM
		case "format":
			cfg.Format = flags.Format
		case "out":
			cfg.OutputPath = flags.OutputPath
		case "copy":
			cfg.Copy = flags.Copy
		case "download-dir":
			cfg.DownloadDir = flags.DownloadDir
		case "user-agent":
			cfg.UserAgent = flags.UserAgent
		case "timeout":
			cfg.Timeout = flags.Timeout
		case "cache.dir":
			cfg.CacheDir = flags.CacheDir
		case "cache.maxAge":
			cfg.CacheMaxAge = flags.CacheMaxAge
		case "cache.clear":
			cfg.CacheClear = flags.CacheClear
		case "cache.strictPerms":
			cfg.CacheStrictPerms = flags.CacheStrictPerms
		case "robots.ignore":
			cfg.IgnoreRobots = flags.IgnoreRobots
		case "poll":
			cfg.PollInterval = flags.PollInterval
		case "scan-interval":
			cfg.ScanInterval = flags.ScanInterval
		case "metrics.addr":
			cfg.MetricsAddr = flags.MetricsAddr
		case "verbose":
			cfg.Verbose = flags.Verbose
		}
	}
}
