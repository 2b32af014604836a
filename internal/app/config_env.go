package app

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// EnvPrefix namespaces every environment variable tablepick reads.
const EnvPrefix = "TABLEPICK_"

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// values coming from a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    setString := func(dst *string, key string) {
        if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" { *dst = v }
    }
    setDuration := func(dst *time.Duration, key string) {
        if s := os.Getenv(EnvPrefix + key); s != "" {
            if d, err := time.ParseDuration(s); err == nil { *dst = d }
        }
    }
    // Booleans override when env present and truthy/falsey
    setBool := func(dst *bool, key string) {
        if s := strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + key))); s != "" {
            switch s {
            case "1", "true", "yes", "on":
                *dst = true
            case "0", "false", "no", "off":
                *dst = false
            }
        }
    }

    if s := os.Getenv(EnvPrefix + "TABLE"); s != "" {
        if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 { cfg.Table = n }
    }
    setString(&cfg.Rows, "ROWS")
    setString(&cfg.Cols, "COLS")

    // Delimiters are taken verbatim: a tab or space is a valid value.
    if v := os.Getenv(EnvPrefix + "DELIMITER"); v != "" { cfg.Delimiter = v }
    if v := os.Getenv(EnvPrefix + "CUSTOM_DELIMITER"); v != "" { cfg.CustomDelimiter = v }
    setBool(&cfg.IncludeHeader, "HEADER")
    setBool(&cfg.AlwaysQuote, "QUOTE")
    setBool(&cfg.BOM, "BOM")
    setString(&cfg.Format, "FORMAT")
    setString(&cfg.OutputPath, "OUT")
    setString(&cfg.DownloadDir, "DOWNLOAD_DIR")

    setString(&cfg.UserAgent, "USER_AGENT")
    setDuration(&cfg.Timeout, "TIMEOUT")
    setString(&cfg.CacheDir, "CACHE_DIR")
    setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
    setBool(&cfg.IgnoreRobots, "ROBOTS_IGNORE")

    setDuration(&cfg.PollInterval, "POLL")
    setDuration(&cfg.ScanInterval, "SCAN_INTERVAL")
    setString(&cfg.MetricsAddr, "METRICS_ADDR")
    setBool(&cfg.Verbose, "VERBOSE")
}
