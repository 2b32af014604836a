package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
    Table int    `yaml:"table" json:"table"`
    Rows  string `yaml:"rows" json:"rows"`
    Cols  string `yaml:"cols" json:"cols"`

    Export struct {
        Delimiter       string `yaml:"delimiter" json:"delimiter"`
        CustomDelimiter string `yaml:"customDelimiter" json:"customDelimiter"`
        // Header defaults to on; a pointer lets the file switch it off.
        Header      *bool  `yaml:"header" json:"header"`
        AlwaysQuote bool   `yaml:"alwaysQuote" json:"alwaysQuote"`
        BOM         bool   `yaml:"bom" json:"bom"`
        Format      string `yaml:"format" json:"format"`
        Out         string `yaml:"out" json:"out"`
        DownloadDir string `yaml:"downloadDir" json:"downloadDir"`
    } `yaml:"export" json:"export"`

    Fetch struct {
        UserAgent    string        `yaml:"userAgent" json:"userAgent"`
        Timeout      time.Duration `yaml:"timeout" json:"timeout"`
        IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
    } `yaml:"fetch" json:"fetch"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
    } `yaml:"cache" json:"cache"`

    Watch struct {
        Poll         time.Duration `yaml:"poll" json:"poll"`
        ScanInterval time.Duration `yaml:"scanInterval" json:"scanInterval"`
        MetricsAddr  string        `yaml:"metricsAddr" json:"metricsAddr"`
    } `yaml:"watch" json:"watch"`

    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs on
// top of Defaults and below environment and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if fc.Table > 0 { cfg.Table = fc.Table }
    if fc.Rows != "" { cfg.Rows = fc.Rows }
    if fc.Cols != "" { cfg.Cols = fc.Cols }

    if fc.Export.Delimiter != "" { cfg.Delimiter = fc.Export.Delimiter }
    if fc.Export.CustomDelimiter != "" { cfg.CustomDelimiter = fc.Export.CustomDelimiter }
    if fc.Export.Header != nil { cfg.IncludeHeader = *fc.Export.Header }
    if fc.Export.AlwaysQuote { cfg.AlwaysQuote = true }
    if fc.Export.BOM { cfg.BOM = true }
    if fc.Export.Format != "" { cfg.Format = fc.Export.Format }
    if fc.Export.Out != "" { cfg.OutputPath = fc.Export.Out }
    if fc.Export.DownloadDir != "" { cfg.DownloadDir = fc.Export.DownloadDir }

    if fc.Fetch.UserAgent != "" { cfg.UserAgent = fc.Fetch.UserAgent }
    if fc.Fetch.Timeout > 0 { cfg.Timeout = fc.Fetch.Timeout }
    if fc.Fetch.IgnoreRobots { cfg.IgnoreRobots = true }

    if fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if fc.Cache.Clear { cfg.CacheClear = true }
    if fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }

    if fc.Watch.Poll > 0 { cfg.PollInterval = fc.Watch.Poll }
    if fc.Watch.ScanInterval > 0 { cfg.ScanInterval = fc.Watch.ScanInterval }
    if fc.Watch.MetricsAddr != "" { cfg.MetricsAddr = fc.Watch.MetricsAddr }

    if fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.Source) == "" {
        return errors.New("config: source is required")
    }
    if cfg.Table < 0 {
        return errors.New("config: table index must not be negative")
    }
    switch cfg.Format {
    case FormatDelimited, FormatXLSX, FormatPDF:
    default:
        return fmt.Errorf("config: unknown format %q (want csv, xlsx or pdf)", cfg.Format)
    }
    if cfg.Copy && cfg.Format != FormatDelimited {
        return errors.New("config: --copy only supports delimited text")
    }
    if cfg.Timeout < 0 || cfg.PollInterval < 0 || cfg.ScanInterval < 0 || cfg.CacheMaxAge < 0 {
        return errors.New("config: negative durations are not allowed")
    }
    if strings.ContainsAny(cfg.Delimiter+cfg.CustomDelimiter, "\r\n") {
        return errors.New("config: delimiter must not contain line breaks")
    }
    return nil
}
