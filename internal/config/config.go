// Package config loads the ptinspect command configuration.
//
// Values are resolved in the usual viper order: command-line flags, then
// PTINSPECT_* environment variables, then an optional YAML config file, then
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PTINSPECT"

// Flag and key names.
const (
	KeyConfig    = "config"
	KeyMmap      = "mmap"
	KeyRecords   = "records"
	KeyCode      = "code"
	KeyMetrics   = "metrics"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
)

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds the resolved command configuration.
type Config struct {
	// Path is the archive to inspect (positional argument).
	Path string `mapstructure:"-"`

	// UseMmap memory-maps the archive.
	UseMmap bool `mapstructure:"mmap"`
	// ListRecords adds the record index with checksums to the report.
	ListRecords bool `mapstructure:"records"`
	// IncludeCode embeds code arenas in the report.
	IncludeCode bool `mapstructure:"code"`
	// PrintMetrics prints load metrics after the report.
	PrintMetrics bool `mapstructure:"metrics"`

	// LogLevel is the logr verbosity (0 = info only).
	LogLevel int `mapstructure:"log-level"`
	// LogFormat is "console" or "json".
	LogFormat string `mapstructure:"log-format"`
}

// BindFlags registers the command flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "path to a YAML config file")
	fs.Bool(KeyMmap, false, "memory-map the archive")
	fs.Bool(KeyRecords, false, "list archive records with SHA-256 checksums")
	fs.Bool(KeyCode, false, "include module code arenas in the report")
	fs.Bool(KeyMetrics, false, "print load metrics")
	fs.IntP(KeyLogLevel, "v", 0, "log verbosity")
	fs.String(KeyLogFormat, LogFormatConsole, "log format (console or json)")
}

// Load resolves the configuration from parsed flags, the environment and
// the optional config file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if args := fs.Args(); len(args) > 0 {
		cfg.Path = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("archive path is required")
	}
	if c.LogLevel < 0 {
		return fmt.Errorf("log-level must be >= 0, got %d", c.LogLevel)
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("log-format must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}
	return nil
}
