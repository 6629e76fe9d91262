package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	outputs    = []string{"text", "json"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPaths []string // hcl plan files or directories
	Targets   []string // item names the host asks for; empty runs everything

	LogFormat   string
	LogLevel    string
	Output      string // report format
	MetricsPort int
	Workers     int // zero selects GOMAXPROCS

	// EnvPrefix selects the environment variables the env_vars module
	// contributes.
	EnvPrefix string

	WatchRoot string
	Debounce  time.Duration
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if cfg.WatchRoot == "" {
		cfg.WatchRoot = "."
	}

	var result *multierror.Error
	if !slices.Contains(logLevels, cfg.LogLevel) {
		result = multierror.Append(result, fmt.Errorf("invalid log-level %q: must be one of %v", cfg.LogLevel, logLevels))
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		result = multierror.Append(result, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if !slices.Contains(outputs, cfg.Output) {
		result = multierror.Append(result, fmt.Errorf("invalid output %q: must be 'text' or 'json'", cfg.Output))
	}
	if cfg.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid workers %d: must not be negative", cfg.Workers))
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid metrics-port %d", cfg.MetricsPort))
	}
	if cfg.Debounce < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid debounce %s: must not be negative", cfg.Debounce))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
