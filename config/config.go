package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"klinefetch/pkg/bybit"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Bybit   BybitConfig   `mapstructure:"bybit"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Symbols SymbolsConfig `mapstructure:"symbols"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Server  ServerConfig  `mapstructure:"server"`
}

type BybitConfig struct {
	REST RESTConfig `mapstructure:"rest"`
}

type RESTConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second shared by all fetches, 0 disables
	Burst     int           `mapstructure:"burst"`
}

// FetchConfig controls historical pagination.
type FetchConfig struct {
	PageLimit int           `mapstructure:"page_limit"` // rows per request, 1..1000
	PaceDelay time.Duration `mapstructure:"pace_delay"` // pause between consecutive requests
	MaxPages  int           `mapstructure:"max_pages"`  // 0 means unlimited
}

// SymbolsConfig lists the categories whose symbol lists the server keeps warm.
type SymbolsConfig struct {
	Preload []string `mapstructure:"preload"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"` // 0..1
	PrettyPrint bool    `mapstructure:"pretty_print"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

var defaults = map[string]any{
	"bybit.rest.base_url":   "https://api.bybit.com",
	"bybit.rest.timeout":    30 * time.Second,
	"bybit.rest.rate_limit": 10.0,
	"bybit.rest.burst":      5,
	"fetch.page_limit":      1000,
	"fetch.pace_delay":      500 * time.Millisecond,
	"fetch.max_pages":       0,
	"symbols.preload":       []string{"spot", "linear"},
	"log.level":             "info",
	"log.format":            "console",
	"log.output_file":       "",
	"log.environment":       "prod",
	"tracing.enabled":       false,
	"tracing.sample_ratio":  1.0,
	"tracing.pretty_print":  false,
	"server.addr":           ":3001",
	"server.read_timeout":   15 * time.Second,
	"server.write_timeout":  5 * time.Minute,
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables (e.g. FETCH_PACE_DELAY). When path is empty,
// config.yaml is looked up next to the binary and in ./config; a missing file
// is not an error then. Flags, when given, override everything else for the
// keys they name.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., BYBIT_REST_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the fetcher cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Bybit.REST.BaseURL) == "" {
		errs = append(errs, errors.New("bybit.rest.base_url is required"))
	}
	if c.Bybit.REST.Timeout <= 0 {
		errs = append(errs, errors.New("bybit.rest.timeout must be positive"))
	}
	if c.Bybit.REST.RateLimit < 0 {
		errs = append(errs, errors.New("bybit.rest.rate_limit must not be negative"))
	}
	if c.Fetch.PageLimit < 1 || c.Fetch.PageLimit > 1000 {
		errs = append(errs, fmt.Errorf("fetch.page_limit must be in [1, 1000], got %d", c.Fetch.PageLimit))
	}
	if c.Fetch.PaceDelay < 0 {
		errs = append(errs, errors.New("fetch.pace_delay must not be negative"))
	}
	if c.Fetch.MaxPages < 0 {
		errs = append(errs, errors.New("fetch.max_pages must not be negative"))
	}
	for _, name := range c.Symbols.Preload {
		if !bybit.Category(name).IsValid() {
			errs = append(errs, fmt.Errorf("symbols.preload: unknown category %q", name))
		}
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0, 1], got %g", c.Tracing.SampleRatio))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
