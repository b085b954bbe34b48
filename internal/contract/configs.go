package contract

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/schema"
)

// Default values for configuration.
const (
	DefaultBatchSize       = fetch.DefaultBatchSize
	DefaultBatchDelay      = fetch.DefaultBatchDelay
	DefaultMaxAttempts     = fetch.DefaultMaxAttempts
	DefaultRetryDelay      = fetch.DefaultRetryDelay
	DefaultAttemptTimeout  = fetch.DefaultAttemptTimeout
	DefaultPrecision       = 2
	DefaultCacheTTL        = 12 * time.Hour
	DefaultAddr            = ":5000"
	DefaultEnvironment     = "development"
	DefaultMaxURLs         = 50
	DefaultRateLimit       = 100
	DefaultRateWindow      = 15 * time.Minute
	DefaultMaxRequestBytes = 1 << 20
	DefaultAllowedOrigins  = "http://localhost:3000"
	MaxBatchSize           = 50
	MaxAttemptsLimit       = 10
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for cruxreport.
// This struct remains the "final, validated" config.
type Config struct {
	APIURL string
	APIKey string // Please use env var as this is plaintext

	URLs       []string
	URLsFile   string
	Metrics    []schema.Metric
	FormFactor schema.FormFactor

	BatchSize      int
	BatchDelay     time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	RetryPolicy    schema.RetryPolicy
	AttemptTimeout time.Duration

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	RunBackend   schema.DatabaseBackend
	RunDBConnect string // Please use env var as this is plaintext

	LogLevel  slog.Level
	LogFormat string

	Addr            string
	Environment     string
	MaxURLs         int
	RateLimit       int
	RateWindow      time.Duration
	MaxRequestBytes int64
	AllowedOrigins  []string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	URLArgs []string

	// --- Fields from rootCmd.PersistentFlags() ---
	APIURL         string `mapstructure:"api-url"`
	APIKey         string `mapstructure:"api-key"`
	Metrics        string `mapstructure:"metrics"`
	FormFactor     string `mapstructure:"form-factor"`
	URLsFile       string `mapstructure:"urls-file"`
	BatchSize      int    `mapstructure:"batch-size"`
	BatchDelay     string `mapstructure:"batch-delay"`
	MaxAttempts    int    `mapstructure:"max-attempts"`
	RetryDelay     string `mapstructure:"retry-delay"`
	RetryPolicy    string `mapstructure:"retry-policy"`
	AttemptTimeout string `mapstructure:"attempt-timeout"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Color          string `mapstructure:"color"`
	Width          int    `mapstructure:"width"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	CacheTTL       string `mapstructure:"cache-ttl"`
	RunBackend     string `mapstructure:"run-backend"`
	RunDBConnect   string `mapstructure:"run-db-connect"`
	LogLevel       string `mapstructure:"log-level"`
	LogFormat      string `mapstructure:"log-format"`

	// --- Fields from serveCmd.Flags() ---
	Addr            string `mapstructure:"addr"`
	Environment     string `mapstructure:"environment"`
	MaxURLs         int    `mapstructure:"max-urls"`
	RateLimit       int    `mapstructure:"rate-limit"`
	RateWindow      string `mapstructure:"rate-window"`
	MaxRequestBytes int64  `mapstructure:"max-request-bytes"`
	AllowedOrigins  string `mapstructure:"allowed-origins"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.URLs = slices.Clone(c.URLs)
	clone.Metrics = slices.Clone(c.Metrics)
	clone.AllowedOrigins = slices.Clone(c.AllowedOrigins)
	return &clone
}

// HasAPICredentials reports whether both the CrUX endpoint and key are configured.
func (c *Config) HasAPICredentials() bool {
	return c.APIURL != "" && c.APIKey != ""
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processQuery(cfg, input); err != nil {
		return err
	}
	if err := processFetchSettings(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processServerSettings(cfg, input); err != nil {
		return err
	}
	return processLogSettings(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must start with 'redis://' or 'rediss://'")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and run log backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}
	ttl, err := parsePositiveDuration("cache-ttl", input.CacheTTL, DefaultCacheTTL)
	if err != nil {
		return err
	}
	cfg.CacheTTL = ttl

	// --- Run Backend Validation ---
	cfg.RunBackend = schema.DatabaseBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend == "" {
		cfg.RunBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidRunBackends[cfg.RunBackend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
	}
	cfg.RunDBConnect = input.RunDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
		return err
	}

	// Validate that cache and run log use different SQLite files
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runDBPath := cfg.RunDBConnect
		if runDBPath == "" {
			runDBPath = GetRunDBFilePath()
		}
		if cacheDBPath == runDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.APIURL = strings.TrimSpace(input.APIURL)
	cfg.APIKey = strings.TrimSpace(input.APIKey)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 0 || input.Precision > 4 {
		return fmt.Errorf("precision must be between 0 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	return nil
}

// processQuery resolves the metric list, the form factor and the URLs to look up.
func processQuery(cfg *Config, input *ConfigRawInput) error {
	metrics, err := ParseMetrics(input.Metrics)
	if err != nil {
		return err
	}
	cfg.Metrics = metrics

	ff, err := ParseFormFactor(input.FormFactor)
	if err != nil {
		return err
	}
	cfg.FormFactor = ff

	cfg.URLsFile = strings.TrimSpace(input.URLsFile)
	urls := make([]string, 0, len(input.URLArgs))
	for _, u := range input.URLArgs {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if cfg.URLsFile != "" {
		fileURLs, err := ReadURLsFile(cfg.URLsFile)
		if err != nil {
			return err
		}
		urls = append(urls, fileURLs...)
	}
	cfg.URLs = urls
	return nil
}

// processFetchSettings validates batching, retry and timeout settings.
func processFetchSettings(cfg *Config, input *ConfigRawInput) error {
	if input.BatchSize <= 0 || input.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch-size must be greater than 0 and cannot exceed %d (received %d)", MaxBatchSize, input.BatchSize)
	}
	cfg.BatchSize = input.BatchSize

	if input.MaxAttempts <= 0 || input.MaxAttempts > MaxAttemptsLimit {
		return fmt.Errorf("max-attempts must be greater than 0 and cannot exceed %d (received %d)", MaxAttemptsLimit, input.MaxAttempts)
	}
	cfg.MaxAttempts = input.MaxAttempts

	var err error
	if cfg.BatchDelay, err = parseDuration("batch-delay", input.BatchDelay, DefaultBatchDelay); err != nil {
		return err
	}
	if cfg.RetryDelay, err = parseDuration("retry-delay", input.RetryDelay, DefaultRetryDelay); err != nil {
		return err
	}
	if cfg.AttemptTimeout, err = parsePositiveDuration("attempt-timeout", input.AttemptTimeout, DefaultAttemptTimeout); err != nil {
		return err
	}

	cfg.RetryPolicy = schema.RetryPolicy(strings.ToLower(strings.TrimSpace(input.RetryPolicy)))
	if cfg.RetryPolicy == "" {
		cfg.RetryPolicy = schema.LinearRetry
	}
	if _, ok := schema.ValidRetryPolicies[cfg.RetryPolicy]; !ok {
		return fmt.Errorf("invalid retry policy '%s'. must be linear, exponential", input.RetryPolicy)
	}
	return nil
}

// processServerSettings validates the HTTP server settings.
func processServerSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.Addr = strings.TrimSpace(input.Addr)
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	cfg.Environment = strings.TrimSpace(input.Environment)
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}

	if input.MaxURLs <= 0 {
		return fmt.Errorf("max-urls must be greater than 0 (received %d)", input.MaxURLs)
	}
	cfg.MaxURLs = input.MaxURLs

	if input.RateLimit <= 0 {
		return fmt.Errorf("rate-limit must be greater than 0 (received %d)", input.RateLimit)
	}
	cfg.RateLimit = input.RateLimit

	window, err := parsePositiveDuration("rate-window", input.RateWindow, DefaultRateWindow)
	if err != nil {
		return err
	}
	cfg.RateWindow = window

	if input.MaxRequestBytes <= 0 {
		return fmt.Errorf("max-request-bytes must be greater than 0 (received %d)", input.MaxRequestBytes)
	}
	cfg.MaxRequestBytes = input.MaxRequestBytes

	cfg.AllowedOrigins = nil
	for origin := range strings.SplitSeq(input.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}
	return nil
}

// processLogSettings parses the log level and format.
func processLogSettings(cfg *Config, input *ConfigRawInput) error {
	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(input.LogFormat))
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = LogFormatText
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}
	return nil
}

// parseDuration parses a non-negative duration, falling back to def when empty.
func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration such as 500ms or 2s (received %q)", name, raw)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative (received %s)", name, d)
	}
	return d, nil
}

// parsePositiveDuration is parseDuration that also rejects zero.
func parsePositiveDuration(name, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(name, raw, def)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, fmt.Errorf("%s must be greater than 0 (received %s)", name, d)
	}
	return d, nil
}
