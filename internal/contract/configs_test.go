package contract

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput returns raw input matching the flag defaults.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		BatchSize:       DefaultBatchSize,
		BatchDelay:      "1s",
		MaxAttempts:     DefaultMaxAttempts,
		RetryDelay:      "1s",
		RetryPolicy:     "linear",
		AttemptTimeout:  "30s",
		Output:          "text",
		Precision:       DefaultPrecision,
		Color:           "yes",
		CacheBackend:    "sqlite",
		CacheTTL:        "12h",
		RunBackend:      "none",
		LogLevel:        "info",
		LogFormat:       "text",
		MaxURLs:         DefaultMaxURLs,
		RateLimit:       DefaultRateLimit,
		RateWindow:      "15m",
		MaxRequestBytes: DefaultMaxRequestBytes,
		AllowedOrigins:  DefaultAllowedOrigins,
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid defaults", modify: func(*ConfigRawInput) {}},
		{name: "zero batch size", modify: func(in *ConfigRawInput) { in.BatchSize = 0 }, expectError: true},
		{name: "batch size too large", modify: func(in *ConfigRawInput) { in.BatchSize = MaxBatchSize + 1 }, expectError: true},
		{name: "zero attempts", modify: func(in *ConfigRawInput) { in.MaxAttempts = 0 }, expectError: true},
		{name: "bad batch delay", modify: func(in *ConfigRawInput) { in.BatchDelay = "soon" }, expectError: true},
		{name: "negative retry delay", modify: func(in *ConfigRawInput) { in.RetryDelay = "-1s" }, expectError: true},
		{name: "zero attempt timeout", modify: func(in *ConfigRawInput) { in.AttemptTimeout = "0s" }, expectError: true},
		{name: "exponential policy", modify: func(in *ConfigRawInput) { in.RetryPolicy = "Exponential" }},
		{name: "unknown policy", modify: func(in *ConfigRawInput) { in.RetryPolicy = "random" }, expectError: true},
		{name: "unknown output", modify: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "parquet without file", modify: func(in *ConfigRawInput) { in.Output = "parquet" }, expectError: true},
		{name: "parquet with file", modify: func(in *ConfigRawInput) { in.Output = "parquet"; in.OutputFile = "out.parquet" }},
		{name: "bad color", modify: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "bad precision", modify: func(in *ConfigRawInput) { in.Precision = 9 }, expectError: true},
		{name: "unknown metric", modify: func(in *ConfigRawInput) { in.Metrics = "speed_index" }, expectError: true},
		{name: "unknown form factor", modify: func(in *ConfigRawInput) { in.FormFactor = "watch" }, expectError: true},
		{name: "unknown cache backend", modify: func(in *ConfigRawInput) { in.CacheBackend = "mongo" }, expectError: true},
		{name: "redis cache without url", modify: func(in *ConfigRawInput) { in.CacheBackend = "redis" }, expectError: true},
		{name: "redis cache with url", modify: func(in *ConfigRawInput) {
			in.CacheBackend = "redis"
			in.CacheDBConnect = "redis://localhost:6379/0"
		}},
		{name: "redis run backend", modify: func(in *ConfigRawInput) {
			in.RunBackend = "redis"
			in.RunDBConnect = "redis://localhost:6379/0"
		}, expectError: true},
		{name: "shared sqlite file", modify: func(in *ConfigRawInput) {
			in.RunBackend = "sqlite"
			in.CacheDBConnect = "/tmp/same.db"
			in.RunDBConnect = "/tmp/same.db"
		}, expectError: true},
		{name: "zero max urls", modify: func(in *ConfigRawInput) { in.MaxURLs = 0 }, expectError: true},
		{name: "zero rate limit", modify: func(in *ConfigRawInput) { in.RateLimit = 0 }, expectError: true},
		{name: "bad log level", modify: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: true},
		{name: "bad log format", modify: func(in *ConfigRawInput) { in.LogFormat = "xml" }, expectError: true},
		{name: "missing urls file", modify: func(in *ConfigRawInput) { in.URLsFile = "/nonexistent/urls.txt" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.modify(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateResolvesValues(t *testing.T) {
	urlsFile := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(urlsFile, []byte("https://c.example\n"), 0o644))

	input := validInput()
	input.URLArgs = []string{"https://a.example", " ", "https://b.example"}
	input.URLsFile = urlsFile
	input.APIURL = " https://crux.example/v1/records:queryRecord "
	input.APIKey = "secret"
	input.Metrics = "largest_contentful_paint"
	input.FormFactor = "desktop"
	input.BatchDelay = "250ms"
	input.RunBackend = ""
	input.LogLevel = "debug"
	input.LogFormat = "JSON"
	input.AllowedOrigins = "http://localhost:3000, https://app.example"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, cfg.URLs)
	assert.Equal(t, "https://crux.example/v1/records:queryRecord", cfg.APIURL)
	assert.True(t, cfg.HasAPICredentials())
	assert.Equal(t, []schema.Metric{schema.LargestContentfulPaint}, cfg.Metrics)
	assert.Equal(t, schema.DesktopFormFactor, cfg.FormFactor)
	assert.Equal(t, 250*time.Millisecond, cfg.BatchDelay)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, schema.NoneBackend, cfg.RunBackend)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example"}, cfg.AllowedOrigins)
}

func TestProcessAndValidateUsesFetcherDefaults(t *testing.T) {
	input := validInput()
	input.URLArgs = []string{"https://a.example"}
	input.BatchDelay = ""
	input.RetryDelay = ""
	input.AttemptTimeout = ""

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	want := fetch.DefaultConfig("", "")
	assert.Equal(t, want.BatchSize, cfg.BatchSize)
	assert.Equal(t, want.BatchDelay, cfg.BatchDelay)
	assert.Equal(t, want.MaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, want.RetryDelay, cfg.RetryDelay)
	assert.Equal(t, want.AttemptTimeout, cfg.AttemptTimeout)
	assert.Equal(t, want.RetryPolicy, cfg.RetryPolicy)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql valid", schema.MySQLBackend, "user:pass@tcp(localhost:3306)/crux", false},
		{"mysql missing tcp", schema.MySQLBackend, "user:pass@localhost/crux", true},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"postgres valid", schema.PostgreSQLBackend, "host=localhost dbname=crux", false},
		{"postgres missing dbname", schema.PostgreSQLBackend, "host=localhost", true},
		{"redis valid", schema.RedisBackend, "redis://localhost:6379/0", false},
		{"rediss valid", schema.RedisBackend, "rediss://cache.example:6380", false},
		{"redis bad scheme", schema.RedisBackend, "localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigClone(t *testing.T) {
	orig := &Config{
		URLs:           []string{"https://a.example"},
		Metrics:        []schema.Metric{schema.RoundTripTime},
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	clone := orig.Clone()
	clone.URLs[0] = "https://b.example"
	clone.Metrics[0] = schema.CumulativeLayoutShift
	clone.AllowedOrigins[0] = "*"

	assert.Equal(t, "https://a.example", orig.URLs[0])
	assert.Equal(t, schema.RoundTripTime, orig.Metrics[0])
	assert.Equal(t, "http://localhost:3000", orig.AllowedOrigins[0])
}
