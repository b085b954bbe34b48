// Package fetch looks up CrUX records for many URLs in bounded batches with per-URL retry.
package fetch

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/huangsam/cruxreport/schema"
)

// Default values for the fetcher.
const (
	DefaultBatchSize      = 5
	DefaultBatchDelay     = time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = time.Second
	DefaultAttemptTimeout = 30 * time.Second
)

// Config holds every setting of a Fetcher. Zero delays mean no wait.
type Config struct {
	APIURL         string
	APIKey         string
	BatchSize      int
	BatchDelay     time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	RetryPolicy    schema.RetryPolicy
}

// DefaultConfig returns the stock batching and retry settings for the given endpoint.
func DefaultConfig(apiURL, apiKey string) Config {
	return Config{
		APIURL:         apiURL,
		APIKey:         apiKey,
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
		MaxAttempts:    DefaultMaxAttempts,
		RetryDelay:     DefaultRetryDelay,
		AttemptTimeout: DefaultAttemptTimeout,
		RetryPolicy:    schema.LinearRetry,
	}
}

// Budget returns the longest a Fetch of n URLs can run with these settings:
// every attempt timing out, every retry wait taken and every batch delay slept.
func (c Config) Budget(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	batchSize := cmp.Or(max(c.BatchSize, 0), DefaultBatchSize)
	attempts := cmp.Or(max(c.MaxAttempts, 0), DefaultMaxAttempts)
	perURL := time.Duration(attempts) * cmp.Or(max(c.AttemptTimeout, 0), DefaultAttemptTimeout)
	perURL += maxRetryWait(c.RetryPolicy, max(c.RetryDelay, 0), attempts-1)

	batches := (n + batchSize - 1) / batchSize
	return time.Duration(batches)*perURL + time.Duration(batches-1)*max(c.BatchDelay, 0)
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for progress and failure records.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// WithClient replaces the HTTP client, e.g. with a cache-through client.
func WithClient(c Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// Fetcher runs CrUX lookups for a list of URLs.
type Fetcher struct {
	cfg    Config
	client Client
	log    *slog.Logger
}

// New validates cfg and returns a Fetcher.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: api url is required", ErrConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrConfig)
	}
	if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: api url must be absolute (received %q)", ErrConfig, cfg.APIURL)
	}

	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.RetryPolicy == "" {
		cfg.RetryPolicy = schema.LinearRetry
	}
	switch {
	case cfg.BatchSize < 0:
		return nil, fmt.Errorf("%w: batch size must be greater than 0 (received %d)", ErrConfig, cfg.BatchSize)
	case cfg.MaxAttempts < 0:
		return nil, fmt.Errorf("%w: max attempts must be greater than 0 (received %d)", ErrConfig, cfg.MaxAttempts)
	case cfg.BatchDelay < 0, cfg.RetryDelay < 0, cfg.AttemptTimeout < 0:
		return nil, fmt.Errorf("%w: delays and timeouts cannot be negative", ErrConfig)
	}
	if _, ok := schema.ValidRetryPolicies[cfg.RetryPolicy]; !ok {
		return nil, fmt.Errorf("%w: unknown retry policy %q", ErrConfig, cfg.RetryPolicy)
	}

	f := &Fetcher{
		cfg:    cfg,
		client: NewHTTPClient(cfg.APIURL, cfg.APIKey, nil),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Config returns the effective configuration after defaults were applied.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// Fetch looks up every URL and returns one result per URL in input order.
// Per-URL failures are reported in the results. The returned error is non-nil only for
// invalid input (no results) or cancellation (full-length results, unfinished URLs marked canceled).
func (f *Fetcher) Fetch(ctx context.Context, urls []string, metrics []schema.Metric, ff schema.FormFactor) ([]schema.URLResult, error) {
	if err := validateInput(urls, metrics, ff); err != nil {
		return nil, err
	}

	start := time.Now()
	batchCount := (len(urls) + f.cfg.BatchSize - 1) / f.cfg.BatchSize
	f.log.Info("processing urls", "count", len(urls), "batches", batchCount)

	results := make([]schema.URLResult, len(urls))
	for b := range batchCount {
		lo := b * f.cfg.BatchSize
		hi := min(lo+f.cfg.BatchSize, len(urls))

		if ctx.Err() != nil {
			markCanceled(ctx, results, urls, lo)
			break
		}

		f.log.Info("processing batch", "batch", b+1, "size", hi-lo)
		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			// Each goroutine writes only its own index
			wg.Go(func() {
				results[i] = f.lookup(ctx, Query{URL: urls[i], Metrics: metrics, FormFactor: ff})
			})
		}
		wg.Wait()

		if hi < len(urls) {
			if err := sleepCtx(ctx, f.cfg.BatchDelay); err != nil {
				markCanceled(ctx, results, urls, hi)
				break
			}
		}
	}

	succeeded, failed := countOutcomes(results)
	f.log.Info("fetch completed",
		"succeeded", succeeded,
		"failed", failed,
		"duration", time.Since(start))

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("fetch interrupted: %w", err)
	}
	return results, nil
}

// validateInput checks the whole request up front.
func validateInput(urls []string, metrics []schema.Metric, ff schema.FormFactor) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one url is required", ErrInvalidInput)
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidInput, raw)
		}
	}
	for _, m := range metrics {
		if _, ok := schema.ValidMetrics[m]; !ok {
			return fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, m)
		}
	}
	if _, ok := schema.ValidFormFactors[ff]; !ok {
		return fmt.Errorf("%w: unknown form factor %q", ErrInvalidInput, ff)
	}
	return nil
}

// markCanceled records every URL from index start on as canceled without an attempt.
func markCanceled(ctx context.Context, results []schema.URLResult, urls []string, start int) {
	for i := start; i < len(urls); i++ {
		results[i] = schema.NewFailure(urls[i], canceledMessage(ctx), ReasonCanceled, 0)
	}
}

func canceledMessage(ctx context.Context) string {
	if err := ctx.Err(); err != nil {
		return "lookup canceled: " + err.Error()
	}
	return "lookup canceled"
}

func countOutcomes(results []schema.URLResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
