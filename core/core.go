// Package core wires fetching, caching, run tracking and aggregation into the
// operations served by the CLI, the HTTP API and the MCP server.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/huangsam/cruxreport/core/agg"
	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/core/insight"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/outwriter"
	"github.com/huangsam/cruxreport/schema"
)

// Runner implements contract.CruxRunner on top of the batch fetcher.
type Runner struct {
	cfg  *contract.Config
	mgr  contract.CacheManager
	log  *slog.Logger
	http *http.Client
}

var _ contract.CruxRunner = &Runner{} // Compile-time check

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger for the runner and its fetchers.
func WithLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHTTPClient sets the HTTP client used to reach the CrUX API.
func WithHTTPClient(hc *http.Client) RunnerOption {
	return func(r *Runner) {
		r.http = hc
	}
}

// NewRunner returns a runner for cfg. mgr may be nil to disable caching and run tracking.
func NewRunner(cfg *contract.Config, mgr contract.CacheManager, opts ...RunnerOption) *Runner {
	r := &Runner{cfg: cfg, mgr: mgr, log: contract.DiscardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchConfig maps the runtime configuration to fetcher settings.
func FetchConfig(cfg *contract.Config) fetch.Config {
	return fetch.Config{
		APIURL:         cfg.APIURL,
		APIKey:         cfg.APIKey,
		BatchSize:      cfg.BatchSize,
		BatchDelay:     cfg.BatchDelay,
		MaxAttempts:    cfg.MaxAttempts,
		RetryDelay:     cfg.RetryDelay,
		AttemptTimeout: cfg.AttemptTimeout,
		RetryPolicy:    cfg.RetryPolicy,
	}
}

func (r *Runner) responseStore() contract.CacheStore {
	if r.mgr == nil {
		return nil
	}
	return r.mgr.GetResponseStore()
}

func (r *Runner) runStore() contract.RunStore {
	if r.mgr == nil {
		return nil
	}
	return r.mgr.GetRunStore()
}

// Results fetches the CrUX record of every URL in req.
func (r *Runner) Results(ctx context.Context, req schema.CruxRequest) ([]schema.URLResult, error) {
	if !r.cfg.HasAPICredentials() {
		return nil, fmt.Errorf("%w: CRUX_API_URL and CRUX_API_KEY must be set", fetch.ErrConfig)
	}

	log := loggerFor(ctx, r.log)
	fc := FetchConfig(r.cfg)
	client := newCachedClient(fetch.NewHTTPClient(fc.APIURL, fc.APIKey, r.http), r.responseStore(), r.cfg.CacheTTL, log)

	fetcher, err := fetch.New(fc, fetch.WithLogger(log), fetch.WithClient(client))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tracker := beginRun(r.runStore(), log, req, start)
	results, err := fetcher.Fetch(ctx, req.URLs, req.Metrics, req.FormFactor)
	if results != nil {
		tracker.finish(results, time.Now())
	}
	return results, err
}

// Summary fetches req and aggregates the results into a rated report.
func (r *Runner) Summary(ctx context.Context, req schema.CruxRequest) (schema.SummaryReport, []schema.URLResult, error) {
	results, err := r.Results(ctx, req)
	if err != nil {
		return schema.SummaryReport{}, results, err
	}

	rows, err := agg.Aggregate(results, req.Metrics)
	if err != nil {
		return schema.SummaryReport{}, results, err
	}
	return insight.Report(rows, len(req.URLs), req.FormFactor), results, nil
}

// requestFromConfig builds and validates the lookup request of a CLI invocation.
func requestFromConfig(cfg *contract.Config) (schema.CruxRequest, error) {
	return contract.ValidateCruxRequest(schema.CruxRequest{
		URLs:       cfg.URLs,
		Metrics:    cfg.Metrics,
		FormFactor: cfg.FormFactor,
	}, 0)
}

// ExecuteFetch fetches every configured URL and prints the per-URL results.
// It serves as the main entry point for the 'fetch' command.
func ExecuteFetch(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	req, err := requestFromConfig(cfg)
	if err != nil {
		return err
	}

	runner := NewRunner(cfg, mgr, WithLogger(contract.GetLogger()))
	results, err := runner.Results(ctx, req)
	if err != nil {
		return err
	}
	return outwriter.PrintResults(results, cfg, time.Since(start))
}

// ExecuteSummary fetches every configured URL and prints the aggregated summary with insights.
// It serves as the main entry point for the 'summary' command.
func ExecuteSummary(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	req, err := requestFromConfig(cfg)
	if err != nil {
		return err
	}

	runner := NewRunner(cfg, mgr, WithLogger(contract.GetLogger()))
	report, _, err := runner.Summary(ctx, req)
	if err != nil {
		return err
	}
	return outwriter.PrintSummary(report, cfg, time.Since(start))
}

// ExecuteMetrics prints the metric vocabulary with display names and thresholds.
func ExecuteMetrics(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.PrintMetrics(cfg)
}
