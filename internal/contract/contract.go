// Package contract provides interfaces and shared utilities for cruxreport's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/cruxreport/schema"
)

// CruxRunner runs the fetch and aggregation pipeline for a validated request.
// This allows the HTTP and MCP layers to be tested without a live CrUX endpoint.
type CruxRunner interface {
	// Results fetches the CrUX record of every URL in the request.
	// Per-URL failures are part of the returned slice, not the error.
	Results(ctx context.Context, req schema.CruxRequest) ([]schema.URLResult, error)

	// Summary fetches and aggregates the request into a summary report.
	// The fetched results are returned alongside the report, even when aggregation fails.
	Summary(ctx context.Context, req schema.CruxRequest) (schema.SummaryReport, []schema.URLResult, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetResponseStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking fetch runs and their per-URL outcomes.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalURLs, successCount, failureCount int) error

	// RecordURLOutcome stores the fetch outcome of one URL
	RecordURLOutcome(runID int64, outcome schema.URLOutcome) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllRuns returns every run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllURLOutcomes returns every stored URL outcome ordered by run ID
	GetAllURLOutcomes() ([]schema.URLOutcomeRecord, error)

	// Close closes the underlying connection
	Close() error
}
