package core

import (
	"log/slog"
	"time"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
)

// runTracker records one fetch run in the run log. Tracking failures are logged
// and never affect the fetch itself.
type runTracker struct {
	store contract.RunStore
	log   *slog.Logger
	runID int64
}

// beginRun opens a run for req. A nil store yields a tracker that does nothing.
func beginRun(store contract.RunStore, log *slog.Logger, req schema.CruxRequest, start time.Time) *runTracker {
	t := &runTracker{store: store, log: log}
	if store == nil {
		return t
	}

	configParams := map[string]any{
		"url_count":   len(req.URLs),
		"metrics":     schema.MetricNames(req.Metrics),
		"form_factor": string(req.FormFactor),
	}
	runID, err := store.BeginRun(start, configParams)
	if err != nil {
		log.Warn("run tracking initialization failed", "error", err)
		return t
	}
	t.runID = runID
	return t
}

// active reports whether the run was created in a tracking backend.
func (t *runTracker) active() bool {
	return t.store != nil && t.runID > 0
}

// finish stores every outcome and closes the run.
func (t *runTracker) finish(results []schema.URLResult, end time.Time) {
	if !t.active() {
		return
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Failed() {
			failed++
		} else {
			succeeded++
		}
		if err := t.store.RecordURLOutcome(t.runID, schema.OutcomeFromResult(r)); err != nil {
			t.log.Warn("failed to record url outcome", "run_id", t.runID, "url", r.URL, "error", err)
		}
	}

	if err := t.store.EndRun(t.runID, end, len(results), succeeded, failed); err != nil {
		t.log.Warn("failed to finalize run tracking", "run_id", t.runID, "error", err)
	}
}
