// Package agg combines per-URL CrUX records into one summary row per metric.
package agg

import (
	"errors"
	"math"
	"strings"

	"github.com/huangsam/cruxreport/schema"
)

// Sentinel errors for aggregation.
var (
	ErrReportUnavailable = errors.New("chrome ux report unavailable")
	ErrNoResults         = errors.New("no results to aggregate")
	ErrNoMetrics         = errors.New("no metrics to aggregate")
)

// UnavailableError names the URLs that lacked a usable record for at least one metric.
type UnavailableError struct {
	URLs []string
}

func (e *UnavailableError) Error() string {
	return "Chrome UX report not found for " + strings.Join(e.URLs, ",")
}

// Is lets errors.Is match ErrReportUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrReportUnavailable
}

// accumulator sums the bin densities and p75 values of one metric.
type accumulator struct {
	good, needsImprovement, poor, p75 float64
}

// Aggregate averages the good / needs-improvement / poor densities and the p75 of every
// metric across all results. Rows follow the order of metrics. If any URL lacks a usable
// record for any metric, no rows are returned and the error is an *UnavailableError.
func Aggregate(results []schema.URLResult, metrics []schema.Metric) ([]schema.SummaryRow, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}

	total := float64(len(results))
	rows := make([]schema.SummaryRow, 0, len(metrics))
	var unavailable []string
	seen := make(map[string]struct{})

	for _, m := range metrics {
		var acc accumulator
		for _, r := range results {
			good, ni, poor, p75, ok := usableRecord(r, m)
			if !ok {
				if _, dup := seen[r.URL]; !dup {
					seen[r.URL] = struct{}{}
					unavailable = append(unavailable, r.URL)
				}
				continue
			}
			acc.good += good
			acc.needsImprovement += ni
			acc.poor += poor
			acc.p75 += p75
		}
		// The divisor is the total URL count, not the count of contributing URLs
		rows = append(rows, schema.SummaryRow{
			Metric:           m,
			Good:             round2(acc.good / total),
			NeedsImprovement: round2(acc.needsImprovement / total),
			Poor:             round2(acc.poor / total),
			P75:              round2(acc.p75 / total),
		})
	}

	if len(unavailable) > 0 {
		return nil, &UnavailableError{URLs: unavailable}
	}
	return rows, nil
}

// usableRecord extracts the three bin densities and the numeric p75 of metric m.
func usableRecord(r schema.URLResult, m schema.Metric) (good, ni, poor, p75 float64, ok bool) {
	if r.Failed() {
		return 0, 0, 0, 0, false
	}
	rec, found := r.Data[string(m)]
	if !found || len(rec.Histogram) < schema.MinHistogramBins {
		return 0, 0, 0, 0, false
	}
	if rec.Percentiles.P75.IsEmpty() {
		return 0, 0, 0, 0, false
	}
	p75, err := rec.Percentiles.P75.Float64()
	if err != nil || math.IsNaN(p75) || math.IsInf(p75, 0) {
		return 0, 0, 0, 0, false
	}
	return rec.Histogram[schema.BinGood].Density,
		rec.Histogram[schema.BinNeedsImprovement].Density,
		rec.Histogram[schema.BinPoor].Density,
		p75, true
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
