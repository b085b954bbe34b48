// Package insight rates summary rows against the Core Web Vitals thresholds.
package insight

import (
	"fmt"

	"github.com/huangsam/cruxreport/schema"
)

// advice holds the needs-improvement and poor hints of one metric.
type advice struct {
	name             string
	needsImprovement string
	poor             string
}

var adviceByMetric = map[schema.Metric]advice{
	schema.FirstContentfulPaint: {
		name:             "First Contentful Paint (FCP)",
		needsImprovement: "Consider optimizing your server response time and reducing render-blocking resources.",
		poor:             "Focus on server optimization and reducing initial page load.",
	},
	schema.LargestContentfulPaint: {
		name:             "Largest Contentful Paint (LCP)",
		needsImprovement: "Consider optimizing images and reducing layout shifts.",
		poor:             "Focus on image optimization and reducing layout shifts.",
	},
	schema.CumulativeLayoutShift: {
		name:             "Cumulative Layout Shift (CLS)",
		needsImprovement: "Consider reserving space for dynamic content.",
		poor:             "Focus on stabilizing your layout and reserving space for dynamic content.",
	},
	schema.ExperimentalTimeToFirstByte: {
		name:             "Time to First Byte (TTFB)",
		needsImprovement: "Consider optimizing your server response time.",
		poor:             "Focus on server optimization and reducing server response time.",
	},
	schema.InteractionToNextPaint: {
		name:             "Interaction to Next Paint (INP)",
		needsImprovement: "Consider optimizing JavaScript execution.",
		poor:             "Focus on optimizing JavaScript execution and reducing main thread work.",
	},
	schema.RoundTripTime: {
		name:             "Round Trip Time (RTT)",
		needsImprovement: "Consider optimizing network latency and server response time.",
		poor:             "Focus on reducing network latency, optimizing server location, and improving server response time.",
	},
}

// Rate classifies a p75 value. Values on a threshold belong to the better rating.
func Rate(m schema.Metric, p75 float64) (schema.Rating, bool) {
	th, ok := schema.GetThreshold(m)
	if !ok {
		return "", false
	}
	switch {
	case p75 <= th.Good:
		return schema.GoodRating, true
	case p75 <= th.NeedsImprovement:
		return schema.NeedsImprovementRating, true
	default:
		return schema.PoorRating, true
	}
}

// Insights returns one rated message per summary row, in row order.
func Insights(rows []schema.SummaryRow) []schema.Insight {
	out := make([]schema.Insight, 0, len(rows))
	for _, row := range rows {
		rating, ok := Rate(row.Metric, row.P75)
		if !ok {
			continue
		}
		out = append(out, schema.Insight{
			Metric:  row.Metric,
			Rating:  rating,
			P75:     row.P75,
			Message: message(row.Metric, rating),
		})
	}
	return out
}

func message(m schema.Metric, r schema.Rating) string {
	a := adviceByMetric[m]
	switch r {
	case schema.GoodRating:
		return fmt.Sprintf("Your %s is excellent!", a.name)
	case schema.NeedsImprovementRating:
		return fmt.Sprintf("Your %s needs improvement. %s", a.name, a.needsImprovement)
	default:
		return fmt.Sprintf("Your %s is poor. %s", a.name, a.poor)
	}
}

// Report builds the summary report of a set of rows.
func Report(rows []schema.SummaryRow, urlCount int, ff schema.FormFactor) schema.SummaryReport {
	return schema.SummaryReport{
		Rows:       rows,
		Insights:   Insights(rows),
		URLCount:   urlCount,
		FormFactor: ff,
	}
}
