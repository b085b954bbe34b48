package insight

import (
	"testing"

	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	tests := []struct {
		name   string
		metric schema.Metric
		p75    float64
		want   schema.Rating
	}{
		{"fcp good", schema.FirstContentfulPaint, 1800, schema.GoodRating},
		{"fcp needs improvement", schema.FirstContentfulPaint, 1800.01, schema.NeedsImprovementRating},
		{"fcp poor", schema.FirstContentfulPaint, 3000.5, schema.PoorRating},
		{"lcp good", schema.LargestContentfulPaint, 2500, schema.GoodRating},
		{"lcp needs improvement", schema.LargestContentfulPaint, 4000, schema.NeedsImprovementRating},
		{"cls good", schema.CumulativeLayoutShift, 0.1, schema.GoodRating},
		{"cls poor", schema.CumulativeLayoutShift, 0.26, schema.PoorRating},
		{"ttfb needs improvement", schema.ExperimentalTimeToFirstByte, 900, schema.NeedsImprovementRating},
		{"inp poor", schema.InteractionToNextPaint, 501, schema.PoorRating},
		{"rtt good", schema.RoundTripTime, 50, schema.GoodRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rate(tt.metric, tt.p75)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Rate(schema.Metric("speed_index"), 1)
	assert.False(t, ok)
}

func TestInsights(t *testing.T) {
	rows := []schema.SummaryRow{
		{Metric: schema.LargestContentfulPaint, P75: 2000},
		{Metric: schema.CumulativeLayoutShift, P75: 0.2},
		{Metric: schema.RoundTripTime, P75: 450},
		{Metric: schema.Metric("speed_index"), P75: 1},
	}

	got := Insights(rows)
	require.Len(t, got, 3)

	assert.Equal(t, schema.GoodRating, got[0].Rating)
	assert.Equal(t, "Your Largest Contentful Paint (LCP) is excellent!", got[0].Message)

	assert.Equal(t, schema.NeedsImprovementRating, got[1].Rating)
	assert.Equal(t, "Your Cumulative Layout Shift (CLS) needs improvement. Consider reserving space for dynamic content.", got[1].Message)

	assert.Equal(t, schema.PoorRating, got[2].Rating)
	assert.Contains(t, got[2].Message, "Your Round Trip Time (RTT) is poor.")
	assert.Equal(t, 450.0, got[2].P75)
}

func TestAdviceCoversVocabulary(t *testing.T) {
	for _, m := range schema.AllMetrics {
		_, ok := adviceByMetric[m]
		assert.True(t, ok, m)
	}
}

func TestReport(t *testing.T) {
	rows := []schema.SummaryRow{{Metric: schema.InteractionToNextPaint, P75: 150}}
	report := Report(rows, 4, schema.PhoneFormFactor)
	assert.Equal(t, rows, report.Rows)
	assert.Equal(t, 4, report.URLCount)
	assert.Equal(t, schema.PhoneFormFactor, report.FormFactor)
	require.Len(t, report.Insights, 1)
	assert.Equal(t, schema.GoodRating, report.Insights[0].Rating)
}
