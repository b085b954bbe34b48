// Package schema has models, enums and shared constants for all parts of cruxreport.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Histogram bin positions. The CrUX API always orders bins good, needs-improvement, poor,
// and aggregation depends on that order rather than on bin boundaries.
const (
	BinGood             = 0
	BinNeedsImprovement = 1
	BinPoor             = 2

	// MinHistogramBins is the number of bins a record needs to be usable.
	MinHistogramBins = 3
)

// Number is a CrUX numeric field. The API encodes some values (CLS percentiles, bin bounds)
// as JSON strings and others as JSON numbers, so both are accepted.
type Number struct {
	text   string
	quoted bool
}

// NewNumber returns a Number holding the given float.
func NewNumber(v float64) Number {
	return Number{text: strconv.FormatFloat(v, 'f', -1, 64)}
}

// NewNumberString returns a Number that encodes as a JSON string.
func NewNumberString(s string) Number {
	return Number{text: s, quoted: true}
}

// IsEmpty reports whether the value was absent, null or an empty string.
func (n Number) IsEmpty() bool {
	return strings.TrimSpace(n.text) == ""
}

// Float64 parses the value.
func (n Number) Float64() (float64, error) {
	if n.IsEmpty() {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(n.text), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", n.text, err)
	}
	return v, nil
}

// String returns the raw text of the value.
func (n Number) String() string {
	return n.text
}

// MarshalJSON keeps the original string-or-number form.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsEmpty() {
		return []byte("null"), nil
	}
	if n.quoted {
		return json.Marshal(n.text)
	}
	return []byte(n.text), nil
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = Number{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number{text: s, quoted: true}
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("number must be a JSON number or string: %w", err)
		}
		*n = Number{text: num.String()}
		return nil
	}
}

// HistogramBin is one density bucket of a metric distribution.
type HistogramBin struct {
	Start   Number  `json:"start"`
	End     *Number `json:"end,omitempty"`
	Density float64 `json:"density"`
}

// Percentiles holds the percentile values reported for a metric.
type Percentiles struct {
	P75 Number `json:"p75"`
}

// MetricRecord is the CrUX record of one metric for one URL.
type MetricRecord struct {
	Histogram   []HistogramBin `json:"histogram"`
	Percentiles Percentiles    `json:"percentiles"`
}

// MetricSet maps metric names to their records as returned by the CrUX API.
type MetricSet map[string]MetricRecord

// URLResult is the outcome of looking up one URL: either Data (success) or Error (failure).
type URLResult struct {
	URL      string    `json:"url"`
	Data     MetricSet `json:"data"`
	Error    string    `json:"error"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
}

// NewSuccess builds a successful URLResult.
func NewSuccess(url string, data MetricSet, attempts int) URLResult {
	if data == nil {
		data = MetricSet{}
	}
	return URLResult{URL: url, Data: data, Attempts: attempts}
}

// NewFailure builds a failed URLResult. An empty message is replaced so that
// a failure is always distinguishable from a success.
func NewFailure(url, message, reason string, attempts int) URLResult {
	if message == "" {
		message = "Failed to fetch data"
	}
	return URLResult{URL: url, Error: message, Reason: reason, Attempts: attempts}
}

// Failed reports whether the lookup failed.
func (r URLResult) Failed() bool {
	return r.Error != ""
}

// MarshalJSON writes {url, data} for a success and {url, error, reason, attempts} for a failure.
func (r URLResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			URL      string `json:"url"`
			Error    string `json:"error"`
			Reason   string `json:"reason,omitempty"`
			Attempts int    `json:"attempts,omitempty"`
		}{r.URL, r.Error, r.Reason, r.Attempts})
	}
	data := r.Data
	if data == nil {
		data = MetricSet{}
	}
	return json.Marshal(struct {
		URL  string    `json:"url"`
		Data MetricSet `json:"data"`
	}{r.URL, data})
}

// SummaryRow is the cross-URL average of one metric.
type SummaryRow struct {
	Metric           Metric  `json:"metric"`
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needs_improvement"`
	Poor             float64 `json:"poor"`
	P75              float64 `json:"p75"`
}

// CruxRequest is a validated lookup request.
type CruxRequest struct {
	URLs       []string   `json:"urls"`
	Metrics    []Metric   `json:"metrics,omitempty"`
	FormFactor FormFactor `json:"formFactor,omitempty"`
}

// Insight is a rated, human-readable note about one summary row.
type Insight struct {
	Metric  Metric  `json:"metric"`
	Rating  Rating  `json:"rating"`
	P75     float64 `json:"p75"`
	Message string  `json:"message"`
}

// SummaryReport is the full output of a summary run.
type SummaryReport struct {
	Rows       []SummaryRow `json:"rows"`
	Insights   []Insight    `json:"insights"`
	URLCount   int          `json:"url_count"`
	FormFactor FormFactor   `json:"form_factor,omitempty"`
}
