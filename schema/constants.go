package schema

// Custom string types for type safety.
type (
	// Metric is a CrUX metric name from the fixed vocabulary.
	Metric string

	// FormFactor is a CrUX device class segment.
	FormFactor string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the storage backend for caching and run tracking.
	DatabaseBackend string

	// RetryPolicy selects how the delay between lookup attempts grows.
	RetryPolicy string

	// Rating classifies a p75 value against the CrUX thresholds.
	Rating string

	// OutcomeStatus is the terminal state of one URL lookup.
	OutcomeStatus string
)

// All CrUX metrics supported.
const (
	CumulativeLayoutShift       Metric = "cumulative_layout_shift"
	ExperimentalTimeToFirstByte Metric = "experimental_time_to_first_byte"
	FirstContentfulPaint        Metric = "first_contentful_paint"
	InteractionToNextPaint      Metric = "interaction_to_next_paint"
	LargestContentfulPaint      Metric = "largest_contentful_paint"
	RoundTripTime               Metric = "round_trip_time"
)

// All form factors supported. Unspecified queries all devices combined.
const (
	UnspecifiedFormFactor FormFactor = ""
	PhoneFormFactor       FormFactor = "Phone"
	DesktopFormFactor     FormFactor = "Desktop"
	TabletFormFactor      FormFactor = "Tablet"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All storage backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	NoneBackend       DatabaseBackend = "none"
)

// All retry policies supported.
const (
	LinearRetry      RetryPolicy = "linear" // default
	ExponentialRetry RetryPolicy = "exponential"
)

// All ratings supported.
const (
	GoodRating             Rating = "good"
	NeedsImprovementRating Rating = "needs-improvement"
	PoorRating             Rating = "poor"
)

// All outcome statuses supported.
const (
	SucceededStatus OutcomeStatus = "succeeded"
	FailedStatus    OutcomeStatus = "failed"
)

// AllMetrics lists the vocabulary in its fixed display order.
var AllMetrics = []Metric{
	CumulativeLayoutShift,
	ExperimentalTimeToFirstByte,
	FirstContentfulPaint,
	InteractionToNextPaint,
	LargestContentfulPaint,
	RoundTripTime,
}

// ValidMetrics lists all valid metric names.
var ValidMetrics = map[Metric]struct{}{
	CumulativeLayoutShift:       {},
	ExperimentalTimeToFirstByte: {},
	FirstContentfulPaint:        {},
	InteractionToNextPaint:      {},
	LargestContentfulPaint:      {},
	RoundTripTime:               {},
}

// ValidFormFactors lists all valid form factors, including unspecified.
var ValidFormFactors = map[FormFactor]struct{}{
	UnspecifiedFormFactor: {},
	PhoneFormFactor:       {},
	DesktopFormFactor:     {},
	TabletFormFactor:      {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidCacheBackends lists all valid response cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidRunBackends lists all valid run log backends.
var ValidRunBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidRetryPolicies lists all valid retry policies.
var ValidRetryPolicies = map[RetryPolicy]struct{}{
	LinearRetry:      {},
	ExponentialRetry: {},
}

// Threshold holds the p75 upper bounds for the good and needs-improvement ratings.
type Threshold struct {
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needs_improvement"`
	Unit             string  `json:"unit"`
}

// GetThreshold returns the rating thresholds for a metric.
func GetThreshold(m Metric) (Threshold, bool) {
	switch m {
	case FirstContentfulPaint:
		return Threshold{Good: 1800, NeedsImprovement: 3000, Unit: "ms"}, true
	case LargestContentfulPaint:
		return Threshold{Good: 2500, NeedsImprovement: 4000, Unit: "ms"}, true
	case CumulativeLayoutShift:
		return Threshold{Good: 0.1, NeedsImprovement: 0.25, Unit: ""}, true
	case ExperimentalTimeToFirstByte:
		return Threshold{Good: 800, NeedsImprovement: 1800, Unit: "ms"}, true
	case InteractionToNextPaint:
		return Threshold{Good: 200, NeedsImprovement: 500, Unit: "ms"}, true
	case RoundTripTime:
		return Threshold{Good: 100, NeedsImprovement: 300, Unit: "ms"}, true
	default:
		return Threshold{}, false
	}
}

// Abbreviation returns the short industry name for a metric.
func (m Metric) Abbreviation() string {
	switch m {
	case CumulativeLayoutShift:
		return "CLS"
	case ExperimentalTimeToFirstByte:
		return "TTFB"
	case FirstContentfulPaint:
		return "FCP"
	case InteractionToNextPaint:
		return "INP"
	case LargestContentfulPaint:
		return "LCP"
	case RoundTripTime:
		return "RTT"
	default:
		return string(m)
	}
}

// WireValue returns the enum value the CrUX API expects for a form factor.
func (ff FormFactor) WireValue() string {
	switch ff {
	case PhoneFormFactor:
		return "PHONE"
	case DesktopFormFactor:
		return "DESKTOP"
	case TabletFormFactor:
		return "TABLET"
	default:
		return ""
	}
}
