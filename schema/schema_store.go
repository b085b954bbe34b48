package schema

import "time"

// URLOutcome is the stored fetch outcome of one URL within a run. It never carries metric values.
type URLOutcome struct {
	URL      string
	Status   OutcomeStatus
	Attempts int
	Reason   string
	Error    string
}

// OutcomeFromResult converts a fetch result into its stored outcome.
func OutcomeFromResult(r URLResult) URLOutcome {
	if r.Failed() {
		return URLOutcome{URL: r.URL, Status: FailedStatus, Attempts: r.Attempts, Reason: r.Reason, Error: r.Error}
	}
	return URLOutcome{URL: r.URL, Status: SucceededStatus, Attempts: r.Attempts}
}

// RunRecord represents a row from the crux_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalURLs     int32
	SuccessCount  int32
	FailureCount  int32
	ConfigParams  *string
}

// URLOutcomeRecord represents a row from the crux_url_outcomes table.
type URLOutcomeRecord struct {
	RunID        int64
	URL          string
	Status       string
	Attempts     int32
	ErrorReason  *string
	ErrorMessage *string
}
