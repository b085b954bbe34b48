package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors returned before any lookup starts.
var (
	ErrConfig       = errors.New("invalid fetcher configuration")
	ErrInvalidInput = errors.New("invalid fetch input")
)

// Failure reasons recorded on failed URL results.
const (
	ReasonTimeout  = "timeout"
	ReasonNetwork  = "network"
	ReasonStatus   = "status"
	ReasonDecode   = "decode"
	ReasonCanceled = "canceled"
)

// maxErrorBody bounds how much of a non-2xx body is kept on a StatusError.
const maxErrorBody = 512

// StatusError is returned when the CrUX API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("crux api returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("crux api returned HTTP %d: %s", e.Code, e.Body)
}

// AttemptError tags a failed attempt with the reason it failed.
type AttemptError struct {
	Reason string
	Err    error
}

func (e *AttemptError) Error() string {
	return e.Reason + ": " + e.Err.Error()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// reasonOf classifies an attempt error into one of the failure reasons.
func reasonOf(err error) string {
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return attemptErr.Reason
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ReasonStatus
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}
