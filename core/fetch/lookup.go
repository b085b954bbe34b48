package fetch

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/huangsam/cruxreport/schema"
)

// lookupState is the position of one URL in its retry state machine.
type lookupState int

const (
	statePending lookupState = iota
	stateAttempting
	stateRetrying
	stateSucceeded
	stateFailed
	stateCanceled
)

func (s lookupState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateAttempting:
		return "attempting"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	case stateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// lookupTask carries the state of one URL across attempts.
type lookupTask struct {
	query    Query
	state    lookupState
	attempts int
	data     schema.MetricSet
	lastErr  error
	backOff  backoff.BackOff
}

// lookup drives one URL from pending to a terminal state.
func (f *Fetcher) lookup(ctx context.Context, q Query) schema.URLResult {
	task := &lookupTask{
		query:   q,
		state:   statePending,
		backOff: newBackOff(f.cfg.RetryPolicy, f.cfg.RetryDelay),
	}
	for {
		switch task.state {
		case statePending:
			if ctx.Err() != nil {
				task.state = stateCanceled
				continue
			}
			task.state = stateAttempting

		case stateAttempting:
			task.attempts++
			data, err := f.attempt(ctx, q)
			switch {
			case err == nil:
				task.data = data
				task.state = stateSucceeded
			case ctx.Err() != nil:
				task.lastErr = err
				task.state = stateCanceled
			case task.attempts >= f.cfg.MaxAttempts:
				task.lastErr = err
				task.state = stateFailed
			default:
				task.lastErr = err
				task.state = stateRetrying
			}

		case stateRetrying:
			wait := task.backOff.NextBackOff()
			if wait == backoff.Stop {
				task.state = stateFailed
				continue
			}
			f.log.Debug("retrying lookup",
				"url", q.URL,
				"attempt", task.attempts+1,
				"wait", wait,
				"error", task.lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				task.state = stateCanceled
				continue
			}
			task.state = stateAttempting

		case stateSucceeded:
			return schema.NewSuccess(q.URL, task.data, task.attempts)

		case stateFailed:
			reason := reasonOf(task.lastErr)
			f.logFailure(task, reason)
			return schema.NewFailure(q.URL, task.lastErr.Error(), reason, task.attempts)

		case stateCanceled:
			f.logFailure(task, ReasonCanceled)
			return schema.NewFailure(q.URL, canceledMessage(ctx), ReasonCanceled, task.attempts)
		}
	}
}

// attempt runs a single lookup under the per-attempt timeout.
func (f *Fetcher) attempt(ctx context.Context, q Query) (schema.MetricSet, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
	defer cancel()

	data, err := f.client.Query(attemptCtx, q)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, &AttemptError{Reason: ReasonTimeout, Err: err}
	}
	return data, err
}

func (f *Fetcher) logFailure(task *lookupTask, reason string) {
	errText := ""
	if task.lastErr != nil {
		errText = task.lastErr.Error()
	}
	f.log.Error("lookup failed",
		"url", task.query.URL,
		"attempts", task.attempts,
		"reason", reason,
		"error", errText)
}
