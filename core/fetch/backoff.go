package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/huangsam/cruxreport/schema"
)

// linearBackOff waits n × step before attempt n+1.
type linearBackOff struct {
	step time.Duration
	n    int
}

var _ backoff.BackOff = &linearBackOff{} // Compile-time check

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

// newBackOff returns a fresh retry schedule for one URL.
func newBackOff(policy schema.RetryPolicy, step time.Duration) backoff.BackOff {
	if policy == schema.ExponentialRetry {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = step
		b.Multiplier = 2
		b.RandomizationFactor = 0.2
		b.MaxInterval = 16 * step
		b.Reset()
		return b
	}
	return &linearBackOff{step: step}
}

// maxRetryWait is the longest total wait the schedule of newBackOff can produce over n retries.
func maxRetryWait(policy schema.RetryPolicy, step time.Duration, n int) time.Duration {
	var total time.Duration
	interval := step
	for i := 1; i <= n; i++ {
		if policy == schema.ExponentialRetry {
			total += min(interval, 16*step) * 12 / 10
			interval *= 2
			continue
		}
		total += time.Duration(i) * step
	}
	return total
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
