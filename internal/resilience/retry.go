package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/typeassist/pkg/backend"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryConfig controls [Retry].
type RetryConfig struct {
	// MaxAttempts is the total number of calls, first one included.
	// Default: 3.
	MaxAttempts int

	// Delay is the backoff unit. Attempt n (1-based) is followed by a pause of
	// n*Delay. Default: 1s.
	Delay time.Duration

	// CallTimeout bounds each individual call. Zero leaves calls bounded
	// only by the parent context.
	CallTimeout time.Duration

	// Retryable decides whether an error is worth another attempt. Default:
	// [DefaultRetryable].
	Retryable func(error) bool

	// Sleep replaces the real timer. Default: [Sleep].
	Sleep SleepFunc

	// OnRetry, if set, is called before each backoff pause.
	OnRetry func(attempt int, err error)
}

// DefaultRetryable retries transient backend errors and open circuit
// breakers.
func DefaultRetryable(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || backend.IsTransient(err)
}

// Sleep is the production [SleepFunc].
func Sleep(ctx context.Context, d time.Duration) error {
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

func (c *RetryConfig) withDefaults() RetryConfig {
	out := *c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 3
	}
	if out.Delay <= 0 {
		out.Delay = time.Second
	}
	if out.Retryable == nil {
		out.Retryable = DefaultRetryable
	}
	if out.Sleep == nil {
		out.Sleep = Sleep
	}
	return out
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Each call gets its own context bounded by CallTimeout; a
// call that overruns it fails with context.DeadlineExceeded, which is
// retryable. When the parent ctx ends, Retry stops and returns ctx.Err().
func Retry[R any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (R, error)) (R, error) {
	c := cfg.withDefaults()
	var zero R

	for attempt := 1; ; attempt++ {
		result, err := callOnce(ctx, c.CallTimeout, fn)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !c.Retryable(err) {
			return zero, err
		}
		if attempt >= c.MaxAttempts {
			return zero, fmt.Errorf("resilience: giving up after %d attempts: %w", attempt, err)
		}
		if c.OnRetry != nil {
			c.OnRetry(attempt, err)
		}
		if serr := c.Sleep(ctx, time.Duration(attempt)*c.Delay); serr != nil {
			return zero, serr
		}
	}
}

func callOnce[R any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (R, error)) (R, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}
