package resilience

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// RetryConfig configures a Retrier.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, the first one included.
	MaxAttempts int

	InitialBackoff time.Duration
	Factor         float64
	Jitter         float64

	// Retryable decides whether a failed attempt is tried again. Nil retries every error
	// except ErrCircuitOpen and context errors.
	Retryable func(error) bool
}

// DefaultRetryConfig returns three attempts starting at 100ms and doubling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		Factor:         2.0,
		Jitter:         0.1,
	}
}

// Retrier re-runs a failing call with exponential backoff.
type Retrier struct {
	cfg RetryConfig
}

func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor < 1 {
		cfg.Factor = 1
	}
	return &Retrier{cfg: cfg}
}

// Do calls fn until it succeeds, returns a non-retryable error, or MaxAttempts is reached.
// The error of the last attempt is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := wait.Backoff{
		Duration: r.cfg.InitialBackoff,
		Factor:   r.cfg.Factor,
		Jitter:   r.cfg.Jitter,
		Steps:    r.cfg.MaxAttempts,
	}

	var lastErr error
	attempt := 0

	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		attempt++
		lastErr = fn(ctx)
		if lastErr == nil {
			return true, nil
		}
		if !r.retryable(lastErr) {
			return false, lastErr
		}
		if attempt < r.cfg.MaxAttempts {
			log.Debug("Retrying failed call", "attempt", attempt, "maxAttempts", r.cfg.MaxAttempts, "error", lastErr)
		}
		return false, nil
	})

	switch {
	case err == nil:
		return nil
	case lastErr != nil:
		return lastErr
	default:
		// Cancelled before the first attempt ran.
		return err
	}
}

func (r *Retrier) retryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if r.cfg.Retryable != nil {
		return r.cfg.Retryable(err)
	}
	return true
}
