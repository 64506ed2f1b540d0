package resilience

import (
	"context"
	"time"
)

// Outcome labels how a guarded call ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Recorder receives one observation per guarded call. outcome is one of the Outcome values.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

// Policy is a circuit breaker and a retrier shared by a set of operations.
type Policy struct {
	breaker  *CircuitBreaker
	retrier  *Retrier
	recorder Recorder
}

// NewPolicy composes a policy. A nil recorder discards observations.
func NewPolicy(breaker *CircuitBreaker, retrier *Retrier, recorder Recorder) *Policy {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if retrier == nil {
		retrier = NewRetrier(RetryConfig{MaxAttempts: 1})
	}
	return &Policy{breaker: breaker, retrier: retrier, recorder: recorder}
}

// Breaker returns the circuit breaker of the policy.
func (p *Policy) Breaker() *CircuitBreaker {
	return p.breaker
}

// Fallback turns the final error of a guarded call into a result. Returning a non-nil
// error means the call failed.
type Fallback[T any] func(ctx context.Context, err error) (T, error)

// Execute runs fn through the retrier, each attempt passing the circuit breaker.
// When every attempt failed or the circuit rejected the call, fallback decides the result.
// One observation is recorded for the operation before returning.
func Execute[T any](ctx context.Context, p *Policy, operation string, fn func(ctx context.Context) (T, error), fallback Fallback[T]) (T, error) {
	start := time.Now()

	var result T
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		return p.breaker.Do(func() error {
			v, err := fn(ctx)
			if err == nil {
				result = v
			}
			return err
		})
	})

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		if fallback != nil {
			result, err = fallback(ctx, err)
			if err == nil {
				outcome = OutcomeFallback
			}
		}
	}

	p.recorder.ObserveOperation(operation, string(outcome), time.Since(start))
	return result, err
}
