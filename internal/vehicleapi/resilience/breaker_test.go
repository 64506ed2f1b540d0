package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

var errStore = errors.New("store timeout")

func newTestBreaker(t *testing.T, mutate ...func(*BreakerConfig)) (*CircuitBreaker, *testingclock.FakeClock) {
	t.Helper()
	clk := testingclock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultBreakerConfig("vehicleService")
	cfg.Clock = clk
	for _, m := range mutate {
		m(&cfg)
	}
	return NewCircuitBreaker(cfg), clk
}

func fail() error    { return errStore }
func succeed() error { return nil }

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(t)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "vehicleService", b.Name())
	_, err := b.Allow()
	assert.NoError(t, err)
}

func TestBreakerNeedsMinimumCalls(t *testing.T) {
	b, _ := newTestBreaker(t)

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, b.Do(fail), errStore)
	}
	assert.Equal(t, StateClosed, b.State(), "four failures are below the minimum of five calls")

	assert.ErrorIs(t, b.Do(fail), errStore)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)

	for _, fn := range []func() error{succeed, fail, succeed, fail, succeed, succeed} {
		_ = b.Do(fn)
	}

	stats := b.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 6, stats.BufferedCalls)
	assert.Equal(t, 2, stats.FailedCalls)
	assert.InDelta(t, 33.3, stats.FailureRate, 0.1)
}

func TestBreakerSlidingWindowForgetsOldOutcomes(t *testing.T) {
	b, _ := newTestBreaker(t, func(c *BreakerConfig) {
		c.WindowSize = 4
		c.MinimumCalls = 4
	})

	for _, fn := range []func() error{fail, succeed, succeed, succeed} {
		_ = b.Do(fn)
	}
	assert.Equal(t, StateClosed, b.State())

	// The first failure slides out of the window, so one more failure is still only 25%.
	_ = b.Do(fail)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.Stats().FailedCalls)

	_ = b.Do(fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerOpenRejectsUntilCooldown(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	require.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clk.Step(9 * time.Second)
	_, err = b.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)

	clk.Step(time.Second)
	_, err = b.Allow()
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerHalfOpenClosesAfterTrials(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	clk.Step(10 * time.Second)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Do(succeed))
	}

	stats := b.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Zero(t, stats.BufferedCalls, "closing starts a fresh window")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	clk.Step(10 * time.Second)

	require.NoError(t, b.Do(succeed))
	_ = b.Do(fail)
	assert.Equal(t, StateOpen, b.State())

	// The cooldown starts over.
	clk.Step(5 * time.Second)
	_, err := b.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerHalfOpenLimitsTrialCalls(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	clk.Step(10 * time.Second)

	for i := 0; i < 3; i++ {
		_, err := b.Allow()
		require.NoError(t, err)
	}
	_, err := b.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	errMissing := errors.New("missing")
	b, _ := newTestBreaker(t, func(c *BreakerConfig) {
		c.IsFailure = func(err error) bool { return err != nil && !errors.Is(err, errMissing) }
	})

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, b.Do(func() error { return errMissing }), errMissing)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Stats().FailedCalls)
}

func TestBreakerReportsTransitions(t *testing.T) {
	var got []string
	b, clk := newTestBreaker(t, func(c *BreakerConfig) {
		c.HalfOpenPermitted = 1
		c.OnStateChange = func(name string, from, to State) {
			got = append(got, string(from)+"->"+string(to))
		}
	})

	for i := 0; i < 5; i++ {
		_ = b.Do(fail)
	}
	clk.Step(10 * time.Second)
	require.NoError(t, b.Do(succeed))

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, got)
}

func TestBreakerDropsOutcomesFromEarlierState(t *testing.T) {
	b, clk := newTestBreaker(t, func(c *BreakerConfig) {
		c.WindowSize = 1
		c.MinimumCalls = 1
		c.HalfOpenPermitted = 1
	})

	slow, err := b.Allow()
	require.NoError(t, err)

	_ = b.Do(fail)
	require.Equal(t, StateOpen, b.State())

	clk.Step(10 * time.Second)
	trial, err := b.Allow()
	require.NoError(t, err)
	require.Equal(t, StateHalfOpen, b.State())

	// The call admitted while closed finishes late and must not count as the trial.
	b.Record(slow, false)
	assert.Equal(t, StateHalfOpen, b.State())

	b.Record(trial, true)
	assert.Equal(t, StateOpen, b.State())

	// A result from before the trip is not counted in the next closed window either.
	clk.Step(10 * time.Second)
	trial, err = b.Allow()
	require.NoError(t, err)
	b.Record(trial, false)
	require.Equal(t, StateClosed, b.State())

	b.Record(slow, true)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Stats().BufferedCalls)
}

func TestBreakerConcurrentUse(t *testing.T) {
	b, _ := newTestBreaker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = b.Do(fail)
			} else {
				_ = b.Do(succeed)
			}
			_ = b.Stats()
		}(i)
	}
	wg.Wait()

	stats := b.Stats()
	assert.LessOrEqual(t, stats.BufferedCalls, 10)
}

func TestStateGauge(t *testing.T) {
	assert.Equal(t, 0.0, StateClosed.Gauge())
	assert.Equal(t, 1.0, StateOpen.Gauge())
	assert.Equal(t, 2.0, StateHalfOpen.Gauge())
}
