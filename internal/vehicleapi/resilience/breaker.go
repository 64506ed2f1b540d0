package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	fsmutil "github.com/autopeer-io/vehicle-api/internal/pkg/util/fsm"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// ErrCircuitOpen is returned without calling the protected function while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is a circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Gauge returns the numeric value exported for the state: 0 closed, 1 open, 2 half-open.
func (s State) Gauge() float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}

const (
	eventTrip  = "trip"
	eventProbe = "probe"
	eventReset = "reset"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	Name string

	// WindowSize is the number of most recent outcomes considered while closed.
	WindowSize int

	// MinimumCalls is the number of outcomes required before the failure rate is evaluated.
	MinimumCalls int

	// FailureRateThreshold is the failure percentage (0, 100] that opens the circuit.
	FailureRateThreshold float64

	// OpenDuration is how long calls are rejected before trial calls are admitted.
	OpenDuration time.Duration

	// HalfOpenPermitted is the number of trial calls. All must succeed to close the circuit.
	HalfOpenPermitted int

	// IsFailure classifies a returned error. Nil means every non-nil error is a failure.
	IsFailure func(error) bool

	// OnStateChange is called synchronously after every transition.
	OnStateChange func(name string, from, to State)

	Clock clock.PassiveClock
}

// DefaultBreakerConfig returns the configuration used when none is given.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                 name,
		WindowSize:           10,
		MinimumCalls:         5,
		FailureRateThreshold: 50,
		OpenDuration:         10 * time.Second,
		HalfOpenPermitted:    3,
	}
}

func (c *BreakerConfig) setDefaults() {
	d := DefaultBreakerConfig(c.Name)
	if c.WindowSize < 1 {
		c.WindowSize = d.WindowSize
	}
	if c.MinimumCalls < 1 {
		c.MinimumCalls = d.MinimumCalls
	}
	if c.MinimumCalls > c.WindowSize {
		c.MinimumCalls = c.WindowSize
	}
	if c.FailureRateThreshold <= 0 || c.FailureRateThreshold > 100 {
		c.FailureRateThreshold = d.FailureRateThreshold
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = d.OpenDuration
	}
	if c.HalfOpenPermitted < 1 {
		c.HalfOpenPermitted = d.HalfOpenPermitted
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
}

// BreakerStats is a point-in-time view of a CircuitBreaker.
type BreakerStats struct {
	Name          string  `json:"name"`
	State         State   `json:"state"`
	BufferedCalls int     `json:"bufferedCalls"`
	FailedCalls   int     `json:"failedCalls"`
	FailureRate   float64 `json:"failureRate"`
}

// CircuitBreaker guards a resource shared by many callers. It is safe for concurrent use.
//
// Closed: outcomes go into a count-based sliding window; once MinimumCalls outcomes are
// buffered and the failure rate reaches the threshold, the circuit opens.
// Open: calls fail fast with ErrCircuitOpen until OpenDuration has elapsed.
// Half-open: up to HalfOpenPermitted trial calls run; any failure reopens the circuit,
// all of them succeeding closes it.
type CircuitBreaker struct {
	cfg BreakerConfig
	log log.Logger

	mu      sync.Mutex
	machine *fsm.FSM

	window   []bool // true = failure
	next     int
	buffered int
	failures int

	openedAt          time.Time
	halfOpenAdmitted  int
	halfOpenSucceeded int

	// generation changes on every transition. Outcomes admitted under another generation are dropped.
	generation uint64
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	cfg.setDefaults()

	b := &CircuitBreaker{
		cfg:    cfg,
		log:    log.WithName("circuit-breaker").WithValues("name", cfg.Name),
		window: make([]bool, cfg.WindowSize),
	}

	events := fsm.Events{
		{Name: eventTrip, Src: []string{string(StateClosed), string(StateHalfOpen)}, Dst: string(StateOpen)},
		{Name: eventProbe, Src: []string{string(StateOpen)}, Dst: string(StateHalfOpen)},
		{Name: eventReset, Src: []string{string(StateHalfOpen)}, Dst: string(StateClosed)},
	}

	callbacks := fsm.Callbacks{
		"enter_" + string(StateOpen):     fsmutil.WrapEvent(b.enterOpen),
		"enter_" + string(StateHalfOpen): fsmutil.WrapEvent(b.enterHalfOpen),
		"enter_" + string(StateClosed):   fsmutil.WrapEvent(b.enterClosed),
		"enter_state":                    fsmutil.WrapEvent(b.announce),
	}

	b.machine = fsm.NewFSM(string(StateClosed), events, callbacks)
	return b
}

// Name returns the resource name the breaker guards.
func (b *CircuitBreaker) Name() string {
	return b.cfg.Name
}

// State returns the current state without side effects.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State(b.machine.Current())
}

// Stats returns the current window counters.
func (b *CircuitBreaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		Name:          b.cfg.Name,
		State:         State(b.machine.Current()),
		BufferedCalls: b.buffered,
		FailedCalls:   b.failures,
		FailureRate:   b.failureRate(),
	}
}

// Do runs fn if the breaker admits the call and records its outcome.
func (b *CircuitBreaker) Do(fn func() error) error {
	generation, err := b.Allow()
	if err != nil {
		return err
	}

	err = fn()
	b.Record(generation, b.cfg.IsFailure(err))
	return err
}

// Allow reports whether a call may proceed. An admitted call must be followed by Record
// with the returned generation.
func (b *CircuitBreaker) Allow() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch State(b.machine.Current()) {
	case StateClosed:
		return b.generation, nil

	case StateOpen:
		if b.cfg.Clock.Since(b.openedAt) < b.cfg.OpenDuration {
			return 0, fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
		}
		b.fire(eventProbe)
	}

	if b.halfOpenAdmitted >= b.cfg.HalfOpenPermitted {
		return 0, fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
	}
	b.halfOpenAdmitted++
	return b.generation, nil
}

// Record stores the outcome of a call admitted under generation.
// A call that returns after the breaker changed state is not counted.
func (b *CircuitBreaker) Record(generation uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return
	}

	switch State(b.machine.Current()) {
	case StateClosed:
		b.push(failed)
		if b.buffered >= b.cfg.MinimumCalls && b.failureRate() >= b.cfg.FailureRateThreshold {
			b.fire(eventTrip)
		}

	case StateHalfOpen:
		if failed {
			b.fire(eventTrip)
			return
		}
		b.halfOpenSucceeded++
		if b.halfOpenSucceeded >= b.cfg.HalfOpenPermitted {
			b.fire(eventReset)
		}
	}
}

func (b *CircuitBreaker) push(failed bool) {
	if b.buffered == len(b.window) {
		if b.window[b.next] {
			b.failures--
		}
	} else {
		b.buffered++
	}

	b.window[b.next] = failed
	if failed {
		b.failures++
	}
	b.next = (b.next + 1) % len(b.window)
}

func (b *CircuitBreaker) failureRate() float64 {
	if b.buffered == 0 {
		return 0
	}
	return float64(b.failures) * 100 / float64(b.buffered)
}

func (b *CircuitBreaker) clearWindow() {
	for i := range b.window {
		b.window[i] = false
	}
	b.next, b.buffered, b.failures = 0, 0, 0
}

// fire is called with b.mu held.
func (b *CircuitBreaker) fire(event string) {
	if err := fsmutil.Fire(context.Background(), b.machine, event); err != nil {
		b.log.Error(err, "Invalid circuit breaker transition", "event", event, "state", b.machine.Current())
	}
}

func (b *CircuitBreaker) enterOpen(_ context.Context, _ *fsm.Event) error {
	b.openedAt = b.cfg.Clock.Now()
	return nil
}

func (b *CircuitBreaker) enterHalfOpen(_ context.Context, _ *fsm.Event) error {
	b.halfOpenAdmitted = 0
	b.halfOpenSucceeded = 0
	return nil
}

func (b *CircuitBreaker) enterClosed(_ context.Context, _ *fsm.Event) error {
	b.clearWindow()
	return nil
}

func (b *CircuitBreaker) announce(_ context.Context, e *fsm.Event) error {
	from, to := State(e.Src), State(e.Dst)
	b.generation++

	if to == StateOpen {
		b.log.Warn("Circuit breaker opened", "from", from, "failureRate", b.failureRate(), "openFor", b.cfg.OpenDuration)
	} else {
		b.log.Info("Circuit breaker state changed", "from", from, "to", to)
	}

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
	return nil
}
