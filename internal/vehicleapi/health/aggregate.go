package health

import (
	"context"
	"time"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
)

// Status is an aggregate health status.
type Status string

const (
	StatusUp           Status = "UP"
	StatusDown         Status = "DOWN"
	StatusOutOfService Status = "OUT_OF_SERVICE"

	// StatusCircuitOpen is reported for an open breaker. It does not change the overall status.
	StatusCircuitOpen Status = "CIRCUIT_OPEN"
)

const pingTimeout = 2 * time.Second

// Component is the health of one part of the service.
type Component struct {
	Status  Status         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Report is the aggregate health of the service.
type Report struct {
	Status     Status               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Pinger is implemented by the record store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker builds aggregate reports.
type Checker struct {
	state    *State
	store    Pinger
	breakers []*resilience.CircuitBreaker
}

// NewChecker creates a Checker. store and breakers are optional.
func NewChecker(state *State, store Pinger, breakers ...*resilience.CircuitBreaker) *Checker {
	return &Checker{state: state, store: store, breakers: breakers}
}

// Aggregate returns DOWN when the service is not live or the store is unreachable,
// OUT_OF_SERVICE when it is not ready, and UP otherwise.
func (c *Checker) Aggregate(ctx context.Context) Report {
	st := c.state.Status()
	components := make(map[string]Component)

	switch {
	case !st.Live:
		components["app"] = Component{Status: StatusDown, Details: map[string]any{"error": "Application is not live"}}
	case !st.Ready:
		components["app"] = Component{Status: StatusOutOfService, Details: map[string]any{"info": "Application is not ready to accept traffic"}}
	default:
		components["app"] = Component{Status: StatusUp}
	}

	components["livenessState"] = Component{Status: pick(st.Live, StatusDown)}
	components["readinessState"] = Component{Status: pick(st.Ready, StatusOutOfService)}

	if c.store != nil {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.store.Ping(pctx)
		cancel()

		if err != nil {
			components["store"] = Component{Status: StatusDown, Details: map[string]any{"error": err.Error()}}
		} else {
			components["store"] = Component{Status: StatusUp}
		}
	}

	for _, b := range c.breakers {
		stats := b.Stats()
		s := StatusUp
		if stats.State == resilience.StateOpen {
			s = StatusCircuitOpen
		}
		components["circuitBreaker:"+stats.Name] = Component{Status: s, Details: map[string]any{
			"state":         stats.State,
			"failureRate":   stats.FailureRate,
			"bufferedCalls": stats.BufferedCalls,
			"failedCalls":   stats.FailedCalls,
		}}
	}

	overall := StatusUp
	for _, comp := range components {
		overall = worse(overall, comp.Status)
	}
	return Report{Status: overall, Components: components}
}

func pick(up bool, otherwise Status) Status {
	if up {
		return StatusUp
	}
	return otherwise
}

func severity(s Status) int {
	switch s {
	case StatusDown:
		return 2
	case StatusOutOfService:
		return 1
	default:
		return 0
	}
}

func worse(a, b Status) Status {
	if severity(b) > severity(a) {
		return b
	}
	return a
}
