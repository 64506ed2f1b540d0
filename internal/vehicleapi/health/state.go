// Package health keeps the liveness and readiness flags of the service and announces their changes.
package health

import (
	"context"
	"sync"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// State holds the two health flags. A new State is live and not ready.
type State struct {
	// seq serialises setters so transitions are published in call order.
	seq sync.Mutex

	mu    sync.RWMutex
	live  bool
	ready bool

	notifier core.AvailabilityNotifier
	clock    clock.PassiveClock
}

// Option configures a State.
type Option func(*State)

// WithClock sets the clock used to stamp transitions.
func WithClock(c clock.PassiveClock) Option {
	return func(s *State) { s.clock = c }
}

// NewState creates the health state. A nil notifier drops transitions.
func NewState(notifier core.AvailabilityNotifier, opts ...Option) *State {
	s := &State{
		live:     true,
		notifier: notifier,
		clock:    clock.RealClock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetLive stores the liveness flag and publishes CORRECT or BROKEN.
func (s *State) SetLive(ctx context.Context, live bool) {
	s.set(ctx, model.Liveness, live)
}

// SetReady stores the readiness flag and publishes ACCEPTING_TRAFFIC or REFUSING_TRAFFIC.
func (s *State) SetReady(ctx context.Context, ready bool) {
	s.set(ctx, model.Readiness, ready)
}

func (s *State) set(ctx context.Context, kind model.AvailabilityKind, up bool) {
	s.seq.Lock()
	defer s.seq.Unlock()

	s.mu.Lock()
	if kind == model.Liveness {
		s.live = up
	} else {
		s.ready = up
	}
	s.mu.Unlock()

	t := model.Transition{Kind: kind, State: model.StateFor(kind, up), At: s.clock.Now()}
	log.Info("Availability changed", "kind", t.Kind, "state", t.State)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, t); err != nil {
		log.Error(err, "Failed to announce availability change", "kind", t.Kind, "state", t.State)
	}
}

// Status returns both flags read together.
func (s *State) Status() model.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.HealthStatus{Live: s.live, Ready: s.ready}
}

// Live reports the liveness flag.
func (s *State) Live() bool { return s.Status().Live }

// Ready reports the readiness flag.
func (s *State) Ready() bool { return s.Status().Ready }

// Initialize marks the service ready and live once startup is complete.
func Initialize(ctx context.Context, s *State) {
	s.SetReady(ctx, true)
	s.SetLive(ctx, true)
}
