package chaos

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// Layer is an architectural layer faults can be injected into.
type Layer string

const (
	LayerController     Layer = "controller"
	LayerRestController Layer = "restController"
	LayerService        Layer = "service"
	LayerRepository     Layer = "repository"
	LayerComponent      Layer = "component"
)

func (l Layer) watchedBy(w Watchers) bool {
	switch l {
	case LayerController:
		return w.Controller
	case LayerRestController:
		return w.RestController
	case LayerService:
		return w.Service
	case LayerRepository:
		return w.Repository
	case LayerComponent:
		return w.Component
	default:
		return false
	}
}

// Assaulter injects the configured faults into calls crossing a watched layer.
// With level N, every N-th call per layer is attacked; levels below 1 attack every call.
// An attack first sleeps for a random latency in the configured range, then fails the
// call with a core.FaultError. The memory assault is only configured, never run.
type Assaulter struct {
	ctrl     *Controller
	counters map[Layer]*atomic.Uint64
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAssaulter creates an Assaulter reading its settings from ctrl on every call.
func NewAssaulter(ctrl *Controller) *Assaulter {
	counters := make(map[Layer]*atomic.Uint64)
	for _, l := range []Layer{LayerController, LayerRestController, LayerService, LayerRepository, LayerComponent} {
		counters[l] = &atomic.Uint64{}
	}
	return &Assaulter{ctrl: ctrl, counters: counters, sleep: sleepContext}
}

// Attack runs the assaults for one call crossing layer.
// It returns nil when the call is spared, the context error when cancelled while
// delayed, or a core.FaultError when the exception assault is active.
func (a *Assaulter) Attack(ctx context.Context, layer Layer) error {
	p := a.ctrl.plan(layer)
	if !p.enabled || !p.watched {
		return nil
	}

	counter, ok := a.counters[layer]
	if !ok {
		return nil
	}

	level := uint64(1)
	if p.level > 1 {
		level = uint64(p.level)
	}
	if counter.Add(1)%level != 0 {
		return nil
	}

	if p.latencyActive {
		d := latency(p.latencyStart, p.latencyEnd)
		log.Debug("Injecting latency", "layer", layer, "delay", d)
		if err := a.sleep(ctx, d); err != nil {
			return err
		}
	}

	if p.exceptionsActive {
		log.Debug("Injecting fault", "layer", layer, "type", p.exception.kind)
		return &core.FaultError{Kind: p.exception.kind, Message: p.exception.message, Layer: string(layer)}
	}
	return nil
}

// latency picks a duration in [from, to] milliseconds. A reversed range is swapped.
func latency(from, to int) time.Duration {
	if to < from {
		from, to = to, from
	}
	from, to = max(from, 0), max(to, 0)

	ms := from
	if to > from {
		ms += rand.IntN(to - from + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
