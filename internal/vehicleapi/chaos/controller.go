package chaos

import (
	"sync"

	"github.com/autopeer-io/vehicle-api/pkg/log"
	"github.com/autopeer-io/vehicle-api/pkg/options"
)

// Controller owns the process-wide fault injection configuration.
// Every operation reads or writes it under one lock.
type Controller struct {
	mu sync.RWMutex
	s  settings
}

// NewController creates a controller initialised from opts; nil means the built-in defaults.
func NewController(opts *options.ChaosOptions) *Controller {
	return &Controller{s: settingsFromOptions(opts)}
}

// Status returns the enabled flag, the assault settings and the watched layers.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{Enabled: c.s.enabled, Assaults: c.s.assaults(), Watchers: c.s.watchers}
}

// Enable turns fault injection on.
func (c *Controller) Enable() Status {
	c.setEnabled(true)
	return c.Status()
}

// Disable turns fault injection off.
func (c *Controller) Disable() Status {
	c.setEnabled(false)
	return c.Status()
}

func (c *Controller) setEnabled(on bool) {
	c.mu.Lock()
	c.s.enabled = on
	c.mu.Unlock()

	log.Info("Fault injection toggled", "enabled", on)
}

// Assaults returns the assault settings.
func (c *Controller) Assaults() Assaults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s.assaults()
}

// UpdateAssaults applies every field present in u.
// When the exception type or message is present a new exception setting replaces the old one:
// the type falls back to the stored type, and an empty message keeps the stored message.
func (c *Controller) UpdateAssaults(u AssaultsUpdate) Assaults {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.s
	if u.Level != nil {
		s.level = *u.Level
	}
	if u.LatencyActive != nil {
		s.latencyActive = *u.LatencyActive
	}
	if u.LatencyRangeStart != nil {
		s.latencyStart = *u.LatencyRangeStart
	}
	if u.LatencyRangeEnd != nil {
		s.latencyEnd = *u.LatencyRangeEnd
	}
	if u.ExceptionsActive != nil {
		s.exceptionsActive = *u.ExceptionsActive
	}
	if u.ExceptionType != nil || u.ExceptionMessage != nil {
		kind := ""
		if u.ExceptionType != nil {
			kind = *u.ExceptionType
		} else if s.exception != nil {
			kind = s.exception.kind
		}

		message := ""
		if u.ExceptionMessage != nil {
			message = *u.ExceptionMessage
		}
		s.exception = withCarryOver(kind, message, s.exception)
	}
	if u.MemoryActive != nil {
		s.memoryActive = *u.MemoryActive
	}
	if u.MemoryMillisecondsWaitNextIncrease != nil {
		s.memoryWait = *u.MemoryMillisecondsWaitNextIncrease
	}

	log.Debug("Assaults updated", "assaults", s.assaults())
	return s.assaults()
}

// ConfigureLatency sets the latency assault. Use DefaultLatencyFrom and DefaultLatencyTo for the usual range.
func (c *Controller) ConfigureLatency(active bool, fromMs, toMs int) Assaults {
	return c.UpdateAssaults(AssaultsUpdate{
		LatencyActive:     &active,
		LatencyRangeStart: &fromMs,
		LatencyRangeEnd:   &toMs,
	})
}

// ConfigureExceptions replaces the exception assault. An empty message keeps the stored one.
func (c *Controller) ConfigureExceptions(active bool, exceptionType, message string) Assaults {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.s.exceptionsActive = active
	c.s.exception = withCarryOver(exceptionType, message, c.s.exception)
	return c.s.assaults()
}

// ConfigureMemory sets the memory assault. megabytes is accepted for API compatibility only;
// the memory assault is never executed, so there is nothing to size.
func (c *Controller) ConfigureMemory(active bool, megabytes int, waitMs int64) Assaults {
	log.Debug("Ignoring memory assault size", "megabytes", megabytes)

	return c.UpdateAssaults(AssaultsUpdate{
		MemoryActive:                       &active,
		MemoryMillisecondsWaitNextIncrease: &waitMs,
	})
}

// ConfigureWatchers overwrites all five watcher flags.
func (c *Controller) ConfigureWatchers(w Watchers) WatchersResult {
	c.mu.Lock()
	c.s.watchers = w
	c.mu.Unlock()

	log.Info("Fault injection watchers updated", "watchers", w)
	return WatchersResult{Status: watchersUpdated, Watchers: w}
}

// plan is the subset of settings an assault needs, copied under the read lock.
type plan struct {
	enabled          bool
	watched          bool
	level            int
	latencyActive    bool
	latencyStart     int
	latencyEnd       int
	exceptionsActive bool
	exception        exceptionSpec
}

func (c *Controller) plan(layer Layer) plan {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := plan{
		enabled:          c.s.enabled,
		watched:          layer.watchedBy(c.s.watchers),
		level:            c.s.level,
		latencyActive:    c.s.latencyActive,
		latencyStart:     c.s.latencyStart,
		latencyEnd:       c.s.latencyEnd,
		exceptionsActive: c.s.exceptionsActive,
	}
	if c.s.exception != nil {
		p.exception = *c.s.exception
	}
	return p
}
