package chaos

import (
	"github.com/autopeer-io/vehicle-api/pkg/options"
)

const (
	// DefaultExceptionType is the generic runtime failure kind reported by injected faults.
	DefaultExceptionType = "TransientFault"

	// DefaultExceptionMessage is used by ConfigureExceptions when no message is given.
	DefaultExceptionMessage = "Chaos Monkey - This is a random exception"

	DefaultLatencyFrom     = 1000
	DefaultLatencyTo       = 3000
	DefaultMemoryMegabytes = 50
	DefaultMemoryWait      = 15000

	watchersUpdated = "Watchers updated"
)

// Assaults is the projection of the assault settings returned by the control operations.
type Assaults struct {
	Level                              int    `json:"level"`
	LatencyActive                      bool   `json:"latencyActive"`
	LatencyRangeStart                  int    `json:"latencyRangeStart"`
	LatencyRangeEnd                    int    `json:"latencyRangeEnd"`
	ExceptionsActive                   bool   `json:"exceptionsActive"`
	ExceptionType                      string `json:"exceptionType"`
	ExceptionMessage                   string `json:"exceptionMessage"`
	MemoryActive                       bool   `json:"memoryActive"`
	MemoryMillisecondsWaitNextIncrease int64  `json:"memoryMillisecondsWaitNextIncrease"`
}

// Status is the enabled flag plus the assault settings and the watched layers.
type Status struct {
	Enabled  bool     `json:"enabled"`
	Assaults Assaults `json:"assaults"`
	Watchers Watchers `json:"watchers"`
}

// Watchers selects the layers faults are injected into.
type Watchers struct {
	Controller     bool `json:"controller"`
	RestController bool `json:"restController"`
	Service        bool `json:"service"`
	Repository     bool `json:"repository"`
	Component      bool `json:"component"`
}

// AllWatchers returns every watcher flag set.
func AllWatchers() Watchers {
	return Watchers{Controller: true, RestController: true, Service: true, Repository: true, Component: true}
}

// WatchersResult is returned by ConfigureWatchers.
type WatchersResult struct {
	Status string `json:"status"`
	Watchers
}

// exceptionSpec is the injected failure. An empty message means no message was configured.
type exceptionSpec struct {
	kind    string
	message string
}

// withCarryOver builds the replacement exception setting: an empty message keeps the previous one.
func withCarryOver(kind, message string, prev *exceptionSpec) *exceptionSpec {
	next := &exceptionSpec{kind: kind, message: message}
	if message == "" && prev != nil {
		next.message = prev.message
	}
	return next
}

// settings is the whole mutable configuration. It is only touched under Controller.mu.
type settings struct {
	enabled bool

	level int

	latencyActive bool
	latencyStart  int
	latencyEnd    int

	exceptionsActive bool
	exception        *exceptionSpec

	memoryActive bool
	memoryWait   int64

	watchers Watchers
}

func settingsFromOptions(o *options.ChaosOptions) settings {
	if o == nil {
		o = options.NewChaosOptions()
	}

	s := settings{
		enabled:          o.Enabled,
		level:            o.Level,
		latencyActive:    o.LatencyActive,
		latencyStart:     o.LatencyRangeStart,
		latencyEnd:       o.LatencyRangeEnd,
		exceptionsActive: o.ExceptionsActive,
		memoryActive:     o.MemoryActive,
		memoryWait:       o.MemoryMillisecondsWaitNextIncrease,
		watchers: Watchers{
			Controller:     o.WatchController,
			RestController: o.WatchRestController,
			Service:        o.WatchService,
			Repository:     o.WatchRepository,
			Component:      o.WatchComponent,
		},
	}
	if o.ExceptionType != "" || o.ExceptionMessage != "" {
		s.exception = &exceptionSpec{kind: o.ExceptionType, message: o.ExceptionMessage}
	}
	return s
}

func (s *settings) assaults() Assaults {
	a := Assaults{
		Level:                              s.level,
		LatencyActive:                      s.latencyActive,
		LatencyRangeStart:                  s.latencyStart,
		LatencyRangeEnd:                    s.latencyEnd,
		ExceptionsActive:                   s.exceptionsActive,
		MemoryActive:                       s.memoryActive,
		MemoryMillisecondsWaitNextIncrease: s.memoryWait,
	}
	if s.exception != nil {
		a.ExceptionType = s.exception.kind
		a.ExceptionMessage = s.exception.message
	}
	return a
}
