package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ChaosOptions)(nil)

// ChaosOptions holds the fault-injection settings the service starts with.
// All of them can be changed afterwards through the control API.
type ChaosOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	Level   int  `json:"level" mapstructure:"level"`

	LatencyActive     bool `json:"latency-active" mapstructure:"latency-active"`
	LatencyRangeStart int  `json:"latency-range-start" mapstructure:"latency-range-start"`
	LatencyRangeEnd   int  `json:"latency-range-end" mapstructure:"latency-range-end"`

	ExceptionsActive bool   `json:"exceptions-active" mapstructure:"exceptions-active"`
	ExceptionType    string `json:"exception-type" mapstructure:"exception-type"`
	ExceptionMessage string `json:"exception-message" mapstructure:"exception-message"`

	MemoryActive                       bool  `json:"memory-active" mapstructure:"memory-active"`
	MemoryMillisecondsWaitNextIncrease int64 `json:"memory-wait-next-increase" mapstructure:"memory-wait-next-increase"`

	WatchController     bool `json:"watch-controller" mapstructure:"watch-controller"`
	WatchRestController bool `json:"watch-rest-controller" mapstructure:"watch-rest-controller"`
	WatchService        bool `json:"watch-service" mapstructure:"watch-service"`
	WatchRepository     bool `json:"watch-repository" mapstructure:"watch-repository"`
	WatchComponent      bool `json:"watch-component" mapstructure:"watch-component"`
}

func NewChaosOptions() *ChaosOptions {
	return &ChaosOptions{
		Level:                              3,
		LatencyActive:                      true,
		LatencyRangeStart:                  1000,
		LatencyRangeEnd:                    3000,
		ExceptionsActive:                   true,
		ExceptionType:                      "TransientFault",
		ExceptionMessage:                   "Simulated exception",
		MemoryActive:                       true,
		MemoryMillisecondsWaitNextIncrease: 15000,
		WatchController:                    true,
		WatchRestController:                true,
		WatchService:                       true,
		WatchRepository:                    true,
		WatchComponent:                     true,
	}
}

func (o *ChaosOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.LatencyRangeStart < 0 || o.LatencyRangeEnd < 0 {
		errs = append(errs, fmt.Errorf("--chaos.latency-range-* must not be negative"))
	}
	if o.MemoryMillisecondsWaitNextIncrease < 0 {
		errs = append(errs, fmt.Errorf("--chaos.memory-wait-next-increase must not be negative"))
	}

	return errs
}

func (o *ChaosOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "chaos.enabled", o.Enabled, "Start with fault injection enabled.")
	fs.IntVar(&o.Level, "chaos.level", o.Level, "Attack every N-th call per watched layer.")

	fs.BoolVar(&o.LatencyActive, "chaos.latency-active", o.LatencyActive, "Inject latency.")
	fs.IntVar(&o.LatencyRangeStart, "chaos.latency-range-start", o.LatencyRangeStart, "Lower bound of injected latency in milliseconds.")
	fs.IntVar(&o.LatencyRangeEnd, "chaos.latency-range-end", o.LatencyRangeEnd, "Upper bound of injected latency in milliseconds.")

	fs.BoolVar(&o.ExceptionsActive, "chaos.exceptions-active", o.ExceptionsActive, "Inject failures.")
	fs.StringVar(&o.ExceptionType, "chaos.exception-type", o.ExceptionType, "Kind reported by injected failures.")
	fs.StringVar(&o.ExceptionMessage, "chaos.exception-message", o.ExceptionMessage, "Message carried by injected failures.")

	fs.BoolVar(&o.MemoryActive, "chaos.memory-active", o.MemoryActive, "Report the memory assault as active (never executed).")
	fs.Int64Var(&o.MemoryMillisecondsWaitNextIncrease, "chaos.memory-wait-next-increase", o.MemoryMillisecondsWaitNextIncrease,
		"Milliseconds between memory increases.")

	fs.BoolVar(&o.WatchController, "chaos.watch-controller", o.WatchController, "Watch the controller layer.")
	fs.BoolVar(&o.WatchRestController, "chaos.watch-rest-controller", o.WatchRestController, "Watch the REST handlers.")
	fs.BoolVar(&o.WatchService, "chaos.watch-service", o.WatchService, "Watch the vehicle service.")
	fs.BoolVar(&o.WatchRepository, "chaos.watch-repository", o.WatchRepository, "Watch the record store.")
	fs.BoolVar(&o.WatchComponent, "chaos.watch-component", o.WatchComponent, "Watch generic components.")
}
