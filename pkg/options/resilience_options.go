package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*ResilienceOptions)(nil)

// ResilienceOptions configures the circuit breaker and retry policy guarding the vehicle service.
type ResilienceOptions struct {
	BreakerName string `json:"breaker-name" mapstructure:"breaker-name"`

	// WindowSize is the number of most recent call outcomes the breaker keeps.
	WindowSize int `json:"window-size" mapstructure:"window-size"`

	// MinimumCalls is how many outcomes must be recorded before the failure rate is evaluated.
	MinimumCalls int `json:"minimum-calls" mapstructure:"minimum-calls"`

	// FailureRateThreshold is a percentage in (0, 100].
	FailureRateThreshold float64 `json:"failure-rate-threshold" mapstructure:"failure-rate-threshold"`

	OpenDuration           time.Duration `json:"open-duration" mapstructure:"open-duration"`
	HalfOpenPermittedCalls int           `json:"half-open-permitted-calls" mapstructure:"half-open-permitted-calls"`

	MaxAttempts    int           `json:"max-attempts" mapstructure:"max-attempts"`
	InitialBackoff time.Duration `json:"initial-backoff" mapstructure:"initial-backoff"`
	BackoffFactor  float64       `json:"backoff-factor" mapstructure:"backoff-factor"`
	Jitter         float64       `json:"jitter" mapstructure:"jitter"`

	// MaskLookupMisses makes a failed single-vehicle lookup, not-found included, answer with an empty vehicle.
	MaskLookupMisses bool `json:"mask-lookup-misses" mapstructure:"mask-lookup-misses"`
}

func NewResilienceOptions() *ResilienceOptions {
	return &ResilienceOptions{
		BreakerName:            "vehicleService",
		WindowSize:             10,
		MinimumCalls:           5,
		FailureRateThreshold:   50,
		OpenDuration:           10 * time.Second,
		HalfOpenPermittedCalls: 3,
		MaxAttempts:            3,
		InitialBackoff:         100 * time.Millisecond,
		BackoffFactor:          2.0,
		Jitter:                 0.1,
		MaskLookupMisses:       true,
	}
}

func (o *ResilienceOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.BreakerName == "" {
		errs = append(errs, fmt.Errorf("--resilience.breaker-name must not be empty"))
	}
	if o.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("--resilience.window-size must be at least 1, got %d", o.WindowSize))
	}
	if o.MinimumCalls < 1 || o.MinimumCalls > o.WindowSize {
		errs = append(errs, fmt.Errorf("--resilience.minimum-calls must be between 1 and the window size, got %d", o.MinimumCalls))
	}
	if o.FailureRateThreshold <= 0 || o.FailureRateThreshold > 100 {
		errs = append(errs, fmt.Errorf("--resilience.failure-rate-threshold must be in (0, 100], got %v", o.FailureRateThreshold))
	}
	if o.OpenDuration <= 0 {
		errs = append(errs, fmt.Errorf("--resilience.open-duration must be positive"))
	}
	if o.HalfOpenPermittedCalls < 1 {
		errs = append(errs, fmt.Errorf("--resilience.half-open-permitted-calls must be at least 1"))
	}
	if o.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("--resilience.max-attempts must be at least 1, got %d", o.MaxAttempts))
	}
	if o.BackoffFactor < 1 {
		errs = append(errs, fmt.Errorf("--resilience.backoff-factor must be >= 1, got %v", o.BackoffFactor))
	}
	if o.Jitter < 0 {
		errs = append(errs, fmt.Errorf("--resilience.jitter must not be negative"))
	}

	return errs
}

func (o *ResilienceOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BreakerName, "resilience.breaker-name", o.BreakerName, "Name of the circuit breaker shared by all vehicle operations.")
	fs.IntVar(&o.WindowSize, "resilience.window-size", o.WindowSize, "Number of recent calls kept in the breaker's sliding window.")
	fs.IntVar(&o.MinimumCalls, "resilience.minimum-calls", o.MinimumCalls, "Calls required in the window before the failure rate is evaluated.")
	fs.Float64Var(&o.FailureRateThreshold, "resilience.failure-rate-threshold", o.FailureRateThreshold, "Failure percentage at which the breaker opens.")
	fs.DurationVar(&o.OpenDuration, "resilience.open-duration", o.OpenDuration, "How long the breaker stays open before allowing trial calls.")
	fs.IntVar(&o.HalfOpenPermittedCalls, "resilience.half-open-permitted-calls", o.HalfOpenPermittedCalls, "Trial calls admitted while half-open.")
	fs.IntVar(&o.MaxAttempts, "resilience.max-attempts", o.MaxAttempts, "Total attempts per call, first one included.")
	fs.DurationVar(&o.InitialBackoff, "resilience.initial-backoff", o.InitialBackoff, "Wait before the first retry.")
	fs.Float64Var(&o.BackoffFactor, "resilience.backoff-factor", o.BackoffFactor, "Multiplier applied to the wait after each retry.")
	fs.Float64Var(&o.Jitter, "resilience.jitter", o.Jitter, "Random jitter fraction added to each wait.")
	fs.BoolVar(&o.MaskLookupMisses, "resilience.mask-lookup-misses", o.MaskLookupMisses,
		"Answer a failed single-vehicle lookup, not-found included, with an empty vehicle instead of an error.")
}
