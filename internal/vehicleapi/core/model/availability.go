package model

import "time"

// AvailabilityKind names one of the two independent health signals.
type AvailabilityKind string

const (
	Liveness  AvailabilityKind = "liveness"
	Readiness AvailabilityKind = "readiness"
)

// AvailabilityState is the external signal published when a health flag is set.
type AvailabilityState string

const (
	LivenessCorrect    AvailabilityState = "CORRECT"
	LivenessBroken     AvailabilityState = "BROKEN"
	ReadinessAccepting AvailabilityState = "ACCEPTING_TRAFFIC"
	ReadinessRefusing  AvailabilityState = "REFUSING_TRAFFIC"
)

// Up reports whether s is one of the healthy signals.
func (s AvailabilityState) Up() bool {
	return s == LivenessCorrect || s == ReadinessAccepting
}

// Transition announces that a health flag was set.
type Transition struct {
	Kind  AvailabilityKind  `json:"kind"`
	State AvailabilityState `json:"state"`
	At    time.Time         `json:"at"`
}

// StateFor maps a flag value to the signal published for kind.
func StateFor(kind AvailabilityKind, up bool) AvailabilityState {
	switch {
	case kind == Liveness && up:
		return LivenessCorrect
	case kind == Liveness:
		return LivenessBroken
	case up:
		return ReadinessAccepting
	default:
		return ReadinessRefusing
	}
}

// HealthStatus is the combined view of both flags.
type HealthStatus struct {
	Live  bool `json:"live"`
	Ready bool `json:"ready"`
}
