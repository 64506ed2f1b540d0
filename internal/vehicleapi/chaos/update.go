package chaos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
)

// AssaultsUpdate is a partial update of the assault settings.
// A nil field was absent from the request and leaves the setting untouched.
type AssaultsUpdate struct {
	Level                              *int    `json:"level,omitempty"`
	LatencyActive                      *bool   `json:"latencyActive,omitempty"`
	LatencyRangeStart                  *int    `json:"latencyRangeStart,omitempty"`
	LatencyRangeEnd                    *int    `json:"latencyRangeEnd,omitempty"`
	ExceptionsActive                   *bool   `json:"exceptionsActive,omitempty"`
	ExceptionType                      *string `json:"exceptionType,omitempty"`
	ExceptionMessage                   *string `json:"exceptionMessage,omitempty"`
	MemoryActive                       *bool   `json:"memoryActive,omitempty"`
	MemoryMillisecondsWaitNextIncrease *int64  `json:"memoryMillisecondsWaitNextIncrease,omitempty"`
}

// assaultsWire is the request body as sent. Numbers are kept raw so that any
// integral JSON number (3 or 3.0) is accepted.
type assaultsWire struct {
	Level                              json.RawMessage `json:"level"`
	LatencyActive                      *bool           `json:"latencyActive"`
	LatencyRangeStart                  json.RawMessage `json:"latencyRangeStart"`
	LatencyRangeEnd                    json.RawMessage `json:"latencyRangeEnd"`
	ExceptionsActive                   *bool           `json:"exceptionsActive"`
	ExceptionType                      *string         `json:"exceptionType"`
	ExceptionMessage                   *string         `json:"exceptionMessage"`
	MemoryActive                       *bool           `json:"memoryActive"`
	MemoryMillisecondsWaitNextIncrease json.RawMessage `json:"memoryMillisecondsWaitNextIncrease"`
}

// DecodeAssaultsUpdate reads a JSON object into an AssaultsUpdate.
// Unknown keys are ignored; a value of the wrong type fails with core.ErrInvalidInput.
// Numeric settings take any JSON number without a fractional part. A null value counts as absent.
func DecodeAssaultsUpdate(r io.Reader) (AssaultsUpdate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return AssaultsUpdate{}, fmt.Errorf("read assaults update: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return AssaultsUpdate{}, fmt.Errorf("%w: empty request body", core.ErrInvalidInput)
	}

	var w assaultsWire
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return AssaultsUpdate{}, fmt.Errorf("%w: %s must be a %s, got %s",
				core.ErrInvalidInput, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return AssaultsUpdate{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	u := AssaultsUpdate{
		LatencyActive:    w.LatencyActive,
		ExceptionsActive: w.ExceptionsActive,
		ExceptionType:    w.ExceptionType,
		ExceptionMessage: w.ExceptionMessage,
		MemoryActive:     w.MemoryActive,
	}

	ints := []struct {
		name string
		raw  json.RawMessage
		dst  **int
	}{
		{"level", w.Level, &u.Level},
		{"latencyRangeStart", w.LatencyRangeStart, &u.LatencyRangeStart},
		{"latencyRangeEnd", w.LatencyRangeEnd, &u.LatencyRangeEnd},
	}
	for _, f := range ints {
		n, err := integer(f.name, f.raw, math.MinInt32, math.MaxInt32)
		if err != nil {
			return AssaultsUpdate{}, err
		}
		if n != nil {
			*f.dst = Ptr(int(*n))
		}
	}

	u.MemoryMillisecondsWaitNextIncrease, err = integer("memoryMillisecondsWaitNextIncrease",
		w.MemoryMillisecondsWaitNextIncrease, math.MinInt64, math.MaxInt64)
	if err != nil {
		return AssaultsUpdate{}, err
	}

	return u, nil
}

// integer parses raw as a JSON number without a fractional part in [lo, hi].
// An absent or null value yields nil.
func integer(field string, raw json.RawMessage, lo, hi int64) (*int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidInput, field, err)
	}
	num, ok := v.(json.Number)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a number, got %s", core.ErrInvalidInput, field, raw)
	}

	n, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil || f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %s", core.ErrInvalidInput, field, num)
		}
		n = int64(f)
	}
	if n < lo || n > hi {
		return nil, fmt.Errorf("%w: %s is out of range, got %s", core.ErrInvalidInput, field, num)
	}
	return &n, nil
}

// Ptr returns a pointer to v, for building updates in code.
func Ptr[T any](v T) *T {
	return &v
}
