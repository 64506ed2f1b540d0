package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestToFields(t *testing.T) {
	err := errors.New("store unavailable")

	tests := []struct {
		name     string
		input    []any
		wantKeys []string
	}{
		{"empty input", []any{}, nil},
		{"operation and id", []any{"operation", "getById", "id", int64(7)}, []string{"operation", "id"}},
		{"duration", []any{"elapsed", 120 * time.Millisecond}, []string{"elapsed"}},
		{"error only", []any{err}, []string{"error"}},
		{"zap field passthrough", []any{zap.String("breaker", "vehicleService"), "state", "open"}, []string{"breaker", "state"}},
		{"odd number of args", []any{"plate", "ABC-123", "price"}, []string{"plate", "arg#2"}},
		{"non-string key", []any{123, "value"}, []string{"invalid_key_1"}},
		{"nil value", []any{"price", nil}, []string{"price"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)

			if len(fields) != len(tt.wantKeys) {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), len(tt.wantKeys), fields)
			}
			for i, f := range fields {
				if f.Key != tt.wantKeys[i] {
					t.Errorf("field %d key = %q, want %q", i, f.Key, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestTypedField(t *testing.T) {
	if f := typedField("year", 2021); f.Type != zapcore.Int64Type {
		t.Errorf("int field type = %v", f.Type)
	}
	if f := typedField("live", true); f.Type != zapcore.BoolType {
		t.Errorf("bool field type = %v", f.Type)
	}
	if f := typedField("wait", time.Second); f.Type != zapcore.DurationType {
		t.Errorf("duration field type = %v", f.Type)
	}
}

func TestSetLevel(t *testing.T) {
	Init(&Options{Level: "info", Format: "json", OutputPaths: []string{"stderr"}})

	if got := Level(); got != "info" {
		t.Fatalf("Level() = %q, want info", got)
	}
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug): %v", err)
	}
	if got := Level(); got != "debug" {
		t.Errorf("Level() = %q, want debug", got)
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) should fail")
	}
}

func TestOptionsValidate(t *testing.T) {
	o := NewOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("default options invalid: %v", errs)
	}

	o.Level = "verbose"
	o.Format = "xml"
	if errs := o.Validate(); len(errs) != 2 {
		t.Errorf("got %d errors, want 2", len(errs))
	}
}
