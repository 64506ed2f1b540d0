package core

import (
	"context"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// AvailabilityNotifier receives liveness and readiness transitions.
// Delivery is fire-and-forget; callers only log a returned error.
type AvailabilityNotifier interface {
	Notify(ctx context.Context, t model.Transition) error
}
