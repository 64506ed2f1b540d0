package service

import (
	"context"
	"fmt"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

// Operation names used for metrics and logs.
const (
	OpListAll = "listAll"
	OpGetByID = "getById"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
)

var _ core.VehicleService = (*Resilient)(nil)

// Resilient guards a VehicleService with a resilience policy and gives every operation its own fallback:
//   - listAll yields an empty list,
//   - getById yields a zero-value vehicle, NotFound included unless lookup misses are unmasked,
//   - create, update and delete return business errors unchanged and core.ErrServiceUnavailable otherwise.
type Resilient struct {
	inner  core.VehicleService
	policy *resilience.Policy

	maskLookupMisses bool
}

// NewResilient wraps inner. When maskLookupMisses is false, getById propagates core.ErrNotFound.
func NewResilient(inner core.VehicleService, policy *resilience.Policy, maskLookupMisses bool) *Resilient {
	return &Resilient{inner: inner, policy: policy, maskLookupMisses: maskLookupMisses}
}

// IsFailure reports whether err counts against the circuit breaker.
func IsFailure(err error) bool {
	return err != nil && !core.IsBusinessError(err)
}

// IsRetryable reports whether a failed attempt is worth repeating.
func IsRetryable(err error) bool {
	return !core.IsBusinessError(err)
}

func (r *Resilient) ListAll(ctx context.Context) ([]model.Vehicle, error) {
	return resilience.Execute(ctx, r.policy, OpListAll, r.inner.ListAll,
		func(_ context.Context, err error) ([]model.Vehicle, error) {
			log.Warn("Serving empty vehicle list", "operation", OpListAll, "cause", err)
			return []model.Vehicle{}, nil
		})
}

func (r *Resilient) GetByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	return resilience.Execute(ctx, r.policy, OpGetByID,
		func(ctx context.Context) (*model.Vehicle, error) {
			return r.inner.GetByID(ctx, id)
		},
		func(_ context.Context, err error) (*model.Vehicle, error) {
			if !r.maskLookupMisses && core.IsBusinessError(err) {
				return nil, err
			}
			log.Warn("Serving placeholder vehicle", "operation", OpGetByID, "id", id, "cause", err)
			return &model.Vehicle{}, nil
		})
}

func (r *Resilient) Create(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	return resilience.Execute(ctx, r.policy, OpCreate,
		func(ctx context.Context) (*model.Vehicle, error) {
			return r.inner.Create(ctx, v)
		},
		unavailable[*model.Vehicle](OpCreate))
}

func (r *Resilient) Update(ctx context.Context, id int64, v *model.Vehicle) (*model.Vehicle, error) {
	return resilience.Execute(ctx, r.policy, OpUpdate,
		func(ctx context.Context) (*model.Vehicle, error) {
			return r.inner.Update(ctx, id, v)
		},
		unavailable[*model.Vehicle](OpUpdate))
}

func (r *Resilient) Delete(ctx context.Context, id int64) error {
	_, err := resilience.Execute(ctx, r.policy, OpDelete,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, r.inner.Delete(ctx, id)
		},
		unavailable[struct{}](OpDelete))
	return err
}

// unavailable is the fallback of the mutating operations.
func unavailable[T any](op string) resilience.Fallback[T] {
	return func(_ context.Context, err error) (T, error) {
		var zero T
		if core.IsBusinessError(err) {
			return zero, err
		}
		log.Warn("Mutating operation failed", "operation", op, "cause", err)
		return zero, fmt.Errorf("unable to %s vehicle, please retry later: %w", op, core.ErrServiceUnavailable)
	}
}
