package core

import (
	"context"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// VehicleService is the vehicle use case surface. Decorators (fault injection,
// resilience) implement it as well so they can be stacked around the plain service.
type VehicleService interface {
	ListAll(ctx context.Context) ([]model.Vehicle, error)
	GetByID(ctx context.Context, id int64) (*model.Vehicle, error)
	Create(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error)
	Update(ctx context.Context, id int64, v *model.Vehicle) (*model.Vehicle, error)
	Delete(ctx context.Context, id int64) error
}
