package core

import (
	"context"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// VehicleRepository is the record store contract.
// Implementations own durability and the unique plate constraint, nothing else.
type VehicleRepository interface {
	// FindAll returns every vehicle ordered by id. An empty store yields an empty slice.
	FindAll(ctx context.Context) ([]model.Vehicle, error)

	// FindByID returns ErrNotFound when id is absent.
	FindByID(ctx context.Context, id int64) (*model.Vehicle, error)

	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByPlate(ctx context.Context, plate string) (bool, error)

	// Save inserts v when v.ID is zero and assigns the new id; otherwise it overwrites the existing record.
	// It fails with ErrNotFound when updating an absent id and ErrConflict when the plate is taken by another record.
	Save(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error)

	// DeleteByID returns ErrNotFound when id is absent.
	DeleteByID(ctx context.Context, id int64) error

	// Count returns the number of stored vehicles.
	Count(ctx context.Context) (int, error)

	// Ping checks that the store can serve requests.
	Ping(ctx context.Context) error
}
