package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
)

var _ core.VehicleService = (*Service)(nil)

// Service implements the vehicle use cases on top of a record store.
// It keeps no copies of records between calls.
type Service struct {
	vehicles core.VehicleRepository
	validate *validator.Validate
}

// New creates the vehicle service.
func New(repo core.VehicleRepository) *Service {
	return &Service{
		vehicles: repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}
