package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// ListAll returns every stored vehicle.
func (s *Service) ListAll(ctx context.Context) ([]model.Vehicle, error) {
	vehicles, err := s.vehicles.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	if vehicles == nil {
		vehicles = []model.Vehicle{}
	}
	return vehicles, nil
}

// GetByID fails with core.ErrNotFound when id is absent.
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	v, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(id, err)
	}
	return v, nil
}

// Create stores v under a fresh id. The plate must not be in use.
func (s *Service) Create(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if err := s.validateVehicle(v); err != nil {
		return nil, err
	}

	taken, err := s.vehicles.ExistsByPlate(ctx, v.Plate)
	if err != nil {
		return nil, fmt.Errorf("failed to check plate %q: %w", v.Plate, err)
	}
	if taken {
		return nil, fmt.Errorf("a vehicle with plate %q already exists: %w", v.Plate, core.ErrConflict)
	}

	toSave := v.Clone()
	toSave.ID = 0

	created, err := s.vehicles.Save(ctx, toSave)
	if err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return created, nil
}

// Update overwrites every mutable field of vehicle id with the values of v.
// Plate uniqueness is only checked when the plate changes.
func (s *Service) Update(ctx context.Context, id int64, v *model.Vehicle) (*model.Vehicle, error) {
	if err := s.validateVehicle(v); err != nil {
		return nil, err
	}

	current, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(id, err)
	}

	if current.Plate != v.Plate {
		taken, err := s.vehicles.ExistsByPlate(ctx, v.Plate)
		if err != nil {
			return nil, fmt.Errorf("failed to check plate %q: %w", v.Plate, err)
		}
		if taken {
			return nil, fmt.Errorf("a vehicle with plate %q already exists: %w", v.Plate, core.ErrConflict)
		}
	}

	toSave := v.Clone()
	toSave.ID = id

	updated, err := s.vehicles.Save(ctx, toSave)
	if err != nil {
		return nil, fmt.Errorf("failed to update vehicle %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes vehicle id, failing with core.ErrNotFound when it is absent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	exists, err := s.vehicles.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up vehicle %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("vehicle %d: %w", id, core.ErrNotFound)
	}

	if err := s.vehicles.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vehicle %d: %w", id, err)
	}
	return nil
}

func (s *Service) validateVehicle(v *model.Vehicle) error {
	if v == nil {
		return fmt.Errorf("vehicle is required: %w", core.ErrInvalidInput)
	}

	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}

func lookupError(id int64, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("vehicle %d: %w", id, core.ErrNotFound)
	}
	return fmt.Errorf("failed to get vehicle %d: %w", id, err)
}
