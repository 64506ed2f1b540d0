package chaos

import (
	"context"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// Repository wraps a record store so its contract operations cross the repository layer.
// Count and Ping are infrastructure calls and are never attacked.
func Repository(inner core.VehicleRepository, a *Assaulter) core.VehicleRepository {
	return &repository{inner: inner, a: a}
}

type repository struct {
	inner core.VehicleRepository
	a     *Assaulter
}

func (r *repository) FindAll(ctx context.Context) ([]model.Vehicle, error) {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return nil, err
	}
	return r.inner.FindAll(ctx)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return nil, err
	}
	return r.inner.FindByID(ctx, id)
}

func (r *repository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return false, err
	}
	return r.inner.ExistsByID(ctx, id)
}

func (r *repository) ExistsByPlate(ctx context.Context, plate string) (bool, error) {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return false, err
	}
	return r.inner.ExistsByPlate(ctx, plate)
}

func (r *repository) Save(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return nil, err
	}
	return r.inner.Save(ctx, v)
}

func (r *repository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.a.Attack(ctx, LayerRepository); err != nil {
		return err
	}
	return r.inner.DeleteByID(ctx, id)
}

func (r *repository) Count(ctx context.Context) (int, error) { return r.inner.Count(ctx) }

func (r *repository) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }

// Service wraps the vehicle service so each use case crosses the service layer.
func Service(inner core.VehicleService, a *Assaulter) core.VehicleService {
	return &service{inner: inner, a: a}
}

type service struct {
	inner core.VehicleService
	a     *Assaulter
}

func (s *service) ListAll(ctx context.Context) ([]model.Vehicle, error) {
	if err := s.a.Attack(ctx, LayerService); err != nil {
		return nil, err
	}
	return s.inner.ListAll(ctx)
}

func (s *service) GetByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	if err := s.a.Attack(ctx, LayerService); err != nil {
		return nil, err
	}
	return s.inner.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if err := s.a.Attack(ctx, LayerService); err != nil {
		return nil, err
	}
	return s.inner.Create(ctx, v)
}

func (s *service) Update(ctx context.Context, id int64, v *model.Vehicle) (*model.Vehicle, error) {
	if err := s.a.Attack(ctx, LayerService); err != nil {
		return nil, err
	}
	return s.inner.Update(ctx, id, v)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.a.Attack(ctx, LayerService); err != nil {
		return err
	}
	return s.inner.Delete(ctx, id)
}
