package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

var _ core.VehicleRepository = (*Store)(nil)

// Store keeps vehicles in process memory. Records are copied on the way in and out.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*model.Vehicle
	byPlate map[string]int64
}

func New() *Store {
	return &Store{
		byID:    make(map[int64]*model.Vehicle),
		byPlate: make(map[string]int64),
	}
}

func (s *Store) FindAll(_ context.Context) ([]model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Vehicle, 0, len(s.byID))
	for _, v := range s.byID {
		out = append(out, *v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", id, core.ErrNotFound)
	}
	return v.Clone(), nil
}

func (s *Store) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok, nil
}

func (s *Store) ExistsByPlate(_ context.Context, plate string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byPlate[plate]
	return ok, nil
}

func (s *Store) Save(_ context.Context, v *model.Vehicle) (*model.Vehicle, error) {
	if v == nil {
		return nil, fmt.Errorf("vehicle is required: %w", core.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byPlate[v.Plate]; ok && owner != v.ID {
		return nil, fmt.Errorf("plate %q: %w", v.Plate, core.ErrConflict)
	}

	rec := v.Clone()
	if rec.ID == 0 {
		s.nextID++
		rec.ID = s.nextID
	} else {
		prev, ok := s.byID[rec.ID]
		if !ok {
			return nil, fmt.Errorf("vehicle %d: %w", rec.ID, core.ErrNotFound)
		}
		delete(s.byPlate, prev.Plate)
	}

	s.byID[rec.ID] = rec
	s.byPlate[rec.Plate] = rec.ID
	return rec.Clone(), nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("vehicle %d: %w", id, core.ErrNotFound)
	}
	delete(s.byPlate, v.Plate)
	delete(s.byID, id)
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
