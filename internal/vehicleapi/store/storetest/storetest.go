// Package storetest holds the behavior every core.VehicleRepository adapter must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

// Factory returns an empty repository. Cleanup is registered on t.
type Factory func(t *testing.T) core.VehicleRepository

// Vehicle returns a valid vehicle with the given plate.
func Vehicle(plate string) *model.Vehicle {
	price := 18500.0
	return &model.Vehicle{
		Brand: "Toyota",
		Model: "Corolla",
		Year:  2021,
		Color: "white",
		Plate: plate,
		Price: &price,
	}
}

// Run executes the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		a, err := repo.Save(ctx, Vehicle("AAA-001"))
		require.NoError(t, err)
		b, err := repo.Save(ctx, Vehicle("AAA-002"))
		require.NoError(t, err)

		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)

		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("FindAllOrderedByID", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		for i := 0; i < 3; i++ {
			_, err := repo.Save(ctx, Vehicle(fmt.Sprintf("LST-%03d", i)))
			require.NoError(t, err)
		}

		all, err = repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Less(t, all[0].ID, all[1].ID)
		assert.Less(t, all[1].ID, all[2].ID)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("MissingRecords", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		_, err := repo.FindByID(ctx, 42)
		assert.ErrorIs(t, err, core.ErrNotFound)

		ok, err := repo.ExistsByID(ctx, 42)
		require.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, repo.DeleteByID(ctx, 42), core.ErrNotFound)

		v := Vehicle("GHOST-1")
		v.ID = 42
		_, err = repo.Save(ctx, v)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("UniquePlate", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		first, err := repo.Save(ctx, Vehicle("DUP-001"))
		require.NoError(t, err)

		_, err = repo.Save(ctx, Vehicle("DUP-001"))
		assert.ErrorIs(t, err, core.ErrConflict)

		second, err := repo.Save(ctx, Vehicle("DUP-002"))
		require.NoError(t, err)

		second.Plate = "DUP-001"
		_, err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, core.ErrConflict)

		// Saving a record with its own plate is not a conflict.
		first.Color = "red"
		updated, err := repo.Save(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "red", updated.Color)
	})

	t.Run("UpdateMovesPlateIndex", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		v, err := repo.Save(ctx, Vehicle("OLD-001"))
		require.NoError(t, err)

		v.Plate = "NEW-001"
		v.Price = nil
		_, err = repo.Save(ctx, v)
		require.NoError(t, err)

		old, err := repo.ExistsByPlate(ctx, "OLD-001")
		require.NoError(t, err)
		assert.False(t, old)

		cur, err := repo.ExistsByPlate(ctx, "NEW-001")
		require.NoError(t, err)
		assert.True(t, cur)

		got, err := repo.FindByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Price)

		// The released plate is free again.
		_, err = repo.Save(ctx, Vehicle("OLD-001"))
		assert.NoError(t, err)
	})

	t.Run("DeleteReleasesPlate", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		v, err := repo.Save(ctx, Vehicle("DEL-001"))
		require.NoError(t, err)
		require.NoError(t, repo.DeleteByID(ctx, v.ID))

		_, err = repo.FindByID(ctx, v.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)

		taken, err := repo.ExistsByPlate(ctx, "DEL-001")
		require.NoError(t, err)
		assert.False(t, taken)
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		v, err := repo.Save(ctx, Vehicle("CPY-001"))
		require.NoError(t, err)

		*v.Price = 1
		v.Color = "mutated"

		got, err := repo.FindByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, "white", got.Color)
		assert.Equal(t, 18500.0, *got.Price)
	})

	t.Run("ConcurrentInsertsKeepPlatesUnique", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		var wg sync.WaitGroup
		var mu sync.Mutex
		conflicts := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Save(ctx, Vehicle("RACE-001"))
				if err != nil {
					mu.Lock()
					conflicts++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 7, conflicts)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(context.Background()))
	})
}
