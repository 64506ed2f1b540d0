package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/store/storetest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.VehicleRepository {
		return openInMemory(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Path: t.TempDir(), SyncWrites: true}

	s, err := Open(cfg)
	require.NoError(t, err)
	created, err := s.Save(ctx, storetest.Vehicle("PER-001"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "PER-001", got.Plate)

	// Ids keep increasing after a restart.
	next, err := s.Save(ctx, storetest.Vehicle("PER-002"))
	require.NoError(t, err)
	assert.Greater(t, next.ID, created.ID)
}

func TestPingAfterClose(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	assert.Error(t, s.Ping(context.Background()))
}

func TestRunGCReturnsWhenDisabled(t *testing.T) {
	s := openInMemory(t)
	// In-memory databases never run GC, so this must not block.
	s.RunGC(context.Background())
}
