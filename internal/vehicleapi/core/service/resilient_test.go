package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/store/memory"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/store/storetest"
)

var errDown = errors.New("connection refused")

// flakyRepo fails every call while broken and counts the calls that reached it.
type flakyRepo struct {
	core.VehicleRepository
	broken atomic.Bool
	calls  atomic.Int32
}

func (r *flakyRepo) hit() error {
	r.calls.Add(1)
	if r.broken.Load() {
		return errDown
	}
	return nil
}

func (r *flakyRepo) FindAll(ctx context.Context) ([]model.Vehicle, error) {
	if err := r.hit(); err != nil {
		return nil, err
	}
	return r.VehicleRepository.FindAll(ctx)
}

func (r *flakyRepo) FindByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	if err := r.hit(); err != nil {
		return nil, err
	}
	return r.VehicleRepository.FindByID(ctx, id)
}

func (r *flakyRepo) ExistsByPlate(ctx context.Context, plate string) (bool, error) {
	if err := r.hit(); err != nil {
		return false, err
	}
	return r.VehicleRepository.ExistsByPlate(ctx, plate)
}

func (r *flakyRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := r.hit(); err != nil {
		return false, err
	}
	return r.VehicleRepository.ExistsByID(ctx, id)
}

type fixture struct {
	repo    *flakyRepo
	svc     *Resilient
	breaker *resilience.CircuitBreaker
	clock   *testingclock.FakeClock
}

func newFixture(t *testing.T, attempts int, mask bool) *fixture {
	t.Helper()

	clk := testingclock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := resilience.DefaultBreakerConfig("vehicleService")
	cfg.Clock = clk
	cfg.IsFailure = IsFailure
	breaker := resilience.NewCircuitBreaker(cfg)

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		Factor:         1,
		Retryable:      IsRetryable,
	})

	repo := &flakyRepo{VehicleRepository: memory.New()}
	return &fixture{
		repo:    repo,
		svc:     NewResilient(New(repo), resilience.NewPolicy(breaker, retrier, nil), mask),
		breaker: breaker,
		clock:   clk,
	}
}

func TestResilientPassesThrough(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, storetest.Vehicle("R-1"))
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	list, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestResilientListFallback(t *testing.T) {
	f := newFixture(t, 3, true)
	f.repo.broken.Store(true)

	list, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Equal(t, int32(3), f.repo.calls.Load())
}

func TestResilientGetByIDMasksMisses(t *testing.T) {
	f := newFixture(t, 3, true)

	got, err := f.svc.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, &model.Vehicle{}, got)
	assert.Equal(t, int32(1), f.repo.calls.Load(), "a miss is not retried")
	assert.Zero(t, f.breaker.Stats().FailedCalls)
}

func TestResilientGetByIDUnmasked(t *testing.T) {
	f := newFixture(t, 3, false)

	_, err := f.svc.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, core.ErrNotFound)

	f.repo.broken.Store(true)
	got, err := f.svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &model.Vehicle{}, got, "store failures still fall back")
}

func TestResilientMutationsKeepBusinessErrors(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, storetest.Vehicle("K-1"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, storetest.Vehicle("K-1"))
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = f.svc.Create(ctx, &model.Vehicle{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.svc.Update(ctx, 77, storetest.Vehicle("K-2"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, 77), core.ErrNotFound)
	assert.Equal(t, resilience.StateClosed, f.breaker.State())
}

func TestResilientMutationsBecomeUnavailable(t *testing.T) {
	f := newFixture(t, 2, true)
	f.repo.broken.Store(true)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, storetest.Vehicle("U-1"))
	require.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "unable to create vehicle, please retry later")
	assert.NotErrorIs(t, err, errDown)

	_, err = f.svc.Update(ctx, 1, storetest.Vehicle("U-1"))
	assert.ErrorIs(t, err, core.ErrServiceUnavailable)

	err = f.svc.Delete(ctx, 1)
	require.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "unable to delete vehicle")
}

func TestResilientRetriesInjectedFaults(t *testing.T) {
	f := newFixture(t, 3, true)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, storetest.Vehicle("T-1"))
	require.NoError(t, err)

	calls := 0
	svc := NewResilient(faultyOnce{inner: New(f.repo), calls: &calls}, resilience.NewPolicy(f.breaker,
		resilience.NewRetrier(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, Retryable: IsRetryable}), nil), true)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, 2, calls)
}

// faultyOnce fails its first GetByID with an injected fault.
type faultyOnce struct {
	core.VehicleService
	inner core.VehicleService
	calls *int
}

func (s faultyOnce) GetByID(ctx context.Context, id int64) (*model.Vehicle, error) {
	*s.calls++
	if *s.calls == 1 {
		return nil, &core.FaultError{Kind: "TransientFault", Message: "boom", Layer: "service"}
	}
	return s.inner.GetByID(ctx, id)
}

func TestResilientCircuitOpens(t *testing.T) {
	f := newFixture(t, 1, true)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, storetest.Vehicle("C-1"))
	require.NoError(t, err)

	f.repo.broken.Store(true)
	for i := 0; i < 5; i++ {
		got, err := f.svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, &model.Vehicle{}, got)
	}
	require.Equal(t, resilience.StateOpen, f.breaker.State())

	// Open: fallbacks are served without reaching the store.
	f.repo.broken.Store(false)
	before := f.repo.calls.Load()

	got, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, &model.Vehicle{}, got)

	list, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Create(ctx, storetest.Vehicle("C-2"))
	assert.ErrorIs(t, err, core.ErrServiceUnavailable)
	assert.Equal(t, before, f.repo.calls.Load())

	// Cooldown elapsed: the next call is a half-open trial and reaches the store.
	f.clock.Step(10 * time.Second)

	got, err = f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, before+1, f.repo.calls.Load())
	assert.Equal(t, resilience.StateHalfOpen, f.breaker.State())
}
