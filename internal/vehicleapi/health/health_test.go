package health

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt/topic"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []model.Transition
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, t model.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, t)
	return r.err
}

func (r *recordingNotifier) states() []model.AvailabilityState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AvailabilityState, 0, len(r.got))
	for _, t := range r.got {
		out = append(out, t.State)
	}
	return out
}

var epoch = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

func TestNewStateDefaults(t *testing.T) {
	s := NewState(nil)
	assert.Equal(t, model.HealthStatus{Live: true, Ready: false}, s.Status())
}

func TestSetLiveTogglesInCallOrder(t *testing.T) {
	rec := &recordingNotifier{}
	s := NewState(rec, WithClock(testingclock.NewFakePassiveClock(epoch)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.SetLive(ctx, false)
		s.SetLive(ctx, true)
		assert.True(t, s.Status().Live)
	}

	assert.Equal(t, []model.AvailabilityState{
		model.LivenessBroken, model.LivenessCorrect,
		model.LivenessBroken, model.LivenessCorrect,
		model.LivenessBroken, model.LivenessCorrect,
	}, rec.states())
	assert.Equal(t, model.Liveness, rec.got[0].Kind)
	assert.Equal(t, epoch, rec.got[0].At)
}

func TestSetReady(t *testing.T) {
	rec := &recordingNotifier{}
	s := NewState(rec)

	s.SetReady(context.Background(), true)
	assert.True(t, s.Ready())
	s.SetReady(context.Background(), false)
	assert.False(t, s.Ready())

	assert.Equal(t, []model.AvailabilityState{model.ReadinessAccepting, model.ReadinessRefusing}, rec.states())
}

func TestNotifierErrorKeepsFlag(t *testing.T) {
	s := NewState(&recordingNotifier{err: errors.New("broker down")})
	s.SetLive(context.Background(), false)
	assert.False(t, s.Live())
}

func TestInitialize(t *testing.T) {
	rec := &recordingNotifier{}
	s := NewState(rec)

	Initialize(context.Background(), s)

	assert.Equal(t, model.HealthStatus{Live: true, Ready: true}, s.Status())
	assert.Equal(t, []model.AvailabilityState{model.ReadinessAccepting, model.LivenessCorrect}, rec.states())
}

func TestBus(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	assert.Len(t, b.subscribers, 1)

	tr := model.Transition{Kind: model.Readiness, State: model.ReadinessRefusing, At: epoch}
	require.NoError(t, b.Notify(context.Background(), tr))
	assert.Equal(t, tr, <-ch)

	b.Unsubscribe(ch)
	assert.Empty(t, b.subscribers)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()

	for i := 0; i < defaultBufferSize+10; i++ {
		require.NoError(t, b.Notify(context.Background(), model.Transition{Kind: model.Liveness}))
	}
	assert.Len(t, ch, defaultBufferSize)

	b.Close()
	assert.Empty(t, b.subscribers)
}

func TestWatch(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan model.Transition, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, ch, func(t model.Transition) { got <- t })
	}()

	s := NewState(b)
	s.SetReady(ctx, true)
	assert.Equal(t, model.ReadinessAccepting, (<-got).State)

	cancel()
	<-done
}

func TestWatchStopsOnClose(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(context.Background(), ch, func(model.Transition) {})
	}()

	b.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after close")
	}
}

type fakePublisher struct {
	topic   string
	qos     int
	retain  bool
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, qos int, retain bool, payload []byte) error {
	p.topic, p.qos, p.retain, p.payload = topic, qos, retain, payload
	return p.err
}

func TestMQTTNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTTNotifier(pub, topic.NewTopicBuilder("vehicle-api/v1"), 1)

	tr := model.Transition{Kind: model.Liveness, State: model.LivenessBroken, At: epoch}
	require.NoError(t, n.Notify(context.Background(), tr))

	assert.Equal(t, "vehicle-api/v1/availability/liveness", pub.topic)
	assert.Equal(t, 1, pub.qos)
	assert.True(t, pub.retain)

	var decoded model.Transition
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, tr, decoded)

	pub.err = errors.New("not connected")
	assert.ErrorIs(t, n.Notify(context.Background(), tr), pub.err)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestAggregate(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("disk gone") })

	tests := []struct {
		name  string
		live  bool
		ready bool
		store Pinger
		want  Status
	}{
		{"up", true, true, ok, StatusUp},
		{"not ready", true, false, ok, StatusOutOfService},
		{"not live", false, true, ok, StatusDown},
		{"not live and not ready", false, false, ok, StatusDown},
		{"store down", true, true, down, StatusDown},
		{"no store", true, true, nil, StatusUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(nil)
			s.SetLive(context.Background(), tt.live)
			s.SetReady(context.Background(), tt.ready)

			r := NewChecker(s, tt.store).Aggregate(context.Background())
			assert.Equal(t, tt.want, r.Status)
			assert.Contains(t, r.Components, "app")
		})
	}
}

func TestAggregateReportsOpenBreaker(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	cfg := resilience.DefaultBreakerConfig("vehicleService")
	cfg.Clock = clk
	b := resilience.NewCircuitBreaker(cfg)
	for i := 0; i < 5; i++ {
		_ = b.Do(func() error { return errors.New("store timeout") })
	}

	s := NewState(nil)
	Initialize(context.Background(), s)

	r := NewChecker(s, nil, b).Aggregate(context.Background())
	assert.Equal(t, StatusUp, r.Status)

	comp := r.Components["circuitBreaker:vehicleService"]
	assert.Equal(t, StatusCircuitOpen, comp.Status)
	assert.Equal(t, resilience.StateOpen, comp.Details["state"])
}
