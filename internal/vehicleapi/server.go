package vehicleapi

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/vehicle-api/internal/pkg/metrics"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/chaos"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/service"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/health"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/server"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/server/http"
	"github.com/autopeer-io/vehicle-api/pkg/log"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt/topic"
)

const disconnectTimeout = 3 * time.Second

// VehicleAPIServer is the assembled service.
type VehicleAPIServer struct {
	manager *server.Manager
	health  *health.State
	mqtt    mqtt.Client
	closers []func() error
}

// NewServer wires the record store, the service stack, fault injection, health and metrics.
//
// A request crosses: HTTP (restController assaults) -> resilience policy -> service assaults
// -> vehicle service -> repository assaults -> record store.
func (cfg *Config) NewServer() (*VehicleAPIServer, error) {
	s := &VehicleAPIServer{manager: server.NewManager()}

	// 1. Infrastructure: record store
	repo, db, err := InitializeStore(cfg.StoreOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to init record store: %w", err)
	}
	if db != nil {
		s.closers = append(s.closers, db.Close)
		s.manager.Add(server.Task(db.RunGC))
	}

	// 2. Observability
	m := metrics.New()
	s.manager.Add(server.Task(func(ctx context.Context) {
		m.RefreshVehicles(ctx, repo, cfg.MetricsOptions.RefreshInterval)
	}))

	// 3. Fault injection
	ctrl := chaos.NewController(cfg.ChaosOptions)
	assaulter := chaos.NewAssaulter(ctrl)

	// 4. Core service wrapped by the resilience policy
	policy := InitializePolicy(cfg.ResilienceOptions, m,
		func(name string, _, to resilience.State) { m.SetBreakerState(name, to.Gauge()) },
		service.IsFailure, service.IsRetryable)
	m.SetBreakerState(policy.Breaker().Name(), resilience.StateClosed.Gauge())

	svc := service.NewResilient(
		chaos.Service(service.New(chaos.Repository(repo, assaulter)), assaulter),
		policy,
		cfg.ResilienceOptions.MaskLookupMisses,
	)

	// 5. Health: transitions go to the bus, subscribers forward them.
	bus := health.NewBus()
	s.health = health.NewState(bus)
	s.closers = append(s.closers, func() error { bus.Close(); return nil })

	availability := bus.Subscribe()
	s.manager.Add(server.Task(func(ctx context.Context) {
		health.Watch(ctx, availability, func(t model.Transition) {
			m.SetAvailability(string(t.Kind), t.State.Up())
		})
	}))

	if cfg.MqttOptions.Enabled() {
		topics := topic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)
		client, err := cfg.InitializeMQTTClient(topics)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to init mqtt client: %w", err)
		}
		s.mqtt = client

		notifier := health.NewMQTTNotifier(client, topics, cfg.MqttOptions.QoS)
		announcements := bus.Subscribe()
		s.manager.Add(server.Task(func(ctx context.Context) {
			health.Watch(ctx, announcements, func(t model.Transition) {
				if err := notifier.Notify(ctx, t); err != nil {
					log.Warn("Availability transition not published", "kind", t.Kind, "state", t.State, "error", err)
				}
			})
		}))
	}

	// 6. Ingress
	router := http.NewRouter(http.Deps{
		Vehicles:    svc,
		Chaos:       ctrl,
		Assaulter:   assaulter,
		Health:      s.health,
		Checker:     health.NewChecker(s.health, repo, policy.Breaker()),
		Metrics:     m.Handler(),
		MetricsPath: cfg.MetricsOptions.Path,
	})
	s.manager.Add(http.NewServer(cfg.HttpOptions, router))

	return s, nil
}

// Run starts every component, marks the service ready and live, and blocks until ctx is done.
func (s *VehicleAPIServer) Run(ctx context.Context) error {
	defer s.close()

	if s.mqtt != nil {
		if err := s.mqtt.Start(ctx); err != nil {
			return fmt.Errorf("failed to start mqtt client: %w", err)
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
			defer cancel()
			s.mqtt.Disconnect(dctx)
		}()
	}

	s.manager.Add(server.Task(func(ctx context.Context) {
		health.Initialize(ctx, s.health)
	}))

	return s.manager.Start(ctx)
}

func (s *VehicleAPIServer) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Error(err, "Failed to close resource")
		}
	}
	s.closers = nil
}
