package vehicleapi

import (
	"encoding/json"
	"fmt"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/resilience"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/store/badger"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/store/memory"
	"github.com/autopeer-io/vehicle-api/pkg/log"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt/topic"
	"github.com/autopeer-io/vehicle-api/pkg/options"
)

// InitializeStore opens the configured record store.
func InitializeStore(opts *options.StoreOptions) (core.VehicleRepository, *badger.Store, error) {
	switch opts.Backend {
	case options.StoreBackendBadger:
		s, err := badger.Open(badger.Config{
			Path:           opts.Path,
			InMemory:       opts.InMemory,
			SyncWrites:     opts.SyncWrites,
			GCInterval:     opts.GCInterval,
			GCDiscardRatio: opts.GCDiscardRatio,
		})
		if err != nil {
			log.Error(err, "failed to open badger store", "path", opts.Path)
			return nil, nil, err
		}
		return s, s, nil
	default:
		return memory.New(), nil, nil
	}
}

// InitializePolicy builds the circuit breaker and retrier guarding the vehicle service.
func InitializePolicy(opts *options.ResilienceOptions, recorder resilience.Recorder,
	onStateChange func(name string, from, to resilience.State), isFailure, retryable func(error) bool,
) *resilience.Policy {
	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Name:                 opts.BreakerName,
		WindowSize:           opts.WindowSize,
		MinimumCalls:         opts.MinimumCalls,
		FailureRateThreshold: opts.FailureRateThreshold,
		OpenDuration:         opts.OpenDuration,
		HalfOpenPermitted:    opts.HalfOpenPermittedCalls,
		IsFailure:            isFailure,
		OnStateChange:        onStateChange,
	})

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:    opts.MaxAttempts,
		InitialBackoff: opts.InitialBackoff,
		Factor:         opts.BackoffFactor,
		Jitter:         opts.Jitter,
		Retryable:      retryable,
	})

	return resilience.NewPolicy(breaker, retrier, recorder)
}

// InitializeMQTTClient creates the availability publisher. The broker is told to announce
// a broken liveness if the connection drops without a disconnect.
func (cfg *Config) InitializeMQTTClient(topics *topic.TopicBuilder) (mqtt.Client, error) {
	clientCfg := cfg.MqttOptions.ToClientConfig()
	clientCfg.ClientID = cfg.mqttClientID()

	will, err := json.Marshal(model.Transition{Kind: model.Liveness, State: model.LivenessBroken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode will message: %w", err)
	}
	clientCfg.WillTopic = topics.Availability(topic.KindLiveness)
	clientCfg.WillPayload = will
	clientCfg.WillQoS = byte(cfg.MqttOptions.QoS)
	clientCfg.WillRetain = true

	client, err := mqtt.NewClient(clientCfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}
	return client, nil
}
