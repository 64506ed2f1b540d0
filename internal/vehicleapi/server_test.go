package vehicleapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/vehicle-api/pkg/options"
)

func testConfig(backend string) *Config {
	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = "127.0.0.1:0"

	storeOpts := options.NewStoreOptions()
	storeOpts.Backend = backend
	storeOpts.InMemory = true

	return &Config{
		HttpOptions:       httpOpts,
		StoreOptions:      storeOpts,
		ResilienceOptions: options.NewResilienceOptions(),
		ChaosOptions:      options.NewChaosOptions(),
		MetricsOptions:    options.NewMetricsOptions(),
		MqttOptions:       options.NewMqttOptions(),
	}
}

func TestServerRunsUntilCancelled(t *testing.T) {
	for _, backend := range []string{options.StoreBackendMemory, options.StoreBackendBadger} {
		t.Run(backend, func(t *testing.T) {
			s, err := testConfig(backend).NewServer()
			require.NoError(t, err)
			assert.Nil(t, s.mqtt, "mqtt stays off without a broker")

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- s.Run(ctx) }()

			require.Eventually(t, func() bool {
				st := s.health.Status()
				return st.Live && st.Ready
			}, 2*time.Second, 5*time.Millisecond)

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	}
}

func TestServerRejectsBadBroker(t *testing.T) {
	cfg := testConfig(options.StoreBackendMemory)
	cfg.MqttOptions.Broker = "not a url"

	_, err := cfg.NewServer()
	assert.Error(t, err)
}

func TestMQTTClientID(t *testing.T) {
	cfg := testConfig(options.StoreBackendMemory)
	assert.Equal(t, "vehicle-api", cfg.mqttClientID())

	cfg.MqttOptions.ClientID = ""
	assert.Contains(t, cfg.mqttClientID(), "vehicle-api-")
}
