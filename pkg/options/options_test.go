package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:8080", false},
		{":8080", false},
		{"127.0.0.1:0", false},
		{"8080", true},
		{"127.0.0.1:99999", true},
		{"127.0.0.1:http", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	groups := map[string]IOptions{
		"http":       NewHttpOptions(),
		"store":      NewStoreOptions(),
		"resilience": NewResilienceOptions(),
		"chaos":      NewChaosOptions(),
		"mqtt":       NewMqttOptions(),
		"metrics":    NewMetricsOptions(),
	}

	for name, o := range groups {
		assert.Empty(t, o.Validate(), name)
	}
}

func TestResilienceDefaults(t *testing.T) {
	o := NewResilienceOptions()

	assert.Equal(t, "vehicleService", o.BreakerName)
	assert.Equal(t, 3, o.MaxAttempts)
	assert.Equal(t, 10*time.Second, o.OpenDuration)
	assert.True(t, o.MaskLookupMisses)
}

func TestResilienceValidate(t *testing.T) {
	o := NewResilienceOptions()
	o.MinimumCalls = 20
	o.FailureRateThreshold = 0
	o.MaxAttempts = 0

	assert.Len(t, o.Validate(), 3)
}

func TestStoreValidate(t *testing.T) {
	o := NewStoreOptions()
	o.Backend = "postgres"
	require.Len(t, o.Validate(), 1)

	o.Backend = StoreBackendBadger
	o.Path = ""
	assert.Len(t, o.Validate(), 1)

	o.InMemory = true
	assert.Empty(t, o.Validate())
}

func TestMqttDisabledByDefault(t *testing.T) {
	o := NewMqttOptions()
	assert.False(t, o.Enabled())

	o.Broker = "not a url"
	assert.NotEmpty(t, o.Validate())

	o.Broker = "tcp://localhost:1883"
	assert.Empty(t, o.Validate())

	cfg := o.ToClientConfig()
	assert.Equal(t, uint16(60), cfg.KeepAlive)
	assert.Equal(t, "vehicle-api", cfg.ClientID)
}

func TestChaosFlags(t *testing.T) {
	o := NewChaosOptions()
	fs := pflag.NewFlagSet("chaos", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--chaos.enabled", "--chaos.level=5", "--chaos.watch-service=false"}))

	assert.True(t, o.Enabled)
	assert.Equal(t, 5, o.Level)
	assert.False(t, o.WatchService)
	assert.True(t, o.WatchRepository)
	assert.Equal(t, "Simulated exception", o.ExceptionMessage)
}
