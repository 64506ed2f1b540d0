package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"vehicle-api/v1/availability/liveness", "vehicle-api/v1/availability/liveness", true},
		{"vehicle-api/v1/availability/+", "vehicle-api/v1/availability/readiness", true},
		{"vehicle-api/v1/availability/+", "vehicle-api/v1/availability/readiness/extra", false},
		{"vehicle-api/#", "vehicle-api/v1/availability/liveness", true},
		{"vehicle-api/v1/+/liveness", "vehicle-api/v1/availability/readiness", false},
		{"vehicle-api/v1/availability", "vehicle-api/v1/availability/liveness", false},
		{"vehicle-api/#/liveness", "vehicle-api/v1/liveness", false},
		{"vehicle-api/v1/availability/#", "vehicle-api/v1/availability", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matches(tt.filter, tt.topic), "%s vs %s", tt.filter, tt.topic)
	}
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "t"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.AwaitConnection(context.Background()), errNotStarted)
	assert.ErrorIs(t, c.Subscribe(context.Background(), "a/+", 1, nil), errNotStarted)
	c.Disconnect(context.Background())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{})
	require.Error(t, err)

	_, err = NewClient(&ClientConfig{BrokerURL: "localhost"})
	require.Error(t, err)

	c, err := NewClient(&ClientConfig{BrokerURL: "tcp://localhost:1883", ClientID: "t"})
	require.NoError(t, err)

	err = c.Publish(context.Background(), "t", 0, false, nil)
	assert.ErrorIs(t, err, errNotStarted)
}

func TestDefaultConfig(t *testing.T) {
	cfg := &ClientConfig{BrokerURL: "tcp://localhost:1883"}
	setDefaultConfig(cfg)

	assert.Equal(t, uint16(60), cfg.KeepAlive)
	assert.NotZero(t, cfg.ConnectTimeout)
}
