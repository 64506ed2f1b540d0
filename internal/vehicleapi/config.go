package vehicleapi

import (
	"fmt"
	"os"

	"github.com/autopeer-io/vehicle-api/pkg/options"
)

// Config is everything needed to assemble the vehicle API server.
type Config struct {
	HttpOptions       *options.HttpOptions
	StoreOptions      *options.StoreOptions
	ResilienceOptions *options.ResilienceOptions
	ChaosOptions      *options.ChaosOptions
	MetricsOptions    *options.MetricsOptions
	MqttOptions       *options.MqttOptions
}

// mqttClientID defaults the client id to one derived from the host name.
func (cfg *Config) mqttClientID() string {
	if cfg.MqttOptions.ClientID != "" {
		return cfg.MqttOptions.ClientID
	}
	hostname, _ := os.Hostname()
	return fmt.Sprintf("vehicle-api-%s", hostname)
}
