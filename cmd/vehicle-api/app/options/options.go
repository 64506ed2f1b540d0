package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi"
	"github.com/autopeer-io/vehicle-api/pkg/app"
	"github.com/autopeer-io/vehicle-api/pkg/log"
	"github.com/autopeer-io/vehicle-api/pkg/options"
)

type ServerOptions struct {
	HttpOptions       *options.HttpOptions       `json:"http" mapstructure:"http"`
	StoreOptions      *options.StoreOptions      `json:"store" mapstructure:"store"`
	ResilienceOptions *options.ResilienceOptions `json:"resilience" mapstructure:"resilience"`
	ChaosOptions      *options.ChaosOptions      `json:"chaos" mapstructure:"chaos"`
	MetricsOptions    *options.MetricsOptions    `json:"metrics" mapstructure:"metrics"`
	MqttOptions       *options.MqttOptions       `json:"mqtt" mapstructure:"mqtt"`
	Log               *log.Options               `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ServerOptions)(nil)

func NewServerOptions() *ServerOptions {
	o := &ServerOptions{
		HttpOptions:       options.NewHttpOptions(),
		StoreOptions:      options.NewStoreOptions(),
		ResilienceOptions: options.NewResilienceOptions(),
		ChaosOptions:      options.NewChaosOptions(),
		MetricsOptions:    options.NewMetricsOptions(),
		MqttOptions:       options.NewMqttOptions(),
		Log:               log.NewOptions(),
	}

	return o
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.ResilienceOptions.AddFlags(fss.FlagSet("resilience"))
	o.ChaosOptions.AddFlags(fss.FlagSet("chaos"))
	o.MetricsOptions.AddFlags(fss.FlagSet("metrics"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

// Complete names the logger after the binary unless configured otherwise.
func (o *ServerOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = "vehicle-api"
	}
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.ResilienceOptions.Validate()...)
	errs = append(errs, o.ChaosOptions.Validate()...)
	errs = append(errs, o.MetricsOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) Config() (*vehicleapi.Config, error) {
	return &vehicleapi.Config{
		HttpOptions:       o.HttpOptions,
		StoreOptions:      o.StoreOptions,
		ResilienceOptions: o.ResilienceOptions,
		ChaosOptions:      o.ChaosOptions,
		MetricsOptions:    o.MetricsOptions,
		MqttOptions:       o.MqttOptions,
	}, nil
}
