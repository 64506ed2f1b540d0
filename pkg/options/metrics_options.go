package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

type MetricsOptions struct {
	Path string `json:"path" mapstructure:"path"`

	// RefreshInterval is how often the active vehicle gauge is recomputed from the store.
	RefreshInterval time.Duration `json:"refresh-interval" mapstructure:"refresh-interval"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Path:            "/metrics",
		RefreshInterval: 30 * time.Second,
	}
}

func (o *MetricsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.RefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("--metrics.refresh-interval must be positive, got %s", o.RefreshInterval))
	}
	if len(o.Path) == 0 || o.Path[0] != '/' {
		errs = append(errs, fmt.Errorf("--metrics.path must start with '/', got %q", o.Path))
	}
	return errs
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, "metrics.path", o.Path, "HTTP path serving Prometheus metrics.")
	fs.DurationVar(&o.RefreshInterval, "metrics.refresh-interval", o.RefreshInterval, "Refresh interval of the active vehicles gauge.")
}
