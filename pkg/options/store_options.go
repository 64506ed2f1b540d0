package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendBadger = "badger"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions selects and configures the vehicle record store.
type StoreOptions struct {
	// Backend is either "memory" or "badger".
	Backend string `json:"backend" mapstructure:"backend"`

	// Path is the badger data directory. Ignored when InMemory is set.
	Path       string `json:"path" mapstructure:"path"`
	InMemory   bool   `json:"in-memory" mapstructure:"in-memory"`
	SyncWrites bool   `json:"sync-writes" mapstructure:"sync-writes"`

	// GCInterval is how often the badger value log is garbage collected. Zero disables it.
	GCInterval     time.Duration `json:"gc-interval" mapstructure:"gc-interval"`
	GCDiscardRatio float64       `json:"gc-discard-ratio" mapstructure:"gc-discard-ratio"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Backend:        StoreBackendMemory,
		Path:           "./data/vehicles",
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	switch o.Backend {
	case StoreBackendMemory:
	case StoreBackendBadger:
		if !o.InMemory && o.Path == "" {
			errs = append(errs, fmt.Errorf("--store.path is required for the badger backend unless --store.in-memory is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("--store.backend must be %q or %q, got %q", StoreBackendMemory, StoreBackendBadger, o.Backend))
	}

	if o.GCInterval < 0 {
		errs = append(errs, fmt.Errorf("--store.gc-interval must not be negative, got %s", o.GCInterval))
	}
	if o.GCDiscardRatio <= 0 || o.GCDiscardRatio >= 1 {
		errs = append(errs, fmt.Errorf("--store.gc-discard-ratio must be in (0, 1), got %v", o.GCDiscardRatio))
	}

	return errs
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "store.backend", o.Backend, "Record store backend: 'memory' or 'badger'.")
	fs.StringVar(&o.Path, "store.path", o.Path, "Data directory for the badger backend.")
	fs.BoolVar(&o.InMemory, "store.in-memory", o.InMemory, "Run the badger backend without touching disk.")
	fs.BoolVar(&o.SyncWrites, "store.sync-writes", o.SyncWrites, "Fsync every badger write.")
	fs.DurationVar(&o.GCInterval, "store.gc-interval", o.GCInterval, "Interval of badger value log GC. Zero disables it.")
	fs.Float64Var(&o.GCDiscardRatio, "store.gc-discard-ratio", o.GCDiscardRatio, "Minimum discardable fraction of a value log file before it is rewritten.")
}
