package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"
	"k8s.io/klog/v2"

	"github.com/autopeer-io/vehicle-api/cmd/vehicle-api/app/options"
	"github.com/autopeer-io/vehicle-api/pkg/app"
	"github.com/autopeer-io/vehicle-api/pkg/log"
)

const (
	commandName = "vehicle-api"
	commandDesc = `The vehicle API serves CRUD operations over a vehicle catalog.
Every operation runs behind a circuit breaker with retries and fallbacks,
faults can be injected at runtime through the chaos monkey endpoints, and
liveness and readiness can be flipped by hand to exercise orchestrators.`
)

// NewApp creates the vehicle-api command.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Launch the resilient vehicle API server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithEnvPrefix("VEHICLE_API"),
		app.WithReloadFunc(app.ReloadLogLevel),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		log.Init(opts.Log)
		klog.SetLogger(log.Logr())

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewServer()
		if err != nil {
			return fmt.Errorf("failed to create vehicle api server: %w", err)
		}

		return server.Run(ctx)
	}
}
