package app

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	server  string
	timeout time.Duration
}

// NewCommand returns the vehiclectl root command.
func NewCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "vehiclectl",
		Short:         "Inspect and drive a running vehicle-api server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringVar(&g.server, "server", "http://127.0.0.1:8080", "Base URL of the vehicle-api server.")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 10*time.Second, "Timeout of a single request.")

	cmd.AddCommand(
		newHealthCommand(g),
		newChaosCommand(g),
		newVehiclesCommand(g),
	)

	return cmd
}

func (g *globalOptions) client() *client {
	return newClient(g.server, g.timeout)
}
