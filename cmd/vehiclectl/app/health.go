package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/health"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt"
	"github.com/autopeer-io/vehicle-api/pkg/mqtt/topic"
)

func newHealthCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the aggregate health of the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showHealth(cmd.Context(), g.client(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(
		newSetHealthCommand(g, "live"),
		newSetHealthCommand(g, "ready"),
		newWatchCommand(),
	)
	return cmd
}

func showHealth(ctx context.Context, c *client, w io.Writer) error {
	report := health.Report{}
	// A degraded service answers 503 with the same body.
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &report, http.StatusServiceUnavailable); err != nil {
		return err
	}

	t := newTable("COMPONENT", "STATUS", "DETAILS")
	for _, name := range sortedKeys(report.Components) {
		comp := report.Components[name]
		details := ""
		if len(comp.Details) > 0 {
			b, _ := json.Marshal(comp.Details)
			details = string(b)
		}
		t.AddRow(name, paint(string(comp.Status)), details)
	}
	t.AddRow("", "", "")
	t.AddRow("OVERALL", paint(string(report.Status)), "")
	return flush(w, t)
}

func newSetHealthCommand(g *globalOptions, kind string) *cobra.Command {
	return &cobra.Command{
		Use:       kind + " true|false",
		Short:     fmt.Sprintf("Set the %s flag of the server", kind),
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"true", "false"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "true" && args[0] != "false" {
				return fmt.Errorf("expected true or false, got %q", args[0])
			}
			if err := g.client().do(cmd.Context(), http.MethodPost, "/api/health/"+kind+"/"+args[0], nil, nil); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s\n", kind, paint(args[0]))
			return err
		},
	}
}

type watchOptions struct {
	broker    string
	topicRoot string
	clientID  string
	username  string
	password  string
	qos       int
}

func newWatchCommand() *cobra.Command {
	o := &watchOptions{}
	hostname, _ := os.Hostname()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow availability changes announced over MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := mqtt.NewClient(&mqtt.ClientConfig{
				BrokerURL:  o.broker,
				ClientID:   o.clientID,
				Username:   o.username,
				Password:   o.password,
				CleanStart: true,
			})
			if err != nil {
				return err
			}
			return watchAvailability(cmd.Context(), mc, topic.NewTopicBuilder(o.topicRoot), o.qos, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&o.broker, "broker", "mqtt://127.0.0.1:1883", "URL of the MQTT broker the server announces to.")
	cmd.Flags().StringVar(&o.topicRoot, "topic-root", "vehicle-api/v1", "Topic prefix configured on the server.")
	cmd.Flags().StringVar(&o.clientID, "client-id", "vehiclectl-"+hostname, "MQTT client ID.")
	cmd.Flags().StringVar(&o.username, "username", "", "The username for MQTT authentication.")
	cmd.Flags().StringVar(&o.password, "password", "", "The password for MQTT authentication.")
	cmd.Flags().IntVar(&o.qos, "qos", 1, "QoS of the subscription.")
	return cmd
}

// watchAvailability prints one line per availability message until ctx is cancelled.
func watchAvailability(ctx context.Context, c mqtt.Client, topics *topic.TopicBuilder, qos int, w io.Writer) error {
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt client: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		c.Disconnect(dctx)
	}()

	if err := c.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	lines := make(chan string, 16)
	emit := func(line string) {
		select {
		case lines <- line:
		case <-ctx.Done():
		}
	}
	handler := func(_ context.Context, t string, payload []byte) {
		var tr model.Transition
		if err := json.Unmarshal(payload, &tr); err != nil {
			emit(fmt.Sprintf("%-10s <malformed: %v>", topic.KindOf(t), err))
			return
		}
		emit(fmt.Sprintf("%s  %-10s %s", tr.At.Format(time.RFC3339), topic.KindOf(t), paint(string(tr.State))))
	}

	if err := c.Subscribe(ctx, topics.AvailabilityWildcard(), qos, handler); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
}
