package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/chaos"
)

func newChaosCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chaos",
		Short: "Control fault injection",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show whether faults are injected and how",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return chaosCall(cmd.Context(), g.client(), http.MethodGet, "/status", nil, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "enable",
			Short: "Start injecting faults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return chaosCall(cmd.Context(), g.client(), http.MethodPost, "/enable", nil, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop injecting faults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return chaosCall(cmd.Context(), g.client(), http.MethodPost, "/disable", nil, cmd.OutOrStdout())
			},
		},
		newLatencyCommand(g),
		newExceptionsCommand(g),
	)
	return cmd
}

func newLatencyCommand(g *globalOptions) *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "latency true|false",
		Short: "Toggle latency assaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", args[0])
			}
			q := url.Values{}
			q.Set("active", strconv.FormatBool(active))
			q.Set("from", strconv.Itoa(from))
			q.Set("to", strconv.Itoa(to))
			return assaultsCall(cmd.Context(), g.client(), "/assaults/latency", q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&from, "from", chaos.DefaultLatencyFrom, "Lower bound of the injected delay in milliseconds.")
	cmd.Flags().IntVar(&to, "to", chaos.DefaultLatencyTo, "Upper bound of the injected delay in milliseconds.")
	return cmd
}

func newExceptionsCommand(g *globalOptions) *cobra.Command {
	var kind, message string
	cmd := &cobra.Command{
		Use:   "exceptions true|false",
		Short: "Toggle injected failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", args[0])
			}
			q := url.Values{}
			q.Set("active", strconv.FormatBool(active))
			q.Set("exceptionClass", kind)
			q.Set("message", message)
			return assaultsCall(cmd.Context(), g.client(), "/assaults/exceptions", q, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&kind, "type", chaos.DefaultExceptionType, "Fault kind reported by injected failures.")
	cmd.Flags().StringVar(&message, "message", chaos.DefaultExceptionMessage, "Message of injected failures.")
	return cmd
}

func chaosCall(ctx context.Context, c *client, method, path string, q url.Values, w io.Writer) error {
	st := chaos.Status{}
	if err := c.do(ctx, method, "/api/chaos-monkey"+path, q, &st); err != nil {
		return err
	}

	t := newTable()
	t.AddRow("ENABLED:", paint(strconv.FormatBool(st.Enabled)))
	addAssaultRows(t, st.Assaults)
	t.AddRow("WATCHERS:", watchedLayers(st.Watchers))
	return flush(w, t)
}

func assaultsCall(ctx context.Context, c *client, path string, q url.Values, w io.Writer) error {
	a := chaos.Assaults{}
	if err := c.do(ctx, http.MethodPost, "/api/chaos-monkey"+path, q, &a); err != nil {
		return err
	}

	t := newTable()
	addAssaultRows(t, a)
	return flush(w, t)
}

func addAssaultRows(t *uitable.Table, a chaos.Assaults) {
	t.AddRow("LEVEL:", a.Level)
	t.AddRow("LATENCY:", paint(strconv.FormatBool(a.LatencyActive)), fmt.Sprintf("%d-%dms", a.LatencyRangeStart, a.LatencyRangeEnd))
	t.AddRow("EXCEPTIONS:", paint(strconv.FormatBool(a.ExceptionsActive)), a.ExceptionType, a.ExceptionMessage)
	t.AddRow("MEMORY:", paint(strconv.FormatBool(a.MemoryActive)), fmt.Sprintf("%dms", a.MemoryMillisecondsWaitNextIncrease))
}

func watchedLayers(w chaos.Watchers) string {
	var layers []string
	for _, l := range []struct {
		name string
		on   bool
	}{
		{"controller", w.Controller},
		{"restController", w.RestController},
		{"service", w.Service},
		{"repository", w.Repository},
		{"component", w.Component},
	} {
		if l.on {
			layers = append(layers, l.name)
		}
	}
	if len(layers) == 0 {
		return "none"
	}
	return strings.Join(layers, ",")
}
