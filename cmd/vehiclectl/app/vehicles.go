package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/autopeer-io/vehicle-api/internal/vehicleapi/core/model"
)

func newVehiclesCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vehicles",
		Aliases: []string{"vehicle", "v"},
		Short:   "Read the vehicle catalog",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every vehicle",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listVehicles(cmd.Context(), g.client(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "get ID",
			Short: "Show one vehicle",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid vehicle id %q", args[0])
				}
				return getVehicle(cmd.Context(), g.client(), id, cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func listVehicles(ctx context.Context, c *client, w io.Writer) error {
	var vehicles []model.Vehicle
	if err := c.do(ctx, http.MethodGet, "/api/vehicles", nil, &vehicles); err != nil {
		return err
	}
	return renderVehicles(w, vehicles...)
}

func getVehicle(ctx context.Context, c *client, id int64, w io.Writer) error {
	v := model.Vehicle{}
	if err := c.do(ctx, http.MethodGet, "/api/vehicles/"+strconv.FormatInt(id, 10), nil, &v); err != nil {
		return err
	}
	// A masked lookup miss comes back as an empty record.
	if v.ID == 0 {
		return fmt.Errorf("vehicle %d not found", id)
	}
	return renderVehicles(w, v)
}

func renderVehicles(w io.Writer, vehicles ...model.Vehicle) error {
	t := newTable("ID", "BRAND", "MODEL", "YEAR", "COLOR", "PLATE", "PRICE")
	for _, v := range vehicles {
		price := "-"
		if v.Price != nil {
			price = strconv.FormatFloat(*v.Price, 'f', 2, 64)
		}
		t.AddRow(v.ID, v.Brand, v.Model, v.Year, v.Color, v.Plate, price)
	}
	return flush(w, t)
}
