package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/sattrack/model"
)

func newObserversCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "observers",
		Aliases: []string{"obs"},
		Short:   "List, add or remove ground observers",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List observers in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			observers, _, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()
			return printObservers(a.out, observers.List(), asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	add := &cobra.Command{
		Use:   "add NAME LAT LON",
		Short: "Add an observer; negative coordinates may follow the name directly",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("latitude %q is not a number", args[1])
			}
			lon, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("longitude %q is not a number", args[2])
			}

			observers, _, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			obs, err := observers.Add(model.NewObserverInput(args[0], lat, lon))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "added observer %q (%g, %g)\n", obs.Name, obs.Latitude, obs.Longitude)
			return nil
		},
	}
	// Stop flag parsing after NAME so "-33.9" is read as a coordinate.
	add.Flags().SetInterspersed(false)

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove an observer (no-op if absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observers, _, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			if observers.Remove(args[0]) {
				fmt.Fprintf(a.out, "removed observer %q\n", args[0])
			} else {
				fmt.Fprintf(a.out, "no observer named %q\n", args[0])
			}
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func printObservers(w io.Writer, list []model.Observer, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLATITUDE\tLONGITUDE")
	for _, o := range list {
		fmt.Fprintf(tw, "%s\t%g\t%g\n", o.Name, o.Latitude, o.Longitude)
	}
	return tw.Flush()
}
