package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/sattrack/model"
)

func newTLEsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tles",
		Short: "Manage satellite TLE entries",
	}

	var all, asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List visible TLE entries (--all includes hidden ones)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			records := tles.GetAll()
			if all {
				records = tles.Entries()
			}
			return printTLEs(a.out, records, asJSON)
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "include entries hidden from the map")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	add := &cobra.Command{
		Use:   "add NAME LINE1 LINE2",
		Short: "Add a TLE entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			if !tles.Add(model.TLEEntry{Name: args[0], TLE1: args[1], TLE2: args[2]}) {
				return fmt.Errorf("TLE %q was not added: blank name or already present", args[0])
			}
			fmt.Fprintf(a.out, "added TLE %q\n", args[0])
			return nil
		},
	}
	add.Flags().SetInterspersed(false)

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a two- or three-line TLE feed (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			entries, err := model.ParseTLEFeed(r)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			added := tles.Import(entries)
			fmt.Fprintf(a.out, "imported %d of %d TLE entries\n", added, len(entries))
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle NAME",
		Short: "Flip whether an entry is shown on the map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			if !tles.ToggleVisibility(args[0]) {
				return fmt.Errorf("no TLE named %q", args[0])
			}
			rec, _ := tles.Get(args[0])
			fmt.Fprintf(a.out, "%s visible: %t\n", rec.Name, rec.VisibleOnMap)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a TLE entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			if !tles.Remove(args[0]) {
				return fmt.Errorf("no TLE named %q", args[0])
			}
			fmt.Fprintf(a.out, "removed TLE %q\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every TLE entry, hidden ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tles, closeStore, err := a.registries()
			if err != nil {
				return err
			}
			defer closeStore()

			n := tles.Len()
			tles.ClearAll()
			fmt.Fprintf(a.out, "cleared %d TLE entries\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, add, importCmd, toggle, remove, clearCmd)
	return cmd
}

func printTLEs(w io.Writer, records []model.TLERecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVISIBLE\tLINE 1")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%t\t%s\n", r.Name, r.VisibleOnMap, r.TLE1)
	}
	return tw.Flush()
}
