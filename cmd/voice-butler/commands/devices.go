package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func devicesCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List configured devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if !probe {
				fmt.Fprintln(tw, "NAME\tKIND\tDRIVER\tADDRESS")
				for _, d := range cfg.DeviceSpecs() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.Driver, d.Address)
				}
				return nil
			}

			registry, err := newRegistry(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer registry.Close()

			fmt.Fprintln(tw, "NAME\tKIND\tLINE\tSIMULATED")
			for _, s := range registry.Snapshot() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", s.Device, s.Kind, s.Line, s.Simulated)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "open each device and report whether it is simulated")
	return cmd
}
