package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Browse the LAN for consoles offering network transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Logger.Close()

			consoles, err := discoverConsoles(cmd.Context(), a)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID\tADDRESS")
			for _, c := range consoles {
				fmt.Fprintf(tw, "%s\t%s\t%s:%d\n", c.Name, c.ID, c.Address, c.Port)
			}
			return tw.Flush()
		},
	}
}
