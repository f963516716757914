package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Logger.Close()

			openStore(a)
			if a.Store == nil {
				return errors.New("no history store configured (store.dsn)")
			}
			defer a.Close()

			transfers, err := a.Store.ListTransfers(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCONSOLE\tITEM\tSTATE\tSIZE\tSTARTED\tERROR")
			for _, t := range transfers {
				started := "-"
				if !t.StartedAt.IsZero() {
					started = humanize.RelTime(t.StartedAt, time.Now(), "ago", "from now")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.ConsoleName, t.FileName, t.State,
					humanize.Bytes(uint64(max(t.TotalBytes, 0))), started, t.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of transfers to show; 0 for all")
	return cmd
}
