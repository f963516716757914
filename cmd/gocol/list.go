package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/col"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the items a console offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Logger.Close()

			var md *domain.Metadata
			if cached {
				md, err = cachedManifest(a.Cache, opts.console)
				if err != nil {
					return err
				}
			} else {
				console, err := resolveConsole(cmd.Context(), a, opts)
				if err != nil {
					return err
				}

				md, err = col.ForConsole(console, a.Logger).GetMetadata(cmd.Context())
				if err != nil {
					return &domain.TransferError{Step: domain.StepMetadata, Chunk: -1, Err: err}
				}
				if err := a.Cache.Put(console.ID, md); err != nil {
					a.Logger.Warn("Could not cache manifest: %v", err)
				}
			}

			printItems(md)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "print the last manifest fetched from --console")
	return cmd
}

func cachedManifest(c app.ManifestCache, consoleID string) (*domain.Metadata, error) {
	if consoleID == "" {
		return nil, fmt.Errorf("--cached needs --console <id>")
	}
	if !c.Exists(consoleID) {
		return nil, fmt.Errorf("no cached manifest for %s; run list without --cached first", consoleID)
	}
	return c.Get(consoleID)
}

func printItems(md *domain.Metadata) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tSTORE ID\tSIZE\tAVAILABILITY")
	for _, it := range md.Items {
		size := "?"
		if it.Size > 0 {
			size = humanize.Bytes(uint64(it.Size))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Type, it.Name(), it.OneStoreProductID, size, it.Availability)
	}
	tw.Flush()
}
