package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/datallboy/gocol/internal/col"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/engine"
	"github.com/spf13/cobra"
)

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "download [item...]",
		Short: "Download items by path, package family name or store id",
		Long: "Download one or more items from a console. With no arguments the first\n" +
			"item of the manifest is downloaded; --all downloads every item.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Logger.Close()

			openStore(a)
			defer a.Close()

			ctx := cmd.Context()
			console, err := resolveConsole(ctx, a, opts)
			if err != nil {
				return err
			}

			client := col.ForConsole(console, a.Logger)
			md, err := client.GetMetadata(ctx)
			if err != nil {
				return &domain.TransferError{Step: domain.StepMetadata, Chunk: -1, Err: err}
			}
			if err := a.Cache.Put(console.ID, md); err != nil {
				a.Logger.Warn("Could not cache manifest: %v", err)
			}

			items, err := selectItems(md, args, all)
			if err != nil {
				return err
			}

			d := engine.NewDownloader(client, a.Logger, a.Config.Download.OutDir, a.Config.Download.ChunkSize)
			d.OnStateChange = progressObserver(ctx)

			q := engine.NewQueue(d, a.Store, console, a.Logger)

			for _, it := range items {
				if _, err := q.Add(it); err != nil {
					return err
				}
			}

			runErr := q.Run(ctx)
			if len(items) > 1 {
				if err := engine.WriteSummary(os.Stdout, q.Items()); err != nil {
					a.Logger.Warn("Could not print summary: %v", err)
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "download every item in the manifest")
	cmd.Flags().StringP("out", "o", "", "output directory")
	cmd.Flags().Int64("chunk-size", 0, "bytes per range request")
	return cmd
}

func selectItems(md *domain.Metadata, refs []string, all bool) ([]domain.MetadataItem, error) {
	if len(md.Items) == 0 {
		return nil, fmt.Errorf("console offers no items")
	}
	if all {
		return md.Items, nil
	}
	if len(refs) == 0 {
		return md.Items[:1], nil
	}

	items := make([]domain.MetadataItem, 0, len(refs))
	for _, ref := range refs {
		it, ok := md.Find(ref)
		if !ok {
			return nil, fmt.Errorf("no item matches %q", ref)
		}
		items = append(items, it)
	}
	return items, nil
}

// progressObserver draws a progress line while each transfer downloads.
func progressObserver(parent context.Context) func(*domain.Transfer) {
	var (
		mu     sync.Mutex
		cancel context.CancelFunc
		done   chan struct{}
	)

	return func(t *domain.Transfer) {
		mu.Lock()
		defer mu.Unlock()

		switch {
		case t.State == domain.StateDownloading:
			ctx, c := context.WithCancel(parent)
			cancel, done = c, make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				engine.NewProgress(os.Stdout).Run(ctx, t)
			}(done)
		case t.State.Terminal() && cancel != nil:
			cancel()
			<-done
			cancel, done = nil, nil
		}
	}
}
