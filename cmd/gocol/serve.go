package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/datallboy/gocol/internal/api"
	"github.com/datallboy/gocol/internal/catalog"
	"github.com/datallboy/gocol/internal/discovery"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noAnnounce bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Announce as a console and serve a directory over the transfer protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Logger.Close()

			cfg := a.Config
			cat, err := catalog.New(catalog.Options{
				Dir:      cfg.Server.ContentDir,
				Manifest: cfg.Server.Manifest,
				DriveID:  cfg.Server.DriveID,
			})
			if err != nil {
				return err
			}
			a.Logger.Info("Serving %d items from %s", len(cat.Names()), cfg.Server.ContentDir)

			addr := cfg.Console.Address
			if opts.address != "" {
				addr = opts.address
			}
			ip, err := announceAddress(addr)
			if err != nil {
				return err
			}

			console := domain.Console{Address: ip, Port: cfg.Port, ID: cfg.Console.ID, Name: cfg.Console.Name}

			server := &http.Server{
				Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
				Handler:           api.NewRouter(a, cat),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				a.Logger.Info("Content server listening on %s", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if !noAnnounce {
				announcer := discovery.NewAnnouncer(discovery.NewZeroconfResponder(nil), a.Logger, cfg.Discovery.AnnounceTTL)
				g.Go(func() error {
					// re-register whenever the TTL runs out
					for ctx.Err() == nil {
						if err := announcer.Announce(ctx, console); err != nil {
							return err
						}
					}
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noAnnounce, "no-announce", false, "serve without publishing an mDNS record")
	cmd.Flags().String("dir", "", "directory of items to serve")
	cmd.Flags().String("manifest", "", "JSON manifest to serve instead of scanning --dir")
	cmd.Flags().String("name", "", "console name to announce")
	cmd.Flags().String("id", "", "console id to announce")
	return cmd
}

// announceAddress parses addr, or picks the first non-loopback IPv4 address
// of an interface that is up.
func announceAddress(addr string) (net.IP, error) {
	if addr != "" {
		ip := net.ParseIP(addr)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("%q is not an IPv4 address", addr)
		}
		return ip.To4(), nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLoopback() {
				return ip4, nil
			}
		}
	}

	return nil, errors.New("no non-loopback IPv4 interface found; set console.address")
}
