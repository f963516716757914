package main

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/cache"
	"github.com/datallboy/gocol/internal/discovery"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/config"
	"github.com/datallboy/gocol/internal/infra/logger"
	"github.com/datallboy/gocol/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	configPath string
	address    string
	console    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "gocol",
		Short:         "Discover Xbox consoles on the LAN and transfer their packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")
	pf.StringVar(&opts.address, "address", "", "console IPv4 address; skips discovery")
	pf.StringVar(&opts.console, "console", "", "pick a discovered console by id or name")
	pf.Int("port", 0, "console transfer port")
	pf.Duration("timeout", 0, "discovery timeout")
	pf.String("policy", "", "discovery policy: first or all")
	pf.String("log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newDiscoverCmd(opts),
		newListCmd(opts),
		newDownloadCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
	)

	return root
}

// changedFlags maps config keys to the flags that were explicitly set, so
// unset flags never shadow the file or environment.
func changedFlags(cmd *cobra.Command, keys map[string]string) map[string]*pflag.Flag {
	out := make(map[string]*pflag.Flag)
	for key, name := range keys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			out[key] = f
		}
	}
	return out
}

var commonFlagKeys = map[string]string{
	"port":                "port",
	"discovery.timeout":   "timeout",
	"discovery.policy":    "policy",
	"log.level":           "log-level",
	"download.out_dir":    "out",
	"download.chunk_size": "chunk-size",
	"server.content_dir":  "dir",
	"server.manifest":     "manifest",
	"console.name":        "name",
	"console.id":          "id",
}

// setup loads configuration and builds the shared context for a command.
func setup(cmd *cobra.Command, opts *rootOptions) (*app.Context, error) {
	cfg, err := config.Load(opts.configPath, changedFlags(cmd, commonFlagKeys))
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	a := app.NewContext(cfg, log)
	a.Cache = &cache.FileCache{Dir: cfg.Cache.Dir}
	return a, nil
}

// openStore attaches the history store. A store failure only costs history.
func openStore(a *app.Context) {
	if a.Config.Store.DSN == "" {
		return
	}
	s, err := store.Open(a.Config.Store.DSN)
	if err != nil {
		a.Logger.Warn("Transfer history disabled: %v", err)
		return
	}
	a.Store = s
}

func discoverConsoles(ctx context.Context, a *app.Context) ([]domain.Console, error) {
	policy, err := discovery.ParsePolicy(a.Config.Discovery.Policy)
	if err != nil {
		return nil, err
	}

	d := discovery.NewDiscoverer(discovery.NewZeroconfResponder(nil), a.Logger, a.Config.Discovery.Timeout, policy)
	a.Logger.Info("Browsing for %s.%s (policy %s, timeout %s)", domain.ServiceType, domain.ServiceDomain, policy, a.Config.Discovery.Timeout)
	return d.Discover(ctx)
}

// resolveConsole returns the console named by --address, or the one picked
// from discovery.
func resolveConsole(ctx context.Context, a *app.Context, opts *rootOptions) (domain.Console, error) {
	if opts.address != "" {
		ip := net.ParseIP(opts.address)
		if ip == nil || ip.To4() == nil {
			return domain.Console{}, fmt.Errorf("--address %q is not an IPv4 address", opts.address)
		}
		id := opts.console
		if id == "" {
			id = opts.address
		}
		return domain.Console{Address: ip.To4(), Port: a.Config.Port, ID: id, Name: id}, nil
	}

	consoles, err := discoverConsoles(ctx, a)
	if err != nil {
		return domain.Console{}, err
	}

	if opts.console == "" {
		return consoles[0], nil
	}
	for _, c := range consoles {
		if strings.EqualFold(c.ID, opts.console) || strings.EqualFold(c.Name, opts.console) {
			return c, nil
		}
	}
	return domain.Console{}, fmt.Errorf("console %q not found among %d discovered", opts.console, len(consoles))
}
