package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
)

// browseBuffer bounds the handoff between the resolver and the listener.
const browseBuffer = 8

// Registration is a live published record.
type Registration interface {
	Shutdown()
}

// Responder is the multicast DNS collaborator. Browse must deliver resolved
// records on records and close it once ctx is done.
type Responder interface {
	Register(rec ServiceRecord) (Registration, error)
	Browse(ctx context.Context, service, domain string, records chan<- ServiceRecord) error
}

// ZeroconfResponder publishes and resolves through github.com/grandcat/zeroconf.
type ZeroconfResponder struct {
	// Interfaces restricts multicast to these NICs; nil means all.
	Interfaces []net.Interface
}

func NewZeroconfResponder(ifaces []net.Interface) *ZeroconfResponder {
	return &ZeroconfResponder{Interfaces: ifaces}
}

func (z *ZeroconfResponder) Register(rec ServiceRecord) (Registration, error) {
	ips := make([]string, 0, len(rec.IPv4))
	for _, ip := range rec.IPv4 {
		ips = append(ips, ip.String())
	}

	server, err := zeroconf.RegisterProxy(rec.Instance, rec.Service, rec.Domain, rec.Port, rec.HostName, ips, rec.Text, z.Interfaces)
	if err != nil {
		return nil, fmt.Errorf("could not register service: %w", err)
	}
	return server, nil
}

func (z *ZeroconfResponder) Browse(ctx context.Context, service, domain string, records chan<- ServiceRecord) error {
	opts := []zeroconf.ClientOption{zeroconf.SelectIPTraffic(zeroconf.IPv4)}
	if len(z.Interfaces) > 0 {
		opts = append(opts, zeroconf.SelectIfaces(z.Interfaces))
	}

	resolver, err := zeroconf.NewResolver(opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, browseBuffer)
	if err := resolver.Browse(ctx, service, domain, entries); err != nil {
		return fmt.Errorf("failed to browse: %w", err)
	}

	// The resolver closes entries when ctx is done. Keep draining after
	// cancellation so it never blocks on a send.
	go func() {
		defer close(records)
		for entry := range entries {
			if ctx.Err() != nil {
				continue
			}
			rec := ServiceRecord{
				Instance: entry.Instance,
				Service:  entry.Service,
				Domain:   entry.Domain,
				HostName: entry.HostName,
				Port:     entry.Port,
				IPv4:     entry.AddrIPv4,
				Text:     entry.Text,
			}
			select {
			case records <- rec:
			case <-ctx.Done():
			}
		}
	}()

	return nil
}
