package discovery

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNetwork is an in-memory multicast segment: every Browse sees the
// records registered at the time of the call plus the fixed extras.
type fakeNetwork struct {
	mu          sync.Mutex
	live        map[string]ServiceRecord
	extras      []ServiceRecord
	registerErr error
	browseErr   error
	registered  chan struct{}
}

func newFakeNetwork(extras ...ServiceRecord) *fakeNetwork {
	return &fakeNetwork{
		live:       make(map[string]ServiceRecord),
		extras:     extras,
		registered: make(chan struct{}, 1),
	}
}

type fakeRegistration struct {
	net  *fakeNetwork
	name string
}

func (r *fakeRegistration) Shutdown() {
	r.net.mu.Lock()
	defer r.net.mu.Unlock()
	delete(r.net.live, r.name)
}

func (n *fakeNetwork) Register(rec ServiceRecord) (Registration, error) {
	if n.registerErr != nil {
		return nil, n.registerErr
	}
	n.mu.Lock()
	n.live[rec.FullName()] = rec
	n.mu.Unlock()

	select {
	case n.registered <- struct{}{}:
	default:
	}
	return &fakeRegistration{net: n, name: rec.FullName()}, nil
}

func (n *fakeNetwork) Browse(ctx context.Context, service, domain string, records chan<- ServiceRecord) error {
	if n.browseErr != nil {
		return n.browseErr
	}

	n.mu.Lock()
	var snapshot []ServiceRecord
	snapshot = append(snapshot, n.extras...)
	for _, rec := range n.live {
		if rec.Service == service && rec.Domain == domain {
			snapshot = append(snapshot, rec)
		}
	}
	n.mu.Unlock()

	go func() {
		defer close(records)
		for _, rec := range snapshot {
			select {
			case records <- rec:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

func (n *fakeNetwork) liveCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.live)
}

var testConsole = domain.Console{
	Address: net.IPv4(1, 2, 3, 4),
	Port:    4321,
	ID:      "X92348235235",
	Name:    "TESTXBOX",
}

func record(name, id string, ip net.IP) ServiceRecord {
	rec, _ := BuildServiceRecord(domain.Console{Address: ip, Port: domain.ServicePort, ID: id, Name: name})
	return rec
}

func TestBuildServiceRecord(t *testing.T) {
	rec, err := BuildServiceRecord(testConsole)
	require.NoError(t, err)

	assert.Equal(t, "_xboxcol._tcp", rec.Service)
	assert.Equal(t, "local.", rec.Domain)
	assert.Equal(t, "TESTXBOX._xboxcol._tcp.local.", rec.FullName())
	assert.Equal(t, "TESTXBOX.local.", rec.HostName)
	assert.Equal(t, 4321, rec.Port)
	require.Len(t, rec.IPv4, 1)
	assert.True(t, rec.IPv4[0].Equal(net.IPv4(1, 2, 3, 4)))
	assert.False(t, rec.IPv4[0].Equal(net.IPv4(2, 2, 2, 2)))
	assert.Equal(t, []string{"N=TESTXBOX", "U=X92348235235"}, rec.Text)
}

func TestBuildServiceRecordRejectsInvalid(t *testing.T) {
	cases := map[string]func(c *domain.Console){
		"no name": func(c *domain.Console) { c.Name = "" },
		"no id":   func(c *domain.Console) { c.ID = "" },
		"ipv6":    func(c *domain.Console) { c.Address = net.ParseIP("fe80::1") },
		"no ip":   func(c *domain.Console) { c.Address = nil },
		"port":    func(c *domain.Console) { c.Port = 0 },
	}

	for name, mutate := range cases {
		c := testConsole
		mutate(&c)
		_, err := BuildServiceRecord(c)
		assert.ErrorIs(t, err, domain.ErrInvalidRecord, name)
	}
}

func TestDecodeTXT(t *testing.T) {
	rec, err := DecodeTXT([]string{"U=X31299B15E854", "N=XBOX", "txtv=0"})
	require.NoError(t, err)
	assert.Equal(t, TXTRecord{Name: "XBOX", Identifier: "X31299B15E854"}, rec)

	_, err = DecodeTXT([]string{"U=X31299B15E854"})
	var missing *MissingPropertyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "N", missing.Key)
	assert.ErrorIs(t, err, domain.ErrMissingProperty)

	_, err = DecodeTXT([]string{"N=XBOX", "U="})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "U", missing.Key)

	_, err = DecodeTXT(nil)
	assert.ErrorIs(t, err, domain.ErrMissingProperty)
}

func TestTXTRoundTrip(t *testing.T) {
	in := TXTRecord{Name: "XBOX=ONE", Identifier: "X1"}
	out, err := DecodeTXT(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDiscoverFirst(t *testing.T) {
	network := newFakeNetwork(record("XBOX", "X31299B15E854", net.IPv4(10, 0, 0, 229)))
	d := NewDiscoverer(network, logger.Discard(), time.Second, PolicyFirst)

	consoles, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, consoles, 1)

	c := consoles[0]
	assert.Equal(t, "XBOX", c.Name)
	assert.Equal(t, "X31299B15E854", c.ID)
	assert.Equal(t, domain.ServicePort, c.Port)
	assert.Equal(t, "10.0.0.229", c.Address.String())
}

func TestDiscoverAllDeduplicates(t *testing.T) {
	network := newFakeNetwork(
		record("XBOX", "X1", net.IPv4(10, 0, 0, 1)),
		record("XBOX", "X1", net.IPv4(10, 0, 0, 1)),
		record("DEN", "X2", net.IPv4(10, 0, 0, 2)),
		ServiceRecord{Instance: "broken", Service: domain.ServiceType, Domain: domain.ServiceDomain, IPv4: []net.IP{net.IPv4(10, 0, 0, 3)}},
	)
	d := NewDiscoverer(network, logger.Discard(), 100*time.Millisecond, PolicyAll)

	consoles, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, consoles, 2)
	assert.Equal(t, "X1", consoles[0].ID)
	assert.Equal(t, "X2", consoles[1].ID)
}

func TestDiscoverTimeout(t *testing.T) {
	d := NewDiscoverer(newFakeNetwork(), logger.Discard(), 50*time.Millisecond, PolicyFirst)

	_, err := d.Discover(context.Background())
	var discErr *domain.DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, "resolve", discErr.Op)
	assert.ErrorIs(t, err, domain.ErrDiscoveryTimeout)
}

func TestDiscoverMalformed(t *testing.T) {
	broken := ServiceRecord{
		Instance: "XBOX", Service: domain.ServiceType, Domain: domain.ServiceDomain,
		IPv4: []net.IP{net.IPv4(10, 0, 0, 229)}, Port: domain.ServicePort,
		Text: []string{"N=XBOX"},
	}

	for _, policy := range []Policy{PolicyFirst, PolicyAll} {
		d := NewDiscoverer(newFakeNetwork(broken), logger.Discard(), 50*time.Millisecond, policy)
		_, err := d.Discover(context.Background())

		var discErr *domain.DiscoveryError
		require.ErrorAs(t, err, &discErr, policy.String())
		assert.Equal(t, "decode", discErr.Op)
		assert.ErrorIs(t, err, domain.ErrMissingProperty)
	}
}

func TestDiscoverBrowseFailure(t *testing.T) {
	network := newFakeNetwork()
	network.browseErr = errors.New("no multicast interface")
	d := NewDiscoverer(network, logger.Discard(), time.Second, PolicyFirst)

	_, err := d.Discover(context.Background())
	var discErr *domain.DiscoveryError
	require.ErrorAs(t, err, &discErr)
	assert.Equal(t, "browse", discErr.Op)
}

func TestAnnounceFailuresPublishNothing(t *testing.T) {
	network := newFakeNetwork()
	a := NewAnnouncer(network, logger.Discard(), time.Minute)

	bad := testConsole
	bad.ID = ""
	err := a.Announce(context.Background(), bad)
	var annErr *domain.AnnounceError
	require.ErrorAs(t, err, &annErr)
	assert.Equal(t, "build", annErr.Op)
	assert.Zero(t, network.liveCount())

	network.registerErr = errors.New("socket closed")
	err = a.Announce(context.Background(), testConsole)
	require.ErrorAs(t, err, &annErr)
	assert.Equal(t, "register", annErr.Op)
	assert.Zero(t, network.liveCount())
}

func TestAnnounceThenDiscover(t *testing.T) {
	network := newFakeNetwork()
	a := NewAnnouncer(network, logger.Discard(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Announce(ctx, testConsole) }()

	select {
	case <-network.registered:
	case <-time.After(time.Second):
		t.Fatal("announce never registered")
	}

	d := NewDiscoverer(network, logger.Discard(), time.Second, PolicyFirst)
	consoles, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, consoles, 1)
	assert.Equal(t, testConsole.ID, consoles[0].ID)
	assert.Equal(t, testConsole.Name, consoles[0].Name)

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, network.liveCount(), "record must be withdrawn")
}

func TestAnnounceExpires(t *testing.T) {
	network := newFakeNetwork()
	a := NewAnnouncer(network, logger.Discard(), 20*time.Millisecond)

	require.NoError(t, a.Announce(context.Background(), testConsole))
	assert.Zero(t, network.liveCount())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("ALL")
	require.NoError(t, err)
	assert.Equal(t, PolicyAll, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirst, p)

	_, err = ParsePolicy("most")
	assert.Error(t, err)
}

// TestZeroconfLoopback exercises the real multicast responder. It needs a
// network that carries multicast, so it only runs when asked to.
func TestZeroconfLoopback(t *testing.T) {
	if os.Getenv("GOCOL_MDNS_TEST") == "" {
		t.Skip("set GOCOL_MDNS_TEST=1 to run against the real mDNS responder")
	}

	c := testConsole
	c.Address = net.IPv4(127, 0, 0, 1)
	c.ID = "XLOOPBACK" + time.Now().Format("150405")

	responder := NewZeroconfResponder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = NewAnnouncer(responder, logger.Discard(), time.Minute).Announce(ctx, c) }()

	d := NewDiscoverer(responder, logger.Discard(), 10*time.Second, PolicyAll)
	consoles, err := d.Discover(ctx)
	require.NoError(t, err)

	var found bool
	for _, got := range consoles {
		if got.ID == c.ID {
			found = true
			assert.Equal(t, c.Name, got.Name)
		}
	}
	assert.True(t, found)
}
