package discovery

import (
	"fmt"
	"net"

	"github.com/datallboy/gocol/internal/domain"
)

// ServiceRecord is a resolved or to-be-published DNS-SD instance.
type ServiceRecord struct {
	Instance string
	Service  string
	Domain   string
	HostName string
	Port     int
	IPv4     []net.IP
	Text     []string
}

// BuildServiceRecord describes console as a DNS-SD instance:
//
//	XBOX._xboxcol._tcp.local. -> XBOX.local.:10248 [N=XBOX U=X31299B15E854]
func BuildServiceRecord(c domain.Console) (ServiceRecord, error) {
	if c.Name == "" {
		return ServiceRecord{}, fmt.Errorf("%w: console name is empty", domain.ErrInvalidRecord)
	}
	if c.ID == "" {
		return ServiceRecord{}, fmt.Errorf("%w: console identifier is empty", domain.ErrInvalidRecord)
	}
	ip4 := c.Address.To4()
	if ip4 == nil {
		return ServiceRecord{}, fmt.Errorf("%w: address %v is not IPv4", domain.ErrInvalidRecord, c.Address)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ServiceRecord{}, fmt.Errorf("%w: port %d out of range", domain.ErrInvalidRecord, c.Port)
	}

	return ServiceRecord{
		Instance: c.Name,
		Service:  domain.ServiceType,
		Domain:   domain.ServiceDomain,
		HostName: c.Name + "." + domain.ServiceDomain,
		Port:     c.Port,
		IPv4:     []net.IP{ip4},
		Text:     TXTRecord{Name: c.Name, Identifier: c.ID}.Encode(),
	}, nil
}

// FullName is the instance's DNS-SD name, e.g. "XBOX._xboxcol._tcp.local.".
func (r ServiceRecord) FullName() string {
	return r.Instance + "." + r.Service + "." + r.Domain
}

// ToConsole translates a resolved record. The first advertised IPv4 address wins.
func ToConsole(r ServiceRecord) (domain.Console, error) {
	txt, err := DecodeTXT(r.Text)
	if err != nil {
		return domain.Console{}, err
	}

	if len(r.IPv4) == 0 {
		return domain.Console{}, fmt.Errorf("%w: %s advertised no IPv4 address", domain.ErrInvalidRecord, r.FullName())
	}

	return domain.Console{
		Address: r.IPv4[0],
		Port:    r.Port,
		ID:      txt.Identifier,
		Name:    txt.Name,
	}, nil
}
