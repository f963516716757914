package domain

import (
	"fmt"
	"net"
	"strconv"
)

const (
	// ServiceType is the DNS-SD service the console advertises.
	ServiceType = "_xboxcol._tcp"

	// ServiceDomain is the multicast DNS domain.
	ServiceDomain = "local."

	// ServicePort is the fixed content/metadata port.
	ServicePort = 10248
)

// Console identifies a discovered or announced device.
type Console struct {
	Address net.IP `json:"address"`
	Port    int    `json:"port"`
	ID      string `json:"id"`   // TXT "U"
	Name    string `json:"name"` // TXT "N"
}

// BaseURL returns the http root of the console's content server.
func (c Console) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Address.String(), strconv.Itoa(c.Port))
}

func (c Console) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", c.Name, c.ID, c.Address, c.Port)
}
