package mdns

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Proxy is a JSON-UPnP proxy found over mDNS
type Proxy struct {
	// Instance is the advertised service instance name
	Instance string

	// UUID is the proxy identity from the "uuid" TXT record
	UUID string

	// Hostname is the mDNS hostname (e.g., "media-box.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the proxy's HTTP port
	Port int

	// Metadata holds all TXT records ("uuid", "path", "version")
	Metadata map[string]string

	// DiscoveredAt is when the proxy was found
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the proxy
func (p *Proxy) String() string {
	return fmt.Sprintf("JSON-UPnP proxy %s (%s) at %s", p.UUID, p.Instance, p.address())
}

func (p *Proxy) address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// BaseURL returns the proxy's HTTP base URL
func (p *Proxy) BaseURL() string {
	return "http://" + p.address()
}

// DescriptionURL returns the self description URL advertised in TXT "path"
func (p *Proxy) DescriptionURL() string {
	path := p.GetMetadata(TXTPath)
	if path == "" {
		path = DefaultDescriptionPath
	}
	return p.BaseURL() + path
}

// GetMetadata retrieves a TXT value by key, or "" when absent
func (p *Proxy) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
