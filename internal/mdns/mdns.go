package mdns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/logging"
)

const (
	// ServiceType is the mDNS service type proxies advertise
	ServiceType = "_jsonupnp._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second

	// DefaultDescriptionPath is assumed when an entry carries no "path"
	DefaultDescriptionPath = "/proxy/description"

	// TXT record keys
	TXTUUID    = "uuid"
	TXTPath    = "path"
	TXTVersion = "version"
)

// Advertisement describes the mDNS registration of one proxy
type Advertisement struct {
	Instance string
	UUID     string
	Port     int
	Path     string
	Version  string
}

// TXT returns the TXT records for the advertisement
func (a Advertisement) TXT() []string {
	path := a.Path
	if path == "" {
		path = DefaultDescriptionPath
	}
	txt := []string{TXTUUID + "=" + a.UUID, TXTPath + "=" + path}
	if a.Version != "" {
		txt = append(txt, TXTVersion+"="+a.Version)
	}
	return txt
}

// Advertiser publishes the proxy over mDNS until Shutdown
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers ad on all multicast-capable interfaces
func Advertise(ad Advertisement) (*Advertiser, error) {
	if ad.Instance == "" {
		return nil, errors.New("mdns instance name is required")
	}
	if ad.Port < 1 || ad.Port > 65535 {
		return nil, fmt.Errorf("invalid mdns port: %d", ad.Port)
	}

	server, err := zeroconf.Register(ad.Instance, ServiceType, ServiceDomain, ad.Port, ad.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("mDNS advertisement registered",
		zap.String("instance", ad.Instance),
		zap.String("service", ServiceType),
		zap.Int("port", ad.Port),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	logging.Info("mDNS advertisement withdrawn")
}

// Scanner browses for proxies
type Scanner struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan returns every proxy seen before the timeout, deduplicated by UUID
func (s *Scanner) Scan(ctx context.Context) ([]*Proxy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var mu sync.Mutex
	seen := make(map[string]bool)
	proxies := make([]*Proxy, 0)

	go func() {
		for entry := range entries {
			p := parseServiceEntry(entry)
			if p == nil {
				continue
			}
			mu.Lock()
			if !seen[p.UUID] {
				seen[p.UUID] = true
				proxies = append(proxies, p)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Proxy(nil), proxies...), nil
}

// Find waits for the proxy with the given UUID
func (s *Scanner) Find(ctx context.Context, uuid string) (*Proxy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Proxy, 1)

	go func() {
		for entry := range entries {
			if p := parseServiceEntry(entry); p != nil && p.UUID == uuid {
				select {
				case found <- p:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case p := <-found:
		return p, nil
	case <-ctx.Done():
		select {
		case p := <-found:
			return p, nil
		default:
		}
		return nil, fmt.Errorf("proxy %s not found within timeout", uuid)
	}
}

// parseServiceEntry converts a zeroconf entry to a Proxy. It returns nil
// for entries without a uuid TXT record or without an address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Proxy {
	if entry == nil {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	uuid := metadata[TXTUUID]
	if uuid == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	return &Proxy{
		Instance:     entry.Instance,
		UUID:         uuid,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
