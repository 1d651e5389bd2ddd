package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/jsonupnp/internal/logging"
)

const (
	// DefaultGroup is the multicast group the proxy joins
	DefaultGroup = "224.0.0.1"

	// DefaultPort is the multicast port the proxy listens on
	DefaultPort = 5007

	// DefaultTTL is the multicast TTL for outbound datagrams
	DefaultTTL = 2

	// DefaultAdvertMaxAge is the CACHE-CONTROL max-age the proxy announces
	DefaultAdvertMaxAge = 1800
)

// Config holds the multicast transport configuration
type Config struct {
	Group     string // IPv4 multicast group (e.g., "224.0.0.1")
	Port      int    // UDP port shared by the group
	Interface string // network interface name (empty = system default)
	TTL       int    // multicast TTL

	// Advertisement is what SendAlive, SendByebye and SendResponse announce
	Advertisement Advertisement

	// OnMalformed is called for datagrams that fail to parse
	OnMalformed func(from net.Addr, err error)
}

// Transport sends and receives SSDP datagrams on one multicast socket.
// Search responses come back unicast to the same socket.
type Transport struct {
	cfg   Config
	group *net.UDPAddr

	mu     sync.Mutex
	conn   net.PacketConn
	pconn  *ipv4.PacketConn
	closed bool
	wg     sync.WaitGroup
}

// NewTransport validates cfg and returns an unopened transport
func NewTransport(cfg Config) (*Transport, error) {
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}

	ip := net.ParseIP(cfg.Group)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("invalid IPv4 multicast group: %q", cfg.Group)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid multicast port: %d", cfg.Port)
	}

	return &Transport{
		cfg:   cfg,
		group: &net.UDPAddr{IP: ip.To4(), Port: cfg.Port},
	}, nil
}

// GroupAddr returns the multicast destination address
func (t *Transport) GroupAddr() *net.UDPAddr {
	return t.group
}

// Host returns the HOST header value for the group
func (t *Transport) Host() string {
	return net.JoinHostPort(t.group.IP.String(), strconv.Itoa(t.group.Port))
}

// Listen opens the socket, joins the group and starts delivering parsed
// messages to h until ctx is cancelled or Close is called.
func (t *Transport) Listen(ctx context.Context, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return errors.New("transport already listening")
	}

	conn, err := net.ListenPacket("udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(t.cfg.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen on SSDP port %d: %w", t.cfg.Port, err)
	}

	pconn := ipv4.NewPacketConn(conn)

	var ifi *net.Interface
	if t.cfg.Interface != "" {
		ifi, err = net.InterfaceByName(t.cfg.Interface)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to find interface %s: %w", t.cfg.Interface, err)
		}
		if err := pconn.SetMulticastInterface(ifi); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to set multicast interface: %w", err)
		}
	}

	if err := pconn.JoinGroup(ifi, &net.UDPAddr{IP: t.group.IP}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to join multicast group %s: %w", t.group.IP, err)
	}
	if err := pconn.SetMulticastTTL(t.cfg.TTL); err != nil {
		logging.Warn("Failed to set multicast TTL", zap.Error(err))
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		logging.Warn("Failed to enable multicast loopback", zap.Error(err))
	}

	t.conn = conn
	t.pconn = pconn
	t.closed = false

	logging.Info("SSDP listener started",
		zap.String("group", t.Host()),
		zap.String("interface", t.cfg.Interface),
	)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.readLoop(conn, h)
	}()

	go func() {
		<-ctx.Done()
		_ = t.Close()
	}()

	return nil
}

func (t *Transport) readLoop(conn net.PacketConn, h Handler) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Warn("SSDP read failed", zap.Error(err))
			continue
		}

		msg, err := Parse(buf[:n], from)
		if err != nil {
			if t.cfg.OnMalformed != nil {
				t.cfg.OnMalformed(from, err)
			}
			continue
		}
		h(msg)
	}
}

// Close stops listening. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.conn == nil || t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	pconn := t.pconn
	t.mu.Unlock()

	_ = pconn.LeaveGroup(nil, &net.UDPAddr{IP: t.group.IP})
	err := conn.Close()
	t.wg.Wait()

	t.mu.Lock()
	t.conn = nil
	t.pconn = nil
	t.mu.Unlock()

	logging.Info("SSDP listener stopped", zap.String("group", t.Host()))
	return err
}

func (t *Transport) send(ctx context.Context, payload []byte, to net.Addr) error {
	t.mu.Lock()
	conn := t.conn
	closed := t.closed
	t.mu.Unlock()

	if conn == nil || closed {
		// Not listening: use a throwaway socket so byebye still goes out
		c, err := net.ListenPacket("udp4", ":0")
		if err != nil {
			return fmt.Errorf("failed to open send socket: %w", err)
		}
		defer func() { _ = c.Close() }()
		conn = c
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	if _, err := conn.WriteTo(payload, to); err != nil {
		return fmt.Errorf("failed to send SSDP datagram to %s: %w", to, err)
	}
	return nil
}

// SendAlive multicasts an ssdp:alive announcement
func (t *Transport) SendAlive(ctx context.Context) error {
	return t.send(ctx, BuildAlive(t.Host(), t.cfg.Advertisement), t.group)
}

// SendByebye multicasts an ssdp:byebye announcement
func (t *Transport) SendByebye(ctx context.Context) error {
	return t.send(ctx, BuildByebye(t.Host(), t.cfg.Advertisement), t.group)
}

// SendSearch multicasts an M-SEARCH for target
func (t *Transport) SendSearch(ctx context.Context, target string, maxWait int) error {
	return t.send(ctx, BuildSearch(t.Host(), target, maxWait, t.cfg.Advertisement.UUID), t.group)
}

// SendResponse answers a search for target. The answer goes unicast to
// the searcher, or to the group when the origin is unknown.
func (t *Transport) SendResponse(ctx context.Context, target string, to net.Addr) error {
	if to == nil {
		to = t.group
	}
	return t.send(ctx, BuildResponse(target, t.cfg.Advertisement), to)
}
