package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Kind classifies an inbound SSDP message
type Kind int

const (
	// KindNotify is a NOTIFY announcement (ssdp:alive or ssdp:byebye)
	KindNotify Kind = iota + 1
	// KindSearchResponse is an HTTP 200 answer to an M-SEARCH
	KindSearchResponse
	// KindSearch is an M-SEARCH query
	KindSearch
)

// String returns the lowercase name used in logs and metric labels
func (k Kind) String() string {
	switch k {
	case KindNotify:
		return "notify"
	case KindSearchResponse:
		return "search_response"
	case KindSearch:
		return "search"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Protocol constants
const (
	// SearchAll is the wildcard search target
	SearchAll = "ssdp:all"

	// NTSAlive and NTSByebye are the NOTIFY sub-types
	NTSAlive  = "ssdp:alive"
	NTSByebye = "ssdp:byebye"

	// HeaderJSONUPnP marks messages sent in the json-native dialect
	HeaderJSONUPnP = "X-Json-Upnp"

	// HeaderProxyUUID carries the sender's proxy identity so a proxy can
	// recognise its own looped-back multicast traffic
	HeaderProxyUUID = "X-Proxy-Uuid"

	// DefaultMaxWait is the MX applied when a query carries none
	DefaultMaxWait = 3

	maxDatagramSize = 8192
)

// ErrUnsupported is returned for datagrams that are neither NOTIFY,
// M-SEARCH nor a 200 search response
var ErrUnsupported = errors.New("unsupported SSDP message")

// Handler receives parsed inbound messages
type Handler func(*Message)

// Message is a parsed SSDP datagram
type Message struct {
	Kind   Kind
	Header http.Header
	From   net.Addr
}

// Location returns the LOCATION header
func (m *Message) Location() string {
	return strings.TrimSpace(m.Header.Get("Location"))
}

// USN returns the USN header
func (m *Message) USN() string {
	return strings.TrimSpace(m.Header.Get("Usn"))
}

// UUID returns the device identifier embedded in the USN
// ("uuid:<id>::urn:..." yields "<id>"). It is empty when the USN is.
func (m *Message) UUID() string {
	usn := m.USN()
	if usn == "" {
		return ""
	}
	if i := strings.Index(usn, "::"); i >= 0 {
		usn = usn[:i]
	}
	if len(usn) >= 5 && strings.EqualFold(usn[:5], "uuid:") {
		usn = usn[5:]
	}
	return strings.TrimSpace(usn)
}

// Role returns the announced type: NT for NOTIFY, ST for search responses
func (m *Message) Role() string {
	switch m.Kind {
	case KindNotify:
		return strings.TrimSpace(m.Header.Get("Nt"))
	case KindSearchResponse:
		return strings.TrimSpace(m.Header.Get("St"))
	default:
		return ""
	}
}

// SearchTarget returns the ST header of a query
func (m *Message) SearchTarget() string {
	return strings.TrimSpace(m.Header.Get("St"))
}

// MaxWait returns the MX header in seconds, or 0 when absent or invalid
func (m *Message) MaxWait() int {
	mx, err := strconv.Atoi(strings.TrimSpace(m.Header.Get("Mx")))
	if err != nil || mx < 0 {
		return 0
	}
	return mx
}

// IsByebye reports whether the message is an ssdp:byebye NOTIFY
func (m *Message) IsByebye() bool {
	return m.Kind == KindNotify && strings.EqualFold(strings.TrimSpace(m.Header.Get("Nts")), NTSByebye)
}

// IsJSONNative reports whether the sender speaks the json-native dialect
func (m *Message) IsJSONNative() bool {
	return m.Header.Get(HeaderJSONUPnP) != ""
}

// ProxyUUID returns the sender's proxy identity, if it is a proxy
func (m *Message) ProxyUUID() string {
	return strings.TrimSpace(m.Header.Get(HeaderProxyUUID))
}

// FromString returns the origin address, or "" when unknown
func (m *Message) FromString() string {
	if m.From == nil {
		return ""
	}
	return m.From.String()
}

// FromHostPort splits the origin address into host and port
func (m *Message) FromHostPort() (string, int) {
	if m.From == nil {
		return "", 0
	}
	if udp, ok := m.From.(*net.UDPAddr); ok {
		return udp.IP.String(), udp.Port
	}
	host, portStr, err := net.SplitHostPort(m.From.String())
	if err != nil {
		return m.From.String(), 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

// Parse decodes a datagram received from addr
func Parse(data []byte, from net.Addr) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty datagram", ErrUnsupported)
	}

	r := bufio.NewReader(bytes.NewReader(data))

	if bytes.HasPrefix(data, []byte("HTTP/")) {
		resp, err := http.ReadResponse(r, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to parse search response: %w", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: response status %d", ErrUnsupported, resp.StatusCode)
		}
		return &Message{Kind: KindSearchResponse, Header: resp.Header, From: from}, nil
	}

	req, err := http.ReadRequest(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSDP request: %w", err)
	}
	_ = req.Body.Close()

	switch strings.ToUpper(req.Method) {
	case "NOTIFY":
		return &Message{Kind: KindNotify, Header: req.Header, From: from}, nil
	case "M-SEARCH":
		return &Message{Kind: KindSearch, Header: req.Header, From: from}, nil
	default:
		return nil, fmt.Errorf("%w: method %s", ErrUnsupported, req.Method)
	}
}
