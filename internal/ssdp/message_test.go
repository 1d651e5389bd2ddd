package ssdp

import (
	"errors"
	"net"
	"strings"
	"testing"
)

var testFrom = &net.UDPAddr{IP: net.ParseIP("192.168.1.20"), Port: 40000}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantErr  bool
		wantKind Kind
		wantUUID string
		wantRole string
	}{
		{
			name: "alive notify",
			data: "NOTIFY * HTTP/1.1\r\n" +
				"HOST: 239.255.255.250:1900\r\n" +
				"LOCATION: http://192.168.1.20:8080/desc.xml\r\n" +
				"NT: urn:schemas-upnp-org:device:MediaServer:1\r\n" +
				"NTS: ssdp:alive\r\n" +
				"USN: uuid:abc-123::urn:schemas-upnp-org:device:MediaServer:1\r\n\r\n",
			wantKind: KindNotify,
			wantUUID: "abc-123",
			wantRole: "urn:schemas-upnp-org:device:MediaServer:1",
		},
		{
			name: "search response",
			data: "HTTP/1.1 200 OK\r\n" +
				"CACHE-CONTROL: max-age=1800\r\n" +
				"EXT:\r\n" +
				"LOCATION: http://192.168.1.21/rootDesc.xml\r\n" +
				"ST: upnp:rootdevice\r\n" +
				"USN: uuid:router-1::upnp:rootdevice\r\n\r\n",
			wantKind: KindSearchResponse,
			wantUUID: "router-1",
			wantRole: "upnp:rootdevice",
		},
		{
			name: "search query",
			data: "M-SEARCH * HTTP/1.1\r\n" +
				"HOST: 224.0.0.1:5007\r\n" +
				"MAN: \"ssdp:discover\"\r\n" +
				"MX: 2\r\n" +
				"ST: ssdp:all\r\n\r\n",
			wantKind: KindSearch,
		},
		{
			name: "bare uuid usn",
			data: "NOTIFY * HTTP/1.1\r\n" +
				"LOCATION: http://x/d.xml\r\n" +
				"NTS: ssdp:alive\r\n" +
				"USN: uuid:only-id\r\n\r\n",
			wantKind: KindNotify,
			wantUUID: "only-id",
		},
		{
			name:    "non-200 response",
			data:    "HTTP/1.1 404 Not Found\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "unsupported method",
			data:    "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "garbage",
			data:    "\x00\x01\x02",
			wantErr: true,
		},
		{
			name:    "empty",
			data:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.data), testFrom)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() expected error, got kind %v", msg.Kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", msg.Kind, tt.wantKind)
			}
			if got := msg.UUID(); got != tt.wantUUID {
				t.Errorf("UUID() = %q, want %q", got, tt.wantUUID)
			}
			if got := msg.Role(); got != tt.wantRole {
				t.Errorf("Role() = %q, want %q", got, tt.wantRole)
			}
			if msg.FromString() != testFrom.String() {
				t.Errorf("FromString() = %q, want %q", msg.FromString(), testFrom.String())
			}
		})
	}
}

func TestParse_UnsupportedIsSentinel(t *testing.T) {
	_, err := Parse([]byte("HTTP/1.1 500 Internal Server Error\r\n\r\n"), nil)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestMessage_MaxWait(t *testing.T) {
	tests := []struct {
		mx   string
		want int
	}{
		{"3", 3},
		{" 5 ", 5},
		{"", 0},
		{"abc", 0},
		{"-1", 0},
	}

	for _, tt := range tests {
		msg := &Message{Kind: KindSearch, Header: map[string][]string{}}
		if tt.mx != "" {
			msg.Header.Set("MX", tt.mx)
		}
		if got := msg.MaxWait(); got != tt.want {
			t.Errorf("MaxWait(%q) = %d, want %d", tt.mx, got, tt.want)
		}
	}
}

func TestMessage_Byebye(t *testing.T) {
	data := "NOTIFY * HTTP/1.1\r\nNT: upnp:rootdevice\r\nNTS: ssdp:byebye\r\nUSN: uuid:x::upnp:rootdevice\r\n\r\n"
	msg, err := Parse([]byte(data), testFrom)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !msg.IsByebye() {
		t.Error("IsByebye() = false, want true")
	}
}

func TestMessage_FromHostPort(t *testing.T) {
	msg := &Message{From: testFrom}
	host, port := msg.FromHostPort()
	if host != "192.168.1.20" || port != 40000 {
		t.Errorf("FromHostPort() = %s, %d", host, port)
	}

	empty := &Message{}
	host, port = empty.FromHostPort()
	if host != "" || port != 0 {
		t.Errorf("FromHostPort() on nil addr = %q, %d", host, port)
	}
}

func testAdvertisement() Advertisement {
	return Advertisement{
		UUID:       "proxy-1",
		DeviceType: "urn:schemas-json-upnp-org:device:json-upnp-proxy:1",
		Location:   "http://192.168.1.5:5030/proxy/description",
		Server:     "linux/go UPnP/1.1 jsonupnp-proxy/dev",
		MaxAge:     1800,
	}
}

func TestBuildAlive_RoundTrip(t *testing.T) {
	ad := testAdvertisement()
	msg, err := Parse(BuildAlive("224.0.0.1:5007", ad), testFrom)
	if err != nil {
		t.Fatalf("Parse(BuildAlive) error: %v", err)
	}

	if msg.Kind != KindNotify || msg.IsByebye() {
		t.Errorf("expected alive notify, got kind %v byebye=%v", msg.Kind, msg.IsByebye())
	}
	if msg.UUID() != ad.UUID {
		t.Errorf("UUID() = %q, want %q", msg.UUID(), ad.UUID)
	}
	if msg.Location() != ad.Location {
		t.Errorf("Location() = %q, want %q", msg.Location(), ad.Location)
	}
	if !msg.IsJSONNative() {
		t.Error("alive should carry the json-upnp header")
	}
	if msg.ProxyUUID() != ad.UUID {
		t.Errorf("ProxyUUID() = %q, want %q", msg.ProxyUUID(), ad.UUID)
	}
	if got := msg.Header.Get("Cache-Control"); got != "max-age=1800" {
		t.Errorf("CACHE-CONTROL = %q", got)
	}
}

func TestBuildByebye(t *testing.T) {
	msg, err := Parse(BuildByebye("224.0.0.1:5007", testAdvertisement()), testFrom)
	if err != nil {
		t.Fatalf("Parse(BuildByebye) error: %v", err)
	}
	if !msg.IsByebye() {
		t.Error("expected byebye")
	}
}

func TestBuildSearch(t *testing.T) {
	raw := BuildSearch("224.0.0.1:5007", SearchAll, 3, "")
	if !strings.HasPrefix(string(raw), "M-SEARCH * HTTP/1.1\r\n") {
		t.Errorf("unexpected start line: %q", raw)
	}
	if strings.Contains(string(raw), HeaderProxyUUID) {
		t.Error("anonymous search should not carry a proxy uuid")
	}

	msg, err := Parse(BuildSearch("224.0.0.1:5007", SearchAll, 3, "proxy-1"), testFrom)
	if err != nil {
		t.Fatalf("Parse(BuildSearch) error: %v", err)
	}
	if msg.SearchTarget() != SearchAll || msg.MaxWait() != 3 || msg.ProxyUUID() != "proxy-1" {
		t.Errorf("search fields: st=%q mx=%d proxy=%q", msg.SearchTarget(), msg.MaxWait(), msg.ProxyUUID())
	}
}

func TestBuildResponse(t *testing.T) {
	ad := testAdvertisement()
	msg, err := Parse(BuildResponse(SearchAll, ad), testFrom)
	if err != nil {
		t.Fatalf("Parse(BuildResponse) error: %v", err)
	}
	if msg.Kind != KindSearchResponse {
		t.Fatalf("Kind = %v, want search response", msg.Kind)
	}
	if msg.Role() != SearchAll {
		t.Errorf("ST = %q, want %q", msg.Role(), SearchAll)
	}
	if msg.USN() != ad.USN() {
		t.Errorf("USN = %q, want %q", msg.USN(), ad.USN())
	}
}

func TestKind_String(t *testing.T) {
	if KindNotify.String() != "notify" || KindSearch.String() != "search" || KindSearchResponse.String() != "search_response" {
		t.Error("unexpected kind names")
	}
	if Kind(0).String() != "kind(0)" {
		t.Errorf("Kind(0).String() = %q", Kind(0).String())
	}
}
