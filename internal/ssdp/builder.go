package ssdp

import (
	"bytes"
	"fmt"
	"strconv"
)

type headerField struct {
	key   string
	value string
}

// encode writes an HTTPU message with headers in the given order
func encode(startLine string, fields []headerField) []byte {
	var b bytes.Buffer
	b.WriteString(startLine)
	b.WriteString("\r\n")
	for _, f := range fields {
		b.WriteString(f.key)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// Advertisement describes what the proxy announces about itself
type Advertisement struct {
	UUID       string // proxy identifier, without the "uuid:" prefix
	DeviceType string // NT/ST value of the proxy
	Location   string // URL of the self description
	Server     string // SERVER header value
	MaxAge     int    // CACHE-CONTROL max-age in seconds
}

// USN returns the unique service name for the advertised device type
func (a Advertisement) USN() string {
	return fmt.Sprintf("uuid:%s::%s", a.UUID, a.DeviceType)
}

// BuildAlive builds an ssdp:alive NOTIFY for host (the group "ip:port")
func BuildAlive(host string, ad Advertisement) []byte {
	return encode("NOTIFY * HTTP/1.1", []headerField{
		{"HOST", host},
		{"CACHE-CONTROL", "max-age=" + strconv.Itoa(ad.MaxAge)},
		{"LOCATION", ad.Location},
		{"NT", ad.DeviceType},
		{"NTS", NTSAlive},
		{"SERVER", ad.Server},
		{"USN", ad.USN()},
		{HeaderJSONUPnP, "1"},
		{HeaderProxyUUID, ad.UUID},
	})
}

// BuildByebye builds an ssdp:byebye NOTIFY
func BuildByebye(host string, ad Advertisement) []byte {
	return encode("NOTIFY * HTTP/1.1", []headerField{
		{"HOST", host},
		{"NT", ad.DeviceType},
		{"NTS", NTSByebye},
		{"USN", ad.USN()},
		{HeaderJSONUPnP, "1"},
		{HeaderProxyUUID, ad.UUID},
	})
}

// BuildSearch builds an M-SEARCH for target with the given MX. proxyUUID
// may be empty for anonymous searchers.
func BuildSearch(host, target string, maxWait int, proxyUUID string) []byte {
	fields := []headerField{
		{"HOST", host},
		{"MAN", `"ssdp:discover"`},
		{"MX", strconv.Itoa(maxWait)},
		{"ST", target},
	}
	if proxyUUID != "" {
		fields = append(fields, headerField{HeaderProxyUUID, proxyUUID})
	}
	return encode("M-SEARCH * HTTP/1.1", fields)
}

// BuildResponse builds the 200 OK answer to a search for target
func BuildResponse(target string, ad Advertisement) []byte {
	return encode("HTTP/1.1 200 OK", []headerField{
		{"CACHE-CONTROL", "max-age=" + strconv.Itoa(ad.MaxAge)},
		{"EXT", ""},
		{"LOCATION", ad.Location},
		{"SERVER", ad.Server},
		{"ST", target},
		{"USN", ad.USN()},
		{HeaderJSONUPnP, "1"},
		{HeaderProxyUUID, ad.UUID},
	})
}
