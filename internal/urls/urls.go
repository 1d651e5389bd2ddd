package urls

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// API paths served by the proxy

// ProxyDescription serves the proxy's own JSON description.
const ProxyDescription = "/proxy/description"

// DeviceJSON converts the description at ?url= to JSON.
const DeviceJSON = "/device/json"

// DeviceXML passes the description at ?url= through unchanged.
const DeviceXML = "/device/xml"

// ServiceJSON converts the SCPD service description at ?url= to JSON.
const ServiceJSON = "/service/json"

// Devices lists the registry.
const Devices = "/devices"

// DeviceByID is the mux route template for one registry entry.
const DeviceByID = "/devices/{uuid}"

// Events streams registry changes over a websocket.
const Events = "/events"

// Metrics serves Prometheus metrics.
const Metrics = "/metrics"

// Health reports liveness.
const Health = "/healthz"

// URLParam is the query parameter carrying a description location.
const URLParam = "url"

// ConvertPlaceholder and IDPlaceholder appear in the self description's
// endpoint templates.
const (
	ConvertPlaceholder = "{device_location}"
	IDPlaceholder      = "{uuid}"
)

// Base returns "http://host:port", bracketing IPv6 hosts
func Base(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Convert returns the /device/json URL for location under base
func Convert(base, location string) string {
	return withLocation(base+DeviceJSON, location)
}

// Raw returns the /device/xml URL for location under base
func Raw(base, location string) string {
	return withLocation(base+DeviceXML, location)
}

// Service returns the /service/json URL for location under base
func Service(base, location string) string {
	return withLocation(base+ServiceJSON, location)
}

// Device returns the /devices/{uuid} URL for id under base
func Device(base, id string) string {
	return base + Devices + "/" + url.PathEscape(id)
}

// EventsWS returns the websocket URL of the event stream under base
func EventsWS(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + Events
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + Events
	default:
		return base + Events
	}
}

func withLocation(endpoint, location string) string {
	return endpoint + "?" + URLParam + "=" + url.QueryEscape(location)
}
