package proxy

import (
	"github.com/google/uuid"

	"github.com/muurk/jsonupnp/internal/ssdp"
	"github.com/muurk/jsonupnp/internal/urls"
	"github.com/muurk/jsonupnp/internal/version"
)

const (
	// NotificationType is the NT/USN type the proxy announces over SSDP
	NotificationType = "urn:schemas-json-upnp-org:device:json-upnp-proxy:1"

	// DeviceType is the deviceType of the self description
	DeviceType = "urn:schemas-json-upnp-org:device:proxy:1"

	// ServiceType and ServiceID identify the conversion service
	ServiceType = "urn:schemas-json-upnp-org:service:DeviceProxy:1"
	ServiceID   = "urn:upnp-org:serviceId:DeviceProxy"

	// AdvertMaxAge is the CACHE-CONTROL max-age of alive and response messages
	AdvertMaxAge = ssdp.DefaultAdvertMaxAge
)

// Identity is the proxy's process-wide identifier and advertised address
type Identity struct {
	UUID string
	Host string // advertised host, used in every URL handed to peers
	Port int
}

// NewIdentity returns an identity for host:port. A fresh UUID is generated
// when id is empty.
func NewIdentity(id, host string, port int) Identity {
	if id == "" {
		id = uuid.NewString()
	}
	return Identity{UUID: id, Host: host, Port: port}
}

// BaseURL returns "http://host:port"
func (i Identity) BaseURL() string {
	return urls.Base(i.Host, i.Port)
}

// DescriptionURL is the LOCATION the proxy announces
func (i Identity) DescriptionURL() string {
	return i.BaseURL() + urls.ProxyDescription
}

// ConvertURL returns the JSON conversion URL for a device location
func (i Identity) ConvertURL(location string) string {
	return urls.Convert(i.BaseURL(), location)
}

// Advertisement returns what the transport announces for this identity
func (i Identity) Advertisement() ssdp.Advertisement {
	return ssdp.Advertisement{
		UUID:       i.UUID,
		DeviceType: NotificationType,
		Location:   i.DescriptionURL(),
		Server:     version.ServerString(),
		MaxAge:     AdvertMaxAge,
	}
}

// Endpoints lists the URL templates of the conversion service
type Endpoints struct {
	Convert string `json:"convert"`
	List    string `json:"list"`
	Get     string `json:"get"`
}

// ServiceInfo describes one service offered by the proxy
type ServiceInfo struct {
	ServiceType string    `json:"serviceType"`
	ServiceID   string    `json:"serviceId"`
	Description string    `json:"description"`
	Endpoints   Endpoints `json:"endpoints"`
}

// Description is the JSON self description served at /proxy/description
type Description struct {
	DeviceType      string        `json:"deviceType"`
	FriendlyName    string        `json:"friendlyName"`
	Manufacturer    string        `json:"manufacturer"`
	ModelName       string        `json:"modelName"`
	ModelNumber     string        `json:"modelNumber"`
	UDN             string        `json:"UDN"`
	Services        []ServiceInfo `json:"services"`
	PresentationURL string        `json:"presentationURL"`
}

// Description builds the self description
func (i Identity) Description() Description {
	base := i.BaseURL()
	return Description{
		DeviceType:   DeviceType,
		FriendlyName: "JSON-UPnP Proxy Server",
		Manufacturer: "jsonupnp",
		ModelName:    version.Product,
		ModelNumber:  version.Version,
		UDN:          "uuid:" + i.UUID,
		Services: []ServiceInfo{
			{
				ServiceType: ServiceType,
				ServiceID:   ServiceID,
				Description: "Converts XML UPnP devices to JSON",
				Endpoints: Endpoints{
					Convert: base + urls.DeviceJSON + "?" + urls.URLParam + "=" + urls.ConvertPlaceholder,
					List:    base + urls.Devices,
					Get:     base + urls.Devices + "/" + urls.IDPlaceholder,
				},
			},
		},
		PresentationURL: base + urls.Devices,
	}
}
