package registry

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// UnknownRole is recorded when an announcement carries no device type
const UnknownRole = "unknown"

// Device represents a legacy UPnP device seen on the network
type Device struct {
	// ID is the device identifier taken from the USN (e.g., "2fac1234-31f8-11b4-a222-08002b34c003")
	ID string

	// Location is the URL of the XML device description
	Location string

	// Role is the announced device or service type (NT/ST)
	Role string

	// Host is the source IP of the first announcement
	Host string

	// Port is the source UDP port of the first announcement
	Port int

	// FirstSeen is when the device was first registered
	FirstSeen time.Time

	// LastSeen is the most recent sighting; it never moves backwards
	LastSeen time.Time
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("UPnP device %s (%s) at %s", d.ID, d.Role, d.Location)
}

// Address returns the origin address in host:port form
func (d Device) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Age returns how long ago the device was last seen
func (d Device) Age(now time.Time) time.Duration {
	return now.Sub(d.LastSeen)
}
