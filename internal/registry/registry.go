package registry

import (
	"sync"
	"time"

	"github.com/muurk/jsonupnp/internal/proxyerr"
)

// DefaultMaxAge is how long a device may go unseen before the sweep drops it
const DefaultMaxAge = time.Hour

// Observer is notified after a device is registered for the first time.
// Observers run outside the registry lock.
type Observer func(Device)

// Registry holds one entry per discovered device identifier
type Registry struct {
	mu        sync.RWMutex
	devices   map[string]*Device
	order     []string // insertion order
	observers []Observer
}

// New creates an empty registry
func New(observers ...Observer) *Registry {
	return &Registry{
		devices:   make(map[string]*Device),
		observers: observers,
	}
}

// Observe registers an additional discovery observer
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Upsert records a sighting of id. An unknown id is inserted with the given
// metadata; a known id only has its LastSeen refreshed, so the metadata of
// the first sighting is kept. It returns the stored device and whether it
// was newly created.
func (r *Registry) Upsert(id, location, role, host string, port int, now time.Time) (Device, bool) {
	r.mu.Lock()

	if existing, ok := r.devices[id]; ok {
		if now.After(existing.LastSeen) {
			existing.LastSeen = now
		}
		d := *existing
		r.mu.Unlock()
		return d, false
	}

	if role == "" {
		role = UnknownRole
	}
	device := &Device{
		ID:        id,
		Location:  location,
		Role:      role,
		Host:      host,
		Port:      port,
		FirstSeen: now,
		LastSeen:  now,
	}
	r.devices[id] = device
	r.order = append(r.order, id)

	d := *device
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, o := range observers {
		o(d)
	}

	return d, true
}

// List returns a snapshot of all devices in insertion order
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, *r.devices[id])
	}
	return devices
}

// Get returns the device registered under id
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, proxyerr.NewNotFoundError(id)
	}
	return *d, nil
}

// Len returns the number of registered devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Sweep removes every device whose last sighting is more than maxAge
// before now and returns the removed identifiers.
func (r *Registry) Sweep(now time.Time, maxAge time.Duration) []string {
	removed := r.SweepDevices(now, maxAge)
	ids := make([]string, 0, len(removed))
	for _, d := range removed {
		ids = append(ids, d.ID)
	}
	return ids
}

// SweepDevices is Sweep returning the removed records
func (r *Registry) SweepDevices(now time.Time, maxAge time.Duration) []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []Device
	kept := r.order[:0]
	for _, id := range r.order {
		d := r.devices[id]
		if now.Sub(d.LastSeen) > maxAge {
			removed = append(removed, *d)
			delete(r.devices, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept

	return removed
}
