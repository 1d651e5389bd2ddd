// Package metrics exposes the proxy's Prometheus collectors.
//
// All methods are safe to call on a nil *Metrics, so components can be used
// without a metrics sink in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jsonupnp"

// Drop reasons reported by the SSDP router
const (
	DropIncomplete = "incomplete"
	DropSelf       = "self"
	DropJSONNative = "json_native"
	DropByebye     = "byebye"
	DropUnmatched  = "unmatched_target"
	DropMalformed  = "malformed"
)

// Metrics holds the collectors registered on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	devicesDiscovered prometheus.Counter
	devicesRemoved    prometheus.Counter
	registryDevices   prometheus.Gauge
	ssdpMessages      *prometheus.CounterVec
	ssdpDropped       *prometheus.CounterVec
	searchResponses   prometheus.Counter
	conversions       *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheEntries      prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		devicesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_discovered_total",
			Help:      "Devices registered for the first time.",
		}),
		devicesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_removed_total",
			Help:      "Devices removed by the staleness sweep.",
		}),
		registryDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_devices",
			Help:      "Devices currently in the registry.",
		}),
		ssdpMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ssdp_messages_total",
			Help:      "Inbound SSDP messages by kind.",
		}, []string{"kind"}),
		ssdpDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ssdp_dropped_total",
			Help:      "Inbound SSDP messages ignored by the router.",
		}, []string{"reason"}),
		searchResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_responses_total",
			Help:      "M-SEARCH responses sent as the proxy.",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Description conversions by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Conversion cache lookups by result.",
		}, []string{"result"}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries in the conversion cache after the last cleanup.",
		}),
	}

	m.registry.MustRegister(
		m.devicesDiscovered,
		m.devicesRemoved,
		m.registryDevices,
		m.ssdpMessages,
		m.ssdpDropped,
		m.searchResponses,
		m.conversions,
		m.cacheLookups,
		m.cacheEntries,
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DeviceDiscovered counts a first sighting
func (m *Metrics) DeviceDiscovered() {
	if m == nil {
		return
	}
	m.devicesDiscovered.Inc()
	m.registryDevices.Inc()
}

// DevicesRemoved counts devices dropped by the sweep and resets the gauge
func (m *Metrics) DevicesRemoved(n, remaining int) {
	if m == nil {
		return
	}
	m.devicesRemoved.Add(float64(n))
	m.registryDevices.Set(float64(remaining))
}

// SSDPMessage counts an inbound message of the given kind
func (m *Metrics) SSDPMessage(kind string) {
	if m == nil {
		return
	}
	m.ssdpMessages.WithLabelValues(kind).Inc()
}

// SSDPDropped counts a message the router ignored
func (m *Metrics) SSDPDropped(reason string) {
	if m == nil {
		return
	}
	m.ssdpDropped.WithLabelValues(reason).Inc()
}

// SearchResponse counts a response sent to an M-SEARCH
func (m *Metrics) SearchResponse() {
	if m == nil {
		return
	}
	m.searchResponses.Inc()
}

// Conversion counts a conversion attempt; ok reports success
func (m *Metrics) Conversion(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.conversions.WithLabelValues(result).Inc()
}

// CacheLookup counts a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEntries records the cache size
func (m *Metrics) CacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}
