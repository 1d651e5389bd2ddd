package config

import "time"

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Config represents the entire proxy configuration file.
// Durations are whole seconds.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level"`
	HTTP      HTTPConfig      `yaml:"http"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	SSDP      SSDPConfig      `yaml:"ssdp"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	MDNS      MDNSConfig      `yaml:"mdns"`
}

// HTTPConfig is the API listener
type HTTPConfig struct {
	Host          string `yaml:"host"`                     // Bind address
	Port          int    `yaml:"port"`                     // Bind port
	AdvertiseHost string `yaml:"advertise_host,omitempty"` // Host put in announced URLs (auto-detected if empty)
}

// ProxyConfig holds the proxy identity and cache hint
type ProxyConfig struct {
	UUID     string `yaml:"uuid,omitempty"` // Fixed proxy identifier (generated if empty)
	CacheTTL int    `yaml:"cache_ttl"`      // Cache-Control max-age of converted documents
}

// SSDPConfig is the multicast discovery transport
type SSDPConfig struct {
	MulticastGroup   string `yaml:"multicast_group"`
	MulticastPort    int    `yaml:"multicast_port"`
	Interface        string `yaml:"interface,omitempty"` // Network interface name (empty = system default)
	TTL              int    `yaml:"ttl"`
	AnnounceInterval int    `yaml:"announce_interval"`
}

// DiscoveryConfig drives active M-SEARCH probing
type DiscoveryConfig struct {
	InitialDelay  int `yaml:"initial_delay"`
	ProbeInterval int `yaml:"probe_interval"`
	SearchMX      int `yaml:"search_mx"`
}

// CleanupConfig drives the registry sweep and cache compaction
type CleanupConfig struct {
	Interval   int `yaml:"interval"`
	StaleAfter int `yaml:"stale_after"`
	CacheMax   int `yaml:"cache_max"`
	CacheKeep  int `yaml:"cache_keep"`
}

// MDNSConfig controls the optional zeroconf advertisement
type MDNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// Default returns a Config with every default applied
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		LogLevel: "info",
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 5030,
		},
		Proxy: ProxyConfig{
			CacheTTL: 3600,
		},
		SSDP: SSDPConfig{
			MulticastGroup:   "224.0.0.1",
			MulticastPort:    5007,
			TTL:              2,
			AnnounceInterval: 600,
		},
		Discovery: DiscoveryConfig{
			InitialDelay:  5,
			ProbeInterval: 120,
			SearchMX:      3,
		},
		Cleanup: CleanupConfig{
			Interval:   300,
			StaleAfter: 3600,
			CacheMax:   100,
			CacheKeep:  50,
		},
		MDNS: MDNSConfig{
			Enabled:  false,
			Instance: "jsonupnp-proxy",
		},
	}
}

// Seconds converts a config value in seconds to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
