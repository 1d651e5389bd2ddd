package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "jsonupnp"
	configFile = "config.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/jsonupnp or $HOME/.config/jsonupnp
//   - macOS: $HOME/.config/jsonupnp
//   - Windows: %LOCALAPPDATA%\jsonupnp
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path, or at the default path when path
// is empty. A missing file yields the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks ports, intervals and cache thresholds
func (c *Config) Validate() error {
	var errs []error

	if err := validPort("http.port", c.HTTP.Port); err != nil {
		errs = append(errs, err)
	}
	if err := validPort("ssdp.multicast_port", c.SSDP.MulticastPort); err != nil {
		errs = append(errs, err)
	}

	if ip := net.ParseIP(c.SSDP.MulticastGroup); ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		errs = append(errs, fmt.Errorf("ssdp.multicast_group %q is not an IPv4 multicast address", c.SSDP.MulticastGroup))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"ssdp.announce_interval", c.SSDP.AnnounceInterval},
		{"ssdp.ttl", c.SSDP.TTL},
		{"discovery.probe_interval", c.Discovery.ProbeInterval},
		{"discovery.search_mx", c.Discovery.SearchMX},
		{"cleanup.interval", c.Cleanup.Interval},
		{"cleanup.stale_after", c.Cleanup.StaleAfter},
		{"cleanup.cache_max", c.Cleanup.CacheMax},
		{"cleanup.cache_keep", c.Cleanup.CacheKeep},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}

	if c.Discovery.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("discovery.initial_delay must not be negative, got %d", c.Discovery.InitialDelay))
	}
	if c.Proxy.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("proxy.cache_ttl must not be negative, got %d", c.Proxy.CacheTTL))
	}
	if c.Cleanup.CacheKeep > c.Cleanup.CacheMax {
		errs = append(errs, fmt.Errorf("cleanup.cache_keep (%d) must not exceed cleanup.cache_max (%d)", c.Cleanup.CacheKeep, c.Cleanup.CacheMax))
	}
	if c.MDNS.Enabled && strings.TrimSpace(c.MDNS.Instance) == "" {
		errs = append(errs, errors.New("mdns.instance must be set when mdns is enabled"))
	}

	return errors.Join(errs...)
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// Save writes the configuration to path (the default path when empty).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# JSON-UPnP Proxy Configuration File
# Durations are in seconds. Command-line flags override these values.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// Marshal returns the YAML form of the configuration
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ResolveAdvertiseHost returns the host peers should use to reach the API:
// advertise_host when set, the bind host when it is a concrete address, and
// otherwise the first non-loopback IPv4 address of an up interface.
func (c *Config) ResolveAdvertiseHost() string {
	if c.HTTP.AdvertiseHost != "" {
		return c.HTTP.AdvertiseHost
	}
	if ip := net.ParseIP(c.HTTP.Host); ip != nil && !ip.IsUnspecified() {
		return c.HTTP.Host
	}
	if ip := firstIPv4(); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

func firstIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil && !ip4.IsLinkLocalUnicast() {
				return ip4.String()
			}
		}
	}
	return ""
}
