package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/config"
	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/proxy"
	"github.com/muurk/jsonupnp/internal/server"
	"github.com/muurk/jsonupnp/internal/ssdp"
)

// Serve command flags. Unset flags leave the config file value alone.
var (
	host          string
	port          int
	advertiseHost string
	proxyUUID     string
	logLevel      string
	iface         string
	enableMDNS    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy",
	Long: `Start the JSON-UPnP proxy: SSDP listener, announcement and discovery loops,
and the HTTP conversion API.

Settings come from the config file (see 'jsonupnp-proxy config init') and can be
overridden with flags. On SIGINT or SIGTERM the proxy sends ssdp:byebye and
shuts down gracefully.`,
	Example: `  # Start with the config file or defaults
  jsonupnp-proxy serve

  # Bind a specific port with debug logging
  jsonupnp-proxy serve --port 8080 --log-level debug

  # Advertise a fixed host and identity, also over mDNS
  jsonupnp-proxy serve --advertise-host 192.168.1.5 --uuid 0b6f... --mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "HTTP bind address")
	serveCmd.Flags().IntVar(&port, "port", 0, "HTTP port")
	serveCmd.Flags().StringVar(&advertiseHost, "advertise-host", "", "Host put in announced URLs (auto-detected if empty)")
	serveCmd.Flags().StringVar(&proxyUUID, "uuid", "", "Proxy identifier (generated if empty)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&iface, "interface", "", "Network interface for multicast")
	serveCmd.Flags().BoolVar(&enableMDNS, "mdns", false, "Advertise the proxy over mDNS")
}

// applyFlags overlays the flags the user set onto cfg
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.HTTP.Host = host
	}
	if flags.Changed("port") {
		cfg.HTTP.Port = port
	}
	if flags.Changed("advertise-host") {
		cfg.HTTP.AdvertiseHost = advertiseHost
	}
	if flags.Changed("uuid") {
		cfg.Proxy.UUID = proxyUUID
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("interface") {
		cfg.SSDP.Interface = iface
	}
	if flags.Changed("mdns") {
		cfg.MDNS.Enabled = enableMDNS
	}
}

// intervalsFromConfig maps the config's second counts onto loop timings
func intervalsFromConfig(cfg *config.Config) proxy.Intervals {
	return proxy.Intervals{
		Announce:       config.Seconds(cfg.SSDP.AnnounceInterval),
		DiscoveryDelay: config.Seconds(cfg.Discovery.InitialDelay),
		Probe:          config.Seconds(cfg.Discovery.ProbeInterval),
		SearchMX:       cfg.Discovery.SearchMX,
		Cleanup:        config.Seconds(cfg.Cleanup.Interval),
		StaleAfter:     config.Seconds(cfg.Cleanup.StaleAfter),
		CacheMax:       cfg.Cleanup.CacheMax,
		CacheKeep:      cfg.Cleanup.CacheKeep,
	}
}

// build wires a server from cfg without starting anything
func build(cfg *config.Config) (*server.Server, error) {
	identity := proxy.NewIdentity(cfg.Proxy.UUID, cfg.ResolveAdvertiseHost(), cfg.HTTP.Port)
	m := metrics.New()

	transport, err := ssdp.NewTransport(ssdp.Config{
		Group:         cfg.SSDP.MulticastGroup,
		Port:          cfg.SSDP.MulticastPort,
		Interface:     cfg.SSDP.Interface,
		TTL:           cfg.SSDP.TTL,
		Advertisement: identity.Advertisement(),
		OnMalformed: func(from net.Addr, err error) {
			m.SSDPDropped(metrics.DropMalformed)
			logging.Debug("Dropped malformed SSDP datagram",
				zap.Stringer("from", from),
				zap.Error(err),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SSDP transport: %w", err)
	}

	svc := proxy.NewService(identity, transport,
		proxy.WithMetrics(m),
		proxy.WithIntervals(intervalsFromConfig(cfg)),
	)

	return server.New(&server.Config{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		CacheTTL:     cfg.Proxy.CacheTTL,
		MDNSEnabled:  cfg.MDNS.Enabled,
		MDNSInstance: cfg.MDNS.Instance,
	}, svc), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	srv, err := build(cfg)
	if err != nil {
		return err
	}

	return srv.Start(context.Background())
}
