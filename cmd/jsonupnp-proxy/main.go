// Jsonupnp-proxy bridges classic UPnP devices and JSON-speaking clients.
//
// It listens for SSDP announcements on a multicast group, keeps a registry of
// the devices it hears, announces itself as a JSON-UPnP proxy and serves an
// HTTP API that converts device and service descriptions from XML to JSON.
//
// Usage:
//
//	jsonupnp-proxy serve [flags]
//
// See 'jsonupnp-proxy --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/jsonupnp/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "jsonupnp-proxy",
	Short: "JSON-UPnP Proxy Server",
	Long: `A discovery proxy that makes classic UPnP devices available to JSON clients.

The proxy joins an SSDP multicast group, records every device that announces
itself or answers a search, and advertises its own conversion service. Clients
fetch device and service descriptions through the proxy's HTTP API and get JSON
back instead of XML.

For querying a running proxy, use the separate 'jsonupnp-cli' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jsonupnp-proxy %s\n", version.Full())
	},
}
