// Jsonupnp-cli queries JSON-UPnP proxies on the local network.
//
// It finds proxies over mDNS, lists the devices a proxy has discovered,
// converts descriptions through a proxy and can search the standard UPnP
// multicast group directly.
//
// Usage:
//
//	jsonupnp-cli [command] [flags]
//
// See 'jsonupnp-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jsonupnp-cli",
	Short: "JSON-UPnP Proxy Client",
	Long: `A command-line client for JSON-UPnP proxies.

Commands talk to the proxy given with --proxy. Without it, the proxy is found
over mDNS; this requires the proxy to run with mDNS advertisement enabled.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless JSONUPNP_LOG_LEVEL is set
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jsonupnp-cli %s\n", version.Full())
	},
}
