package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/jsonupnp/internal/client"
	"github.com/muurk/jsonupnp/internal/mdns"
	"github.com/muurk/jsonupnp/internal/ui"
	"github.com/muurk/jsonupnp/internal/upnpscan"
)

// Command flags
var (
	proxyURL      string
	outputFormat  string
	findTimeout   int
	retries       int
	serviceDoc    bool
	rawDoc        bool
	watchInterval int
	scanTarget    string
	scanWait      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "Proxy base URL, e.g. http://192.168.1.5:5030 (skips mDNS lookup)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", client.DefaultMaxRetries, "Retry attempts for unreachable proxies")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
}

// findCmd looks up proxies over mDNS
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find JSON-UPnP proxies on the network",
	Long: `Find JSON-UPnP proxies using mDNS/DNS-SD discovery.

Only proxies started with mDNS advertisement enabled are found.`,
	Example: `  # Browse for 5 seconds (default)
  jsonupnp-cli find

  # Longer browse for slow networks
  jsonupnp-cli find --timeout 15`,
	RunE: runFind,
}

func init() {
	findCmd.Flags().IntVar(&findTimeout, "timeout", 5, "Browse timeout in seconds")
}

func runFind(cmd *cobra.Command, args []string) error {
	scanner := mdns.NewScanner()
	scanner.Timeout = time.Duration(findTimeout) * time.Second

	proxies, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("mDNS lookup failed: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(proxies)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(proxies) == 0 {
		p.PrintError("No proxies found", nil,
			"Ensure the proxy runs with --mdns or mdns.enabled: true",
			"Check that UDP port 5353 is not blocked",
			"Try increasing --timeout for slower networks",
			"Use --proxy to specify the proxy URL manually",
		)
		return nil
	}

	t := ui.NewTable("UUID", "INSTANCE", "ADDRESS", "DESCRIPTION")
	t.Muted[3] = true
	for _, px := range proxies {
		t.AddRow(px.UUID, px.Instance, px.BaseURL(), px.DescriptionURL())
	}
	p.PrintTable(t)
	return nil
}

// devicesCmd lists a proxy's registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices known to a proxy",
	Example: `  jsonupnp-cli devices --proxy http://192.168.1.5:5030
  jsonupnp-cli devices --format json`,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd.Context())
	if err != nil {
		return err
	}

	list, err := c.ListDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(list)
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Devices", "jsonupnp-cli devices",
		ui.Param{Key: "Proxy", Value: c.BaseURL},
		ui.Param{Key: "Count", Value: fmt.Sprint(list.Count)},
	)
	p.PrintTable(ui.DeviceTable(list, time.Now(), p.Width()))
	return nil
}

// deviceCmd shows one device with a fresh description
var deviceCmd = &cobra.Command{
	Use:   "device <uuid>",
	Short: "Show one device and its converted description",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevice,
}

func runDevice(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd.Context())
	if err != nil {
		return err
	}

	d, err := c.GetDevice(cmd.Context(), args[0])
	if client.IsNotFound(err) {
		return fmt.Errorf("device %s is not known to %s", args[0], c.BaseURL)
	}
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(d)
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintSuccess(d.UUID,
		ui.Param{Key: "Type", Value: d.DeviceType},
		ui.Param{Key: "Address", Value: d.Addr},
		ui.Param{Key: "Location", Value: d.Location},
		ui.Param{Key: "Last seen", Value: ui.Since(d.LastSeenAt, time.Now())},
	)
	return printJSON(d.Description)
}

// convertCmd converts a description through the proxy
var convertCmd = &cobra.Command{
	Use:   "convert <location>",
	Short: "Convert a description URL through the proxy",
	Long: `Fetch a device (or, with --service, an SCPD service) description through the
proxy and print its JSON form. With --raw the upstream XML is printed instead.`,
	Example: `  jsonupnp-cli convert http://192.168.1.40:8080/desc.xml
  jsonupnp-cli convert --service http://192.168.1.40:8080/ContentDirectory.xml
  jsonupnp-cli convert --raw http://192.168.1.40:8080/desc.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().BoolVar(&serviceDoc, "service", false, "Treat the document as an SCPD service description")
	convertCmd.Flags().BoolVar(&rawDoc, "raw", false, "Print the upstream document unconverted")
}

func runConvert(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd.Context())
	if err != nil {
		return err
	}
	location := args[0]

	if rawDoc {
		body, err := c.Raw(cmd.Context(), location)
		if err != nil {
			return fmt.Errorf("failed to fetch document: %w", err)
		}
		_, err = os.Stdout.Write(body)
		return err
	}

	convert := c.Convert
	if serviceDoc {
		convert = c.ConvertService
	}

	raw, err := convert(cmd.Context(), location)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	fmt.Println(out.String())
	return nil
}

// watchCmd follows a proxy's registry in a TUI
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a proxy's device list live",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 5, "Refresh interval in seconds")
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd.Context())
	if err != nil {
		return err
	}
	if !ui.IsTerminal() {
		return fmt.Errorf("watch needs a terminal; use 'jsonupnp-cli devices' instead")
	}

	interval := time.Duration(watchInterval) * time.Second
	if interval < time.Second {
		interval = time.Second
	}
	return ui.RunWatch("Devices at "+c.BaseURL, c.ListDevices, interval)
}

// scanCmd searches the standard UPnP group directly
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Search for UPnP devices directly (no proxy)",
	Long: `Send an M-SEARCH to the standard UPnP multicast group (239.255.255.250:1900)
and list the devices that answer. This bypasses the proxy entirely and is useful
to check what the proxy should be able to see.`,
	Example: `  jsonupnp-cli scan
  jsonupnp-cli scan --target upnp:rootdevice --wait 5`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanTarget, "target", upnpscan.All, "Search target (ST)")
	scanCmd.Flags().IntVar(&scanWait, "wait", 3, "Seconds to wait for answers")
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner := upnpscan.NewScanner()
	scanner.Target = scanTarget
	scanner.Wait = time.Duration(scanWait) * time.Second

	results, err := scanner.Scan()
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(results)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(results) == 0 {
		p.PrintError("No devices answered", nil,
			"Check that multicast is allowed on this network",
			"Try increasing --wait",
		)
		return nil
	}

	t := ui.NewTable("UUID", "TYPES", "LOCATION", "SERVER")
	t.Muted[3] = true
	for _, r := range results {
		types := make([]string, 0, len(r.Types))
		for _, typ := range r.Types {
			types = append(types, ui.ShortType(typ))
		}
		t.AddRow(r.UUID, strings.Join(types, ", "), r.Location, r.Server)
	}
	p.PrintTable(t)
	return nil
}

// getClient returns a client for --proxy, or for the single proxy found
// over mDNS
func getClient(ctx context.Context) (*client.Client, error) {
	base := proxyURL
	if base == "" {
		found, err := findSingleProxy(ctx)
		if err != nil {
			return nil, err
		}
		base = found
	}

	c := client.NewClientWithURL(base)
	c.MaxRetries = retries
	return c, nil
}

func findSingleProxy(ctx context.Context) (string, error) {
	fmt.Fprintln(os.Stderr, "No proxy specified, looking for one over mDNS...")

	proxies, err := mdns.NewScanner().Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("mDNS lookup failed: %w", err)
	}

	switch len(proxies) {
	case 0:
		return "", fmt.Errorf("no proxies found. Use --proxy to specify the proxy URL")
	case 1:
		fmt.Fprintf(os.Stderr, "Found proxy %s at %s\n\n", proxies[0].UUID, proxies[0].BaseURL())
		return proxies[0].BaseURL(), nil
	default:
		fmt.Fprintf(os.Stderr, "Found %d proxies:\n", len(proxies))
		for i, px := range proxies {
			fmt.Fprintf(os.Stderr, "%d. %s (%s)\n", i+1, px.UUID, px.BaseURL())
		}
		return "", fmt.Errorf("multiple proxies found. Use --proxy to specify which one")
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
