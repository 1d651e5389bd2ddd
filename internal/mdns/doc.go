// Package mdns advertises and discovers JSON-UPnP proxies over multicast DNS.
//
// A running proxy can register itself as a "_jsonupnp._tcp" service so that
// clients find it without SSDP. The TXT records carry the proxy identity:
//
//	uuid=<proxy uuid>
//	path=/proxy/description
//	version=<build version>
//
// # Usage Example
//
//	scanner := mdns.NewScanner()
//	proxies, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, p := range proxies {
//	    fmt.Println(p.DescriptionURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package mdns
