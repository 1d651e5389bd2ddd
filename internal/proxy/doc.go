// Package proxy is the discovery coordination engine of the JSON-UPnP proxy.
//
// A Service owns the device registry and the conversion cache. Inbound SSDP
// messages go through the Router, which records legacy devices and hands
// search queries to the Policy. The Policy answers matching searches after a
// random delay in [0, MX] seconds. The Scheduler runs three loops:
//
//	announce   ssdp:alive immediately, then every 600s
//	discovery  ssdp:all M-SEARCH after 5s, then every 120s
//	cleanup    every 300s: drop devices unseen for 1h, compact the cache
//
// Time comes from an injected github.com/benbjohnson/clock.Clock and jitter
// from an injected RandSource.
package proxy
