// Package server is the HTTP front end of the JSON-UPnP proxy.
//
// It serves the conversion and registry API on top of a proxy.Service:
//
//	GET /proxy/description      self description of this proxy
//	GET /device/json?url=...    device description converted to JSON (cached)
//	GET /service/json?url=...   SCPD service description converted to JSON (cached)
//	GET /device/xml?url=...     raw upstream description
//	GET /devices                registry listing
//	GET /devices/{uuid}         one device with a freshly converted description
//	GET /events                 websocket stream of discovery events
//	GET /metrics                Prometheus metrics
//	GET /healthz                liveness
//
// JSON errors are returned as {"error": "..."} with the status derived from
// the proxyerr type. The raw passthrough reports failures as plain text.
//
// # Lifecycle
//
// Start binds the listener, starts the proxy service and optionally
// registers an mDNS advertisement. It blocks until its context is done or
// SIGINT/SIGTERM arrives. Shutdown stops the proxy (which sends ssdp:byebye),
// closes subscriber connections and drains in-flight HTTP requests.
package server
