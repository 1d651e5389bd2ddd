// Package client is an HTTP client for the JSON-UPnP proxy API.
//
// Requests that fail at the transport level (or get a 503) are retried with
// exponential backoff. Every other error status is returned as an *Error
// carrying the proxy's message:
//
//	c := client.NewClient("192.168.1.5", 5030)
//	list, err := c.ListDevices(ctx)
//	if client.IsNotFound(err) {
//	    ...
//	}
package client
