// Package logging provides structured logging for the JSON-UPnP proxy.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the proxy: general leveled logging plus helpers for
// discovery, SSDP traffic and HTTP requests.
//
// # Log Levels
//
//   - Debug: SSDP datagrams, dropped messages, jittered responses
//   - Info: device discovery and removal, HTTP requests, lifecycle
//   - Warn: non-fatal send failures in the background loops
//   - Error: startup failures and conversion errors
//
// # Structured Logging
//
//	logging.Info("Proxy started",
//	    zap.String("uuid", id),
//	    zap.String("addr", "192.168.1.63:5030"),
//	)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level falls back to the JSONUPNP_LOG_LEVEL environment variable,
// and stays silent when that is unset too. CLI commands rely on this.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
