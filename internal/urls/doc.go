// Package urls provides centralized constants for the proxy's HTTP API paths
// and the helpers that derive absolute URLs from them.
//
// The server registers its routes from these constants and the client builds
// its requests from the same helpers, so a path only has to change here.
//
// Usage:
//
//	import "github.com/muurk/jsonupnp/internal/urls"
//
//	jsonURL := urls.Convert("http://192.168.1.5:5030", location)
package urls
