package proxy

import (
	"context"
	"net"

	"github.com/muurk/jsonupnp/internal/ssdp"
)

// Transport is the discovery wire driven by the service.
// *ssdp.Transport is the production implementation.
type Transport interface {
	Listen(ctx context.Context, h ssdp.Handler) error
	Close() error
	SendAlive(ctx context.Context) error
	SendByebye(ctx context.Context) error
	SendSearch(ctx context.Context, target string, maxWait int) error
	SendResponse(ctx context.Context, target string, to net.Addr) error
}

// Responder is the part of Transport used to answer searches
type Responder interface {
	SendResponse(ctx context.Context, target string, to net.Addr) error
}

var _ Transport = (*ssdp.Transport)(nil)
