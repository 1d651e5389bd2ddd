package proxy

import (
	"context"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/registry"
	"github.com/muurk/jsonupnp/internal/ssdp"
)

// Router classifies inbound SSDP messages into registry updates and
// search responses
type Router struct {
	self     string
	registry *registry.Registry
	policy   *Policy
	clock    clock.Clock
	metrics  *metrics.Metrics

	mu      sync.Mutex
	stopped bool
	pending sync.WaitGroup
}

// NewRouter creates a router for the proxy identified by self
func NewRouter(self string, reg *registry.Registry, policy *Policy, clk clock.Clock, m *metrics.Metrics) *Router {
	if clk == nil {
		clk = clock.New()
	}
	return &Router{
		self:     self,
		registry: reg,
		policy:   policy,
		clock:    clk,
		metrics:  m,
	}
}

// Handler returns the transport callback. Pending search responses are
// abandoned when ctx ends.
func (r *Router) Handler(ctx context.Context) ssdp.Handler {
	return func(msg *ssdp.Message) {
		r.Route(ctx, msg)
	}
}

// Route handles one inbound message
func (r *Router) Route(ctx context.Context, msg *ssdp.Message) {
	r.metrics.SSDPMessage(msg.Kind.String())

	switch msg.Kind {
	case ssdp.KindNotify, ssdp.KindSearchResponse:
		logging.LogSSDPMessage(msg.Kind.String(), msg.FromString(), msg.USN(), msg.Role())
		r.presence(msg)
	case ssdp.KindSearch:
		logging.LogSSDPMessage(msg.Kind.String(), msg.FromString(), msg.ProxyUUID(), msg.SearchTarget())
		r.query(ctx, msg)
	}
}

func (r *Router) presence(msg *ssdp.Message) {
	if reason := r.dropReason(msg); reason != "" {
		r.metrics.SSDPDropped(reason)
		logging.LogSSDPDrop(reason, msg.FromString(), msg.USN())
		return
	}

	host, port := msg.FromHostPort()
	r.registry.Upsert(msg.UUID(), msg.Location(), msg.Role(), host, port, r.clock.Now())
}

// dropReason returns why a presence message must not reach the registry,
// or "" when it should be recorded
func (r *Router) dropReason(msg *ssdp.Message) string {
	if msg.IsByebye() {
		return metrics.DropByebye
	}

	id := msg.UUID()
	if id == "" || msg.Location() == "" {
		return metrics.DropIncomplete
	}
	if id == r.self || msg.ProxyUUID() == r.self {
		return metrics.DropSelf
	}
	if msg.IsJSONNative() || strings.Contains(strings.ToLower(msg.Role()), markerJSONUPnP) {
		return metrics.DropJSONNative
	}
	return ""
}

func (r *Router) query(ctx context.Context, msg *ssdp.Message) {
	if msg.ProxyUUID() == r.self {
		r.metrics.SSDPDropped(metrics.DropSelf)
		logging.LogSSDPDrop(metrics.DropSelf, msg.FromString(), msg.SearchTarget())
		return
	}

	r.mu.Lock()
	if r.stopped || ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		r.policy.Respond(ctx, msg)
	}()
}

func (r *Router) resume() {
	r.mu.Lock()
	r.stopped = false
	r.mu.Unlock()
}

// Wait stops accepting queries and blocks until every pending response
// has been sent or abandoned
func (r *Router) Wait() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.pending.Wait()
}
