package proxy

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/ssdp"
)

// Search target markers the proxy answers to
const (
	markerJSONUPnP = "json-upnp"
	markerProxy    = "proxy"
)

// RandSource yields uniform values in [0, 1)
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand is the process-wide math/rand/v2 source
var DefaultRand RandSource = globalRand{}

// Matches reports whether the proxy answers a search for target:
// the wildcard, or anything naming json-upnp or proxy devices.
func Matches(target string) bool {
	if target == ssdp.SearchAll {
		return true
	}
	t := strings.ToLower(target)
	return strings.Contains(t, markerJSONUPnP) || strings.Contains(t, markerProxy)
}

// Policy decides whether and when to answer a search
type Policy struct {
	responder Responder
	clock     clock.Clock
	rand      RandSource
	metrics   *metrics.Metrics
}

// NewPolicy creates a response policy. Nil clock and rand fall back to the
// real clock and DefaultRand.
func NewPolicy(r Responder, clk clock.Clock, rnd RandSource, m *metrics.Metrics) *Policy {
	if clk == nil {
		clk = clock.New()
	}
	if rnd == nil {
		rnd = DefaultRand
	}
	return &Policy{responder: r, clock: clk, rand: rnd, metrics: m}
}

// Delay returns a jitter uniformly distributed in [0, maxWait] seconds.
// maxWait <= 0 means the query carried no MX, and the default of 3 applies.
func (p *Policy) Delay(maxWait int) time.Duration {
	if maxWait <= 0 {
		maxWait = ssdp.DefaultMaxWait
	}
	limit := time.Duration(maxWait) * time.Second

	d := time.Duration(p.rand.Float64() * float64(limit))
	if d < 0 {
		return 0
	}
	if d > limit {
		return limit
	}
	return d
}

// Respond answers a search query after the jitter delay. It returns false
// when the target is not ours, when ctx ends during the wait, or when the
// send fails.
func (p *Policy) Respond(ctx context.Context, msg *ssdp.Message) bool {
	target := msg.SearchTarget()
	if !Matches(target) {
		p.metrics.SSDPDropped(metrics.DropUnmatched)
		logging.LogSSDPDrop(metrics.DropUnmatched, msg.FromString(), target)
		return false
	}

	delay := p.Delay(msg.MaxWait())
	timer := p.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	if err := p.responder.SendResponse(ctx, target, msg.From); err != nil {
		if ctx.Err() == nil {
			logging.Warn("Failed to send search response",
				zap.String("target", target),
				zap.String("to", msg.FromString()),
				zap.Error(err),
			)
		}
		return false
	}

	p.metrics.SearchResponse()
	logging.LogSearchResponse(target, msg.FromString(), delay)
	return true
}
