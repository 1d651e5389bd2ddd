package proxy

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/cache"
	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/registry"
	"github.com/muurk/jsonupnp/internal/ssdp"
)

// Intervals configures the periodic loops
type Intervals struct {
	Announce       time.Duration // between ssdp:alive announcements
	DiscoveryDelay time.Duration // before the first M-SEARCH
	Probe          time.Duration // between M-SEARCH probes
	SearchMX       int           // MX of outbound probes
	Cleanup        time.Duration // between registry/cache cleanups
	StaleAfter     time.Duration // registry staleness threshold
	CacheMax       int           // compaction trigger
	CacheKeep      int           // entries kept by compaction
}

// DefaultIntervals returns the standard loop timings
func DefaultIntervals() Intervals {
	return Intervals{
		Announce:       600 * time.Second,
		DiscoveryDelay: 5 * time.Second,
		Probe:          120 * time.Second,
		SearchMX:       ssdp.DefaultMaxWait,
		Cleanup:        300 * time.Second,
		StaleAfter:     registry.DefaultMaxAge,
		CacheMax:       cache.DefaultMaxSize,
		CacheKeep:      cache.DefaultKeep,
	}
}

// Compactor is the cache as seen by the cleanup loop
type Compactor interface {
	Compact(maxSize, keep int) int
	Len() int
}

// CleanupResult reports one cleanup pass
type CleanupResult struct {
	Removed []registry.Device
	Evicted int
}

// Scheduler runs the announce, discovery and cleanup loops
type Scheduler struct {
	transport Transport
	registry  *registry.Registry
	cache     Compactor
	clock     clock.Clock
	metrics   *metrics.Metrics
	intervals Intervals

	onRemoved func([]registry.Device)
}

// NewScheduler wires the loops to their collaborators
func NewScheduler(t Transport, reg *registry.Registry, c Compactor, clk clock.Clock, m *metrics.Metrics, iv Intervals) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		transport: t,
		registry:  reg,
		cache:     c,
		clock:     clk,
		metrics:   m,
		intervals: iv,
	}
}

// AnnounceLoop sends ssdp:alive now and then every Announce interval
func (s *Scheduler) AnnounceLoop(ctx context.Context) error {
	ticker := s.clock.Ticker(s.intervals.Announce)
	defer ticker.Stop()

	s.announce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.announce(ctx)
		}
	}
}

func (s *Scheduler) announce(ctx context.Context) {
	if err := s.transport.SendAlive(ctx); err != nil && ctx.Err() == nil {
		logging.Warn("Failed to send alive announcement", zap.Error(err))
		return
	}
	logging.Debug("Sent alive announcement")
}

// DiscoveryLoop waits DiscoveryDelay, then probes with ssdp:all every
// Probe interval
func (s *Scheduler) DiscoveryLoop(ctx context.Context) error {
	timer := s.clock.Timer(s.intervals.DiscoveryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	ticker := s.clock.Ticker(s.intervals.Probe)
	defer ticker.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Scheduler) probe(ctx context.Context) {
	if err := s.transport.SendSearch(ctx, ssdp.SearchAll, s.intervals.SearchMX); err != nil && ctx.Err() == nil {
		logging.Warn("Failed to send search", zap.Error(err))
		return
	}
	logging.Debug("Sent search", zap.String("target", ssdp.SearchAll), zap.Int("mx", s.intervals.SearchMX))
}

// CleanupLoop runs Cleanup every Cleanup interval
func (s *Scheduler) CleanupLoop(ctx context.Context) error {
	ticker := s.clock.Ticker(s.intervals.Cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Cleanup(s.clock.Now())
		}
	}
}

// Cleanup sweeps stale devices and compacts the conversion cache
func (s *Scheduler) Cleanup(now time.Time) CleanupResult {
	removed := s.registry.SweepDevices(now, s.intervals.StaleAfter)
	for _, d := range removed {
		logging.LogRemoval(d.ID, d.Age(now))
	}
	if len(removed) > 0 {
		s.metrics.DevicesRemoved(len(removed), s.registry.Len())
		if s.onRemoved != nil {
			s.onRemoved(removed)
		}
	}

	var evicted int
	if s.cache != nil {
		evicted = s.cache.Compact(s.intervals.CacheMax, s.intervals.CacheKeep)
		if evicted > 0 {
			logging.Debug("Compacted conversion cache",
				zap.Int("evicted", evicted),
				zap.Int("remaining", s.cache.Len()),
			)
		}
		s.metrics.CacheEntries(s.cache.Len())
	}

	return CleanupResult{Removed: removed, Evicted: evicted}
}
