package proxy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/jsonupnp/internal/cache"
	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/registry"
)

// ErrNotRunning is returned by Stop before Start
var ErrNotRunning = errors.New("proxy service not running")

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock driving timestamps, jitter and loops
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRand sets the jitter random source
func WithRand(r RandSource) Option {
	return func(s *Service) { s.rand = r }
}

// WithMetrics sets the Prometheus sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIntervals overrides the loop timings
func WithIntervals(iv Intervals) Option {
	return func(s *Service) { s.intervals = iv }
}

// Service owns the registry and conversion cache and runs discovery
type Service struct {
	identity  Identity
	transport Transport
	registry  *registry.Registry
	cache     *cache.Cache[any]
	clock     clock.Clock
	rand      RandSource
	metrics   *metrics.Metrics
	intervals Intervals

	router    *Router
	scheduler *Scheduler
	started   time.Time

	mu           sync.Mutex
	running      bool
	cancelLoops  context.CancelFunc
	cancelListen context.CancelFunc
	group        *errgroup.Group

	removalMu        sync.RWMutex
	removalObservers []func(registry.Device)
}

// NewService creates a stopped proxy service
func NewService(id Identity, t Transport, opts ...Option) *Service {
	s := &Service{
		identity:  id,
		transport: t,
		registry:  registry.New(),
		cache:     cache.New[any](),
		clock:     clock.New(),
		rand:      DefaultRand,
		intervals: DefaultIntervals(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.started = s.clock.Now()
	s.registry.Observe(func(d registry.Device) {
		s.metrics.DeviceDiscovered()
		logging.LogDiscovery(d.ID, d.Role, d.Location, d.Address())
	})

	policy := NewPolicy(t, s.clock, s.rand, s.metrics)
	s.router = NewRouter(id.UUID, s.registry, policy, s.clock, s.metrics)
	s.scheduler = NewScheduler(t, s.registry, s.cache, s.clock, s.metrics, s.intervals)
	s.scheduler.onRemoved = s.notifyRemoved

	return s
}

// Identity returns the proxy identity
func (s *Service) Identity() Identity { return s.identity }

// Registry returns the device registry
func (s *Service) Registry() *registry.Registry { return s.registry }

// Cache returns the conversion cache
func (s *Service) Cache() *cache.Cache[any] { return s.cache }

// Metrics returns the metrics sink, which may be nil
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// Clock returns the service clock
func (s *Service) Clock() clock.Clock { return s.clock }

// Router returns the inbound message router
func (s *Service) Router() *Router { return s.router }

// Scheduler returns the loop scheduler
func (s *Service) Scheduler() *Scheduler { return s.scheduler }

// Monotonic returns t as seconds since the service was created
func (s *Service) Monotonic(t time.Time) float64 {
	return t.Sub(s.started).Seconds()
}

// OnRemoval registers a callback for devices dropped by the cleanup sweep
func (s *Service) OnRemoval(fn func(registry.Device)) {
	s.removalMu.Lock()
	defer s.removalMu.Unlock()
	s.removalObservers = append(s.removalObservers, fn)
}

func (s *Service) notifyRemoved(devices []registry.Device) {
	s.removalMu.RLock()
	observers := make([]func(registry.Device), len(s.removalObservers))
	copy(observers, s.removalObservers)
	s.removalMu.RUnlock()

	for _, d := range devices {
		for _, fn := range observers {
			fn(d)
		}
	}
}

// Start begins listening and launches the three loops
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("proxy service already running")
	}

	s.router.resume()

	// The listener outlives the loops so byebye goes out before it closes
	listenCtx, cancelListen := context.WithCancel(context.WithoutCancel(ctx))
	loopCtx, cancelLoops := context.WithCancel(ctx)

	if err := s.transport.Listen(listenCtx, s.router.Handler(loopCtx)); err != nil {
		cancelLoops()
		cancelListen()
		return err
	}

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return s.scheduler.AnnounceLoop(gctx) })
	g.Go(func() error { return s.scheduler.DiscoveryLoop(gctx) })
	g.Go(func() error { return s.scheduler.CleanupLoop(gctx) })

	s.group = g
	s.cancelLoops = cancelLoops
	s.cancelListen = cancelListen
	s.running = true

	logging.Info("JSON-UPnP proxy service started",
		zap.String("uuid", s.identity.UUID),
		zap.String("endpoint", s.identity.BaseURL()),
	)
	return nil
}

// Stop cancels the loops, waits for them and for pending search responses,
// sends ssdp:byebye and closes the listener
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	s.running = false

	s.cancelLoops()
	loopErr := s.group.Wait()
	s.router.Wait()

	if err := s.transport.SendByebye(ctx); err != nil {
		logging.Warn("Failed to send byebye", zap.Error(err))
	}

	closeErr := s.transport.Close()
	s.cancelListen()

	logging.Info("JSON-UPnP proxy service stopped", zap.String("uuid", s.identity.UUID))
	return errors.Join(loopErr, closeErr)
}
