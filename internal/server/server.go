package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/converter"
	"github.com/muurk/jsonupnp/internal/description"
	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/mdns"
	"github.com/muurk/jsonupnp/internal/proxy"
	"github.com/muurk/jsonupnp/internal/urls"
	"github.com/muurk/jsonupnp/internal/version"
)

// shutdownTimeout bounds Shutdown when the caller's context has no deadline
const shutdownTimeout = 10 * time.Second

// Config holds the HTTP server configuration
type Config struct {
	Host         string
	Port         int
	CacheTTL     int           // Cache-Control max-age for converted documents (0 = omit)
	FetchTimeout time.Duration // upstream fetch timeout (0 = default)
	MDNSEnabled  bool          // advertise the proxy over mDNS
	MDNSInstance string        // mDNS instance name
}

// ConvertFunc turns a raw description into its JSON form
type ConvertFunc func(raw []byte, docType converter.DocType) (any, error)

// Option configures a Server
type Option func(*Server)

// WithFetcher replaces the upstream description fetcher
func WithFetcher(f *description.Fetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithConverter replaces the description converter
func WithConverter(fn ConvertFunc) Option {
	return func(s *Server) { s.convert = fn }
}

// Server is the proxy's HTTP front end
type Server struct {
	config  *Config
	service *proxy.Service
	fetcher *description.Fetcher
	convert ConvertFunc
	hub     *Hub

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	advertiser *mdns.Advertiser
}

// New creates a server in front of svc
func New(config *Config, svc *proxy.Service, opts ...Option) *Server {
	s := &Server{
		config:  config,
		service: svc,
		fetcher: description.NewFetcher(),
		convert: converter.Convert,
		hub:     NewHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if config.FetchTimeout > 0 {
		s.fetcher.SetTimeout(config.FetchTimeout)
	}

	s.subscribe()
	return s
}

// Hub returns the websocket event hub
func (s *Server) Hub() *Hub { return s.hub }

// Listen binds the HTTP listener without serving
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	addr := addrString(s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves HTTP, starts the proxy service and blocks until ctx is done,
// a shutdown signal arrives or serving fails
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	identity := s.service.Identity()
	logging.Info("Starting JSON-UPnP proxy server",
		zap.String("addr", s.Addr().String()),
		zap.String("uuid", identity.UUID),
		zap.String("description", identity.DescriptionURL()),
		zap.String("version", version.Version),
	)

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer := s.httpServer
	listener := s.listener
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	if err := s.service.Start(ctx); err != nil {
		_ = httpServer.Close()
		return fmt.Errorf("failed to start proxy service: %w", err)
	}

	if s.config.MDNSEnabled {
		advertiser, err := mdns.Advertise(mdns.Advertisement{
			Instance: s.config.MDNSInstance,
			UUID:     identity.UUID,
			Port:     identity.Port,
			Path:     urls.ProxyDescription,
			Version:  version.Version,
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.mu.Lock()
			s.advertiser = advertiser
			s.mu.Unlock()
		}
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		shutdownErr := s.Shutdown(context.Background())
		if ok && err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return shutdownErr
	}
}

// Shutdown stops the proxy service (sending byebye), withdraws the mDNS
// advertisement, disconnects event subscribers and drains HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	var errs []error
	if err := s.service.Stop(ctx); err != nil && !errors.Is(err, proxy.ErrNotRunning) {
		errs = append(errs, fmt.Errorf("failed to stop proxy service: %w", err))
	}

	s.mu.Lock()
	advertiser := s.advertiser
	s.advertiser = nil
	httpServer := s.httpServer
	listener := s.listener
	s.mu.Unlock()

	advertiser.Shutdown()
	s.hub.Close()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			_ = httpServer.Close()
		}
	} else if listener != nil {
		_ = listener.Close()
	}

	logging.Info("Server stopped")
	logging.Sync()

	return errors.Join(errs...)
}
