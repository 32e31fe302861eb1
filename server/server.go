// Package server is the HTTP shell around the long running service: run
// requests, status and results by job identity, a websocket status stream,
// service teardown and the prometheus endpoint.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/longrun/am"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/longrun"
	"github.com/teranos/longrun/pulse/metrics"
)

const (
	// ShutdownTimeout bounds how long Stop waits for open watch streams
	ShutdownTimeout = 5 * time.Second

	// maxBodySize caps run request bodies
	maxBodySize = 64 * 1024
)

// Options configures a Server
type Options struct {
	// WatchInterval is how often watch streams re-derive status
	WatchInterval time.Duration
	// RunsPerMinute throttles POST /api/jobs; 0 disables throttling
	RunsPerMinute int
	// AllowedOrigins are origin prefixes accepted for CORS and websocket upgrades
	AllowedOrigins []string
	// Metrics backs /metrics; nil serves 404 there
	Metrics *metrics.Collector
}

// OptionsFromConfig builds Options from the loaded configuration
func OptionsFromConfig(cfg *am.Config, c *metrics.Collector) Options {
	opts := Options{
		WatchInterval:  time.Duration(cfg.Server.WatchIntervalMS) * time.Millisecond,
		RunsPerMinute:  cfg.Server.RunsPerMinute,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = c
	}
	return opts
}

// Server serves one longrun.Service over HTTP
type Server struct {
	svc      *longrun.Service
	opts     Options
	logger   *zap.SugaredLogger
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	state    atomic.Int32
	watchers atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server for svc. Routes are ready on return.
func New(svc *longrun.Service, opts Options, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = am.DefaultWatchIntervalMS * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:    svc,
		opts:   opts,
		logger: log,
		mux:    http.NewServeMux(),
		ctx:    ctx,
		cancel: cancel,
	}
	if opts.RunsPerMinute > 0 {
		// Burst of a full minute's allowance, refilled evenly
		s.limiter = rate.NewLimiter(rate.Limit(float64(opts.RunsPerMinute)/60.0), opts.RunsPerMinute)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupHTTPRoutes()
	s.setState(ServerStateRunning)
	return s
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) getState() ServerState {
	return ServerState(s.state.Load())
}

func (s *Server) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Debugw("Server state changed", "new_state", newState.String())
}

// Start listens on port, or the next free port after it, and serves until Stop
func (s *Server) Start(port int) error {
	actualPort, err := findAvailablePort(port)
	if err != nil {
		return errors.Wrap(err, "failed to find available port")
	}
	if actualPort != port {
		s.logger.Infow("Port in use, using alternative",
			"requested_port", port,
			"actual_port", actualPort)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", actualPort))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on port %d", actualPort)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener until Stop
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logger.AddPulseSymbol(s.logger).Infow("Server ready",
		"url", fmt.Sprintf("http://%s", listener.Addr()),
		"metrics", s.opts.Metrics != nil,
		"runs_per_minute", s.opts.RunsPerMinute)

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// Stop drains the server: new requests are refused, watch streams are told
// the server is going away, and the listener is closed
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infow("Initiating server shutdown")
	s.setState(ServerStateDraining)

	// Ends every watch loop
	s.cancel()

	var shutdownErr error
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = errors.Wrap(err, "failed to shut down http server")
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Watch streams did not stop in time",
			"timeout", ShutdownTimeout,
			"watchers", s.watchers.Load())
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return shutdownErr
}
