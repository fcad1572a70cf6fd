// Package server runs the HTTP listener under a lifecycle state machine.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/escapetime/internal/domain"
	"github.com/bft-labs/escapetime/pkg/log"
)

// DefaultShutdownTimeout bounds graceful shutdown when Config leaves it unset.
const DefaultShutdownTimeout = 15 * time.Second

// Config configures a Server.
type Config struct {
	Addr            string
	Handler         http.Handler
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout defaults to 10s.
	ReadHeaderTimeout time.Duration
}

// Server serves Handler on Addr. Start and Stop may be called again after
// a stop or crash.
type Server struct {
	mu        sync.Mutex
	cfg       Config
	logger    log.Logger
	lifecycle *Lifecycle

	srv     *http.Server
	addr    net.Addr
	cancel  context.CancelFunc
	serving chan struct{}
	errc    chan error
}

// New creates a stopped server.
func New(cfg Config, logger log.Logger, emitter EventEmitter) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		lifecycle: NewLifecycle(logger, emitter),
	}
}

// Start binds the listener and begins serving in the background.
// Request contexts carry ctx's values but are only canceled by Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return domain.ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.logger.Error("listen failed", log.String("addr", s.cfg.Addr), log.Err(err))
		_ = s.lifecycle.TransitionTo(StateCrashed, "listen failed")
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	srv := &http.Server{
		Handler:           s.cfg.Handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}
	serving := make(chan struct{})
	errc := make(chan error, 1)
	s.srv, s.addr, s.cancel, s.serving, s.errc = srv, ln.Addr(), cancel, serving, errc

	go func() {
		defer close(serving)
		err := srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		s.logger.Error("serve failed", log.Err(err))
		cancel()
		_ = s.lifecycle.TransitionTo(StateCrashed, "serve failed")
		errc <- err
	}()

	if err := s.lifecycle.TransitionTo(StateRunning, "listening"); err != nil {
		return err
	}
	s.logger.Info("listening", log.String("addr", s.addr.String()))
	return nil
}

// Stop stops accepting connections and waits up to the shutdown timeout
// for in-flight requests. Websocket streams are canceled after HTTP
// requests drain.
func (s *Server) Stop() error {
	s.mu.Lock()
	if err := s.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	srv, cancelRequests, serving := s.srv, s.cancel, s.serving
	s.mu.Unlock()

	timeout := s.cfg.ShutdownTimeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	cancelRequests()
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("graceful shutdown timed out, closing connections", log.Duration("timeout", timeout))
		_ = srv.Close()
		err = domain.ErrShutdownTimeout
	}
	select {
	case <-serving:
	case <-time.After(timeout):
		if err == nil {
			err = domain.ErrShutdownTimeout
		}
	}

	_ = s.lifecycle.TransitionTo(StateStopped, "Stop() completed")
	return err
}

// Run starts the server and blocks until ctx is done or serving fails,
// then stops it.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	errc := s.errc
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errc:
		return err
	}
}

// Status returns the current lifecycle state.
func (s *Server) Status() State {
	return s.lifecycle.State()
}

// Addr returns the bound listener address, or nil before the first Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
