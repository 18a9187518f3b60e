package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/bft-labs/devserve/internal/lifecycle"
)

// Config holds what the server needs to run.
type Config struct {
	// Root is the absolute document root.
	Root string
	// Addr is the TCP listen address, e.g. ":8080".
	Addr string
}

// Option configures optional behavior of Server.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	resolver ContentTypeResolver
	emitter  lifecycle.EventEmitter
}

// WithLogger sets the logger used for the access log and serve errors.
// If not provided, nothing is logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithContentTypeResolver replaces WASMContentType.
func WithContentTypeResolver(resolve ContentTypeResolver) Option {
	return func(o *options) {
		o.resolver = resolve
	}
}

// WithEventEmitter receives lifecycle state changes.
func WithEventEmitter(emitter lifecycle.EventEmitter) Option {
	return func(o *options) {
		o.emitter = emitter
	}
}

// Server is a static file server bound to one TCP listener.
type Server struct {
	cfg     Config
	logger  zerolog.Logger
	handler http.Handler
	lc      *lifecycle.Manager

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	done       chan struct{}
	err        error
}

// New creates a Server. It does not bind; call Start.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root is required")
	}
	o := options{
		logger:   zerolog.Nop(),
		resolver: WASMContentType,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		cfg:     cfg,
		logger:  o.logger,
		handler: NewHandler(cfg.Root, o.resolver, o.logger),
		lc:      lifecycle.NewManager(o.logger, o.emitter),
	}, nil
}

// NewHandler builds the request chain: access log, dev headers, content
// type override, static files.
func NewHandler(root string, resolve ContentTypeResolver, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(AccessLog(logger))
	r.Use(WithHeaders(DevHeaders()))
	r.Use(ForceContentType(resolve))
	r.Handle("/*", FileHandler(root))
	return r
}

// Handler returns the server's request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// State returns the current lifecycle state.
func (s *Server) State() lifecycle.State {
	return s.lc.State()
}

// Start binds the listener and begins serving in the background.
// A bind failure is returned as *BindError and is not retried.
func (s *Server) Start() error {
	if err := s.lc.Begin("start requested"); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		_ = s.lc.TransitionTo(lifecycle.StateCrashed, "bind failed")
		return &BindError{Addr: s.cfg.Addr, Err: err}
	}

	hs := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	done := make(chan struct{})

	s.mu.Lock()
	s.listener = ln
	s.httpServer = hs
	s.done = done
	s.err = nil
	s.mu.Unlock()

	if err := s.lc.TransitionTo(lifecycle.StateListening, "listener bound"); err != nil {
		_ = ln.Close()
		return err
	}

	go s.serve(hs, ln, done)
	return nil
}

func (s *Server) serve(hs *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	err := hs.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	s.logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("serve failed")
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	_ = s.lc.TransitionTo(lifecycle.StateCrashed, err.Error())
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the local URL of the bound listener.
func (s *Server) URL() string {
	addr, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", addr.Port)
}

// Done is closed when the serve loop exits. It is nil before Start.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error that ended the serve loop, if any.
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.lc.CanStop() {
		return lifecycle.ErrNotRunning
	}
	if err := s.lc.TransitionTo(lifecycle.StateStopping, "shutdown requested"); err != nil {
		return err
	}

	s.mu.Lock()
	hs, done := s.httpServer, s.done
	s.mu.Unlock()

	err := hs.Shutdown(ctx)
	if err != nil {
		_ = hs.Close()
	}
	<-done

	if terr := s.lc.TransitionTo(lifecycle.StateStopped, "shutdown complete"); terr != nil && err == nil {
		err = terr
	}
	return err
}
