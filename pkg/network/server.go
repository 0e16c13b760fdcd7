// pkg/network/server.go
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/go-orbitsim/pkg/auth"
	"github.com/opd-ai/go-orbitsim/pkg/health"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
	"github.com/opd-ai/go-orbitsim/pkg/metrics"
	"github.com/opd-ai/go-orbitsim/pkg/session"
	"github.com/opd-ai/go-orbitsim/pkg/validation"
)

// Options configure the HTTP surface.
type Options struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	ActionsPerMin int
	StreamBuffer  int
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server exposes sessions, sign-in and probes over HTTP, and streams
// telemetry over WebSocket.
type Server struct {
	opts      Options
	sessions  *session.Manager
	auth      *auth.Service
	metrics   *metrics.Collector
	health    *health.HealthChecker
	validator *validation.RequestValidator
	logger    *logging.Logger
	router    *mux.Router
	upgrader  websocket.Upgrader

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer wires the routes. collector and checker may be nil.
func NewServer(opts Options, sessions *session.Manager, authSvc *auth.Service, collector *metrics.Collector, checker *health.HealthChecker, logger *logging.Logger) *Server {
	if opts.ActionsPerMin <= 0 {
		opts.ActionsPerMin = validation.MaxActionsPerMin
	}
	if opts.StreamBuffer <= 0 {
		opts.StreamBuffer = 16
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if checker == nil {
		checker = health.NewHealthChecker()
	}

	s := &Server{
		opts:      opts,
		sessions:  sessions,
		auth:      authSvc,
		metrics:   collector,
		health:    checker,
		validator: validation.NewRequestValidator(opts.ActionsPerMin),
		logger:    logger.With("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.correlate, s.observe)

	r.HandleFunc("/missions", s.handleMissions).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/actions", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/stream", s.handleStream).Methods(http.MethodGet)

	r.HandleFunc("/auth/request", s.handleRequestCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.handleVerifyCode).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.handleWhoAmI).Methods(http.MethodGet)
	r.HandleFunc("/auth/token", s.handleSignOut).Methods(http.MethodDelete)

	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health.LivenessHandler).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.health.ReadinessHandler).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "HTTP server stopped", err)
		}
	}()

	s.logger.Info(context.Background(), "HTTP server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start and after Shutdown.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	defer s.validator.Close()
	if srv == nil {
		return nil
	}
	s.logger.Info(ctx, "Shutting down HTTP server")
	return srv.Shutdown(ctx)
}
