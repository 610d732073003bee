// Package server exposes a document store and principal registry over
// HTTP. Writes are plain JSON requests; live queries are WebSockets that
// stream full snapshots.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/badbar/internal/api"
	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/logger"
)

// Backend is what the server serves.
type Backend interface {
	domain.DocumentStore
	domain.PrincipalRegistry
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithShutdownTimeout bounds how long Run waits for requests to drain.
// Zero keeps the default.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server is the HTTP front of a Backend.
type Server struct {
	backend         Backend
	log             *logger.Logger
	registry        *prometheus.Registry
	metrics         *metrics
	router          *gin.Engine
	upgrader        websocket.Upgrader
	shutdownTimeout time.Duration

	closing   chan struct{}
	closeOnce sync.Once
}

// New builds the server and its routes.
func New(backend Backend, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		backend:         backend,
		log:             log,
		shutdownTimeout: 5 * time.Second,
		closing:         make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.LoggerWithWriter(s.log.Writer(), api.PathHealth, api.PathMetrics),
		gin.RecoveryWithWriter(s.log.Writer()),
		s.metrics.middleware(),
	)

	r.GET(api.PathHealth, s.handleHealth)
	r.GET(api.PathMetrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/auth/anonymous", s.handleAnonymous)
	v1.GET("/auth/principals/:uid", s.handlePrincipal)

	docs := v1.Group("/collections/:collection", s.authenticate())
	docs.POST("/documents", s.handleCreate)
	docs.GET("/watch", s.handleWatch)

	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx ends, then shuts down gracefully. Open
// watch sockets are closed as part of shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close ends every open watch socket. Safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}
