// Package api serves the federation endpoints other sites call, the local
// endpoints the site's own widget calls, and the operations endpoints.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"ringlink/pkg/auth"
	"ringlink/pkg/federation"
	"ringlink/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultMaxBodySize caps request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 64 << 10

type Config struct {
	Addr        string
	MaxBodySize int64
}

// Deps are the services the handlers call into.
type Deps struct {
	Store      storage.RingStore
	Membership *federation.MembershipService
	Ratings    *federation.RatingService
	Auth       *auth.TokenAuth
	// Registry serves /metrics and receives the HTTP metrics. Optional.
	Registry *prometheus.Registry
}

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	http       *http.Server
	store      storage.RingStore
	membership *federation.MembershipService
	ratings    *federation.RatingService
	auth       *auth.TokenAuth
	registry   *prometheus.Registry
	metrics    *httpMetrics
	maxBody    int64
	logger     *zap.Logger
	intn       func(int) int
}

// New creates an API Server.
func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		store:      deps.Store,
		membership: deps.Membership,
		ratings:    deps.Ratings,
		auth:       deps.Auth,
		registry:   deps.Registry,
		metrics:    newHTTPMetrics(deps.Registry),
		maxBody:    cfg.MaxBodySize,
		logger:     logger,
	}
	engine.Use(requestID(), s.accessLog(), s.limitBody())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP API listening", zap.String("addr", lis.Addr().String()))
	return s.Serve(lis)
}

// Serve runs the API on an already bound listener
func (s *Server) Serve(lis net.Listener) error {
	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	fed := s.engine.Group(federation.PathPrefix)
	{
		fed.GET("/ping", s.ping)
		fed.GET("/ring/:ring_id", s.getRing)
		fed.POST("/ring/:ring_id/join", s.join)
		fed.POST("/ring/:ring_id/rate", s.rate)
	}

	local := s.engine.Group("/local", s.auth.RequireToken())
	{
		local.POST("/rate", s.localRate)
		local.GET("/widget/:ring_id", s.widget)
		local.GET("/widget/:ring_id/random", s.randomMember)
	}

	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}
