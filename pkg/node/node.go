// Package node assembles a running ringlink site: storage, the federation
// services, the HTTP API, the admin RPC server and the scheduler.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"ringlink/pkg/api"
	"ringlink/pkg/auth"
	"ringlink/pkg/config"
	"ringlink/pkg/federation"
	"ringlink/pkg/protocol"
	"ringlink/pkg/scheduler"
	"ringlink/pkg/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

const (
	latencyTableSize = 4096
	shutdownTimeout  = 10 * time.Second
)

// adminKeepalive lets idle CLI connections ping every 10s without being
// sent away with too_many_pings.
var adminKeepalive = keepalive.EnforcementPolicy{
	MinTime:             5 * time.Second,
	PermitWithoutStream: true,
}

type Node struct {
	protocol.UnimplementedAdminServer

	cfg    *config.Config
	logger *zap.Logger

	store      storage.RingStore
	registry   *prometheus.Registry
	metrics    *federation.Metrics
	latency    *federation.LatencyTable
	membership *federation.MembershipService
	health     *federation.HealthChecker
	sync       *federation.SyncAgent
	ratings    *federation.RatingService
	tokenAuth  *auth.TokenAuth
	api        *api.Server
	scheduler  scheduler.Scheduler

	server    *grpc.Server
	listener  net.Listener
	httpAddr  net.Addr
	healthSrv *health.Server

	startedAt time.Time

	mu              sync.Mutex
	lastHealthCheck time.Time
	lastSync        time.Time
}

type options struct {
	store     storage.RingStore
	prober    federation.Prober
	remote    federation.Remote
	scheduler scheduler.Scheduler
	sampler   federation.Sampler
}

// Option overrides a collaborator, mostly for tests
type Option func(*options)

func WithStore(s storage.RingStore) Option {
	return func(o *options) { o.store = s }
}

// WithPeers replaces the HTTP client used to reach other sites
func WithPeers(p federation.Prober, r federation.Remote) Option {
	return func(o *options) {
		o.prober = p
		o.remote = r
	}
}

func WithScheduler(s scheduler.Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

func WithSampler(s federation.Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// New builds a node from cfg. Nothing listens until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		store, err := storage.Open(cfg.Storage.Options(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		o.store = store
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := federation.NewMetrics(registry)

	if o.prober == nil || o.remote == nil {
		client := federation.NewClient(federation.ClientConfig{
			ProbeTimeout:   cfg.Timeouts.Probe,
			RequestTimeout: cfg.Timeouts.Request,
		}, metrics, logger.Named("client"))
		if o.prober == nil {
			o.prober = client
		}
		if o.remote == nil {
			o.remote = client
		}
	}
	if o.scheduler == nil {
		o.scheduler = scheduler.New(logger.Named("scheduler"))
	}

	latency := federation.NewLatencyTable(latencyTableSize)
	tokenAuth := auth.NewTokenAuth(cfg.Admin.Token)
	membership := federation.NewMembershipService(o.store, metrics, logger.Named("membership"))
	ratings := federation.NewRatingService(o.store, o.prober, o.remote, metrics, logger.Named("rating"))

	n := &Node{
		cfg:        cfg,
		logger:     logger,
		store:      o.store,
		registry:   registry,
		metrics:    metrics,
		latency:    latency,
		membership: membership,
		health: federation.NewHealthChecker(o.store, o.prober, federation.HealthOptions{
			Concurrency: cfg.Schedule.ProbeConcurrency,
			Sampler:     o.sampler,
			Latency:     latency,
		}, metrics, logger.Named("health")),
		sync:      federation.NewSyncAgent(o.store, o.remote, cfg.Schedule.SyncConcurrency, metrics, logger.Named("sync")),
		ratings:   ratings,
		tokenAuth: tokenAuth,
		scheduler: o.scheduler,
	}
	n.api = api.New(api.Config{
		Addr:        cfg.HTTP.Address,
		MaxBodySize: cfg.HTTP.MaxBodyBytes(),
	}, api.Deps{
		Store:      o.store,
		Membership: membership,
		Ratings:    ratings,
		Auth:       tokenAuth,
		Registry:   registry,
	}, logger.Named("api"))
	return n, nil
}

// seedSite stores the configured identity unless one was saved already
func (n *Node) seedSite(ctx context.Context) error {
	if n.cfg.Site.URL == "" {
		return nil
	}
	_, err := n.store.GetSite(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	site := n.cfg.Site.Identity()
	if site.Name == "" {
		site.Name = site.URL
	}
	n.logger.Info("Seeding site identity from config", zap.String("url", site.URL))
	return n.store.SaveSite(ctx, site)
}

func (n *Node) newGRPCServer() *grpc.Server {
	server := grpc.NewServer(
		grpc.UnaryInterceptor(n.tokenAuth.UnaryServerInterceptor(n.logger.Named("auth"))),
		grpc.KeepaliveEnforcementPolicy(adminKeepalive),
	)
	protocol.RegisterAdminServer(server, n)

	n.healthSrv = health.NewServer()
	n.healthSrv.SetServingStatus(protocol.AdminServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, n.healthSrv)
	return server
}

// Start seeds state, opens both listeners and schedules the cycles.
func (n *Node) Start(ctx context.Context) error {
	if err := n.seedSite(ctx); err != nil {
		return fmt.Errorf("failed to seed site identity: %w", err)
	}
	if !n.tokenAuth.Enabled() {
		n.logger.Warn("Admin token not set; admin RPC and local endpoints are unauthenticated")
	} else if auth.IsWeakToken(n.cfg.Admin.Token) {
		n.logger.Warn("Admin token is easy to guess")
	}

	httpListener, err := net.Listen("tcp", n.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.HTTP.Address, err)
	}
	listener, err := net.Listen("tcp", n.cfg.Admin.Address)
	if err != nil {
		httpListener.Close()
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.Admin.Address, err)
	}
	n.listener = listener
	n.httpAddr = httpListener.Addr()
	n.server = n.newGRPCServer()
	n.startedAt = time.Now()

	go func() {
		if err := n.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			n.logger.Error("Admin server failed", zap.Error(err))
		}
	}()
	go func() {
		if err := n.api.Serve(httpListener); err != nil {
			n.logger.Error("HTTP API failed", zap.Error(err))
		}
	}()

	if err := n.scheduler.Add("health", n.cfg.Schedule.Health, n.runHealthCycle); err != nil {
		return err
	}
	if err := n.scheduler.Add("sync", n.cfg.Schedule.Sync, n.runSyncCycle); err != nil {
		return err
	}
	n.scheduler.Start()

	n.logger.Info("Node started",
		zap.String("http_address", n.httpAddr.String()),
		zap.String("admin_address", listener.Addr().String()),
		zap.String("storage", n.cfg.Storage.Backend))
	return nil
}

// Run starts the node and blocks until ctx is cancelled
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		n.Stop()
		return err
	}
	<-ctx.Done()
	n.Stop()
	return nil
}

// Stop shuts everything down in reverse order. Safe to call after a
// failed Start.
func (n *Node) Stop() {
	n.scheduler.Stop()

	if n.healthSrv != nil {
		n.healthSrv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var g errgroup.Group
	g.Go(func() error {
		if n.server != nil {
			n.server.GracefulStop()
		}
		return nil
	})
	g.Go(func() error { return n.api.Shutdown(ctx) })
	if err := g.Wait(); err != nil {
		n.logger.Warn("HTTP API shutdown", zap.Error(err))
	}

	n.latency.Close()
	if err := n.store.Close(); err != nil {
		n.logger.Warn("Failed to close storage", zap.Error(err))
	}
	n.logger.Info("Node stopped")
}

// AdminAddr is the bound admin listener address, nil before Start
func (n *Node) AdminAddr() net.Addr {
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// HTTPAddr is the bound HTTP API address, nil before Start
func (n *Node) HTTPAddr() net.Addr {
	return n.httpAddr
}

func (n *Node) runHealthCycle(ctx context.Context) error {
	_, err := n.healthCycle(ctx)
	return err
}

func (n *Node) healthCycle(ctx context.Context) (federation.HealthReport, error) {
	report, err := n.health.RunHealthCheckCycle(ctx)
	if err == nil {
		n.mu.Lock()
		n.lastHealthCheck = time.Now()
		n.mu.Unlock()
	}
	return report, err
}

func (n *Node) runSyncCycle(ctx context.Context) error {
	_, err := n.syncCycle(ctx)
	return err
}

func (n *Node) syncCycle(ctx context.Context) (federation.SyncReport, error) {
	report, err := n.sync.RunSyncCycle(ctx)
	if err == nil {
		n.mu.Lock()
		n.lastSync = time.Now()
		n.mu.Unlock()
	}
	return report, err
}
