package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/docsapi/pkg/anchors"
	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/config"
	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/middleware"
	"github.com/platinummonkey/docsapi/pkg/observability"
	"github.com/platinummonkey/docsapi/pkg/search"
	"github.com/platinummonkey/docsapi/pkg/storage/cache"
	"github.com/platinummonkey/docsapi/pkg/storage/sqlstore"
	"github.com/platinummonkey/docsapi/pkg/tasks"
	"github.com/platinummonkey/docsapi/pkg/versions"
)

// App owns every long lived dependency of the API process
type App struct {
	cfg    *config.Config
	logger *observability.Logger

	db       *sqlstore.Store
	storage  api.Storage
	redis    *redis.Client
	broker   tasks.Broker
	registry *prometheus.Registry
	metrics  *observability.Metrics
	throttle *middleware.Throttle

	handler http.Handler
	health  http.Handler
}

// New connects storage, Redis and the task queue, then assembles the HTTP
// handlers. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.bootstrapAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		a.metrics = observability.NewMetrics(a.registry)
	}

	a.storage = a.db
	if cfg.Cache.Enabled {
		a.storage = cache.New(a.db, a.redis, cache.Config{
			Size:     cfg.Cache.Size,
			LocalTTL: cfg.Cache.LocalTTL,
			RedisTTL: cfg.Cache.RedisTTL,
		}, a.metrics, logger)
	}

	a.handler = a.buildHandler()
	a.health = a.buildHealth()
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          a.cfg.Storage.Type,
		DSN:             a.cfg.Storage.DSN,
		MaxOpenConns:    a.cfg.Storage.MaxOpenConns,
		MaxIdleConns:    a.cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: a.cfg.Storage.ConnMaxLifetime,
		ConnectTimeout:  a.cfg.Storage.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	a.db = db
	a.logger.WithField("driver", string(db.Dialect())).Info("Database connected")

	if a.cfg.Storage.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	a.redis, err = a.cfg.Redis.NewClient(ctx)
	if err != nil {
		return err
	}
	if a.redis != nil {
		a.logger.Info("Redis connected")
	}

	a.broker, err = NewBroker(a.cfg.Queue, a.redis)
	return err
}

// NewBroker returns the task queue selected by cfg
func NewBroker(cfg config.QueueConfig, client *redis.Client) (tasks.Broker, error) {
	switch cfg.Type {
	case "redis":
		if client == nil {
			return nil, errors.New("redis queue requires a redis client")
		}
		return tasks.NewRedisQueue(client, cfg.Name), nil
	case "memory", "":
		return tasks.NewMemoryQueue(cfg.Size), nil
	default:
		return nil, fmt.Errorf("unknown queue type %q", cfg.Type)
	}
}

// bootstrapAdmin creates the configured admin user when it does not exist yet
func (a *App) bootstrapAdmin(ctx context.Context) error {
	username := a.cfg.Auth.AdminUser
	if username == "" {
		return nil
	}
	_, err := a.db.GetUser(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := middleware.HashPassword(a.cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := a.db.CreateUser(ctx, &api.User{Username: username, PasswordHash: hash}); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	a.logger.WithField("username", username).Info("Admin user created")
	return nil
}

// Links renders resource URLs for the configured docs host
func Links(cfg config.DocsConfig) api.Links {
	return api.Links{
		ProductionDomain: cfg.ProductionDomain,
		DocsBaseURL:      cfg.BaseURL,
	}
}

func (a *App) buildHandler() http.Handler {
	links := Links(a.cfg.Docs)
	resolver := versions.NewResolver(a.storage, a.broker, links, a.metrics)

	registrars := []api.RouteRegistrar{
		versions.NewHandlers(resolver, links),
		search.NewHandlers(search.NewService(a.storage, a.metrics), links),
	}
	if a.redis != nil {
		registrars = append(registrars, anchors.NewHandlers(anchors.NewFinder(a.redis)))
	}

	srv := api.NewServer(a.storage, links, registrars...)
	srv.Use(observability.HTTPMetricsMiddleware(a.metrics))
	srv.Use(middleware.PostAuthentication(a.storage))

	switch a.cfg.Auth.Throttle {
	case "memory":
		a.throttle = middleware.NewThrottle(middleware.ThrottleConfig{
			RequestsPerSecond: a.cfg.Auth.RequestsPerSecond,
			Burst:             a.cfg.Auth.Burst,
			IdleTTL:           middleware.DefaultThrottleConfig().IdleTTL,
		})
		srv.Use(a.throttle.Middleware)
	case "redis":
		srv.Use(middleware.NewDistributedThrottle(a.redis, a.cfg.Auth.WindowLimit, a.cfg.Auth.Window).Middleware)
	}

	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(a.logger),
		httputil.RecoveryMiddleware,
	)(srv)
	return otelhttp.NewHandler(handler, "docsapi")
}

func (a *App) buildHealth() http.Handler {
	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, observability.NewHealthChecker(a.db.DB(), a.redis, a.cfg.Observability.OTelServiceVersion))
	if a.cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, a.registry)
	}
	return mux
}

// Handler serves the REST API
func (a *App) Handler() http.Handler { return a.handler }

// HealthHandler serves probes and /metrics
func (a *App) HealthHandler() http.Handler { return a.health }

// Storage is the (possibly cached) store behind the API
func (a *App) Storage() api.Storage { return a.storage }

// Broker is the queue builds are enqueued on
func (a *App) Broker() tasks.Broker { return a.broker }

// Redis is the shared client, nil when Redis is not configured
func (a *App) Redis() *redis.Client { return a.redis }

// Metrics may be nil when metrics are disabled
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// NewWorker builds a worker that runs update_docs tasks against the database
func (a *App) NewWorker() (*tasks.Worker, error) {
	return NewWorker(a.cfg.Queue, a.broker, a.db, a.logger, a.metrics)
}

// NewWorker builds a worker for broker with every task handler registered
func NewWorker(cfg config.QueueConfig, broker tasks.Broker, store tasks.BuildStore, logger *observability.Logger, metrics *observability.Metrics) (*tasks.Worker, error) {
	registry := tasks.NewRegistry()
	if err := registry.Register(tasks.UpdateDocsTask, tasks.UpdateDocsHandler(store)); err != nil {
		return nil, err
	}
	return tasks.NewWorker(broker, registry, tasks.WorkerConfig{
		Concurrency: cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		PollTimeout: cfg.PollTimeout,
		TaskTimeout: cfg.TaskTimeout,
	}, logger, metrics), nil
}

// Run serves the API and health listeners until ctx is done, then shuts
// them down gracefully. With the in-memory queue the worker runs in process.
func (a *App) Run(ctx context.Context) error {
	apiServer := &http.Server{
		Addr:         net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.HealthPort),
		Handler: a.health,
	}
	shutdown := observability.NewShutdownManager(a.logger, a.cfg.Server.ShutdownTimeout, apiServer, healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, a.logger) })
	g.Go(func() error { return serve(healthServer, a.logger) })

	if a.throttle != nil {
		a.throttle.StartCleanup(gctx)
	}
	if _, inProcess := a.broker.(*tasks.MemoryQueue); inProcess {
		worker, err := a.NewWorker()
		if err != nil {
			return err
		}
		g.Go(func() error { return worker.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		return shutdown.Shutdown()
	})
	return g.Wait()
}

func serve(server *http.Server, logger *observability.Logger) error {
	logger.WithField("addr", server.Addr).Info("HTTP server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server %s: %w", server.Addr, err)
	}
	return nil
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
