package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kishore28kumar/pulss/engine/audit"
	"github.com/kishore28kumar/pulss/engine/auth"
	"github.com/kishore28kumar/pulss/engine/auth/credential"
	authpg "github.com/kishore28kumar/pulss/engine/auth/infra/postgres"
	authredis "github.com/kishore28kumar/pulss/engine/auth/infra/redis"
	authrouter "github.com/kishore28kumar/pulss/engine/auth/router"
	"github.com/kishore28kumar/pulss/engine/auth/uc"
	"github.com/kishore28kumar/pulss/engine/infra/cache"
	"github.com/kishore28kumar/pulss/engine/infra/monitoring"
	"github.com/kishore28kumar/pulss/engine/infra/postgres"
	"github.com/kishore28kumar/pulss/engine/infra/server/middleware/auditmw"
	"github.com/kishore28kumar/pulss/engine/infra/server/middleware/ratelimitmw"
	"github.com/kishore28kumar/pulss/engine/infra/server/middleware/tenantmw"
	"github.com/kishore28kumar/pulss/engine/ratelimit"
	"github.com/kishore28kumar/pulss/engine/rbac"
	"github.com/kishore28kumar/pulss/engine/tenant"
	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serverShutdownTimeout = 5 * time.Second

// Server wires the request-gating pipeline in front of the API surface.
type Server struct {
	cfg        *config.Config
	log        logger.Logger
	router     *gin.Engine
	httpServer *http.Server

	store      *postgres.Store
	redis      *cache.Redis
	recorder   *audit.Recorder
	localGuard *ratelimit.LocalGuard
}

// NewServer builds every pipeline dependency from configuration and assembles
// the middleware chain.
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	store, err := postgres.NewStore(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initializing postgres: %w", err)
	}
	redisClient, err := cache.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		store.Close(ctx)
		return nil, fmt.Errorf("initializing redis: %w", err)
	}

	tenantRepo := postgres.NewTenantRepository(store.Pool())
	rbacRepo := postgres.NewRBACRepository(store.Pool())
	credRepo := authredis.NewCachedRepository(
		authpg.NewRepository(store.Pool()), redisClient.Client(), cfg.Auth.CacheTTL)

	factory := uc.NewFactory(credRepo, tenantRepo, cfg.Auth.BcryptCost, cfg.Auth.BackgroundSlot)
	evaluator := rbac.NewEvaluator(rbacRepo, tenantRepo)
	resolver := tenant.NewResolver(tenantRepo, cfg.Server.BaseDomain)

	var counterStore ratelimit.CounterStore
	if cfg.RateLimit.Store == "postgres" {
		counterStore = ratelimit.NewPostgresCounterStore(store.Pool())
	} else {
		counterStore = ratelimit.NewRedisCounterStore(redisClient.Client(), cfg.RateLimit.Prefix)
	}
	localGuard := ratelimit.NewLocalGuard(ratelimit.DefaultGuardConfig())
	limiter := ratelimit.NewLimiter(counterStore, localGuard, cfg.RateLimit.FailOpen)

	recorder := audit.NewRecorder(audit.NewPostgresStore(store.Pool()), &audit.RecorderConfig{
		QueueSize:    cfg.Audit.QueueSize,
		Workers:      cfg.Audit.Workers,
		DrainTimeout: cfg.Audit.DrainTimeout,
		DepthGauge: func(depth int) {
			monitoring.AuditQueueDepth.Set(float64(depth))
		},
	})

	s := &Server{
		cfg:        cfg,
		log:        log,
		store:      store,
		redis:      redisClient,
		recorder:   recorder,
		localGuard: localGuard,
	}
	s.router = s.buildRouter(factory, evaluator, resolver, limiter, tenantRepo, credRepo)
	return s, nil
}

// buildRouter assembles the middleware chain. The order is fixed: request
// logging, CORS, global IP cap, audit hook, authentication, tenant
// resolution, then per route the permission check followed by the
// per-credential rate limiter, so denied requests never consume window
// budget. The audit middleware sits outside the gating stages so its
// post-response hook observes every rejection.
func (s *Server) buildRouter(
	factory *uc.Factory,
	evaluator *rbac.Evaluator,
	resolver *tenant.Resolver,
	limiter *ratelimit.Limiter,
	flags tenant.FlagSource,
	credRepo credential.Repository,
) *gin.Engine {
	if s.cfg.Runtime.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.log))
	if s.cfg.Server.CORSEnabled {
		r.Use(CORSMiddleware(s.cfg.Server.CORS))
	}
	registerHealth(r, s.store, s.redis)
	registerMetrics(r)

	excluded := s.cfg.Auth.ExcludedPaths
	r.Use(ratelimitmw.GlobalIPLimit(s.cfg.RateLimit.GlobalIPRate))
	if s.cfg.Audit.Enabled {
		r.Use(auditmw.NewMiddleware(s.recorder, credRepo, flags, excluded).Handler())
	}
	if s.cfg.Auth.Enabled {
		r.Use(auth.NewMiddleware(factory, excluded).Authenticate())
	}
	r.Use(tenantmw.NewMiddleware(resolver, excluded).Handler())

	var limit gin.HandlerFunc
	if s.cfg.RateLimit.Enabled {
		limit = ratelimitmw.NewMiddleware(limiter, flags, s.cfg.RateLimit.ExcludedPaths).Handler()
	}
	api := r.Group("/api/v1")
	authrouter.RegisterRoutes(api, factory, evaluator, limit)
	return r
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives, then shuts everything down in reverse order.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case err := <-errCh:
		s.shutdown(ctx)
		return err
	case sig := <-sigCh:
		s.log.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}
	s.shutdown(ctx)
	return nil
}

func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown failed", "error", err)
	}
	s.recorder.Close()
	s.localGuard.Stop()
	if err := s.redis.Close(); err != nil {
		s.log.Error("Redis close failed", "error", err)
	}
	s.store.Close(shutdownCtx)
	s.log.Info("Server stopped")
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func registerHealth(r *gin.Engine, store *postgres.Store, redisClient *cache.Redis) {
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"postgres": "ok", "redis": "ok"}
		if err := store.HealthCheck(c.Request.Context()); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})
}

func registerMetrics(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
