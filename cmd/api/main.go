// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/tenant-backend/internal/admin"
	"github.com/carterperez-dev/templates/tenant-backend/internal/attachment"
	"github.com/carterperez-dev/templates/tenant-backend/internal/auth"
	"github.com/carterperez-dev/templates/tenant-backend/internal/company"
	"github.com/carterperez-dev/templates/tenant-backend/internal/config"
	"github.com/carterperez-dev/templates/tenant-backend/internal/core"
	"github.com/carterperez-dev/templates/tenant-backend/internal/event"
	"github.com/carterperez-dev/templates/tenant-backend/internal/health"
	"github.com/carterperez-dev/templates/tenant-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tenant-backend/internal/notify"
	"github.com/carterperez-dev/templates/tenant-backend/internal/server"
	"github.com/carterperez-dev/templates/tenant-backend/internal/staff"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/memstore"
	"github.com/carterperez-dev/templates/tenant-backend/internal/store/postgres"
	"github.com/carterperez-dev/templates/tenant-backend/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// backend is the storage selected by database.driver.
type backend struct {
	store    *store.Store
	failures event.FailureStore
	db       *core.Database
}

func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*backend, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return &backend{store: mem.Repositories(), failures: mem.Failures()}, nil
	}

	db, err := core.NewDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)

	return &backend{
		store:    postgres.New(db.Pool, db.DB),
		failures: postgres.NewFailureRepository(db.DB),
		db:       db,
	}, nil
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"driver", cfg.Database.Driver,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry, tracing disabled", "error", err)
		telemetry = core.NoopTelemetry(cfg.Otel.ServiceName)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	be, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	notifier, notifierCloser, err := notify.FromConfig(cfg.Mail, cfg.Broker, logger)
	if err != nil {
		return err
	}
	logger.Info("notifier initialized", "transport", cfg.Mail.Transport)

	dispatcher := event.NewDispatcher(be.failures, logger,
		event.WithReactionTimeout(cfg.Events.ReactionTimeout),
		event.WithMaxAttempts(cfg.Events.MaxAttempts),
		event.WithTracer(telemetry.Tracer("event")),
	)
	reconciler := event.NewReconciler(
		dispatcher,
		event.NewRedisLocker(redis.Client),
		cfg.Events.ReconcileInterval,
		cfg.Events.ReconcileBatch,
		logger,
	)

	hasher := core.NewArgon2Hasher(cfg.Auth.Argon2)
	uploads := attachment.New(cfg.Uploads, logger)

	userSvc := user.NewService(be.store, hasher, dispatcher, logger)
	user.RegisterReactions(dispatcher, logger)
	userHandler := user.NewHandler(userSvc, uploads)

	companySvc := company.NewService(be.store, dispatcher, logger)
	company.NewReactions(be.store, hasher, notifier, logger).Register(dispatcher)
	companyHandler := company.NewHandler(companySvc, uploads)

	staffSvc := staff.NewService(be.store, hasher, dispatcher, logger)
	staff.NewReactions(be.store, notifier, logger).Register(dispatcher)
	staffHandler := staff.NewHandler(staffSvc, uploads)

	authSvc := auth.NewService(auth.Deps{
		Tokens:   be.store.RefreshTokens,
		JWT:      jwtManager,
		Users:    userSvc,
		OTPs:     auth.NewRedisOTPStore(redis.Client),
		Notifier: notifier,
		Hasher:   hasher,
		OTPTTL:   cfg.Auth.OTPTTL,
		Logger:   logger,
	})
	authHandler := auth.NewHandler(authSvc)

	deps := []health.Dependency{{Name: "redis", Checker: redis}}
	adminCfg := admin.HandlerConfig{
		RedisStats: redis.PoolStats,
		RedisPing:  redis.Ping,
		Failures:   be.failures,
		Reconciler: reconciler,
	}
	if be.db != nil {
		deps = append(deps, health.Dependency{Name: "database", Checker: be.db})
		adminCfg.DBStats = be.db.Stats
		adminCfg.DBPing = be.db.Ping
	}
	healthHandler := health.NewHandler(deps...)
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing(telemetry.Tracer("http")))
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Limit(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle("/uploads/*", http.StripPrefix(
		"/uploads/",
		http.FileServer(http.Dir(cfg.Uploads.Dir)),
	))

	roleLimiter := middleware.RoleRateLimiter(
		redis.Client,
		middleware.DefaultRoleLimits,
		middleware.Limit(cfg.RateLimit.Requests, cfg.RateLimit.Burst, cfg.RateLimit.Window),
	)
	credentialLimiter := middleware.CredentialLimiter(
		redis.Client,
		middleware.Limit(cfg.RateLimit.CredentialRequests, cfg.RateLimit.CredentialBurst, cfg.RateLimit.Window),
	)
	authenticate := middleware.Authenticator(jwtManager, userSvc)
	authenticator := func(next http.Handler) http.Handler {
		return authenticate(roleLimiter(next))
	}
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, credentialLimiter)
		userHandler.RegisterRoutes(r, authenticator)
		companyHandler.RegisterRoutes(r, authenticator)
		staffHandler.RegisterRoutes(r, authenticator)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	defer stopReconcile()
	go reconciler.Run(reconcileCtx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopReconcile()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("event dispatcher shutdown error", "error", err)
	}

	closeAll(logger, map[string]io.Closer{"notifier": notifierCloser, "redis": redis})

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if be.db != nil {
		if err := be.db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("application stopped")
	return nil
}

func closeAll(logger *slog.Logger, closers map[string]io.Closer) {
	for name, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "component", name, "error", err)
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
