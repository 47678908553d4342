package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flaghook/internal/config"
	hhttp "flaghook/internal/handler/http"
	addonHandler "flaghook/internal/handler/http/addon"
	"flaghook/internal/handler/http/pathutil"
	"flaghook/internal/handler/http/requestid"
	pgRepo "flaghook/internal/infra/adapter/persistence/postgres"
	addons "flaghook/internal/infra/addon"
	"flaghook/internal/infra/db"
	"flaghook/internal/infra/eventbus"
	"flaghook/internal/infra/flags"
	workerPkg "flaghook/internal/infra/worker"
	"flaghook/internal/observability/logging"
	"flaghook/internal/observability/tracing"
	addonUC "flaghook/internal/usecase/addon"
	auditUC "flaghook/internal/usecase/audit"
	integrationUC "flaghook/internal/usecase/integration"
	tagtypeUC "flaghook/internal/usecase/tagtype"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const (
	maxRequestBody  = 1 << 20
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	cfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("unleash_url", cfg.UnleashURL),
		slog.Duration("cache_ttl", cfg.CacheTTL),
		slog.Duration("delivery_timeout", cfg.DeliveryTimeout),
		slog.Int("max_concurrent", cfg.MaxConcurrent),
		slog.Int("admin_port", cfg.AdminPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	policies := loadPolicies(logger, cfg.PolicyFile)
	bus := eventbus.NewMemoryBus(logger)

	integrations := &integrationUC.Service{
		Repo:   pgRepo.NewIntegrationEventRepo(database),
		Logger: logger,
	}
	registry, err := addons.NewRegistry(addons.Dependencies{
		Logger:     logger,
		Registrar:  integrations,
		Flags:      flags.NewStatic(cfg.FeatureFlags...),
		Bus:        bus,
		UnleashURL: cfg.UnleashURL,
		HTTPClient: createHTTPClient(),
		Policies:   policies,
	})
	if err != nil {
		logger.Error("failed to build addon registry", slog.Any("error", err))
		os.Exit(1)
	}
	defer registry.Close()
	logger.Info("addon providers registered", slog.Any("providers", registry.Names()))

	addonService := addonUC.NewService(addonUC.Deps{
		Repo:     pgRepo.NewAddonRepo(database),
		Audit:    &auditUC.Service{Repo: pgRepo.NewEventRepo(database), Bus: bus, Logger: logger},
		TagTypes: &tagtypeUC.Service{Repo: pgRepo.NewTagTypeRepo(database), Logger: logger},
		Bus:      bus,
		Registry: registry,
		Logger:   logger,
	}, addonUC.Config{
		CacheTTL:          cfg.CacheTTL,
		DeliveryTimeout:   cfg.DeliveryTimeout,
		MaxConcurrent:     cfg.MaxConcurrent,
		InvalidateOnWrite: cfg.InvalidateOnWrite,
	})

	if cfg.RedisURL != "" {
		closeBridge, err := startRedisBridge(ctx, logger, cfg, bus)
		if err != nil {
			logger.Error("failed to start redis event bridge", slog.Any("error", err))
			os.Exit(1)
		}
		defer closeBridge()
	} else {
		logger.Info("redis event bridge disabled")
	}

	// Start health check and metrics server
	healthAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, addonService, nil)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	scheduler, err := workerPkg.NewScheduler(ctx, cfg, &workerPkg.RetentionJob{
		Cleaner:   integrations,
		Retention: cfg.Retention,
		Metrics:   workerMetrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to schedule retention job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()

	srv := newAdminServer(ctx, logger, cfg.AdminPort, addonService, integrations)
	go func() {
		logger.Info("admin server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server failed", slog.Any("error", err))
			stop()
		}
	}()

	healthServer.SetReady(true)
	<-ctx.Done()
	logger.Info("shutting down worker...")
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", slog.Any("error", err))
	}
	<-scheduler.Stop().Done()
	if err := addonService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("addon deliveries did not drain in time", slog.Any("error", err))
	}
	logger.Info("worker stopped")
}

// initLogger initializes the process logger. LOG_FORMAT=text switches to
// human-readable output.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	if os.Getenv("LOG_FORMAT") == "text" {
		logger = logging.NewTextLogger()
	}
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the connection pool and applies migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// loadPolicies reads the per-provider delivery policy file. A missing or
// broken file falls back to the built-in defaults.
func loadPolicies(logger *slog.Logger, path string) *config.PolicyFile {
	if path == "" {
		return config.DefaultPolicyFile()
	}
	policies, err := config.LoadPolicyFile(path)
	if err != nil {
		logger.Warn("failed to load delivery policy file, using defaults",
			slog.String("path", path),
			slog.Any("error", err))
		return config.DefaultPolicyFile()
	}
	logger.Info("delivery policies loaded", slog.String("path", path))
	return policies
}

// startRedisBridge consumes flag events from the Redis stream and emits them
// on the in-process bus. The returned func closes the client.
func startRedisBridge(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig, bus eventbus.Bus) (func(), error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	bridgeCfg := eventbus.DefaultBridgeConfig()
	bridgeCfg.Stream = cfg.RedisEventStream
	bridgeCfg.Group = cfg.RedisEventGroup
	if host, err := os.Hostname(); err == nil {
		bridgeCfg.Consumer = host
	}

	bridge := eventbus.NewRedisBridge(client, bus, bridgeCfg, logger)
	if err := bridge.EnsureGroup(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("redis event bridge stopped", slog.Any("error", err))
		}
	}()
	logger.Info("redis event bridge started",
		slog.String("stream", bridgeCfg.Stream),
		slog.String("group", bridgeCfg.Group),
		slog.String("consumer", bridgeCfg.Consumer))

	return func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}, nil
}

// newAdminServer serves the addon admin API.
func newAdminServer(ctx context.Context, logger *slog.Logger, port int, svc addonHandler.Service, events addonHandler.EventLister) *http.Server {
	mux := http.NewServeMux()
	addonHandler.Register(mux, svc, events)

	handler := hhttp.Chain(mux,
		requestid.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.MetricsMiddleware,
		tracing.Middleware(pathutil.NormalizePath),
		hhttp.LimitRequestBody(maxRequestBody),
	)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
}

// createHTTPClient is shared by every addon. Per-request deadlines come
// from the delivery policy.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}
