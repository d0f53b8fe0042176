package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxapphub/apphub-analytics/pkg/analytics"
	"github.com/linuxapphub/apphub-analytics/pkg/config"
	"github.com/linuxapphub/apphub-analytics/pkg/httputil"
	"github.com/linuxapphub/apphub-analytics/pkg/middleware"
	"github.com/linuxapphub/apphub-analytics/pkg/observability"
	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":        cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
	}).Info("Starting apphub-analytics")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	var otelMetrics *observability.OTelMetrics
	if cfg.Observability.OTelEnabled {
		otelMetrics, err = observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Error("Failed to create OTel instruments")
			os.Exit(1)
		}
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}
	logger.WithField("redis_url", cfg.Storage.RedisURL).Info("Connected to Redis")

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	service := analytics.NewService(store, logger)
	limiter := middleware.NewRateLimiter(store, cfg.RateLimit)
	handlers := analytics.NewHandlers(service, limiter, logger, metrics, otelMetrics)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	var handler http.Handler = router
	handler = httputil.LoggingMiddleware(logger)(handler)
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	handler = httputil.RequestIDMiddleware(handler)
	handler = httputil.RecoveryMiddleware(logger)(handler)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "apphub-analytics")
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on their own port for probes and scraping
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store.Client()))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if metrics != nil {
		poolStatsStop := make(chan struct{})
		go metrics.CollectRedisPoolStats(store.PoolStats, 15*time.Second, poolStatsStop)
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			close(poolStatsStop)
			return nil
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("Analytics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}
