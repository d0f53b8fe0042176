package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/linuxapphub/apphub-analytics/pkg/analytics"
	"github.com/linuxapphub/apphub-analytics/pkg/observability"
	"github.com/linuxapphub/apphub-analytics/pkg/storage"
)

var (
	redisURL       = flag.String("redis-url", getEnv("APPHUB_REDIS_URL", "redis://localhost:6379/0"), "Redis connection URL")
	reportSchedule = flag.String("report-schedule", "0 * * * *", "Cron schedule for usage reports (default: every hour)")
	topSchedule    = flag.String("top-schedule", "30 0 * * *", "Cron schedule for the daily top-apps report (default: 00:30 UTC)")
	topTimeframe   = flag.String("top-timeframe", "1d", "Timeframe for the top-apps report (1d, 7d, 30d)")
	topLimit       = flag.Int("top-limit", 10, "Number of apps in the top-apps report")
	runOnce        = flag.Bool("run-once", false, "Emit both reports once and exit (for testing)")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := storage.DefaultConfig()
	cfg.RedisURL = *redisURL
	store, err := storage.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer store.Close()

	service := analytics.NewService(store, observability.NewLogger(observability.WarnLevel, io.Discard))

	if *runOnce {
		if err := reportStats(log, service); err != nil {
			log.Fatalf("Stats report failed: %v", err)
		}
		reportTopApps(log, service, *topLimit, *topTimeframe)
		return
	}

	c := cron.New()

	_, err = c.AddFunc(*reportSchedule, func() {
		if err := reportStats(log, service); err != nil {
			log.WithError(err).Error("Stats report failed")
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule stats report: %v", err)
	}

	_, err = c.AddFunc(*topSchedule, func() {
		reportTopApps(log, service, *topLimit, *topTimeframe)
	})
	if err != nil {
		log.Fatalf("Failed to schedule top-apps report: %v", err)
	}

	c.Start()
	log.Info("App Hub usage reporter started")
	log.Infof("Stats report schedule: %s", *reportSchedule)
	log.Infof("Top-apps report schedule: %s (%s window)", *topSchedule, *topTimeframe)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	log.Info("Reporter stopped")
}

// reportStats emits the current global and daily totals as a structured log
// line, for ingestion by the log pipeline.
func reportStats(log *logrus.Logger, service *analytics.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot, err := service.Stats(ctx)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"total_interactions": snapshot.Global.TotalInteractions,
		"total_views":        snapshot.Global.TotalViews,
		"total_installs":     snapshot.Global.TotalInstalls,
		"unique_apps":        snapshot.Global.UniqueApps,
		"today":              snapshot.Today.Date,
		"today_views":        snapshot.Today.TotalViews,
		"today_installs":     snapshot.Today.TotalInstalls,
	}).Info("usage report")

	return nil
}

// reportTopApps logs the current popularity ranking. Popular degrades to an
// empty list on store failures, so an empty report is logged as a warning.
func reportTopApps(log *logrus.Logger, service *analytics.Service, limit int, timeframe string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := service.Popular(ctx, limit, timeframe)
	if err != nil {
		log.WithError(err).Error("Top-apps report failed")
		return
	}
	if result.TotalFound == 0 {
		log.WithField("timeframe", result.Timeframe).Warn("Top-apps report is empty")
		return
	}

	for rank, app := range result.Apps {
		log.WithFields(logrus.Fields{
			"rank":      rank + 1,
			"app":       app.Name,
			"score":     app.Score,
			"views":     app.ViewCount,
			"installs":  app.InstallCount,
			"timeframe": result.Timeframe,
		}).Info("top app")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
