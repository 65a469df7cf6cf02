package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinic-scheduling/internal/api"
	"github.com/clinicore/clinic-scheduling/internal/config"
	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/notify"
	"github.com/clinicore/clinic-scheduling/internal/redislock"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate("file://migrations", cfg.PostgresDSN); err != nil {
		logger.Error("migration error", "error", err)
		os.Exit(1)
	}

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redislock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	store := schedule.NewPgStore(pgPool)
	locker := redislock.NewRedisScheduleLocker(rdb, cfg.LockTTL, cfg.LockAttempts)
	sink := buildSink(cfg, logger)
	metrics := schedule.NewMetrics(nil)

	availability := schedule.NewAvailability(store, logger)
	planner := schedule.NewPlanner(store, metrics)
	booking := schedule.NewBookingEngine(store, locker, sink, metrics, logger)
	lifecycle := schedule.NewLifecycle(store, sink, logger)
	stats := schedule.NewStats(store)

	router := api.NewRouter(api.RouterConfig{
		Availability: availability,
		Planner:      planner,
		Booking:      booking,
		Lifecycle:    lifecycle,
		Stats:        stats,
		Store:        store,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// buildSink assembles the notification dispatcher from the configured
// channel list.
func buildSink(cfg config.Config, logger *logging.Logger) schedule.Sink {
	var channels []notify.Channel
	for _, name := range cfg.NotifyChannels {
		switch name {
		case "log":
			channels = append(channels, notify.NewLogChannel(logger))
		case "email":
			channels = append(channels, notify.NewEmailChannel(notify.SMTPConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				From:     cfg.SMTPFrom,
			}))
		case "sms":
			channels = append(channels, notify.NewSMSChannel(cfg.SMSGatewayURL, cfg.SMSAPIKey))
		default:
			logger.Warn("unknown notification channel, skipping", "channel", name)
		}
	}
	return notify.NewDispatcher(logger, channels...)
}
