package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clinicore/clinic-scheduling/internal/config"
	"github.com/clinicore/clinic-scheduling/internal/db"
	"github.com/clinicore/clinic-scheduling/internal/notify"
	"github.com/clinicore/clinic-scheduling/internal/reminder"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("reminder-worker starting",
		"env", cfg.Env,
		"interval", cfg.ReminderInterval.String(),
		"lead_days", cfg.ReminderLeadDays,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	store := schedule.NewPgStore(pgPool)
	sink := notify.NewDispatcher(logger, notify.NewLogChannel(logger))

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	}

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	enqueuer := reminder.NewEnqueuer(store, client, cfg.ReminderLeadDays, logger)
	handler := reminder.NewHandler(store, sink, logger)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})

	// Serve reminder tasks in the background while the scan loop runs here.
	go func() {
		if err := srv.Run(reminder.Mux(handler)); err != nil {
			logger.Error("asynq server error", "error", err)
			stop()
		}
	}()

	runScan(rootCtx, enqueuer, logger)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			srv.Shutdown()
			return
		case <-ticker.C:
			runScan(rootCtx, enqueuer, logger)
		}
	}
}

func runScan(ctx context.Context, enqueuer *reminder.Enqueuer, logger *logging.Logger) {
	scanCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	queued, err := enqueuer.EnqueueDue(scanCtx, time.Now())
	if err != nil {
		logger.Error("reminder scan error", "error", err)
		return
	}
	logger.Info("reminder scan finished", "queued", queued, "elapsed", time.Since(start).String())
}
