package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"brandstudio/internal/adapter/repo"
	"brandstudio/internal/infra"
	"brandstudio/internal/rating"
	"brandstudio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	jobs := repo.NewRatingRepository(runner)
	raters := rating.NewPool(rating.NewRater(), rating.PoolOptions{
		Workers:   cfg.RatingWorkers,
		QueueSize: cfg.RatingQueueSize,
		Sink:      jobs,
		Logger:    &logger,
	})
	raters.Start(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.RatingReapSchedule, reaper(ctx, jobs, cfg.RatingStaleAfter, logger)); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.RatingReapSchedule).Msg("worker: invalid reap schedule")
	}
	sched.Start()
	defer sched.Stop()

	worker := newRatingWorker(jobs, fileStore, raters, logger)
	logger.Info().Int("workers", cfg.RatingWorkers).Msg("worker: rating jobs")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: stopped with error")
	}
	if err := raters.Close(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: rating pool exited with error")
	}
	logger.Info().Msg("worker: stopped")
}
