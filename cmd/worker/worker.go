package main

import (
	"context"
	"errors"
	"time"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/internal/rating"
)

const (
	jobPollInterval  = 2 * time.Second
	submitRetryDelay = 200 * time.Millisecond
	readTimeout      = 10 * time.Second
)

type jobQueue interface {
	Claim(ctx context.Context) (*domain.RatingJob, error)
	MarkFailed(ctx context.Context, jobID, reason string) error
}

type staleRequeuer interface {
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type blobReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

type scorer interface {
	Submit(job rating.Job) error
}

// ratingWorker claims queued rating jobs and feeds them to the rating pool.
type ratingWorker struct {
	jobs   jobQueue
	store  blobReader
	pool   scorer
	logger infra.Logger
	poll   time.Duration
}

func newRatingWorker(jobs jobQueue, store blobReader, pool scorer, logger infra.Logger) *ratingWorker {
	return &ratingWorker{jobs: jobs, store: store, pool: pool, logger: logger, poll: jobPollInterval}
}

func (w *ratingWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := w.jobs.Claim(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: claim failed")
			if err := sleep(ctx, w.poll); err != nil {
				return err
			}
			continue
		}
		if job == nil {
			if err := sleep(ctx, w.poll); err != nil {
				return err
			}
			continue
		}
		if err := w.dispatch(ctx, job); err != nil {
			return err
		}
	}
}

// dispatch only returns an error when ctx is done.
func (w *ratingWorker) dispatch(ctx context.Context, job *domain.RatingJob) error {
	log := w.logger.With().Str("job_id", job.ID).Str("storage_key", job.StorageKey).Logger()

	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	data, err := w.store.Read(readCtx, job.StorageKey)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("worker: image unavailable")
		w.fail(ctx, job.ID, err)
		return nil
	}

	for {
		err := w.pool.Submit(rating.Job{ID: job.ID, Image: data, BrandColor: job.BrandColor})
		if err == nil {
			log.Debug().Msg("worker: submitted")
			return nil
		}
		if !errors.Is(err, domain.ErrRatingUnavailable) {
			w.fail(ctx, job.ID, err)
			return nil
		}
		if err := sleep(ctx, submitRetryDelay); err != nil {
			w.fail(context.WithoutCancel(ctx), job.ID, err)
			return err
		}
	}
}

// reaper returns a cron job that puts running jobs untouched for longer than
// maxAge back on the queue, so work claimed by a crashed worker is retried.
func reaper(ctx context.Context, jobs staleRequeuer, maxAge time.Duration, logger infra.Logger) func() {
	return func() {
		n, err := jobs.RequeueStale(ctx, time.Now().Add(-maxAge))
		if err != nil {
			logger.Error().Err(err).Msg("worker: requeue stale jobs failed")
			return
		}
		if n > 0 {
			logger.Warn().Int64("requeued", n).Dur("max_age", maxAge).Msg("worker: requeued stale jobs")
		}
	}
}

func (w *ratingWorker) fail(ctx context.Context, jobID string, cause error) {
	if err := w.jobs.MarkFailed(ctx, jobID, domain.PublicMessage(cause)); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: mark failed")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
