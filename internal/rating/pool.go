package rating

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/pkg/metrics"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	defaultSaveAfter = 10 * time.Second
)

// Job is one image waiting to be scored.
type Job struct {
	ID         string
	Image      []byte
	BrandColor string
}

// FailureSink is implemented by sinks that track jobs which could not be scored.
type FailureSink interface {
	MarkFailed(ctx context.Context, jobID, reason string) error
}

// PoolOptions configures the background rating pool.
type PoolOptions struct {
	Workers     int
	QueueSize   int
	Sink        domain.RatingSink
	SaveTimeout time.Duration
	Logger      *infra.Logger
}

// Pool scores images on a fixed set of workers behind a bounded queue.
type Pool struct {
	rater       *Rater
	sink        domain.RatingSink
	workers     int
	saveTimeout time.Duration
	logger      *infra.Logger

	jobs      chan Job
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	group     *errgroup.Group
}

func NewPool(rater *Rater, opts PoolOptions) *Pool {
	if rater == nil {
		rater = NewRater()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	saveTimeout := opts.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveAfter
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Pool{
		rater:       rater,
		sink:        opts.Sink,
		workers:     workers,
		saveTimeout: saveTimeout,
		logger:      logger,
		jobs:        make(chan Job, queue),
	}
}

// Start launches the workers. They exit when ctx is done or the pool is closed.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		group, gctx := errgroup.WithContext(ctx)
		p.group = group
		for i := 0; i < p.workers; i++ {
			group.Go(func() error {
				return p.work(gctx)
			})
		}
		p.logger.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("rating: pool started")
	})
}

// Submit queues job without blocking. A full or closed queue reports
// ErrRatingUnavailable.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("%w: pool closed", domain.ErrRatingUnavailable)
	}
	select {
	case p.jobs <- job:
		metrics.RatingQueueDepth.Set(float64(len(p.jobs)))
		return nil
	default:
		return fmt.Errorf("%w: queue full", domain.ErrRatingUnavailable)
	}
}

// Pending reports how many jobs are waiting.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Close stops accepting jobs and waits for queued ones to drain.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	if p.group == nil {
		return nil
	}
	if err := p.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (p *Pool) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-p.jobs:
			if !ok {
				return nil
			}
			metrics.RatingQueueDepth.Set(float64(len(p.jobs)))
			p.handle(ctx, job)
		}
	}
}

func (p *Pool) handle(ctx context.Context, job Job) {
	started := time.Now()
	defer metrics.ObserveStage("rating", started)

	score, err := p.rater.Rate(job.Image, job.BrandColor)
	if err != nil {
		p.logger.Warn().Err(err).Str("stage", "rating").Str("job_id", job.ID).Msg("rating: job failed")
		if fs, ok := p.sink.(FailureSink); ok {
			saveCtx, cancel := context.WithTimeout(ctx, p.saveTimeout)
			defer cancel()
			if markErr := fs.MarkFailed(saveCtx, job.ID, domain.PublicMessage(err)); markErr != nil {
				p.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("rating: mark failed")
			}
		}
		return
	}
	if p.sink == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, p.saveTimeout)
	defer cancel()
	if err := p.sink.SaveRating(saveCtx, job.ID, score); err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("rating: save failed")
		return
	}
	p.logger.Debug().
		Str("job_id", job.ID).
		Int("overall", score.OverallScore).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("rating: scored")
}
