package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/internal/sqlinline"
)

// RatingRepositoryPG implements domain.RatingJobRepository.
type RatingRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRatingRepository creates a rating job queue backed by PostgreSQL.
func NewRatingRepository(sql infra.SQLExecutor) *RatingRepositoryPG {
	return &RatingRepositoryPG{sql: sql}
}

// Enqueue inserts a queued job. A missing id or timestamp is filled in.
func (r *RatingRepositoryPG) Enqueue(ctx context.Context, job *domain.RatingJob) error {
	if job == nil || job.StorageKey == "" {
		return fmt.Errorf("%w: rating job needs a storage key", domain.ErrInvalidInput)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Status = domain.RatingJobQueued
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertRatingJob, job.ID, job.BusinessID, job.StorageKey, job.BrandColor, job.CreatedAt); err != nil {
		return fmt.Errorf("repo: enqueue rating job: %w", err)
	}
	return nil
}

// Claim moves the oldest queued job to running. It returns nil, nil when the
// queue is empty.
func (r *RatingRepositoryPG) Claim(ctx context.Context) (*domain.RatingJob, error) {
	var (
		job    domain.RatingJob
		status string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimRatingJob).Scan(
		&job.ID,
		&job.BusinessID,
		&job.StorageKey,
		&job.BrandColor,
		&status,
		&job.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo: claim rating job: %w", err)
	}
	job.Status = domain.RatingJobStatus(status)
	return &job, nil
}

// SaveRating stores the score and marks the job succeeded.
func (r *RatingRepositoryPG) SaveRating(ctx context.Context, jobID string, score domain.QualityScore) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteRatingJob,
		jobID,
		score.BrandColorMatch,
		score.BrandPersonalityFit,
		score.FocalPointClarity,
		score.TextContrast,
		score.OverallScore,
	)
	if err != nil {
		return fmt.Errorf("repo: save rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure with a user safe reason.
func (r *RatingRepositoryPG) MarkFailed(ctx context.Context, jobID, reason string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QFailRatingJob, jobID, reason); err != nil {
		return fmt.Errorf("repo: fail rating job: %w", err)
	}
	return nil
}

// RequeueStale returns running jobs untouched since before cutoff to the
// queue and reports how many moved.
func (r *RatingRepositoryPG) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequeueStaleRatingJobs, cutoff)
	if err != nil {
		return 0, fmt.Errorf("repo: requeue stale rating jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID returns a job with its score once it has succeeded.
func (r *RatingRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.RatingJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		job                                 domain.RatingJob
		status                              string
		color, personality, focal, contrast *int32
		overall                             *int32
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectRatingJob, jobID).Scan(
		&job.ID,
		&job.BusinessID,
		&job.StorageKey,
		&job.BrandColor,
		&status,
		&job.CreatedAt,
		&job.CompletedAt,
		&color,
		&personality,
		&focal,
		&contrast,
		&overall,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get rating job: %w", err)
	}
	job.Status = domain.RatingJobStatus(status)
	if overall != nil {
		job.Score = &domain.QualityScore{
			BrandColorMatch:     int(deref(color)),
			BrandPersonalityFit: int(deref(personality)),
			FocalPointClarity:   int(deref(focal)),
			TextContrast:        int(deref(contrast)),
			OverallScore:        int(*overall),
		}
	}
	return &job, nil
}

func deref(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}

var _ domain.RatingJobRepository = (*RatingRepositoryPG)(nil)
