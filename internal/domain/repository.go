package domain

import (
	"context"
	"time"
)

// BrandProfileReader loads brand profiles owned by the relational store.
type BrandProfileReader interface {
	GetBrandProfile(ctx context.Context, businessID string) (*BrandProfile, error)
}

// BlobStore persists image bytes and returns a permanent URL.
type BlobStore interface {
	Store(ctx context.Context, data []byte, key string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

// CostCollector receives billable usage events.
type CostCollector interface {
	Record(ctx context.Context, event UsageEvent) error
}

// ArtifactCache stores generated artifacts by content hash.
type ArtifactCache interface {
	Get(ctx context.Context, key string) (*ImageArtifact, bool, error)
	Put(ctx context.Context, key string, artifact *ImageArtifact, ttl time.Duration) error
}

// RatingSink persists quality scores for the feedback loop.
type RatingSink interface {
	SaveRating(ctx context.Context, jobID string, score QualityScore) error
}

// RatingJobRepository queues and claims rating work.
type RatingJobRepository interface {
	RatingSink
	Enqueue(ctx context.Context, job *RatingJob) error
	Claim(ctx context.Context) (*RatingJob, error)
	MarkFailed(ctx context.Context, jobID, reason string) error
	GetByID(ctx context.Context, jobID string) (*RatingJob, error)
}
