package domain

import (
	"math"
	"time"
)

// BackendID identifies the generation backend that produced an artifact.
type BackendID string

const (
	BackendQwen   BackendID = "qwen-image"
	BackendGemini BackendID = "gemini-image"
)

// RemovalMethod records which background removal path produced a cutout.
type RemovalMethod string

const (
	RemovalNone RemovalMethod = "none"
	RemovalFree RemovalMethod = "free"
	RemovalPaid RemovalMethod = "paid"
)

// ImageArtifact is a generated image plus the cost and timing needed for billing.
type ImageArtifact struct {
	URL              string
	Data             []byte
	Format           string
	Model            BackendID
	CostUSD          float64
	GenerationTimeMs int64
	Width            int
	Height           int
}

// CompositionResult carries a composited image and how its cutout was made.
type CompositionResult struct {
	Image  []byte
	Method RemovalMethod
}

// Overall score weights.
const (
	WeightBrandColor  = 0.25
	WeightPersonality = 0.25
	WeightFocal       = 0.30
	WeightContrast    = 0.20
)

// QualityScore holds the rating sub-scores, each in [0,100].
type QualityScore struct {
	BrandColorMatch     int `json:"brand_color_match"`
	BrandPersonalityFit int `json:"brand_personality_fit"`
	FocalPointClarity   int `json:"focal_point_clarity"`
	TextContrast        int `json:"text_contrast"`
	OverallScore        int `json:"overall_score"`
}

// NewQualityScore clamps the sub-scores and derives the weighted overall score.
func NewQualityScore(color, personality, focal, contrast int) QualityScore {
	q := QualityScore{
		BrandColorMatch:     ClampScore(color),
		BrandPersonalityFit: ClampScore(personality),
		FocalPointClarity:   ClampScore(focal),
		TextContrast:        ClampScore(contrast),
	}
	overall := WeightBrandColor*float64(q.BrandColorMatch) +
		WeightPersonality*float64(q.BrandPersonalityFit) +
		WeightFocal*float64(q.FocalPointClarity) +
		WeightContrast*float64(q.TextContrast)
	q.OverallScore = ClampScore(int(math.Round(overall)))
	return q
}

// ClampScore bounds v to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Warning is a non-fatal stage failure surfaced with the result.
type Warning struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UsageEvent is a billable step reported to the cost collector.
type UsageEvent struct {
	RequestID  string
	BusinessID string
	Stage      string
	Model      string
	Method     RemovalMethod
	CostUSD    float64
	OccurredAt time.Time
}

// RatingJobStatus enumerates the lifecycle of a queued rating.
type RatingJobStatus string

const (
	RatingJobQueued    RatingJobStatus = "queued"
	RatingJobRunning   RatingJobStatus = "running"
	RatingJobSucceeded RatingJobStatus = "succeeded"
	RatingJobFailed    RatingJobStatus = "failed"
)

// RatingJob asks the rating worker to score a stored image.
type RatingJob struct {
	ID          string
	BusinessID  string
	StorageKey  string
	BrandColor  string
	Status      RatingJobStatus
	Score       *QualityScore
	CreatedAt   time.Time
	CompletedAt *time.Time
}
