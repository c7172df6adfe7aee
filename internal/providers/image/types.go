// Package image selects a generation backend and turns an enriched prompt into
// an ImageArtifact tagged with backend, cost and timing.
package image

import (
	"context"

	"brandstudio/internal/domain"
)

// Tier orders backends by what they optimise for.
type Tier string

const (
	TierCostOptimized    Tier = "cost-optimized"
	TierQualityOptimized Tier = "quality-optimized"
)

// Request is what a backend needs to produce one image.
type Request struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	RequestID      string
}

// Output is a backend result before cost and timing are attached.
type Output struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

// Backend is the closed set of generation services. Exactly two
// implementations exist: QwenBackend and GeminiBackend.
type Backend interface {
	ID() domain.BackendID
	Tier() Tier
	HasCredentials() bool
	Generate(ctx context.Context, req Request) (*Output, error)
}

// PromptSpec is the raw prompt before brand enrichment.
type PromptSpec struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	RequestID      string
}

// StyleHints carries brand and framework guidance for prompt enrichment.
type StyleHints struct {
	PrimaryColor    string
	ColorName       string
	AccentName      string
	Mood            string
	LightingStyle   string
	PromptModifiers string
	MoodOverride    string
}
