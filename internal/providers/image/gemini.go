package image

import (
	"context"
	"strings"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/genai"
)

type geminiImageClient interface {
	GenerateImage(context.Context, genai.ImageRequest) (*genai.Image, error)
	HasCredentials() bool
	Model() string
}

// GeminiBackend is the quality-optimized backend over Gemini image generation.
type GeminiBackend struct {
	client geminiImageClient
}

// NewGeminiBackend wraps a Gemini client. A nil client yields an unconfigured backend.
func NewGeminiBackend(client geminiImageClient) *GeminiBackend {
	return &GeminiBackend{client: client}
}

func (b *GeminiBackend) ID() domain.BackendID { return domain.BackendGemini }

func (b *GeminiBackend) Tier() Tier { return TierQualityOptimized }

func (b *GeminiBackend) HasCredentials() bool {
	return b != nil && b.client != nil && b.client.HasCredentials()
}

func (b *GeminiBackend) Generate(ctx context.Context, req Request) (*Output, error) {
	if !b.HasCredentials() {
		return nil, genai.ErrMissingAPIKey
	}
	img, err := b.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:         strings.TrimSpace(req.Prompt),
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Width:          req.Width,
		Height:         req.Height,
		RequestID:      req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		URL:    img.URL,
		Data:   img.Data,
		Format: normalizeFormat(img.Format),
		Width:  img.Width,
		Height: img.Height,
	}, nil
}

var _ Backend = (*GeminiBackend)(nil)
