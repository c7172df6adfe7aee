package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.Image, error)
	HasCredentials() bool
	Model() string
}

// QwenBackend is the cost-optimized backend over DashScope's Qwen image model.
type QwenBackend struct {
	client qwenImageClient
}

// NewQwenBackend wraps a Qwen client. A nil client yields an unconfigured backend.
func NewQwenBackend(client qwenImageClient) *QwenBackend {
	return &QwenBackend{client: client}
}

func (b *QwenBackend) ID() domain.BackendID { return domain.BackendQwen }

func (b *QwenBackend) Tier() Tier { return TierCostOptimized }

func (b *QwenBackend) HasCredentials() bool {
	return b != nil && b.client != nil && b.client.HasCredentials()
}

// Generate requests one image. The seed is derived from the request so the same
// prompt and request id reproduce the same picture.
func (b *QwenBackend) Generate(ctx context.Context, req Request) (*Output, error) {
	if !b.HasCredentials() {
		return nil, qwen.ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	img, err := b.client.GenerateImage(ctx, qwen.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Width:          req.Width,
		Height:         req.Height,
		Seed:           deterministicSeed(req.RequestID, prompt, req.Width, req.Height),
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

var _ Backend = (*QwenBackend)(nil)

func deterministicSeed(values ...any) int {
	if len(values) == 0 {
		return 0
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	value := int(binary.BigEndian.Uint32(sum[:4]) % 2147483647)
	if value <= 0 {
		value = int(binary.BigEndian.Uint32(sum[4:8])%2147483646) + 1
	}
	return value
}

func normalizeFormat(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}
