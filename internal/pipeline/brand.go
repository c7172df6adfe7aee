package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandstudio/internal/domain"
	"brandstudio/internal/imageproc"
	"brandstudio/pkg/metrics"
)

// BrandOptions control overlay-only branding of an existing image.
type BrandOptions struct {
	RequestID string
	Headline  string
	Topic     string
	Position  imageproc.OverlayPosition
	RateSync  bool
}

// BrandExisting puts the brand text bar on an uploaded or library image so it
// matches generated ones. Without a generation step the overlay is the whole
// job, so its failure is returned as an error.
func (p *Pipeline) BrandExisting(ctx context.Context, data []byte, brand domain.BrandProfile, opts BrandOptions) (*Result, error) {
	started := time.Now()
	defer metrics.ObserveStage("brand_existing", started)

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(brand.BusinessName) == "" || strings.TrimSpace(brand.PrimaryColor) == "" {
		return nil, fmt.Errorf("%w: business name and brand colour are required", domain.ErrInvalidInput)
	}
	if p.deps.Overlay == nil {
		return nil, fmt.Errorf("%w: overlay not configured", domain.ErrOverlayFailed)
	}
	requestID := strings.TrimSpace(opts.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	headline := strings.TrimSpace(opts.Headline)
	if headline == "" {
		topic := opts.Topic
		if strings.TrimSpace(topic) == "" {
			topic = brand.BusinessName
		}
		headline = imageproc.DeriveHeadline(topic)
	}

	out, err := p.deps.Overlay.Apply(data, imageproc.OverlayOptions{
		Headline:     headline,
		BusinessName: brand.BusinessName,
		BrandColor:   brand.PrimaryColor,
		Position:     opts.Position,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("request_id", requestID).Str("stage", StageOverlay).Msg("pipeline: brand existing failed")
		return nil, err
	}

	diag := Diagnostics{
		RequestID:     requestID,
		RemovalMethod: domain.RemovalNone,
		Headline:      headline,
		Warnings:      []domain.Warning{},
	}
	result := p.finish(ctx, out, "image/png", brand, opts.RateSync, &diag)
	result.Diagnostics = diag
	return result, nil
}
