// Package pipeline turns a topic and a brand into a finished marketing image:
// classify, generate, composite, overlay and rate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"brandstudio/internal/branding"
	"brandstudio/internal/domain"
	"brandstudio/internal/framework"
	"brandstudio/internal/imageproc"
	"brandstudio/internal/infra"
	genimage "brandstudio/internal/providers/image"
	"brandstudio/pkg/metrics"
)

const (
	defaultSynthesisTimeout = 130 * time.Second
	defaultRecordTimeout    = 5 * time.Second
	defaultCacheTTL         = time.Hour
)

// Stage names used in warnings, logs and metrics.
const (
	StageClassification = "classification"
	StageBranding       = "branding"
	StageGeneration     = "generation"
	StageRemoval        = "background_removal"
	StageComposition    = "composition"
	StageOverlay        = "overlay"
	StageStorage        = "storage"
	StageRating         = "rating"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, spec genimage.PromptSpec, hints genimage.StyleHints) (*domain.ImageArtifact, error)
}

type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, data []byte) (imageproc.RemovalResult, error)
}

type Compositor interface {
	Composite(background, product []byte, opts imageproc.CompositionOptions) ([]byte, error)
}

type Overlayer interface {
	Apply(data []byte, opts imageproc.OverlayOptions) ([]byte, error)
}

type Rater interface {
	Rate(data []byte, brandPrimary string) (domain.QualityScore, error)
}

// RatingQueue defers scoring of a stored image to the rating worker.
type RatingQueue interface {
	Enqueue(ctx context.Context, job *domain.RatingJob) error
}

// Deps are the pipeline collaborators. Synthesizer is required; everything
// else is optional and its stage is skipped or degraded when nil.
type Deps struct {
	Synthesizer Synthesizer
	Remover     BackgroundRemover
	Compositor  Compositor
	Overlay     Overlayer
	Rater       Rater
	RatingQueue RatingQueue
	Store       domain.BlobStore
	Costs       domain.CostCollector
	Cache       domain.ArtifactCache
	CacheTTL    time.Duration

	SynthesisTimeout time.Duration
	RecordTimeout    time.Duration
	Logger           *infra.Logger
}

// Options tune a single generation.
type Options struct {
	RequestID       string
	ProductImage    []byte
	Composition     *imageproc.CompositionOptions
	Headline        string
	OverlayPosition imageproc.OverlayPosition
	SkipOverlay     bool
	RateSync        bool
}

// Diagnostics explains how a result was produced.
type Diagnostics struct {
	RequestID        string                   `json:"request_id"`
	Personality      branding.Personality     `json:"personality,omitempty"`
	Recommendation   framework.Recommendation `json:"recommendation"`
	Model            domain.BackendID         `json:"model,omitempty"`
	GenerationCost   float64                  `json:"generation_cost_usd"`
	GenerationTimeMs int64                    `json:"generation_time_ms"`
	CacheHit         bool                     `json:"cache_hit"`
	RemovalMethod    domain.RemovalMethod     `json:"removal_method"`
	RemovalCost      float64                  `json:"removal_cost_usd"`
	TotalCostUSD     float64                  `json:"total_cost_usd"`
	Headline         string                   `json:"headline,omitempty"`
	EnrichedPrompt   string                   `json:"enriched_prompt,omitempty"`
	Quality          *domain.QualityScore     `json:"quality,omitempty"`
	QualityPending   bool                     `json:"quality_pending"`
	RatingJobID      string                   `json:"rating_job_id,omitempty"`
	Warnings         []domain.Warning         `json:"warnings"`
}

func (d *Diagnostics) warn(stage string, err error) {
	d.Warnings = append(d.Warnings, domain.Warning{
		Stage:   stage,
		Code:    domain.ErrorCode(err),
		Message: domain.PublicMessage(err),
	})
	metrics.StageWarnings.WithLabelValues(stage, domain.ErrorCode(err)).Inc()
}

// Result is the finished image with its diagnostics.
type Result struct {
	Image       []byte      `json:"-"`
	Format      string      `json:"format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	URL         string      `json:"url,omitempty"`
	StorageKey  string      `json:"storage_key,omitempty"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Pipeline runs the brand-aware generation chain. Each call is independent.
type Pipeline struct {
	deps     Deps
	logger   *infra.Logger
	inflight sync.WaitGroup
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Synthesizer == nil {
		return nil, errors.New("pipeline: synthesizer is required")
	}
	if deps.SynthesisTimeout <= 0 {
		deps.SynthesisTimeout = defaultSynthesisTimeout
	}
	if deps.RecordTimeout <= 0 {
		deps.RecordTimeout = defaultRecordTimeout
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultCacheTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Pipeline{deps: deps, logger: logger}, nil
}

// Wait blocks until background cost recording has finished.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// GenerateBrandedImage produces a finished on-brand image for req. Only a
// missing or failing generation backend aborts; later stages degrade into
// warnings.
func (p *Pipeline) GenerateBrandedImage(ctx context.Context, req domain.GenerationRequest, brand domain.BrandProfile, opts Options) (*Result, error) {
	started := time.Now()
	defer metrics.ObserveStage("pipeline", started)

	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	requestID := strings.TrimSpace(opts.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	diag := Diagnostics{RequestID: requestID, RemovalMethod: domain.RemovalNone, Warnings: []domain.Warning{}}
	log := p.logger.With().Str("request_id", requestID).Str("business_id", brand.BusinessID).Logger()

	primary := brand.PrimaryColor
	profile, err := branding.Analyze(brand.PrimaryColor, brand.SecondaryColor)
	if err != nil {
		diag.warn(StageBranding, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		primary = ""
	} else {
		diag.Personality = profile.Personality
	}

	rec := framework.Classify(framework.Input{
		Topic:        req.Topic,
		Industry:     req.Industry,
		ContentType:  req.ContentType,
		CampaignGoal: req.CampaignGoal,
		Urgency:      framework.ParseUrgency(req.Urgency),
	})
	diag.Recommendation = rec
	if rec.Defaulted {
		diag.warn(StageClassification, domain.ErrClassificationDefaulted)
	}

	spec := genimage.BuildPromptSpec(req)
	spec.RequestID = requestID
	hints := genimage.NewStyleHints(primary, profile, rec)
	diag.EnrichedPrompt = genimage.Enrich(spec, hints)

	artifact, err := p.synthesize(ctx, spec, hints, brand, &diag)
	if err != nil {
		log.Error().Err(err).Str("stage", StageGeneration).Msg("pipeline: generation aborted")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Str("model", string(artifact.Model)).Msg("pipeline: caller went away after generation")
		return nil, err
	}

	img, format := artifact.Data, artifact.Format
	if len(opts.ProductImage) > 0 {
		if out, ok := p.compose(ctx, img, opts, &diag, requestID, brand.BusinessID); ok {
			img, format = out, "image/png"
		}
	}

	if !opts.SkipOverlay && p.deps.Overlay != nil {
		headline := strings.TrimSpace(opts.Headline)
		if headline == "" {
			headline = imageproc.DeriveHeadline(req.Topic)
		}
		diag.Headline = headline
		out, err := p.deps.Overlay.Apply(img, imageproc.OverlayOptions{
			Headline:     headline,
			BusinessName: brand.BusinessName,
			BrandColor:   brand.PrimaryColor,
			Position:     opts.OverlayPosition,
		})
		if err != nil {
			log.Warn().Err(err).Str("stage", StageOverlay).Msg("pipeline: overlay skipped")
			diag.warn(StageOverlay, err)
		} else {
			img, format = out, "image/png"
		}
	}

	result := p.finish(ctx, img, format, brand, opts.RateSync, &diag)
	diag.TotalCostUSD = diag.GenerationCost + diag.RemovalCost
	result.Diagnostics = diag

	log.Info().
		Str("model", string(diag.Model)).
		Str("removal_method", string(diag.RemovalMethod)).
		Float64("cost_usd", diag.TotalCostUSD).
		Int("warnings", len(diag.Warnings)).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("pipeline: branded image ready")
	return result, nil
}

// synthesize runs generation detached from the caller's cancellation so that a
// started, billable generation always completes and is recorded.
func (p *Pipeline) synthesize(ctx context.Context, spec genimage.PromptSpec, hints genimage.StyleHints, brand domain.BrandProfile, diag *Diagnostics) (*domain.ImageArtifact, error) {
	started := time.Now()
	defer metrics.ObserveStage(StageGeneration, started)

	cacheKey := genimage.ContentHash(diag.EnrichedPrompt, spec.Width, spec.Height)
	if p.deps.Cache != nil {
		cached, ok, err := p.deps.Cache.Get(ctx, cacheKey)
		if err != nil {
			p.logger.Warn().Err(err).Str("stage", StageGeneration).Msg("pipeline: artifact cache read failed")
		}
		if ok && cached != nil && len(cached.Data) > 0 {
			diag.CacheHit = true
			diag.Model = cached.Model
			diag.GenerationTimeMs = 0
			return cached, nil
		}
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.deps.SynthesisTimeout)
	defer cancel()
	artifact, err := p.deps.Synthesizer.Synthesize(genCtx, spec, hints)
	if err != nil {
		return nil, err
	}

	diag.Model = artifact.Model
	diag.GenerationCost = artifact.CostUSD
	diag.GenerationTimeMs = artifact.GenerationTimeMs
	p.recordCost(domain.UsageEvent{
		RequestID:  spec.RequestID,
		BusinessID: brand.BusinessID,
		Stage:      StageGeneration,
		Model:      string(artifact.Model),
		Method:     domain.RemovalNone,
		CostUSD:    artifact.CostUSD,
		OccurredAt: time.Now().UTC(),
	})

	if p.deps.Cache != nil {
		putCtx, putCancel := context.WithTimeout(context.WithoutCancel(ctx), p.deps.RecordTimeout)
		defer putCancel()
		if err := p.deps.Cache.Put(putCtx, cacheKey, artifact, p.deps.CacheTTL); err != nil {
			p.logger.Warn().Err(err).Str("stage", StageGeneration).Msg("pipeline: artifact cache write failed")
		}
	}
	return artifact, nil
}

// compose cuts the product out and places it on the background. It reports
// false when the background is returned untouched; failures become warnings.
func (p *Pipeline) compose(ctx context.Context, background []byte, opts Options, diag *Diagnostics, requestID, businessID string) ([]byte, bool) {
	if p.deps.Remover == nil || p.deps.Compositor == nil {
		diag.warn(StageComposition, fmt.Errorf("%w: compositing not configured", domain.ErrCompositionFailed))
		return background, false
	}

	removal, err := p.deps.Remover.RemoveBackground(ctx, opts.ProductImage)
	if err != nil {
		p.logger.Warn().Err(err).Str("request_id", requestID).Str("stage", StageRemoval).Msg("pipeline: product skipped")
		diag.warn(StageRemoval, err)
		return background, false
	}
	diag.RemovalMethod = removal.Method
	diag.RemovalCost = removal.CostUSD
	removalModel := genimage.CostKeyFreeCut
	if removal.Method == domain.RemovalPaid {
		removalModel = genimage.CostKeyRemoveBG
	}
	p.recordCost(domain.UsageEvent{
		RequestID:  requestID,
		BusinessID: businessID,
		Stage:      StageRemoval,
		Model:      string(removalModel),
		Method:     removal.Method,
		CostUSD:    removal.CostUSD,
		OccurredAt: time.Now().UTC(),
	})

	compOpts := imageproc.DefaultCompositionOptions()
	if opts.Composition != nil {
		compOpts = *opts.Composition
	}
	out, err := p.deps.Compositor.Composite(background, removal.Image, compOpts)
	if err == nil {
		return out, true
	}
	p.logger.Warn().Err(err).Str("request_id", requestID).Str("stage", StageComposition).Msg("pipeline: falling back to plain paste")
	diag.warn(StageComposition, err)
	if pasted, pasteErr := imageproc.PasteCentered(background, removal.Image); pasteErr == nil {
		return pasted, true
	}
	return background, false
}

// finish stores the image and scores it, inline or through the rating queue.
func (p *Pipeline) finish(ctx context.Context, img []byte, format string, brand domain.BrandProfile, rateSync bool, diag *Diagnostics) *Result {
	if format == "" {
		format = "image/png"
	}
	result := &Result{Image: img, Format: format}
	if w, h, err := imageproc.DecodeSize(img); err == nil {
		result.Width, result.Height = w, h
	}

	if p.deps.Store != nil {
		key := storageKey(brand.BusinessID, diag.RequestID, result.Format)
		url, err := p.deps.Store.Store(ctx, img, key)
		if err != nil {
			p.logger.Warn().Err(err).Str("request_id", diag.RequestID).Str("stage", StageStorage).Msg("pipeline: store failed")
			diag.warn(StageStorage, err)
		} else {
			result.URL = url
			result.StorageKey = key
		}
	}

	if !rateSync && p.deps.RatingQueue != nil && result.StorageKey != "" {
		job := &domain.RatingJob{
			ID:         uuid.NewString(),
			BusinessID: brand.BusinessID,
			StorageKey: result.StorageKey,
			BrandColor: brand.PrimaryColor,
			Status:     domain.RatingJobQueued,
			CreatedAt:  time.Now().UTC(),
		}
		err := p.deps.RatingQueue.Enqueue(ctx, job)
		if err == nil {
			diag.QualityPending = true
			diag.RatingJobID = job.ID
			return result
		}
		p.logger.Warn().Err(err).Str("request_id", diag.RequestID).Msg("pipeline: rating enqueue failed, rating inline")
	}

	if p.deps.Rater == nil {
		diag.warn(StageRating, domain.ErrRatingUnavailable)
		return result
	}
	started := time.Now()
	score, err := p.deps.Rater.Rate(img, brand.PrimaryColor)
	metrics.ObserveStage(StageRating, started)
	if err != nil {
		diag.warn(StageRating, err)
		return result
	}
	diag.Quality = &score
	return result
}

func (p *Pipeline) recordCost(ev domain.UsageEvent) {
	metrics.AddCost(ev.Stage, ev.Model, ev.CostUSD)
	if p.deps.Costs == nil {
		return
	}
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().Interface("panic", r).Str("stage", ev.Stage).Msg("pipeline: cost collector panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), p.deps.RecordTimeout)
		defer cancel()
		if err := p.deps.Costs.Record(ctx, ev); err != nil {
			p.logger.Warn().Err(err).
				Str("request_id", ev.RequestID).
				Str("stage", ev.Stage).
				Float64("cost_usd", ev.CostUSD).
				Msg("pipeline: cost record failed")
		}
	}()
}

func storageKey(businessID, requestID, format string) string {
	owner := strings.TrimSpace(businessID)
	if owner == "" {
		owner = "anonymous"
	}
	ext := ".png"
	switch format {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	return fmt.Sprintf("generated/%s/%s%s", owner, requestID, ext)
}
