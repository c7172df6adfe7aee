package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/pkg/metrics"
)

const defaultAttemptTimeout = 60 * time.Second

// Options wires the orchestrator's backends and budget.
type Options struct {
	Primary  Backend
	Fallback Backend
	Costs    CostTable
	Timeout  time.Duration
	Logger   *infra.Logger
}

// Orchestrator runs the primary backend and, on any failure, the fallback once.
type Orchestrator struct {
	primary  Backend
	fallback Backend
	costs    CostTable
	timeout  time.Duration
	logger   *infra.Logger
	now      func() time.Time
}

// NewOrchestrator keeps only backends that hold credentials. When only one is
// configured it becomes the primary.
func NewOrchestrator(opts Options) *Orchestrator {
	primary, fallback := configured(opts.Primary), configured(opts.Fallback)
	if primary == nil {
		primary, fallback = fallback, nil
	}
	costs := opts.Costs
	if costs == nil {
		costs = DefaultCostTable()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		costs:    costs,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

func configured(b Backend) Backend {
	if b == nil || !b.HasCredentials() {
		return nil
	}
	return b
}

// Available reports whether at least one backend can be called.
func (o *Orchestrator) Available() bool {
	return o != nil && o.primary != nil
}

// Backends lists the configured backend ids in attempt order.
func (o *Orchestrator) Backends() []domain.BackendID {
	var ids []domain.BackendID
	for _, b := range []Backend{o.primary, o.fallback} {
		if b != nil {
			ids = append(ids, b.ID())
		}
	}
	return ids
}

// Synthesize enriches the prompt with brand hints and produces one image.
func (o *Orchestrator) Synthesize(ctx context.Context, spec PromptSpec, hints StyleHints) (*domain.ImageArtifact, error) {
	if !o.Available() {
		return nil, domain.ErrModelUnavailable
	}
	req := Request{
		Prompt:         Enrich(spec, hints),
		NegativePrompt: spec.NegativePrompt,
		Width:          spec.Width,
		Height:         spec.Height,
		RequestID:      spec.RequestID,
	}

	artifact, err := o.attempt(ctx, o.primary, req)
	if err == nil {
		return artifact, nil
	}
	if o.fallback == nil || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrGenerationFailed, o.primary.ID())
	}
	o.logger.Info().
		Str("request_id", req.RequestID).
		Str("from", string(o.primary.ID())).
		Str("to", string(o.fallback.ID())).
		Msg("image: switching to fallback backend")

	artifact, err = o.attempt(ctx, o.fallback, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s and %s", domain.ErrGenerationFailed, o.primary.ID(), o.fallback.ID())
	}
	return artifact, nil
}

func (o *Orchestrator) attempt(ctx context.Context, backend Backend, req Request) (*domain.ImageArtifact, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	started := o.now()
	out, err := backend.Generate(attemptCtx, req)
	elapsed := o.now().Sub(started)
	if err == nil {
		err = validateOutput(out)
	}
	metrics.BackendCall(string(backend.ID()), err)
	if err != nil {
		o.logFailure(backend, req.RequestID, elapsed, err)
		return nil, err
	}

	width, height := out.Width, out.Height
	if width <= 0 || height <= 0 {
		cfg, _, decodeErr := stdimage.DecodeConfig(bytes.NewReader(out.Data))
		if decodeErr != nil {
			err = fmt.Errorf("image: undecodable output: %w", decodeErr)
			o.logFailure(backend, req.RequestID, elapsed, err)
			return nil, err
		}
		width, height = cfg.Width, cfg.Height
	}

	cost := o.costs.Lookup(backend.ID())
	metrics.AddCost("generation", string(backend.ID()), cost)
	o.logger.Debug().
		Str("stage", "generation").
		Str("backend", string(backend.ID())).
		Str("request_id", req.RequestID).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Float64("cost_usd", cost).
		Msg("image: generated")

	return &domain.ImageArtifact{
		URL:              out.URL,
		Data:             out.Data,
		Format:           normalizeFormat(out.Format),
		Model:            backend.ID(),
		CostUSD:          cost,
		GenerationTimeMs: elapsed.Milliseconds(),
		Width:            width,
		Height:           height,
	}, nil
}

func (o *Orchestrator) logFailure(backend Backend, requestID string, elapsed time.Duration, err error) {
	level := zerolog.WarnLevel
	if errors.Is(err, context.DeadlineExceeded) {
		level = zerolog.ErrorLevel
	}
	o.logger.WithLevel(level).
		Err(err).
		Str("stage", "generation").
		Str("backend", string(backend.ID())).
		Str("request_id", requestID).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("image: backend attempt failed")
}

func validateOutput(out *Output) error {
	if out == nil || len(out.Data) == 0 {
		return errors.New("image: backend returned no image data")
	}
	return nil
}
