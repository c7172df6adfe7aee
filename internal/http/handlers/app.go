package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
	"brandstudio/internal/pipeline"
)

const defaultMaxUploadBytes = 10 << 20

// ImagePipeline is the part of pipeline.Pipeline the handlers drive.
type ImagePipeline interface {
	GenerateBrandedImage(ctx context.Context, req domain.GenerationRequest, brand domain.BrandProfile, opts pipeline.Options) (*pipeline.Result, error)
	BrandExisting(ctx context.Context, data []byte, brand domain.BrandProfile, opts pipeline.BrandOptions) (*pipeline.Result, error)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type App struct {
	Pipeline       ImagePipeline
	Brands         domain.BrandProfileReader
	Ratings        domain.RatingJobRepository
	Rater          pipeline.Rater
	Store          domain.BlobStore
	Checks         map[string]HealthCheck
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	a.json(w, status, body)
}

// fail maps err onto the error taxonomy. Provider detail stays in the log.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code, message := domain.ErrorCode(err), domain.PublicMessage(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code, message = "timeout", "request timed out"
	case errors.Is(err, context.Canceled):
		code, message = "canceled", "request canceled"
	}
	evt := a.Logger.Warn()
	if status >= http.StatusInternalServerError {
		evt = a.Logger.Error()
	}
	evt.Err(err).Str("path", r.URL.Path).Int("status", status).Str("code", code).Msg("request failed")
	a.error(w, status, code, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOverlayFailed), errors.Is(err, domain.ErrRatingUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) maxUpload() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}
