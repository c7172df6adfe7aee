package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"brandstudio/internal/domain"
	"brandstudio/internal/imageproc"
	"brandstudio/internal/middleware"
	"brandstudio/internal/pipeline"
	"brandstudio/pkg/zip"
)

type imageResponse struct {
	RequestID   string               `json:"request_id"`
	URL         string               `json:"url,omitempty"`
	StorageKey  string               `json:"storage_key,omitempty"`
	Format      string               `json:"format"`
	Width       int                  `json:"width"`
	Height      int                  `json:"height"`
	ImageBase64 string               `json:"image_base64,omitempty"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

// ImagesGenerate runs the full pipeline. ?format=zip returns the image and
// diagnostics.json as one archive.
func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	product, err := a.decodeBody(w, r, &req, "product")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(product) == 0 {
		if product, err = decodeImage(req.ProductImage); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	brand, err := a.resolveBrand(r.Context(), req.BusinessID, req.Brand)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	opts := pipeline.Options{
		RequestID:       middleware.RequestIDFromContext(r.Context()),
		ProductImage:    product,
		Headline:        req.Headline,
		OverlayPosition: imageproc.ParseOverlayPosition(req.OverlayPosition),
		SkipOverlay:     req.SkipOverlay,
		RateSync:        req.RateSync,
	}
	if len(product) > 0 {
		comp := imageproc.DefaultCompositionOptions()
		if req.ProductScale > 0 {
			comp.ProductScale = req.ProductScale
		}
		comp.Position = imageproc.ParsePosition(req.ProductPosition)
		if req.AddShadow != nil {
			comp.AddShadow = *req.AddShadow
		}
		comp.Transparent = req.Transparent
		opts.Composition = &comp
	}

	result, err := a.Pipeline.GenerateBrandedImage(r.Context(), domain.GenerationRequest{
		Topic:        req.Topic,
		Industry:     req.Industry,
		ContentType:  req.ContentType,
		CampaignGoal: req.CampaignGoal,
		Style:        req.Style,
		Urgency:      req.Urgency,
	}, brand, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeResult(w, r, result)
}

// ImagesBrand overlays brand text on an uploaded or previously stored image.
func (a *App) ImagesBrand(w http.ResponseWriter, r *http.Request) {
	var req brandImageRequest
	upload, err := a.decodeBody(w, r, &req, "image")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := a.loadImage(r.Context(), upload, req.Image, req.StorageKey)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	brand, err := a.resolveBrand(r.Context(), req.BusinessID, req.Brand)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.Pipeline.BrandExisting(r.Context(), data, brand, pipeline.BrandOptions{
		RequestID: middleware.RequestIDFromContext(r.Context()),
		Headline:  req.Headline,
		Topic:     req.Topic,
		Position:  imageproc.ParseOverlayPosition(req.Position),
		RateSync:  req.RateSync,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeResult(w, r, result)
}

// ImagesRate scores an image inline, or queues a stored one when async is set.
func (a *App) ImagesRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	upload, err := a.decodeBody(w, r, &req, "image")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if color := r.FormValue("brand_color"); req.BrandColor == "" && color != "" {
		req.BrandColor = color
	}

	if req.Async {
		if a.Ratings == nil || strings.TrimSpace(req.StorageKey) == "" {
			a.fail(w, r, fmt.Errorf("%w: async rating needs storage_key and a rating queue", domain.ErrInvalidInput))
			return
		}
		job := &domain.RatingJob{
			ID:         uuid.NewString(),
			StorageKey: strings.TrimSpace(req.StorageKey),
			BrandColor: req.BrandColor,
			Status:     domain.RatingJobQueued,
		}
		if err := a.Ratings.Enqueue(r.Context(), job); err != nil {
			a.fail(w, r, err)
			return
		}
		a.json(w, http.StatusAccepted, map[string]any{"job_id": job.ID, "status": job.Status})
		return
	}

	if a.Rater == nil {
		a.fail(w, r, domain.ErrRatingUnavailable)
		return
	}
	data, err := a.loadImage(r.Context(), upload, req.Image, req.StorageKey)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	score, err := a.Rater.Rate(data, req.BrandColor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"quality": score})
}

// RatingStatus reports a queued rating and its score once done.
func (a *App) RatingStatus(w http.ResponseWriter, r *http.Request) {
	if a.Ratings == nil {
		a.fail(w, r, domain.ErrNotFound)
		return
	}
	job, err := a.Ratings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":           job.ID,
		"status":       job.Status,
		"storage_key":  job.StorageKey,
		"quality":      job.Score,
		"created_at":   job.CreatedAt,
		"completed_at": job.CompletedAt,
	})
}

func (a *App) writeResult(w http.ResponseWriter, r *http.Request, result *pipeline.Result) {
	resp := imageResponse{
		RequestID:   result.Diagnostics.RequestID,
		URL:         result.URL,
		StorageKey:  result.StorageKey,
		Format:      result.Format,
		Width:       result.Width,
		Height:      result.Height,
		Diagnostics: result.Diagnostics,
	}
	if r.URL.Query().Get("format") != "zip" {
		if resp.URL == "" {
			resp.ImageBase64 = base64.StdEncoding.EncodeToString(result.Image)
		}
		a.json(w, http.StatusOK, resp)
		return
	}

	diag, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	archive, err := zip.ArchiveAssets([]zip.Asset{
		{Filename: "image" + zip.ExtensionFor(result.Format), MIME: result.Format, Data: result.Image},
		{Filename: "diagnostics.json", MIME: "application/json", Data: diag},
	}, time.Now())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=brand-image-%s.zip", resp.RequestID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
