package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"brandstudio/internal/domain"
)

type brandPayload struct {
	BusinessName   string `json:"business_name"`
	Tagline        string `json:"tagline"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
}

type generateRequest struct {
	BusinessID      string        `json:"business_id"`
	Brand           *brandPayload `json:"brand"`
	Topic           string        `json:"topic"`
	Industry        string        `json:"industry"`
	ContentType     string        `json:"content_type"`
	CampaignGoal    string        `json:"campaign_goal"`
	Style           string        `json:"style"`
	Urgency         string        `json:"urgency"`
	Headline        string        `json:"headline"`
	OverlayPosition string        `json:"overlay_position"`
	SkipOverlay     bool          `json:"skip_overlay"`
	ProductImage    string        `json:"product_image"`
	ProductScale    float64       `json:"product_scale"`
	ProductPosition string        `json:"product_position"`
	AddShadow       *bool         `json:"add_shadow"`
	Transparent     bool          `json:"transparent"`
	RateSync        bool          `json:"rate_sync"`

	product []byte
}

type brandImageRequest struct {
	BusinessID string        `json:"business_id"`
	Brand      *brandPayload `json:"brand"`
	Image      string        `json:"image"`
	StorageKey string        `json:"storage_key"`
	Headline   string        `json:"headline"`
	Topic      string        `json:"topic"`
	Position   string        `json:"position"`
	RateSync   bool          `json:"rate_sync"`

	upload []byte
}

type rateRequest struct {
	Image      string `json:"image"`
	StorageKey string `json:"storage_key"`
	BrandColor string `json:"brand_color"`
	Async      bool   `json:"async"`

	upload []byte
}

// decodeBody reads a JSON body, or a multipart form whose "payload" field
// holds the JSON and whose fileField part holds an image.
func (a *App) decodeBody(w http.ResponseWriter, r *http.Request, dst any, fileField string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload())
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidInput, err)
		}
		return nil, nil
	}

	if err := r.ParseMultipartForm(a.maxUpload()); err != nil {
		return nil, fmt.Errorf("%w: malformed multipart form: %v", domain.ErrInvalidInput, err)
	}
	if payload := r.FormValue("payload"); payload != "" {
		if err := json.Unmarshal([]byte(payload), dst); err != nil {
			return nil, fmt.Errorf("%w: malformed payload: %v", domain.ErrInvalidInput, err)
		}
	}
	file, _, err := r.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, fileField, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, fileField, err)
	}
	return data, nil
}

// decodeImage accepts raw base64 or a data URI.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: malformed data uri", domain.ErrInvalidInput)
		}
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidInput)
	}
	return data, nil
}

// resolveBrand loads the stored profile when a business id is given and lets
// inline fields override it.
func (a *App) resolveBrand(ctx context.Context, businessID string, inline *brandPayload) (domain.BrandProfile, error) {
	var brand domain.BrandProfile
	if id := strings.TrimSpace(businessID); id != "" {
		if a.Brands == nil {
			return brand, fmt.Errorf("%w: brand lookup not configured", domain.ErrInvalidInput)
		}
		stored, err := a.Brands.GetBrandProfile(ctx, id)
		if err != nil {
			return brand, err
		}
		brand = *stored
	}
	if inline != nil {
		brand.BusinessName = firstNonEmpty(inline.BusinessName, brand.BusinessName)
		brand.Tagline = firstNonEmpty(inline.Tagline, brand.Tagline)
		brand.PrimaryColor = firstNonEmpty(inline.PrimaryColor, brand.PrimaryColor)
		brand.SecondaryColor = firstNonEmpty(inline.SecondaryColor, brand.SecondaryColor)
		brand.AccentColor = firstNonEmpty(inline.AccentColor, brand.AccentColor)
	}
	if brand.BusinessName == "" && brand.PrimaryColor == "" {
		return brand, fmt.Errorf("%w: business_id or brand is required", domain.ErrInvalidInput)
	}
	return brand, nil
}

// loadImage returns inline bytes first, then base64, then a stored key.
func (a *App) loadImage(ctx context.Context, upload []byte, encoded, storageKey string) ([]byte, error) {
	if len(upload) > 0 {
		return upload, nil
	}
	data, err := decodeImage(encoded)
	if err != nil || len(data) > 0 {
		return data, err
	}
	if key := strings.TrimSpace(storageKey); key != "" {
		if a.Store == nil {
			return nil, fmt.Errorf("%w: storage not configured", domain.ErrInvalidInput)
		}
		return a.Store.Read(ctx, key)
	}
	return nil, fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
