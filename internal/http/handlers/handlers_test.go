package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
	"brandstudio/internal/pipeline"
	"brandstudio/internal/rating"
)

type fakePipeline struct {
	result   *pipeline.Result
	err      error
	req      domain.GenerationRequest
	brand    domain.BrandProfile
	opts     pipeline.Options
	brandOpt pipeline.BrandOptions
	data     []byte
}

func (f *fakePipeline) GenerateBrandedImage(ctx context.Context, req domain.GenerationRequest, brand domain.BrandProfile, opts pipeline.Options) (*pipeline.Result, error) {
	f.req, f.brand, f.opts = req, brand, opts
	return f.result, f.err
}

func (f *fakePipeline) BrandExisting(ctx context.Context, data []byte, brand domain.BrandProfile, opts pipeline.BrandOptions) (*pipeline.Result, error) {
	f.data, f.brand, f.brandOpt = data, brand, opts
	return f.result, f.err
}

type fakeBrands struct {
	profile *domain.BrandProfile
}

func (f fakeBrands) GetBrandProfile(ctx context.Context, id string) (*domain.BrandProfile, error) {
	if f.profile == nil || f.profile.BusinessID != id {
		return nil, domain.ErrNotFound
	}
	p := *f.profile
	return &p, nil
}

type fakeRatings struct {
	jobs map[string]*domain.RatingJob
}

func (f *fakeRatings) Enqueue(ctx context.Context, job *domain.RatingJob) error {
	if f.jobs == nil {
		f.jobs = map[string]*domain.RatingJob{}
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeRatings) Claim(ctx context.Context) (*domain.RatingJob, error) { return nil, nil }

func (f *fakeRatings) SaveRating(ctx context.Context, id string, score domain.QualityScore) error {
	return nil
}

func (f *fakeRatings) MarkFailed(ctx context.Context, id, reason string) error { return nil }

func (f *fakeRatings) GetByID(ctx context.Context, id string) (*domain.RatingJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

type memStore map[string][]byte

func (m memStore) Store(ctx context.Context, data []byte, key string) (string, error) {
	m[key] = data
	return "/static/" + key, nil
}

func (m memStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func okResult() *pipeline.Result {
	return &pipeline.Result{
		Image:      []byte("png"),
		Format:     "image/png",
		Width:      1792,
		Height:     1024,
		URL:        "/static/generated/biz/req.png",
		StorageKey: "generated/biz/req.png",
		Diagnostics: pipeline.Diagnostics{
			RequestID: "req",
			Model:     domain.BackendQwen,
			Warnings:  []domain.Warning{},
		},
	}
}

func post(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestImagesGenerateInlineBrand(t *testing.T) {
	fp := &fakePipeline{result: okResult()}
	app := &App{Pipeline: fp, Logger: zerolog.Nop()}

	rec := post(t, app.ImagesGenerate, "/v1/images/generate", map[string]any{
		"topic":        "Spring Garden Preparation Tips",
		"industry":     "Landscaping",
		"content_type": "gmb-post",
		"urgency":      "high",
		"brand":        map[string]string{"business_name": "Green Thumb Co", "primary_color": "#2D6A4F"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp imageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.URL == "" || resp.ImageBase64 != "" {
		t.Fatalf("expected url without inline image, got %+v", resp)
	}
	if fp.brand.PrimaryColor != "#2D6A4F" || fp.req.Urgency != "high" || fp.req.ContentType != "gmb-post" {
		t.Fatalf("pipeline got req=%+v brand=%+v", fp.req, fp.brand)
	}
	if fp.opts.Composition != nil {
		t.Fatalf("composition options set without a product")
	}
}

func TestImagesGenerateLoadsStoredBrand(t *testing.T) {
	fp := &fakePipeline{result: okResult()}
	app := &App{
		Pipeline: fp,
		Brands:   fakeBrands{profile: &domain.BrandProfile{BusinessID: "b1", BusinessName: "Stored", PrimaryColor: "#1D3557"}},
		Logger:   zerolog.Nop(),
	}
	rec := post(t, app.ImagesGenerate, "/", map[string]any{
		"topic":       "AC broke",
		"business_id": "b1",
		"brand":       map[string]string{"primary_color": "#E63946"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if fp.brand.BusinessName != "Stored" || fp.brand.PrimaryColor != "#E63946" {
		t.Fatalf("brand = %+v", fp.brand)
	}

	rec = post(t, app.ImagesGenerate, "/", map[string]any{"topic": "x", "business_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestImagesGenerateRequiresBrand(t *testing.T) {
	app := &App{Pipeline: &fakePipeline{result: okResult()}, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesGenerate, "/", map[string]any{"topic": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Code != "invalid_input" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestImagesGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrModelUnavailable, http.StatusServiceUnavailable, "model_unavailable"},
		{errors.Join(domain.ErrGenerationFailed, errors.New("qwen: status 500: upstream secret")), http.StatusBadGateway, "generation_failed"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		app := &App{Pipeline: &fakePipeline{err: tc.err}, Logger: zerolog.Nop()}
		rec := post(t, app.ImagesGenerate, "/", map[string]any{"topic": "x", "brand": map[string]string{"business_name": "A"}})
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		body := decodeError(t, rec)
		if body.Error.Code != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, body.Error.Code, tc.code)
		}
		if strings.Contains(rec.Body.String(), "upstream secret") {
			t.Fatalf("provider detail leaked: %s", rec.Body.String())
		}
	}
}

func TestImagesGenerateMultipartProduct(t *testing.T) {
	fp := &fakePipeline{result: okResult()}
	app := &App{Pipeline: fp, Logger: zerolog.Nop()}
	product := solidPNG(t, color.NRGBA{R: 200, A: 255})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("payload", `{"topic":"New espresso blend","brand":{"business_name":"Bean"},"product_position":"rule-of-thirds","product_scale":0.5}`)
	part, err := mw.CreateFormFile("product", "cup.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write(product)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	app.ImagesGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(fp.opts.ProductImage, product) {
		t.Fatalf("product bytes not forwarded")
	}
	if fp.opts.Composition == nil || fp.opts.Composition.ProductScale != 0.5 || fp.opts.Composition.Position != "rule-of-thirds" {
		t.Fatalf("composition = %+v", fp.opts.Composition)
	}
	if !fp.opts.Composition.AddShadow {
		t.Fatalf("shadow should default on")
	}
}

func TestImagesGenerateZip(t *testing.T) {
	app := &App{Pipeline: &fakePipeline{result: okResult()}, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesGenerate, "/v1/images/generate?format=zip", map[string]any{"topic": "x", "brand": map[string]string{"business_name": "A"}})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := []string{zr.File[0].Name, zr.File[1].Name}
	if names[0] != "image.png" || names[1] != "diagnostics.json" {
		t.Fatalf("entries = %v", names)
	}
}

func TestImagesGenerateInlineImageWithoutStore(t *testing.T) {
	result := okResult()
	result.URL, result.StorageKey = "", ""
	app := &App{Pipeline: &fakePipeline{result: result}, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesGenerate, "/", map[string]any{"topic": "x", "brand": map[string]string{"business_name": "A"}})
	var resp imageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ImageBase64 != base64.StdEncoding.EncodeToString([]byte("png")) {
		t.Fatalf("image_base64 = %q", resp.ImageBase64)
	}
}

func TestImagesBrandFromStorageKey(t *testing.T) {
	store := memStore{"uploads/a.png": []byte("stored-bytes")}
	fp := &fakePipeline{result: okResult()}
	app := &App{Pipeline: fp, Store: store, Logger: zerolog.Nop()}

	rec := post(t, app.ImagesBrand, "/", map[string]any{
		"storage_key": "uploads/a.png",
		"brand":       map[string]string{"business_name": "Green Thumb Co", "primary_color": "#2D6A4F"},
		"position":    "top",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if string(fp.data) != "stored-bytes" || fp.brandOpt.Position != "top" {
		t.Fatalf("data = %q opts = %+v", fp.data, fp.brandOpt)
	}

	rec = post(t, app.ImagesBrand, "/", map[string]any{"storage_key": "uploads/missing.png", "brand": map[string]string{"business_name": "A"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestImagesBrandOverlayFailure(t *testing.T) {
	app := &App{Pipeline: &fakePipeline{err: domain.ErrOverlayFailed}, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesBrand, "/", map[string]any{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
		"brand": map[string]string{"business_name": "A", "primary_color": "#000000"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestImagesRateInline(t *testing.T) {
	app := &App{Rater: rating.NewRater(), Logger: zerolog.Nop()}
	img := solidPNG(t, color.NRGBA{R: 0x1D, G: 0x35, B: 0x57, A: 255})
	rec := post(t, app.ImagesRate, "/", map[string]any{
		"image":       base64.StdEncoding.EncodeToString(img),
		"brand_color": "#1D3557",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Quality domain.QualityScore `json:"quality"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Quality.BrandColorMatch != 100 || resp.Quality.BrandPersonalityFit != rating.PersonalityBaseline {
		t.Fatalf("quality = %+v", resp.Quality)
	}

	rec = post(t, app.ImagesRate, "/", map[string]any{"image": base64.StdEncoding.EncodeToString([]byte("nope"))})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("garbage status = %d, want 422", rec.Code)
	}
}

func TestImagesRateAsyncAndStatus(t *testing.T) {
	ratings := &fakeRatings{}
	app := &App{Ratings: ratings, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesRate, "/", map[string]any{"storage_key": "generated/b/r.png", "brand_color": "#1D3557", "async": true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var queued struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &queued)
	if queued.JobID == "" || queued.Status != "queued" {
		t.Fatalf("queued = %+v", queued)
	}

	r := chi.NewRouter()
	r.Get("/v1/ratings/{id}", app.RatingStatus)
	get := httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/v1/ratings/"+queued.JobID, nil))
	if get.Code != http.StatusOK || !strings.Contains(get.Body.String(), `"status":"queued"`) {
		t.Fatalf("status = %d, body = %s", get.Code, get.Body.String())
	}

	get = httptest.NewRecorder()
	r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/v1/ratings/unknown", nil))
	if get.Code != http.StatusNotFound {
		t.Fatalf("unknown status = %d, want 404", get.Code)
	}
}

func TestImagesRateAsyncNeedsStorageKey(t *testing.T) {
	app := &App{Ratings: &fakeRatings{}, Logger: zerolog.Nop()}
	rec := post(t, app.ImagesRate, "/", map[string]any{"image": "AAAA", "async": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	app := &App{Logger: zerolog.Nop(), Checks: map[string]HealthCheck{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	}}
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) || strings.Contains(rec.Body.String(), "refused") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	app.Checks = nil
	rec = httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestDecodeImage(t *testing.T) {
	want := []byte("hello")
	for _, in := range []string{
		base64.StdEncoding.EncodeToString(want),
		"data:image/png;base64," + base64.StdEncoding.EncodeToString(want),
	} {
		got, err := decodeImage(in)
		if err != nil || !bytes.Equal(got, want) {
			t.Fatalf("decodeImage(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := decodeImage("%%%"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if got, err := decodeImage(""); got != nil || err != nil {
		t.Fatalf("empty = %v, %v", got, err)
	}
}
