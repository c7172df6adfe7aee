package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateImageInlineData(t *testing.T) {
	var captured map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-image:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{
						map[string]any{"text": "here you go"},
						map[string]any{"inlineData": map[string]any{
							"mimeType": "image/png",
							"data":     base64.StdEncoding.EncodeToString(pngBytes(t, 32, 18)),
						}},
					},
				},
			}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	img, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt: "storefront", NegativePrompt: "text", Width: 1792, Height: 1024,
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.Width != 32 || img.Height != 18 {
		t.Fatalf("dimensions = %dx%d, want 32x18", img.Width, img.Height)
	}
	if img.Format != "image/png" {
		t.Fatalf("format = %q, want image/png", img.Format)
	}
	if gotKey != "k" {
		t.Fatalf("key = %q, want k", gotKey)
	}
	cfg := captured["generationConfig"].(map[string]any)
	if ar := cfg["imageConfig"].(map[string]any)["aspectRatio"]; ar != "16:9" {
		t.Fatalf("aspectRatio = %v, want 16:9", ar)
	}
	text := captured["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	if text != "storefront\nAvoid: text" {
		t.Fatalf("prompt text = %q", text)
	}
}

func TestGenerateImageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded"}}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("err = %v, want status 503", err)
	}
}

func TestGenerateImageWithoutImagePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestGenerateImageWithoutCredentials(t *testing.T) {
	client, _ := NewClient(Options{})
	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "x"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestAspectRatioFor(t *testing.T) {
	cases := map[[2]int]string{
		{1024, 1024}: "1:1",
		{1792, 1024}: "16:9",
		{1024, 1792}: "9:16",
		{1200, 900}:  "4:3",
	}
	for in, want := range cases {
		if got := AspectRatioFor(in[0], in[1]); got != want {
			t.Fatalf("AspectRatioFor(%d, %d) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}
