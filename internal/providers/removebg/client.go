// Package removebg is a client for the remove.bg matting API, the paid
// background removal path.
package removebg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"brandstudio/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("removebg: api key is required")

// Options configures the remove.bg client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client uploads images to remove.bg and returns the transparent PNG cutout.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type apiErrorResponse struct {
	Errors []struct {
		Title string `json:"title"`
		Code  string `json:"code"`
	} `json:"errors"`
}

// NewClient constructs a remove.bg client. A nil HTTP client gets a 30s timeout.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.remove.bg/v1.0"
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// RemoveBackground returns the PNG cutout of data.
func (c *Client) RemoveBackground(ctx context.Context, data []byte) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if len(data) == 0 {
		return nil, errors.New("removebg: image is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image_file", "product.png")
	if err != nil {
		return nil, fmt.Errorf("removebg: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("removebg: write form file: %w", err)
	}
	if err := mw.WriteField("size", "auto"); err != nil {
		return nil, fmt.Errorf("removebg: write size: %w", err)
	}
	if err := mw.WriteField("format", "png"); err != nil {
		return nil, fmt.Errorf("removebg: write format: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("removebg: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/removebg", &body)
	if err != nil {
		return nil, fmt.Errorf("removebg: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "image/png")
	req.Header.Set("X-Api-Key", c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removebg: invoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); err == nil && len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("removebg: status %d: %s", resp.StatusCode, apiErr.Errors[0].Title)
		}
		return nil, fmt.Errorf("removebg: status %d", resp.StatusCode)
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("removebg: read response: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("removebg: empty response")
	}
	c.logger.Debug().
		Int("bytes", len(out)).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("removebg: cutout received")
	return out, nil
}
