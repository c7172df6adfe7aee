// Package imageproc holds the pixel stages of the pipeline: background
// removal, product compositing and the branded text bar.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned when a stage receives no bytes.
var ErrEmptyImage = errors.New("imageproc: empty image")

// Decode reads PNG, JPEG or WebP bytes, honouring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imageproc: decode: %w", err)
	}
	return img, nil
}

// DecodeSize returns the dimensions without decoding pixels.
func DecodeSize(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("imageproc: decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("imageproc: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
