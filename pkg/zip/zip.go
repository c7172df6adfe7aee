// Package zip bundles a result image with its diagnostics for download.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes assets into one zip archive. Images are stored without
// deflate.
func ArchiveAssets(assets []Asset, modified time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]bool, len(assets))
	for _, asset := range assets {
		if asset.Filename == "" || seen[asset.Filename] {
			return nil, fmt.Errorf("zip: duplicate or empty filename %q", asset.Filename)
		}
		seen[asset.Filename] = true
		method := zip.Deflate
		if isImage(asset.MIME) {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: asset.Filename, Method: method, Modified: modified})
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtensionFor maps an image MIME type to a file extension.
func ExtensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func isImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
