package rag

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/predicato/pkg/errs"
)

// maxInlineImageBytes caps decoded inline image payloads, matching the
// reference's upload size guard for query-attached images.
const maxInlineImageBytes = 10 * 1024 * 1024

// imageExtensionsByMIME maps a data-URL MIME type to the file extension
// used when persisting the decoded bytes.
var imageExtensionsByMIME = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tif",
}

// SaveQueryImage decodes an inline base64 image (optionally prefixed with a
// data: URL header) and persists it under uploadDir/query_images, returning
// the path written. This mirrors the reference's
// _save_query_image_base64_to_uploads: same size cap, same filename shape
// (query_<unix>_<16 hex chars of sha256>.<ext>), same default extension
// when the MIME type can't be determined.
func SaveQueryImage(uploadDir, rawBase64 string, now time.Time) (string, error) {
	mime, payload := splitDataURL(rawBase64)

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errs.NewInvalidError("query image is not valid base64: %v", err)
	}
	if len(decoded) > maxInlineImageBytes {
		return "", errs.NewInvalidError("query image exceeds %d byte limit", maxInlineImageBytes)
	}

	ext := imageExtensionsByMIME[strings.ToLower(mime)]
	if ext == "" {
		ext = "png"
	}

	sum := sha256.Sum256(decoded)
	filename := fmt.Sprintf("query_%d_%s.%s", now.Unix(), hex.EncodeToString(sum[:])[:16], ext)

	destDir := filepath.Join(uploadDir, "query_images")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", errs.NewInternalError("create query_images directory", err)
	}

	destPath := filepath.Join(destDir, filename)
	if err := os.WriteFile(destPath, decoded, 0o644); err != nil {
		return "", errs.NewInternalError("write query image "+destPath, err)
	}
	return destPath, nil
}

// splitDataURL strips a "data:<mime>;base64," prefix if present, returning
// the MIME type (empty if none was given) and the remaining payload.
func splitDataURL(raw string) (mime string, payload string) {
	if !strings.HasPrefix(raw, "data:") {
		return "", raw
	}
	comma := strings.IndexByte(raw, ',')
	if comma < 0 {
		return "", raw
	}
	header := raw[len("data:"):comma]
	payload = raw[comma+1:]

	semi := strings.IndexByte(header, ';')
	if semi < 0 {
		return header, payload
	}
	return header[:semi], payload
}
