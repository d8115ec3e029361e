package imaging

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Key prefixes for the two artifacts of every image.
const (
	OriginalPrefix  = "images"
	ThumbnailPrefix = "thumbnails"

	fallbackExtension = "jpg"
)

var formatExtensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
	"bmp":  "bmp",
	"tiff": "tiff",
}

var formatContentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// GenerateKey returns "{prefix}/{uuid}.{ext}". The token is a random v4 UUID.
func GenerateKey(prefix, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = fallbackExtension
	}
	return fmt.Sprintf("%s/%s.%s", strings.TrimRight(prefix, "/"), uuid.NewString(), ext)
}

// ExtensionForFormat maps a decoder format name to a file extension.
// The extension always follows the decoded bytes, never the caller-supplied filename.
func ExtensionForFormat(format string) string {
	if ext, ok := formatExtensions[strings.ToLower(format)]; ok {
		return ext
	}
	return fallbackExtension
}

// ContentTypeForFormat maps a decoder format name to its MIME type.
func ContentTypeForFormat(format string) string {
	if ct, ok := formatContentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return "application/octet-stream"
}
