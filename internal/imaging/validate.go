// Package imaging validates uploaded rasters, derives storage keys and renders thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered decoders. Anything not listed here is rejected as undecodable.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxPixels caps decoded area so a tiny compressed payload cannot expand into gigabytes.
const maxPixels = 100 << 20

var (
	// ErrInvalidImage is the parent of every validation failure.
	ErrInvalidImage  = errors.New("invalid image")
	ErrEmpty         = fmt.Errorf("%w: empty payload", ErrInvalidImage)
	ErrTooLarge      = fmt.Errorf("%w: payload exceeds maximum upload size", ErrInvalidImage)
	ErrUndecodable   = fmt.Errorf("%w: payload is not a decodable image", ErrInvalidImage)
	ErrTooManyPixels = fmt.Errorf("%w: image dimensions exceed pixel limit", ErrInvalidImage)
)

// Decoded is a validated raster. Image holds the fully decoded pixels so callers can
// render from it without decoding again.
type Decoded struct {
	Image  image.Image
	Format string
	Width  int
	Height int
}

// Decode checks that data is a fully decodable raster no larger than maxSize bytes and
// returns it decoded. Format is one of "jpeg", "png", "gif", "webp", "bmp", "tiff".
func Decode(data []byte, maxSize int64) (*Decoded, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUndecodable
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrUndecodable
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, ErrTooManyPixels
	}

	// A header alone is not enough: truncated or corrupted pixel data must fail here too.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUndecodable
	}
	return &Decoded{Image: img, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Validate is Decode without the pixels. It returns the detected format name and has no
// side effects.
func Validate(data []byte, maxSize int64) (string, error) {
	d, err := Decode(data, maxSize)
	if err != nil {
		return "", err
	}
	return d.Format, nil
}

// IsValid is the boolean form of Validate.
func IsValid(data []byte, maxSize int64) bool {
	_, err := Validate(data, maxSize)
	return err == nil
}
