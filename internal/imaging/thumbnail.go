package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// ThumbnailContentType is the MIME type of every derived thumbnail.
const ThumbnailContentType = "image/jpeg"

// ErrDerive wraps thumbnail decode/encode failures.
var ErrDerive = errors.New("derive thumbnail")

// Deriver renders bounded JPEG thumbnails.
type Deriver struct {
	Width   int
	Height  int
	Quality int
}

// NewDeriver creates a Deriver for the given target box and JPEG quality.
func NewDeriver(width, height, quality int) *Deriver {
	return &Deriver{Width: width, Height: height, Quality: quality}
}

// Derive decodes data and renders its thumbnail.
func (d *Deriver) Derive(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrDerive, err)
	}
	return d.Render(src)
}

// Render flattens any alpha of src onto white, shrinks it to fit the target box without
// upscaling and encodes it as JPEG.
func (d *Deriver) Render(src image.Image) ([]byte, error) {
	b := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Over)

	w, h := BoundedSize(b.Dx(), b.Dy(), d.Width, d.Height)
	var out image.Image = flat
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), flat, flat.Bounds(), draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: d.Quality}); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrDerive, err)
	}
	return buf.Bytes(), nil
}

// BoundedSize returns the largest size with the source aspect ratio that fits inside
// boxW x boxH. Sources already inside the box are returned unchanged.
func BoundedSize(srcW, srcH, boxW, boxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	if srcW <= boxW && srcH <= boxH {
		return srcW, srcH
	}
	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	w := clamp(int(math.Round(float64(srcW)*scale)), 1, boxW)
	h := clamp(int(math.Round(float64(srcH)*scale)), 1, boxH)
	return w, h
}

// Dimensions returns the pixel size of data, or (0, 0) when it cannot be decoded.
func Dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
