// Package imagingtest builds in-memory image payloads for tests.
package imagingtest

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// JPEG returns a w x h gradient encoded as JPEG.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h, 255), &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNG returns a w x h gradient encoded as PNG. alpha below 255 yields a translucent image.
func PNG(tb testing.TB, w, h int, alpha uint8) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h, alpha)); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Corrupt returns a payload that is not an image.
func Corrupt() []byte {
	return []byte("definitely not an image, just some text bytes")
}

// Truncated returns a JPEG cut short after its header.
func Truncated(tb testing.TB, w, h int) []byte {
	tb.Helper()
	full := JPEG(tb, w, h)
	return full[:len(full)/3]
}

func gradient(w, h int, alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 128,
				A: alpha,
			})
		}
	}
	return img
}
