package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// DefaultTargetWidth is the widest image handed back to clients.
const DefaultTargetWidth = 1280

// Normalize bounds the width of a captured PNG to targetWidth. Images that
// already fit are returned byte for byte; wider ones are downscaled with
// their aspect ratio kept and re-encoded as PNG. Images are never enlarged.
func Normalize(raw RawCapture, targetWidth int) (NormalizedImage, error) {
	if targetWidth <= 0 {
		targetWidth = DefaultTargetWidth
	}

	// Only the header is read to decide.
	cfg, err := png.DecodeConfig(bytes.NewReader(raw.PNG))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: reading png header: %w", ErrNormalizationFailed, err)
	}
	if cfg.Width <= targetWidth {
		return NormalizedImage{PNG: raw.PNG, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, err := png.Decode(bytes.NewReader(raw.PNG))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: decoding png: %w", ErrNormalizationFailed, err)
	}

	w, h := scaledSize(cfg.Width, cfg.Height, targetWidth)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: encoding png: %w", ErrNormalizationFailed, err)
	}
	return NormalizedImage{PNG: buf.Bytes(), Width: w, Height: h}, nil
}

// scaledSize fits width to target, rounding the proportional height to the
// nearest pixel (at least one). Sizes that already fit are returned as is.
func scaledSize(width, height, target int) (int, int) {
	if width <= target {
		return width, height
	}
	h := int(math.Round(float64(height) * float64(target) / float64(width)))
	if h < 1 {
		h = 1
	}
	return target, h
}
