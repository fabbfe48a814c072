package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
)

// testPNG returns a w×h PNG with a horizontal gradient.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func pngSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.DecodeConfig: %v", err)
	}
	return cfg.Width, cfg.Height
}

// fakeBackend serves a screen of the given size. Region captures return an
// image of the requested rectangle's size.
type fakeBackend struct {
	t             *testing.T
	width, height int
	err           error
	block         bool

	mu      sync.Mutex
	full    int
	regions []ScreenRect
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) CaptureFullScreen(ctx context.Context) (RawCapture, error) {
	b.mu.Lock()
	b.full++
	b.mu.Unlock()
	return b.capture(ctx, b.width, b.height)
}

func (b *fakeBackend) CaptureRegion(ctx context.Context, rect ScreenRect) (RawCapture, error) {
	b.mu.Lock()
	b.regions = append(b.regions, rect)
	b.mu.Unlock()
	return b.capture(ctx, rect.Width, rect.Height)
}

func (b *fakeBackend) capture(ctx context.Context, w, h int) (RawCapture, error) {
	if b.block {
		<-ctx.Done()
		return RawCapture{}, ctx.Err()
	}
	if b.err != nil {
		return RawCapture{}, b.err
	}
	return RawCapture{PNG: testPNG(b.t, w, h), Width: w, Height: h}, nil
}

func (b *fakeBackend) calls() (int, []ScreenRect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.full, append([]ScreenRect(nil), b.regions...)
}

type fakeLister struct {
	windows []Window
	err     error
}

func (l fakeLister) ListWindows(context.Context) ([]Window, error) {
	return l.windows, l.err
}
