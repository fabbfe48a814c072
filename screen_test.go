package main

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func TestNativeCapture_ReturnsOnDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	b := nativeBackend{captureRect: func(r image.Rectangle) (*image.RGBA, error) {
		<-release
		return image.NewRGBA(r), nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := b.CaptureRegion(ctx, ScreenRect{Width: 10, Height: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("capture returned after %s", elapsed)
	}
}

func TestNativeCapture_Region(t *testing.T) {
	var asked image.Rectangle
	b := nativeBackend{captureRect: func(r image.Rectangle) (*image.RGBA, error) {
		asked = r
		return image.NewRGBA(r), nil
	}}

	raw, err := b.CaptureRegion(context.Background(), ScreenRect{Left: -1920, Top: 40, Width: 300, Height: 200})
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	if asked != image.Rect(-1920, 40, -1620, 240) {
		t.Errorf("asked for %v", asked)
	}
	if w, h := pngSize(t, raw.PNG); w != 300 || h != 200 {
		t.Errorf("got %dx%d", w, h)
	}
}

func TestNativeCapture_Error(t *testing.T) {
	b := nativeBackend{captureRect: func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("permission denied")
	}}
	if _, err := b.CaptureRegion(context.Background(), ScreenRect{Width: 1, Height: 1}); err == nil {
		t.Fatal("expected an error")
	}
}
