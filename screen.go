package main

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// nativeBackend captures through the platform graphics API exposed by
// kbinani/screenshot (GDI, CoreGraphics, X11 shared memory).
type nativeBackend struct {
	captureRect func(image.Rectangle) (*image.RGBA, error)
}

func newNativeBackend() (Backend, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("native: no active displays")
	}
	return nativeBackend{captureRect: screenshot.CaptureRect}, nil
}

func (nativeBackend) Name() string { return backendNative }

// CaptureFullScreen captures display 0, reading its bounds on every call so
// resolution changes are picked up.
func (b nativeBackend) CaptureFullScreen(ctx context.Context) (RawCapture, error) {
	bounds, err := primaryDisplayBounds()
	if err != nil {
		return RawCapture{}, err
	}
	return b.capture(ctx, bounds)
}

func (b nativeBackend) CaptureRegion(ctx context.Context, rect ScreenRect) (RawCapture, error) {
	return b.capture(ctx, rect.Rectangle())
}

type captureResult struct {
	raw RawCapture
	err error
}

// capture runs the blocking platform call aside so the context deadline
// still bounds the caller.
func (b nativeBackend) capture(ctx context.Context, r image.Rectangle) (RawCapture, error) {
	done := make(chan captureResult, 1)
	go func() {
		img, err := b.captureRect(r)
		if err != nil {
			done <- captureResult{err: fmt.Errorf("capturing %v: %w", r, err)}
			return
		}
		raw, err := encodePNG(img)
		done <- captureResult{raw: raw, err: err}
	}()

	select {
	case res := <-done:
		return res.raw, res.err
	case <-ctx.Done():
		return RawCapture{}, ctx.Err()
	}
}

// primaryDisplayBounds returns the bounds of display 0.
func primaryDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	b := screenshot.GetDisplayBounds(0)
	if b.Empty() {
		return image.Rectangle{}, fmt.Errorf("primary display reports empty bounds %v", b)
	}
	return b, nil
}

// displayLayout places the primary display inside the virtual desktop, the
// union of all active displays. Both are in global screen coordinates.
type displayLayout struct {
	primary image.Rectangle
	desktop image.Rectangle
}

// currentLayout reads the display arrangement at call time.
func currentLayout() (displayLayout, error) {
	primary, err := primaryDisplayBounds()
	if err != nil {
		return displayLayout{}, err
	}
	desktop := primary
	for i := 1; i < screenshot.NumActiveDisplays(); i++ {
		desktop = desktop.Union(screenshot.GetDisplayBounds(i))
	}
	return displayLayout{primary: primary, desktop: desktop}, nil
}
