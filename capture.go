package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	backendAuto   = "auto"
	backendNative = "native"
	backendPortal = "portal"
	backendFFmpeg = "ffmpeg"
)

// ScreenRect is a rectangle in screen-space pixels.
type ScreenRect struct {
	Left, Top     int
	Width, Height int
}

// Valid reports whether the rectangle has a positive area.
func (r ScreenRect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Rectangle converts r to an image.Rectangle in screen coordinates.
func (r ScreenRect) Rectangle() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

func (r ScreenRect) String() string {
	return fmt.Sprintf("%dx%d at (%d,%d)", r.Width, r.Height, r.Left, r.Top)
}

// CaptureTarget selects what a capture request rasterizes: the whole primary
// display, or the first window whose title contains a fragment.
type CaptureTarget struct {
	window   bool
	fragment string
}

// FullScreen targets the primary display.
func FullScreen() CaptureTarget { return CaptureTarget{} }

// WindowTarget targets the first window whose title contains fragment. An
// empty fragment still names a window and never widens to the full screen.
func WindowTarget(fragment string) CaptureTarget {
	return CaptureTarget{window: true, fragment: fragment}
}

// IsWindow reports whether the target names a window.
func (t CaptureTarget) IsWindow() bool { return t.window }

// TitleFragment returns the window title fragment, empty for full screen.
func (t CaptureTarget) TitleFragment() string { return t.fragment }

func (t CaptureTarget) String() string {
	if !t.IsWindow() {
		return "full screen"
	}
	return fmt.Sprintf("window %q", t.fragment)
}

// targetFromTitle maps a user-supplied title to a target. Surrounding
// whitespace is dropped and a blank title selects the full screen.
func targetFromTitle(title string) CaptureTarget {
	title = strings.TrimSpace(title)
	if title == "" {
		return FullScreen()
	}
	return WindowTarget(title)
}

// rectFrom converts an image.Rectangle in screen coordinates to a ScreenRect.
func rectFrom(r image.Rectangle) ScreenRect {
	return ScreenRect{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// RawCapture is a PNG straight from a backend.
type RawCapture struct {
	PNG    []byte
	Width  int
	Height int
}

// NormalizedImage is a PNG whose width fits the configured target width.
type NormalizedImage struct {
	PNG    []byte
	Width  int
	Height int
}

// Backend rasterizes the screen and returns PNG-encoded pixels.
// Implementations read the screen only and must be safe for concurrent use.
type Backend interface {
	CaptureFullScreen(ctx context.Context) (RawCapture, error)
	CaptureRegion(ctx context.Context, rect ScreenRect) (RawCapture, error)
	Name() string
}

// NewBackend returns the named backend. "auto" tries native → portal → FFmpeg
// and returns the first that initializes.
func NewBackend(name string) (Backend, error) {
	switch name {
	case backendNative:
		return newNativeBackend()
	case backendPortal:
		return newPortalBackend()
	case backendFFmpeg:
		return newFFmpegBackend()
	case "", backendAuto:
	default:
		return nil, fmt.Errorf("unknown capture backend %q", name)
	}

	var errs *multierror.Error
	for _, newBackend := range []func() (Backend, error){
		newNativeBackend,
		newPortalBackend,
		newFFmpegBackend,
	} {
		b, err := newBackend()
		if err == nil {
			return b, nil
		}
		errs = multierror.Append(errs, err)
	}
	return nil, fmt.Errorf("no usable capture backend: %w", errs.ErrorOrNil())
}

// unavailableBackend stands in when no backend initializes, so every request
// reports why instead of the server refusing to start.
type unavailableBackend struct {
	err error
}

func (unavailableBackend) Name() string { return "unavailable" }

func (b unavailableBackend) CaptureFullScreen(context.Context) (RawCapture, error) {
	return RawCapture{}, b.err
}

func (b unavailableBackend) CaptureRegion(context.Context, ScreenRect) (RawCapture, error) {
	return RawCapture{}, b.err
}

// encodePNG encodes img and records its dimensions.
func encodePNG(img image.Image) (RawCapture, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return RawCapture{}, fmt.Errorf("encoding png: %w", err)
	}
	b := img.Bounds()
	return RawCapture{PNG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// pngCapture wraps PNG bytes produced elsewhere, reading only the header.
func pngCapture(data []byte) (RawCapture, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return RawCapture{}, fmt.Errorf("reading png header: %w", err)
	}
	return RawCapture{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// hasExecutable reports whether the named program is on PATH.
func hasExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
