package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ffmpegWaitDelay bounds how long Wait keeps draining pipes after the
// process has been killed.
const ffmpegWaitDelay = time.Second

// ffmpegBackend grabs a single X11 frame with `ffmpeg -f x11grab`. Every call
// starts its own process with its own output buffers.
type ffmpegBackend struct {
	display string
	primary func() (image.Rectangle, error)
}

func newFFmpegBackend() (Backend, error) {
	if !hasExecutable("ffmpeg") {
		return nil, fmt.Errorf("ffmpeg not found")
	}

	display := os.Getenv("DISPLAY")
	if display == "" {
		return nil, fmt.Errorf("DISPLAY not set")
	}

	return ffmpegBackend{display: display, primary: primaryDisplayBounds}, nil
}

func (ffmpegBackend) Name() string { return backendFFmpeg }

// CaptureFullScreen grabs the primary display only. Without a size x11grab
// would take the whole root window, spanning every output.
func (b ffmpegBackend) CaptureFullScreen(ctx context.Context) (RawCapture, error) {
	bounds, err := b.primary()
	if err != nil {
		return RawCapture{}, fmt.Errorf("ffmpeg: %w", err)
	}
	rect := rectFrom(bounds)
	return b.grab(ctx, ffmpegArgs(b.display, &rect))
}

func (b ffmpegBackend) CaptureRegion(ctx context.Context, rect ScreenRect) (RawCapture, error) {
	return b.grab(ctx, ffmpegArgs(b.display, &rect))
}

// grab runs ffmpeg to completion. When ctx expires the process is killed and
// reaped before grab returns.
func (ffmpegBackend) grab(ctx context.Context, args []string) (RawCapture, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.WaitDelay = ffmpegWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return RawCapture{}, fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return RawCapture{}, fmt.Errorf("ffmpeg: %w", err)
		}
		return RawCapture{}, fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}

	if stdout.Len() == 0 {
		return RawCapture{}, fmt.Errorf("ffmpeg produced no frame")
	}
	return pngCapture(stdout.Bytes())
}

// ffmpegArgs builds the argv for a one-frame PNG grab. A nil rect grabs the
// whole X screen.
func ffmpegArgs(display string, rect *ScreenRect) []string {
	args := []string{
		"-nostdin",
		"-loglevel", "error",
		"-f", "x11grab",
	}

	input := display
	if rect != nil {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", rect.Width, rect.Height))
		input = fmt.Sprintf("%s+%d,%d", display, rect.Left, rect.Top)
	}

	return append(args,
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "png",
		"pipe:1",
	)
}
