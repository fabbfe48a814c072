//go:build !windows

package main

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// installFFmpeg puts a shell script named ffmpeg first on PATH.
func installFFmpeg(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

func TestFFmpegGrab_KilledOnDeadline(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "pid")
	installFFmpeg(t, "echo $$ > '"+pidFile+"'\nexec sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	b := ffmpegBackend{display: ":0"}
	start := time.Now()
	_, err := b.CaptureRegion(ctx, ScreenRect{Width: 10, Height: 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("grab returned after %s", elapsed)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("fake ffmpeg never started: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Errorf("ffmpeg process %d still present: %v", pid, err)
	}
}

func TestFFmpegFullScreen_PrimaryDisplayOnly(t *testing.T) {
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(frame, testPNG(t, 64, 36), 0644); err != nil {
		t.Fatal(err)
	}
	argsFile := filepath.Join(dir, "args")
	installFFmpeg(t, "printf '%s\\n' \"$@\" > '"+argsFile+"'\ncat '"+frame+"'")

	b := ffmpegBackend{
		display: ":0",
		primary: func() (image.Rectangle, error) { return image.Rect(0, 0, 1920, 1080), nil },
	}
	raw, err := b.CaptureFullScreen(context.Background())
	if err != nil {
		t.Fatalf("CaptureFullScreen: %v", err)
	}
	if raw.Width != 64 || raw.Height != 36 {
		t.Errorf("got %dx%d, want the 64x36 frame", raw.Width, raw.Height)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(data)
	if !strings.Contains(args, "-video_size\n1920x1080\n") || !strings.Contains(args, "-i\n:0+0,0\n") {
		t.Errorf("full-screen grab not limited to the primary display:\n%s", args)
	}
}

func TestFFmpegGrab_ReportsStderr(t *testing.T) {
	installFFmpeg(t, "echo 'Cannot open display :0' >&2\nexit 1")

	b := ffmpegBackend{display: ":0"}
	_, err := b.CaptureRegion(context.Background(), ScreenRect{Width: 10, Height: 10})
	if err == nil || !strings.Contains(err.Error(), "Cannot open display") {
		t.Fatalf("expected ffmpeg's message, got %v", err)
	}
}

func TestFFmpegGrab_NoFrame(t *testing.T) {
	installFFmpeg(t, "exit 0")

	b := ffmpegBackend{display: ":0"}
	if _, err := b.CaptureRegion(context.Background(), ScreenRect{Width: 10, Height: 10}); err == nil {
		t.Fatal("expected an error for empty output")
	}
}
