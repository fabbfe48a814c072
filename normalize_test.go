package main

import (
	"bytes"
	"errors"
	"testing"
)

func TestNormalize_PassthroughIsByteIdentical(t *testing.T) {
	for _, width := range []int{1, 800, 1280} {
		data := testPNG(t, width, 10)
		got, err := Normalize(RawCapture{PNG: data}, 1280)
		if err != nil {
			t.Fatalf("width %d: Normalize: %v", width, err)
		}
		if !bytes.Equal(got.PNG, data) {
			t.Errorf("width %d: expected original bytes back", width)
		}
		if got.Width != width || got.Height != 10 {
			t.Errorf("width %d: got %dx%d", width, got.Width, got.Height)
		}
	}
}

func TestNormalize_Downscale4K(t *testing.T) {
	got, err := Normalize(RawCapture{PNG: testPNG(t, 3840, 2160)}, 1280)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	w, h := pngSize(t, got.PNG)
	if w != 1280 || h != 720 {
		t.Fatalf("expected 1280x720, got %dx%d", w, h)
	}
	if got.Width != w || got.Height != h {
		t.Errorf("metadata %dx%d does not match encoded %dx%d", got.Width, got.Height, w, h)
	}
}

func TestNormalize_PreservesAspectRatio(t *testing.T) {
	cases := []struct {
		w, h, target int
	}{
		{1920, 1080, 1280},
		{1441, 999, 1280},
		{2000, 3, 1280},
		{5000, 1, 1280},
		{1300, 1300, 100},
	}
	for _, c := range cases {
		got, err := Normalize(RawCapture{PNG: testPNG(t, c.w, c.h)}, c.target)
		if err != nil {
			t.Fatalf("%dx%d: Normalize: %v", c.w, c.h, err)
		}
		w, h := pngSize(t, got.PNG)
		if w != c.target {
			t.Errorf("%dx%d: width = %d, want %d", c.w, c.h, w, c.target)
		}
		exact := float64(c.h) * float64(c.target) / float64(c.w)
		if diff := float64(h) - exact; h < 1 || diff > 1 || diff < -1 {
			t.Errorf("%dx%d: height = %d, want within one pixel of %.2f", c.w, c.h, h, exact)
		}
	}
}

func TestNormalize_DefaultTargetWidth(t *testing.T) {
	got, err := Normalize(RawCapture{PNG: testPNG(t, 2560, 1440)}, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width != DefaultTargetWidth || got.Height != 720 {
		t.Errorf("expected %dx720, got %dx%d", DefaultTargetWidth, got.Width, got.Height)
	}
}

func TestNormalize_InvalidData(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not a png"),
	} {
		_, err := Normalize(RawCapture{PNG: data}, 1280)
		if !errors.Is(err, ErrNormalizationFailed) {
			t.Errorf("%s: expected ErrNormalizationFailed, got %v", name, err)
		}
		if KindOf(err) != KindNormalizationFailed {
			t.Errorf("%s: KindOf = %v", name, KindOf(err))
		}
	}
}

func TestNormalize_TruncatedBody(t *testing.T) {
	data := testPNG(t, 2000, 100)
	// Header intact, pixel data cut short: the probe passes, the decode fails.
	_, err := Normalize(RawCapture{PNG: data[:len(data)/2]}, 1280)
	if !errors.Is(err, ErrNormalizationFailed) {
		t.Fatalf("expected ErrNormalizationFailed, got %v", err)
	}
}

func TestScaledSize_NeverEnlarges(t *testing.T) {
	w, h := scaledSize(640, 480, 1280)
	if w != 640 || h != 480 {
		t.Errorf("expected 640x480 unchanged, got %dx%d", w, h)
	}
}
