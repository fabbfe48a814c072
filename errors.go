package main

import "errors"

// ErrWindowNotFound is returned when no top-level window title contains the
// requested fragment.
var ErrWindowNotFound = errors.New("window not found")

// ErrInvalidGeometry is returned when the matched window reports a rectangle
// with a non-positive width or height.
var ErrInvalidGeometry = errors.New("invalid window geometry")

// ErrCaptureFailed wraps every platform capture failure: API unavailable,
// permission denied or timeout.
var ErrCaptureFailed = errors.New("capture failed")

// ErrNormalizationFailed is returned when a captured image cannot be decoded
// or re-encoded.
var ErrNormalizationFailed = errors.New("normalization failed")

// ErrorKind classifies a failed capture for callers.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindInvalidGeometry
	KindCaptureFailed
	KindNormalizationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInvalidGeometry:
		return "invalid_geometry"
	case KindCaptureFailed:
		return "capture_failed"
	case KindNormalizationFailed:
		return "normalization_failed"
	}
	return "unknown"
}

// KindOf reports the kind of err. Errors that carry none of the sentinels are
// treated as capture failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrWindowNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidGeometry):
		return KindInvalidGeometry
	case errors.Is(err, ErrNormalizationFailed):
		return KindNormalizationFailed
	default:
		return KindCaptureFailed
	}
}
