//go:build !linux

package main

import (
	"fmt"
	"runtime"
)

func newPortalBackend() (Backend, error) {
	return nil, fmt.Errorf("portal: not available on %s", runtime.GOOS)
}
