package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// portalRequests makes handle tokens unique across concurrent captures.
var portalRequests atomic.Uint64

// portalBackend asks the XDG Desktop Portal for a non-interactive screenshot.
// It works on Wayland compositors where direct X11 capture is unavailable.
// The portal returns the whole virtual desktop; the primary display and
// regions are cropped out of it.
type portalBackend struct {
	layout func() (displayLayout, error)
}

func newPortalBackend() (Backend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("portal: connecting to session bus: %w", err)
	}
	defer conn.Close()

	portal := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	if _, err := portal.GetProperty(screenshotIface + ".version"); err != nil {
		return nil, fmt.Errorf("portal: screenshot interface unavailable: %w", err)
	}
	return portalBackend{layout: currentLayout}, nil
}

func (portalBackend) Name() string { return backendPortal }

func (b portalBackend) CaptureFullScreen(ctx context.Context) (RawCapture, error) {
	data, err := b.screenshot(ctx)
	if err != nil {
		return RawCapture{}, err
	}
	layout, err := b.layout()
	if err != nil {
		// No display geometry to go by: the desktop is taken as one display.
		return pngCapture(data)
	}
	return cropToPrimary(data, layout)
}

func (b portalBackend) CaptureRegion(ctx context.Context, rect ScreenRect) (RawCapture, error) {
	data, err := b.screenshot(ctx)
	if err != nil {
		return RawCapture{}, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return RawCapture{}, fmt.Errorf("portal: decoding screenshot: %w", err)
	}

	var origin image.Point
	if layout, err := b.layout(); err == nil {
		origin = layout.desktop.Min
	}
	return cropRegion(img, rect, origin)
}

// cropToPrimary cuts the primary display out of a desktop screenshot. A
// single-display desktop comes back unchanged.
func cropToPrimary(data []byte, layout displayLayout) (RawCapture, error) {
	if layout.primary == layout.desktop {
		return pngCapture(data)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return RawCapture{}, fmt.Errorf("portal: decoding screenshot: %w", err)
	}
	return cropRegion(img, rectFrom(layout.primary), layout.desktop.Min)
}

// screenshot performs one Screenshot request and returns the PNG the portal
// wrote. The portal's file is removed once read.
func (portalBackend) screenshot(ctx context.Context) ([]byte, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("portal: connecting to session bus: %w", err)
	}
	defer conn.Close()

	portal := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	sender := senderToToken(conn.Names()[0])
	token := fmt.Sprintf("screencap_%d_%d", os.Getpid(), portalRequests.Add(1))
	reqPath := dbus.ObjectPath(fmt.Sprintf("/org/freedesktop/portal/desktop/request/%s/%s", sender, token))

	sigCh, err := subscribeSignal(conn, reqPath)
	if err != nil {
		return nil, err
	}
	defer conn.RemoveSignal(sigCh)

	call := portal.CallWithContext(ctx, screenshotIface+".Screenshot", 0, "", map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"interactive":  dbus.MakeVariant(false),
	})
	if call.Err != nil {
		return nil, fmt.Errorf("portal: Screenshot: %w", call.Err)
	}

	resp, err := waitForResponse(ctx, sigCh)
	if err != nil {
		return nil, fmt.Errorf("portal: Screenshot response: %w", err)
	}

	path, err := extractFilePath(resp)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("portal: reading screenshot: %w", err)
	}
	return data, nil
}

// cropRegion cuts rect, in global screen coordinates, out of a desktop image
// whose top-left pixel sits at origin.
func cropRegion(img image.Image, rect ScreenRect, origin image.Point) (RawCapture, error) {
	r := rect.Rectangle().Sub(origin).Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return RawCapture{}, fmt.Errorf("region %v lies outside the screen %v", rect, img.Bounds())
	}

	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return RawCapture{}, fmt.Errorf("image type %T cannot be cropped", img)
	}
	return encodePNG(sub.SubImage(r))
}

// subscribeSignal registers a D-Bus match for the portal Response signal at
// the given path and returns a channel that receives matching signals.
func subscribeSignal(conn *dbus.Conn, path dbus.ObjectPath) (chan *dbus.Signal, error) {
	err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	)
	if err != nil {
		return nil, fmt.Errorf("portal: subscribing to response: %w", err)
	}
	ch := make(chan *dbus.Signal, 1)
	conn.Signal(ch)
	return ch, nil
}

// waitForResponse blocks until the request's Response signal arrives. Any
// response code other than 0 means the portal refused the screenshot.
func waitForResponse(ctx context.Context, ch chan *dbus.Signal) (map[string]dbus.Variant, error) {
	for {
		select {
		case sig := <-ch:
			if sig == nil {
				return nil, fmt.Errorf("portal: signal channel closed")
			}
			if len(sig.Body) < 2 {
				continue
			}
			code, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			if code != 0 {
				return nil, fmt.Errorf("portal refused screenshot (response %d)", code)
			}
			results, ok := sig.Body[1].(map[string]dbus.Variant)
			if !ok {
				return nil, fmt.Errorf("portal: results have type %T", sig.Body[1])
			}
			return results, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// senderToToken turns a unique bus name (":1.42") into the form used in
// request object paths ("1_42").
func senderToToken(sender string) string {
	s := strings.TrimPrefix(sender, ":")
	return strings.ReplaceAll(s, ".", "_")
}

// extractFilePath pulls the local path out of the "uri" result.
func extractFilePath(resp map[string]dbus.Variant) (string, error) {
	v, ok := resp["uri"]
	if !ok {
		return "", fmt.Errorf("portal: no uri in Screenshot response")
	}
	raw, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("portal: unexpected uri type: %T", v.Value())
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("portal: parsing uri %q: %w", raw, err)
	}
	if u.Scheme != "file" || u.Path == "" {
		return "", fmt.Errorf("portal: unsupported uri %q", raw)
	}
	return u.Path, nil
}
