// Package capture grabs screen frames and turns them into the small, cropped
// samples the color finder works on.
package capture

import (
	"errors"
	"fmt"
	"image"
	"os/exec"

	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog/log"
)

// Method selects a capture backend.
type Method string

const (
	// MethodAuto picks the first backend that works.
	MethodAuto Method = "auto"
	// MethodPipeWire streams through the desktop portal and GStreamer.
	MethodPipeWire Method = "pipewire"
	// MethodFFmpeg streams from ffmpeg's x11grab.
	MethodFFmpeg Method = "ffmpeg"
	// MethodX11 takes a screenshot per frame.
	MethodX11 Method = "x11"
)

// ErrCapture is wrapped by every error caused by the screen capture backend
// being unavailable or returning no data.
var ErrCapture = errors.New("screen capture failed")

// Capturer captures the screen.
type Capturer interface {
	// CaptureFull returns the whole display at native resolution.
	CaptureFull() (*image.RGBA, error)
	// CaptureRegion returns r, given in display coordinates (0,0 is the
	// display's top-left corner).
	CaptureRegion(r image.Rectangle) (*image.RGBA, error)
	Close() error
}

// Options configures NewCapturer.
type Options struct {
	Method    Method
	Display   int
	FrameRate int // streaming backends only
}

// NewCapturer returns the capturer for opts.Method and a human readable name
// of the backend in use. MethodAuto tries PipeWire → FFmpeg → X11 and returns
// the first that works.
func NewCapturer(opts Options) (Capturer, string, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 10
	}

	switch opts.Method {
	case MethodPipeWire:
		return newPipeWireCapturer(opts)
	case MethodFFmpeg:
		return newFFmpegCapturer(opts)
	case MethodX11:
		if _, err := displayBounds(opts.Display); err != nil {
			return nil, "", err
		}
		return x11Capturer{display: opts.Display}, "X11", nil
	case MethodAuto, "":
	default:
		return nil, "", fmt.Errorf("unknown capture method %q", opts.Method)
	}

	c, method, err := newPipeWireCapturer(opts)
	if err == nil {
		return c, method, nil
	}
	log.Debug().Err(err).Msg("PipeWire capture unavailable")

	c, method, err = newFFmpegCapturer(opts)
	if err == nil {
		return c, method, nil
	}
	log.Debug().Err(err).Msg("FFmpeg capture unavailable")

	if _, err := displayBounds(opts.Display); err != nil {
		return nil, "", err
	}
	return x11Capturer{display: opts.Display}, "X11", nil
}

// hasExecutable reports whether the named program is on PATH.
func hasExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// displayBounds returns the bounds of the given display in virtual screen
// coordinates using kbinani/screenshot.
func displayBounds(display int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays", ErrCapture)
	}
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("%w: display %d not found (%d active)", ErrCapture, display, n)
	}
	return screenshot.GetDisplayBounds(display), nil
}

// checkRegion verifies r is a non-empty part of a w×h display.
func checkRegion(r image.Rectangle, w, h int) error {
	if r.Empty() || !r.In(image.Rect(0, 0, w, h)) {
		return fmt.Errorf("%w: region %v outside display %dx%d", ErrCapture, r, w, h)
	}
	return nil
}

// rgb24ToRGBA copies region r out of a packed RGB24 frame of width w.
func rgb24ToRGBA(frame []byte, w int, r image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := frame[((r.Min.Y+y)*w+r.Min.X)*3:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < r.Dx(); x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img
}
