package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// x11Capturer grabs frames on demand with kbinani/screenshot.
type x11Capturer struct {
	display int
}

func (c x11Capturer) CaptureFull() (*image.RGBA, error) {
	bounds, err := displayBounds(c.display)
	if err != nil {
		return nil, err
	}
	return grab(bounds)
}

func (c x11Capturer) CaptureRegion(r image.Rectangle) (*image.RGBA, error) {
	bounds, err := displayBounds(c.display)
	if err != nil {
		return nil, err
	}
	if err := checkRegion(r, bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}
	return grab(r.Add(bounds.Min))
}

func (x11Capturer) Close() error { return nil }

func grab(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("%w: capturing %v: %w", ErrCapture, r, err)
	}
	if img == nil || len(img.Pix) == 0 {
		return nil, fmt.Errorf("%w: empty frame for %v", ErrCapture, r)
	}
	return img, nil
}
