package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

const (
	// DefaultBorder is cut off every edge of the screen before sampling.
	DefaultBorder = 100
	// DefaultMaxDimension bounds the longer side of a sample.
	DefaultMaxDimension = 200
)

// ErrRegionTooSmall is returned when the border leaves no pixels to sample.
var ErrRegionTooSmall = errors.New("border leaves an empty sampling region")

// BoundingBox shrinks bounds by border pixels on each side. The result is in
// the same coordinates as bounds. It fails with ErrRegionTooSmall when either
// dimension is not larger than 2*border.
func BoundingBox(bounds image.Rectangle, border int) (image.Rectangle, error) {
	if border < 0 {
		return image.Rectangle{}, fmt.Errorf("negative border %d", border)
	}
	if bounds.Dx() <= 2*border || bounds.Dy() <= 2*border {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d with border %d",
			ErrRegionTooSmall, bounds.Dx(), bounds.Dy(), border)
	}
	return bounds.Inset(border), nil
}

// Downscale shrinks img so its longer side is at most maxDimension,
// preserving the aspect ratio. Images that already fit are returned as is.
// Bilinear interpolation is enough since only the dominant color matters.
func Downscale(img image.Image, maxDimension int) image.Image {
	if maxDimension <= 0 {
		return img
	}
	m := uint(maxDimension)
	return resize.Thumbnail(m, m, img, resize.Bilinear)
}

// Sampler produces the cropped, downscaled frames the color finder compares.
type Sampler struct {
	capturer     Capturer
	border       int
	maxDimension int
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithBorder sets the border cut off each edge by BoundingBox.
func WithBorder(border int) SamplerOption {
	return func(s *Sampler) {
		s.border = border
	}
}

// WithMaxDimension sets the longest side of a sample.
func WithMaxDimension(n int) SamplerOption {
	return func(s *Sampler) {
		s.maxDimension = n
	}
}

// NewSampler wraps c.
func NewSampler(c Capturer, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		capturer:     c,
		border:       DefaultBorder,
		maxDimension: DefaultMaxDimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureFull captures the whole display at native resolution.
func (s *Sampler) CaptureFull() (image.Image, error) {
	img, err := s.capturer.CaptureFull()
	if err != nil {
		return nil, err
	}
	return img, nil
}

// BoundingBox returns the sampling region for a display of the given bounds.
func (s *Sampler) BoundingBox(bounds image.Rectangle) (image.Rectangle, error) {
	return BoundingBox(bounds, s.border)
}

// CaptureRegion captures only bbox.
func (s *Sampler) CaptureRegion(bbox image.Rectangle) (image.Image, error) {
	img, err := s.capturer.CaptureRegion(bbox)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Sample captures bbox and downscales it.
func (s *Sampler) Sample(bbox image.Rectangle) (image.Image, error) {
	img, err := s.CaptureRegion(bbox)
	if err != nil {
		return nil, err
	}
	return Downscale(img, s.maxDimension), nil
}
