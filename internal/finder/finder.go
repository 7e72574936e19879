// Package finder tracks the screen's dominant color and reports when it
// changes.
package finder

import (
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"ambisync/internal/colormodel"
	"ambisync/internal/detect"
)

// Sampler captures the screen.
type Sampler interface {
	CaptureFull() (image.Image, error)
	BoundingBox(bounds image.Rectangle) (image.Rectangle, error)
	// Sample captures bbox and downscales it.
	Sample(bbox image.Rectangle) (image.Image, error)
}

// Extractor reduces an image to its dominant color.
type Extractor interface {
	Extract(img image.Image) (colormodel.RGB, error)
}

// Finder is the stateful poll-and-report unit. It is not safe for
// concurrent use; the driver loop is its only owner.
type Finder struct {
	sampler   Sampler
	extractor Extractor
	threshold float64

	bbox      image.Rectangle
	reference image.Image // last image a color was extracted from
	current   image.Image // prefetched sample for the next Poll
	color     colormodel.RGB
}

// Option configures a Finder.
type Option func(*Finder)

// WithThreshold sets the image difference threshold in percent.
func WithThreshold(percent float64) Option {
	return func(f *Finder) {
		f.threshold = percent
	}
}

// New captures a full resolution reference frame, derives the bounding box
// from it and prefetches the first sample. The color starts as white.
func New(s Sampler, e Extractor, opts ...Option) (*Finder, error) {
	f := &Finder{
		sampler:   s,
		extractor: e,
		threshold: detect.DefaultThreshold,
		color:     colormodel.White,
	}
	for _, opt := range opts {
		opt(f)
	}

	ref, err := s.CaptureFull()
	if err != nil {
		return nil, fmt.Errorf("capturing reference frame: %w", err)
	}
	f.reference = ref

	f.bbox, err = s.BoundingBox(ref.Bounds())
	if err != nil {
		return nil, fmt.Errorf("computing bounding box: %w", err)
	}
	log.Debug().Stringer("bbox", f.bbox).Msg("Sampling region")

	if err := f.prefetch(); err != nil {
		return nil, err
	}
	return f, nil
}

// Poll checks the prefetched sample and returns the new dominant color with
// ok set when it differs from the last reported one.
//
// Before returning without error Poll always captures the sample the next
// call will examine, so CurrentImage reflects the frame after this poll.
func (f *Finder) Poll() (c colormodel.RGB, ok bool, err error) {
	if detect.ImagesDiffer(f.reference, f.current, f.threshold) {
		next, err := f.extractor.Extract(f.current)
		if err != nil {
			return colormodel.RGB{}, false, fmt.Errorf("extracting dominant color: %w", err)
		}
		f.reference = f.current

		if detect.ColorsDiffer(next, f.color) {
			f.color = next
			c, ok = next, true
		}
	}

	if err := f.prefetch(); err != nil {
		return colormodel.RGB{}, false, err
	}
	return c, ok, nil
}

// CurrentColor returns the last reported color.
func (f *Finder) CurrentColor() colormodel.RGB {
	return f.color
}

// CurrentImage returns the prefetched sample.
func (f *Finder) CurrentImage() image.Image {
	return f.current
}

// BoundingBox returns the sampled screen region.
func (f *Finder) BoundingBox() image.Rectangle {
	return f.bbox
}

func (f *Finder) prefetch() error {
	img, err := f.sampler.Sample(f.bbox)
	if err != nil {
		return fmt.Errorf("capturing sample: %w", err)
	}
	f.current = img
	return nil
}
