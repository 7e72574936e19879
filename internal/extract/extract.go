// Package extract finds the dominant color of an image with k-means
// clustering from prominentcolor.
package extract

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/EdlinOrg/prominentcolor"

	"ambisync/internal/colormodel"
)

const (
	// DefaultQuality samples every pixel.
	DefaultQuality = 1
	// DefaultPaletteSize is the number of clusters.
	DefaultPaletteSize = 10
)

// ErrExtraction is wrapped by every extraction failure.
var ErrExtraction = errors.New("dominant color extraction failed")

// Extractor reduces an image to its dominant color.
type Extractor struct {
	quality     int
	paletteSize int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithQuality sets the pixel sampling stride; 1 uses every pixel, larger
// values are faster and less accurate.
func WithQuality(q int) Option {
	return func(e *Extractor) {
		e.quality = q
	}
}

// WithPaletteSize sets the maximum number of clusters.
func WithPaletteSize(n int) Option {
	return func(e *Extractor) {
		e.paletteSize = n
	}
}

// New returns an Extractor with the default quality and palette size.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		quality:     DefaultQuality,
		paletteSize: DefaultPaletteSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.quality < 1 {
		e.quality = 1
	}
	if e.paletteSize < 1 {
		e.paletteSize = 1
	}
	return e
}

// Extract returns the color of the largest cluster in img.
func (e *Extractor) Extract(img image.Image) (colormodel.RGB, error) {
	palette, err := e.Palette(img)
	if err != nil {
		return colormodel.RGB{}, err
	}
	return palette[0], nil
}

// Palette returns up to paletteSize representative colors of img ordered by
// cluster size, dominant first.
func (e *Extractor) Palette(img image.Image) ([]colormodel.RGB, error) {
	sampled, distinct := e.sample(img)
	if sampled == nil {
		return nil, fmt.Errorf("%w: image %v has no pixels", ErrExtraction, img.Bounds())
	}
	if len(distinct) == 1 {
		for c := range distinct {
			return []colormodel.RGB{c}, nil
		}
	}

	k := min(e.paletteSize, len(distinct))
	size := sampled.Bounds().Dx()
	items, err := prominentcolor.KmeansWithAll(k, sampled, prominentcolor.ArgumentNoCropping,
		uint(size), []prominentcolor.ColorBackgroundMask{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no clusters found", ErrExtraction)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Cnt > items[j].Cnt
	})
	palette := make([]colormodel.RGB, len(items))
	for i, item := range items {
		palette[i] = colormodel.RGB{
			R: uint8(item.Color.R),
			G: uint8(item.Color.G),
			B: uint8(item.Color.B),
		}
	}
	return palette, nil
}

// sample copies every quality-th pixel of img into a single row image and
// counts the distinct colors seen. It returns a nil image when img is empty.
// Palette passes the row width as prominentcolor's resize target so the
// sampled pixels reach the clustering unchanged.
func (e *Extractor) sample(img image.Image) (*image.RGBA, map[colormodel.RGB]int) {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total <= 0 {
		return nil, nil
	}

	n := (total + e.quality - 1) / e.quality
	out := image.NewRGBA(image.Rect(0, 0, n, 1))
	distinct := make(map[colormodel.RGB]int)
	for i, j := 0, 0; i < total; i, j = i+e.quality, j+1 {
		r, g, bl, _ := img.At(b.Min.X+i%b.Dx(), b.Min.Y+i/b.Dx()).RGBA()
		c := colormodel.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		distinct[c]++
		off := j * 4
		out.Pix[off] = c.R
		out.Pix[off+1] = c.G
		out.Pix[off+2] = c.B
		out.Pix[off+3] = 0xff
	}
	return out, distinct
}
