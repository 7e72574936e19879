// Package detect decides whether a new frame or color warrants downstream work.
package detect

import (
	"image"

	"ambisync/internal/colormodel"
)

// DefaultThreshold is the mean channel difference, in percent, above which
// two frames count as different.
const DefaultThreshold = 5.0

// channels compared per pixel (R, G, B; alpha is ignored).
const channels = 3

// ImagesDiffer reports whether the mean absolute RGB difference between a and
// b exceeds thresholdPercent.
func ImagesDiffer(a, b image.Image, thresholdPercent float64) bool {
	return Difference(a, b) > thresholdPercent
}

// Difference returns the mean absolute per-channel difference between a and
// b as a percentage of full scale. Images of different sizes are compared
// over their top-left intersection; if that is empty the images are treated
// as entirely different.
func Difference(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	w := min(ab.Dx(), bb.Dx())
	h := min(ab.Dy(), bb.Dy())
	if w <= 0 || h <= 0 {
		if ab.Empty() && bb.Empty() {
			return 0
		}
		return 100
	}

	var sums [channels]uint64
	ra, okA := a.(*image.RGBA)
	rb, okB := b.(*image.RGBA)
	if okA && okB {
		for y := 0; y < h; y++ {
			pa := ra.Pix[y*ra.Stride : y*ra.Stride+w*4]
			pb := rb.Pix[y*rb.Stride : y*rb.Stride+w*4]
			for x := 0; x < w*4; x += 4 {
				for c := 0; c < channels; c++ {
					sums[c] += absDiff(pa[x+c], pb[x+c])
				}
			}
		}
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r1, g1, b1, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
				r2, g2, b2, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
				sums[0] += absDiff(uint8(r1>>8), uint8(r2>>8))
				sums[1] += absDiff(uint8(g1>>8), uint8(g2>>8))
				sums[2] += absDiff(uint8(b1>>8), uint8(b2>>8))
			}
		}
	}

	n := float64(w * h)
	var meanSum float64
	for _, s := range sums {
		meanSum += float64(s) / n
	}
	return meanSum / (channels * 255) * 100
}

// ColorsDiffer reports whether a and b differ in any channel.
func ColorsDiffer(a, b colormodel.RGB) bool {
	return a != b
}

func absDiff(a, b uint8) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
