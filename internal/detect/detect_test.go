package detect_test

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"

	"ambisync/internal/colormodel"
	"ambisync/internal/detect"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestImagesDiffer_Identity(t *testing.T) {
	img := solid(40, 30, color.RGBA{R: 10, G: 200, B: 90, A: 255})
	img.Set(3, 4, color.RGBA{R: 255, A: 255})

	assert.False(t, detect.ImagesDiffer(img, img, detect.DefaultThreshold))
	assert.Equal(t, 0.0, detect.Difference(img, img))
}

func TestDifference_BlackWhite(t *testing.T) {
	black := solid(10, 10, color.Black)
	white := solid(10, 10, color.White)

	assert.InDelta(t, 100.0, detect.Difference(black, white), 1e-9)
	assert.True(t, detect.ImagesDiffer(black, white, detect.DefaultThreshold))
}

func TestImagesDiffer_Threshold(t *testing.T) {
	tests := []struct {
		name     string
		delta    uint8
		expected bool
	}{
		// 12/255 ≈ 4.7%
		{name: "below threshold", delta: 12, expected: false},
		// 13/255 ≈ 5.1%
		{name: "above threshold", delta: 13, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := solid(8, 8, color.RGBA{R: 100, G: 100, B: 100, A: 255})
			b := solid(8, 8, color.RGBA{R: 100 + tt.delta, G: 100 + tt.delta, B: 100 + tt.delta, A: 255})
			assert.Equal(t, tt.expected, detect.ImagesDiffer(a, b, detect.DefaultThreshold))
		})
	}
}

func TestDifference_SingleChannel(t *testing.T) {
	// Only red differs by 255: mean over three channels is a third.
	a := solid(4, 4, color.RGBA{A: 255})
	b := solid(4, 4, color.RGBA{R: 255, A: 255})
	assert.InDelta(t, 100.0/3, detect.Difference(a, b), 1e-9)
}

func TestDifference_GenericImages(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(a, a.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	b := solid(4, 4, color.White)
	assert.InDelta(t, 100.0, detect.Difference(a, b), 1e-9)
}

func TestDifference_SizeMismatchUsesIntersection(t *testing.T) {
	big := solid(100, 100, color.White)
	draw.Draw(big, image.Rect(0, 0, 10, 10), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	small := solid(10, 10, color.Black)

	assert.Equal(t, 0.0, detect.Difference(big, small))
	assert.False(t, detect.ImagesDiffer(big, small, detect.DefaultThreshold))
}

func TestDifference_SubImage(t *testing.T) {
	big := solid(20, 20, color.White)
	draw.Draw(big, image.Rect(10, 10, 20, 20), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	sub := big.SubImage(image.Rect(10, 10, 20, 20))

	assert.Equal(t, 0.0, detect.Difference(sub, solid(10, 10, color.Black)))
}

func TestDifference_Empty(t *testing.T) {
	empty := image.NewRGBA(image.Rectangle{})
	assert.Equal(t, 0.0, detect.Difference(empty, empty))
	assert.True(t, detect.ImagesDiffer(empty, solid(2, 2, color.Black), detect.DefaultThreshold))
}

func TestColorsDiffer(t *testing.T) {
	assert.False(t, detect.ColorsDiffer(colormodel.RGB{R: 10, G: 20, B: 30}, colormodel.RGB{R: 10, G: 20, B: 30}))
	assert.True(t, detect.ColorsDiffer(colormodel.RGB{R: 10, G: 20, B: 30}, colormodel.RGB{R: 10, G: 20, B: 31}))
}
