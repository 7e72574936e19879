// Package colormodel converts 8-bit sRGB colors into the perceptual
// lightness used to drive light brightness.
package colormodel

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB holds an 8-bit color value.
type RGB struct {
	R, G, B uint8
}

// White is the color a freshly started finder assumes the light already shows.
var White = RGB{R: 255, G: 255, B: 255}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Colorful returns c as a go-colorful color with channels in [0,1].
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// ParseHex parses "#rrggbb" (or the short "#rgb" form).
func ParseHex(s string) (RGB, error) {
	col, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	r, g, b := col.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// Luminance coefficients for linear sRGB.
const (
	lumaR = 0.2125862307855955516
	lumaG = 0.7151703037034108499
	lumaB = 0.07220049864333622685
)

// CIE constants: ε = 216/24389 and κ = 24389/27.
const (
	cieEpsilon = 216.0 / 24389.0
	cieKappa   = 24389.0 / 27.0
)

// GammaDecode converts a gamma encoded 8-bit channel to a linear value in [0,1].
func GammaDecode(channel uint8) float64 {
	v := float64(channel) / 255
	if v <= 0.0404482362771076 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// LinearLuminance returns the relative luminance Y of c in [0,1].
func LinearLuminance(c RGB) float64 {
	return lumaR*GammaDecode(c.R) + lumaG*GammaDecode(c.G) + lumaB*GammaDecode(c.B)
}

// PerceivedLightness returns the CIE L* of c on a 0..100 scale.
func PerceivedLightness(c RGB) float64 {
	y := LinearLuminance(c)
	if y <= cieEpsilon {
		return y * cieKappa
	}
	return math.Cbrt(y)*116 - 16
}

// PercentageOf returns percent% of base, rounded half to even and clamped
// to [0, base]. 50% of 64 is 32; 50% of 127 (63.5) is 64.
func PercentageOf(percent float64, base int) int {
	v := int(math.RoundToEven(percent * float64(base) / 100))
	if v < 0 {
		return 0
	}
	if v > base {
		return base
	}
	return v
}

// Brightness maps the perceived lightness of c onto a hardware range of
// 0..steps.
func Brightness(c RGB, steps int) int {
	return PercentageOf(PerceivedLightness(c), steps)
}
