package metrics

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// ErrInvalidHex is returned for color strings that are not #RGB or #RRGGBB
var ErrInvalidHex = errors.New("invalid hex color")

// MaxContrastRatio is the contrast between pure white and pure black
const MaxContrastRatio = 21.0

// Background luminance above which legibility risk rises
const (
	riskHighLuminance   = 0.4
	riskMediumLuminance = 0.1
)

// ParseHex parses "#RRGGBB", "RRGGBB", "#RGB" or "RGB" into an opaque color
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// linearize converts an 8-bit sRGB channel to linear light
func linearize(c uint8) float64 {
	s := float64(c) / 255
	if s <= 0.03928 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

// Luminance is the relative luminance of an sRGB color in [0,1]
func Luminance(r, g, b uint8) float64 {
	return 0.2126*linearize(r) + 0.7152*linearize(g) + 0.0722*linearize(b)
}

// ColorLuminance is Luminance for a color.RGBA
func ColorLuminance(c color.RGBA) float64 {
	return Luminance(c.R, c.G, c.B)
}

// ContrastRatio is the WCAG contrast ratio between two colors, in [1,21].
// It is symmetric in its arguments.
func ContrastRatio(a, b color.RGBA) float64 {
	l1, l2 := ColorLuminance(a), ColorLuminance(b)
	return (math.Max(l1, l2) + 0.05) / (math.Min(l1, l2) + 0.05)
}

// HexContrastRatio is ContrastRatio for hex strings
func HexContrastRatio(a, b string) (float64, error) {
	ca, err := ParseHex(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseHex(b)
	if err != nil {
		return 0, err
	}
	return ContrastRatio(ca, cb), nil
}

// ClassifyBackgroundRisk buckets a background by luminance. Bright
// backgrounds wash out light title text and weaken mobile edges.
func ClassifyBackgroundRisk(bg color.RGBA) types.BackgroundRisk {
	lum := ColorLuminance(bg)
	switch {
	case lum > riskHighLuminance:
		return types.RiskHigh
	case lum > riskMediumLuminance:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// HexBackgroundRisk is ClassifyBackgroundRisk for a hex string
func HexBackgroundRisk(bg string) (types.BackgroundRisk, error) {
	c, err := ParseHex(bg)
	if err != nil {
		return types.RiskHigh, err
	}
	return ClassifyBackgroundRisk(c), nil
}

// WCAGLevel names the highest WCAG text contrast level a ratio satisfies
func WCAGLevel(ratio float64) string {
	switch {
	case ratio >= 7.0:
		return "AAA"
	case ratio >= 4.5:
		return "AA"
	default:
		return "FAIL"
	}
}
