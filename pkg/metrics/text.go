package metrics

import (
	"math"

	"github.com/menta2k/thumbnail-iqa/pkg/raster"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// Tunable constants. These were fitted by eye against production thumbnails,
// not derived; keep the values for compatibility with existing verdicts.
const (
	// DefaultGuardBandPx is the x coordinate where the character art begins
	DefaultGuardBandPx = 850

	xHeightMarginPx     = 80
	xHeightBandRatio    = 0.10
	xHeightEdgeDelta    = 50
	xHeightDensityScale = 10

	cornerSamplePx      = 40
	foregroundDistance  = 30
	clipZoneWidthPx     = 20
	bodyZoneStartPx     = 80
	clipDensityFactor   = 1.5
	clipDensityOffset   = 0.15
	overlapDensityDelta = 0.2
)

// XHeightScore measures edge density in a horizontal band through the middle
// of the image, where the title's lowercase letters sit. It counts
// horizontally adjacent pixel pairs differing by more than 50 gray levels,
// excluding 80px side margins, and returns min(density×10, 1).
func XHeightScore(img *raster.Raster) float64 {
	w, h := img.Width, img.Height
	half := int(math.Round(float64(h) * xHeightBandRatio / 2))
	mid := int(math.Round(float64(h) / 2))
	y0, y1 := max(mid-half, 0), min(mid+half, h)
	x0, x1 := xHeightMarginPx, w-xHeightMarginPx

	edges, count := 0, 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1 && x+1 < w; x++ {
			if math.Abs(img.Gray(x, y)-img.Gray(x+1, y)) > xHeightEdgeDelta {
				edges++
			}
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Min(float64(edges)/float64(count)*xHeightDensityScale, 1.0)
}

// RGB is an averaged, unquantized color
type RGB struct {
	R, G, B float64
}

// BackgroundColor averages three 40×40 corner patches (top-left, top-right,
// bottom-left). The bottom-right corner is skipped because character art
// is anchored there.
func BackgroundColor(img *raster.Raster) RGB {
	w, h := img.Width, img.Height
	corners := [][2]int{
		{0, 0},
		{max(w-cornerSamplePx, 0), 0},
		{0, max(h-cornerSamplePx, 0)},
	}

	var sum RGB
	n := 0
	for _, c := range corners {
		for y := c[1]; y < min(c[1]+cornerSamplePx, h); y++ {
			for x := c[0]; x < min(c[0]+cornerSamplePx, w); x++ {
				r, g, b := img.RGB(x, y)
				sum.R += float64(r)
				sum.G += float64(g)
				sum.B += float64(b)
				n++
			}
		}
	}
	if n == 0 {
		return RGB{}
	}
	return RGB{R: sum.R / float64(n), G: sum.G / float64(n), B: sum.B / float64(n)}
}

// IsForeground reports whether a pixel is further than 30 (Euclidean RGB)
// from the estimated background color.
func IsForeground(r, g, b uint8, bg RGB) bool {
	dr := float64(r) - bg.R
	dg := float64(g) - bg.G
	db := float64(b) - bg.B
	return math.Sqrt(dr*dr+dg*dg+db*db) > foregroundDistance
}

// AnalyzeTextLayout measures foreground density in three vertical strips
// relative to the guard band: the 20px clip zone just left of it, the body
// zone from x=80 to the clip zone, and the character zone from the guard
// band to the right edge. Text piling up against the guard band means the
// title is being cut off; foreground beyond it means text over the character.
func AnalyzeTextLayout(img *raster.Raster, guardBandPx int) types.TextLayout {
	if guardBandPx <= 0 {
		guardBandPx = DefaultGuardBandPx
	}
	bg := BackgroundColor(img)
	clipL := max(0, guardBandPx-clipZoneWidthPx)

	var clipFg, clipTotal, bodyFg, bodyTotal, charFg, charTotal int
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.RGB(x, y)
			fg := IsForeground(r, g, b, bg)
			switch {
			case x >= clipL && x < guardBandPx:
				clipTotal++
				if fg {
					clipFg++
				}
			case x >= bodyZoneStartPx && x < clipL:
				bodyTotal++
				if fg {
					bodyFg++
				}
			case x >= guardBandPx:
				charTotal++
				if fg {
					charFg++
				}
			}
		}
	}

	clipRatio := ratio(clipFg, clipTotal)
	bodyDensity := ratio(bodyFg, bodyTotal)
	charDensity := ratio(charFg, charTotal)

	return types.TextLayout{
		IsTextClipped:              clipRatio > bodyDensity*clipDensityFactor+clipDensityOffset,
		ClipBoundaryRatio:          clipRatio,
		IsTextOverlappingCharacter: charDensity > bodyDensity+overlapDensityDelta,
		OverlapRatio:               charDensity,
		XHeightScore:               XHeightScore(img),
	}
}

func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
