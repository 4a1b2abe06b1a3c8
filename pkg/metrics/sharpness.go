// Package metrics computes deterministic visual-quality measurements over
// decoded raster buffers. Every function is pure: no I/O, no shared state,
// and degenerate inputs yield 0 instead of an error.
package metrics

import (
	"math"

	"github.com/menta2k/thumbnail-iqa/pkg/raster"
)

// MobileEdgeWidth is the width images are downscaled to before measuring
// mobile edge strength, approximating a phone-sized thumbnail.
const MobileEdgeWidth = 150

// Sharpness is the population variance of the 4-neighbour Laplacian over
// interior pixels. Responses are kept signed and unclamped; clipping them to
// 8 bits collapses the variance of any real image to near zero.
func Sharpness(img *raster.Raster) float64 {
	w, h := img.Width, img.Height
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*img.Gray(x, y) -
				img.Gray(x-1, y) - img.Gray(x+1, y) -
				img.Gray(x, y-1) - img.Gray(x, y+1)
			sum += lap
			sumSq += lap * lap
			count++
		}
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	// E[L²]−E[L]² can dip a hair below zero on flat images
	if variance < 0 {
		return 0
	}
	return variance
}

// MobileEdgeStrength is the mean central-difference gradient magnitude over
// interior pixels. Callers pass an image already downscaled to MobileEdgeWidth.
func MobileEdgeStrength(img *raster.Raster) float64 {
	w, h := img.Width, img.Height
	if w < 3 || h < 3 {
		return 0
	}

	var sum float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := img.Gray(x+1, y) - img.Gray(x-1, y)
			gy := img.Gray(x, y+1) - img.Gray(x, y-1)
			sum += math.Sqrt(gx*gx + gy*gy)
			count++
		}
	}
	return sum / float64(count)
}
