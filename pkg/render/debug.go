package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// DebugLayout draws a render plan on a blank canvas: overlay bounds, the
// subtitle area, the safe margins and the canvas center.
func DebugLayout(plan types.RenderPlan) *image.NRGBA {
	w, h := plan.Canvas.Width, plan.Canvas.Height
	img := imaging.New(w, h, color.NRGBA{32, 32, 32, 255})

	// Colors
	green := color.NRGBA{0, 255, 0, 255}  // overlays
	gold := color.NRGBA{255, 204, 0, 255} // subtitle area
	red := color.NRGBA{255, 0, 0, 255}    // safe margins
	blue := color.NRGBA{0, 170, 255, 255} // canvas center
	stroke := max(2, int(0.004*float64(min(w, h))))

	for _, ol := range plan.Overlays {
		drawBox(img, ol.Bounds, green, stroke)
	}

	if plan.SubtitleArea != nil {
		drawBox(img, *plan.SubtitleArea, gold, stroke)
		if plan.SafeMarginL > 0 {
			drawVLine(img, plan.SafeMarginL, 0, h, red)
		}
		if plan.SafeMarginR > 0 {
			drawVLine(img, w-plan.SafeMarginR, 0, h, red)
		}
	}

	cx, cy := w/2, h/2
	drawHLine(img, cy, cx-6, cx+6, blue)
	drawVLine(img, cx, cy-6, cy+6, blue)

	return img
}

func drawBox(img *image.NRGBA, r types.Rect, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := r.X, r.Y, r.Right(), r.Bottom()
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	x0, x1 = clampSpan(x0, x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	y0, y1 = clampSpan(y0, y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// clampSpan orders a span and clamps it to [0, limit)
func clampSpan(a, b, limit int) (int, int) {
	if a > b {
		a, b = b, a
	}
	a = max(a, 0)
	b = min(b, limit)
	if b < a {
		b = a
	}
	return a, b
}
