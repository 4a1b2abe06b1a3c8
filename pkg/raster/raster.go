// Package raster is the decode boundary between encoded image files and the
// pixel metrics: it turns images into row-major, channel-interleaved byte
// buffers, optionally grayscale and optionally downscaled to a fixed width.
package raster

import (
	"image"

	"github.com/disintegration/imaging"
)

// Raster is a decoded image buffer in row-major, interleaved-channel order
type Raster struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// Options control how an image is converted into a Raster
type Options struct {
	// Grayscale produces a single-channel raster
	Grayscale bool
	// ResizeWidth downscales (or upscales) to this width preserving aspect ratio; 0 keeps the size
	ResizeWidth int
}

// Convert turns a decoded image into a Raster. Alpha is dropped; color
// rasters have three channels.
func Convert(img image.Image, opts Options) *Raster {
	if opts.ResizeWidth > 0 && img.Bounds().Dx() != opts.ResizeWidth {
		img = imaging.Resize(img, opts.ResizeWidth, 0, imaging.Lanczos)
	}

	var nrgba *image.NRGBA
	if opts.Grayscale {
		nrgba = imaging.Grayscale(img)
	} else {
		nrgba = imaging.Clone(img)
	}

	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	channels := 3
	if opts.Grayscale {
		channels = 1
	}

	pix := make([]byte, w*h*channels)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		dst := pix[y*w*channels : (y+1)*w*channels]
		for x := 0; x < w; x++ {
			if channels == 1 {
				dst[x] = src[x*4]
				continue
			}
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}

	return &Raster{Width: w, Height: h, Channels: channels, Pix: pix}
}

// Gray returns the 8-bit intensity of a pixel as a float. Single-channel
// rasters return the stored value; color rasters use Rec. 601 luma.
func (r *Raster) Gray(x, y int) float64 {
	i := (y*r.Width + x) * r.Channels
	if r.Channels < 3 {
		return float64(r.Pix[i])
	}
	return 0.299*float64(r.Pix[i]) + 0.587*float64(r.Pix[i+1]) + 0.114*float64(r.Pix[i+2])
}

// RGB returns the first three channels of a pixel. Single-channel rasters
// repeat the gray value.
func (r *Raster) RGB(x, y int) (uint8, uint8, uint8) {
	i := (y*r.Width + x) * r.Channels
	if r.Channels < 3 {
		v := r.Pix[i]
		return v, v, v
	}
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// FromGray builds a single-channel raster from row-major values
func FromGray(width, height int, values []byte) *Raster {
	return &Raster{Width: width, Height: height, Channels: 1, Pix: values}
}
