// Package render composites thumbnails from a render plan and draws debug
// visualizations of plans. It is the pixel side of the layout engine: the
// engine decides where things go, the compositor puts them there.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/raster"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// Saver encodes images to files
type Saver interface {
	Save(img image.Image, path, format string, quality int, lossless bool) error
}

// Codec is everything the compositor needs from the image codec
type Codec interface {
	raster.Loader
	Saver
}

// Options configure the compositor
type Options struct {
	// FontSize is the title font size in pixels
	FontSize float64
	// Padding is the left inset of the title block
	Padding int
	// OverlayGap is the space kept between the title and the first overlay right of center
	OverlayGap int
	// GuardBandPx clips the title where character art starts; 0 disables it
	GuardBandPx int
	// BackgroundImage is cover-fitted onto the canvas when set
	BackgroundImage string
	Format          string
	Quality         int
	Lossless        bool
}

// DefaultOptions returns the options used for 1280×720 thumbnails
func DefaultOptions() Options {
	return Options{
		FontSize:    96,
		Padding:     80,
		OverlayGap:  20,
		GuardBandPx: metrics.DefaultGuardBandPx,
		Quality:     90,
	}
}

// Compositor draws thumbnails
type Compositor struct {
	opts   Options
	codec  Codec
	font   *opentype.Font
	logger *slog.Logger
}

// NewCompositor creates a compositor using the bundled Go Bold face for titles
func NewCompositor(opts Options, codec Codec, logger *slog.Logger) (*Compositor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := DefaultOptions()
	if opts.FontSize <= 0 {
		opts.FontSize = d.FontSize
	}
	if opts.Padding <= 0 {
		opts.Padding = d.Padding
	}
	if opts.OverlayGap <= 0 {
		opts.OverlayGap = d.OverlayGap
	}
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse title font: %w", err)
	}
	return &Compositor{opts: opts, codec: codec, font: f, logger: logger}, nil
}

// Options returns the options in effect
func (c *Compositor) Options() Options {
	return c.opts
}

// TitleClipX returns the x coordinate the title must not cross: the nearest
// overlay right of center minus the gap, or the guard band, whichever is smaller.
func TitleClipX(plan types.RenderPlan, gap, guardBandPx int) int {
	clip := plan.Canvas.Width
	for _, ol := range plan.Overlays {
		if ol.Bounds.X > plan.Canvas.Width/2 {
			clip = min(clip, ol.Bounds.X-gap)
		}
	}
	if guardBandPx > 0 {
		clip = min(clip, guardBandPx)
	}
	return max(clip, 0)
}

// Compose draws a thumbnail in memory
func (c *Compositor) Compose(ctx context.Context, plan types.RenderPlan, title string, p types.Palette) (*image.NRGBA, error) {
	bg, err := metrics.ParseHex(p.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("background color: %w", err)
	}
	w, h := plan.Canvas.Width, plan.Canvas.Height
	canvas := imaging.New(w, h, bg)

	if c.opts.BackgroundImage != "" {
		src, err := c.codec.Load(ctx, c.opts.BackgroundImage)
		if err != nil {
			return nil, fmt.Errorf("failed to load background image: %w", err)
		}
		canvas = imaging.Overlay(canvas, imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos), image.Pt(0, 0), 1.0)
	}

	for _, ol := range plan.Overlays {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := c.codec.Load(ctx, ol.ResolvedPath)
		if err != nil {
			c.logger.Warn("skipping overlay", slog.String("path", ol.ResolvedPath), slog.Any("error", err))
			continue
		}
		b := ol.Bounds
		resized := imaging.Resize(src, b.Width, b.Height, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, resized, image.Pt(b.X, b.Y), 1.0)
	}

	if strings.TrimSpace(title) != "" {
		clipX := TitleClipX(plan, c.opts.OverlayGap, c.opts.GuardBandPx)
		if err := c.drawTitle(canvas, title, p, clipX); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// Render composes a thumbnail and writes it to out
func (c *Compositor) Render(ctx context.Context, plan types.RenderPlan, title string, p types.Palette, out string) error {
	img, err := c.Compose(ctx, plan, title, p)
	if err != nil {
		return err
	}
	if err := c.codec.Save(img, out, c.opts.Format, c.opts.Quality, c.opts.Lossless); err != nil {
		return err
	}
	c.logger.Debug("thumbnail rendered", slog.String("path", out), slog.String("background", p.BackgroundColor))
	return nil
}

func (c *Compositor) drawTitle(canvas *image.NRGBA, title string, p types.Palette, clipX int) error {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    c.opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create title face: %w", err)
	}
	defer face.Close()

	fill, err := metrics.ParseHex(p.TitleColor)
	if err != nil {
		return fmt.Errorf("title color: %w", err)
	}

	lines := wrapTitle(face, strings.ToUpper(title), clipX-c.opts.Padding)
	lineHeight := int(c.opts.FontSize * 1.1)
	ascent := face.Metrics().Ascent.Ceil()
	top := (canvas.Bounds().Dy() - lineHeight*len(lines)) / 2

	// the title never paints past the clip line
	dst := canvas.SubImage(image.Rect(0, 0, clipX, canvas.Bounds().Dy())).(*image.NRGBA)

	type pass struct {
		hex    string
		radius int
	}
	passes := []pass{
		{p.OutlineOuterColor, p.OutlineOuterWidth * 2},
		{p.OutlineInnerColor, p.OutlineInnerWidth},
	}

	for i, line := range lines {
		baseline := top + i*lineHeight + ascent
		for _, ps := range passes {
			if ps.hex == "" || ps.radius <= 0 {
				continue
			}
			col, err := metrics.ParseHex(ps.hex)
			if err != nil {
				return fmt.Errorf("outline color: %w", err)
			}
			drawRing(dst, face, line, c.opts.Padding, baseline, ps.radius, col)
		}
		drawString(dst, face, line, c.opts.Padding, baseline, fill)
	}
	return nil
}

func drawString(dst draw.Image, face font.Face, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawRing strokes an outline by stamping the glyphs at every offset within radius
func drawRing(dst draw.Image, face font.Face, s string, x, y, radius int, col color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			drawString(dst, face, s, x+dx, y+dy, col)
		}
	}
}

// wrapTitle greedily packs words into lines no wider than maxWidth. A word
// wider than maxWidth gets a line of its own.
func wrapTitle(face font.Face, title string, maxWidth int) []string {
	var lines []string
	for _, para := range strings.Split(title, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			candidate := line + " " + word
			if font.MeasureString(face, candidate).Ceil() > maxWidth {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}
