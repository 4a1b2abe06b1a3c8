// Package layout turns declarative overlay configuration into absolute
// canvas geometry and derives the subtitle band that overlays leave free.
package layout

import (
	"log/slog"
	"math"
	"path/filepath"

	"github.com/menta2k/thumbnail-iqa/pkg/raster"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// SubtitleConfig holds the subtitle band constants
type SubtitleConfig struct {
	// MarginL and MarginR are explicit safe margins; when both are zero they are derived from overlays
	MarginL int
	MarginR int
	// MarginV is subtracted from the band height
	MarginV int
	// BandHeight is the height of the subtitle band measured from the canvas bottom
	BandHeight int
	// LowerZoneRatio is the bottom fraction of the canvas in which overlays push margins
	LowerZoneRatio float64
	// OverlayPadding is the gap kept between an overlay and subtitle text
	OverlayPadding int
	// MinWidthRatio is the minimum usable text width as a fraction of canvas width
	MinWidthRatio float64
}

// DefaultSubtitleConfig returns the band constants used by the video renderer
func DefaultSubtitleConfig() SubtitleConfig {
	return SubtitleConfig{
		MarginV:        10,
		BandHeight:     300,
		LowerZoneRatio: 0.15,
		OverlayPadding: 10,
		MinWidthRatio:  0.5,
	}
}

// Config holds configuration for the layout engine
type Config struct {
	// BaseDir resolves relative overlay image paths
	BaseDir   string
	Subtitles SubtitleConfig
}

// Target is one render destination: a canvas and the overlays placed on it
type Target struct {
	Canvas   types.Size
	Overlays []types.OverlayConfig
	// Subtitles requests safe-margin and subtitle-band derivation
	Subtitles bool
}

// Engine computes render plans
type Engine struct {
	config Config
	sizer  raster.Sizer
	logger *slog.Logger
}

// NewEngine creates a layout engine. The sizer reports overlay image sizes.
func NewEngine(config Config, sizer raster.Sizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := DefaultSubtitleConfig()
	if config.Subtitles.BandHeight <= 0 {
		config.Subtitles.BandHeight = defaults.BandHeight
	}
	if config.Subtitles.LowerZoneRatio <= 0 {
		config.Subtitles.LowerZoneRatio = defaults.LowerZoneRatio
	}
	if config.Subtitles.MinWidthRatio <= 0 {
		config.Subtitles.MinWidthRatio = defaults.MinWidthRatio
	}
	if config.Subtitles.OverlayPadding <= 0 {
		config.Subtitles.OverlayPadding = defaults.OverlayPadding
	}
	return &Engine{config: config, sizer: sizer, logger: logger}
}

// CreatePlan resolves every usable overlay of the target. Overlays whose
// image cannot be measured are logged and left out; they never fail the plan.
func (e *Engine) CreatePlan(target Target) types.RenderPlan {
	plan := types.RenderPlan{
		Canvas:   target.Canvas,
		Overlays: make([]types.ResolvedOverlay, 0, len(target.Overlays)),
	}

	for i, oc := range target.Overlays {
		if !oc.IsOverlay() || !oc.Enabled || oc.ImagePath == "" {
			continue
		}
		path := e.ResolvePath(oc.ImagePath)
		size, err := e.sizer.ImageSize(path)
		if err != nil {
			e.logger.Warn("skipping overlay with unreadable image",
				slog.Int("index", i), slog.String("path", path), slog.Any("error", err))
			continue
		}
		if size.Width <= 0 || size.Height <= 0 {
			e.logger.Warn("skipping overlay with empty image",
				slog.Int("index", i), slog.String("path", path))
			continue
		}
		plan.Overlays = append(plan.Overlays, types.ResolvedOverlay{
			Config:       oc,
			ResolvedPath: path,
			Bounds:       CalculateBounds(oc, size, target.Canvas),
		})
	}

	if target.Subtitles {
		area, l, r := SafeSubtitleArea(plan.Overlays, target.Canvas, e.config.Subtitles)
		plan.SubtitleArea = &area
		plan.SafeMarginL = l
		plan.SafeMarginR = r
	}

	e.logger.Debug("render plan created",
		slog.Int("canvas_width", target.Canvas.Width),
		slog.Int("canvas_height", target.Canvas.Height),
		slog.Int("overlays", len(plan.Overlays)))
	return plan
}

// CreateVideoRenderPlan plans a video frame, including the subtitle band
func (e *Engine) CreateVideoRenderPlan(canvas types.Size, overlays []types.OverlayConfig) types.RenderPlan {
	return e.CreatePlan(Target{Canvas: canvas, Overlays: overlays, Subtitles: true})
}

// CreateThumbnailRenderPlan plans a thumbnail, which has no subtitles
func (e *Engine) CreateThumbnailRenderPlan(canvas types.Size, overlays []types.OverlayConfig) types.RenderPlan {
	return e.CreatePlan(Target{Canvas: canvas, Overlays: overlays})
}

// ResolvePath makes a relative overlay path absolute against the base dir
func (e *Engine) ResolvePath(path string) string {
	if filepath.IsAbs(path) || e.config.BaseDir == "" {
		return path
	}
	return filepath.Join(e.config.BaseDir, path)
}

// CalculateBounds sizes and positions one overlay. A single explicit
// dimension always keeps the source aspect ratio. An empty native size
// yields a zero Rect.
func CalculateBounds(oc types.OverlayConfig, native, canvas types.Size) types.Rect {
	if native.Width <= 0 || native.Height <= 0 {
		return types.Rect{}
	}
	nw, nh := float64(native.Width), float64(native.Height)
	var tw, th float64

	switch oc.ScaleMode() {
	case types.FixedWidth:
		tw = float64(oc.Width)
		th = nh * (tw / nw)
	case types.FixedHeight:
		th = float64(oc.Height)
		tw = nw * (th / nh)
	case types.HeightRatio:
		th = float64(canvas.Height) * oc.HeightRatio
		tw = nw * (th / nh)
	case types.WidthRatio:
		tw = float64(canvas.Width) * oc.WidthRatio
		th = nh * (tw / nw)
	case types.Native:
		tw, th = nw, nh
	}

	width := int(math.Round(tw))
	height := int(math.Round(th))

	x := oc.Offset.Left
	if oc.Anchor.IsRight() {
		x = canvas.Width - width - oc.Offset.Right
	}
	y := oc.Offset.Top
	if oc.Anchor.IsBottom() {
		y = canvas.Height - height - oc.Offset.Bottom
	}

	return types.Rect{X: x, Y: y, Width: width, Height: height}
}

// SafeSubtitleArea derives horizontal safe margins and the subtitle band.
// Explicit margins win; otherwise every overlay reaching into the lower zone
// pushes the margin on its side of the canvas past itself. The usable width
// never drops below MinWidthRatio of the canvas.
func SafeSubtitleArea(overlays []types.ResolvedOverlay, canvas types.Size, cfg SubtitleConfig) (types.Rect, int, int) {
	w, h := float64(canvas.Width), float64(canvas.Height)
	safeL, safeR := float64(cfg.MarginL), float64(cfg.MarginR)

	if cfg.MarginL == 0 && cfg.MarginR == 0 {
		zoneTop := h - h*cfg.LowerZoneRatio
		pad := float64(cfg.OverlayPadding)
		for _, ol := range overlays {
			b := ol.Bounds
			if float64(b.Bottom()) <= zoneTop {
				continue
			}
			if float64(b.X) < w/2 {
				safeL = math.Max(safeL, float64(b.Right())+pad)
			} else {
				safeR = math.Max(safeR, w-float64(b.X)+pad)
			}
		}
	}

	minWidth := w * cfg.MinWidthRatio
	if excess := minWidth - (w - safeL - safeR); excess > 0 {
		safeL, safeR = shrinkMargins(safeL, safeR, excess)
	}

	l := int(math.Round(safeL))
	r := int(math.Round(safeR))
	area := types.Rect{
		X:      l,
		Y:      canvas.Height - cfg.BandHeight,
		Width:  canvas.Width - l - r,
		Height: cfg.BandHeight - cfg.MarginV,
	}
	return area, l, r
}

// shrinkMargins takes excess out of both margins equally. When one margin
// bottoms out at zero the remainder comes from the other.
func shrinkMargins(l, r, excess float64) (float64, float64) {
	half := excess / 2
	nl, nr := l-half, r-half
	if nl < 0 {
		nr += nl
		nl = 0
	}
	if nr < 0 {
		nl += nr
		nr = 0
	}
	return math.Max(nl, 0), math.Max(nr, 0)
}
