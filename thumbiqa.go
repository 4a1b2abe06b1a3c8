// Package thumbiqa lays out video frames and thumbnails and checks that the
// rendered images are legible before they are published.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		thumbiqa "github.com/menta2k/thumbnail-iqa"
//	)
//
//	func main() {
//		studio, err := thumbiqa.Load("thumbiqa.yaml", nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Render with the best palette, falling back through the others
//		// until one passes IQA
//		result, err := studio.RenderThumbnail(context.Background(), "Deep Sea", "out/thumbnail.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("passed=%v score=%.3f\n", result.Result.Passed, result.Result.Score)
//	}
//
// The package consists of these main components:
//
// 1. Layout (pkg/layout): resolves overlay geometry and the subtitle-safe band
// 2. Metrics (pkg/metrics): sharpness, edge strength, contrast and text layout measurements
// 3. IQA (pkg/iqa): turns metrics into a pass/fail verdict and a composite score
// 4. Palette (pkg/palette): ranks color schemes without rendering
// 5. Render (pkg/render): composites thumbnails and debug views of render plans
// 6. Audit (pkg/audit): validates batches of produced images into a JSON report
package thumbiqa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/menta2k/thumbnail-iqa/internal/config"
	"github.com/menta2k/thumbnail-iqa/pkg/audit"
	"github.com/menta2k/thumbnail-iqa/pkg/iqa"
	"github.com/menta2k/thumbnail-iqa/pkg/layout"
	"github.com/menta2k/thumbnail-iqa/pkg/palette"
	"github.com/menta2k/thumbnail-iqa/pkg/raster"
	"github.com/menta2k/thumbnail-iqa/pkg/render"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// Version of the thumbnail IQA library
const Version = "1.0.0"

// Studio wires configuration, layout, rendering and validation together
type Studio struct {
	cfg        *config.Config
	codec      *raster.Codec
	engine     *layout.Engine
	validator  *iqa.Validator
	compositor *render.Compositor
	logger     *slog.Logger
}

// New creates a Studio with default configuration
func New(logger *slog.Logger) (*Studio, error) {
	return NewWithConfig(config.Default(), logger)
}

// Load creates a Studio from a YAML, TOML or JSON configuration file
func Load(path string, logger *slog.Logger) (*Studio, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, logger)
}

// NewWithConfig creates a Studio with custom configuration
func NewWithConfig(cfg *config.Config, logger *slog.Logger) (*Studio, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	codec := raster.NewCodec(0)
	compositor, err := render.NewCompositor(cfg.RenderOptions(), codec, logger.With(slog.String("component", "render")))
	if err != nil {
		return nil, err
	}

	return &Studio{
		cfg:        cfg,
		codec:      codec,
		engine:     layout.NewEngine(cfg.LayoutConfig(), codec, logger.With(slog.String("component", "layout"))),
		validator:  iqa.NewValidator(cfg.Thresholds(), codec, logger.With(slog.String("component", "iqa"))),
		compositor: compositor,
		logger:     logger,
	}, nil
}

// Config returns the configuration in use
func (s *Studio) Config() *config.Config {
	return s.cfg
}

// VideoPlan computes the render plan for video frames, including subtitles
func (s *Studio) VideoPlan() (types.RenderPlan, error) {
	target, err := s.cfg.VideoTarget()
	if err != nil {
		return types.RenderPlan{}, err
	}
	return s.engine.CreatePlan(target), nil
}

// ThumbnailPlan computes the render plan for thumbnails
func (s *Studio) ThumbnailPlan() types.RenderPlan {
	return s.engine.CreatePlan(s.cfg.ThumbnailTarget())
}

// Subtitles builds an ASS subtitle script laid out inside the video plan's safe band
func (s *Studio) Subtitles(lines []string, durations []float64) (string, error) {
	plan, err := s.VideoPlan()
	if err != nil {
		return "", err
	}
	return layout.GenerateASS(lines, durations, plan, s.cfg.SubtitleStyle())
}

// RankPalettes orders the configured palettes best first
func (s *Studio) RankPalettes() ([]palette.Scored, error) {
	return palette.Rank(s.cfg.Thumbnail.Palettes)
}

// AuditPalettes rates the configured palettes
func (s *Studio) AuditPalettes() ([]palette.AuditEntry, error) {
	return palette.Audit(s.cfg.Thumbnail.Palettes, s.validator.Thresholds().ContrastGoal)
}

// Validate judges an image file drawn with the given palette. A non-empty
// title also enables text-layout analysis.
func (s *Studio) Validate(ctx context.Context, path string, p types.Palette, title string) (types.IqaResult, error) {
	req := iqa.Request{
		ImagePath:       path,
		TextColor:       p.TitleColor,
		BackgroundColor: p.BackgroundColor,
	}
	if title != "" {
		req.Text = &iqa.TextInfo{Title: title}
	}
	return s.validator.Validate(ctx, req)
}

// Attempt is one palette tried while rendering a thumbnail
type Attempt struct {
	Palette types.Palette   `json:"palette"`
	Result  types.IqaResult `json:"result"`
}

// ThumbnailResult is the outcome of the render-and-validate loop
type ThumbnailResult struct {
	Path     string           `json:"path"`
	Plan     types.RenderPlan `json:"plan"`
	Palette  types.Palette    `json:"palette"`
	Result   types.IqaResult  `json:"result"`
	Attempts []Attempt        `json:"attempts"`
}

// RenderThumbnail renders the title with each palette in rank order and
// validates the output, stopping at the first pass. When nothing passes,
// the highest-scoring attempt is rendered again so that it ends up at out.
func (s *Studio) RenderThumbnail(ctx context.Context, title, out string) (ThumbnailResult, error) {
	ranked, err := s.RankPalettes()
	if err != nil {
		return ThumbnailResult{}, err
	}

	plan := s.ThumbnailPlan()
	res := ThumbnailResult{Path: out, Plan: plan}
	best := -1

	for i, candidate := range ranked {
		if err := s.compositor.Render(ctx, plan, title, candidate.Palette, out); err != nil {
			return ThumbnailResult{}, fmt.Errorf("render attempt %d: %w", i+1, err)
		}
		result, err := s.Validate(ctx, out, candidate.Palette, title)
		if err != nil {
			return ThumbnailResult{}, fmt.Errorf("validate attempt %d: %w", i+1, err)
		}
		res.Attempts = append(res.Attempts, Attempt{Palette: candidate.Palette, Result: result})

		s.logger.Info("thumbnail attempt",
			slog.Int("attempt", i+1),
			slog.String("background", candidate.Palette.BackgroundColor),
			slog.Bool("passed", result.Passed),
			slog.Float64("score", result.Score))

		if result.Passed {
			res.Palette, res.Result = candidate.Palette, result
			return res, nil
		}
		if best < 0 || result.Score > res.Attempts[best].Result.Score {
			best = i
		}
	}

	chosen := res.Attempts[best]
	res.Palette, res.Result = chosen.Palette, chosen.Result
	if best != len(res.Attempts)-1 {
		if err := s.compositor.Render(ctx, plan, title, chosen.Palette, out); err != nil {
			return ThumbnailResult{}, fmt.Errorf("re-render best attempt: %w", err)
		}
	}
	s.logger.Warn("no palette passed IQA, kept best attempt",
		slog.String("background", chosen.Palette.BackgroundColor),
		slog.Float64("score", chosen.Result.Score))
	return res, nil
}

// DebugLayout writes a visualization of the video or thumbnail plan to out
func (s *Studio) DebugLayout(video bool, out string) error {
	plan := s.ThumbnailPlan()
	if video {
		var err error
		if plan, err = s.VideoPlan(); err != nil {
			return err
		}
	}
	return s.codec.Save(render.DebugLayout(plan), out, "", s.cfg.Output.Quality, s.cfg.Output.Lossless)
}

// Audit validates every produced image under the runs directory, optionally
// restricted to one run, and attaches the design token check when configured.
func (s *Studio) Audit(ctx context.Context, runID string) (audit.Report, error) {
	paths, err := audit.Discover(s.cfg.Audit.RunsDir, runID, s.cfg.Audit.FileName)
	if err != nil {
		return audit.Report{}, err
	}
	auditor := audit.New(s.validator, s.cfg.AuditOptions(), s.logger.With(slog.String("component", "audit")))
	report, err := auditor.Run(ctx, paths)
	if err != nil {
		return audit.Report{}, err
	}
	if tokens := s.cfg.DesignTokens; tokens != nil {
		check, err := audit.CheckDesignTokens(tokens.BaseColor, tokens.AccentColor)
		if err != nil {
			return audit.Report{}, fmt.Errorf("design tokens: %w", err)
		}
		report.DesignTokenCheck = check
	}
	return report, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
