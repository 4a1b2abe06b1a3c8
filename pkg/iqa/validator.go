// Package iqa judges whether a finished thumbnail or frame is legible and
// sharp enough to publish. A verdict is always a complete IqaResult; missing
// or corrupt files become failing results rather than errors.
package iqa

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/raster"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// Thresholds are the pass/fail bars and the required output resolution
type Thresholds struct {
	SharpnessMin  float64
	ContrastMin   float64
	ContrastGoal  float64
	CognitiveMin  float64
	MobileEdgeMin float64
	TargetWidth   int
	TargetHeight  int
	GuardBandPx   int
}

// DefaultThresholds returns the thresholds used for 1280×720 thumbnails
func DefaultThresholds() Thresholds {
	return Thresholds{
		SharpnessMin:  100,
		ContrastMin:   5.0,
		ContrastGoal:  7.0,
		CognitiveMin:  0.6,
		MobileEdgeMin: 25,
		TargetWidth:   1280,
		TargetHeight:  720,
		GuardBandPx:   metrics.DefaultGuardBandPx,
	}
}

// Composite score weights. They sum to 1 and every term is monotonic in its metric.
const (
	weightSharpness  = 0.25
	weightMobileEdge = 0.10
	weightContrast   = 0.30
	weightCognitive  = 0.35

	sharpnessScale  = 200.0
	mobileEdgeScale = 60.0
)

// TextInfo describes the title drawn on the image
type TextInfo struct {
	Title string
	// GuardBandPx is where character art starts; 0 uses the validator default
	GuardBandPx int
}

// Request is one image to validate together with the colors used to draw it
type Request struct {
	ImagePath       string
	TextColor       string
	BackgroundColor string
	// Text enables text-layout analysis; nil skips it
	Text *TextInfo
}

// Validator produces IQA verdicts
type Validator struct {
	thresholds Thresholds
	loader     raster.Loader
	logger     *slog.Logger
}

// NewValidator creates a validator. A zero contrast goal, target resolution
// or guard band falls back to the default.
func NewValidator(thresholds Thresholds, loader raster.Loader, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := DefaultThresholds()
	if thresholds.ContrastGoal <= 0 {
		thresholds.ContrastGoal = d.ContrastGoal
	}
	if thresholds.TargetWidth <= 0 || thresholds.TargetHeight <= 0 {
		thresholds.TargetWidth, thresholds.TargetHeight = d.TargetWidth, d.TargetHeight
	}
	if thresholds.GuardBandPx <= 0 {
		thresholds.GuardBandPx = d.GuardBandPx
	}
	return &Validator{thresholds: thresholds, loader: loader, logger: logger}
}

// Thresholds returns the thresholds in effect
func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// CognitiveScore estimates glance recognisability from contrast and title
// length: 70% contrast relative to the goal, 30% a step function that
// favours titles of at most 5 characters.
func (v *Validator) CognitiveScore(contrastRatio float64, titleLength int) float64 {
	contrastFactor := math.Min(contrastRatio/v.thresholds.ContrastGoal, 1.0)
	var densityFactor float64
	switch {
	case titleLength <= 5:
		densityFactor = 1.0
	case titleLength <= 8:
		densityFactor = 0.7
	default:
		densityFactor = 0.4
	}
	return contrastFactor*0.7 + densityFactor*0.3
}

// CompositeScore ranks images continuously, including passing ones
func CompositeScore(m types.Metrics) float64 {
	return weightSharpness*math.Min(m.Sharpness/sharpnessScale, 1) +
		weightMobileEdge*math.Min(m.MobileEdgeStrength/mobileEdgeScale, 1) +
		weightContrast*math.Min(m.ContrastRatio/metrics.MaxContrastRatio, 1) +
		weightCognitive*m.CognitiveRecognitionScore
}

// Validate measures the image and judges it against the thresholds. The
// error return is reserved for configuration problems such as unparsable
// palette colors; unreadable images yield a failing result.
func (v *Validator) Validate(ctx context.Context, req Request) (types.IqaResult, error) {
	textColor, err := metrics.ParseHex(req.TextColor)
	if err != nil {
		return types.IqaResult{}, fmt.Errorf("text color: %w", err)
	}
	bgColor, err := metrics.ParseHex(req.BackgroundColor)
	if err != nil {
		return types.IqaResult{}, fmt.Errorf("background color: %w", err)
	}
	risk := metrics.ClassifyBackgroundRisk(bgColor)

	v.logger.Info("iqa validate start", slog.String("path", req.ImagePath))

	if info, err := os.Stat(req.ImagePath); err != nil || info.Size() == 0 {
		return v.fail(req.ImagePath, risk, "image file is missing or empty"), nil
	}

	img, err := v.loader.Load(ctx, req.ImagePath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.IqaResult{}, ctxErr
		}
		return v.fail(req.ImagePath, risk, fmt.Sprintf("image could not be decoded: %v", err)), nil
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	gray := raster.Convert(img, raster.Options{Grayscale: true})
	mobile := raster.Convert(img, raster.Options{Grayscale: true, ResizeWidth: metrics.MobileEdgeWidth})

	contrast := metrics.ContrastRatio(textColor, bgColor)
	titleLength := 0
	if req.Text != nil {
		titleLength = utf8.RuneCountInString(req.Text.Title)
	}

	m := types.Metrics{
		Sharpness:                 metrics.Sharpness(gray),
		ContrastRatio:             contrast,
		IsResolutionCorrect:       width == v.thresholds.TargetWidth && height == v.thresholds.TargetHeight,
		CognitiveRecognitionScore: v.CognitiveScore(contrast, titleLength),
		MobileEdgeStrength:        metrics.MobileEdgeStrength(mobile),
	}

	var layout *types.TextLayout
	if req.Text != nil {
		guard := req.Text.GuardBandPx
		if guard <= 0 {
			guard = v.thresholds.GuardBandPx
		}
		tl := metrics.AnalyzeTextLayout(raster.Convert(img, raster.Options{}), guard)
		layout = &tl
		m.XHeightLegibilityScore = tl.XHeightScore
	}

	reasons := v.judge(m, width, height, layout)
	passed := len(reasons) == 0
	result := types.IqaResult{
		Passed:         passed,
		Score:          CompositeScore(m),
		Metrics:        m,
		BackgroundRisk: risk,
		TextLayout:     layout,
		Reason:         strings.Join(reasons, " | "),
	}

	v.logger.Info("iqa verdict",
		slog.String("path", req.ImagePath),
		slog.Bool("passed", passed),
		slog.Float64("score", result.Score),
		slog.String("reason", result.Reason))
	return result, nil
}

func (v *Validator) judge(m types.Metrics, width, height int, layout *types.TextLayout) []string {
	t := v.thresholds
	var reasons []string
	if !m.IsResolutionCorrect {
		reasons = append(reasons, fmt.Sprintf("resolution mismatch: %dx%d (want %dx%d)", width, height, t.TargetWidth, t.TargetHeight))
	}
	if m.Sharpness < t.SharpnessMin {
		reasons = append(reasons, fmt.Sprintf("sharpness too low: %.2f", m.Sharpness))
	}
	if m.ContrastRatio < t.ContrastMin {
		reasons = append(reasons, fmt.Sprintf("contrast too low: %.2f", m.ContrastRatio))
	}
	if m.CognitiveRecognitionScore < t.CognitiveMin {
		reasons = append(reasons, fmt.Sprintf("cognitive score too low: %.2f", m.CognitiveRecognitionScore))
	}
	if m.MobileEdgeStrength < t.MobileEdgeMin {
		reasons = append(reasons, fmt.Sprintf("mobile edge weak: %.2f", m.MobileEdgeStrength))
	}
	if layout != nil && layout.IsTextClipped {
		reasons = append(reasons, fmt.Sprintf("text clipped: %.1f%%", layout.ClipBoundaryRatio*100))
	}
	if layout != nil && layout.IsTextOverlappingCharacter {
		reasons = append(reasons, fmt.Sprintf("text overlaps character: %.1f%%", layout.OverlapRatio*100))
	}
	return reasons
}

func (v *Validator) fail(path string, risk types.BackgroundRisk, reason string) types.IqaResult {
	v.logger.Warn("iqa verdict", slog.String("path", path), slog.Bool("passed", false), slog.String("reason", reason))
	return types.IqaResult{
		Passed:         false,
		Score:          0,
		Metrics:        types.Metrics{},
		BackgroundRisk: risk,
		Reason:         reason,
	}
}
