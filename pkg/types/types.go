package types

import (
	"fmt"
	"strings"
)

// Size is a canvas or image size in pixels
type Size struct {
	Width  int `json:"width" yaml:"width" toml:"width"`
	Height int `json:"height" yaml:"height" toml:"height"`
}

// Rect is a rectangle in canvas pixel coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the x coordinate just past the rectangle
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the y coordinate just past the rectangle
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Anchor selects the canvas corner an overlay is positioned against
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
	Center
)

var anchorNames = map[Anchor]string{
	TopLeft:     "top_left",
	TopRight:    "top_right",
	BottomLeft:  "bottom_left",
	BottomRight: "bottom_right",
	Center:      "center",
}

func (a Anchor) String() string {
	if name, ok := anchorNames[a]; ok {
		return name
	}
	return fmt.Sprintf("anchor(%d)", int(a))
}

// IsRight reports whether x is measured from the right canvas edge
func (a Anchor) IsRight() bool {
	return a == TopRight || a == BottomRight
}

// IsBottom reports whether y is measured from the bottom canvas edge
func (a Anchor) IsBottom() bool {
	return a == BottomLeft || a == BottomRight
}

// ParseAnchor parses the configuration spelling of an anchor.
// An empty string is top_left.
func ParseAnchor(s string) (Anchor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TopLeft, nil
	}
	for a, name := range anchorNames {
		if name == s {
			return a, nil
		}
	}
	return TopLeft, fmt.Errorf("unknown anchor %q", s)
}

func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Anchor) UnmarshalText(text []byte) error {
	parsed, err := ParseAnchor(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Offset insets an overlay from the canvas edges
type Offset struct {
	Top    int `json:"top,omitempty" yaml:"top" toml:"top"`
	Left   int `json:"left,omitempty" yaml:"left" toml:"left"`
	Right  int `json:"right,omitempty" yaml:"right" toml:"right"`
	Bottom int `json:"bottom,omitempty" yaml:"bottom" toml:"bottom"`
}

// ScaleMode is the rule that determines an overlay's target size
type ScaleMode int

const (
	Native ScaleMode = iota
	FixedWidth
	FixedHeight
	HeightRatio
	WidthRatio
)

func (m ScaleMode) String() string {
	switch m {
	case FixedWidth:
		return "fixed_width"
	case FixedHeight:
		return "fixed_height"
	case HeightRatio:
		return "height_ratio"
	case WidthRatio:
		return "width_ratio"
	default:
		return "native"
	}
}

// OverlayConfig declares a decorative image to composite onto a canvas
type OverlayConfig struct {
	Type        string  `json:"type,omitempty" yaml:"type" toml:"type"`
	Enabled     bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	ImagePath   string  `json:"image_path" yaml:"image_path" toml:"image_path"`
	Anchor      Anchor  `json:"anchor" yaml:"anchor" toml:"anchor"`
	Offset      Offset  `json:"offset" yaml:"offset" toml:"offset"`
	Width       int     `json:"width,omitempty" yaml:"width" toml:"width"`
	Height      int     `json:"height,omitempty" yaml:"height" toml:"height"`
	HeightRatio float64 `json:"height_ratio,omitempty" yaml:"height_ratio" toml:"height_ratio"`
	WidthRatio  float64 `json:"width_ratio,omitempty" yaml:"width_ratio" toml:"width_ratio"`
}

// ScaleMode returns the scaling rule in priority order:
// width, height, height_ratio, width_ratio, native.
func (o OverlayConfig) ScaleMode() ScaleMode {
	switch {
	case o.Width > 0:
		return FixedWidth
	case o.Height > 0:
		return FixedHeight
	case o.HeightRatio > 0:
		return HeightRatio
	case o.WidthRatio > 0:
		return WidthRatio
	default:
		return Native
	}
}

// IsOverlay reports whether the entry is an overlay at all.
// Effect lists mix overlays with other entry types.
func (o OverlayConfig) IsOverlay() bool {
	return o.Type == "" || o.Type == "overlay"
}

// ResolvedOverlay is an overlay placed on a specific canvas
type ResolvedOverlay struct {
	Config       OverlayConfig `json:"config"`
	ResolvedPath string        `json:"resolved_path"`
	Bounds       Rect          `json:"bounds"`
}

// RenderPlan is the resolved geometry for one render
type RenderPlan struct {
	Canvas       Size              `json:"canvas"`
	Overlays     []ResolvedOverlay `json:"overlays"`
	SubtitleArea *Rect             `json:"subtitle_area,omitempty"`
	SafeMarginL  int               `json:"safe_margin_l"`
	SafeMarginR  int               `json:"safe_margin_r"`
}

// Palette is one candidate color scheme for a thumbnail
type Palette struct {
	BackgroundColor   string `json:"background_color" yaml:"background_color" toml:"background_color"`
	TitleColor        string `json:"title_color" yaml:"title_color" toml:"title_color"`
	OutlineInnerColor string `json:"outline_inner_color" yaml:"outline_inner_color" toml:"outline_inner_color"`
	OutlineInnerWidth int    `json:"outline_inner_width" yaml:"outline_inner_width" toml:"outline_inner_width"`
	OutlineOuterColor string `json:"outline_outer_color" yaml:"outline_outer_color" toml:"outline_outer_color"`
	OutlineOuterWidth int    `json:"outline_outer_width" yaml:"outline_outer_width" toml:"outline_outer_width"`
	SubtitleColor     string `json:"subtitle_color,omitempty" yaml:"subtitle_color" toml:"subtitle_color"`
}

// BackgroundRisk is a coarse legibility risk class for a background color
type BackgroundRisk string

const (
	RiskLow    BackgroundRisk = "low"
	RiskMedium BackgroundRisk = "medium"
	RiskHigh   BackgroundRisk = "high"
)

// Score maps the risk to [0,1], higher is safer
func (r BackgroundRisk) Score() float64 {
	switch r {
	case RiskLow:
		return 1.0
	case RiskMedium:
		return 0.5
	default:
		return 0.0
	}
}

// Metrics are the raw IQA measurements of one image
type Metrics struct {
	Sharpness                 float64 `json:"sharpness"`
	ContrastRatio             float64 `json:"contrastRatio"`
	IsResolutionCorrect       bool    `json:"isResolutionCorrect"`
	CognitiveRecognitionScore float64 `json:"cognitiveRecognitionScore"`
	XHeightLegibilityScore    float64 `json:"xHeightLegibilityScore"`
	MobileEdgeStrength        float64 `json:"mobileEdgeStrength"`
}

// TextLayout is the foreground-density analysis around the character guard band
type TextLayout struct {
	IsTextClipped              bool    `json:"isTextClipped"`
	ClipBoundaryRatio          float64 `json:"clipBoundaryRatio"`
	IsTextOverlappingCharacter bool    `json:"isTextOverlappingCharacter"`
	OverlapRatio               float64 `json:"overlapRatio"`
	XHeightScore               float64 `json:"xHeightScore"`
}

// IqaResult is one quality verdict. It is never mutated after construction.
type IqaResult struct {
	Passed         bool           `json:"passed"`
	Score          float64        `json:"score"`
	Metrics        Metrics        `json:"metrics"`
	BackgroundRisk BackgroundRisk `json:"backgroundRisk"`
	TextLayout     *TextLayout    `json:"textLayout,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}
