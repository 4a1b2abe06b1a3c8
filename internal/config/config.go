package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/thumbnail-iqa/pkg/audit"
	"github.com/menta2k/thumbnail-iqa/pkg/iqa"
	"github.com/menta2k/thumbnail-iqa/pkg/layout"
	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/render"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// ErrInvalidResolution is returned for resolution strings not shaped like "1920x1080"
var ErrInvalidResolution = errors.New("invalid resolution")

// Config holds the application configuration
type Config struct {
	BaseDir      string          `json:"base_dir" yaml:"base_dir" toml:"base_dir"`
	Video        VideoConfig     `json:"video" yaml:"video" toml:"video"`
	Thumbnail    ThumbnailConfig `json:"thumbnail" yaml:"thumbnail" toml:"thumbnail"`
	IQA          IQAConfig       `json:"iqa" yaml:"iqa" toml:"iqa"`
	Audit        AuditConfig     `json:"audit" yaml:"audit" toml:"audit"`
	Output       OutputConfig    `json:"output" yaml:"output" toml:"output"`
	Log          LogConfig       `json:"log" yaml:"log" toml:"log"`
	DesignTokens *DesignTokens   `json:"design_tokens,omitempty" yaml:"design_tokens" toml:"design_tokens"`
}

// VideoConfig holds the video frame canvas and what is drawn on it
type VideoConfig struct {
	Resolution string                `json:"resolution" yaml:"resolution" toml:"resolution"`
	Overlays   []types.OverlayConfig `json:"overlays" yaml:"overlays" toml:"overlays"`
	Subtitles  SubtitleConfig        `json:"subtitles" yaml:"subtitles" toml:"subtitles"`
}

// SubtitleConfig holds subtitle band and style settings
type SubtitleConfig struct {
	MarginL     int    `json:"margin_l" yaml:"margin_l" toml:"margin_l"`
	MarginR     int    `json:"margin_r" yaml:"margin_r" toml:"margin_r"`
	MarginV     int    `json:"margin_v" yaml:"margin_v" toml:"margin_v"`
	Font        string `json:"font" yaml:"font" toml:"font"`
	FontSize    int    `json:"font_size" yaml:"font_size" toml:"font_size"`
	MinFontSize int    `json:"min_font_size" yaml:"min_font_size" toml:"min_font_size"`
}

// ThumbnailConfig holds thumbnail canvas, title and palette settings
type ThumbnailConfig struct {
	Width           int                   `json:"width" yaml:"width" toml:"width"`
	Height          int                   `json:"height" yaml:"height" toml:"height"`
	Padding         int                   `json:"padding" yaml:"padding" toml:"padding"`
	GuardBandPx     int                   `json:"guard_band_px" yaml:"guard_band_px" toml:"guard_band_px"`
	TitleFontSize   float64               `json:"title_font_size" yaml:"title_font_size" toml:"title_font_size"`
	BackgroundImage string                `json:"background_image,omitempty" yaml:"background_image" toml:"background_image"`
	Palettes        []types.Palette       `json:"palettes" yaml:"palettes" toml:"palettes"`
	Overlays        []types.OverlayConfig `json:"overlays" yaml:"overlays" toml:"overlays"`
}

// IQAConfig holds the quality thresholds
type IQAConfig struct {
	SharpnessMin  float64 `json:"sharpness_min" yaml:"sharpness_min" toml:"sharpness_min"`
	ContrastMin   float64 `json:"contrast_min" yaml:"contrast_min" toml:"contrast_min"`
	ContrastGoal  float64 `json:"contrast_goal" yaml:"contrast_goal" toml:"contrast_goal"`
	CognitiveMin  float64 `json:"cognitive_min" yaml:"cognitive_min" toml:"cognitive_min"`
	MobileEdgeMin float64 `json:"mobile_edge_min" yaml:"mobile_edge_min" toml:"mobile_edge_min"`
}

// AuditConfig holds batch audit settings. Empty colors fall back to the first thumbnail palette.
type AuditConfig struct {
	RunsDir         string `json:"runs_dir" yaml:"runs_dir" toml:"runs_dir"`
	FileName        string `json:"file_name" yaml:"file_name" toml:"file_name"`
	ReportPath      string `json:"report_path" yaml:"report_path" toml:"report_path"`
	Concurrency     int    `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	TextColor       string `json:"text_color,omitempty" yaml:"text_color" toml:"text_color"`
	BackgroundColor string `json:"background_color,omitempty" yaml:"background_color" toml:"background_color"`
	TextLayout      bool   `json:"text_layout" yaml:"text_layout" toml:"text_layout"`
}

// OutputConfig holds configuration for output generation. An empty format
// follows the output file extension.
type OutputConfig struct {
	Format    string `json:"format" yaml:"format" toml:"format"`
	Quality   int    `json:"quality" yaml:"quality" toml:"quality"`
	Lossless  bool   `json:"lossless" yaml:"lossless" toml:"lossless"`
	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// DesignTokens are the brand colors checked during audits
type DesignTokens struct {
	BaseColor   string `json:"base_color" yaml:"base_color" toml:"base_color"`
	AccentColor string `json:"accent_color" yaml:"accent_color" toml:"accent_color"`
}

// Default returns a configuration with default values
func Default() *Config {
	thresholds := iqa.DefaultThresholds()
	style := layout.DefaultSubtitleStyle()
	return &Config{
		Video: VideoConfig{
			Resolution: "1920x1080",
			Subtitles: SubtitleConfig{
				MarginV:     style.MarginV,
				Font:        style.FontName,
				FontSize:    style.FontSize,
				MinFontSize: style.MinFontSize,
			},
		},
		Thumbnail: ThumbnailConfig{
			Width:         thresholds.TargetWidth,
			Height:        thresholds.TargetHeight,
			Padding:       80,
			GuardBandPx:   metrics.DefaultGuardBandPx,
			TitleFontSize: 96,
			Palettes: []types.Palette{
				{
					BackgroundColor:   "#000000",
					TitleColor:        "#FFFFFF",
					OutlineInnerColor: "#000000",
					OutlineInnerWidth: 4,
					OutlineOuterColor: "#FFD400",
					OutlineOuterWidth: 3,
				},
				{
					BackgroundColor:   "#0B1F3A",
					TitleColor:        "#FFD400",
					OutlineInnerColor: "#000000",
					OutlineInnerWidth: 4,
				},
			},
		},
		IQA: IQAConfig{
			SharpnessMin:  thresholds.SharpnessMin,
			ContrastMin:   thresholds.ContrastMin,
			ContrastGoal:  thresholds.ContrastGoal,
			CognitiveMin:  thresholds.CognitiveMin,
			MobileEdgeMin: thresholds.MobileEdgeMin,
		},
		Audit: AuditConfig{
			RunsDir:     "./runs",
			FileName:    audit.DefaultFileName,
			ReportPath:  "./output/iqa_report.json",
			Concurrency: 4,
		},
		Output: OutputConfig{
			Quality:   90,
			OutputDir: "./output",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file on top of the defaults. The decoder is
// chosen by extension: .yaml/.yml, .toml or .json.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	// decoded palettes replace the defaults rather than extend them
	defaultPalettes := cfg.Thumbnail.Palettes
	cfg.Thumbnail.Palettes = nil

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(cfg.Thumbnail.Palettes) == 0 {
		cfg.Thumbnail.Palettes = defaultPalettes
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = filepath.Dir(filename)
	}
	return cfg, nil
}

// ParseResolution parses "WIDTHxHEIGHT"
func ParseResolution(s string) (types.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return types.Size{}, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return types.Size{}, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
	}
	return types.Size{Width: width, Height: height}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := ParseResolution(c.Video.Resolution); err != nil {
		return fmt.Errorf("video.resolution: %w", err)
	}

	if c.Thumbnail.Width <= 0 || c.Thumbnail.Height <= 0 {
		return fmt.Errorf("thumbnail.width and thumbnail.height must be positive")
	}

	if len(c.Thumbnail.Palettes) == 0 {
		return fmt.Errorf("thumbnail.palettes cannot be empty")
	}

	for i, p := range c.Thumbnail.Palettes {
		if _, err := metrics.ParseHex(p.BackgroundColor); err != nil {
			return fmt.Errorf("thumbnail.palettes[%d].background_color: %w", i, err)
		}
		if _, err := metrics.ParseHex(p.TitleColor); err != nil {
			return fmt.Errorf("thumbnail.palettes[%d].title_color: %w", i, err)
		}
	}

	if err := validateOverlays("video.overlays", c.Video.Overlays); err != nil {
		return err
	}
	if err := validateOverlays("thumbnail.overlays", c.Thumbnail.Overlays); err != nil {
		return err
	}

	if c.IQA.SharpnessMin < 0 || c.IQA.ContrastMin < 0 || c.IQA.MobileEdgeMin < 0 {
		return fmt.Errorf("iqa thresholds cannot be negative")
	}

	if c.IQA.CognitiveMin < 0 || c.IQA.CognitiveMin > 1 {
		return fmt.Errorf("iqa.cognitive_min must be between 0 and 1")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

func validateOverlays(field string, overlays []types.OverlayConfig) error {
	for i, oc := range overlays {
		if oc.HeightRatio < 0 || oc.HeightRatio > 1 {
			return fmt.Errorf("%s[%d].height_ratio must be in (0, 1]", field, i)
		}
		if oc.WidthRatio < 0 || oc.WidthRatio > 1 {
			return fmt.Errorf("%s[%d].width_ratio must be in (0, 1]", field, i)
		}
		if oc.Width < 0 || oc.Height < 0 {
			return fmt.Errorf("%s[%d] width and height cannot be negative", field, i)
		}
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	if path := os.Getenv("THUMBIQA_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./thumbiqa.yaml"
	}
	return filepath.Join(home, ".config", "thumbiqa", "config.yaml")
}

// LayoutConfig returns the layout engine configuration
func (c *Config) LayoutConfig() layout.Config {
	sub := layout.DefaultSubtitleConfig()
	sub.MarginL = c.Video.Subtitles.MarginL
	sub.MarginR = c.Video.Subtitles.MarginR
	sub.MarginV = c.Video.Subtitles.MarginV
	return layout.Config{BaseDir: c.BaseDir, Subtitles: sub}
}

// VideoTarget returns the video frame render target
func (c *Config) VideoTarget() (layout.Target, error) {
	canvas, err := ParseResolution(c.Video.Resolution)
	if err != nil {
		return layout.Target{}, err
	}
	return layout.Target{Canvas: canvas, Overlays: c.Video.Overlays, Subtitles: true}, nil
}

// ThumbnailTarget returns the thumbnail render target
func (c *Config) ThumbnailTarget() layout.Target {
	return layout.Target{
		Canvas:   types.Size{Width: c.Thumbnail.Width, Height: c.Thumbnail.Height},
		Overlays: c.Thumbnail.Overlays,
	}
}

// SubtitleStyle returns the ASS subtitle style
func (c *Config) SubtitleStyle() layout.SubtitleStyle {
	style := layout.DefaultSubtitleStyle()
	s := c.Video.Subtitles
	if s.Font != "" {
		style.FontName = s.Font
	}
	if s.FontSize > 0 {
		style.FontSize = s.FontSize
	}
	if s.MinFontSize > 0 {
		style.MinFontSize = s.MinFontSize
	}
	style.MarginV = s.MarginV
	return style
}

// Thresholds returns the IQA thresholds for thumbnails
func (c *Config) Thresholds() iqa.Thresholds {
	return iqa.Thresholds{
		SharpnessMin:  c.IQA.SharpnessMin,
		ContrastMin:   c.IQA.ContrastMin,
		ContrastGoal:  c.IQA.ContrastGoal,
		CognitiveMin:  c.IQA.CognitiveMin,
		MobileEdgeMin: c.IQA.MobileEdgeMin,
		TargetWidth:   c.Thumbnail.Width,
		TargetHeight:  c.Thumbnail.Height,
		GuardBandPx:   c.Thumbnail.GuardBandPx,
	}
}

// AuditOptions returns the batch audit options
func (c *Config) AuditOptions() audit.Options {
	opts := audit.Options{
		TextColor:       c.Audit.TextColor,
		BackgroundColor: c.Audit.BackgroundColor,
		Concurrency:     c.Audit.Concurrency,
	}
	if len(c.Thumbnail.Palettes) > 0 {
		first := c.Thumbnail.Palettes[0]
		if opts.TextColor == "" {
			opts.TextColor = first.TitleColor
		}
		if opts.BackgroundColor == "" {
			opts.BackgroundColor = first.BackgroundColor
		}
	}
	if c.Audit.TextLayout {
		opts.GuardBandPx = c.Thumbnail.GuardBandPx
	}
	return opts
}

// RenderOptions returns the thumbnail compositor options
func (c *Config) RenderOptions() render.Options {
	bg := c.Thumbnail.BackgroundImage
	if bg != "" && !filepath.IsAbs(bg) && c.BaseDir != "" {
		bg = filepath.Join(c.BaseDir, bg)
	}
	return render.Options{
		FontSize:        c.Thumbnail.TitleFontSize,
		Padding:         c.Thumbnail.Padding,
		GuardBandPx:     c.Thumbnail.GuardBandPx,
		BackgroundImage: bg,
		Format:          c.Output.Format,
		Quality:         c.Output.Quality,
		Lossless:        c.Output.Lossless,
	}
}
