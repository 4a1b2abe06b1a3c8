package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// SubtitleStyle is the ASS style used for burned-in subtitles
type SubtitleStyle struct {
	FontName      string
	FontSize      int
	MinFontSize   int
	PrimaryColour string
	OutlineColour string
	Outline       int
	Shadow        int
	Alignment     int
	MarginV       int
}

// DefaultSubtitleStyle returns the style used when none is configured
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontName:      "Arial",
		FontSize:      72,
		MinFontSize:   40,
		PrimaryColour: "&HFFFFFF&",
		OutlineColour: "&H000000&",
		Outline:       2,
		Alignment:     2,
		MarginV:       10,
	}
}

// FittedText is subtitle text wrapped for a font size
type FittedText struct {
	Text     string
	FontSize int
}

// FitText wraps text to fit maxWidthPx, assuming square glyphs. Text that
// would need more than two lines at the base size drops to minFontSize.
func FitText(text string, baseFontSize, minFontSize, maxWidthPx int) FittedText {
	if baseFontSize <= 0 {
		return FittedText{Text: text, FontSize: baseFontSize}
	}
	safeChars := maxWidthPx / baseFontSize
	size := baseFontSize
	if len([]rune(text)) > safeChars*2 && minFontSize > 0 {
		size = minFontSize
		safeChars = maxWidthPx / size
	}
	return FittedText{Text: WrapText(text, safeChars), FontSize: size}
}

// WrapText breaks text into lines of at most maxChars runes
func WrapText(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	for p := 0; p < len(runes); p += maxChars {
		end := min(p+maxChars, len(runes))
		b.WriteString(string(runes[p:end]))
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// FormatASSTime formats seconds as H:MM:SS.cc
func FormatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds / 3600)
	m := int(math.Mod(seconds, 3600) / 60)
	s := int(math.Mod(seconds, 60))
	cs := int(math.Mod(seconds, 1) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// GenerateASS renders an ASS subtitle script for a video plan. Each line is
// shown for the matching duration, back to back; the style margins come
// from the plan's safe margins.
func GenerateASS(lines []string, durations []float64, plan types.RenderPlan, style SubtitleStyle) (string, error) {
	if len(lines) != len(durations) {
		return "", fmt.Errorf("subtitle lines (%d) and durations (%d) differ", len(lines), len(durations))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\n\n", plan.Canvas.Width, plan.Canvas.Height)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,%s,&H00000080,0,0,0,0,100,100,0,0,1,%d,%d,%d,%d,%d,%d,1\n\n",
		style.FontName, style.FontSize, style.PrimaryColour, style.OutlineColour,
		style.Outline, style.Shadow, style.Alignment, plan.SafeMarginL, plan.SafeMarginR, style.MarginV)
	b.WriteString("[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	safeWidth := plan.Canvas.Width - plan.SafeMarginL - plan.SafeMarginR
	current := 0.0
	for i, line := range lines {
		fitted := FitText(line, style.FontSize, style.MinFontSize, safeWidth)
		text := fitted.Text
		if fitted.FontSize != style.FontSize {
			text = fmt.Sprintf("{\\fs%d}%s", fitted.FontSize, text)
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatASSTime(current), FormatASSTime(current+durations[i]), strings.ReplaceAll(text, "\n", "\\N"))
		current += durations[i]
	}
	return b.String(), nil
}
