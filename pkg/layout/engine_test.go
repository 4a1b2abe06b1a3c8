package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

type fakeSizer map[string]types.Size

func (f fakeSizer) ImageSize(path string) (types.Size, error) {
	size, ok := f[path]
	if !ok {
		return types.Size{}, errors.New("no such image")
	}
	return size, nil
}

var hd = types.Size{Width: 1280, Height: 720}

func TestCalculateBounds(t *testing.T) {
	native := types.Size{Width: 200, Height: 100}

	tests := []struct {
		name   string
		config types.OverlayConfig
		native types.Size
		want   types.Rect
	}{
		{
			name:   "fixed height keeps aspect",
			config: types.OverlayConfig{Height: 400},
			native: native,
			want:   types.Rect{X: 0, Y: 0, Width: 800, Height: 400},
		},
		{
			name:   "fixed width wins over height",
			config: types.OverlayConfig{Width: 100, Height: 999},
			native: native,
			want:   types.Rect{Width: 100, Height: 50},
		},
		{
			name:   "height ratio",
			config: types.OverlayConfig{HeightRatio: 0.25},
			native: native,
			want:   types.Rect{Width: 360, Height: 180},
		},
		{
			name:   "width ratio",
			config: types.OverlayConfig{WidthRatio: 0.5},
			native: native,
			want:   types.Rect{Width: 640, Height: 320},
		},
		{
			name:   "zero native width",
			config: types.OverlayConfig{Height: 400, Anchor: types.BottomRight},
			native: types.Size{Width: 0, Height: 100},
			want:   types.Rect{},
		},
		{
			name:   "negative native height",
			config: types.OverlayConfig{WidthRatio: 0.5},
			native: types.Size{Width: 200, Height: -1},
			want:   types.Rect{},
		},
		{
			name:   "native size",
			config: types.OverlayConfig{Offset: types.Offset{Left: 12, Top: 34}},
			native: native,
			want:   types.Rect{X: 12, Y: 34, Width: 200, Height: 100},
		},
		{
			name: "bottom right anchor",
			config: types.OverlayConfig{
				Anchor: types.BottomRight,
				Offset: types.Offset{Bottom: 20, Right: 30},
			},
			native: types.Size{Width: 100, Height: 50},
			want:   types.Rect{X: 1150, Y: 650, Width: 100, Height: 50},
		},
		{
			name: "top right anchor",
			config: types.OverlayConfig{
				Anchor: types.TopRight,
				Offset: types.Offset{Top: 5, Right: 10},
			},
			native: types.Size{Width: 100, Height: 50},
			want:   types.Rect{X: 1170, Y: 5, Width: 100, Height: 50},
		},
		{
			name: "bottom left anchor",
			config: types.OverlayConfig{
				Anchor: types.BottomLeft,
				Offset: types.Offset{Left: 8, Bottom: 0},
			},
			native: types.Size{Width: 100, Height: 50},
			want:   types.Rect{X: 8, Y: 670, Width: 100, Height: 50},
		},
		{
			name: "center anchor uses left and top offsets",
			config: types.OverlayConfig{
				Anchor: types.Center,
				Offset: types.Offset{Left: 5, Top: 7, Right: 100, Bottom: 100},
			},
			native: types.Size{Width: 100, Height: 50},
			want:   types.Rect{X: 5, Y: 7, Width: 100, Height: 50},
		},
		{
			name:   "rounds to nearest pixel",
			config: types.OverlayConfig{Width: 10},
			native: types.Size{Width: 3, Height: 3},
			want:   types.Rect{Width: 10, Height: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBounds(tt.config, tt.native, hd)
			assert.Equal(t, tt.want, got)
			// pure function
			assert.Equal(t, got, CalculateBounds(tt.config, tt.native, hd))
		})
	}
}

func resolved(bounds ...types.Rect) []types.ResolvedOverlay {
	out := make([]types.ResolvedOverlay, len(bounds))
	for i, b := range bounds {
		out[i] = types.ResolvedOverlay{Bounds: b}
	}
	return out
}

func TestSafeSubtitleArea(t *testing.T) {
	cfg := DefaultSubtitleConfig()

	t.Run("no overlays", func(t *testing.T) {
		area, l, r := SafeSubtitleArea(nil, hd, cfg)
		assert.Equal(t, 0, l)
		assert.Equal(t, 0, r)
		assert.Equal(t, types.Rect{X: 0, Y: 420, Width: 1280, Height: 290}, area)
	})

	t.Run("bottom right overlay pushes right margin", func(t *testing.T) {
		_, l, r := SafeSubtitleArea(resolved(types.Rect{X: 1000, Y: 650, Width: 200, Height: 70}), hd, cfg)
		assert.Equal(t, 0, l)
		assert.GreaterOrEqual(t, r, 290)
		assert.Equal(t, 290, r)
	})

	t.Run("bottom left overlay pushes left margin", func(t *testing.T) {
		area, l, r := SafeSubtitleArea(resolved(types.Rect{X: 0, Y: 600, Width: 300, Height: 120}), hd, cfg)
		assert.Equal(t, 310, l)
		assert.Equal(t, 0, r)
		assert.Equal(t, 970, area.Width)
		assert.Equal(t, 310, area.X)
	})

	t.Run("overlay above the lower zone is ignored", func(t *testing.T) {
		_, l, r := SafeSubtitleArea(resolved(types.Rect{X: 1000, Y: 100, Width: 200, Height: 200}), hd, cfg)
		assert.Equal(t, 0, l)
		assert.Equal(t, 0, r)
	})

	t.Run("margins shrink to keep half the width", func(t *testing.T) {
		area, l, r := SafeSubtitleArea(resolved(
			types.Rect{X: 0, Y: 600, Width: 600, Height: 120},
			types.Rect{X: 700, Y: 600, Width: 580, Height: 120},
		), hd, cfg)
		assert.Equal(t, 330, l)
		assert.Equal(t, 310, r)
		assert.Equal(t, 640, area.Width)
	})

	t.Run("shrink carries over when one margin hits zero", func(t *testing.T) {
		c := cfg
		c.MarginL, c.MarginR = 10, 1000
		area, l, r := SafeSubtitleArea(nil, hd, c)
		assert.Equal(t, 0, l)
		assert.Equal(t, 640, r)
		assert.Equal(t, 640, area.Width)
	})

	t.Run("explicit margins win", func(t *testing.T) {
		c := cfg
		c.MarginL, c.MarginR = 100, 50
		_, l, r := SafeSubtitleArea(resolved(types.Rect{X: 1000, Y: 650, Width: 200, Height: 70}), hd, c)
		assert.Equal(t, 100, l)
		assert.Equal(t, 50, r)
	})
}

func TestCreatePlan(t *testing.T) {
	sizer := fakeSizer{
		"/assets/char.png": {Width: 400, Height: 800},
		"/assets/logo.png": {Width: 100, Height: 50},
		"/assets/zero.png": {Width: 0, Height: 0},
	}
	engine := NewEngine(Config{BaseDir: "/assets"}, sizer, nil)

	overlays := []types.OverlayConfig{
		{Enabled: true, ImagePath: "char.png", Anchor: types.BottomRight, HeightRatio: 0.5},
		{Enabled: true, ImagePath: "/assets/logo.png", Type: "overlay", Offset: types.Offset{Left: 20, Top: 20}},
		{Enabled: false, ImagePath: "logo.png"},
		{Enabled: true, ImagePath: ""},
		{Enabled: true, ImagePath: "logo.png", Type: "text"},
		{Enabled: true, ImagePath: "missing.png"},
		{Enabled: true, ImagePath: "zero.png"},
	}

	plan := engine.CreateVideoRenderPlan(hd, overlays)
	require.Len(t, plan.Overlays, 2)

	char := plan.Overlays[0]
	assert.Equal(t, "/assets/char.png", char.ResolvedPath)
	assert.Equal(t, types.Rect{X: 1100, Y: 360, Width: 180, Height: 360}, char.Bounds)

	logo := plan.Overlays[1]
	assert.Equal(t, types.Rect{X: 20, Y: 20, Width: 100, Height: 50}, logo.Bounds)

	require.NotNil(t, plan.SubtitleArea)
	assert.Equal(t, 0, plan.SafeMarginL)
	assert.Equal(t, 1280-1100+10, plan.SafeMarginR)

	thumb := engine.CreateThumbnailRenderPlan(hd, overlays)
	assert.Nil(t, thumb.SubtitleArea)
	assert.Equal(t, plan.Overlays, thumb.Overlays)
}

func TestResolvePath(t *testing.T) {
	engine := NewEngine(Config{BaseDir: "/base"}, fakeSizer{}, nil)
	assert.Equal(t, "/base/a.png", engine.ResolvePath("a.png"))
	assert.Equal(t, "/abs/a.png", engine.ResolvePath("/abs/a.png"))

	bare := NewEngine(Config{}, fakeSizer{}, nil)
	assert.Equal(t, "a.png", bare.ResolvePath("a.png"))
}

func TestFitText(t *testing.T) {
	short := FitText("HELLO", 72, 40, 720)
	assert.Equal(t, FittedText{Text: "HELLO", FontSize: 72}, short)

	long := FitText(strings.Repeat("a", 30), 72, 40, 720)
	assert.Equal(t, 40, long.FontSize)
	assert.Equal(t, strings.Repeat("a", 18)+"\n"+strings.Repeat("a", 12), long.Text)

	assert.Equal(t, "abcd\nef", WrapText("abcdef", 4))
	assert.Equal(t, "ünï\ncöd\ne", WrapText("ünïcöde", 3))
}

func TestFormatASSTime(t *testing.T) {
	assert.Equal(t, "0:00:00.00", FormatASSTime(0))
	assert.Equal(t, "0:00:03.50", FormatASSTime(3.5))
	assert.Equal(t, "1:02:05.25", FormatASSTime(3725.25))
	assert.Equal(t, "0:00:00.00", FormatASSTime(-1))
}

func TestGenerateASS(t *testing.T) {
	plan := types.RenderPlan{
		Canvas:      types.Size{Width: 1920, Height: 1080},
		SafeMarginL: 100,
		SafeMarginR: 290,
	}

	script, err := GenerateASS([]string{"HELLO", "WORLD"}, []float64{2.5, 1.5}, plan, DefaultSubtitleStyle())
	require.NoError(t, err)
	assert.Contains(t, script, "PlayResX: 1920\nPlayResY: 1080\n")
	assert.Contains(t, script, "Style: Default,Arial,72,")
	assert.Contains(t, script, ",1,2,0,2,100,290,10,1\n")
	assert.Contains(t, script, "Dialogue: 0,0:00:00.00,0:00:02.50,Default,,0,0,0,,HELLO\n")
	assert.Contains(t, script, "Dialogue: 0,0:00:02.50,0:00:04.00,Default,,0,0,0,,WORLD\n")

	_, err = GenerateASS([]string{"a"}, nil, plan, DefaultSubtitleStyle())
	assert.Error(t, err)
}
