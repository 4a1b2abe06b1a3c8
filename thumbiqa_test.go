package thumbiqa

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/thumbnail-iqa/internal/config"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Thumbnail.Palettes = nil
	_, err := NewWithConfig(cfg, nil)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thumbiqa.toml")
	require.NoError(t, os.WriteFile(path, []byte("[video]\nresolution = \"1280x720\"\n"), 0o644))

	studio, err := Load(path, nil)
	require.NoError(t, err)
	plan, err := studio.VideoPlan()
	require.NoError(t, err)
	assert.Equal(t, types.Size{Width: 1280, Height: 720}, plan.Canvas)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestPlans(t *testing.T) {
	studio, err := New(nil)
	require.NoError(t, err)

	video, err := studio.VideoPlan()
	require.NoError(t, err)
	assert.Equal(t, types.Size{Width: 1920, Height: 1080}, video.Canvas)
	require.NotNil(t, video.SubtitleArea)
	assert.Equal(t, types.Rect{X: 0, Y: 780, Width: 1920, Height: 290}, *video.SubtitleArea)

	thumb := studio.ThumbnailPlan()
	assert.Equal(t, types.Size{Width: 1280, Height: 720}, thumb.Canvas)
	assert.Nil(t, thumb.SubtitleArea)
}

func TestPalettes(t *testing.T) {
	studio, err := New(nil)
	require.NoError(t, err)

	ranked, err := studio.RankPalettes()
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "#000000", ranked[0].Palette.BackgroundColor)

	entries, err := studio.AuditPalettes()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "AAA", entries[0].WCAG)
}

func TestSubtitles(t *testing.T) {
	studio, err := New(nil)
	require.NoError(t, err)

	script, err := studio.Subtitles([]string{"Hello", "World"}, []float64{1.5, 2})
	require.NoError(t, err)
	assert.Contains(t, script, "PlayResX: 1920")
	assert.Equal(t, 2, strings.Count(script, "Dialogue:"))

	_, err = studio.Subtitles([]string{"Hello"}, nil)
	assert.Error(t, err)
}

func TestRenderThumbnail(t *testing.T) {
	studio, err := New(nil)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "thumbnail.png")

	res, err := studio.RenderThumbnail(context.Background(), "Deep Sea", out)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.Equal(t, out, res.Path)
	require.NotEmpty(t, res.Attempts)
	assert.LessOrEqual(t, len(res.Attempts), 2)
	assert.True(t, res.Result.Metrics.IsResolutionCorrect)

	if res.Result.Passed {
		last := res.Attempts[len(res.Attempts)-1]
		assert.Equal(t, last.Palette, res.Palette)
	} else {
		assert.Len(t, res.Attempts, 2)
		for _, a := range res.Attempts {
			assert.LessOrEqual(t, a.Result.Score, res.Result.Score)
		}
	}
}

func TestDebugLayoutAndAudit(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Audit.RunsDir = filepath.Join(root, "runs")
	cfg.DesignTokens = &config.DesignTokens{BaseColor: "#000000", AccentColor: "#FFD400"}

	studio, err := NewWithConfig(cfg, nil)
	require.NoError(t, err)

	debugOut := filepath.Join(root, "debug.png")
	require.NoError(t, studio.DebugLayout(true, debugOut))
	assert.FileExists(t, debugOut)

	_, err = studio.RenderThumbnail(context.Background(), "Run One", filepath.Join(cfg.Audit.RunsDir, "r1", "thumbnail.png"))
	require.NoError(t, err)
	_, err = studio.RenderThumbnail(context.Background(), "Run Two", filepath.Join(cfg.Audit.RunsDir, "r2", "thumbnail.png"))
	require.NoError(t, err)

	report, err := studio.Audit(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalImages)
	assert.Equal(t, report.TotalImages, report.Passed+report.Failed)
	assert.Equal(t, "r1", report.Results[0].RunID)
	require.NotNil(t, report.DesignTokenCheck)
	assert.True(t, report.DesignTokenCheck.ContrastPassesWCAGAAA)

	report, err = studio.Audit(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalImages)

	report, err = studio.Audit(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalImages)
}

func TestAuditWithoutRunsDir(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.RunsDir = filepath.Join(t.TempDir(), "runs")
	studio, err := NewWithConfig(cfg, nil)
	require.NoError(t, err)

	report, err := studio.Audit(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalImages)
	assert.Empty(t, report.Results)
}
