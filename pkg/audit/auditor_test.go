package audit

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/thumbnail-iqa/pkg/iqa"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// fakeValidator passes every path containing "good" and scores by path length
type fakeValidator struct {
	calls   atomic.Int32
	lastReq atomic.Pointer[iqa.Request]
	err     error
}

func (f *fakeValidator) Validate(ctx context.Context, req iqa.Request) (types.IqaResult, error) {
	f.calls.Add(1)
	f.lastReq.Store(&req)
	if f.err != nil {
		return types.IqaResult{}, f.err
	}
	passed := strings.Contains(req.ImagePath, "good")
	result := types.IqaResult{Passed: passed, Score: float64(len(req.ImagePath)) / 100}
	if !passed {
		result.Reason = "sharpness too low: 1.00"
	}
	return result, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscover(t *testing.T) {
	runs := filepath.Join(t.TempDir(), "runs")
	touch(t, filepath.Join(runs, "a", "thumbnail.png"))
	touch(t, filepath.Join(runs, "b", "final", "thumbnail.png"))
	touch(t, filepath.Join(runs, "b", "frame.jpg"))
	touch(t, filepath.Join(runs, "b", "notes.txt"))

	paths, err := Discover(runs, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(runs, "a", "thumbnail.png"),
		filepath.Join(runs, "b", "final", "thumbnail.png"),
	}, paths)

	paths, err = Discover(runs, "b", "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(runs, "b", "final", "thumbnail.png")}, paths)

	paths, err = Discover(runs, "b", AnyImage)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	paths, err = Discover(runs, "missing", "")
	require.NoError(t, err)
	assert.Empty(t, paths)

	paths, err = Discover(filepath.Join(t.TempDir(), "runs"), "", "")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRunWithoutTargets(t *testing.T) {
	fv := &fakeValidator{}
	paths, err := Discover(filepath.Join(t.TempDir(), "runs"), "", "")
	require.NoError(t, err)

	report, err := New(fv, Options{}, nil).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, int32(0), fv.calls.Load())
	assert.Equal(t, 0, report.TotalImages)
	assert.Equal(t, "0.0%", report.PassRate)
	assert.NotNil(t, report.Results)
}

func TestRun(t *testing.T) {
	fv := &fakeValidator{}
	auditor := New(fv, Options{TextColor: "#FFFFFF", BackgroundColor: "#000000", GuardBandPx: 850, Concurrency: 2}, nil)

	paths := []string{
		"/data/runs/r1/good/thumbnail.png",
		"/data/runs/r2/bad/thumbnail.png",
		"/data/runs/r3/good/longer/thumbnail.png",
		"/elsewhere/thumbnail.png",
	}
	report, err := auditor.Run(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, int32(4), fv.calls.Load())
	req := fv.lastReq.Load()
	require.NotNil(t, req.Text)
	assert.Equal(t, 850, req.Text.GuardBandPx)
	assert.Equal(t, "#FFFFFF", req.TextColor)

	assert.NotEmpty(t, report.AuditID)
	assert.False(t, report.AuditTimestamp.IsZero())
	assert.Equal(t, 4, report.TotalImages)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, "50.0%", report.PassRate)

	require.Len(t, report.Results, 4)
	for i, e := range report.Results {
		assert.Equal(t, paths[i], e.ImagePath, "results keep input order")
	}
	assert.Equal(t, "r1", report.Results[0].RunID)
	assert.Equal(t, "unknown", report.Results[3].RunID)

	failures := report.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, paths[1], failures[0].ImagePath)

	top := report.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, paths[2], top[0].ImagePath)
	assert.Len(t, report.Top(10), 4)
	assert.Empty(t, report.Top(0))
	assert.Empty(t, report.Top(-1))
}

func TestRunError(t *testing.T) {
	fv := &fakeValidator{err: errors.New("bad palette")}
	_, err := New(fv, Options{}, nil).Run(context.Background(), []string{"a.png"})
	assert.ErrorContains(t, err, "bad palette")
}

func TestSummarizeEmpty(t *testing.T) {
	report := Summarize(nil)
	assert.Equal(t, 0, report.TotalImages)
	assert.Equal(t, "0.0%", report.PassRate)
	assert.NotNil(t, report.Results)
	assert.Empty(t, report.Failures())
}

func TestCheckDesignTokens(t *testing.T) {
	check, err := CheckDesignTokens("#000000", "#FFFFFF")
	require.NoError(t, err)
	assert.True(t, check.ContrastPassesWCAGAAA)
	assert.True(t, check.ContrastPassesWCAGAA)
	assert.Contains(t, check.Recommendation, "AAA")

	check, err = CheckDesignTokens("#000000", "#808080")
	require.NoError(t, err)
	assert.False(t, check.ContrastPassesWCAGAAA)
	assert.True(t, check.ContrastPassesWCAGAA)

	check, err = CheckDesignTokens("#FFFFFF", "#EEEEEE")
	require.NoError(t, err)
	assert.False(t, check.ContrastPassesWCAGAA)

	_, err = CheckDesignTokens("#FFFFFF", "")
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "iqa_report.json")
	report := Summarize([]Entry{
		{ImagePath: "runs/x/thumbnail.png", RunID: "x", IqaResult: types.IqaResult{Passed: true, Score: 0.9}},
	})
	report.AuditID = "abc"
	report.DesignTokenCheck = &TokenCheck{BaseColor: "#000000", AccentColor: "#FFFFFF", ContrastRatio: 21}

	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "abc", raw["audit_id"])
	assert.Equal(t, "100.0%", raw["pass_rate"])
	assert.Contains(t, raw, "design_token_check")

	results := raw["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "runs/x/thumbnail.png", first["imagePath"])
	assert.Equal(t, true, first["passed"])
	assert.Contains(t, first, "metrics")
}
