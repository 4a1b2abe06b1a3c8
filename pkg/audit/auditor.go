// Package audit runs the IQA validator over many produced images and
// aggregates the verdicts into a JSON report for dashboards.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/thumbnail-iqa/internal/utils"
	"github.com/menta2k/thumbnail-iqa/pkg/iqa"
	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// DefaultFileName is the image every run directory is expected to produce
const DefaultFileName = "thumbnail.png"

// Validator is the part of iqa.Validator the auditor needs
type Validator interface {
	Validate(ctx context.Context, req iqa.Request) (types.IqaResult, error)
}

// Options configure a batch audit
type Options struct {
	// TextColor and BackgroundColor are the palette colors the images were drawn with
	TextColor       string
	BackgroundColor string
	// GuardBandPx enables text-layout analysis when positive
	GuardBandPx int
	// Concurrency bounds parallel validations; <= 0 means 4
	Concurrency int
}

// Entry is one audited image
type Entry struct {
	ImagePath string `json:"imagePath"`
	RunID     string `json:"runId"`
	types.IqaResult
}

// TokenCheck is the contrast check between the brand's base and accent colors
type TokenCheck struct {
	BaseColor             string  `json:"base_color"`
	AccentColor           string  `json:"accent_color"`
	ContrastRatio         float64 `json:"contrast_ratio"`
	ContrastPassesWCAGAAA bool    `json:"contrast_passes_wcag_aaa"`
	ContrastPassesWCAGAA  bool    `json:"contrast_passes_wcag_aa"`
	Recommendation        string  `json:"recommendation"`
}

// Report is the batch summary written for downstream tooling
type Report struct {
	AuditID          string      `json:"audit_id"`
	AuditTimestamp   time.Time   `json:"audit_timestamp"`
	TotalImages      int         `json:"total_images"`
	Passed           int         `json:"passed"`
	Failed           int         `json:"failed"`
	PassRate         string      `json:"pass_rate"`
	Results          []Entry     `json:"results"`
	DesignTokenCheck *TokenCheck `json:"design_token_check,omitempty"`
}

// Auditor validates batches of images
type Auditor struct {
	validator Validator
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an auditor
func New(validator Validator, opts Options, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Auditor{validator: validator, opts: opts, logger: logger, now: time.Now}
}

// AnyImage as the file name makes Discover collect every image file
const AnyImage = "*"

// Discover finds audit targets under runsDir. A non-empty runID restricts
// the search to that run's directory. A directory that does not exist yet
// holds no targets.
func Discover(runsDir, runID, fileName string) ([]string, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	root := runsDir
	if runID != "" {
		root = filepath.Join(runsDir, runID)
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	var paths []string
	var err error
	if fileName == AnyImage {
		paths, err = utils.ListImageFiles(root)
	} else {
		paths, err = utils.FindNamedFiles(root, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return paths, nil
}

// Run validates every path, in parallel, and aggregates the verdicts.
// Result order follows the input order.
func (a *Auditor) Run(ctx context.Context, paths []string) (Report, error) {
	entries := make([]Entry, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.opts.Concurrency)

	for i, path := range paths {
		eg.Go(func() error {
			req := iqa.Request{
				ImagePath:       path,
				TextColor:       a.opts.TextColor,
				BackgroundColor: a.opts.BackgroundColor,
			}
			if a.opts.GuardBandPx > 0 {
				req.Text = &iqa.TextInfo{GuardBandPx: a.opts.GuardBandPx}
			}
			result, err := a.validator.Validate(egCtx, req)
			if err != nil {
				return fmt.Errorf("validate %s: %w", path, err)
			}
			entries[i] = Entry{ImagePath: path, RunID: utils.RunID(path), IqaResult: result}
			a.logger.Debug("audited image", slog.Int("index", i+1), slog.Int("total", len(paths)), slog.Bool("passed", result.Passed))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	report := Summarize(entries)
	report.AuditID = uuid.NewString()
	report.AuditTimestamp = a.now().UTC()

	a.logger.Info("audit finished",
		slog.String("audit_id", report.AuditID),
		slog.Int("total", report.TotalImages),
		slog.Int("passed", report.Passed),
		slog.Int("failed", report.Failed))
	return report, nil
}

// Summarize counts verdicts. It does not stamp an id or timestamp.
func Summarize(entries []Entry) Report {
	r := Report{TotalImages: len(entries), Results: entries}
	for _, e := range entries {
		if e.Passed {
			r.Passed++
		}
	}
	r.Failed = r.TotalImages - r.Passed
	if r.TotalImages > 0 {
		r.PassRate = fmt.Sprintf("%.1f%%", float64(r.Passed)/float64(r.TotalImages)*100)
	} else {
		r.PassRate = "0.0%"
	}
	if r.Results == nil {
		r.Results = []Entry{}
	}
	return r
}

// Failures returns the failing entries in report order
func (r Report) Failures() []Entry {
	var out []Entry
	for _, e := range r.Results {
		if !e.Passed {
			out = append(out, e)
		}
	}
	return out
}

// Top returns up to n entries with the highest score; n <= 0 returns none
func (r Report) Top(n int) []Entry {
	n = max(n, 0)
	sorted := append([]Entry(nil), r.Results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// CheckDesignTokens rates the contrast between the brand's base and accent colors
func CheckDesignTokens(base, accent string) (*TokenCheck, error) {
	contrast, err := metrics.HexContrastRatio(base, accent)
	if err != nil {
		return nil, err
	}
	check := &TokenCheck{
		BaseColor:             base,
		AccentColor:           accent,
		ContrastRatio:         contrast,
		ContrastPassesWCAGAAA: contrast >= 7.0,
		ContrastPassesWCAGAA:  contrast >= 4.5,
	}
	switch {
	case check.ContrastPassesWCAGAAA:
		check.Recommendation = "base/accent pairing meets WCAG AAA"
	case check.ContrastPassesWCAGAA:
		check.Recommendation = "base/accent pairing meets WCAG AA only; avoid it for small text"
	default:
		check.Recommendation = "base/accent pairing fails WCAG AA; do not place accent text on the base color"
	}
	return check, nil
}

// WriteReport writes the report as indented JSON, creating parent directories
func WriteReport(path string, report Report) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
