// Package palette ranks candidate thumbnail color schemes by how likely they
// are to pass IQA, without rendering anything.
package palette

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// ErrNoPalettes is returned when there is nothing to choose from
var ErrNoPalettes = errors.New("no palettes configured")

const (
	contrastWeight = 0.6
	riskWeight     = 0.4
)

// Scored is a palette with its selection score and the inputs to it
type Scored struct {
	Index          int                  `json:"index"`
	Palette        types.Palette        `json:"palette"`
	ContrastRatio  float64              `json:"contrast_ratio"`
	BackgroundRisk types.BackgroundRisk `json:"background_risk"`
	Score          float64              `json:"score"`
}

// Score rates one palette: 60% normalized title/background contrast,
// 40% background risk (low=1, medium=0.5, high=0).
func Score(p types.Palette) (Scored, error) {
	text, err := metrics.ParseHex(p.TitleColor)
	if err != nil {
		return Scored{}, fmt.Errorf("title_color: %w", err)
	}
	bg, err := metrics.ParseHex(p.BackgroundColor)
	if err != nil {
		return Scored{}, fmt.Errorf("background_color: %w", err)
	}

	contrast := metrics.ContrastRatio(text, bg)
	risk := metrics.ClassifyBackgroundRisk(bg)
	contrastScore := math.Min(contrast/metrics.MaxContrastRatio, 1.0)

	return Scored{
		Palette:        p,
		ContrastRatio:  contrast,
		BackgroundRisk: risk,
		Score:          contrastWeight*contrastScore + riskWeight*risk.Score(),
	}, nil
}

// Rank scores every palette and orders them best first. Equal scores keep
// their configured order.
func Rank(palettes []types.Palette) ([]Scored, error) {
	if len(palettes) == 0 {
		return nil, ErrNoPalettes
	}
	scored := make([]Scored, 0, len(palettes))
	for i, p := range palettes {
		s, err := Score(p)
		if err != nil {
			return nil, fmt.Errorf("palette %d: %w", i, err)
		}
		s.Index = i
		scored = append(scored, s)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored, nil
}

// Select returns the best palette. A single palette is returned as-is.
func Select(palettes []types.Palette) (types.Palette, error) {
	switch len(palettes) {
	case 0:
		return types.Palette{}, ErrNoPalettes
	case 1:
		return palettes[0], nil
	}
	ranked, err := Rank(palettes)
	if err != nil {
		return types.Palette{}, err
	}
	return ranked[0].Palette, nil
}
