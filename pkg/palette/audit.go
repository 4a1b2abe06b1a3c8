package palette

import (
	"sort"

	"github.com/menta2k/thumbnail-iqa/pkg/metrics"
	"github.com/menta2k/thumbnail-iqa/pkg/types"
)

// Rating is the audit verdict for a palette
type Rating string

const (
	RatingBest  Rating = "BEST"
	RatingOK    Rating = "OK"
	RatingRisky Rating = "RISKY"
)

func (r Rating) order() int {
	switch r {
	case RatingBest:
		return 0
	case RatingOK:
		return 1
	default:
		return 2
	}
}

// AuditEntry describes one palette for the palette audit report
type AuditEntry struct {
	Index          int                  `json:"index"`
	Palette        types.Palette        `json:"palette"`
	ContrastRatio  float64              `json:"contrast_ratio"`
	WCAG           string               `json:"wcag"`
	BackgroundRisk types.BackgroundRisk `json:"background_risk"`
	MobileForecast string               `json:"mobile_forecast"`
	Rating         Rating               `json:"rating"`
}

// RatePalette rates a contrast/risk pair against the contrast goal
func RatePalette(contrast, goal float64, risk types.BackgroundRisk) Rating {
	switch {
	case contrast >= goal && risk == types.RiskLow:
		return RatingBest
	case contrast >= 4.5 && risk != types.RiskHigh:
		return RatingOK
	default:
		return RatingRisky
	}
}

func mobileForecast(risk types.BackgroundRisk) string {
	switch risk {
	case types.RiskLow:
		return ">= 35 (safe)"
	case types.RiskMedium:
		return "25-35 (marginal)"
	default:
		return "< 25 (weak)"
	}
}

// Audit rates every palette and orders them BEST, OK, RISKY, keeping the
// configured order within a rating.
func Audit(palettes []types.Palette, contrastGoal float64) ([]AuditEntry, error) {
	if len(palettes) == 0 {
		return nil, ErrNoPalettes
	}
	entries := make([]AuditEntry, 0, len(palettes))
	for i, p := range palettes {
		s, err := Score(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, AuditEntry{
			Index:          i,
			Palette:        p,
			ContrastRatio:  s.ContrastRatio,
			WCAG:           metrics.WCAGLevel(s.ContrastRatio),
			BackgroundRisk: s.BackgroundRisk,
			MobileForecast: mobileForecast(s.BackgroundRisk),
			Rating:         RatePalette(s.ContrastRatio, contrastGoal, s.BackgroundRisk),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rating.order() < entries[j].Rating.order()
	})
	return entries, nil
}
