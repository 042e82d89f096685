// Package estimator turns eave length and roof classification into a gutter
// estimate with bounded uncertainty.
package estimator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/perimeter"
)

// Estimator applies the calibrated waste, complexity, and range rules.
// All outputs are deterministic for identical inputs.
type Estimator struct {
	cfg config.EstimatorConfig
}

// New creates an Estimator with the given calibration.
func New(cfg config.EstimatorConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate computes the final gutter estimate from the perimeter result and
// the roof classification.
func (e *Estimator) Estimate(p perimeter.Result, classification model.RoofClassification) model.GutterEstimate {
	lowConfidence := classification.Confidence < e.cfg.LowConfidence

	waste := e.cfg.WasteFactorBase
	if lowConfidence ||
		classification.RoofType == model.RoofTypeComplex ||
		classification.RoofType == model.RoofTypeUnknown {
		waste = e.cfg.WasteFactorElevated
	}

	complexity := 1.0
	capped := false
	if e.cfg.ComplexityBaseline > 0 {
		complexity = p.ComplexitySignal / e.cfg.ComplexityBaseline
	}
	if complexity < 1.0 {
		complexity = 1.0
	}
	if complexity >= e.cfg.ComplexityCap {
		complexity = e.cfg.ComplexityCap
		capped = true
	}

	total := round1(p.EaveLengthFt * complexity * (1 + waste))

	downspouts := int(math.Ceil(total / e.cfg.DownspoutSpacingFt))
	if downspouts < e.cfg.MinDownspouts {
		downspouts = e.cfg.MinDownspouts
	}

	spread := e.rangeSpread(classification.Confidence)

	warnings := make([]string, 0, 4)
	if classification.RoofType == model.RoofTypeUnknown {
		warnings = append(warnings, "roof type could not be classified; estimate uses conservative defaults")
	}
	if lowConfidence {
		warnings = append(warnings, fmt.Sprintf("classification confidence %.2f is low; estimated range widened to ±%.0f%%", classification.Confidence, spread*100))
	}
	warnings = append(warnings, p.Warnings()...)
	if capped {
		warnings = append(warnings, "roof complexity exceeds model cap; gutter length may be undercounted")
	}

	est := model.GutterEstimate{
		TotalGutterFt:      total,
		EaveLengthFt:       round1(p.EaveLengthFt),
		DownspoutsEstimate: downspouts,
		WasteFactor:        waste,
		ComplexityFactor:   complexity,
		EstimatedRange: model.EstimatedRange{
			Min: round1(total * (1 - spread)),
			Max: round1(total * (1 + spread)),
		},
		RoofType:   classification.RoofType,
		Confidence: classification.Confidence,
		Warnings:   warnings,
	}

	zap.L().Info("estimator: gutter estimate computed",
		zap.Float64("total_gutter_ft", est.TotalGutterFt),
		zap.Float64("eave_length_ft", est.EaveLengthFt),
		zap.String("roof_type", string(est.RoofType)),
		zap.Float64("confidence", est.Confidence),
		zap.Float64("waste_factor", est.WasteFactor),
		zap.Float64("complexity_factor", est.ComplexityFactor),
		zap.Int("downspouts", est.DownspoutsEstimate),
		zap.Int("warnings", len(est.Warnings)),
	)

	return est
}

// rangeSpread maps a confidence value to the fractional width of the
// estimated range.
func (e *Estimator) rangeSpread(confidence float64) float64 {
	switch {
	case confidence >= e.cfg.HighConfidence:
		return e.cfg.SpreadHigh
	case confidence >= e.cfg.LowConfidence:
		return e.cfg.SpreadMid
	default:
		return e.cfg.SpreadLow
	}
}

// round1 rounds to one decimal place, half away from zero. Environment
// independent: no float formatting involved.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
