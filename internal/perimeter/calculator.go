// Package perimeter converts eave segments into gutter-relevant eave length.
package perimeter

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/geometry"
	"github.com/Tilak559/gutter-estimate/internal/model"
)

// Result is the calculator output consumed by the gutter estimator.
type Result struct {
	EaveLengthFt float64
	// ComplexitySignal is the ratio of segment count to convex-hull
	// perimeter in meters (segments per meter). More segments per unit hull
	// perimeter indicates a dormered or hipped outline.
	ComplexitySignal float64
	// CorrectionApplied is the fractional structural correction that was
	// applied, zero when none.
	CorrectionApplied float64
	// LowConfidenceSegments counts segments extracted without reliable
	// elevation data.
	LowConfidenceSegments int
}

// valleyProneTypes are roof geometries whose internal valleys and eaves are
// systematically undercounted by footprint-only extraction.
var valleyProneTypes = map[model.RoofType]bool{
	model.RoofTypeHip:     true,
	model.RoofTypeGambrel: true,
	model.RoofTypeMansard: true,
	model.RoofTypeComplex: true,
}

// Calculator sums eave segment lengths and applies roof-type corrections.
type Calculator struct {
	cfg config.PerimeterConfig
}

// NewCalculator creates a Calculator with the given correction factors.
func NewCalculator(cfg config.PerimeterConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate sums segment lengths, converts to feet, and applies the
// structural correction for valley-prone roof types. Flat roofs get no
// correction: their eave line is the footprint perimeter by definition.
func (c *Calculator) Calculate(segments []model.EaveSegment, classification model.RoofClassification) Result {
	var res Result

	totalM := geometry.TotalLengthM(segments)
	for _, s := range segments {
		if s.LowConfidence {
			res.LowConfidenceSegments++
		}
	}

	eaveFt := totalM * model.MetersToFeet
	if valleyProneTypes[classification.RoofType] {
		res.CorrectionApplied = c.cfg.StructuralCorrection
		eaveFt *= 1 + c.cfg.StructuralCorrection
	}
	res.EaveLengthFt = eaveFt

	points := make([]geom.Coord, 0, len(segments))
	for _, s := range segments {
		points = append(points, s.Start)
	}
	if hull := geometry.ConvexHullPerimeterM(points); hull > 0 {
		res.ComplexitySignal = float64(len(segments)) / hull
	}

	zap.L().Debug("perimeter: calculated eave length",
		zap.Float64("eave_length_ft", res.EaveLengthFt),
		zap.String("roof_type", string(classification.RoofType)),
		zap.Float64("correction", res.CorrectionApplied),
		zap.Float64("complexity_signal", res.ComplexitySignal),
		zap.Int("low_confidence_segments", res.LowConfidenceSegments),
	)

	return res
}

// Warnings renders the calculator's traceability messages, appended to the
// estimate's warning sequence by the estimator.
func (r Result) Warnings() []string {
	var out []string
	if r.CorrectionApplied > 0 {
		out = append(out, fmt.Sprintf("applied %.0f%% structural correction for under-detected valley eaves", r.CorrectionApplied*100))
	}
	if r.LowConfidenceSegments > 0 {
		out = append(out, fmt.Sprintf("%d eave segment(s) extracted with insufficient elevation data", r.LowConfidenceSegments))
	}
	return out
}
