package classify

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
)

// azimuthBinDegrees groups segment azimuths into orientation buckets.
// Slopes within the same 15° bucket face the same way for classification
// purposes.
const azimuthBinDegrees = 15.0

// Heuristic classifies a roof from segment geometry alone: segment count,
// orientation diversity, and pitch distribution.
type Heuristic struct {
	cfg config.ClassifyConfig
}

// NewHeuristic creates the geometry-only classifier backend.
func NewHeuristic(cfg config.ClassifyConfig) *Heuristic {
	return &Heuristic{cfg: cfg}
}

func (h *Heuristic) Classify(ctx context.Context, in Input) (model.RoofClassification, error) {
	if err := ctx.Err(); err != nil {
		return model.RoofClassification{}, err
	}

	if in.Images != nil {
		coverage := in.Images.MaskCoverage()
		if coverage < h.cfg.MinMaskCoverage {
			return model.RoofClassification{
				RoofType:   model.RoofTypeUnknown,
				Confidence: 0,
				Method:     "heuristic",
				Notes:      fmt.Sprintf("building mask covers %.1f%% of the scene; too little roof visible to classify", coverage*100),
			}, nil
		}
	}

	if in.SegmentCount == 0 {
		return model.RoofClassification{
			RoofType:   model.RoofTypeUnknown,
			Confidence: 0.3,
			Method:     "heuristic",
			Notes:      "no roof segments available for analysis",
		}, nil
	}

	uniqueAz := uniqueAzimuths(in.Azimuths)
	geomType := predictFromGeometry(in.SegmentCount, uniqueAz, in.Pitches, in.AreaM2)
	simpleType := segmentCountType(in.SegmentCount, in.Pitches)
	confidence := geometryConfidence(geomType, simpleType, in.SegmentCount, uniqueAz)

	zap.L().Debug("heuristic roof classification",
		zap.Int("segments", in.SegmentCount),
		zap.Int("unique_azimuths", uniqueAz),
		zap.String("roof_type", string(geomType)),
		zap.Float64("confidence", confidence),
	)

	return model.RoofClassification{
		RoofType:   geomType,
		Confidence: confidence,
		Method:     "heuristic",
		Notes:      fmt.Sprintf("%d segment(s), %d distinct orientation(s)", in.SegmentCount, uniqueAz),
	}, nil
}

// uniqueAzimuths counts distinct slope orientations after binning.
func uniqueAzimuths(azimuths []float64) int {
	seen := make(map[int]struct{}, len(azimuths))
	for _, a := range azimuths {
		a = math.Mod(a, 360)
		if a < 0 {
			a += 360
		}
		seen[int(a/azimuthBinDegrees)] = struct{}{}
	}
	return len(seen)
}

// segmentCountType is the coarse count-only rule used to sanity-check the
// full geometric prediction: 1 segment is a shed or flat roof, 2-3 a
// gable, 4-5 a hip, 6 and up a complex roof.
func segmentCountType(count int, pitches []float64) model.RoofType {
	switch {
	case count == 1:
		if len(pitches) > 0 && stat.Mean(pitches, nil) < 15 {
			return model.RoofTypeFlat
		}
		return model.RoofTypeShed
	case count <= 3:
		return model.RoofTypeGable
	case count <= 5:
		return model.RoofTypeHip
	case count >= 6:
		return model.RoofTypeComplex
	default:
		return model.RoofTypeUnknown
	}
}

// predictFromGeometry refines the count rule with orientation diversity
// and pitch patterns.
func predictFromGeometry(count, uniqueAz int, pitches []float64, areaM2 float64) model.RoofType {
	var avgPitch float64
	if len(pitches) > 0 {
		avgPitch = stat.Mean(pitches, nil)
	}
	anySteep := false
	for _, p := range pitches {
		if p > 45 {
			anySteep = true
			break
		}
	}

	switch {
	case count == 1:
		if avgPitch < 15 {
			return model.RoofTypeFlat
		}
		return model.RoofTypeShed

	case count == 2:
		if uniqueAz == 2 {
			return model.RoofTypeGable
		}
		// Two slopes facing the same way are stacked pitches.
		return model.RoofTypeGambrel

	case count == 3:
		if uniqueAz >= 3 {
			return model.RoofTypeHip
		}
		return model.RoofTypeGable // gable with dormer

	case count == 4:
		if uniqueAz >= 3 {
			if anySteep {
				return model.RoofTypeMansard
			}
			return model.RoofTypeHip
		}
		return model.RoofTypeGable // gable with multiple dormers

	case count == 5:
		if uniqueAz >= 4 {
			return model.RoofTypeHip
		}
		return model.RoofTypeGable

	case count >= 6:
		if uniqueAz >= 5 {
			return model.RoofTypeComplex
		}
		return model.RoofTypeHip
	}

	// Unreachable for count >= 1, kept as an explicit fallback.
	if areaM2 > 200 {
		return model.RoofTypeComplex
	}
	if avgPitch < 20 {
		return model.RoofTypeFlat
	}
	return model.RoofTypeGable
}

// geometryConfidence scores how trustworthy the geometric prediction is.
// Clear segment counts and orientation diversity that matches the
// predicted type raise it; disagreement between the refined and coarse
// rules lowers it. Clamped to [0.3, 0.95].
func geometryConfidence(geomType, simpleType model.RoofType, count, uniqueAz int) float64 {
	confidence := 0.7

	if geomType == simpleType {
		confidence += 0.2
	} else if (geomType == model.RoofTypeComplex || geomType == model.RoofTypeUnknown) && simpleType != model.RoofTypeUnknown {
		confidence += 0.1
	}

	switch {
	case count == 2:
		confidence += 0.15
	case count == 4:
		confidence += 0.1
	case count >= 2 && count <= 6:
		confidence += 0.1
	case count > 6:
		confidence -= 0.1
	}

	switch {
	case uniqueAz == 2:
		confidence += 0.1
	case uniqueAz >= 3 && uniqueAz <= 4:
		confidence += 0.1
	case uniqueAz >= 5:
		confidence += 0.05
	case uniqueAz == 1:
		confidence -= 0.1
	}

	if count == 4 && uniqueAz >= 3 {
		if geomType == model.RoofTypeHip {
			confidence += 0.1
		} else if geomType == model.RoofTypeGable {
			confidence -= 0.1
		}
	}

	return math.Max(0.3, math.Min(0.95, confidence))
}
