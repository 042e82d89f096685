package model

import (
	"math"

	"github.com/twpayne/go-geom"
)

// MetersToFeet is the meters→feet conversion factor used throughout.
const MetersToFeet = 3.28084

// EaveSegment is one directed footprint edge in meters, tagged with whether
// the roof surface sheds rainfall over it (eave) rather than meeting a
// vertical gable wall (rake).
type EaveSegment struct {
	Start geom.Coord `json:"start"`
	End   geom.Coord `json:"end"`
	// SlopeAdjacent marks edges where the roof surface drops toward the
	// exterior along the outward normal.
	SlopeAdjacent bool `json:"slope_adjacent"`
	// LowConfidence marks edges that had insufficient or invalid elevation
	// samples; they are included anyway (fail open) and surfaced as warnings.
	LowConfidence bool `json:"low_confidence"`
}

// LengthM returns the segment length in meters.
func (s EaveSegment) LengthM() float64 {
	dx := s.End[0] - s.Start[0]
	dy := s.End[1] - s.Start[1]
	return math.Hypot(dx, dy)
}

// EstimatedRange bounds the gutter estimate in feet.
type EstimatedRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GutterEstimate is the final artifact returned to the caller. Field names
// and scales are stable for downstream consumers: lengths in feet, confidence
// in [0,1], waste factor as a fraction.
type GutterEstimate struct {
	TotalGutterFt      float64        `json:"total_gutter_ft"`
	EaveLengthFt       float64        `json:"eave_length_ft"`
	DownspoutsEstimate int            `json:"downspouts_estimate"`
	WasteFactor        float64        `json:"waste_factor"`
	ComplexityFactor   float64        `json:"complexity_factor"`
	EstimatedRange     EstimatedRange `json:"estimated_range"`
	RoofType           RoofType       `json:"roof_type"`
	Confidence         float64        `json:"confidence"`
	Warnings           []string       `json:"warnings"`
}

// BuildingSummary condenses the provider's building-insight record for the
// report envelope.
type BuildingSummary struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	GroundAreaM2     float64 `json:"ground_area_m2"`
	PerimeterM       float64 `json:"perimeter_m"`
	RoofSegmentCount int     `json:"roof_segment_count"`
	ImageryDate      string  `json:"imagery_date,omitempty"`
	FootprintSource  string  `json:"footprint_source"`
}

// ReportImages carries the processed imagery returned with the report.
type ReportImages struct {
	ImagesProcessed int              `json:"images_processed"`
	Items           []ProcessedImage `json:"items"`
}

// Report is the envelope returned by the estimate operation.
type Report struct {
	ID                 string             `json:"id"`
	Success            bool               `json:"success"`
	Address            string             `json:"address"`
	BuildingInsights   BuildingSummary    `json:"building_insights"`
	RoofClassification RoofClassification `json:"roof_classification"`
	GutterEstimate     GutterEstimate     `json:"gutter_estimate"`
	Images             ReportImages       `json:"images"`
}
