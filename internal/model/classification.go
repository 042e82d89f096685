package model

import "strings"

// RoofType is the discrete roof geometry label.
type RoofType string

const (
	RoofTypeGable   RoofType = "gable"
	RoofTypeHip     RoofType = "hip"
	RoofTypeFlat    RoofType = "flat"
	RoofTypeShed    RoofType = "shed"
	RoofTypeGambrel RoofType = "gambrel"
	RoofTypeMansard RoofType = "mansard"
	RoofTypeComplex RoofType = "complex"
	RoofTypeUnknown RoofType = "unknown"
)

// ParseRoofType maps a free-form label to a RoofType, defaulting to unknown.
func ParseRoofType(s string) RoofType {
	switch RoofType(strings.ToLower(strings.TrimSpace(s))) {
	case RoofTypeGable:
		return RoofTypeGable
	case RoofTypeHip:
		return RoofTypeHip
	case RoofTypeFlat:
		return RoofTypeFlat
	case RoofTypeShed:
		return RoofTypeShed
	case RoofTypeGambrel:
		return RoofTypeGambrel
	case RoofTypeMansard:
		return RoofTypeMansard
	case RoofTypeComplex:
		return RoofTypeComplex
	default:
		return RoofTypeUnknown
	}
}

// RoofClassification is the classifier's output: one label plus calibrated
// confidence. Produced once per request and immutable thereafter.
type RoofClassification struct {
	RoofType   RoofType `json:"roof_type"`
	Confidence float64  `json:"confidence"` // calibrated, in [0,1]
	Method     string   `json:"method"`     // "heuristic" or "claude_vision"
	Notes      string   `json:"notes,omitempty"`
}
