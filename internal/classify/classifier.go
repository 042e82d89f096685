// Package classify determines a roof type and confidence from satellite
// imagery and per-segment roof statistics. Two backends are provided: a
// pure geometry heuristic and a Claude vision model cross-checked against
// the same heuristic.
package classify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/pkg/anthropic"
)

// Input carries everything a backend may consult: processed imagery for
// visual inspection and roof segment statistics for geometric analysis.
type Input struct {
	Images    *model.RoofImageSet
	Processed []model.ProcessedImage

	SegmentCount int
	Pitches      []float64 // degrees, one per segment
	Azimuths     []float64 // degrees clockwise from north, one per segment
	AreaM2       float64   // whole-roof ground area
}

// Classifier assigns a roof type to a building.
type Classifier interface {
	Classify(ctx context.Context, in Input) (model.RoofClassification, error)
}

// New builds the classifier selected by cfg.Backend.
func New(cfg config.ClassifyConfig) (Classifier, error) {
	switch cfg.Backend {
	case "heuristic":
		return NewHeuristic(cfg), nil
	case "claude":
		if cfg.AnthropicKey == "" {
			return nil, eris.New("classify: claude backend requires an anthropic api key")
		}
		return NewClaude(cfg, anthropic.NewClient(cfg.AnthropicKey)), nil
	default:
		return nil, eris.New(fmt.Sprintf("classify: unknown backend %q", cfg.Backend))
	}
}
