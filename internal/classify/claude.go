package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/pkg/anthropic"
)

const classifySystemPrompt = `You are an expert roofing contractor and building inspector. Analyze the provided satellite imagery and building data to classify the roof type with high accuracy. Consider roof pitch, number of slopes, presence of dormers, and overall building geometry.`

// jsonObjectRe finds the first JSON object in a model response, tolerating
// surrounding prose.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Claude classifies roofs with a vision model and cross-checks the answer
// against the segment-count heuristic. Geometry wins when it is clearly
// more confident than the model.
type Claude struct {
	cfg    config.ClassifyConfig
	client anthropic.Client
}

// NewClaude creates the vision classifier backend.
func NewClaude(cfg config.ClassifyConfig, client anthropic.Client) *Claude {
	return &Claude{cfg: cfg, client: client}
}

func (c *Claude) Classify(ctx context.Context, in Input) (model.RoofClassification, error) {
	if in.Images != nil {
		coverage := in.Images.MaskCoverage()
		if coverage < c.cfg.MinMaskCoverage {
			return model.RoofClassification{
				RoofType:   model.RoofTypeUnknown,
				Confidence: 0,
				Method:     "claude_vision",
				Notes:      fmt.Sprintf("building mask covers %.1f%% of the scene; too little roof visible to classify", coverage*100),
			}, nil
		}
	}

	blocks := []anthropic.Block{anthropic.TextBlock(c.buildPrompt(in))}
	attached := 0
	for _, img := range in.Processed {
		if attached >= c.cfg.MaxImages {
			break
		}
		if img.Base64 == "" {
			continue
		}
		blocks = append(blocks, anthropic.ImageBlock("image/png", img.Base64))
		attached++
	}

	temperature := 0.1
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: 500,
		System: []anthropic.SystemBlock{
			{Text: classifySystemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Blocks: blocks},
		},
		Temperature: &temperature,
	})
	if err != nil {
		// The heuristic cut still produces a usable answer when the
		// model is unreachable.
		zap.L().Warn("vision classification failed, falling back to geometry",
			zap.Error(err),
		)
		cls, herr := NewHeuristic(c.cfg).Classify(ctx, in)
		if herr != nil {
			return model.RoofClassification{}, herr
		}
		cls.Method = "claude_vision"
		cls.Notes = "vision analysis unavailable; classified from segment geometry: " + cls.Notes
		return cls, nil
	}
	resp.Usage.LogCost(c.cfg.Model, "classify")

	aiType, aiConfidence := extractClassification(resp.Text())
	finalType, finalConfidence := validateWithGeometry(aiType, aiConfidence, in)

	zap.L().Info("roof classified",
		zap.String("model_roof_type", string(aiType)),
		zap.Float64("model_confidence", aiConfidence),
		zap.String("roof_type", string(finalType)),
		zap.Float64("confidence", finalConfidence),
		zap.Int("images_attached", attached),
	)

	return model.RoofClassification{
		RoofType:   finalType,
		Confidence: finalConfidence,
		Method:     "claude_vision",
		Notes:      fmt.Sprintf("model: %s (%.2f), geometry check: %s", aiType, aiConfidence, segmentCountType(in.SegmentCount, in.Pitches)),
	}, nil
}

func (c *Claude) buildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Classify this roof using the building data below, then verify against the attached satellite images.\n\n")
	b.WriteString("SEGMENT COUNT GUIDE:\n")
	b.WriteString("- 1 segment = SHED or FLAT\n")
	b.WriteString("- 2 segments = GABLE (most common residential roof)\n")
	b.WriteString("- 3 segments = GABLE with dormer\n")
	b.WriteString("- 4-5 segments = HIP roof\n")
	b.WriteString("- 6+ segments = COMPLEX roof\n\n")
	fmt.Fprintf(&b, "BUILDING DATA:\n- Total roof segments: %d\n- Total roof area: %.1f m2\n\nSEGMENT DETAILS:\n", in.SegmentCount, in.AreaM2)
	for i := 0; i < in.SegmentCount; i++ {
		fmt.Fprintf(&b, "Segment %d:", i+1)
		if i < len(in.Pitches) {
			fmt.Fprintf(&b, " pitch %.1f deg,", in.Pitches[i])
		}
		if i < len(in.Azimuths) {
			fmt.Fprintf(&b, " azimuth %.1f deg", in.Azimuths[i])
		}
		b.WriteString("\n")
	}
	b.WriteString("\nVISUAL CHECK: does the roof show 2 main slopes (gable) or 4+ slopes meeting at ridges (hip)?\n\n")
	b.WriteString("Return ONLY this JSON:\n")
	b.WriteString(`{"roof_type": "gable|hip|shed|gambrel|mansard|flat|complex", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`)
	return b.String()
}

// extractClassification parses the model response: preferably an embedded
// JSON object, otherwise a keyword scan over the prose.
func extractClassification(text string) (model.RoofType, float64) {
	if m := jsonObjectRe.FindString(text); m != "" {
		var parsed struct {
			RoofType   string  `json:"roof_type"`
			Confidence float64 `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(m), &parsed); err == nil && parsed.RoofType != "" {
			confidence := parsed.Confidence
			if confidence <= 0 || confidence > 1 {
				confidence = 0.8
			}
			return model.ParseRoofType(parsed.RoofType), confidence
		}
	}

	lower := strings.ToLower(text)
	found := model.RoofTypeUnknown
	for _, rt := range []model.RoofType{
		model.RoofTypeFlat, model.RoofTypeShed, model.RoofTypeGable,
		model.RoofTypeGambrel, model.RoofTypeHip, model.RoofTypeMansard,
		model.RoofTypeComplex,
	} {
		if strings.Contains(lower, string(rt)) {
			found = rt
			break
		}
	}

	confidence := 0.7
	switch {
	case strings.Contains(lower, "unclear") || strings.Contains(lower, "difficult"):
		confidence = 0.5
	case strings.Contains(lower, "confident") || strings.Contains(lower, "clear"):
		confidence = 0.9
	}
	return found, confidence
}

// validateWithGeometry reconciles the model's answer with the segment
// count rule. A clearly more confident geometric reading overrides the
// model; a marginally better one splits the difference.
func validateWithGeometry(aiType model.RoofType, aiConfidence float64, in Input) (model.RoofType, float64) {
	if in.SegmentCount == 0 {
		return aiType, aiConfidence * 0.8
	}

	geomType := segmentCountType(in.SegmentCount, in.Pitches)
	geomConfidence := agreementConfidence(in.SegmentCount, aiType, geomType)

	switch {
	case geomConfidence > aiConfidence+0.15:
		return geomType, geomConfidence
	case geomConfidence > aiConfidence:
		return geomType, (aiConfidence + geomConfidence) / 2
	default:
		return aiType, math.Max(aiConfidence, geomConfidence*0.9)
	}
}

// agreementConfidence scores the count-only rule, rewarding agreement with
// the model and penalizing pairings the geometry makes unlikely. Clamped
// to [0.4, 0.95].
func agreementConfidence(count int, aiType, geomType model.RoofType) float64 {
	confidence := 0.8

	switch {
	case count == 2:
		confidence += 0.15
	case count == 4:
		confidence += 0.1
	case count >= 2 && count <= 5:
		confidence += 0.1
	case count > 5:
		confidence -= 0.1
	}

	mainTypes := map[model.RoofType]bool{model.RoofTypeGable: true, model.RoofTypeHip: true}
	switch {
	case aiType == geomType:
		confidence += 0.1
	case mainTypes[aiType] && mainTypes[geomType]:
		confidence += 0.05
	case aiType == model.RoofTypeUnknown && geomType != model.RoofTypeUnknown:
		confidence += 0.1
	}

	// Two slopes are rarely a hip; four are rarely a plain gable.
	if count == 2 && aiType == model.RoofTypeHip {
		confidence -= 0.2
	} else if count == 4 && aiType == model.RoofTypeGable {
		confidence -= 0.2
	}

	return math.Max(0.4, math.Min(0.95, confidence))
}
