package classify

import (
	"context"
	"image"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}

func darkMask() image.Image {
	return image.NewGray(image.Rect(0, 0, 2, 2))
}

func TestClaude_ParsesModelJSON(t *testing.T) {
	mc := new(mockAnthropicClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`Looking at the imagery: {"roof_type": "gable", "confidence": 0.85, "reasoning": "two opposing slopes"}`), nil)

	cfg := classifyCfg()
	cfg.Backend = "claude"
	cfg.Model = "claude-sonnet-4-5-20250929"
	c := NewClaude(cfg, mc)

	cls, err := c.Classify(context.Background(), Input{
		SegmentCount: 2,
		Pitches:      []float64{30, 30},
		Azimuths:     []float64{90, 270},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoofTypeGable, cls.RoofType)
	assert.Equal(t, "claude_vision", cls.Method)
	// Geometry agrees, so confidence lands at or above the model's own.
	assert.GreaterOrEqual(t, cls.Confidence, 0.85)
	mc.AssertExpectations(t)
}

func TestClaude_AttachesImagesUpToLimit(t *testing.T) {
	mc := new(mockAnthropicClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		images := 0
		for _, b := range req.Messages[0].Blocks {
			if b.Type == "image" {
				images++
			}
		}
		return images == 3
	})).Return(textResponse(`{"roof_type": "hip", "confidence": 0.9}`), nil)

	cfg := classifyCfg()
	cfg.Model = "claude-sonnet-4-5-20250929"
	c := NewClaude(cfg, mc)

	processed := []model.ProcessedImage{
		{Type: model.ImageTypeRGB, Base64: "aaaa"},
		{Type: model.ImageTypeMask, Base64: "bbbb"},
		{Type: model.ImageTypeDSM, Base64: "cccc"},
		{Type: model.ImageTypeRGB, Base64: "dddd"},
	}
	_, err := c.Classify(context.Background(), Input{
		Processed:    processed,
		SegmentCount: 4,
		Pitches:      []float64{25, 25, 25, 25},
		Azimuths:     []float64{0, 90, 180, 270},
	})
	require.NoError(t, err)
	mc.AssertExpectations(t)
}

func TestClaude_GeometryOverridesWeakModelAnswer(t *testing.T) {
	mc := new(mockAnthropicClient)
	// Four segments but the model hedges toward gable with low confidence.
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"roof_type": "gable", "confidence": 0.45, "reasoning": "hard to tell"}`), nil)

	cfg := classifyCfg()
	cfg.Model = "claude-sonnet-4-5-20250929"
	c := NewClaude(cfg, mc)

	cls, err := c.Classify(context.Background(), Input{
		SegmentCount: 4,
		Pitches:      []float64{25, 25, 25, 25},
		Azimuths:     []float64{0, 90, 180, 270},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoofTypeHip, cls.RoofType)
	assert.Greater(t, cls.Confidence, 0.45)
}

func TestClaude_FallsBackToGeometryOnAPIError(t *testing.T) {
	mc := new(mockAnthropicClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("anthropic: create message: 529 overloaded"))

	cfg := classifyCfg()
	cfg.Model = "claude-sonnet-4-5-20250929"
	c := NewClaude(cfg, mc)

	cls, err := c.Classify(context.Background(), Input{
		SegmentCount: 2,
		Pitches:      []float64{30, 30},
		Azimuths:     []float64{90, 270},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoofTypeGable, cls.RoofType)
	assert.Equal(t, "claude_vision", cls.Method)
	assert.Contains(t, cls.Notes, "vision analysis unavailable")
}

func TestClaude_MaskCoverageGateSkipsAPICall(t *testing.T) {
	mc := new(mockAnthropicClient)

	cfg := classifyCfg()
	cfg.Model = "claude-sonnet-4-5-20250929"
	c := NewClaude(cfg, mc)

	cls, err := c.Classify(context.Background(), Input{
		Images:       &model.RoofImageSet{Mask: darkMask()},
		SegmentCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoofTypeUnknown, cls.RoofType)
	assert.Zero(t, cls.Confidence)
	mc.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestExtractClassification(t *testing.T) {
	cases := []struct {
		name           string
		text           string
		wantType       model.RoofType
		wantConfidence float64
	}{
		{
			"clean json",
			`{"roof_type": "hip", "confidence": 0.92, "reasoning": "four slopes"}`,
			model.RoofTypeHip, 0.92,
		},
		{
			"json embedded in prose",
			"Here is my analysis.\n```json\n{\"roof_type\": \"mansard\", \"confidence\": 0.6}\n```",
			model.RoofTypeMansard, 0.6,
		},
		{
			"out-of-range confidence normalized",
			`{"roof_type": "gable", "confidence": 85}`,
			model.RoofTypeGable, 0.8,
		},
		{
			"prose fallback with hedge words",
			"The roof appears to be a gable but the image is unclear.",
			model.RoofTypeGable, 0.5,
		},
		{
			"prose fallback confident",
			"This is clearly a flat roof.",
			model.RoofTypeFlat, 0.9,
		},
		{
			"nothing recognizable",
			"I cannot tell from this data.",
			model.RoofTypeUnknown, 0.7,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt, confidence := extractClassification(tc.text)
			assert.Equal(t, tc.wantType, rt)
			assert.InDelta(t, tc.wantConfidence, confidence, 1e-9)
		})
	}
}

func TestValidateWithGeometry_NoSegmentsDiscountsModel(t *testing.T) {
	rt, confidence := validateWithGeometry(model.RoofTypeGable, 0.9, Input{})
	assert.Equal(t, model.RoofTypeGable, rt)
	assert.InDelta(t, 0.72, confidence, 1e-9)
}
