package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/perimeter"
)

func testCfg() config.EstimatorConfig {
	return config.EstimatorConfig{
		WasteFactorBase:     0.10,
		WasteFactorElevated: 0.15,
		LowConfidence:       0.6,
		HighConfidence:      0.8,
		SpreadHigh:          0.10,
		SpreadMid:           0.20,
		SpreadLow:           0.35,
		DownspoutSpacingFt:  35,
		MinDownspouts:       2,
		ComplexityBaseline:  0.15,
		ComplexityCap:       1.5,
	}
}

func gable(confidence float64) model.RoofClassification {
	return model.RoofClassification{RoofType: model.RoofTypeGable, Confidence: confidence}
}

func TestEstimate_GableScenario(t *testing.T) {
	// 40ft x 30ft rectangle: eave 140ft, 4 segments over 42.67m hull.
	p := perimeter.Result{EaveLengthFt: 140, ComplexitySignal: 4.0 / 42.672}
	est := New(testCfg()).Estimate(p, gable(0.9))

	assert.InDelta(t, 140, est.EaveLengthFt, 0.01)
	assert.InDelta(t, 0.10, est.WasteFactor, 1e-9)
	assert.InDelta(t, 1.0, est.ComplexityFactor, 1e-9)
	assert.InDelta(t, 154.0, est.TotalGutterFt, 1e-9)
	assert.Equal(t, 5, est.DownspoutsEstimate)
	assert.InDelta(t, 138.6, est.EstimatedRange.Min, 1e-9)
	assert.InDelta(t, 169.4, est.EstimatedRange.Max, 1e-9)
	assert.Empty(t, est.Warnings)
}

func TestEstimate_FlatScenario(t *testing.T) {
	p := perimeter.Result{EaveLengthFt: 140, ComplexitySignal: 4.0 / 42.672}
	est := New(testCfg()).Estimate(p, model.RoofClassification{RoofType: model.RoofTypeFlat, Confidence: 0.95})

	assert.InDelta(t, 140, est.EaveLengthFt, 0.01)
	assert.InDelta(t, 154.0, est.TotalGutterFt, 1e-9)
}

func TestEstimate_Monotonic(t *testing.T) {
	e := New(testCfg())
	cls := gable(0.9)
	prev := -1.0
	for ft := 10.0; ft <= 500; ft += 7.5 {
		est := e.Estimate(perimeter.Result{EaveLengthFt: ft}, cls)
		assert.GreaterOrEqual(t, est.TotalGutterFt, prev, "total must be non-decreasing in eave length")
		prev = est.TotalGutterFt
	}
}

func TestEstimate_RangeSpreadBands(t *testing.T) {
	e := New(testCfg())
	p := perimeter.Result{EaveLengthFt: 100}

	cases := []struct {
		confidence float64
		spread     float64
	}{
		{0.95, 0.10},
		{0.80, 0.10},
		{0.79, 0.20},
		{0.60, 0.20},
		{0.59, 0.35},
		{0.10, 0.35},
	}
	for _, tc := range cases {
		est := e.Estimate(p, gable(tc.confidence))
		total := est.TotalGutterFt
		assert.InDelta(t, total*(1-tc.spread), est.EstimatedRange.Min, 0.05, "confidence %.2f min", tc.confidence)
		assert.InDelta(t, total*(1+tc.spread), est.EstimatedRange.Max, 0.05, "confidence %.2f max", tc.confidence)
	}
}

func TestEstimate_Downspouts(t *testing.T) {
	e := New(testCfg())

	// Contrive eave lengths so total lands exactly on the checked values:
	// total = eave * 1.1 with base waste and complexity 1.0.
	est := e.Estimate(perimeter.Result{EaveLengthFt: 140 / 1.1}, gable(0.9))
	assert.InDelta(t, 140, est.TotalGutterFt, 0.05)
	assert.Equal(t, 4, est.DownspoutsEstimate)

	est = e.Estimate(perimeter.Result{EaveLengthFt: 34 / 1.1}, gable(0.9))
	assert.InDelta(t, 34, est.TotalGutterFt, 0.05)
	assert.Equal(t, 2, est.DownspoutsEstimate)

	// Minimum two downspouts even for tiny structures.
	est = e.Estimate(perimeter.Result{EaveLengthFt: 5}, gable(0.9))
	assert.Equal(t, 2, est.DownspoutsEstimate)
}

func TestEstimate_UnknownRoofType(t *testing.T) {
	est := New(testCfg()).Estimate(perimeter.Result{EaveLengthFt: 120}, model.RoofClassification{
		RoofType: model.RoofTypeUnknown, Confidence: 0,
	})

	assert.InDelta(t, 0.15, est.WasteFactor, 1e-9)
	assert.NotEmpty(t, est.Warnings)
	assert.Contains(t, est.Warnings[0], "could not be classified")
}

func TestEstimate_ElevatedWaste(t *testing.T) {
	e := New(testCfg())

	// Low confidence elevates waste.
	est := e.Estimate(perimeter.Result{EaveLengthFt: 100}, gable(0.5))
	assert.InDelta(t, 0.15, est.WasteFactor, 1e-9)

	// COMPLEX elevates waste even at high confidence.
	est = e.Estimate(perimeter.Result{EaveLengthFt: 100}, model.RoofClassification{
		RoofType: model.RoofTypeComplex, Confidence: 0.9,
	})
	assert.InDelta(t, 0.15, est.WasteFactor, 1e-9)

	// HIP at high confidence keeps the base factor.
	est = e.Estimate(perimeter.Result{EaveLengthFt: 100}, model.RoofClassification{
		RoofType: model.RoofTypeHip, Confidence: 0.9,
	})
	assert.InDelta(t, 0.10, est.WasteFactor, 1e-9)
}

func TestEstimate_ComplexityFactor(t *testing.T) {
	e := New(testCfg())

	// Below baseline floors at 1.0.
	est := e.Estimate(perimeter.Result{EaveLengthFt: 100, ComplexitySignal: 0.05}, gable(0.9))
	assert.InDelta(t, 1.0, est.ComplexityFactor, 1e-9)

	// Between floor and cap scales linearly.
	est = e.Estimate(perimeter.Result{EaveLengthFt: 100, ComplexitySignal: 0.18}, gable(0.9))
	assert.InDelta(t, 1.2, est.ComplexityFactor, 1e-9)

	// Above cap clamps and warns.
	est = e.Estimate(perimeter.Result{EaveLengthFt: 100, ComplexitySignal: 0.9}, gable(0.9))
	assert.InDelta(t, 1.5, est.ComplexityFactor, 1e-9)
	assert.NotEmpty(t, est.Warnings)
	assert.Contains(t, est.Warnings[len(est.Warnings)-1], "complexity")
}

func TestEstimate_LowConfidenceSegmentWarning(t *testing.T) {
	est := New(testCfg()).Estimate(perimeter.Result{EaveLengthFt: 100, LowConfidenceSegments: 2}, gable(0.9))
	assert.Len(t, est.Warnings, 1)
	assert.Contains(t, est.Warnings[0], "elevation data")
}

func TestEstimate_Deterministic(t *testing.T) {
	e := New(testCfg())
	p := perimeter.Result{EaveLengthFt: 137.3, ComplexitySignal: 0.21, LowConfidenceSegments: 1}
	cls := model.RoofClassification{RoofType: model.RoofTypeHip, Confidence: 0.72}

	a := e.Estimate(p, cls)
	b := e.Estimate(p, cls)
	assert.Equal(t, a, b)
}
