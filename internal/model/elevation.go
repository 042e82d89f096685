package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// ElevationGrid is a row-major grid of surface height samples (meters)
// covering the footprint bounding box. Missing samples are marked invalid,
// never zero.
type ElevationGrid struct {
	Width     int
	Height    int
	CellSizeM float64
	// OriginX/OriginY locate the grid's (0,0) cell center in footprint
	// meters (min corner of the covered bounding box).
	OriginX float64
	OriginY float64

	samples []float64
	valid   []bool
}

// NewElevationGrid allocates a grid with all samples invalid.
func NewElevationGrid(width, height int, cellSizeM, originX, originY float64) (*ElevationGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("model: elevation grid dimensions %dx%d invalid", width, height)
	}
	if cellSizeM <= 0 {
		return nil, eris.Errorf("model: elevation grid cell size %f invalid", cellSizeM)
	}
	return &ElevationGrid{
		Width:     width,
		Height:    height,
		CellSizeM: cellSizeM,
		OriginX:   originX,
		OriginY:   originY,
		samples:   make([]float64, width*height),
		valid:     make([]bool, width*height),
	}, nil
}

// Set writes one sample and marks it valid.
func (g *ElevationGrid) Set(col, row int, value float64) {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return
	}
	i := row*g.Width + col
	g.samples[i] = value
	g.valid[i] = true
}

// At returns the sample at a cell, and whether it is valid.
func (g *ElevationGrid) At(col, row int) (float64, bool) {
	if col < 0 || col >= g.Width || row < 0 || row >= g.Height {
		return 0, false
	}
	i := row*g.Width + col
	return g.samples[i], g.valid[i]
}

// Sample returns the nearest-cell height at a point in footprint meters.
// The second return is false outside the grid or at invalid cells.
func (g *ElevationGrid) Sample(x, y float64) (float64, bool) {
	// Floor, not truncate: points just west or south of the origin must
	// land on a negative index, not wrap onto column/row 0.
	col := int(math.Floor((x - g.OriginX) / g.CellSizeM))
	row := int(math.Floor((y - g.OriginY) / g.CellSizeM))
	return g.At(col, row)
}

// ValidSamples returns all valid height values, for grid-level statistics.
func (g *ElevationGrid) ValidSamples() []float64 {
	out := make([]float64, 0, len(g.samples))
	for i, v := range g.samples {
		if g.valid[i] {
			out = append(out, v)
		}
	}
	return out
}
