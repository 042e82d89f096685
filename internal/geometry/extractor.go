// Package geometry derives eave segments from a building footprint and an
// elevation surface.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/config"
	"github.com/Tilak559/gutter-estimate/internal/model"
)

// Extractor walks a footprint polygon edge by edge and classifies each edge
// as slope-adjacent (eave) or flush (rake) by probing the elevation grid on
// both sides of the edge.
type Extractor struct {
	cfg config.GeometryConfig
}

// NewExtractor creates an Extractor with the given tuning.
func NewExtractor(cfg config.GeometryConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract returns one segment per footprint edge, in ring order. Edges
// shorter than the minimum edge length are merged into their predecessor.
// Edges with insufficient elevation data are included with LowConfidence set;
// no segment is ever dropped, so summed segment length equals the (merged)
// polygon perimeter.
func (e *Extractor) Extract(fp *model.BuildingFootprint, grid *model.ElevationGrid) ([]model.EaveSegment, error) {
	if fp == nil {
		return nil, model.NewGeometryError(eris.New("geometry: nil footprint"))
	}

	ring := mergeShortEdges(fp.Ring(), e.cfg.MinEdgeM)
	if len(ring) < 3 {
		return nil, model.NewGeometryError(eris.Errorf("geometry: footprint degenerates to %d vertices after merging", len(ring)))
	}

	ccw := signedArea(ring) > 0

	segments := make([]model.EaveSegment, 0, len(ring))
	var lowConfidence int
	for i := range ring {
		start := ring[i]
		end := ring[(i+1)%len(ring)]
		seg := e.classifyEdge(start, end, ccw, grid)
		if seg.LowConfidence {
			lowConfidence++
		}
		segments = append(segments, seg)
	}

	zap.L().Debug("geometry: extracted eave segments",
		zap.Int("segments", len(segments)),
		zap.Int("low_confidence", lowConfidence),
		zap.Float64("perimeter_m", fp.PerimeterM()),
	)

	return segments, nil
}

// classifyEdge probes the grid at stations along the edge, offset along the
// outward normal on both sides. An edge is slope-adjacent when the surface
// height drops toward the exterior by at least the configured threshold.
func (e *Extractor) classifyEdge(start, end geom.Coord, ccw bool, grid *model.ElevationGrid) model.EaveSegment {
	seg := model.EaveSegment{Start: start, End: end}

	dx := end[0] - start[0]
	dy := end[1] - start[1]
	length := math.Hypot(dx, dy)
	if length == 0 || grid == nil {
		seg.SlopeAdjacent = true
		seg.LowConfidence = true
		return seg
	}

	// Outward normal for a CCW ring points right of the edge direction.
	nx, ny := dy/length, -dx/length
	if !ccw {
		nx, ny = -nx, -ny
	}

	stations := e.cfg.StationsPerEdge
	if stations < 1 {
		stations = 1
	}

	var validPairs int
	var dropSum float64
	for i := 0; i < stations; i++ {
		t := float64(i+1) / float64(stations+1)
		px := start[0] + t*dx
		py := start[1] + t*dy

		inH, inOK := grid.Sample(px-nx*e.cfg.ProbeOffsetM, py-ny*e.cfg.ProbeOffsetM)
		outH, outOK := grid.Sample(px+nx*e.cfg.ProbeOffsetM, py+ny*e.cfg.ProbeOffsetM)
		if !inOK || !outOK {
			continue
		}
		validPairs++
		dropSum += inH - outH
	}

	if validPairs == 0 {
		// Fail open: no elevation signal, include as eave but flag it.
		seg.SlopeAdjacent = true
		seg.LowConfidence = true
		return seg
	}

	seg.SlopeAdjacent = dropSum/float64(validPairs) >= e.cfg.EaveDropM
	seg.LowConfidence = validPairs*2 < stations
	return seg
}

// mergeShortEdges removes vertices that create edges below minEdge, folding
// the short edge into its predecessor. The closing edge is handled by the
// ring wrap-around.
func mergeShortEdges(ring []geom.Coord, minEdge float64) []geom.Coord {
	if minEdge <= 0 || len(ring) < 4 {
		return ring
	}
	out := make([]geom.Coord, 0, len(ring))
	for _, v := range ring {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if math.Hypot(v[0]-prev[0], v[1]-prev[1]) < minEdge {
				continue
			}
		}
		out = append(out, v)
	}
	// Closing edge may still be short; drop the final vertex if so.
	if len(out) > 3 {
		first, last := out[0], out[len(out)-1]
		if math.Hypot(first[0]-last[0], first[1]-last[1]) < minEdge {
			out = out[:len(out)-1]
		}
	}
	return out
}

// signedArea returns the shoelace area of the ring; positive for CCW winding.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}

// TotalLengthM sums segment lengths in meters.
func TotalLengthM(segments []model.EaveSegment) float64 {
	var total float64
	for _, s := range segments {
		total += s.LengthM()
	}
	return total
}
