// Package footprint looks up building outlines from local building-footprint
// shapefiles (county GIS exports, Microsoft building footprints, etc).
package footprint

import (
	"context"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// ErrNotFound reports that no footprint polygon contains the query point.
var ErrNotFound = eris.New("footprint: no building contains point")

// Building is one building outline in WGS84 lon/lat degrees. The ring is
// open: the closing vertex is not repeated.
type Building struct {
	Ring []geom.Coord
}

// Provider finds the building outline containing a coordinate.
type Provider interface {
	Find(ctx context.Context, lat, lng float64) (*Building, error)
}

// ShapefileProvider serves footprints from a shapefile loaded into memory.
type ShapefileProvider struct {
	polygons []*geom.Polygon
}

// NewShapefileProvider reads every polygon record from the shapefile at
// path. Records that are not polygons are skipped.
func NewShapefileProvider(path string) (*ShapefileProvider, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "footprint: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	p := &ShapefileProvider{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		for _, g := range polygonRings(poly) {
			p.polygons = append(p.polygons, g)
		}
	}
	if skipped > 0 {
		zap.L().Debug("footprint: skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	zap.L().Info("footprint shapefile loaded",
		zap.String("path", path),
		zap.Int("buildings", len(p.polygons)),
	)
	return p, nil
}

// Find returns the first footprint whose outer ring contains the point.
func (p *ShapefileProvider) Find(ctx context.Context, lat, lng float64) (*Building, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	point := geom.Coord{lng, lat}
	for _, poly := range p.polygons {
		ring := poly.LinearRing(0)
		if xy.IsPointInRing(geom.XY, point, ring.FlatCoords()) {
			coords := ring.Coords()
			// Drop the duplicated closing vertex.
			if len(coords) > 1 && coords[0].Equal(geom.XY, coords[len(coords)-1]) {
				coords = coords[:len(coords)-1]
			}
			return &Building{Ring: coords}, nil
		}
	}
	return nil, eris.Wrapf(ErrNotFound, "(%f, %f)", lat, lng)
}

// polygonRings converts a shapefile polygon record to go-geom polygons,
// one per outer ring. Shapefile polygons store holes as additional parts;
// hole rings are wound counterclockwise and are skipped here since an
// eave perimeter follows the outer wall.
func polygonRings(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var out []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // ring needs at least 3 distinct vertices plus closure
			continue
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if signedRingArea(flat) > 0 {
			// Counterclockwise part: a hole in shapefile winding order.
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("footprint: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		out = append(out, poly)
	}
	return out
}

// signedRingArea computes twice the signed area of a flat XY ring.
// Shapefile outer rings are clockwise, giving a negative value.
func signedRingArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[i*2]*flat[j*2+1] - flat[j*2]*flat[i*2+1]
	}
	return sum
}
