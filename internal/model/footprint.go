// Package model defines the data types shared across the estimation pipeline.
package model

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// FootprintSource identifies where a building footprint polygon came from.
type FootprintSource string

const (
	// FootprintSourceSolarBBox is a rectangle derived from the Solar API
	// building bounding box projected to meters.
	FootprintSourceSolarBBox FootprintSource = "solar_bbox"
	// FootprintSourceShapefile is a true polygon from a local
	// building-footprint shapefile dataset.
	FootprintSourceShapefile FootprintSource = "shapefile"
)

// BuildingFootprint is a closed ground-plane polygon in meters, expressed in
// a local tangent plane centered on the building. Immutable once built.
type BuildingFootprint struct {
	polygon   *geom.Polygon
	Source    FootprintSource
	Latitude  float64
	Longitude float64
}

// NewBuildingFootprint validates the ring and constructs a footprint.
// The ring is an ordered sequence of XY vertices in meters; the closing edge
// back to the first vertex is implicit and appended if absent.
func NewBuildingFootprint(ring []geom.Coord, source FootprintSource, lat, lng float64) (*BuildingFootprint, error) {
	if len(ring) > 1 && ring[0].Equal(geom.XY, ring[len(ring)-1]) {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, NewGeometryError(eris.Errorf("model: footprint has %d vertices, need at least 3", len(ring)))
	}

	closed := make([]geom.Coord, 0, len(ring)+1)
	closed = append(closed, ring...)
	closed = append(closed, ring[0])

	polygon := geom.NewPolygon(geom.XY)
	if _, err := polygon.SetCoords([][]geom.Coord{closed}); err != nil {
		return nil, NewGeometryError(eris.Wrap(err, "model: set footprint coords"))
	}
	if math.Abs(polygon.Area()) == 0 {
		return nil, NewGeometryError(eris.New("model: footprint has zero area"))
	}

	return &BuildingFootprint{
		polygon:   polygon,
		Source:    source,
		Latitude:  lat,
		Longitude: lng,
	}, nil
}

// Ring returns the footprint's exterior ring without the closing vertex.
func (f *BuildingFootprint) Ring() []geom.Coord {
	coords := f.polygon.Coords()[0]
	return coords[:len(coords)-1]
}

// AreaM2 returns the footprint area in square meters. The value is always
// positive regardless of ring winding.
func (f *BuildingFootprint) AreaM2() float64 {
	return math.Abs(f.polygon.Area())
}

// PerimeterM returns the footprint perimeter in meters.
func (f *BuildingFootprint) PerimeterM() float64 {
	return f.polygon.Length()
}

// Bounds returns the footprint bounding box in meters.
func (f *BuildingFootprint) Bounds() *geom.Bounds {
	return f.polygon.Bounds()
}
