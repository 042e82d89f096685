package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
)

const earthRadiusM = 6371000.0

// ProjectRing converts a WGS84 lon/lat ring to local tangent-plane meters
// centered on (centerLat, centerLng). An equirectangular projection is
// accurate to well under a centimeter at building scale, which is all the
// eave extraction needs. X grows east, Y grows north, matching the
// elevation grid's centered origin.
func ProjectRing(ring []geom.Coord, centerLat, centerLng float64) []geom.Coord {
	cosLat := math.Cos(centerLat * math.Pi / 180)
	out := make([]geom.Coord, 0, len(ring))
	for _, c := range ring {
		x := (c[0] - centerLng) * math.Pi / 180 * earthRadiusM * cosLat
		y := (c[1] - centerLat) * math.Pi / 180 * earthRadiusM
		out = append(out, geom.Coord{x, y})
	}
	return out
}

// RectangleRing builds a closed-form rectangle ring in meters from a
// lat/lng-aligned bounding box, centered on (centerLat, centerLng).
// Vertices run counterclockwise starting at the southwest corner.
func RectangleRing(swLat, swLng, neLat, neLng, centerLat, centerLng float64) []geom.Coord {
	corners := []geom.Coord{
		{swLng, swLat},
		{neLng, swLat},
		{neLng, neLat},
		{swLng, neLat},
	}
	return ProjectRing(corners, centerLat, centerLng)
}
