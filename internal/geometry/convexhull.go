package geometry

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
)

// ConvexHullPerimeterM returns the perimeter of the convex hull of the given
// vertices, in meters. Used as the denominator of the structural complexity
// signal: more footprint segments per unit hull perimeter means a more
// articulated (dormered, hipped) outline.
func ConvexHullPerimeterM(points []geom.Coord) float64 {
	hull := convexHull(points)
	if len(hull) < 2 {
		return 0
	}
	var perim float64
	for i := range hull {
		j := (i + 1) % len(hull)
		perim += math.Hypot(hull[j][0]-hull[i][0], hull[j][1]-hull[i][1])
	}
	return perim
}

// convexHull computes the hull with Andrew's monotone chain.
func convexHull(points []geom.Coord) []geom.Coord {
	if len(points) < 3 {
		return points
	}

	pts := make([]geom.Coord, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	cross := func(o, a, b geom.Coord) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower []geom.Coord
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []geom.Coord
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
