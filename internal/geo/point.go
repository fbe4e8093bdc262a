// Package geo holds the spatial primitives of the data model: points,
// polygons, and the station index used by spatial checks.
package geo

// Point is a location in degrees.
type Point struct {
	Lat float32
	Lon float32
}

// Polygon is an ordered boundary of a simply-connected region.
type Polygon struct {
	Points []Point
}

// Contains reports whether p lies inside the polygon, using the
// standard ray-casting algorithm. Points exactly on the boundary may
// be reported either way; the spec does not distinguish the edge case.
func (poly Polygon) Contains(p Point) bool {
	n := len(poly.Points)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := poly.Points[i], poly.Points[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) {
			slope := (p.Lat - pi.Lat) / (pj.Lat - pi.Lat)
			xIntersect := pi.Lon + slope*(pj.Lon-pi.Lon)
			if p.Lon < xIntersect {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
