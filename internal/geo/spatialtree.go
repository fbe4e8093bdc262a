package geo

import (
	"bytes"
	"encoding/gob"
	"math"
)

// SpatialTree is the spatial index over station coordinates required
// by §3: built from parallel (lats, lons, elevs) vectors, readable
// back, and queryable by neighbourhood. The concrete indexing
// algorithm is treated as a black box by the spec (provided by the
// statistical library in the original system); this is a reference,
// correctness-first implementation good for the station counts the
// engine deals with per request.
type SpatialTree struct {
	lats  []float32
	lons  []float32
	elevs []float32
}

// NewSpatialTree builds an index from parallel vectors. All three must
// have equal length.
func NewSpatialTree(lats, lons, elevs []float32) SpatialTree {
	return SpatialTree{lats: lats, lons: lons, elevs: elevs}
}

// Len returns the number of indexed stations.
func (t SpatialTree) Len() int { return len(t.lats) }

// Vectors reads back the original parallel vectors.
func (t SpatialTree) Vectors() (lats, lons, elevs []float32) {
	return t.lats, t.lons, t.elevs
}

// spatialTreeWire is the gob-visible shadow of SpatialTree: gob cannot
// see unexported fields, so encoding goes through this exported copy.
type spatialTreeWire struct {
	Lats, Lons, Elevs []float32
}

// GobEncode implements gob.GobEncoder.
func (t SpatialTree) GobEncode() ([]byte, error) {
	return encodeGob(spatialTreeWire{t.lats, t.lons, t.elevs})
}

// GobDecode implements gob.GobDecoder.
func (t *SpatialTree) GobDecode(data []byte) error {
	var w spatialTreeWire
	if err := decodeGob(data, &w); err != nil {
		return err
	}
	t.lats, t.lons, t.elevs = w.Lats, w.Lons, w.Elevs
	return nil
}

func init() {
	gob.Register(SpatialTree{})
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Neighbour is one result of a neighbourhood query: the index into the
// original parallel vectors and the great-circle distance in metres.
type Neighbour struct {
	Index      int
	DistanceM  float64
}

const earthRadiusM = 6371000.0

func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// WithinRadius returns every indexed station (other than center itself)
// within radiusM of the station at index center, sorted by distance.
func (t SpatialTree) WithinRadius(center int, radiusM float64) []Neighbour {
	var out []Neighbour
	clat, clon := float64(t.lats[center]), float64(t.lons[center])
	for i := range t.lats {
		if i == center {
			continue
		}
		d := haversineM(clat, clon, float64(t.lats[i]), float64(t.lons[i]))
		if d <= radiusM {
			out = append(out, Neighbour{Index: i, DistanceM: d})
		}
	}
	sortNeighbours(out)
	return out
}

func sortNeighbours(ns []Neighbour) {
	// Insertion sort: neighbourhood lists are small (bounded by
	// num_min/num_max per-check parameters), so O(n^2) is fine and
	// keeps this dependency-free.
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j].DistanceM < ns[j-1].DistanceM; j-- {
			ns[j], ns[j-1] = ns[j-1], ns[j]
		}
	}
}
