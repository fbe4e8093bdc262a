package dataswitch

import (
	"rove/internal/geo"
	"rove/internal/rtime"
)

// SpaceKind tags the variant of a SpaceSpec.
type SpaceKind int

const (
	// SpaceOne selects a single identified series.
	SpaceOne SpaceKind = iota
	// SpacePolygon selects every series whose station falls inside a polygon.
	SpacePolygon
	// SpaceAll selects every series the source offers.
	SpaceAll
)

// SpaceSpec is the tagged union described in §3: One(data_id) |
// Polygon(polygon) | All.
type SpaceSpec struct {
	Kind    SpaceKind
	DataID  string
	Polygon geo.Polygon
}

// OneSpace builds a SpaceSpec selecting a single series.
func OneSpace(dataID string) SpaceSpec { return SpaceSpec{Kind: SpaceOne, DataID: dataID} }

// PolygonSpace builds a SpaceSpec selecting everything inside poly.
func PolygonSpace(poly geo.Polygon) SpaceSpec { return SpaceSpec{Kind: SpacePolygon, Polygon: poly} }

// AllSpace builds a SpaceSpec selecting every series.
func AllSpace() SpaceSpec { return SpaceSpec{Kind: SpaceAll} }

// FetchRequest is every argument a Connector's FetchData needs beyond
// the source name itself, which the DataSwitch strips off before
// dispatch.
type FetchRequest struct {
	Space       SpaceSpec
	Time        rtime.TimeSpec
	NumLeading  uint8
	NumTrailing uint8
	Extra       string
}
