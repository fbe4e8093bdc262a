// Package memconn provides a deterministic in-memory Connector used by
// the engine's own tests and by integration scenarios that exercise
// the scheduler/harness without a real backing store (§8). It is not a
// production connector; FROST/Netatmo-style connectors are external
// collaborators out of scope for this repository.
package memconn

import (
	"context"

	"rove/internal/apperror"
	"rove/internal/cache"
	"rove/internal/dataswitch"
	"rove/internal/geo"
	"rove/internal/rtime"
)

// Fixture builds a DataCache for a given fetch request. Connector
// delegates every FetchData call to one.
type Fixture func(req dataswitch.FetchRequest) (cache.DataCache, error)

// Connector is a Connector (C1) backed by a Fixture function.
type Connector struct {
	fixture Fixture
}

// New wraps fixture as a Connector.
func New(fixture Fixture) *Connector {
	return &Connector{fixture: fixture}
}

// FetchData implements dataswitch.Connector.
func (c *Connector) FetchData(_ context.Context, req dataswitch.FetchRequest) (cache.DataCache, error) {
	return c.fixture(req)
}

func f32(v float32) *float32 { return &v }

// SingleSeriesFixture reproduces the §8 scenario-1 fixture: for
// space=One(id), a single series named id with n points all equal to
// value, starting at startTime with the given period, carrying the
// requested leading/trailing counts on the cache.
func SingleSeriesFixture(id string, n int, value float32, startTime int64, periodSeconds int64) Fixture {
	return func(req dataswitch.FetchRequest) (cache.DataCache, error) {
		if req.Space.Kind != dataswitch.SpaceOne || req.Space.DataID != id {
			return cache.DataCache{}, apperror.New(apperror.CodeUnimplementedSeries,
				"memconn: single-series fixture only serves space=One(\""+id+"\")")
		}
		values := make([]*float32, n)
		for i := range values {
			values[i] = f32(value)
		}
		return cache.DataCache{
			StartTime:         rtime.Timestamp(startTime),
			Period:            rtime.RelativeDuration{Seconds: periodSeconds},
			NumLeadingPoints:  req.NumLeading,
			NumTrailingPoints: req.NumTrailing,
			Data: []cache.Series{
				{Identifier: id, Values: values},
			},
			RTree: geo.NewSpatialTree([]float32{0}, []float32{0}, []float32{0}),
		}, nil
	}
}

// StationGridFixture reproduces the §8 scenario-2 fixture: for
// space=All, numStations series of length 1, all equal to value, laid
// out on a deterministic pseudo-grid of coordinates.
func StationGridFixture(numStations int, value float32) Fixture {
	return func(req dataswitch.FetchRequest) (cache.DataCache, error) {
		if req.Space.Kind != dataswitch.SpaceAll {
			return cache.DataCache{}, apperror.New(apperror.CodeUnimplementedSpatial,
				"memconn: station-grid fixture only serves space=All")
		}
		data := make([]cache.Series, numStations)
		lats := make([]float32, numStations)
		lons := make([]float32, numStations)
		elevs := make([]float32, numStations)
		for i := 0; i < numStations; i++ {
			fi := float32(i)
			lats[i] = mod3(fi * fi * 0.001)
			lons[i] = mod3((fi + 1) * (fi + 1) * 0.001)
			elevs[i] = 1.0
			data[i] = cache.Series{Identifier: seriesName(i), Values: []*float32{f32(value)}}
		}
		return cache.DataCache{
			StartTime:         0,
			Period:            rtime.RelativeDuration{Seconds: 300},
			NumLeadingPoints:  req.NumLeading,
			NumTrailingPoints: req.NumTrailing,
			Data:              data,
			RTree:             geo.NewSpatialTree(lats, lons, elevs),
		}, nil
	}
}

func mod3(v float32) float32 {
	for v >= 3 {
		v -= 3
	}
	return v
}

func seriesName(i int) string {
	const digits = "0123456789"
	if i == 0 {
		return "station_0"
	}
	buf := make([]byte, 0, 8)
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return "station_" + string(buf)
}
