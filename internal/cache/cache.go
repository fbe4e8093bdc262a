// Package cache defines DataCache, the uniform in-memory observation
// container returned by every connector and shared read-only by every
// check in a request (§3).
package cache

import (
	"fmt"

	"rove/internal/geo"
	"rove/internal/rtime"
)

// Series is one named series of optional values. A nil entry in
// Values denotes a gap.
type Series struct {
	Identifier string
	Values     []*float32
}

// DataCache is the uniform in-memory representation every connector
// returns.
type DataCache struct {
	StartTime        rtime.Timestamp
	Period           rtime.RelativeDuration
	NumLeadingPoints  uint8
	NumTrailingPoints uint8
	Data             []Series
	RTree            geo.SpatialTree
}

// TimeOf returns the timestamp of point k of every series (all series
// share the same alignment).
func (c DataCache) TimeOf(k int) rtime.Timestamp {
	ts := c.StartTime
	for i := 0; i < k; i++ {
		ts = c.Period.AddTo(ts)
	}
	return ts
}

// Len returns the shared length of every series, or 0 if there are no
// series.
func (c DataCache) Len() int {
	if len(c.Data) == 0 {
		return 0
	}
	return len(c.Data[0].Values)
}

// QCRange returns the half-open [start, end) index range of points that
// are actually subject to QC, i.e. excluding leading/trailing context.
func (c DataCache) QCRange() (start, end int) {
	return int(c.NumLeadingPoints), c.Len() - int(c.NumTrailingPoints)
}

// Validate checks the invariants from §3: equal-length series, and the
// rtree aligned with the data.
func (c DataCache) Validate() error {
	if len(c.Data) == 0 {
		return nil
	}
	n := len(c.Data[0].Values)
	for _, s := range c.Data {
		if len(s.Values) != n {
			return fmt.Errorf("cache: series %q has length %d, want %d", s.Identifier, len(s.Values), n)
		}
	}
	if c.RTree.Len() != len(c.Data) {
		return fmt.Errorf("cache: rtree has %d entries, want %d (one per series)", c.RTree.Len(), len(c.Data))
	}
	if int(c.NumLeadingPoints)+1+int(c.NumTrailingPoints) > n {
		return fmt.Errorf("cache: leading+1+trailing (%d) exceeds series length %d",
			int(c.NumLeadingPoints)+1+int(c.NumTrailingPoints), n)
	}
	return nil
}
