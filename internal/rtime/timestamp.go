// Package rtime holds the calendar-aware time primitives shared by the
// data model: Timestamp, Timerange, RelativeDuration and TimeSpec.
package rtime

// Timestamp is a signed count of seconds since the Unix epoch.
type Timestamp int64

// Before reports whether t is strictly earlier than other.
func (t Timestamp) Before(other Timestamp) bool { return t < other }

// After reports whether t is strictly later than other.
func (t Timestamp) After(other Timestamp) bool { return t > other }

// Timerange is an inclusive [Start, End] pair of Timestamps.
type Timerange struct {
	Start Timestamp
	End   Timestamp
}

// Valid reports whether End is not before Start.
func (r Timerange) Valid() bool { return r.End >= r.Start }

// TimeSpec pairs a Timerange with the expected spacing between
// successive points of every series the request touches.
type TimeSpec struct {
	Range          Timerange
	TimeResolution RelativeDuration
}
