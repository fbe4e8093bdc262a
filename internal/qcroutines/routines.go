// Package qcroutines is the seam the check harness (C5) dispatches
// into for the actual statistical work. The individual QC algorithms
// (dip_check, step_check, buddy_check, sct, ...) are explicitly out of
// scope for this repository (spec.md §1): in the original system they
// live in an external statistics crate. This package is this
// repository's own pluggable stand-in for that crate — a small,
// deterministic reference implementation good enough to make the
// harness and scheduler fully testable, built so a real statistics
// library can be swapped in behind the same Routines interface without
// touching internal/harness.
package qcroutines

import (
	"math"

	"rove/internal/flag"
	"rove/internal/geo"
)

// Routines is the interface internal/harness dispatches every check
// kind to.
type Routines interface {
	// SpecialValue flags a single point against a list of sentinel values.
	SpecialValue(value float32, specialValues []float32) flag.Flag
	// Range flags a single point against a closed [min, max] interval.
	Range(value float32, min, max float32) flag.Flag
	// Step flags the last point of a (leading=1, trailing=0) window
	// by the absolute difference from its predecessor.
	Step(window []float32, max float32) flag.Flag
	// Spike flags the middle point of a (leading=1, trailing=1) window
	// by how far it deviates from the mean of its neighbours.
	Spike(window []float32, max float32) flag.Flag
	// Flatline flags the last point of a (leading=max, trailing=0)
	// window when every point in the window is identical.
	Flatline(window []float32) flag.Flag
	// Buddy flags every point in values using its neighbours from
	// rtree, returning one flag per series (parallel to values).
	Buddy(rtree geo.SpatialTree, values []float32, p BuddyParams) ([]flag.Flag, error)
	// Sct flags every point in values using a spatial consistency test.
	Sct(rtree geo.SpatialTree, values []float32, p SctParams) ([]flag.Flag, error)
}

// BuddyParams mirrors the BuddyCheck parameters of §3.
type BuddyParams struct {
	Radii         []float32
	NumsMin       []uint32
	Threshold     float32
	MaxElevDiff   float32
	ElevGradient  float32
	MinStd        float32
	NumIterations uint32
}

// SctParams mirrors the Sct parameters of §3.
type SctParams struct {
	NumMin             int
	NumMax             int
	InnerRadius        float32
	OuterRadius        float32
	NumIterations      uint32
	NumMinProf         int
	MinElevDiff        float32
	MinHorizontalScale float32
	VerticalScale      float32
	Pos, Neg, Eps2     []float32
}

// Reference is the default Routines implementation: simple, fully
// deterministic rules sufficient to drive the documented end-to-end
// scenarios (§8) and exercise every Flag the harness must handle.
type Reference struct{}

// NewReference returns the default reference Routines.
func NewReference() Reference { return Reference{} }

func (Reference) SpecialValue(value float32, specialValues []float32) flag.Flag {
	for _, sv := range specialValues {
		if value == sv {
			return flag.Fail
		}
	}
	return flag.Pass
}

func (Reference) Range(value float32, min, max float32) flag.Flag {
	if value < min || value > max {
		return flag.Fail
	}
	return flag.Pass
}

func (Reference) Step(window []float32, max float32) flag.Flag {
	// window = [previous, current]
	if len(window) != 2 {
		return flag.Invalid
	}
	if abs32(window[1]-window[0]) > max {
		return flag.Fail
	}
	return flag.Pass
}

func (Reference) Spike(window []float32, max float32) flag.Flag {
	// window = [before, current, after]
	if len(window) != 3 {
		return flag.Invalid
	}
	neighbourMean := (window[0] + window[2]) / 2
	if abs32(window[1]-neighbourMean) > max {
		return flag.Fail
	}
	return flag.Pass
}

func (Reference) Flatline(window []float32) flag.Flag {
	if len(window) == 0 {
		return flag.Invalid
	}
	for _, v := range window[1:] {
		if v != window[0] {
			return flag.Pass
		}
	}
	return flag.Fail
}

func (Reference) Buddy(rtree geo.SpatialTree, values []float32, p BuddyParams) ([]flag.Flag, error) {
	out := make([]flag.Flag, len(values))
	radius := float64(800)
	if len(p.Radii) > 0 {
		radius = float64(p.Radii[0])
	}
	minNeighbours := 1
	if len(p.NumsMin) > 0 {
		minNeighbours = int(p.NumsMin[0])
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = 3
	}
	for i := range values {
		neighbours := rtree.WithinRadius(i, radius)
		if len(neighbours) < minNeighbours {
			out[i] = flag.Isolated
			continue
		}
		mean, std := neighbourStats(values, neighbours)
		if std < p.MinStd {
			std = p.MinStd
		}
		if std == 0 {
			out[i] = flag.Pass
			continue
		}
		z := abs32(values[i]-mean) / std
		if z > threshold {
			out[i] = flag.Fail
		} else {
			out[i] = flag.Pass
		}
	}
	return out, nil
}

func (r Reference) Sct(rtree geo.SpatialTree, values []float32, p SctParams) ([]flag.Flag, error) {
	// The reference SCT is a buddy-style spatial consistency test
	// reusing the outer radius and eps2[0] as its threshold; the real
	// optimal-interpolation SCT lives in the external statistics
	// library this package stands in for.
	threshold := float32(3)
	if len(p.Eps2) > 0 && p.Eps2[0] > 0 {
		threshold = p.Eps2[0]
	}
	return r.Buddy(rtree, values, BuddyParams{
		Radii:     []float32{p.OuterRadius},
		NumsMin:   []uint32{uint32(p.NumMin)},
		Threshold: threshold,
	})
}

func neighbourStats(values []float32, neighbours []geo.Neighbour) (mean, std float32) {
	var sum float64
	for _, n := range neighbours {
		sum += float64(values[n.Index])
	}
	m := sum / float64(len(neighbours))
	var variance float64
	for _, n := range neighbours {
		d := float64(values[n.Index]) - m
		variance += d * d
	}
	variance /= float64(len(neighbours))
	return float32(m), float32(math.Sqrt(variance))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
