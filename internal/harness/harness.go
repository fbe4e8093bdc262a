// Package harness dispatches a single pipeline step against a shared
// DataCache (C5), converting the underlying statistical routine's
// verdicts into per-point TestResults.
package harness

import (
	"strings"

	"rove/internal/apperror"
	"rove/internal/cache"
	"rove/internal/flag"
	"rove/internal/pipeline"
	"rove/internal/qcroutines"
	"rove/internal/result"
)

// Harness runs pipeline steps against a DataCache, dispatching to the
// injected Routines for the actual statistical work.
type Harness struct {
	routines qcroutines.Routines
}

// New builds a Harness backed by routines.
func New(routines qcroutines.Routines) *Harness {
	return &Harness{routines: routines}
}

// RunStep implements C5's single operation.
func (h *Harness) RunStep(step pipeline.Step, dc cache.DataCache) (result.ValidateResponse, error) {
	if strings.HasPrefix(step.Name, "test") {
		return h.runInconclusive(step, dc), nil
	}

	switch step.Check.Kind {
	case pipeline.SpecialValueCheck:
		return h.runPerPoint(step, dc, func(v float32) flag.Flag {
			return h.routines.SpecialValue(v, step.Check.SpecialValues)
		})
	case pipeline.RangeCheck:
		return h.runPerPoint(step, dc, func(v float32) flag.Flag {
			return h.routines.Range(v, step.Check.Min, step.Check.Max)
		})
	case pipeline.RangeCheckDynamic:
		// RangeCheckDynamic's only parameter is a source name (§3):
		// resolving it means a second fetch through the data switch,
		// the same extension point backing_sources is reserved for
		// (§4.5). RunStep sees only the DataCache already fetched for
		// the primary source, so there is nothing real to compare
		// against yet; reject explicitly rather than silently running
		// Range against a zero-valued Min/Max. See DESIGN.md.
		return result.ValidateResponse{}, apperror.NewWithField(apperror.CodeUnimplementedCheck,
			"range_check_dynamic requires a second data-switch fetch for step.Check.Source, not yet wired into the harness", "check")
	case pipeline.StepCheck:
		return h.runWindowed(step, dc, 1, 0, func(window []float32) flag.Flag {
			return h.routines.Step(window, step.Check.Max)
		})
	case pipeline.SpikeCheck:
		return h.runWindowed(step, dc, 1, 1, func(window []float32) flag.Flag {
			return h.routines.Spike(window, step.Check.Max)
		})
	case pipeline.FlatlineCheck:
		return h.runFlatline(step, dc)
	case pipeline.BuddyCheck:
		return h.runSpatial(step, dc, func(values []float32) ([]flag.Flag, error) {
			c := step.Check
			return h.routines.Buddy(dc.RTree, values, qcroutines.BuddyParams{
				Radii: c.Radii, NumsMin: c.NumsMin, Threshold: c.Threshold,
				MaxElevDiff: c.MaxElevDiff, ElevGradient: c.ElevGradient,
				MinStd: c.MinStd, NumIterations: c.NumIterations,
			})
		})
	case pipeline.Sct:
		return h.runSpatial(step, dc, func(values []float32) ([]flag.Flag, error) {
			c := step.Check
			return h.routines.Sct(dc.RTree, values, qcroutines.SctParams{
				NumMin: c.NumMin, NumMax: c.NumMax, InnerRadius: c.InnerRadius,
				OuterRadius: c.OuterRadius, NumIterations: c.NumIterations,
				NumMinProf: c.NumMinProf, MinElevDiff: c.MinElevDiff,
				MinHorizontalScale: c.MinHorizontalScale, VerticalScale: c.VerticalScale,
				Pos: c.Pos, Neg: c.Neg, Eps2: c.Eps2,
			})
		})
	case pipeline.ModelConsistencyCheck:
		// ModelConsistencyCheck compares each observation against a
		// model-predicted value fetched from ModelSource/ModelArgs —
		// no such fetch exists in this harness, and Threshold alone
		// cannot stand in for a model: -threshold < v < threshold
		// would flag most real observations as Fail regardless of
		// whether the model agrees with them. Reject explicitly. See
		// DESIGN.md.
		return result.ValidateResponse{}, apperror.NewWithField(apperror.CodeUnimplementedCheck,
			"model_consistency_check requires a model fetch for step.Check.ModelSource, not yet wired into the harness", "check")
	default:
		return result.ValidateResponse{}, apperror.NewWithField(apperror.CodeInvalidTestName,
			"unknown check kind for step "+step.Name, "check")
	}
}

func (h *Harness) runInconclusive(step pipeline.Step, dc cache.DataCache) result.ValidateResponse {
	start, end := dc.QCRange()
	var out []result.TestResult
	for _, s := range dc.Data {
		for k := start; k < end; k++ {
			out = append(out, result.TestResult{
				Time:       dc.TimeOf(k),
				Identifier: s.Identifier,
				Flag:       flag.Inconclusive,
			})
		}
	}
	return result.ValidateResponse{Test: step.Name, Results: out}
}

// runPerPoint handles the zero-context checks: one call per point, no
// window.
func (h *Harness) runPerPoint(step pipeline.Step, dc cache.DataCache, f func(float32) flag.Flag) (result.ValidateResponse, error) {
	start, end := dc.QCRange()
	var out []result.TestResult
	for _, s := range dc.Data {
		for k := start; k < end; k++ {
			v := s.Values[k]
			var fl flag.Flag
			if v == nil {
				fl = flag.DataMissing
			} else {
				fl = f(*v)
			}
			if !fl.Valid() {
				return result.ValidateResponse{}, apperror.New(apperror.CodeUnknownFlag,
					"routine returned an unrecognised flag for step "+step.Name)
			}
			out = append(out, result.TestResult{Time: dc.TimeOf(k), Identifier: s.Identifier, Flag: fl})
		}
	}
	return result.ValidateResponse{Test: step.Name, Results: out}, nil
}

// runWindowed handles StepCheck/SpikeCheck: for each series, slide a
// window of length leading+1+trailing ending/centred on each point of
// the QCable range [num_leading, len-num_trailing). Because
// num_leading/num_trailing on the cache are the pipeline-wide derived
// maxima, they are always >= this step's own (leading, trailing), so
// the window never runs off either end of the series.
func (h *Harness) runWindowed(
	step pipeline.Step, dc cache.DataCache, leading, trailing int,
	f func(window []float32) flag.Flag,
) (result.ValidateResponse, error) {
	start, end := dc.QCRange()
	var out []result.TestResult
	for _, s := range dc.Data {
		for k := start; k < end; k++ {
			window := make([]float32, 0, leading+1+trailing)
			missing := false
			for j := k - leading; j <= k+trailing; j++ {
				if s.Values[j] == nil {
					missing = true
					break
				}
				window = append(window, *s.Values[j])
			}
			var fl flag.Flag
			if missing {
				fl = flag.DataMissing
			} else {
				fl = f(window)
			}
			if !fl.Valid() {
				return result.ValidateResponse{}, apperror.New(apperror.CodeUnknownFlag,
					"routine returned an unrecognised flag for step "+step.Name)
			}
			out = append(out, result.TestResult{Time: dc.TimeOf(k), Identifier: s.Identifier, Flag: fl})
		}
	}
	return result.ValidateResponse{Test: step.Name, Results: out}, nil
}

func (h *Harness) runFlatline(step pipeline.Step, dc cache.DataCache) (result.ValidateResponse, error) {
	windowLen := int(step.Check.FlatlineMax) + 1
	start, end := dc.QCRange()
	var out []result.TestResult
	for _, s := range dc.Data {
		for k := start; k < end; k++ {
			window := make([]float32, 0, windowLen)
			missing := false
			for j := k - int(step.Check.FlatlineMax); j <= k; j++ {
				if s.Values[j] == nil {
					missing = true
					break
				}
				window = append(window, *s.Values[j])
			}
			var fl flag.Flag
			if missing {
				fl = flag.DataMissing
			} else {
				fl = h.routines.Flatline(window)
			}
			if !fl.Valid() {
				return result.ValidateResponse{}, apperror.New(apperror.CodeUnknownFlag,
					"routine returned an unrecognised flag for step "+step.Name)
			}
			out = append(out, result.TestResult{Time: dc.TimeOf(k), Identifier: s.Identifier, Flag: fl})
		}
	}
	return result.ValidateResponse{Test: step.Name, Results: out}, nil
}

// runSpatial handles BuddyCheck/Sct: for each time index in the QCable
// range, gather the point from every series and run one spatial pass.
// A None value for any series inside the QCable range is a contract
// violation (§4.4), not a soft flag.
func (h *Harness) runSpatial(
	step pipeline.Step, dc cache.DataCache, f func(values []float32) ([]flag.Flag, error),
) (result.ValidateResponse, error) {
	start, end := dc.QCRange()
	perSeries := make([][]result.TestResult, len(dc.Data))

	values := make([]float32, len(dc.Data))
	for k := start; k < end; k++ {
		for si, s := range dc.Data {
			if s.Values[k] == nil {
				return result.ValidateResponse{}, apperror.New(apperror.CodeFailedTest,
					"spatial check "+step.Name+" encountered a missing value inside the QCable range")
			}
			values[si] = *s.Values[k]
		}
		flags, err := f(values)
		if err != nil {
			return result.ValidateResponse{}, apperror.Wrap(err, apperror.CodeFailedTest,
				"spatial check "+step.Name+" failed")
		}
		if len(flags) != len(dc.Data) {
			return result.ValidateResponse{}, apperror.New(apperror.CodeFailedTest,
				"spatial check "+step.Name+" returned a flag count that doesn't match the series count")
		}
		t := dc.TimeOf(k)
		for si, fl := range flags {
			if !fl.Valid() {
				return result.ValidateResponse{}, apperror.New(apperror.CodeUnknownFlag,
					"routine returned an unrecognised flag for step "+step.Name)
			}
			perSeries[si] = append(perSeries[si], result.TestResult{
				Time: t, Identifier: dc.Data[si].Identifier, Flag: fl,
			})
		}
	}

	var out []result.TestResult
	for _, rs := range perSeries {
		out = append(out, rs...)
	}
	return result.ValidateResponse{Test: step.Name, Results: out}, nil
}
