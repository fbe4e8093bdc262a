package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"rove/internal/apperror"
)

// rawFile mirrors the TOML shape from §6.3: an array of step tables,
// each with a name and a single-key check table naming the variant.
type rawFile struct {
	Step []rawStep `toml:"step"`
}

type rawStep struct {
	Name  string                    `toml:"name"`
	Check map[string]toml.Primitive `toml:"check"`
}

type rawSpecialValue struct {
	SpecialValues []float32 `toml:"special_values"`
}

type rawRange struct {
	Min float32 `toml:"min"`
	Max float32 `toml:"max"`
}

type rawRangeDynamic struct {
	Source string `toml:"source"`
}

type rawMax struct {
	Max float32 `toml:"max"`
}

type rawFlatline struct {
	Max uint8 `toml:"max"`
}

type rawBuddy struct {
	Radii         []float32 `toml:"radii"`
	NumsMin       []uint32  `toml:"nums_min"`
	Threshold     float32   `toml:"threshold"`
	MaxElevDiff   float32   `toml:"max_elev_diff"`
	ElevGradient  float32   `toml:"elev_gradient"`
	MinStd        float32   `toml:"min_std"`
	NumIterations uint32    `toml:"num_iterations"`
}

type rawSct struct {
	NumMin             int       `toml:"num_min"`
	NumMax             int       `toml:"num_max"`
	InnerRadius        float32   `toml:"inner_radius"`
	OuterRadius        float32   `toml:"outer_radius"`
	NumIterations      uint32    `toml:"num_iterations"`
	NumMinProf         int       `toml:"num_min_prof"`
	MinElevDiff        float32   `toml:"min_elev_diff"`
	MinHorizontalScale float32   `toml:"min_horizontal_scale"`
	VerticalScale      float32   `toml:"vertical_scale"`
	Pos                []float32 `toml:"pos"`
	Neg                []float32 `toml:"neg"`
	Eps2               []float32 `toml:"eps2"`
}

type rawModelConsistency struct {
	ModelSource string  `toml:"model_source"`
	ModelArgs   string  `toml:"model_args"`
	Threshold   float32 `toml:"threshold"`
}

// LoadFile parses one pipeline TOML file. The pipeline name is the
// caller's responsibility (by convention, the file's base name without
// the .toml suffix, per §6.3).
func LoadFile(path string) (Pipeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, apperror.Wrap(err, apperror.CodeIO, "reading pipeline file "+path)
	}
	return Load(raw)
}

// Load parses pipeline TOML content already in memory.
func Load(content []byte) (Pipeline, error) {
	var rf rawFile
	meta, err := toml.Decode(string(content), &rf)
	if err != nil {
		return Pipeline{}, apperror.Wrap(err, apperror.CodeInvalidArg, "parsing pipeline TOML")
	}

	steps := make([]Step, 0, len(rf.Step))
	for _, rs := range rf.Step {
		if rs.Name == "" {
			return Pipeline{}, apperror.New(apperror.CodeInvalidArg, "pipeline step is missing a name")
		}
		if len(rs.Check) != 1 {
			return Pipeline{}, apperror.NewWithField(apperror.CodeInvalidArg,
				fmt.Sprintf("step %q: check table must name exactly one variant, got %d", rs.Name, len(rs.Check)),
				"check")
		}
		var tag string
		var prim toml.Primitive
		for k, v := range rs.Check {
			tag, prim = k, v
		}
		conf, err := decodeCheck(tag, prim, meta)
		if err != nil {
			return Pipeline{}, apperror.Wrap(err, apperror.CodeInvalidArg,
				fmt.Sprintf("step %q: %v", rs.Name, err))
		}
		steps = append(steps, Step{Name: rs.Name, Check: conf})
	}

	return New(steps), nil
}

func decodeCheck(tag string, prim toml.Primitive, meta toml.MetaData) (CheckConf, error) {
	switch strings.ToLower(tag) {
	case "special_value_check":
		var r rawSpecialValue
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: SpecialValueCheck, SpecialValues: r.SpecialValues}, nil

	case "range_check":
		var r rawRange
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: RangeCheck, Min: r.Min, Max: r.Max}, nil

	case "range_check_dynamic":
		var r rawRangeDynamic
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: RangeCheckDynamic, Source: r.Source}, nil

	case "step_check":
		var r rawMax
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: StepCheck, Max: r.Max}, nil

	case "spike_check":
		var r rawMax
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: SpikeCheck, Max: r.Max}, nil

	case "flatline_check":
		var r rawFlatline
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{Kind: FlatlineCheck, FlatlineMax: r.Max}, nil

	case "buddy_check":
		var r rawBuddy
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{
			Kind: BuddyCheck, Radii: r.Radii, NumsMin: r.NumsMin, Threshold: r.Threshold,
			MaxElevDiff: r.MaxElevDiff, ElevGradient: r.ElevGradient, MinStd: r.MinStd,
			NumIterations: r.NumIterations,
		}, nil

	case "sct":
		var r rawSct
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{
			Kind: Sct, NumMin: r.NumMin, NumMax: r.NumMax, InnerRadius: r.InnerRadius,
			OuterRadius: r.OuterRadius, NumIterations: r.NumIterations, NumMinProf: r.NumMinProf,
			MinElevDiff: r.MinElevDiff, MinHorizontalScale: r.MinHorizontalScale,
			VerticalScale: r.VerticalScale, Pos: r.Pos, Neg: r.Neg, Eps2: r.Eps2,
		}, nil

	case "model_consistency_check":
		var r rawModelConsistency
		if err := meta.PrimitiveDecode(prim, &r); err != nil {
			return CheckConf{}, err
		}
		return CheckConf{
			Kind: ModelConsistencyCheck, ModelSource: r.ModelSource,
			ModelArgs: r.ModelArgs, Threshold: r.Threshold,
		}, nil

	default:
		return CheckConf{}, fmt.Errorf("unknown check variant %q", tag)
	}
}

// LoadDir loads every *.toml file in dir into a name -> Pipeline map,
// keyed on the file's base name without the .toml suffix. Pipeline-
// file discovery itself (watching for changes, hot reload) is out of
// scope for this repository; this is a one-shot load at service start.
func LoadDir(dir string) (map[string]Pipeline, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeIO, "reading pipeline directory "+dir)
	}
	out := make(map[string]Pipeline, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".toml")
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}
