package pipeline

import "testing"

const twoStepTOML = `
[[step]]
name = "step_check"
[step.check.step_check]
max = 3.0

[[step]]
name = "spike_check"
[step.check.spike_check]
max = 3.0
`

func TestLoadDerivesLeadingTrailing(t *testing.T) {
	p, err := Load([]byte(twoStepTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(p.Steps))
	}
	if p.Steps[0].Name != "step_check" || p.Steps[1].Name != "spike_check" {
		t.Errorf("step order not preserved: %+v", p.Steps)
	}
	// step_check needs (1,0), spike_check needs (1,1); max is (1,1).
	if p.NumLeadingRequired != 1 || p.NumTrailingRequired != 1 {
		t.Errorf("derived (leading,trailing) = (%d,%d), want (1,1)", p.NumLeadingRequired, p.NumTrailingRequired)
	}
}

func TestLoadRejectsMultiKeyCheck(t *testing.T) {
	const bad = `
[[step]]
name = "bad"
[step.check]
step_check = { max = 1.0 }
spike_check = { max = 1.0 }
`
	if _, err := Load([]byte(bad)); err == nil {
		t.Fatal("expected error for a check table naming two variants")
	}
}

func TestLoadRejectsUnknownVariant(t *testing.T) {
	const bad = `
[[step]]
name = "bad"
[step.check.not_a_real_check]
max = 1.0
`
	if _, err := Load([]byte(bad)); err == nil {
		t.Fatal("expected error for an unknown check variant")
	}
}

func TestLoadParsesRangeCheckDynamicAndModelConsistencyCheck(t *testing.T) {
	const toml = `
[[step]]
name = "dynamic_range"
[step.check.range_check_dynamic]
source = "climatology"

[[step]]
name = "model_consistency"
[step.check.model_consistency_check]
model_source = "ecmwf"
model_args = "t2m"
threshold = 2.5
`
	p, err := Load([]byte(toml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(p.Steps))
	}

	dyn := p.Steps[0].Check
	if dyn.Kind != RangeCheckDynamic || dyn.Source != "climatology" {
		t.Errorf("dynamic_range check = %+v, want Kind=RangeCheckDynamic Source=climatology", dyn)
	}

	model := p.Steps[1].Check
	if model.Kind != ModelConsistencyCheck || model.ModelSource != "ecmwf" ||
		model.ModelArgs != "t2m" || model.Threshold != 2.5 {
		t.Errorf("model_consistency check = %+v, want Kind=ModelConsistencyCheck ModelSource=ecmwf ModelArgs=t2m Threshold=2.5", model)
	}

	// Both kinds currently have no context requirement (§3); parsing
	// them must not affect leading/trailing derivation.
	if p.NumLeadingRequired != 0 || p.NumTrailingRequired != 0 {
		t.Errorf("derived (leading,trailing) = (%d,%d), want (0,0)", p.NumLeadingRequired, p.NumTrailingRequired)
	}
}

func TestDeriveIsMaxOfZeroContextSteps(t *testing.T) {
	p := New([]Step{
		{Name: "range", Check: CheckConf{Kind: RangeCheck, Min: 0, Max: 10}},
		{Name: "special", Check: CheckConf{Kind: SpecialValueCheck, SpecialValues: []float32{-999}}},
	})
	if p.NumLeadingRequired != 0 || p.NumTrailingRequired != 0 {
		t.Errorf("zero-context steps should derive (0,0), got (%d,%d)", p.NumLeadingRequired, p.NumTrailingRequired)
	}
}
