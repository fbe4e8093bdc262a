package rtime

import "testing"

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in      string
		months  int64
		seconds int64
	}{
		{"PT1H", 0, 3600},
		{"PT5M", 0, 300},
		{"P1Y", 12, 0},
		{"P1DT12H", 0, 86400 + 12*3600},
		{"P1Y2M3D", 14, 3 * 86400},
	}
	for _, c := range cases {
		got, err := ParseISODuration(c.in)
		if err != nil {
			t.Fatalf("ParseISODuration(%q): %v", c.in, err)
		}
		if got.Months != c.months || got.Seconds != c.seconds {
			t.Errorf("ParseISODuration(%q) = %+v, want months=%d seconds=%d", c.in, got, c.months, c.seconds)
		}
	}
}

func TestParseISODurationInvalid(t *testing.T) {
	for _, in := range []string{"", "P", "garbage", "1H"} {
		if _, err := ParseISODuration(in); err == nil {
			t.Errorf("ParseISODuration(%q): expected error", in)
		}
	}
}

func TestRelativeDurationAddTo(t *testing.T) {
	d := RelativeDuration{Seconds: 300}
	if got := d.AddTo(0); got != 300 {
		t.Errorf("AddTo(0) = %d, want 300", got)
	}

	monthly := RelativeDuration{Months: 1}
	// 2024-01-31T00:00:00Z
	start := Timestamp(1706659200)
	got := monthly.AddTo(start)
	// Expect end of Feb 2024 (leap year), not Mar 2.
	const wantFeb29 = 1709164800
	if int64(got) != wantFeb29 {
		t.Errorf("AddTo across month boundary = %d, want %d", got, wantFeb29)
	}
}
