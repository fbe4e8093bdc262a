package scheduler

import (
	"context"
	"testing"
	"time"

	"rove/internal/dataswitch"
	"rove/internal/dataswitch/memconn"
	"rove/internal/flag"
	"rove/internal/harness"
	"rove/internal/pipeline"
	"rove/internal/qcroutines"
	"rove/internal/rtime"
)

func newTestScheduler(t *testing.T) (*Scheduler, pipeline.Pipeline) {
	t.Helper()
	p := pipeline.New([]pipeline.Step{
		{Name: "step_check", Check: pipeline.CheckConf{Kind: pipeline.StepCheck, Max: 3.0}},
		{Name: "spike_check", Check: pipeline.CheckConf{Kind: pipeline.SpikeCheck, Max: 3.0}},
	})
	sw := dataswitch.New(map[string]dataswitch.Connector{
		"test": memconn.New(memconn.SingleSeriesFixture("station-1", 5, 1.0, 0, 300)),
	})
	h := harness.New(qcroutines.NewReference())
	s := New(map[string]pipeline.Pipeline{"demo": p}, sw, h)
	return s, p
}

func TestValidateUnknownPipelineFailsBeforeFetch(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, err := s.Validate(context.Background(), "test", nil,
		rtime.TimeSpec{}, dataswitch.OneSpace("station-1"), "does-not-exist", "")
	if err == nil {
		t.Fatal("expected error for unknown pipeline")
	}
}

func TestValidateUnknownSourceFailsBeforeStream(t *testing.T) {
	s, _ := newTestScheduler(t)
	_, err := s.Validate(context.Background(), "no-such-source", nil,
		rtime.TimeSpec{}, dataswitch.OneSpace("station-1"), "demo", "")
	if err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestValidateStreamsOneResponsePerStep(t *testing.T) {
	s, p := newTestScheduler(t)
	ch, err := s.Validate(context.Background(), "test", nil,
		rtime.TimeSpec{}, dataswitch.OneSpace("station-1"), "demo", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var got []StepOutcome
	for outcome := range ch {
		got = append(got, outcome)
	}
	if len(got) != len(p.Steps) {
		t.Fatalf("got %d outcomes, want %d", len(got), len(p.Steps))
	}
	for i, outcome := range got {
		if outcome.Err != nil {
			t.Fatalf("outcome %d: unexpected error %v", i, outcome.Err)
		}
		if outcome.Response.Test != p.Steps[i].Name {
			t.Errorf("outcome %d: test=%q, want %q", i, outcome.Response.Test, p.Steps[i].Name)
		}
		for _, r := range outcome.Response.Results {
			if r.Flag != flag.Pass {
				t.Errorf("outcome %d: flag=%v, want Pass", i, r.Flag)
			}
		}
	}
}

func TestValidateStopsWhenCallerDisconnects(t *testing.T) {
	s, _ := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Validate(ctx, "test", nil,
		rtime.TimeSpec{}, dataswitch.OneSpace("station-1"), "demo", "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, ok := <-ch; !ok {
		t.Fatal("expected at least one outcome before cancelling")
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A second outcome may or may not have been in flight when
			// cancel() landed; either way the channel must close next.
			if _, ok := <-ch; ok {
				t.Fatal("channel did not close after context cancellation")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("driver did not stop within 1s of cancellation")
	}
}
