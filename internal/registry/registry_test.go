package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rove/internal/pipeline"
)

type memStore struct {
	entries map[string]Entry
}

func newMemStore() *memStore { return &memStore{entries: make(map[string]Entry)} }

func (m *memStore) Upsert(ctx context.Context, e Entry) error {
	m.entries[e.Name] = e
	return nil
}

func (m *memStore) Get(ctx context.Context, name string) (Entry, error) {
	e, ok := m.entries[name]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memStore) List(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, name string) error {
	if _, ok := m.entries[name]; !ok {
		return ErrNotFound
	}
	delete(m.entries, name)
	return nil
}

func TestChecksumIsStableAndSensitiveToContent(t *testing.T) {
	a := Checksum([]byte("step = 1"))
	b := Checksum([]byte("step = 1"))
	c := Checksum([]byte("step = 2"))
	if a != b {
		t.Error("checksum of identical content should be equal")
	}
	if a == c {
		t.Error("checksum of different content should differ")
	}
}

func TestEntryFromPipelineDerivesLeadingTrailing(t *testing.T) {
	p := pipeline.New([]pipeline.Step{
		{Name: "spike", Check: pipeline.CheckConf{Kind: pipeline.SpikeCheck, Max: 3.0}},
	})
	loadedAt := time.Now()
	e := EntryFromPipeline("demo", "./pipelines/demo.toml", []byte("content"), p, loadedAt)

	if e.NumLeading != 1 || e.NumTrailing != 1 {
		t.Errorf("leading/trailing = %d/%d, want 1/1", e.NumLeading, e.NumTrailing)
	}
	if e.StepCount != 1 {
		t.Errorf("step count = %d, want 1", e.StepCount)
	}
	if e.Checksum != Checksum([]byte("content")) {
		t.Error("checksum mismatch")
	}
}

func TestRegisterDirUpsertsEveryPipeline(t *testing.T) {
	dir := t.TempDir()
	writePipelineFile(t, dir, "demo.toml", `
[[step]]
name = "step_check"
[step.check.step_check]
max = 3.0
`)
	writePipelineFile(t, dir, "other.toml", `
[[step]]
name = "range_check"
[step.check.range_check]
min = 0.0
max = 10.0
`)

	store := newMemStore()
	if err := RegisterDir(context.Background(), store, dir, time.Now()); err != nil {
		t.Fatalf("register dir: %v", err)
	}

	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	demo, err := store.Get(context.Background(), "demo")
	if err != nil {
		t.Fatalf("get demo: %v", err)
	}
	if demo.StepCount != 1 {
		t.Errorf("demo step count = %d, want 1", demo.StepCount)
	}
}

func writePipelineFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
