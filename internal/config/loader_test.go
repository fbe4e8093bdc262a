package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "rove" {
		t.Errorf("app.name = %q, want rove", cfg.App.Name)
	}
	if cfg.GRPC.Port != 8443 {
		t.Errorf("grpc.port = %d, want 8443", cfg.GRPC.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
	if cfg.Pipelines.Dir != "./pipelines" {
		t.Errorf("pipelines.dir = %q, want ./pipelines", cfg.Pipelines.Dir)
	}
	if len(cfg.DataSwitch.Sources) != 1 || cfg.DataSwitch.Sources[0] != "primary" {
		t.Errorf("data_switch.sources = %v, want [primary]", cfg.DataSwitch.Sources)
	}
}

func TestLoaderLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
app:
  name: custom-rove
  environment: staging
grpc:
  port: 9443
log:
  level: debug
pipelines:
  dir: /etc/rove/pipelines
data_switch:
  sources:
    - station-net
    - satellite-net
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "custom-rove" {
		t.Errorf("app.name = %q, want custom-rove", cfg.App.Name)
	}
	if cfg.GRPC.Port != 9443 {
		t.Errorf("grpc.port = %d, want 9443", cfg.GRPC.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	if len(cfg.DataSwitch.Sources) != 2 {
		t.Errorf("data_switch.sources = %v, want 2 entries", cfg.DataSwitch.Sources)
	}
}

func TestLoaderLoadFromEnv(t *testing.T) {
	os.Setenv("ROVE_APP_NAME", "env-rove")
	os.Setenv("ROVE_GRPC_PORT", "7000")
	defer func() {
		os.Unsetenv("ROVE_APP_NAME")
		os.Unsetenv("ROVE_GRPC_PORT")
	}()

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "env-rove" {
		t.Errorf("app.name = %q, want env-rove", cfg.App.Name)
	}
	if cfg.GRPC.Port != 7000 {
		t.Errorf("grpc.port = %d, want 7000", cfg.GRPC.Port)
	}
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	os.WriteFile(configPath, []byte("app:\n  name: file-rove\ngrpc:\n  port: 6000\n"), 0o644)

	os.Setenv("ROVE_APP_NAME", "env-override")
	defer os.Unsetenv("ROVE_APP_NAME")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "env-override" {
		t.Errorf("app.name = %q, want env-override", cfg.App.Name)
	}
	if cfg.GRPC.Port != 6000 {
		t.Errorf("grpc.port = %d, want 6000 (from file)", cfg.GRPC.Port)
	}
}

func TestLoaderWithEnvPrefix(t *testing.T) {
	os.Setenv("ROVETEST_APP_NAME", "custom-prefix-rove")
	defer os.Unsetenv("ROVETEST_APP_NAME")

	cfg, err := NewLoader(WithEnvPrefix("ROVETEST_")).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "custom-prefix-rove" {
		t.Errorf("app.name = %q, want custom-prefix-rove", cfg.App.Name)
	}
}

func TestLoaderConfigPathEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "other.yaml")
	os.WriteFile(configPath, []byte("app:\n  name: config-path-rove\n"), 0o644)

	os.Setenv("CONFIG_PATH", configPath)
	defer os.Unsetenv("CONFIG_PATH")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "config-path-rove" {
		t.Errorf("app.name = %q, want config-path-rove", cfg.App.Name)
	}
}

func TestMustLoadSuccess(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad panicked with valid defaults: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestLoadSimple(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestLoadWithServiceDefaults(t *testing.T) {
	cfg, err := LoadWithServiceDefaults("qc-worker", 9100)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "qc-worker" {
		t.Errorf("app.name = %q, want qc-worker", cfg.App.Name)
	}
	if cfg.GRPC.Port != 9100 {
		t.Errorf("grpc.port = %d, want 9100", cfg.GRPC.Port)
	}
}
