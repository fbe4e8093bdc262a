package config

import "testing"

func validConfig() Config {
	return Config{
		App:        AppConfig{Name: "rove", Environment: "production"},
		GRPC:       GRPCConfig{Port: 8443},
		Log:        LogConfig{Level: "info"},
		Pipelines:  PipelinesConfig{Dir: "./pipelines"},
		DataSwitch: DataSwitchConfig{Sources: []string{"primary"}},
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfigValidateRejectsMissingAppName(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for missing app name")
	}
}

func TestConfigValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.GRPC.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for invalid grpc port")
	}
}

func TestConfigValidateRejectsBadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for invalid log level")
	}
}

func TestConfigValidateRejectsEmptyPipelinesDir(t *testing.T) {
	cfg := validConfig()
	cfg.Pipelines.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for empty pipelines dir")
	}
}

func TestConfigValidateRejectsNoSources(t *testing.T) {
	cfg := validConfig()
	cfg.DataSwitch.Sources = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for no data switch sources")
	}
}

func TestConfigValidateRejectsAuthEnabledWithoutSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for auth enabled without a secret key")
	}
}

func TestConfigIsDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "development"
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to be true")
	}
	cfg.App.Environment = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to be false")
	}
}
