package server

import (
	"testing"

	"rove/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "rove-test", Environment: "development"},
		GRPC: config.GRPCConfig{Port: 0, MaxRecvMsgSize: 4 << 20, MaxSendMsgSize: 4 << 20, MaxConcurrentConn: 100},
		Log:  config.LogConfig{Level: "info"},
	}
}

func TestNewBuildsServerWithHealthAndReflection(t *testing.T) {
	s := New(testConfig())
	if s.Engine() == nil {
		t.Fatal("expected a non-nil grpc.Server")
	}
	if s.health == nil {
		t.Fatal("expected a health server to be registered")
	}
}

func TestSetServingStatusDoesNotPanic(t *testing.T) {
	s := New(testConfig())
	s.SetServingStatus(0)
}

func TestStopIsIdempotentBeforeServe(t *testing.T) {
	s := New(testConfig())
	s.Stop()
	s.Stop()
}

func TestNewWithAuthEnabledBuildsDevVerifier(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, SecretKey: "hunter2", Issuer: "rove"}

	s := New(cfg)
	if s.Engine() == nil {
		t.Fatal("expected a non-nil grpc.Server even with auth enabled")
	}
}

func TestAuthInterceptorNilWhenDisabled(t *testing.T) {
	if authInterceptor(testConfig()) != nil {
		t.Error("expected no auth interceptor when auth.enabled is false")
	}
}

func TestAuthInterceptorBuiltWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, SecretKey: "hunter2", Issuer: "rove"}
	if authInterceptor(cfg) == nil {
		t.Error("expected an auth interceptor when auth.enabled is true")
	}
}
