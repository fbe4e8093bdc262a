// Package server wraps a *grpc.Server the way the teacher's
// pkg/server does: keepalive params, a health service, reflection in
// development, a background metrics server, and signal-driven graceful
// shutdown. Rate limiting, audit logging, TLS and the swagger/OpenAPI
// sidecar are dropped — nothing in this repository's domain stack
// needs them (see DESIGN.md).
package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"rove/internal/config"
	"rove/internal/facade"
	"rove/internal/interceptors"
	"rove/internal/logger"
	"rove/internal/metrics"
	"rove/internal/telemetry"
)

// Server wraps a *grpc.Server configured from a Config, plus the
// health service and background telemetry/metrics it owns.
type Server struct {
	server      *grpc.Server
	health      *health.Server
	serviceName string
	config      *config.Config
	telemetry   *telemetry.Provider
}

// New builds a Server from cfg: interceptor chain, keepalive,
// health, and reflection in development.
func New(cfg *config.Config) *Server {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle: cfg.GRPC.KeepAlive.MaxConnectionIdle,
		Time:              cfg.GRPC.KeepAlive.Time,
		Timeout:           cfg.GRPC.KeepAlive.Timeout,
	}
	kaPolicy := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	chain := interceptors.Chain(interceptors.Config{ServiceName: cfg.App.Name}, authInterceptor(cfg))

	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.GRPC.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.GRPC.MaxSendMsgSize),
		grpc.MaxConcurrentStreams(uint32(cfg.GRPC.MaxConcurrentConn)),
		grpc.KeepaliveParams(kaParams),
		grpc.KeepaliveEnforcementPolicy(kaPolicy),
		grpc.StreamInterceptor(chain),
	}

	s := grpc.NewServer(serverOpts...)

	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)

	if cfg.IsDevelopment() {
		reflection.Register(s)
		logger.Log.Debug("grpc reflection enabled")
	}

	return &Server{
		server:      s,
		health:      h,
		serviceName: cfg.App.Name,
		config:      cfg,
	}
}

// authInterceptor builds a StreamAuthInterceptor from cfg.Auth, or nil
// if auth is disabled. Development deployments derive their HMAC key
// from a short secret_key via DeriveDevSecret rather than using it
// directly, so a memorable dev passphrase never doubles as a
// production-grade key by accident.
func authInterceptor(cfg *config.Config) grpc.StreamServerInterceptor {
	if !cfg.Auth.Enabled {
		return nil
	}

	tokenCfg := facade.TokenConfig{SecretKey: cfg.Auth.SecretKey, Issuer: cfg.Auth.Issuer}
	if cfg.IsDevelopment() {
		verifier, err := facade.NewDevTokenVerifier(tokenCfg)
		if err != nil {
			logger.Log.Warn("failed to derive dev auth secret, auth disabled", "error", err)
			return nil
		}
		return facade.StreamAuthInterceptor(verifier)
	}
	return facade.StreamAuthInterceptor(facade.NewTokenVerifier(tokenCfg))
}

// Engine returns the underlying *grpc.Server for service registration.
func (s *Server) Engine() *grpc.Server {
	return s.server
}

// Run starts telemetry and the metrics server (if enabled), opens the
// listener, and blocks serving until a shutdown signal or serve error.
func (s *Server) Run() error {
	ctx := context.Background()

	if s.config.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     s.config.Tracing.Enabled,
			Endpoint:    s.config.Tracing.Endpoint,
			ServiceName: s.config.Tracing.ServiceName,
			Version:     s.config.App.Version,
			Environment: s.config.App.Environment,
			SampleRate:  s.config.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("failed to init telemetry", "error", err)
		} else {
			s.telemetry = tp
			logger.Log.Info("telemetry initialized", "endpoint", s.config.Tracing.Endpoint)
		}
	}

	if s.config.Metrics.Enabled {
		go func() {
			logger.Log.Info("starting metrics server", "port", s.config.Metrics.Port)
			if err := metrics.StartMetricsServer(s.config.Metrics.Port); err != nil {
				logger.Log.Error("metrics server failed", "error", err)
			}
		}()
	}

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.config.GRPC.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("starting grpc server",
			"service", s.serviceName,
			"port", s.config.GRPC.Port,
			"environment", s.config.App.Environment,
		)
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	if m := metrics.Get(); m != nil {
		m.SetServiceInfo(s.config.App.Version)
	}

	return s.waitForShutdown(errCh)
}

func (s *Server) waitForShutdown(errCh chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Log.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.health.SetServingStatus(s.serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Log.Warn("failed to shutdown telemetry", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Log.Warn("forcing server stop")
		s.server.Stop()
	}

	return nil
}

// SetServingStatus reports a new health status for this service.
func (s *Server) SetServingStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus(s.serviceName, status)
}

// Stop stops the server immediately.
func (s *Server) Stop() {
	s.server.Stop()
}

// GracefulStop stops the server, waiting for in-flight RPCs to finish.
func (s *Server) GracefulStop() {
	s.server.GracefulStop()
}
