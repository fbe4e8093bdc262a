// Package config is the koanf-backed layered configuration for the
// engine: defaults, then an optional YAML file, then environment
// variables, in that order of increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration tree.
type Config struct {
	App        AppConfig        `koanf:"app"`
	GRPC       GRPCConfig       `koanf:"grpc"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Tracing    TracingConfig    `koanf:"tracing"`
	Auth       AuthConfig       `koanf:"auth"`
	DataSwitch DataSwitchConfig `koanf:"data_switch"`
	Pipelines  PipelinesConfig  `koanf:"pipelines"`
	Registry   RegistryConfig   `koanf:"registry"`
}

// AppConfig holds process identity.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig controls the streaming server bind address and limits.
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"`
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"`
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
}

// KeepAliveConfig mirrors grpc.KeepaliveParams/EnforcementPolicy.
type KeepAliveConfig struct {
	MaxConnectionIdle time.Duration `koanf:"max_connection_idle"`
	Time              time.Duration `koanf:"time"`
	Timeout           time.Duration `koanf:"timeout"`
}

// LogConfig configures the slog/lumberjack logger.
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls the OTLP exporter.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// AuthConfig controls bearer-token verification at the façade.
type AuthConfig struct {
	Enabled   bool   `koanf:"enabled"`
	SecretKey string `koanf:"secret_key"`
	Issuer    string `koanf:"issuer"`
}

// DataSwitchConfig names the backing sources a deployment registers,
// plus the Redis fetch-cache policy layered in front of them.
type DataSwitchConfig struct {
	Sources []string    `koanf:"sources"`
	Cache   CacheConfig `koanf:"cache"`
}

// CacheConfig controls the Redis decorator in front of a Connector.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
	Prefix   string        `koanf:"prefix"`
}

// PipelinesConfig points at the directory of pipeline TOML files.
type PipelinesConfig struct {
	Dir string `koanf:"dir"`
}

// RegistryConfig controls the Postgres pipeline-metadata registry.
type RegistryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	DSN            string `koanf:"dsn"`
	MigrationsPath string `koanf:"migrations_path"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// Validate checks the cross-field invariants the loader can't catch
// with defaults alone.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level))
	}
	if c.Pipelines.Dir == "" {
		errs = append(errs, "pipelines.dir is required")
	}
	if len(c.DataSwitch.Sources) == 0 {
		errs = append(errs, "data_switch.sources must name at least one backing source")
	}
	if c.Auth.Enabled && c.Auth.SecretKey == "" {
		errs = append(errs, "auth.secret_key is required when auth.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment reports whether this is a development deployment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}
