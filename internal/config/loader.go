package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROVE_"

// Loader builds a Config by layering defaults, an optional YAML file,
// and environment variables, each overriding the one before it.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the candidate file paths checked, in order, when
// CONFIG_PATH is not set.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) { l.configPaths = paths }
}

// WithEnvPrefix overrides the environment variable prefix (default
// "ROVE_").
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// NewLoader builds a Loader with the given options applied over
// defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k:           koanf.New("."),
		configPaths: []string{"./config.yaml", "./config/config.yaml", "/etc/rove/config.yaml"},
		envPrefix:   envPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads defaults, then an optional file, then the environment,
// unmarshals the result into a Config, and validates it.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "rove",
		"app.version":     "dev",
		"app.environment": "development",
		"app.debug":       false,

		"grpc.port":                           8443,
		"grpc.max_recv_msg_size":              16 * 1024 * 1024,
		"grpc.max_send_msg_size":              16 * 1024 * 1024,
		"grpc.max_concurrent_conn":            100,
		"grpc.keepalive.max_connection_idle":  15 * time.Minute,
		"grpc.keepalive.time":                 5 * time.Minute,
		"grpc.keepalive.timeout":              20 * time.Second,

		"log.level":       "info",
		"log.format":      "text",
		"log.output":      "stderr",
		"log.file_path":   "",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     28,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.namespace": "rove",
		"metrics.subsystem": "",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "rove",
		"tracing.sample_rate":  0.1,

		"auth.enabled":    false,
		"auth.secret_key": "",
		"auth.issuer":     "rove",

		"data_switch.sources":        []string{"primary"},
		"data_switch.cache.enabled":  false,
		"data_switch.cache.addr":     "localhost:6379",
		"data_switch.cache.password": "",
		"data_switch.cache.db":       0,
		"data_switch.cache.ttl":      5 * time.Minute,
		"data_switch.cache.prefix":   "rove:fetch:",

		"pipelines.dir": "./pipelines",

		"registry.enabled":         false,
		"registry.dsn":             "",
		"registry.migrations_path": "./internal/registry/migrations",
		"registry.auto_migrate":    false,
	}
	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

func (l *Loader) loadConfigFile() error {
	path := os.Getenv("CONFIG_PATH")
	if path != "" {
		return l.k.Load(file.Provider(path), yaml.Parser())
	}
	for _, p := range l.configPaths {
		if _, err := os.Stat(p); err == nil {
			return l.k.Load(file.Provider(p), yaml.Parser())
		}
	}
	return nil
}

func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
}

// MustLoad loads a Config and panics on error. Used at process startup
// where there is no sensible way to continue without configuration.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

// Load is a package-level convenience wrapping NewLoader(opts...).Load().
func Load(opts ...LoaderOption) (*Config, error) {
	return NewLoader(opts...).Load()
}

// LoadWithServiceDefaults loads a Config, then overrides the app name
// and gRPC port if they were left at their loader defaults — useful for
// a binary that wants a sane identity without a config file.
func LoadWithServiceDefaults(appName string, grpcPort int) (*Config, error) {
	l := NewLoader()
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := l.k.Set("app.name", appName); err != nil {
		return nil, fmt.Errorf("set app.name: %w", err)
	}
	if err := l.k.Set("grpc.port", grpcPort); err != nil {
		return nil, fmt.Errorf("set grpc.port: %w", err)
	}
	if err := l.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}
	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
