// Command rove-server wires up the ROVE quality-control pipeline and
// serves it over the hand-rolled facade.ServiceDesc streaming RPC.
package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"rove/internal/config"
	"rove/internal/dataswitch"
	"rove/internal/dataswitch/memconn"
	"rove/internal/dataswitch/rediscache"
	"rove/internal/facade"
	"rove/internal/harness"
	"rove/internal/logger"
	"rove/internal/metrics"
	"rove/internal/pgdb"
	"rove/internal/pipeline"
	"rove/internal/qcroutines"
	"rove/internal/registry"
	"rove/internal/scheduler"
	"rove/internal/server"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("rove-server", 50070)
	if err != nil {
		panic(err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()
	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	if cfg.Registry.Enabled {
		if err := setupRegistry(ctx, cfg); err != nil {
			logger.Fatal("failed to set up pipeline registry", "error", err)
		}
	}

	pipelines, err := pipeline.LoadDir(cfg.Pipelines.Dir)
	if err != nil {
		logger.Fatal("failed to load pipelines", "error", err, "dir", cfg.Pipelines.Dir)
	}
	logger.Info("loaded pipelines", "count", len(pipelines), "dir", cfg.Pipelines.Dir)

	sw := dataswitch.New(connectors(cfg))
	h := harness.New(qcroutines.NewReference())
	sched := scheduler.New(pipelines, sw, h)
	f := facade.New(sched)

	srv := server.New(cfg)
	srv.Engine().RegisterService(&facade.ServiceDesc, f)
	facade.RegisterCodec()

	logger.Info("starting rove-server",
		"port", cfg.GRPC.Port,
		"environment", cfg.App.Environment,
		"sources", cfg.DataSwitch.Sources,
	)

	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}

// connectors builds one in-memory Connector per configured source,
// wrapped in a Redis read-through cache when one is configured. A
// production deployment replaces memconn with a real backing
// connector (e.g. grpcconn against a remote data-provider service);
// memconn exists so this binary runs standalone without external
// dependencies wired in.
func connectors(cfg *config.Config) map[string]dataswitch.Connector {
	out := make(map[string]dataswitch.Connector, len(cfg.DataSwitch.Sources))

	var redisClient *redis.Client
	if cfg.DataSwitch.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.DataSwitch.Cache.Addr,
			Password: cfg.DataSwitch.Cache.Password,
			DB:       cfg.DataSwitch.Cache.DB,
		})
	}

	for _, name := range cfg.DataSwitch.Sources {
		var conn dataswitch.Connector = memconn.New(memconn.StationGridFixture(8, 0))
		if redisClient != nil {
			conn = rediscache.New(conn, redisClient, cfg.DataSwitch.Cache.Prefix+name+":", cfg.DataSwitch.Cache.TTL)
		}
		out[name] = conn
	}
	return out
}

// setupRegistry connects to Postgres, runs migrations if configured,
// and registers every loaded pipeline's metadata for introspection.
func setupRegistry(ctx context.Context, cfg *config.Config) error {
	pool, err := pgdb.Connect(ctx, cfg.Registry.DSN)
	if err != nil {
		return err
	}

	if cfg.Registry.AutoMigrate {
		migrator := pgdb.NewMigrator(pool.Raw(), registry.Migrations, registry.MigrationsDir)
		if err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	store := registry.NewPostgresStore(pool)
	return registry.RegisterDir(ctx, store, cfg.Pipelines.Dir, time.Now())
}
