package commands

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/longrun/am"
	"github.com/teranos/longrun/db"
	"github.com/teranos/longrun/errors"
	"github.com/teranos/longrun/logger"
	"github.com/teranos/longrun/pulse/job"
	"github.com/teranos/longrun/pulse/longrun"
	"github.com/teranos/longrun/pulse/metrics"
	"github.com/teranos/longrun/pulse/registry"
	"github.com/teranos/longrun/pulse/timed"
)

// Flags shared by every command that touches the registry
var (
	backendFlag string
	dbPathFlag  string
)

// AddPersistentFlags registers the registry override flags on root
func AddPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&backendFlag, "backend", "", "Registry backend: memory, sqlite, redis (overrides config)")
	root.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "SQLite database path (overrides config)")
}

// loadConfig returns the loaded configuration with flag overrides applied
func loadConfig() (*am.Config, error) {
	loaded, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	cfg := *loaded
	if backendFlag != "" {
		cfg.Registry.Backend = backendFlag
	}
	if dbPathFlag != "" {
		cfg.Database.Path = dbPathFlag
	} else if path, err := am.GetDatabasePath(); err == nil && path != "" {
		cfg.Database.Path = path
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// openBackend builds the registry backend selected by cfg. The returned
// close function releases its connection.
func openBackend(ctx context.Context, cfg *am.Config, log *zap.SugaredLogger) (registry.Backend, func() error, error) {
	switch cfg.Registry.Backend {
	case am.BackendMemory:
		return registry.NewMemoryBackend(), func() error { return nil }, nil

	case am.BackendSQLite:
		database, err := db.OpenWithMigrations(cfg.Database.Path, log)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open registry database at %s", cfg.Database.Path)
		}
		return registry.NewSQLiteBackend(database), database.Close, nil

	case am.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Registry.Redis.Addr,
			Password: cfg.Registry.Redis.Password,
			DB:       cfg.Registry.Redis.DB,
		})
		backend := registry.NewRedisBackend(client, cfg.Registry.Redis.KeyPrefix)
		if err := backend.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, errors.WithHintf(
				errors.Wrapf(err, "failed to reach redis at %s", cfg.Registry.Redis.Addr),
				"check registry.redis.addr or set %s", am.EnvKey("registry.redis.addr"))
		}
		return backend, client.Close, nil

	default:
		return nil, nil, errors.Newf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// app is everything one CLI invocation needs to serve the long running service
type app struct {
	cfg     *am.Config
	backend registry.Backend
	adapter *registry.Adapter
	svc     *longrun.Service
	metrics *metrics.Collector
	close   func() error
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	backend, closeBackend, err := openBackend(ctx, cfg, logger.ComponentLogger("db"))
	if err != nil {
		return nil, err
	}

	kinds := job.NewKinds()
	timed.Register(kinds)

	collector := metrics.NewCollector()
	adapter := registry.NewAdapter(backend, kinds, longrun.ServiceName, logger.ComponentLogger("registry"),
		registry.WithMetrics(collector))

	svc := longrun.New(longrun.Config{
		DefaultNumberOfJobs: cfg.Service.DefaultNumberOfJobs,
		DefaultMinDuration:  cfg.Service.DefaultMinDuration,
		MaxNumberOfJobs:     cfg.Service.MaxNumberOfJobs,
		Seed:                cfg.Service.Seed,
		PurgeOnClose:        cfg.Service.PurgeOnClose,
	}, adapter, logger.ComponentLogger("service"), longrun.WithMetrics(collector))

	return &app{
		cfg:     cfg,
		backend: backend,
		adapter: adapter,
		svc:     svc,
		metrics: collector,
		close:   closeBackend,
	}, nil
}

func (a *app) Close() error {
	return a.close()
}
