package am

import "github.com/teranos/longrun/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Registry.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case "":
		return errors.New("registry.backend cannot be empty (memory, sqlite or redis)")
	default:
		return errors.Newf("registry.backend must be memory, sqlite or redis, got %q", c.Registry.Backend)
	}

	if c.Registry.Backend == BackendSQLite && c.Database.Path == "" {
		return errors.New("database.path cannot be empty with the sqlite registry")
	}
	if c.Registry.Backend == BackendRedis {
		if c.Registry.Redis.Addr == "" {
			return errors.New("registry.redis.addr cannot be empty with the redis registry")
		}
		if c.Registry.Redis.DB < 0 {
			return errors.Newf("registry.redis.db must be >= 0, got %d", c.Registry.Redis.DB)
		}
	}

	if c.Service.MaxNumberOfJobs == 0 {
		return errors.New("service.max_number_of_jobs must be > 0")
	}
	if c.Service.DefaultNumberOfJobs > c.Service.MaxNumberOfJobs {
		return errors.Newf("service.default_number_of_jobs (%d) exceeds service.max_number_of_jobs (%d)",
			c.Service.DefaultNumberOfJobs, c.Service.MaxNumberOfJobs)
	}

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && *c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", *c.Server.Port)
	}

	if c.Server.WatchIntervalMS <= 0 {
		return errors.Newf("server.watch_interval_ms must be > 0, got %d", c.Server.WatchIntervalMS)
	}
	// 0 = no throttling
	if c.Server.RunsPerMinute < 0 {
		return errors.Newf("server.runs_per_minute must be >= 0, got %d", c.Server.RunsPerMinute)
	}

	return nil
}
