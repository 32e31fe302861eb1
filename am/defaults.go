package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "longrun.db")

	// Registry defaults: sqlite so status survives across CLI invocations
	v.SetDefault("registry.backend", BackendSQLite)
	v.SetDefault("registry.redis.addr", "localhost:6379")
	v.SetDefault("registry.redis.db", 0)
	v.SetDefault("registry.redis.key_prefix", "longrun:")

	// Service defaults
	v.SetDefault("service.default_number_of_jobs", 3)
	v.SetDefault("service.default_min_duration", 1)
	v.SetDefault("service.max_number_of_jobs", 1000)
	v.SetDefault("service.seed", 0)
	v.SetDefault("service.purge_on_close", false)

	// Server configuration defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.watch_interval_ms", DefaultWatchIntervalMS)
	v.SetDefault("server.runs_per_minute", DefaultRunsPerMinute)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	v.SetDefault("metrics.enabled", true)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// Redis password is never expected in a checked-in am.toml
	_ = v.BindEnv("registry.redis.password", "LONGRUN_REDIS_PASSWORD")
}

// Defaults returns the built-in configuration, ignoring files and environment
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults are static; unmarshal cannot fail on them
		panic(err)
	}
	return cfg
}
