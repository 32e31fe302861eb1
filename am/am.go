package am

// Config represents the longrun configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Registry RegistryConfig `mapstructure:"registry" toml:"registry" json:"registry" yaml:"registry"`
	Service  ServiceConfig  `mapstructure:"service" toml:"service" json:"service" yaml:"service"`
	Server   ServerConfig   `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics" toml:"metrics" json:"metrics" yaml:"metrics"`
}

// DatabaseConfig configures the SQLite database backing the sqlite registry
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// Registry backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// RegistryConfig selects where job records are kept between processes
type RegistryConfig struct {
	Backend string      `mapstructure:"backend" toml:"backend" json:"backend" yaml:"backend"` // memory, sqlite or redis
	Redis   RedisConfig `mapstructure:"redis" toml:"redis" json:"redis" yaml:"redis"`
}

// RedisConfig configures the redis registry backend
type RedisConfig struct {
	Addr      string `mapstructure:"addr" toml:"addr" json:"addr" yaml:"addr"`
	Password  string `mapstructure:"password" toml:"-" json:"-" yaml:"-"`
	DB        int    `mapstructure:"db" toml:"db" json:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" toml:"key_prefix" json:"key_prefix" yaml:"key_prefix"`
}

// ServiceConfig configures the long running service
type ServiceConfig struct {
	DefaultNumberOfJobs uint32 `mapstructure:"default_number_of_jobs" toml:"default_number_of_jobs" json:"default_number_of_jobs" yaml:"default_number_of_jobs"`
	DefaultMinDuration  int32  `mapstructure:"default_min_duration" toml:"default_min_duration" json:"default_min_duration" yaml:"default_min_duration"`
	MaxNumberOfJobs     uint32 `mapstructure:"max_number_of_jobs" toml:"max_number_of_jobs" json:"max_number_of_jobs" yaml:"max_number_of_jobs"`
	Seed                uint64 `mapstructure:"seed" toml:"seed" json:"seed" yaml:"seed"` // 0 = seed from the clock
	PurgeOnClose        bool   `mapstructure:"purge_on_close" toml:"purge_on_close" json:"purge_on_close" yaml:"purge_on_close"`
}

// ServerConfig configures the HTTP service shell
type ServerConfig struct {
	Port            *int     `mapstructure:"port" toml:"port" json:"port" yaml:"port"` // nil = default 8787, 0 is invalid
	WatchIntervalMS int      `mapstructure:"watch_interval_ms" toml:"watch_interval_ms" json:"watch_interval_ms" yaml:"watch_interval_ms"`
	RunsPerMinute   int      `mapstructure:"runs_per_minute" toml:"runs_per_minute" json:"runs_per_minute" yaml:"runs_per_minute"` // 0 = unlimited
	AllowedOrigins  []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
}

// Server constants
const (
	DefaultServerPort      = 8787
	DefaultWatchIntervalMS = 500
	DefaultRunsPerMinute   = 60
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// ServerPort returns the configured port, or DefaultServerPort when unset
func (c *Config) ServerPort() int {
	if c.Server.Port == nil {
		return DefaultServerPort
	}
	return *c.Server.Port
}
