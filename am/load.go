package am

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/longrun/errors"
)

// EnvPrefix prefixes every environment override (LONGRUN_SERVER_PORT, ...)
const EnvPrefix = "LONGRUN"

// SystemConfigPath is the lowest precedence config file
var SystemConfigPath = "/etc/longrun/config.toml"

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records which file set each key during the last load
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the longrun configuration using Viper
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, on top of the
// defaults. Environment variables are not consulted.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults.
// Callers hold mu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)

	SetDefaults(v)

	// Merge configs in precedence order: system -> user -> project, env vars on top
	ConfigSources = mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for am.toml by walking up the directory tree
// Returns the path to the first config file found, or empty string if none found
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// UserConfigPath returns ~/.longrun/am.toml
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".longrun", "am.toml")
}

type configFile struct {
	path   string
	source ConfigSource
}

// configFiles lists candidate files from lowest to highest precedence
func configFiles() []configFile {
	files := []configFile{{SystemConfigPath, SourceSystem}}
	if user := UserConfigPath(); user != "" {
		files = append(files, configFile{user, SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		files = append(files, configFile{project, SourceProject})
	}
	return files
}

// mergeConfigFiles merges configuration files in precedence order and returns
// which file each key came from.
// Precedence (lowest to highest): system < user < project < env vars
func mergeConfigFiles(v *viper.Viper) map[string]SourceInfo {
	sources := map[string]SourceInfo{}

	for _, f := range configFiles() {
		if _, err := os.Stat(f.path); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(f.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap keeps file values below env overrides
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			sources[key] = SourceInfo{Source: f.source, Path: f.path}
		}
	}

	return sources
}

// Keys returns every known configuration key, sorted
func Keys() []string {
	keys := GetViper().AllKeys()
	sort.Strings(keys)
	return keys
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetBool returns a configuration value as bool using dot notation
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetInt returns a configuration value as int using dot notation
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetDatabasePath returns the configured database path
func GetDatabasePath() (string, error) {
	// LONGRUN_DB_PATH overrides for dev and tests
	if dbPath := os.Getenv("LONGRUN_DB_PATH"); dbPath != "" {
		return dbPath, nil
	}

	config, err := Load()
	if err != nil {
		return "", err
	}
	return config.Database.Path, nil
}
