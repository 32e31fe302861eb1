package am

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/longrun/config.toml
	SourceUser        ConfigSource = "user"        // ~/.longrun/am.toml
	SourceProject     ConfigSource = "project"     // project am.toml
	SourceEnvironment ConfigSource = "environment" // LONGRUN_* env vars
)

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"` // File path or env var name
}

// ConfigIntrospection provides metadata about the active configuration
type ConfigIntrospection struct {
	Settings []SettingInfo `json:"settings"`
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string
}

// GetConfigIntrospection reports every effective setting with the source
// tracked while loading
func GetConfigIntrospection() *ConfigIntrospection {
	v := GetViper()

	mu.Lock()
	sources := make(map[string]SourceInfo, len(ConfigSources))
	for k, s := range ConfigSources {
		sources[k] = s
	}
	mu.Unlock()

	introspection := &ConfigIntrospection{Settings: make([]SettingInfo, 0)}
	flattenSettingsWithSources(v.AllSettings(), "", introspection, sources)
	return introspection
}

// EnvKey returns the environment variable overriding key
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// flattenSettingsWithSources flattens settings and assigns sources from sourceMap
func flattenSettingsWithSources(settings map[string]interface{}, prefix string, introspection *ConfigIntrospection, sourceMap map[string]SourceInfo) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nestedMap, ok := value.(map[string]interface{}); ok {
			flattenSettingsWithSources(nestedMap, fullKey, introspection, sourceMap)
			continue
		}

		sourceInfo := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sourceMap[fullKey]; ok {
			sourceInfo = si
		}

		// Environment wins over every file
		envKey := EnvKey(fullKey)
		if _, ok := os.LookupEnv(envKey); ok {
			sourceInfo = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		// Never echo secrets
		if strings.HasSuffix(fullKey, "password") && value != "" {
			value = "********"
		}

		introspection.Settings = append(introspection.Settings, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     sourceInfo.Source,
			SourcePath: sourceInfo.Path,
		})
	}
}

// CountBySource returns how many settings each source contributed
func (ci *ConfigIntrospection) CountBySource() map[ConfigSource]int {
	counts := map[ConfigSource]int{}
	for _, s := range ci.Settings {
		counts[s.Source]++
	}
	return counts
}
