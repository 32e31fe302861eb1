package am

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingByKey(ci *ConfigIntrospection, key string) (SettingInfo, bool) {
	for _, s := range ci.Settings {
		if s.Key == key {
			return s, true
		}
	}
	return SettingInfo{}, false
}

func TestGetConfigIntrospection(t *testing.T) {
	tmp := isolate(t)
	project := filepath.Join(tmp, "work", "am.toml")
	writeFile(t, project, `
[service]
purge_on_close = true
`)
	t.Setenv("LONGRUN_METRICS_ENABLED", "false")

	ci := GetConfigIntrospection()
	require.NotEmpty(t, ci.Settings)

	purge, ok := settingByKey(ci, "service.purge_on_close")
	require.True(t, ok)
	assert.Equal(t, SourceProject, purge.Source)
	assert.Equal(t, project, purge.SourcePath)

	metrics, ok := settingByKey(ci, "metrics.enabled")
	require.True(t, ok)
	assert.Equal(t, SourceEnvironment, metrics.Source)
	assert.Equal(t, "LONGRUN_METRICS_ENABLED", metrics.SourcePath)

	port, ok := settingByKey(ci, "server.port")
	require.True(t, ok)
	assert.Equal(t, SourceDefault, port.Source)

	counts := ci.CountBySource()
	assert.Equal(t, 1, counts[SourceProject])
	assert.Equal(t, 1, counts[SourceEnvironment])
	assert.Positive(t, counts[SourceDefault])
}

func TestIntrospectionMasksPassword(t *testing.T) {
	isolate(t)
	t.Setenv("LONGRUN_REDIS_PASSWORD", "hunter2")

	ci := GetConfigIntrospection()
	pw, ok := settingByKey(ci, "registry.redis.password")
	require.True(t, ok)
	assert.Equal(t, "********", pw.Value)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "LONGRUN_REGISTRY_REDIS_KEY_PREFIX", EnvKey("registry.redis.key_prefix"))
}
