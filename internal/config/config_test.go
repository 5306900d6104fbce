package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"stash": { "url": "http://stash.lan:9999", "apiKey": "abc" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "http://stash.lan:9999", viper.GetString("stash.url"))
	assert.Equal(t, "abc", viper.GetString("stash.apiKey"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:9999", viper.GetString("stash.url"))
	assert.Equal(t, "", viper.GetString("stash.apiKey"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"))
	assert.Equal(t, "postgres", viper.GetString("db.password"))
	assert.Equal(t, "markerlab", viper.GetString("db.database"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, 3, viper.GetInt("derive.maxDepth"))
	assert.Equal(t, 9, viper.GetInt("slots.maxCombinations"))
	assert.Equal(t, 20.0, viper.GetFloat64("shots.defaultWindow"))
	assert.Equal(t, 0.5, viper.GetFloat64("shots.removeTolerance"))
	assert.Equal(t, ":8080", viper.GetString("server.addr"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "markerlab", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("MARKERLAB_STASH_APIKEY", "from-env")
	t.Setenv("MARKERLAB_SHOTS_DEFAULTWINDOW", "7.5")

	require.NoError(t, Load(writeConfig(t, `{ "stash": { "apiKey": "from-file" } }`)))

	s := Get()
	assert.Equal(t, "from-env", s.Stash.APIKey)
	assert.Equal(t, 7.5, s.Shots.DefaultWindow)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": { "type": "memory", "sqlitePath": "/tmp/x.db", "memorySnapshot": "/tmp/state.json.gz" }
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "memory", sc.Type)
	assert.Equal(t, "/tmp/x.db", sc.SQLitePath)
	assert.Equal(t, "/tmp/state.json.gz", sc.MemorySnapshot)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "markerlab", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGet(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"tags": { "confirmed": "100", "rejected": "101", "markerGroupParent": "7" },
		"derive": { "maxDepth": 5 },
		"shots": { "defaultWindow": 10 },
		"timeline": { "pixelsPerMinute": 600 },
		"keys": { "Z": ":MARKER:REJECT:" }
	}`)))

	s := Get()
	assert.Equal(t, TagConfig{Confirmed: "100", Rejected: "101", MarkerGroupParent: "7"}, s.Tags)
	assert.Equal(t, 5, s.DeriveMaxDepth)
	assert.Equal(t, 9, s.MaxCombinations)
	assert.Equal(t, ShotConfig{DefaultWindow: 10, RemoveTolerance: 0.5}, s.Shots)
	assert.Equal(t, 600.0, s.Timeline.PixelsPerMinute)
	assert.Equal(t, 4.0, s.Timeline.MinMarkerWidth)
	assert.Equal(t, "sqlite", s.Storage.Type)
	assert.Equal(t, ":MARKER:REJECT:", s.Keys["z"])
}
