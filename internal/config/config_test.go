package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "geocrime.db", cfg.Store.Path)
	assert.Equal(t, "dbscan", cfg.Cluster.Algorithm)
	assert.InDelta(t, 0.01, cfg.Cluster.Eps, 1e-9)
	assert.Equal(t, 5, cfg.Cluster.MinSamples)
	assert.Equal(t, 100, cfg.Classifier.Trees)
	assert.InDelta(t, 75.0, cfg.Classifier.RiskPercentile, 1e-9)
	assert.InDelta(t, 0.05, cfg.Anomaly.Contamination, 1e-9)
	assert.True(t, cfg.RiskIndex.UseHotspots)
	assert.Equal(t, "in", cfg.Geocode.Country)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/geocrime
cluster:
  algorithm: kmeans
  n_clusters: 8
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "kmeans", cfg.Cluster.Algorithm)
	assert.Equal(t, 8, cfg.Cluster.NClusters)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.05, cfg.Anomaly.Contamination, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GEOCRIME_STORE_DRIVER", "postgres")
	t.Setenv("GEOCRIME_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("GEOCRIME_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "geocrime.db"
	cfg.Anomaly.Contamination = 0.05
	cfg.Classifier.RiskPercentile = 75
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("cli"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_StoreDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	err := cfg.Validate("cli")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "oracle"
	err = cfg.Validate("cli")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anomaly.Contamination = 0.6
	err := cfg.Validate("cli")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contamination")

	cfg = validDefaults()
	cfg.Classifier.RiskPercentile = 120
	err = cfg.Validate("cli")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk_percentile")
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	assert.NoError(t, cfg.Validate("cli"), "port unchecked outside serve")
}

func TestValidate_UnknownMode(t *testing.T) {
	err := validDefaults().Validate("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrConfiguration))
}
