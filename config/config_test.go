package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "Li_class_dom.tif", cfg.Extract.DomesticRaster)
	assert.Equal(t, "Li_class_pub.tif", cfg.Extract.PublicRaster)
	assert.Equal(t, "lithium_categories.csv", cfg.Extract.Output)
	assert.Equal(t, "csv", cfg.Extract.Format)
	assert.Equal(t, 4, cfg.Extract.NumWorkers)
	assert.Equal(t, "lithium_categories.csv", cfg.Join.Input)
	assert.Equal(t, filepath.Join("tl_2025_us_county", "tl_2025_us_county.shp"), cfg.Join.Boundaries)
	assert.Equal(t, "GEOID", cfg.Join.CodeField)
	assert.Equal(t, 10, cfg.Join.IndexMaxLevel)
	assert.Equal(t, "lithium_categories_with_counties.csv", cfg.Aggregate.Input)
	assert.Equal(t, "lithium_aggregated_by_county.csv", cfg.Aggregate.Output)
	assert.Equal(t, "duckdb", cfg.Load.Driver)
	assert.Equal(t, "data.duckdb", cfg.Load.DSN)
	assert.Equal(t, ".", cfg.Load.Dir)
	assert.Equal(t, []string{".csv", ".xls", ".tsv", ".xlsx"}, cfg.Load.Extensions)
	assert.Equal(t, []string{"lithium_categories.csv", "lithium_categories_with_counties.csv"}, cfg.Load.Exclude)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data_dir: /data
extract:
  format: parquet
  num_workers: 2
join:
  input: cells.parquet
load:
  driver: sqlite
  dsn: data.sqlite
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lithium.yaml"), []byte(yaml), 0644))

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "parquet", cfg.Extract.Format)
	assert.Equal(t, 2, cfg.Extract.NumWorkers)
	assert.Equal(t, "cells.parquet", cfg.Join.Input)
	assert.Equal(t, "sqlite", cfg.Load.Driver)
	assert.Equal(t, "/data", cfg.Path(cfg.Load.Dir))
	assert.Equal(t, filepath.Join("/data", "cells.parquet"), cfg.Path(cfg.Join.Input))
	assert.Equal(t, "/abs/x.csv", cfg.Path("/abs/x.csv"))
	// Defaults still apply for unset values
	assert.Equal(t, "GEOID", cfg.Join.CodeField)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aggregate:\n  output: out.csv\n"), 0644))

	v := viper.New()
	v.Set("config", path)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "out.csv", cfg.Aggregate.Output)

	v = viper.New()
	v.Set("config", filepath.Join(dir, "missing.yaml"))
	_, err = Load(v)
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lithium.yaml"), []byte("load:\n  driver: sqlite\n"), 0644))

	t.Setenv("LITHIUM_LOAD_DRIVER", "postgres")
	t.Setenv("LITHIUM_LOAD_DSN", "postgres://localhost/lithium")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Load.Driver)
	assert.Equal(t, "postgres://localhost/lithium", cfg.Load.DSN)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LITHIUM_EXTRACT_NUM_WORKERS=12\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LITHIUM_EXTRACT_NUM_WORKERS") })

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Extract.NumWorkers)
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	})

	require.NoError(t, InitLogger(LogConfig{}, false, false))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	require.NoError(t, InitLogger(LogConfig{}, true, false))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	require.NoError(t, InitLogger(LogConfig{}, true, true))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	require.NoError(t, InitLogger(LogConfig{Level: "error", Format: "json"}, false, true))
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}, false, false))
	assert.Error(t, InitLogger(LogConfig{Format: "xml"}, false, false))
}
