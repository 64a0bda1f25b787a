package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress", cfg.Census.BaseURL)
	assert.Equal(t, "Public_AR_Current", cfg.Census.Benchmark)
	assert.Equal(t, 20, cfg.Census.TimeoutSecs)
	assert.Equal(t, "unmatched_geocode.csv", cfg.Geocode.UnmatchedPath)
	assert.Equal(t, "Street_Address", cfg.Columns.Street)
	assert.Equal(t, "City", cfg.Columns.City)
	assert.Equal(t, "State", cfg.Columns.State)
	assert.Equal(t, "ZIP_Code", cfg.Columns.Zip)
	assert.Equal(t, "Hospital_Name", cfg.Columns.Hospital)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
census:
  benchmark: Public_AR_Census2020
  timeout_secs: 5
columns:
  street: Address_Line_1
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Public_AR_Census2020", cfg.Census.Benchmark)
	assert.Equal(t, 5, cfg.Census.TimeoutSecs)
	assert.Equal(t, "Address_Line_1", cfg.Columns.Street)
	// Untouched keys keep defaults.
	assert.Equal(t, "City", cfg.Columns.City)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("HOSPGEO_GEOCODE_UNMATCHED_PATH", "misses.csv")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "misses.csv", cfg.Geocode.UnmatchedPath)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "verbose", Format: "console"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
