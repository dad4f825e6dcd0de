package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Graph.MaxEdgeLengthKm)
	assert.Equal(t, "rtree", cfg.Matching.Snapper)
	assert.Equal(t, 0, cfg.Matching.Interpolate)
	assert.Equal(t, "overpass", cfg.Roads.Source)
	assert.Equal(t, 25*time.Second, cfg.Roads.Overpass.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, Validate(Default()))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
graph:
  max_edge_length_km: 0.05
matching:
  interpolate: 4
  bbox_padding_km: 0.5
  max_fallback_deviation_km: 0.3
  snapper: linear
  workers: 2
roads:
  source: postgis
  postgis:
    host: db
    port: 5433
    user: roads
    dbname: osm
    table: highways
server:
  addr: "127.0.0.1:9000"
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Graph.MaxEdgeLengthKm)
	assert.Equal(t, 4, cfg.Matching.Interpolate)
	assert.Equal(t, 0.3, cfg.Matching.MaxFallbackDeviationKm)
	assert.Equal(t, "linear", cfg.Matching.Snapper)
	assert.Equal(t, "postgis", cfg.Roads.Source)
	assert.Equal(t, "db", cfg.Roads.PostGIS.Host)
	assert.Equal(t, 5433, cfg.Roads.PostGIS.Port)
	assert.Equal(t, "highways", cfg.Roads.PostGIS.Table)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, overpassDefaultURL(), cfg.Roads.Overpass.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvOverpassURL, "http://localhost:12345/api/interpreter")
	t.Setenv(EnvPGPassword, "secret")
	t.Setenv(EnvPGPort, "6543")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:12345/api/interpreter", cfg.Roads.Overpass.URL)
	assert.Equal(t, "secret", cfg.Roads.PostGIS.Password)
	assert.Equal(t, 6543, cfg.Roads.PostGIS.Port)
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv(EnvPGPort, "fivefourthreetwo")
	_, err = Load("")
	assert.ErrorContains(t, err, EnvPGPort)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative edge length", "graph:\n  max_edge_length_km: -1\n"},
		{"unknown snapper", "matching:\n  snapper: quadtree\n"},
		{"unknown source", "roads:\n  source: shapefile\n"},
		{"bad overpass url", "roads:\n  overpass:\n    url: not a url\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"malformed yaml", "graph: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateSkipsUnusedSources(t *testing.T) {
	cfg := Default()
	cfg.Roads.Source = "geojson"
	cfg.Roads.Overpass.URL = ""
	cfg.Roads.PostGIS.Host = ""
	assert.NoError(t, Validate(cfg))
}

func overpassDefaultURL() string {
	return Default().Roads.Overpass.URL
}

func TestJWTSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "0123456789abcdef")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef", cfg.Server.JWTSecret)

	t.Setenv(EnvJWTSecret, "short")
	_, err = Load("")
	assert.Error(t, err)
}
