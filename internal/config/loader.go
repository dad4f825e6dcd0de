// Package config loads the roadmatch configuration from a YAML file, an
// optional .env file and environment variables, and validates it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kass/roadmatch/pkg/overpass"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

// Environment variables overriding file values
const (
	EnvOverpassURL = "ROADMATCH_OVERPASS_URL"
	EnvPGHost      = "ROADMATCH_PG_HOST"
	EnvPGPort      = "ROADMATCH_PG_PORT"
	EnvPGPassword  = "ROADMATCH_PG_PASSWORD"
	EnvRoadsSource = "ROADMATCH_ROADS_SOURCE"
	EnvServerAddr  = "ROADMATCH_ADDR"
	EnvJWTSecret   = "ROADMATCH_JWT_SECRET"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFormat   = "LOG_FORMAT"
)

// Default returns the configuration used when no file is given
func Default() AppConfig {
	return AppConfig{
		Graph: GraphConfig{MaxEdgeLengthKm: roadgraph.DefaultMaxEdgeLength},
		Matching: MatchingConfig{
			BBoxPaddingKm: 0.2,
			Snapper:       "rtree",
		},
		Roads: RoadsConfig{
			Source: "overpass",
			Overpass: OverpassConfig{
				URL:     overpass.DefaultURL,
				Timeout: 25 * time.Second,
			},
			PostGIS: PostGISConfig{
				Host:   "localhost",
				Port:   5432,
				User:   "geo",
				DBName: "geodb",
				Table:  "roads",
			},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 10 << 20,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path on top of the defaults. A missing file is not an error
// when path is empty. Variables from a .env file in the working directory are
// loaded into the environment first, without overriding existing ones.
func Load(path string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section. Source specific sections
// are only checked for the selected road source.
func Validate(cfg AppConfig) error {
	v := validator.New()
	sections := []any{cfg.Graph, cfg.Matching, cfg.Server, cfg.Log}
	for _, s := range sections {
		if err := v.Struct(s); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if err := v.Var(cfg.Roads.Source, "oneof=overpass postgis geojson"); err != nil {
		return fmt.Errorf("invalid config: roads.source %q: %w", cfg.Roads.Source, err)
	}
	switch cfg.Roads.Source {
	case "overpass":
		if err := v.Struct(cfg.Roads.Overpass); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	case "postgis":
		if err := v.Struct(cfg.Roads.PostGIS); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv(EnvOverpassURL); v != "" {
		cfg.Roads.Overpass.URL = v
	}
	if v := os.Getenv(EnvPGHost); v != "" {
		cfg.Roads.PostGIS.Host = v
	}
	if v := os.Getenv(EnvPGPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPGPort, err)
		}
		cfg.Roads.PostGIS.Port = port
	}
	if v := os.Getenv(EnvPGPassword); v != "" {
		cfg.Roads.PostGIS.Password = v
	}
	if v := os.Getenv(EnvRoadsSource); v != "" {
		cfg.Roads.Source = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	return nil
}
