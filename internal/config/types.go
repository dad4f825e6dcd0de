package config

import "time"

// GraphConfig controls road graph construction
type GraphConfig struct {
	MaxEdgeLengthKm float64 `yaml:"max_edge_length_km" validate:"gt=0"`
}

// MatchingConfig controls the matching pipeline
type MatchingConfig struct {
	Smooth                 bool    `yaml:"smooth"`
	Interpolate            int     `yaml:"interpolate" validate:"gte=0"`
	BBoxPaddingKm          float64 `yaml:"bbox_padding_km" validate:"gte=0"`
	MaxFallbackDeviationKm float64 `yaml:"max_fallback_deviation_km" validate:"gte=0"`
	Snapper                string  `yaml:"snapper" validate:"oneof=rtree linear"`
	Workers                int     `yaml:"workers" validate:"gte=0"`
}

// OverpassConfig configures the Overpass road source
type OverpassConfig struct {
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// PostGISConfig configures the PostGIS road source
type PostGISConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" validate:"required"`
	SSLMode  string `yaml:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	Table    string `yaml:"table" validate:"required"`
}

// GeoJSONConfig configures the GeoJSON file road source
type GeoJSONConfig struct {
	Path string `yaml:"path"`
}

// RoadsConfig selects and configures the road source
type RoadsConfig struct {
	Source   string         `yaml:"source" validate:"oneof=overpass postgis geojson"`
	Overpass OverpassConfig `yaml:"overpass"`
	PostGIS  PostGISConfig  `yaml:"postgis"`
	GeoJSON  GeoJSONConfig  `yaml:"geojson"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Addr         string `yaml:"addr" validate:"required"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" validate:"gt=0"`
	// JWTSecret enables bearer token auth on /api when set
	JWTSecret    string `yaml:"jwt_secret" validate:"omitempty,min=16"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Graph    GraphConfig    `yaml:"graph"`
	Matching MatchingConfig `yaml:"matching"`
	Roads    RoadsConfig    `yaml:"roads"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}
