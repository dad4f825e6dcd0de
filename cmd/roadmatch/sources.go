package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kass/roadmatch/internal/config"
	"github.com/kass/roadmatch/pkg/geojsonfile"
	"github.com/kass/roadmatch/pkg/gpx"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/overpass"
	"github.com/kass/roadmatch/pkg/postgis"
)

// openRoadSource returns the road source selected by rc. A non-empty
// roadsFile takes precedence over the configuration. The returned function
// releases the source.
func openRoadSource(ctx context.Context, rc config.RoadsConfig, roadsFile string) (matcher.RoadSource, func(), error) {
	noop := func() {}

	if roadsFile == "" && rc.Source == "geojson" {
		if rc.GeoJSON.Path == "" {
			return nil, noop, errors.New("roads.geojson.path is not set")
		}
		roadsFile = rc.GeoJSON.Path
	}
	if roadsFile != "" {
		f, err := geojsonfile.LoadRoads(roadsFile)
		if err != nil {
			return nil, noop, err
		}
		appLogger.Info("road file loaded", "path", roadsFile, "roads", len(f.Roads()))
		return f, noop, nil
	}

	switch rc.Source {
	case "postgis":
		store, err := openPostGIS(ctx, rc.PostGIS)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	case "overpass", "":
		client := overpass.NewClient(rc.Overpass.URL,
			overpass.WithTimeout(rc.Overpass.Timeout),
			overpass.WithLogger(appLogger))
		return client, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown road source %q", rc.Source)
	}
}

func sourceLabel(rc config.RoadsConfig, roadsFile string) string {
	if roadsFile != "" {
		return roadsFile
	}
	return rc.Source
}

func openPostGIS(ctx context.Context, pc config.PostGISConfig) (*postgis.RoadStore, error) {
	store, err := postgis.Open(ctx, postgis.Config{
		Host:     pc.Host,
		Port:     pc.Port,
		User:     pc.User,
		Password: pc.Password,
		DBName:   pc.DBName,
		SSLMode:  pc.SSLMode,
		Table:    pc.Table,
	})
	if err != nil {
		return nil, err
	}
	return store.WithLogger(appLogger), nil
}

func processorConfig(c config.AppConfig) matcher.ProcessorConfig {
	return matcher.ProcessorConfig{
		Smooth:               c.Matching.Smooth,
		Interpolate:          c.Matching.Interpolate,
		BBoxPaddingKm:        c.Matching.BBoxPaddingKm,
		MaxEdgeLength:        c.Graph.MaxEdgeLengthKm,
		MaxFallbackDeviation: c.Matching.MaxFallbackDeviationKm,
		Snapper:              c.Matching.Snapper,
		Workers:              c.Matching.Workers,
	}
}

func newTrackWriter(format, path string) (matcher.TrackWriter, error) {
	switch format {
	case "gpx", "":
		return gpx.NewFileStore("", path), nil
	case "geojson":
		return geojsonfile.NewTrackFile(path), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// newTrackReader picks the reader by file extension. Anything that is not
// GeoJSON is read as GPX.
func newTrackReader(path string) matcher.TrackReader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return geojsonfile.NewTrackFile(path)
	default:
		return gpx.NewFileStore(path, "")
	}
}
