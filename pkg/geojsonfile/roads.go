// Package geojsonfile reads road networks and reads or writes tracks as GeoJSON
// feature collections
package geojsonfile

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/models"
)

const sourceName = "geojson"

// RoadFile is an in-memory road network loaded from GeoJSON. Every
// LineString and MultiLineString feature is a road; other features are
// ignored.
type RoadFile struct {
	roads  []geo.Track
	bounds []orb.Bound
}

// LoadRoads reads a road network from path
func LoadRoads(path string) (*RoadFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseRoads(data)
}

// ParseRoads decodes a FeatureCollection of road geometries
func ParseRoads(data []byte) (*RoadFile, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}

	f := &RoadFile{}
	for _, feature := range fc.Features {
		for _, road := range geo.TracksFromGeometry(feature.Geometry) {
			if road.Len() == 0 {
				continue
			}
			f.roads = append(f.roads, road)
			f.bounds = append(f.bounds, road.LineString().Bound())
		}
	}
	return f, nil
}

// Roads returns all roads of the file
func (f *RoadFile) Roads() []geo.Track {
	return f.roads
}

// GetRoads returns the roads whose bounds intersect the box spanned by the
// two corners
func (f *RoadFile) GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, &matcher.DataSourceError{Source: sourceName, Err: err}
	}

	box := models.FromCorners(upperLeft, bottomRight).Bound()
	var out []geo.Track
	for i, b := range f.bounds {
		if b.Intersects(box) {
			out = append(out, f.roads[i])
		}
	}
	return out, nil
}
