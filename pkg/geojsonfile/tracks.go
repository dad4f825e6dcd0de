package geojsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/kass/roadmatch/pkg/geo"
)

// Property names carrying per-point data next to the LineString coordinates
const (
	PropTimes      = "times"
	PropElevations = "elevations"
)

// TrackFile stores tracks as a FeatureCollection with one LineString feature
// per track. Point times and elevations are kept in parallel property arrays;
// missing values are null.
type TrackFile struct {
	Path string
}

// NewTrackFile creates a track file at path
func NewTrackFile(path string) *TrackFile {
	return &TrackFile{Path: path}
}

// Read loads all LineString features
func (f *TrackFile) Read(ctx context.Context) ([]geo.Track, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return DecodeTracks(data)
}

// Write replaces the file content with tracks
func (f *TrackFile) Write(ctx context.Context, tracks []geo.Track) error {
	data, err := EncodeTracks(tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}

// EncodeTracks marshals tracks to an indented FeatureCollection
func EncodeTracks(tracks []geo.Track) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, track := range tracks {
		feature := geojson.NewFeature(track.LineString())

		times := make([]any, track.Len())
		elevations := make([]any, track.Len())
		for i, p := range track.Points {
			if p.HasTime() {
				times[i] = p.Time.UTC().Format(time.RFC3339Nano)
			}
			if p.HasElevation {
				elevations[i] = p.Elevation
			}
		}
		feature.Properties[PropTimes] = times
		feature.Properties[PropElevations] = elevations
		fc.Append(feature)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}

// DecodeTracks parses a FeatureCollection written by EncodeTracks. Any
// LineString collection is accepted; absent properties leave points without
// time and elevation.
func DecodeTracks(data []byte) ([]geo.Track, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geojson: %w", err)
	}

	var tracks []geo.Track
	for _, feature := range fc.Features {
		for _, track := range geo.TracksFromGeometry(feature.Geometry) {
			times, _ := feature.Properties[PropTimes].([]any)
			elevations, _ := feature.Properties[PropElevations].([]any)

			for i := range track.Points {
				if i < len(times) {
					if s, ok := times[i].(string); ok {
						ts, err := time.Parse(time.RFC3339Nano, s)
						if err != nil {
							return nil, fmt.Errorf("invalid time %q: %w", s, err)
						}
						track.Points[i] = track.Points[i].WithTime(ts)
					}
				}
				if i < len(elevations) {
					if ele, ok := elevations[i].(float64); ok {
						track.Points[i] = track.Points[i].WithElevation(ele)
					}
				}
			}
			tracks = append(tracks, track)
		}
	}
	return tracks, nil
}
