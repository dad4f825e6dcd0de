package geojsonfile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/models"
)

const roadsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"highway": "residential"},
     "geometry": {"type": "LineString", "coordinates": [[7.1600, 50.7400], [7.1700, 50.7400]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiLineString", "coordinates": [
       [[13.40, 52.52], [13.41, 52.53]],
       [[7.1650, 50.7350], [7.1650, 50.7450]]
     ]}},
    {"type": "Feature", "properties": {"amenity": "bench"},
     "geometry": {"type": "Point", "coordinates": [7.165, 50.74]}}
  ]
}`

func TestParseRoads(t *testing.T) {
	f, err := ParseRoads([]byte(roadsJSON))
	require.NoError(t, err)
	require.Len(t, f.Roads(), 3)
	assert.True(t, f.Roads()[0].Points[0].Equal(geo.NewPoint(50.74, 7.16)))

	_, err = ParseRoads([]byte(`{"type": "FeatureCollection", "features": [`))
	assert.Error(t, err)
}

func TestRoadFileGetRoads(t *testing.T) {
	f, err := ParseRoads([]byte(roadsJSON))
	require.NoError(t, err)

	roads, err := f.GetRoads(context.Background(),
		models.Location{Lat: 50.75, Lon: 7.15},
		models.Location{Lat: 50.73, Lon: 7.18},
	)
	require.NoError(t, err)
	assert.Len(t, roads, 2)

	roads, err = f.GetRoads(context.Background(),
		models.Location{Lat: 10, Lon: 10},
		models.Location{Lat: 9, Lon: 11},
	)
	require.NoError(t, err)
	assert.Empty(t, roads)
}

func TestLoadRoadsMissingFile(t *testing.T) {
	_, err := LoadRoads(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestTrackFileRoundTrip(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tracks := []geo.Track{
		geo.NewTrack(
			geo.NewPoint(50.74723, 7.16682).WithTime(t0).WithElevation(61.5),
			geo.NewPoint(50.74718, 7.16776).WithTime(t0.Add(1500*time.Millisecond)),
			geo.NewPoint(50.74709, 7.16977),
		),
		geo.NewTrack(geo.NewPoint(1, 2), geo.NewPoint(3, 4)),
	}

	f := NewTrackFile(filepath.Join(t.TempDir(), "out.geojson"))
	require.NoError(t, f.Write(context.Background(), tracks))

	got, err := f.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0].Points
	require.Len(t, first, 3)
	assert.True(t, first[0].Equal(tracks[0].Points[0]))
	assert.Equal(t, t0, first[0].Time)
	assert.True(t, first[0].HasElevation)
	assert.Equal(t, 61.5, first[0].Elevation)
	assert.Equal(t, t0.Add(1500*time.Millisecond), first[1].Time)
	assert.False(t, first[1].HasElevation)
	assert.False(t, first[2].HasTime())
}

func TestDecodeTracksInvalidTime(t *testing.T) {
	data := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {"times": ["yesterday"]},
	   "geometry": {"type": "LineString", "coordinates": [[7.16, 50.74], [7.17, 50.74]]}}]}`

	_, err := DecodeTracks([]byte(data))
	assert.ErrorContains(t, err, "yesterday")
}
