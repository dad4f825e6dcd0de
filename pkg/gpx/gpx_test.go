package gpx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/roadmatch/pkg/geo"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1" creator="Garmin">
  <trk>
    <name>Morning ride</name>
    <trkseg>
      <trkpt lat="50.747230" lon="7.166820"><ele>61.4</ele><time>2024-05-01T10:00:00Z</time></trkpt>
      <trkpt lat="50.747180" lon="7.167760"><ele>62.0</ele><time>2024-05-01T10:00:05Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="50.747090" lon="7.169770"/>
    </trkseg>
  </trk>
  <trk>
    <trkseg>
      <trkpt lat=" 50.1 " lon="7.2"><time>2024-05-01T11:00:00.250+02:00</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestDecode(t *testing.T) {
	tracks, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	first := tracks[0].Points
	require.Len(t, first, 2)
	assert.Equal(t, 50.74723, first[0].Lat)
	assert.Equal(t, 7.16682, first[0].Lon)
	assert.True(t, first[0].HasElevation)
	assert.Equal(t, 61.4, first[0].Elevation)
	assert.True(t, first[1].Time.Equal(time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)))

	assert.False(t, tracks[1].Points[0].HasTime())
	assert.False(t, tracks[1].Points[0].HasElevation)

	third := tracks[2].Points[0]
	assert.Equal(t, 50.1, third.Lat)
	assert.True(t, third.Time.Equal(time.Date(2024, 5, 1, 9, 0, 0, 250_000_000, time.UTC)))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `<gpx><trk>`},
		{"bad lat", `<gpx><trk><trkseg><trkpt lat="north" lon="1"/></trkseg></trk></gpx>`},
		{"bad time", `<gpx><trk><trkseg><trkpt lat="1" lon="1"><time>noon</time></trkpt></trkseg></trk></gpx>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncode(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tracks := []geo.Track{
		geo.NewTrack(
			geo.NewPoint(50.7472312, 7.1668249).WithElevation(61.5).WithTime(t0),
			geo.NewPoint(50.74718, 7.16776),
		),
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "", tracks))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `xmlns="http://www.topografix.com/GPX/1/1"`)
	assert.Contains(t, out, `version="1.1"`)
	assert.Contains(t, out, `creator="roadmatch"`)
	assert.Contains(t, out, `<trkpt lat="50.747231" lon="7.166825">`)
	assert.Contains(t, out, `<ele>61.5</ele>`)
	assert.Contains(t, out, `<time>2024-05-01T10:00:00.000Z</time>`)
	assert.Equal(t, 1, strings.Count(out, "<trkseg>"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.gpx")
	output := filepath.Join(dir, "out.gpx")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0o644))

	store := NewFileStore(input, output)
	tracks, err := store.Read(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), tracks))

	again, err := NewFileStore(output, "").Read(context.Background())
	require.NoError(t, err)
	require.Len(t, again, len(tracks))

	for i := range tracks {
		require.Len(t, again[i].Points, len(tracks[i].Points))
		for j, p := range tracks[i].Points {
			q := again[i].Points[j]
			assert.InDelta(t, p.Lat, q.Lat, 1e-6)
			assert.InDelta(t, p.Lon, q.Lon, 1e-6)
			assert.Equal(t, p.HasElevation, q.HasElevation)
			assert.Equal(t, p.Elevation, q.Elevation)
			assert.True(t, p.Time.Equal(q.Time), "time of point %d/%d", i, j)
		}
	}
}

func TestFileStoreMissingInput(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "nope.gpx"), "").Read(context.Background())
	assert.Error(t, err)
}
