package geo

import (
	"errors"
	"math"

	"github.com/kass/roadmatch/pkg/models"
)

// ErrEmptyTrack is returned by operations that need at least one point.
var ErrEmptyTrack = errors.New("track has no points")

// Track is an ordered sequence of points
type Track struct {
	Points []Point
}

// NewTrack creates a track from points
func NewTrack(points ...Point) Track {
	return Track{Points: points}
}

// Len returns the number of points
func (t Track) Len() int {
	return len(t.Points)
}

// BoundingBox returns the smallest lat/lon box enclosing the track
func (t Track) BoundingBox() (models.BoundingBox, error) {
	if len(t.Points) == 0 {
		return models.BoundingBox{}, ErrEmptyTrack
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, p := range t.Points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	return models.BoundingBox{
		BottomLeft: models.Location{Lat: minLat, Lon: minLon},
		TopRight:   models.Location{Lat: maxLat, Lon: maxLon},
	}, nil
}

// Interpolate emits, for every consecutive pair, factor points at ratios
// 0/factor .. (factor-1)/factor. The result has (n-1)*factor points: the last
// point of the track is not included, and factor <= 0 yields an empty track.
func (t Track) Interpolate(factor int) Track {
	if factor <= 0 || len(t.Points) < 2 {
		return Track{Points: []Point{}}
	}

	out := make([]Point, 0, (len(t.Points)-1)*factor)
	for i := 0; i < len(t.Points)-1; i++ {
		a, b := t.Points[i], t.Points[i+1]
		for j := 0; j < factor; j++ {
			out = append(out, Lerp(a, b, float64(j)/float64(factor)))
		}
	}
	return Track{Points: out}
}

// Densify inserts factor-1 evenly spaced points between every pair and keeps
// the final point, so the result has (n-1)*factor+1 points. Tracks with fewer
// than two points and factor <= 0 are returned unchanged.
func (t Track) Densify(factor int) Track {
	if factor <= 0 || len(t.Points) < 2 {
		return t.Clone()
	}

	out := t.Interpolate(factor)
	out.Points = append(out.Points, t.Points[len(t.Points)-1])
	return out
}

// Smooth averages every interior point with its two neighbours. Endpoints are
// kept as is; elevation and time of each point are preserved.
func (t Track) Smooth() Track {
	out := make([]Point, len(t.Points))
	for i, p := range t.Points {
		if i == 0 || i == len(t.Points)-1 {
			out[i] = p
			continue
		}
		prev, next := t.Points[i-1], t.Points[i+1]
		out[i] = p.WithCoords(
			(prev.Lat+p.Lat+next.Lat)/3,
			(prev.Lon+p.Lon+next.Lon)/3,
		)
	}
	return Track{Points: out}
}

// Clone returns a track with its own copy of the points
func (t Track) Clone() Track {
	out := make([]Point, len(t.Points))
	copy(out, t.Points)
	return Track{Points: out}
}

// Length returns the summed great-circle length of the track in km
func (t Track) Length() float64 {
	var total float64
	for i := 1; i < len(t.Points); i++ {
		total += t.Points[i-1].DistanceTo(t.Points[i])
	}
	return total
}
