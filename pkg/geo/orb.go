package geo

import "github.com/paulmach/orb"

// LineString converts the track to an orb linestring in lon/lat order.
// Elevation and time are not carried over.
func (t Track) LineString() orb.LineString {
	ls := make(orb.LineString, len(t.Points))
	for i, p := range t.Points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// TracksFromGeometry extracts one track per linestring of a linear geometry.
// Any other geometry type yields nothing.
func TracksFromGeometry(g orb.Geometry) []Track {
	switch g := g.(type) {
	case orb.LineString:
		return []Track{fromLineString(g)}
	case orb.MultiLineString:
		out := make([]Track, 0, len(g))
		for _, ls := range g {
			out = append(out, fromLineString(ls))
		}
		return out
	default:
		return nil
	}
}

func fromLineString(ls orb.LineString) Track {
	points := make([]Point, len(ls))
	for i, p := range ls {
		points[i] = NewPoint(p.Lat(), p.Lon())
	}
	return Track{Points: points}
}
