// Package geo provides the coordinate primitives used by the matcher: points
// with optional elevation and timestamp, great-circle distance, projection onto
// a segment, and tracks.
package geo

import (
	"fmt"
	"math"
	"time"
)

const (
	// EarthRadius is the mean Earth radius in km.
	EarthRadius = 6371.0088

	// keyScale quantizes coordinates to 1e-7 degrees (about 1 cm).
	keyScale = 1e7
)

// Key is the identity of a coordinate: latitude and longitude quantized to a
// fixed precision. Points that round to the same key are the same node.
type Key struct {
	Lat int64
	Lon int64
}

func (k Key) String() string {
	return fmt.Sprintf("%.7f,%.7f", float64(k.Lat)/keyScale, float64(k.Lon)/keyScale)
}

// Point is a geographic coordinate with optional elevation and timestamp.
// A zero Time means the point carries no timestamp.
type Point struct {
	Lat          float64
	Lon          float64
	Elevation    float64
	HasElevation bool
	Time         time.Time
}

// NewPoint returns a point without elevation or timestamp
func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

// WithElevation returns a copy of p carrying elevation ele
func (p Point) WithElevation(ele float64) Point {
	p.Elevation = ele
	p.HasElevation = true
	return p
}

// WithTime returns a copy of p carrying timestamp t
func (p Point) WithTime(t time.Time) Point {
	p.Time = t
	return p
}

// WithCoords returns a copy of p moved to (lat, lon), keeping elevation and time
func (p Point) WithCoords(lat, lon float64) Point {
	p.Lat = lat
	p.Lon = lon
	return p
}

// HasTime reports whether p carries a timestamp
func (p Point) HasTime() bool {
	return !p.Time.IsZero()
}

// Key returns the quantized coordinate key of p
func (p Point) Key() Key {
	return Key{
		Lat: int64(math.Round(p.Lat * keyScale)),
		Lon: int64(math.Round(p.Lon * keyScale)),
	}
}

// Equal compares coordinates only, at key precision
func (p Point) Equal(q Point) bool {
	return p.Key() == q.Key()
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon)
}

// DistanceTo returns the great-circle distance to q in km
func (p Point) DistanceTo(q Point) float64 {
	return Distance(p.Lat, p.Lon, q.Lat, q.Lon)
}

// NearestPointOnSegment returns the point of segment [a, b] closest to p.
// Short segments are treated as planar: longitudes are scaled by the cosine of
// the segment's mean latitude and the projection is clamped to the endpoints.
// The result carries neither elevation nor time.
func (p Point) NearestPointOnSegment(a, b Point) Point {
	cos := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)

	dx := (b.Lon - a.Lon) * cos
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return NewPoint(a.Lat, a.Lon)
	}

	px := (p.Lon - a.Lon) * cos
	py := p.Lat - a.Lat
	t := (px*dx + py*dy) / lenSq
	switch {
	case t <= 0:
		return NewPoint(a.Lat, a.Lon)
	case t >= 1:
		return NewPoint(b.Lat, b.Lon)
	}
	return NewPoint(a.Lat+(b.Lat-a.Lat)*t, a.Lon+(b.Lon-a.Lon)*t)
}

// Lerp returns the point at ratio t between a and b in lat/lon space.
// Elevation and time are interpolated only when both a and b carry them.
func Lerp(a, b Point, t float64) Point {
	out := NewPoint(a.Lat+(b.Lat-a.Lat)*t, a.Lon+(b.Lon-a.Lon)*t)
	if a.HasElevation && b.HasElevation {
		out = out.WithElevation(a.Elevation + (b.Elevation-a.Elevation)*t)
	}
	if a.HasTime() && b.HasTime() {
		span := b.Time.Sub(a.Time)
		out = out.WithTime(a.Time.Add(time.Duration(float64(span) * t)))
	}
	return out
}

// Distance calculates the Haversine distance between two points in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}
