package models

import (
	"math"

	"github.com/paulmach/orb"
)

const kmPerDegree = 111.32

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// UpperLeft returns the north-west corner of the box
func (b BoundingBox) UpperLeft() Location {
	return Location{Lat: b.TopRight.Lat, Lon: b.BottomLeft.Lon}
}

// BottomRight returns the south-east corner of the box
func (b BoundingBox) BottomRight() Location {
	return Location{Lat: b.BottomLeft.Lat, Lon: b.TopRight.Lon}
}

// FromCorners builds the box spanned by two arbitrary opposite corners
func FromCorners(a, b Location) BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lat: math.Min(a.Lat, b.Lat), Lon: math.Min(a.Lon, b.Lon)},
		TopRight:   Location{Lat: math.Max(a.Lat, b.Lat), Lon: math.Max(a.Lon, b.Lon)},
	}
}

// Contains reports whether loc lies inside the box, borders included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Pad grows the box by km on every side. Longitude padding is scaled by the
// latitude of the box centre.
func (b BoundingBox) Pad(km float64) BoundingBox {
	if km <= 0 {
		return b
	}
	dLat := km / kmPerDegree
	centre := (b.BottomLeft.Lat + b.TopRight.Lat) / 2
	cos := math.Cos(centre * math.Pi / 180)
	dLon := 180.0
	if cos > 1e-6 {
		dLon = math.Min(dLat/cos, 180)
	}
	return BoundingBox{
		BottomLeft: Location{Lat: math.Max(b.BottomLeft.Lat-dLat, -90), Lon: math.Max(b.BottomLeft.Lon-dLon, -180)},
		TopRight:   Location{Lat: math.Min(b.TopRight.Lat+dLat, 90), Lon: math.Min(b.TopRight.Lon+dLon, 180)},
	}
}

// Bound converts the box to an orb.Bound (lon/lat order)
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.BottomLeft.Lon, b.BottomLeft.Lat},
		Max: orb.Point{b.TopRight.Lon, b.TopRight.Lat},
	}
}
