// Package gpx reads and writes track segments as GPX 1.1 documents
package gpx

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kass/roadmatch/pkg/geo"
)

const (
	namespace      = "http://www.topografix.com/GPX/1/1"
	schemaLocation = "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd"
	timeLayout     = "2006-01-02T15:04:05.000Z07:00"

	// DefaultCreator is written to the creator attribute when none is set
	DefaultCreator = "roadmatch"
)

type document struct {
	XMLName        xml.Name `xml:"gpx"`
	Xmlns          string   `xml:"xmlns,attr,omitempty"`
	XmlnsXsi       string   `xml:"xmlns:xsi,attr,omitempty"`
	SchemaLocation string   `xml:"xsi:schemaLocation,attr,omitempty"`
	Version        string   `xml:"version,attr"`
	Creator        string   `xml:"creator,attr"`
	Tracks         []track  `xml:"trk"`
}

type track struct {
	Name     string    `xml:"name,omitempty"`
	Segments []segment `xml:"trkseg"`
}

type segment struct {
	Points []trackPoint `xml:"trkpt"`
}

type trackPoint struct {
	Lat  string   `xml:"lat,attr"`
	Lon  string   `xml:"lon,attr"`
	Ele  *float64 `xml:"ele,omitempty"`
	Time string   `xml:"time,omitempty"`
}

// FileStore reads segments from one GPX file and writes matched segments to
// another
type FileStore struct {
	Input   string
	Output  string
	Creator string
}

// NewFileStore creates a store reading input and writing output
func NewFileStore(input, output string) *FileStore {
	return &FileStore{Input: input, Output: output, Creator: DefaultCreator}
}

// Read returns every trkseg of every trk in document order
func (s *FileStore) Read(ctx context.Context) ([]geo.Track, error) {
	f, err := os.Open(s.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Input, err)
	}
	defer f.Close()

	tracks, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Input, err)
	}
	return tracks, nil
}

// Write stores tracks as the segments of a single trk
func (s *FileStore) Write(ctx context.Context, tracks []geo.Track) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s.Creator, tracks); err != nil {
		return err
	}
	if err := os.WriteFile(s.Output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Output, err)
	}
	return nil
}

// Decode parses a GPX document
func Decode(r io.Reader) ([]geo.Track, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode gpx: %w", err)
	}

	var tracks []geo.Track
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			points := make([]geo.Point, 0, len(seg.Points))
			for i, pt := range seg.Points {
				p, err := pt.toPoint()
				if err != nil {
					return nil, fmt.Errorf("trkpt %d: %w", i, err)
				}
				points = append(points, p)
			}
			tracks = append(tracks, geo.Track{Points: points})
		}
	}
	return tracks, nil
}

// Encode writes tracks as an indented GPX 1.1 document. Coordinates are
// written with 6 decimals, times in UTC with millisecond precision.
func Encode(w io.Writer, creator string, tracks []geo.Track) error {
	if creator == "" {
		creator = DefaultCreator
	}
	doc := document{
		Xmlns:          namespace,
		XmlnsXsi:       "http://www.w3.org/2001/XMLSchema-instance",
		SchemaLocation: schemaLocation,
		Version:        "1.1",
		Creator:        creator,
		Tracks:         []track{{}},
	}
	for _, t := range tracks {
		seg := segment{Points: make([]trackPoint, len(t.Points))}
		for i, p := range t.Points {
			seg.Points[i] = fromPoint(p)
		}
		doc.Tracks[0].Segments = append(doc.Tracks[0].Segments, seg)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write gpx: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode gpx: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write gpx: %w", err)
	}
	return nil
}

func fromPoint(p geo.Point) trackPoint {
	pt := trackPoint{
		Lat: strconv.FormatFloat(p.Lat, 'f', 6, 64),
		Lon: strconv.FormatFloat(p.Lon, 'f', 6, 64),
	}
	if p.HasElevation {
		ele := p.Elevation
		pt.Ele = &ele
	}
	if p.HasTime() {
		pt.Time = p.Time.UTC().Format(timeLayout)
	}
	return pt
}

func (pt trackPoint) toPoint() (geo.Point, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(pt.Lat), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid lat %q: %w", pt.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(pt.Lon), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid lon %q: %w", pt.Lon, err)
	}

	p := geo.NewPoint(lat, lon)
	if pt.Ele != nil {
		p = p.WithElevation(*pt.Ele)
	}
	if s := strings.TrimSpace(pt.Time); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return geo.Point{}, fmt.Errorf("invalid time %q: %w", pt.Time, err)
		}
		p = p.WithTime(ts)
	}
	return p, nil
}
