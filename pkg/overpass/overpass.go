// Package overpass loads road polylines from an Overpass API endpoint
package overpass

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/osm"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/models"
)

// DefaultURL is the public Overpass interpreter
const DefaultURL = "https://overpass-api.de/api/interpreter"

const sourceName = "overpass"

// Client fetches highway ways inside a bounding box
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the server side query timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the interpreter at endpoint. An empty
// endpoint selects DefaultURL.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		url:        endpoint,
		timeout:    25 * time.Second,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the Overpass QL selecting every highway way in box together
// with its nodes
func (c *Client) Query(box models.BoundingBox) string {
	return fmt.Sprintf(`[out:xml][timeout:%d];(way(%f,%f,%f,%f)["highway"];>;);out geom;`,
		int(c.timeout.Seconds()),
		box.BottomLeft.Lat, box.BottomLeft.Lon, box.TopRight.Lat, box.TopRight.Lon)
}

// GetRoads fetches the roads in the box spanned by the two corners. Failures
// are returned as *matcher.DataSourceError.
func (c *Client) GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error) {
	box := models.FromCorners(upperLeft, bottomRight)

	data, err := c.fetch(ctx, c.Query(box))
	if err != nil {
		return nil, &matcher.DataSourceError{Source: sourceName, Err: err}
	}

	roads, err := Decode(data)
	if err != nil {
		return nil, &matcher.DataSourceError{Source: sourceName, Err: err}
	}

	c.logger.Debug("fetched roads from overpass",
		"roads", len(roads),
		"bytes", len(data))
	return roads, nil
}

func (c *Client) fetch(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.url)
	}

	return io.ReadAll(resp.Body)
}

// Decode turns an OSM XML document into one track per highway way. Way node
// coordinates come from the inline geometry when present and from the node
// elements otherwise. Nodes without coordinates are skipped.
func Decode(data []byte) ([]geo.Track, error) {
	var doc osm.OSM
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode osm xml: %w", err)
	}

	nodes := make(map[osm.NodeID]*osm.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes[n.ID] = n
	}

	roads := make([]geo.Track, 0, len(doc.Ways))
	for _, way := range doc.Ways {
		if _, ok := way.TagMap()["highway"]; !ok {
			continue
		}

		points := make([]geo.Point, 0, len(way.Nodes))
		for _, wn := range way.Nodes {
			switch {
			case wn.Lat != 0 || wn.Lon != 0:
				points = append(points, geo.NewPoint(wn.Lat, wn.Lon))
			case nodes[wn.ID] != nil:
				n := nodes[wn.ID]
				points = append(points, geo.NewPoint(n.Lat, n.Lon))
			}
		}
		if len(points) > 0 {
			roads = append(roads, geo.Track{Points: points})
		}
	}
	return roads, nil
}
