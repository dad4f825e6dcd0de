package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/gpx"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

var errNoRoadSource = errors.New("no road source configured and no roads given")

// Point is the JSON form of a track point
type Point struct {
	Lat  float64    `json:"lat" binding:"gte=-90,lte=90"`
	Lon  float64    `json:"lon" binding:"gte=-180,lte=180"`
	Ele  *float64   `json:"ele,omitempty"`
	Time *time.Time `json:"time,omitempty"`
}

// MatchRequest is the body of POST /api/match. Roads, when given, replace
// the configured road source for this request.
type MatchRequest struct {
	Track       []Point   `json:"track" binding:"required,dive"`
	Roads       [][]Point `json:"roads,omitempty" binding:"omitempty,dive,dive"`
	Interpolate *int      `json:"interpolate,omitempty" binding:"omitempty,gte=0"`
}

// MatchResponse is returned by POST /api/match
type MatchResponse struct {
	Track         []Point `json:"track"`
	InputPoints   int     `json:"input_points"`
	MatchedPoints int     `json:"matched_points"`
}

// SnapRequest is the body of POST /api/snap
type SnapRequest struct {
	Points []Point   `json:"points" binding:"required,dive"`
	Roads  [][]Point `json:"roads,omitempty" binding:"omitempty,dive,dive"`
}

// SnapResponse is returned by POST /api/snap
type SnapResponse struct {
	Points []Point `json:"points"`
}

type gpxQuery struct {
	Interpolate *int `form:"interpolate" binding:"omitempty,gte=0"`
}

func (s *Server) match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := s.processor(req.Roads, req.Interpolate)
	if err != nil {
		s.fail(c, err)
		return
	}

	matched, err := p.MatchSegment(c.Request.Context(), toTrack(req.Track))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{
		Track:         fromTrack(matched),
		InputPoints:   len(req.Track),
		MatchedPoints: matched.Len(),
	})
}

func (s *Server) matchGPX(c *gin.Context) {
	var q gpxQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	tracks, err := gpx.Decode(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}

	p, err := s.processor(nil, q.Interpolate)
	if err != nil {
		s.fail(c, err)
		return
	}

	matched, err := p.MatchSegments(c.Request.Context(), tracks)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := gpx.Encode(&buf, "", matched); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/gpx+xml", buf.Bytes())
}

func (s *Server) snap(c *gin.Context) {
	var req SnapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	track := toTrack(req.Points)
	roads := []geo.Track(toRoads(req.Roads))
	if len(roads) == 0 {
		if s.source == nil {
			s.fail(c, errNoRoadSource)
			return
		}
		box, err := track.BoundingBox()
		if err != nil {
			s.fail(c, err)
			return
		}
		box = box.Pad(s.matching.BBoxPaddingKm)

		roads, err = s.source.GetRoads(c.Request.Context(), box.UpperLeft(), box.BottomRight())
		if err != nil {
			s.fail(c, err)
			return
		}
	}
	if len(roads) == 0 {
		s.fail(c, roadgraph.ErrEmptyGraph)
		return
	}

	snapped := matcher.SnapTrack(matcher.RoadSnapper{Roads: roads}, track)
	c.JSON(http.StatusOK, SnapResponse{Points: fromTrack(snapped)})
}

func (s *Server) processor(roads [][]Point, interpolate *int) (*matcher.Processor, error) {
	cfg := s.matching
	if interpolate != nil {
		cfg.Interpolate = *interpolate
	}

	source := s.source
	if len(roads) > 0 {
		source = toRoads(roads)
	}
	if source == nil {
		return nil, errNoRoadSource
	}

	opts := []matcher.ProcessorOption{matcher.WithProcessorLogger(s.logger)}
	if s.observer != nil {
		opts = append(opts, matcher.WithProcessorObserver(s.observer))
	}
	return matcher.NewProcessor(source, cfg, opts...), nil
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

func statusFor(err error) int {
	var dsErr *matcher.DataSourceError
	switch {
	case errors.Is(err, errNoRoadSource):
		return http.StatusBadRequest
	case errors.Is(err, geo.ErrEmptyTrack), errors.Is(err, roadgraph.ErrEmptyGraph):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dsErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func toTrack(points []Point) geo.Track {
	out := make([]geo.Point, len(points))
	for i, pt := range points {
		p := geo.NewPoint(pt.Lat, pt.Lon)
		if pt.Ele != nil {
			p = p.WithElevation(*pt.Ele)
		}
		if pt.Time != nil {
			p = p.WithTime(*pt.Time)
		}
		out[i] = p
	}
	return geo.Track{Points: out}
}

func toRoads(roads [][]Point) matcher.StaticRoads {
	out := make(matcher.StaticRoads, 0, len(roads))
	for _, road := range roads {
		if len(road) == 0 {
			continue
		}
		out = append(out, toTrack(road))
	}
	return out
}

func fromTrack(t geo.Track) []Point {
	out := make([]Point, len(t.Points))
	for i, p := range t.Points {
		pt := Point{Lat: p.Lat, Lon: p.Lon}
		if p.HasElevation {
			ele := p.Elevation
			pt.Ele = &ele
		}
		if p.HasTime() {
			ts := p.Time.UTC()
			pt.Time = &ts
		}
		out[i] = pt
	}
	return out
}
