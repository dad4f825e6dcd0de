package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/roadmatch/internal/config"
	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type failingSource struct {
	err error
}

func (f failingSource) GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error) {
	return nil, f.err
}

func street() geo.Track {
	return geo.NewTrack(geo.NewPoint(50.7400, 7.1600), geo.NewPoint(50.7400, 7.1700))
}

func newTestServer(source matcher.RoadSource) *Server {
	return New(
		config.ServerConfig{Addr: ":0", MaxBodyBytes: 1 << 20},
		matcher.ProcessorConfig{BBoxPaddingKm: 0.2, Snapper: matcher.SnapperRTree, Workers: 2},
		source,
	)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)
	do(t, s, http.MethodGet, "/healthz", "")

	w := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roadmatch_http_requests_total")
}

func TestMatch(t *testing.T) {
	s := newTestServer(matcher.StaticRoads{street()})
	body := `{"track": [
		{"lat": 50.7401, "lon": 7.1610, "time": "2024-05-01T10:00:00Z"},
		{"lat": 50.7399, "lon": 7.1650, "time": "2024-05-01T10:01:00Z"}
	]}`

	w := do(t, s, http.MethodPost, "/api/match", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.InputPoints)
	require.GreaterOrEqual(t, len(resp.Track), 2)
	assert.Equal(t, len(resp.Track), resp.MatchedPoints)

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	for i, p := range resp.Track {
		assert.InDelta(t, 50.74, p.Lat, 1e-9, "point %d", i)
		require.NotNil(t, p.Time, "point %d", i)
		assert.False(t, p.Time.Before(start), "point %d", i)
		assert.False(t, p.Time.After(end), "point %d", i)
		if i > 0 {
			assert.False(t, p.Time.Before(*resp.Track[i-1].Time), "point %d", i)
		}
	}
	assert.InDelta(t, 7.161, resp.Track[0].Lon, 0.001)
	assert.InDelta(t, 7.165, resp.Track[len(resp.Track)-1].Lon, 0.001)
	assert.True(t, resp.Track[0].Time.Equal(start))
}

func TestMatchInlineRoads(t *testing.T) {
	s := newTestServer(nil)
	body := `{
		"track": [{"lat": 50.7401, "lon": 7.1610}, {"lat": 50.7399, "lon": 7.1650}],
		"roads": [[{"lat": 50.74, "lon": 7.16}, {"lat": 50.74, "lon": 7.17}]],
		"interpolate": 2
	}`

	w := do(t, s, http.MethodPost, "/api/match", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Track)
	for _, p := range resp.Track {
		assert.InDelta(t, 50.74, p.Lat, 1e-9)
		assert.Nil(t, p.Time)
	}
}

func TestMatchErrors(t *testing.T) {
	tests := []struct {
		name   string
		source matcher.RoadSource
		body   string
		status int
	}{
		{"malformed json", matcher.StaticRoads{street()}, `{"track": [`, http.StatusBadRequest},
		{"missing track", matcher.StaticRoads{street()}, `{}`, http.StatusBadRequest},
		{"latitude out of range", matcher.StaticRoads{street()}, `{"track": [{"lat": 91, "lon": 0}]}`, http.StatusBadRequest},
		{"negative interpolate", matcher.StaticRoads{street()}, `{"track": [{"lat": 1, "lon": 1}], "interpolate": -1}`, http.StatusBadRequest},
		{"no road source", nil, `{"track": [{"lat": 1, "lon": 1}]}`, http.StatusBadRequest},
		{"empty track", matcher.StaticRoads{street()}, `{"track": []}`, http.StatusUnprocessableEntity},
		{"no roads", matcher.StaticRoads{}, `{"track": [{"lat": 1, "lon": 1}]}`, http.StatusUnprocessableEntity},
		{
			"source failure",
			failingSource{err: &matcher.DataSourceError{Source: "overpass", Err: errors.New("HTTP 429")}},
			`{"track": [{"lat": 1, "lon": 1}]}`,
			http.StatusBadGateway,
		},
		{"internal failure", failingSource{err: errors.New("boom")}, `{"track": [{"lat": 1, "lon": 1}]}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, newTestServer(tt.source), http.MethodPost, "/api/match", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestMatchBodyTooLarge(t *testing.T) {
	s := New(
		config.ServerConfig{Addr: ":0", MaxBodyBytes: 64},
		matcher.ProcessorConfig{Snapper: matcher.SnapperRTree},
		matcher.StaticRoads{street()},
	)
	body := `{"track": [` + strings.Repeat(`{"lat": 50.74, "lon": 7.16},`, 20) + `{"lat": 50.74, "lon": 7.16}]}`

	w := do(t, s, http.MethodPost, "/api/match", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMatchGPX(t *testing.T) {
	s := newTestServer(matcher.StaticRoads{street()})
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <trk><trkseg>
    <trkpt lat="50.7401" lon="7.1610"><time>2024-05-01T10:00:00Z</time></trkpt>
    <trkpt lat="50.7399" lon="7.1650"><time>2024-05-01T10:01:00Z</time></trkpt>
  </trkseg></trk>
</gpx>`

	req := httptest.NewRequest(http.MethodPost, "/api/match/gpx?interpolate=2", strings.NewReader(doc))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/gpx+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `<trkpt lat="50.740000"`)
	assert.Contains(t, w.Body.String(), `<time>2024-05-01T10:00:00.000Z</time>`)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "<trkseg>"))

	req = httptest.NewRequest(http.MethodPost, "/api/match/gpx", bytes.NewBufferString("<gpx><trk>"))
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnap(t *testing.T) {
	s := newTestServer(matcher.StaticRoads{street()})

	w := do(t, s, http.MethodPost, "/api/snap", `{"points": [
		{"lat": 50.7402, "lon": 7.1633, "time": "2024-05-01T10:00:00Z"},
		{"lat": 50.7390, "lon": 7.1500}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SnapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 2)

	assert.InDelta(t, 50.74, resp.Points[0].Lat, 1e-9)
	assert.InDelta(t, 7.1633, resp.Points[0].Lon, 1e-6)
	require.NotNil(t, resp.Points[0].Time)

	assert.InDelta(t, 50.74, resp.Points[1].Lat, 1e-9)
	assert.InDelta(t, 7.16, resp.Points[1].Lon, 1e-9)
}

func TestSnapErrors(t *testing.T) {
	w := do(t, newTestServer(nil), http.MethodPost, "/api/snap", `{"points": [{"lat": 1, "lon": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, newTestServer(matcher.StaticRoads{}), http.MethodPost, "/api/snap", `{"points": [{"lat": 1, "lon": 1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, newTestServer(matcher.StaticRoads{street()}), http.MethodPost, "/api/snap", `{"points": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := New(config.ServerConfig{Addr: "127.0.0.1:0", MaxBodyBytes: 1024}, matcher.ProcessorConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestTokenAuth(t *testing.T) {
	secret := "0123456789abcdef0123"
	s := New(
		config.ServerConfig{Addr: ":0", MaxBodyBytes: 1 << 20, JWTSecret: secret},
		matcher.ProcessorConfig{Snapper: matcher.SnapperRTree},
		matcher.StaticRoads{street()},
	)
	body := `{"track": [{"lat": 50.7401, "lon": 7.1610}, {"lat": 50.7399, "lon": 7.1650}]}`

	send := func(authorization string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/match", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w.Code
	}

	valid, err := IssueToken([]byte(secret), "tester", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken([]byte(secret), "tester", -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("another-secret-of-some-length"), "tester", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, send("Bearer "+valid))
	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send(valid))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer "+expired))
	assert.Equal(t, http.StatusUnauthorized, send("Bearer "+foreign))

	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	_, err = IssueToken(nil, "tester", time.Hour)
	assert.Error(t, err)
}
