// Package metrics exposes matching statistics to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kass/roadmatch/pkg/roadgraph"
)

var (
	SegmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roadmatch_segments_total",
		Help: "Consecutive point pairs connected, by outcome",
	}, []string{"outcome"})
	TracksMatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roadmatch_tracks_matched_total",
		Help: "Total number of track segments matched",
	})
	MatchedPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roadmatch_matched_points_total",
		Help: "Total number of points emitted by matching",
	})
	RoadsFetchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roadmatch_roads_fetched_total",
		Help: "Total number of road polylines returned by road sources",
	})
	MatchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadmatch_match_duration_ms",
		Help:    "Time to fetch roads, build the graph and match one segment in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roadmatch_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(SegmentsTotal)
	prometheus.MustRegister(TracksMatchedTotal)
	prometheus.MustRegister(MatchedPointsTotal)
	prometheus.MustRegister(RoadsFetchedTotal)
	prometheus.MustRegister(MatchDurationMs)
	prometheus.MustRegister(RequestsTotal)
}

// Handler serves the registered metrics
func Handler() http.Handler { return promhttp.Handler() }

// Collector feeds pipeline events into the package counters
type Collector struct{}

func (Collector) ObserveSegment(o roadgraph.Outcome) {
	SegmentsTotal.WithLabelValues(o.String()).Inc()
}

func (Collector) ObserveRoads(count int) {
	RoadsFetchedTotal.Add(float64(count))
}

func (Collector) ObserveMatch(elapsed time.Duration, points int) {
	TracksMatchedTotal.Inc()
	MatchedPointsTotal.Add(float64(points))
	MatchDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
}
