package roadgraph

import (
	"log/slog"
	"math"

	"github.com/kass/roadmatch/pkg/geo"
)

// DefaultMaxEdgeLength is the longest edge, in km, the builder emits by default
const DefaultMaxEdgeLength = 0.1

// Builder turns road polylines into a Graph
type Builder struct {
	maxEdgeLength float64
	logger        *slog.Logger
}

// NewBuilder creates a builder. A non-positive maxEdgeLength selects
// DefaultMaxEdgeLength.
func NewBuilder(maxEdgeLength float64) *Builder {
	if maxEdgeLength <= 0 {
		maxEdgeLength = DefaultMaxEdgeLength
	}
	return &Builder{
		maxEdgeLength: maxEdgeLength,
		logger:        slog.Default(),
	}
}

// WithLogger sets the logger used for build statistics
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// MaxEdgeLength returns the configured bound in km
func (b *Builder) MaxEdgeLength() float64 {
	return b.maxEdgeLength
}

// Build creates a graph with the default edge length bound
func Build(roads []geo.Track) *Graph {
	return NewBuilder(DefaultMaxEdgeLength).Build(roads)
}

// Build registers every road point as a node and connects consecutive points.
// Pairs farther apart than the edge bound are split by intermediate nodes
// interpolated in lat/lon space.
func (b *Builder) Build(roads []geo.Track) *Graph {
	g := newGraph(b.maxEdgeLength)

	for _, road := range roads {
		if len(road.Points) == 0 {
			continue
		}
		prev := g.addNode(road.Points[0])
		for i := 1; i < len(road.Points); i++ {
			pointA := road.Points[i-1]
			pointB := road.Points[i]
			next := g.addNode(pointB)
			b.connect(g, prev, next, pointA, pointB)
			prev = next
		}
	}

	b.logger.Debug("road graph built",
		"roads", len(roads),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"max_edge_km", b.maxEdgeLength)
	return g
}

func (b *Builder) connect(g *Graph, from, to NodeID, pointA, pointB geo.Point) {
	distance := pointA.DistanceTo(pointB)
	if distance <= b.maxEdgeLength {
		g.addEdge(from, to, distance)
		return
	}

	steps := b.subdivide(pointA, pointB, distance)
	last := from
	lastPoint := pointA
	for _, p := range steps {
		id := g.addNode(p)
		g.addEdge(last, id, lastPoint.DistanceTo(p))
		last, lastPoint = id, p
	}
	g.addEdge(last, to, lastPoint.DistanceTo(pointB))
}

// subdivide returns the intermediate points between a and b. It starts from
// floor(distance/max) points and adds more until every piece fits the bound.
func (b *Builder) subdivide(a, c geo.Point, distance float64) []geo.Point {
	k := int(math.Floor(distance / b.maxEdgeLength))
	for {
		points := make([]geo.Point, k)
		ok := true
		last := a
		for j := 1; j <= k; j++ {
			p := geo.Lerp(geo.NewPoint(a.Lat, a.Lon), geo.NewPoint(c.Lat, c.Lon), float64(j)/float64(k+1))
			points[j-1] = p
			if last.DistanceTo(p) > b.maxEdgeLength {
				ok = false
				break
			}
			last = p
		}
		if ok && last.DistanceTo(c) <= b.maxEdgeLength {
			return points
		}
		k++
	}
}
