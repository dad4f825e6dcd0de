package roadgraph

import (
	"math"

	"github.com/kass/roadmatch/pkg/geo"
)

// NearestNode scans all nodes and returns the one closest to p. The first
// node reaching the minimum wins. It reports false only for an empty graph.
func (g *Graph) NearestNode(p geo.Point) (NodeID, bool) {
	best := NoNode
	minDistance := math.Inf(1)
	for i, node := range g.nodes {
		if d := p.DistanceTo(node); d < minDistance {
			minDistance = d
			best = NodeID(i)
		}
	}
	return best, best != NoNode
}

// NearestPointOnRoad projects p onto every segment of the original roads and
// returns the closest projection. Single-point roads are compared as points.
func NearestPointOnRoad(roads []geo.Track, p geo.Point) (geo.Point, bool) {
	var closest geo.Point
	found := false
	minDistance := math.Inf(1)

	consider := func(candidate geo.Point) {
		if d := p.DistanceTo(candidate); d < minDistance {
			minDistance = d
			closest = candidate
			found = true
		}
	}

	for _, road := range roads {
		if len(road.Points) == 1 {
			consider(geo.NewPoint(road.Points[0].Lat, road.Points[0].Lon))
			continue
		}
		for i := 0; i < len(road.Points)-1; i++ {
			consider(p.NearestPointOnSegment(road.Points[i], road.Points[i+1]))
		}
	}
	return closest, found
}
