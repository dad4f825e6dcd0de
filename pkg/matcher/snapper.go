package matcher

import (
	"fmt"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/roadgraph"
	"github.com/kass/roadmatch/pkg/rtree"
)

// Snapper moves a track point onto the road network. The returned point keeps
// the elevation and time of p.
type Snapper interface {
	Snap(p geo.Point) (geo.Point, bool)
}

// Snapper kinds accepted by NewSnapper
const (
	SnapperRTree  = "rtree"
	SnapperLinear = "linear"
)

// GraphSnapper snaps to the nearest graph node with a linear scan
type GraphSnapper struct {
	Graph *roadgraph.Graph
}

func (s GraphSnapper) Snap(p geo.Point) (geo.Point, bool) {
	id, ok := s.Graph.NearestNode(p)
	if !ok {
		return geo.Point{}, false
	}
	node := s.Graph.Node(id)
	return p.WithCoords(node.Lat, node.Lon), true
}

// RoadSnapper projects onto the closest original road segment. Its results are
// generally not graph nodes, so it is used for plain snapping, not for path
// search.
type RoadSnapper struct {
	Roads []geo.Track
}

func (s RoadSnapper) Snap(p geo.Point) (geo.Point, bool) {
	q, ok := roadgraph.NearestPointOnRoad(s.Roads, p)
	if !ok {
		return geo.Point{}, false
	}
	return p.WithCoords(q.Lat, q.Lon), true
}

// NewSnapper returns the node snapper named by kind. An empty kind selects
// the R-Tree index.
func NewSnapper(kind string, g *roadgraph.Graph) (Snapper, error) {
	switch kind {
	case "", SnapperRTree:
		return rtree.NewNodeIndex(g), nil
	case SnapperLinear:
		return GraphSnapper{Graph: g}, nil
	default:
		return nil, fmt.Errorf("unknown snapper %q", kind)
	}
}

// SnapTrack snaps every point of track. Points that cannot be snapped are
// dropped.
func SnapTrack(s Snapper, track geo.Track) geo.Track {
	out := make([]geo.Point, 0, len(track.Points))
	for _, p := range track.Points {
		if q, ok := s.Snap(p); ok {
			out = append(out, q)
		}
	}
	return geo.Track{Points: out}
}
