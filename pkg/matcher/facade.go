package matcher

import (
	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

// BuildRoadGraph builds a graph from roads with the default edge length bound
func BuildRoadGraph(roads []geo.Track) *roadgraph.Graph {
	return roadgraph.Build(roads)
}

// MatchTrackToRoads matches track against graph using the linear node scan.
// It returns roadgraph.ErrEmptyGraph for a graph without nodes.
func MatchTrackToRoads(graph *roadgraph.Graph, track geo.Track) (geo.Track, error) {
	return New(graph, WithSnapper(GraphSnapper{Graph: graph})).Match(track)
}

// Densify inserts factor-1 points between every pair of track points. See
// geo.Track.Densify for the handling of short tracks and factor <= 0.
func Densify(track geo.Track, factor int) geo.Track {
	return track.Densify(factor)
}
