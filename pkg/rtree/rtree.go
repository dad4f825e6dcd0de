// Package rtree indexes road graph nodes in an R-Tree so that snapping a
// track point does not need a scan over every node
package rtree

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/models"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
	// slack widens candidate boxes so rounding never drops an equidistant node
	slack = 1e-9
)

// spatialNode wraps a graph node to implement rtreego.Spatial
type spatialNode struct {
	id   roadgraph.NodeID
	rect rtreego.Rect
}

func (sn *spatialNode) Bounds() rtreego.Rect {
	return sn.rect
}

// NodeIndex is a thread-safe R-Tree over the nodes of one road graph
type NodeIndex struct {
	mu        sync.RWMutex
	tree      *rtreego.Rtree
	graph     *roadgraph.Graph
	itemCount atomic.Int64
}

// NewNodeIndex bulk loads every node of g
func NewNodeIndex(g *roadgraph.Graph) *NodeIndex {
	idx := &NodeIndex{}
	idx.Reset(g)
	return idx
}

// Reset replaces the indexed graph
func (idx *NodeIndex) Reset(g *roadgraph.Graph) {
	objs := make([]rtreego.Spatial, 0, g.NodeCount())
	g.ForEachNode(func(id roadgraph.NodeID, p geo.Point) {
		objs = append(objs, &spatialNode{
			id:   id,
			rect: rtreego.Point{p.Lat, p.Lon}.ToRect(tolerance),
		})
	})

	tree := rtreego.NewTree(dimensions, minChildren, maxChildren, objs...)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree = tree
	idx.graph = g
	idx.itemCount.Store(int64(len(objs)))
}

// Count returns the number of indexed nodes
func (idx *NodeIndex) Count() int64 {
	return idx.itemCount.Load()
}

// Graph returns the indexed graph
func (idx *NodeIndex) Graph() *roadgraph.Graph {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph
}

// Nearest returns the node closest to p in great-circle distance. Among
// equally close nodes the lowest NodeID wins, which is the node a linear scan
// in insertion order would return.
func (idx *NodeIndex) Nearest(p geo.Point) (roadgraph.NodeID, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nearest(p)
}

// Snap moves p onto its nearest node. Elevation and time of p are kept.
func (idx *NodeIndex) Snap(p geo.Point) (geo.Point, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, ok := idx.nearest(p)
	if !ok {
		return geo.Point{}, false
	}
	node := idx.graph.Node(id)
	return p.WithCoords(node.Lat, node.Lon), true
}

func (idx *NodeIndex) nearest(p geo.Point) (roadgraph.NodeID, bool) {
	if idx.tree == nil || idx.tree.Size() == 0 {
		return roadgraph.NoNode, false
	}

	// The R-Tree ranks by planar degree distance, so its answer is only a
	// candidate. Every node at least as close in km lies in the box below.
	candidate := idx.tree.NearestNeighbor(rtreego.Point{p.Lat, p.Lon}).(*spatialNode)
	radius := p.DistanceTo(idx.graph.Node(candidate.id))

	best := candidate.id
	minDistance := radius
	for _, id := range idx.searchBox(radiusBox(p, radius)) {
		d := p.DistanceTo(idx.graph.Node(id))
		if d < minDistance || (d == minDistance && id < best) {
			minDistance = d
			best = id
		}
	}
	return best, true
}

// QueryRadius returns the nodes within radiusKm of center, ordered by NodeID
func (idx *NodeIndex) QueryRadius(center geo.Point, radiusKm float64) []roadgraph.NodeID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil || radiusKm < 0 {
		return nil
	}

	var out []roadgraph.NodeID
	for _, id := range idx.searchBox(radiusBox(center, radiusKm)) {
		if center.DistanceTo(idx.graph.Node(id)) <= radiusKm {
			out = append(out, id)
		}
	}
	return out
}

// QueryBox returns the nodes inside box, borders included, ordered by NodeID
func (idx *NodeIndex) QueryBox(box models.BoundingBox) []roadgraph.NodeID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil {
		return nil
	}

	var out []roadgraph.NodeID
	for _, id := range idx.searchBox(box) {
		node := idx.graph.Node(id)
		if box.Contains(models.Location{Lat: node.Lat, Lon: node.Lon}) {
			out = append(out, id)
		}
	}
	return out
}

// searchBox returns candidate node ids intersecting box. Callers hold mu.
func (idx *NodeIndex) searchBox(box models.BoundingBox) []roadgraph.NodeID {
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat - slack, box.BottomLeft.Lon - slack},
		[]float64{
			box.TopRight.Lat - box.BottomLeft.Lat + 2*slack,
			box.TopRight.Lon - box.BottomLeft.Lon + 2*slack,
		},
	)
	if err != nil {
		return nil
	}

	results := idx.tree.SearchIntersect(bounds)
	ids := make([]roadgraph.NodeID, 0, len(results))
	for _, result := range results {
		if sn, ok := result.(*spatialNode); ok {
			ids = append(ids, sn.id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// radiusBox returns a lat/lon box containing every point within km of center
func radiusBox(center geo.Point, km float64) models.BoundingBox {
	deg := (km / geo.EarthRadius) * (180 / math.Pi)

	maxLat := math.Min(math.Abs(center.Lat)+deg, 90)
	dLon := 180.0
	if cos := math.Cos(maxLat * math.Pi / 180); cos > 1e-9 {
		dLon = math.Min(deg/cos*1.01, 180)
	}

	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Max(center.Lat-deg, -90), Lon: center.Lon - dLon},
		TopRight:   models.Location{Lat: math.Min(center.Lat+deg, 90), Lon: center.Lon + dLon},
	}
	if box.BottomLeft.Lon < -180 || box.TopRight.Lon > 180 {
		box.BottomLeft.Lon, box.TopRight.Lon = -180, 180
	}
	return box
}
