package roadgraph

import (
	"container/heap"
	"math"

	"github.com/kass/roadmatch/pkg/geo"
)

// queueItem is an entry of the Dijkstra priority queue
type queueItem struct {
	node NodeID
	dist float64
}

// priorityQueue implements heap.Interface as a binary min-heap on dist
type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].dist < pq[j].dist
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// PathEntry is the best known distance to a node and its predecessor on that
// path. Predecessor is NoNode for the source and for unreachable nodes.
type PathEntry struct {
	Distance    float64
	Predecessor NodeID
}

// ShortestPaths holds the single-source shortest path tree of one source
type ShortestPaths struct {
	graph  *Graph
	source NodeID
	dist   []float64
	prev   []NodeID
}

// ShortestPaths runs Dijkstra from the node at source. If source is not a
// node of the graph every node is reported unreachable. Among equally short
// paths the one found first wins; callers must not rely on which.
func (g *Graph) ShortestPaths(source geo.Point) *ShortestPaths {
	sp := &ShortestPaths{
		graph:  g,
		source: NoNode,
		dist:   make([]float64, len(g.nodes)),
		prev:   make([]NodeID, len(g.nodes)),
	}
	for i := range sp.dist {
		sp.dist[i] = math.Inf(1)
		sp.prev[i] = NoNode
	}

	start, ok := g.Lookup(source)
	if !ok {
		return sp
	}
	sp.source = start
	sp.dist[start] = 0

	visited := make([]bool, len(g.nodes))
	pq := &priorityQueue{{node: start, dist: 0}}

	for pq.Len() > 0 {
		current := heap.Pop(pq).(queueItem)
		if visited[current.node] {
			continue
		}
		visited[current.node] = true

		for _, edge := range g.adj[current.node] {
			if visited[edge.To] {
				continue
			}
			newDist := sp.dist[current.node] + edge.Weight
			if newDist < sp.dist[edge.To] {
				sp.dist[edge.To] = newDist
				sp.prev[edge.To] = current.node
				heap.Push(pq, queueItem{node: edge.To, dist: newDist})
			}
		}
	}

	return sp
}

// Source returns the source node, or NoNode when the source was not in the graph
func (sp *ShortestPaths) Source() NodeID {
	return sp.source
}

// Entry returns the distance and predecessor recorded for key
func (sp *ShortestPaths) Entry(key geo.Key) (PathEntry, bool) {
	id, ok := sp.graph.LookupKey(key)
	if !ok {
		return PathEntry{}, false
	}
	return PathEntry{Distance: sp.dist[id], Predecessor: sp.prev[id]}, true
}

// Reachable reports whether id has a finite distance from the source
func (sp *ShortestPaths) Reachable(id NodeID) bool {
	return id >= 0 && int(id) < len(sp.dist) && !math.IsInf(sp.dist[id], 1)
}

// Reconstruct walks the predecessor chain from target back to the source and
// returns the nodes in source to target order. It returns nil when target is
// not a node or is unreachable.
func (sp *ShortestPaths) Reconstruct(target geo.Key) []geo.Point {
	id, ok := sp.graph.LookupKey(target)
	if !ok {
		return nil
	}
	return sp.reconstruct(id)
}

func (sp *ShortestPaths) reconstruct(id NodeID) []geo.Point {
	if !sp.Reachable(id) {
		return nil
	}
	var path []geo.Point
	for at := id; at != NoNode; at = sp.prev[at] {
		path = append(path, sp.graph.nodes[at])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ClosestReachable returns the reachable node nearest to target in
// great-circle distance. This is an approximation used when target itself
// cannot be reached.
func (sp *ShortestPaths) ClosestReachable(target geo.Point) (NodeID, bool) {
	best := NoNode
	minDistance := math.Inf(1)
	for i, d := range sp.dist {
		if math.IsInf(d, 1) {
			continue
		}
		if dt := target.DistanceTo(sp.graph.nodes[i]); dt < minDistance {
			minDistance = dt
			best = NodeID(i)
		}
	}
	return best, best != NoNode
}
