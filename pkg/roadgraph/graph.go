// Package roadgraph builds an undirected, distance-weighted graph from road
// polylines and answers snapping and shortest-path queries against it.
//
// A Graph is immutable once Build returns and may be shared by any number of
// goroutines.
package roadgraph

import (
	"errors"

	"github.com/kass/roadmatch/pkg/geo"
)

// ErrEmptyGraph is returned when matching against a graph without nodes.
var ErrEmptyGraph = errors.New("road graph has no nodes")

// NodeID indexes a node in the graph arena
type NodeID int32

// NoNode marks an absent node reference
const NoNode NodeID = -1

// Edge is one direction of an undirected road edge
type Edge struct {
	To     NodeID
	Weight float64 // km
}

// Graph stores nodes in insertion order and their adjacency lists
type Graph struct {
	nodes         []geo.Point
	index         map[geo.Key]NodeID
	adj           [][]Edge
	edgeCount     int
	maxEdgeLength float64
}

func newGraph(maxEdgeLength float64) *Graph {
	return &Graph{
		index:         make(map[geo.Key]NodeID),
		maxEdgeLength: maxEdgeLength,
	}
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// MaxEdgeLength returns the edge length bound the graph was built with
func (g *Graph) MaxEdgeLength() float64 {
	return g.maxEdgeLength
}

// Node returns the point stored for id
func (g *Graph) Node(id NodeID) geo.Point {
	return g.nodes[id]
}

// Lookup finds the node with the same key as p
func (g *Graph) Lookup(p geo.Point) (NodeID, bool) {
	id, ok := g.index[p.Key()]
	return id, ok
}

// LookupKey finds the node stored under key
func (g *Graph) LookupKey(key geo.Key) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// Neighbors returns the edges leaving id. The slice must not be modified.
func (g *Graph) Neighbors(id NodeID) []Edge {
	return g.adj[id]
}

// ForEachNode calls fn for every node in insertion order
func (g *Graph) ForEachNode(fn func(id NodeID, p geo.Point)) {
	for i, p := range g.nodes {
		fn(NodeID(i), p)
	}
}

// ForEachEdge calls fn once per undirected edge
func (g *Graph) ForEachEdge(fn func(a, b NodeID, weight float64)) {
	for i, edges := range g.adj {
		for _, e := range edges {
			if NodeID(i) < e.To {
				fn(NodeID(i), e.To, e.Weight)
			}
		}
	}
}

func (g *Graph) addNode(p geo.Point) NodeID {
	key := p.Key()
	if id, ok := g.index[key]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, geo.NewPoint(p.Lat, p.Lon))
	g.adj = append(g.adj, nil)
	g.index[key] = id
	return id
}

func (g *Graph) addEdge(a, b NodeID, weight float64) {
	if a == b {
		return
	}
	for _, e := range g.adj[a] {
		if e.To == b {
			return
		}
	}
	g.adj[a] = append(g.adj[a], Edge{To: b, Weight: weight})
	g.adj[b] = append(g.adj[b], Edge{To: a, Weight: weight})
	g.edgeCount++
}
