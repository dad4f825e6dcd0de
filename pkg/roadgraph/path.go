package roadgraph

import (
	"log/slog"
	"time"

	"github.com/kass/roadmatch/pkg/geo"
)

// Outcome classifies how a pair of consecutive track points was connected
type Outcome int

const (
	// Direct means the target node was reached.
	Direct Outcome = iota
	// Fallback means the path ends at the reachable node closest to the target.
	Fallback
	// Unreachable means no usable node was reachable; only the start point is kept.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Direct:
		return "direct"
	case Fallback:
		return "fallback"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Observer is notified of every segment the pathfinder connects
type Observer interface {
	ObserveSegment(outcome Outcome)
}

// CorrectTime spreads the interval [start, end) evenly over path: the i-th
// point gets start + i*(end-start)/len(path). It returns new points.
func CorrectTime(path []geo.Point, start, end time.Time) []geo.Point {
	if len(path) == 0 {
		return nil
	}
	step := end.Sub(start) / time.Duration(len(path))
	out := make([]geo.Point, len(path))
	for i, p := range path {
		out[i] = p.WithTime(start.Add(time.Duration(i) * step))
	}
	return out
}

// Pathfinder connects consecutive track points through a graph
type Pathfinder struct {
	graph        *Graph
	maxDeviation float64
	observer     Observer
	logger       *slog.Logger
}

// PathfinderOption configures a Pathfinder
type PathfinderOption func(*Pathfinder)

// WithMaxDeviation bounds, in km, how far the fallback node may be from the
// unreachable target. Zero or less leaves the fallback unbounded.
func WithMaxDeviation(km float64) PathfinderOption {
	return func(pf *Pathfinder) {
		pf.maxDeviation = km
	}
}

// WithObserver registers an observer for segment outcomes
func WithObserver(o Observer) PathfinderOption {
	return func(pf *Pathfinder) {
		pf.observer = o
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) PathfinderOption {
	return func(pf *Pathfinder) {
		if logger != nil {
			pf.logger = logger
		}
	}
}

// NewPathfinder creates a pathfinder over graph
func NewPathfinder(graph *Graph, opts ...PathfinderOption) *Pathfinder {
	pf := &Pathfinder{
		graph:  graph,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(pf)
	}
	return pf
}

// Segment returns the path from one track point to the next. When to is not
// reachable the path ends at the reachable node closest to it. Timestamps are
// redistributed along the path when both from and to carry one.
func (pf *Pathfinder) Segment(from, to geo.Point) ([]geo.Point, Outcome) {
	paths := pf.graph.ShortestPaths(from)

	outcome := Direct
	path := paths.Reconstruct(to.Key())
	if path == nil {
		outcome = Fallback
		closest, ok := paths.ClosestReachable(to)
		if ok && pf.maxDeviation > 0 && pf.graph.Node(closest).DistanceTo(to) > pf.maxDeviation {
			ok = false
		}
		if ok {
			path = paths.reconstruct(closest)
			pf.logger.Debug("target unreachable, using closest reachable node",
				"from", from.Key().String(),
				"to", to.Key().String(),
				"closest", pf.graph.Node(closest).Key().String())
		}
	}

	if path == nil {
		pf.logger.Warn("no node reachable from segment start",
			"from", from.Key().String(),
			"to", to.Key().String())
		pf.observe(Unreachable)
		return []geo.Point{from}, Unreachable
	}

	if from.HasTime() && to.HasTime() {
		path = CorrectTime(path, from.Time, to.Time)
	}
	pf.observe(outcome)
	return path, outcome
}

// PathfindBetweenPoints connects every consecutive pair of track and joins the
// segments into one track. A segment's first point is dropped when it repeats
// the last point already emitted.
func (pf *Pathfinder) PathfindBetweenPoints(track geo.Track) geo.Track {
	if len(track.Points) < 2 {
		return track.Clone()
	}

	var out []geo.Point
	for i := 0; i < len(track.Points)-1; i++ {
		segment, _ := pf.Segment(track.Points[i], track.Points[i+1])
		if len(out) > 0 && len(segment) > 0 && out[len(out)-1].Equal(segment[0]) {
			segment = segment[1:]
		}
		out = append(out, segment...)
	}
	return geo.Track{Points: out}
}

func (pf *Pathfinder) observe(o Outcome) {
	if pf.observer != nil {
		pf.observer.ObserveSegment(o)
	}
}
