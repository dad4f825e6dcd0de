// Package matcher snaps GPS tracks onto a road graph and joins the snapped
// points with shortest paths. It also drives the complete pipeline from a
// track reader through a road source to a track writer.
package matcher

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

// Matcher matches tracks against one read-only graph. It is safe for
// concurrent use.
type Matcher struct {
	graph      *roadgraph.Graph
	snapper    Snapper
	pathfinder *roadgraph.Pathfinder
	workers    int
	logger     *slog.Logger
}

type options struct {
	snapper      Snapper
	workers      int
	maxDeviation float64
	observer     roadgraph.Observer
	logger       *slog.Logger
}

// Option configures a Matcher
type Option func(*options)

// WithSnapper replaces the default R-Tree snapper
func WithSnapper(s Snapper) Option {
	return func(o *options) { o.snapper = s }
}

// WithWorkers bounds the number of tracks matched at once by MatchAll
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxDeviation bounds the fallback distance in km, 0 means unbounded
func WithMaxDeviation(km float64) Option {
	return func(o *options) { o.maxDeviation = km }
}

// WithObserver receives the outcome of every connected pair
func WithObserver(obs roadgraph.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a matcher for graph
func New(graph *roadgraph.Graph, opts ...Option) *Matcher {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU()
	}
	if o.snapper == nil {
		o.snapper, _ = NewSnapper(SnapperRTree, graph)
	}

	pfOpts := []roadgraph.PathfinderOption{
		roadgraph.WithMaxDeviation(o.maxDeviation),
		roadgraph.WithLogger(o.logger),
	}
	if o.observer != nil {
		pfOpts = append(pfOpts, roadgraph.WithObserver(o.observer))
	}

	return &Matcher{
		graph:      graph,
		snapper:    o.snapper,
		pathfinder: roadgraph.NewPathfinder(graph, pfOpts...),
		workers:    o.workers,
		logger:     o.logger,
	}
}

// Graph returns the graph the matcher works on
func (m *Matcher) Graph() *roadgraph.Graph {
	return m.graph
}

// Match snaps every point of track to its nearest node and connects the
// snapped points through the graph. The result can be shorter than the input
// when pairs are unreachable.
func (m *Matcher) Match(track geo.Track) (geo.Track, error) {
	if m.graph.NodeCount() == 0 {
		return geo.Track{}, roadgraph.ErrEmptyGraph
	}

	snapped := SnapTrack(m.snapper, track)
	matched := m.pathfinder.PathfindBetweenPoints(snapped)

	m.logger.Debug("track matched",
		"input_points", track.Len(),
		"output_points", matched.Len())
	return matched, nil
}

// MatchAll matches tracks concurrently. The result has the same order as the
// input. Cancellation is checked before each track starts.
func (m *Matcher) MatchAll(ctx context.Context, tracks []geo.Track) ([]geo.Track, error) {
	out := make([]geo.Track, len(tracks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, track := range tracks {
		i, track := i, track
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matched, err := m.Match(track)
			if err != nil {
				return err
			}
			out[i] = matched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
