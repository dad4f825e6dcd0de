package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/models"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

// RoadSource returns the road polylines covering the box spanned by two
// opposite corners. Failures are reported as *DataSourceError.
type RoadSource interface {
	GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error)
}

// TrackReader loads track segments
type TrackReader interface {
	Read(ctx context.Context) ([]geo.Track, error)
}

// TrackWriter stores track segments
type TrackWriter interface {
	Write(ctx context.Context, tracks []geo.Track) error
}

// Observer receives pipeline statistics in addition to segment outcomes
type Observer interface {
	roadgraph.Observer
	ObserveRoads(count int)
	ObserveMatch(elapsed time.Duration, points int)
}

// ProcessorConfig holds the tunables of the matching pipeline
type ProcessorConfig struct {
	Smooth               bool
	Interpolate          int
	BBoxPaddingKm        float64
	MaxEdgeLength        float64
	MaxFallbackDeviation float64
	Snapper              string
	Workers              int
}

// Processor runs the complete pipeline for every track segment: densify,
// fetch the roads around it, build a graph and match.
type Processor struct {
	source   RoadSource
	cfg      ProcessorConfig
	observer Observer
	logger   *slog.Logger
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithProcessorObserver registers an observer for all matched segments
func WithProcessorObserver(o Observer) ProcessorOption {
	return func(p *Processor) { p.observer = o }
}

// WithProcessorLogger sets the logger
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a processor fetching roads from source
func NewProcessor(source RoadSource, cfg ProcessorConfig, opts ...ProcessorOption) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	p := &Processor{
		source: source,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reads all segments from r, matches them concurrently and writes the
// matched segments to w in input order.
func (p *Processor) Process(ctx context.Context, r TrackReader, w TrackWriter) error {
	segments, err := r.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tracks: %w", err)
	}

	p.logger.Info("processing tracks", "segments", len(segments))

	matched, err := p.MatchSegments(ctx, segments)
	if err != nil {
		return err
	}

	if err := w.Write(ctx, matched); err != nil {
		return fmt.Errorf("failed to write tracks: %w", err)
	}
	return nil
}

// MatchSegments matches independent segments concurrently, keeping their order
func (p *Processor) MatchSegments(ctx context.Context, segments []geo.Track) ([]geo.Track, error) {
	out := make([]geo.Track, len(segments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, segment := range segments {
		i, segment := i, segment
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matched, err := p.MatchSegment(ctx, segment)
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

// MatchSegment densifies one segment, loads the roads around it and matches
// it. With Smooth set the segment is smoothed before densifying. Errors of the
// road source are returned unchanged.
func (p *Processor) MatchSegment(ctx context.Context, segment geo.Track) (geo.Track, error) {
	start := time.Now()

	if p.cfg.Smooth {
		segment = segment.Smooth()
	}
	dense := segment.Densify(p.cfg.Interpolate)
	box, err := dense.BoundingBox()
	if err != nil {
		return geo.Track{}, err
	}
	box = box.Pad(p.cfg.BBoxPaddingKm)

	roads, err := p.source.GetRoads(ctx, box.UpperLeft(), box.BottomRight())
	if err != nil {
		return geo.Track{}, err
	}
	if p.observer != nil {
		p.observer.ObserveRoads(len(roads))
	}

	graph := roadgraph.NewBuilder(p.cfg.MaxEdgeLength).WithLogger(p.logger).Build(roads)
	snapper, err := NewSnapper(p.cfg.Snapper, graph)
	if err != nil {
		return geo.Track{}, err
	}

	opts := []Option{
		WithSnapper(snapper),
		WithMaxDeviation(p.cfg.MaxFallbackDeviation),
		WithLogger(p.logger),
	}
	if p.observer != nil {
		opts = append(opts, WithObserver(p.observer))
	}

	matched, err := New(graph, opts...).Match(dense)
	if err != nil {
		return geo.Track{}, err
	}

	elapsed := time.Since(start)
	if p.observer != nil {
		p.observer.ObserveMatch(elapsed, matched.Len())
	}
	p.logger.Debug("segment matched",
		"points", segment.Len(),
		"densified", dense.Len(),
		"roads", len(roads),
		"nodes", graph.NodeCount(),
		"matched", matched.Len(),
		"elapsed", elapsed)
	return matched, nil
}

// StaticRoads is a RoadSource that always returns the same roads, whatever
// the requested box
type StaticRoads []geo.Track

func (s StaticRoads) GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataSourceError{Source: "static", Err: err}
	}
	return s, nil
}
