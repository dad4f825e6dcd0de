package main

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/geojsonfile"
	"github.com/kass/roadmatch/pkg/models"
	"github.com/kass/roadmatch/pkg/roadgraph"
	"github.com/kass/roadmatch/pkg/rtree"
)

// Origin and spacing of the generated street grid
const (
	gridOriginLat = 50.70
	gridOriginLon = 7.05
	gridSpacing   = 0.005
)

var (
	benchRoads   string
	benchType    string
	benchQueries int
	benchWorkers int
	benchGrid    int
	benchRadius  float64
	benchBoxSize float64
	benchSeed    int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark node snapping on a road graph",
	Long: `Build a road graph from a GeoJSON file or a generated street grid and
compare the R-tree node index with the linear nearest-node scan.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchRoads, "roads", "", "GeoJSON road file (default: generated grid)")
	benchCmd.Flags().StringVarP(&benchType, "type", "t", "all", "Query type: nearest, linear, radius, box, all")
	benchCmd.Flags().IntVarP(&benchQueries, "queries", "n", 1000, "Number of queries to run")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	benchCmd.Flags().IntVar(&benchGrid, "grid", 60, "Streets per direction of the generated grid")
	benchCmd.Flags().Float64Var(&benchRadius, "radius", 0.5, "Radius in km (radius queries)")
	benchCmd.Flags().Float64Var(&benchBoxSize, "box-size", 0.01, "Box size in degrees (box queries)")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", time.Now().UnixNano(), "Random seed")
}

type benchResult struct {
	Name          string
	TotalQueries  int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	QueriesPerSec float64
	TotalResults  int64
}

func runBench(cmd *cobra.Command, args []string) error {
	roads := gridRoads(benchGrid)
	if benchRoads != "" {
		f, err := geojsonfile.LoadRoads(benchRoads)
		if err != nil {
			return err
		}
		roads = f.Roads()
	}

	printTitle("roadmatch bench")
	start := time.Now()
	graph := roadgraph.NewBuilder(cfg.Graph.MaxEdgeLengthKm).WithLogger(appLogger).Build(roads)
	printSuccess(fmt.Sprintf("Graph built in %v", time.Since(start).Round(time.Millisecond)))
	printStat("Roads", len(roads))
	printStat("Nodes", graph.NodeCount())
	printStat("Edges", graph.EdgeCount())
	if graph.NodeCount() == 0 {
		return roadgraph.ErrEmptyGraph
	}

	start = time.Now()
	index := rtree.NewNodeIndex(graph)
	printSuccess(fmt.Sprintf("Node index built in %v", time.Since(start).Round(time.Millisecond)))

	bounds := graphBounds(graph).Pad(1)
	queries := map[string]func(r *rand.Rand) int{
		"nearest": func(r *rand.Rand) int {
			_, ok := index.Nearest(randomPoint(r, bounds))
			return boolCount(ok)
		},
		"linear": func(r *rand.Rand) int {
			_, ok := graph.NearestNode(randomPoint(r, bounds))
			return boolCount(ok)
		},
		"radius": func(r *rand.Rand) int {
			return len(index.QueryRadius(randomPoint(r, bounds), benchRadius))
		},
		"box": func(r *rand.Rand) int {
			p := randomPoint(r, bounds)
			return len(index.QueryBox(models.BoundingBox{
				BottomLeft: models.Location{Lat: p.Lat, Lon: p.Lon},
				TopRight:   models.Location{Lat: p.Lat + benchBoxSize, Lon: p.Lon + benchBoxSize},
			}))
		},
	}

	names := []string{benchType}
	if benchType == "all" {
		names = []string{"nearest", "linear", "radius", "box"}
	}
	for _, name := range names {
		query, ok := queries[name]
		if !ok {
			return fmt.Errorf("unknown query type %q", name)
		}
		printResult(runQueries(name, benchQueries, benchWorkers, benchSeed, query))
	}

	mismatches := compareSnappers(graph, index, bounds, benchQueries, benchSeed)
	if mismatches > 0 {
		printWarning(fmt.Sprintf("%d of %d nearest-node answers differ between index and linear scan", mismatches, benchQueries))
	} else {
		printSuccess(fmt.Sprintf("Index and linear scan agree on %d random points", benchQueries))
	}
	return nil
}

// runQueries spreads numQueries calls of query over a pool of workers, each
// with its own random source
func runQueries(name string, numQueries, workers int, seed int64, query func(r *rand.Rand) int) benchResult {
	if workers <= 0 {
		workers = 1
	}

	var (
		totalResults atomic.Int64
		totalDur     time.Duration
		minDuration  = time.Duration(math.MaxInt64)
		maxDuration  time.Duration
		mu           sync.Mutex
	)

	startTime := time.Now()

	queryCh := make(chan int, numQueries)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(workerID)))

			for range queryCh {
				queryStart := time.Now()
				n := query(r)
				queryDuration := time.Since(queryStart)

				totalResults.Add(int64(n))
				mu.Lock()
				totalDur += queryDuration
				minDuration = min(minDuration, queryDuration)
				maxDuration = max(maxDuration, queryDuration)
				mu.Unlock()
			}
		}(w)
	}

	for i := 0; i < numQueries; i++ {
		queryCh <- i
	}
	close(queryCh)
	wg.Wait()
	totalDuration := time.Since(startTime)

	res := benchResult{
		Name:          name,
		TotalQueries:  numQueries,
		TotalDuration: totalDuration,
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		TotalResults:  totalResults.Load(),
	}
	if numQueries > 0 {
		res.AvgDuration = totalDur / time.Duration(numQueries)
		res.QueriesPerSec = float64(numQueries) / totalDuration.Seconds()
	} else {
		res.MinDuration = 0
	}
	return res
}

func printResult(res benchResult) {
	printTitle(fmt.Sprintf("%s queries", res.Name))
	printStat("Total queries", res.TotalQueries)
	printStat("Total duration", res.TotalDuration.Round(time.Microsecond))
	printStat("Average duration", res.AvgDuration)
	printStat("Min duration", res.MinDuration)
	printStat("Max duration", res.MaxDuration)
	printStat("Queries/second", fmt.Sprintf("%.0f", res.QueriesPerSec))
	if res.TotalQueries > 0 {
		printStat("Avg results/query", fmt.Sprintf("%.2f", float64(res.TotalResults)/float64(res.TotalQueries)))
	}
}

func compareSnappers(g *roadgraph.Graph, index *rtree.NodeIndex, bounds models.BoundingBox, n int, seed int64) int {
	r := rand.New(rand.NewSource(seed))
	mismatches := 0
	for i := 0; i < n; i++ {
		p := randomPoint(r, bounds)
		a, _ := index.Nearest(p)
		b, _ := g.NearestNode(p)
		if a != b && g.Node(a).DistanceTo(p) != g.Node(b).DistanceTo(p) {
			mismatches++
		}
	}
	return mismatches
}

// gridRoads returns n east-west and n north-south streets crossing at shared
// points
func gridRoads(n int) []geo.Track {
	coord := func(origin float64, i int) float64 {
		return origin + float64(i)*gridSpacing
	}

	roads := make([]geo.Track, 0, 2*n)
	for i := 0; i < n; i++ {
		eastWest := make([]geo.Point, n)
		northSouth := make([]geo.Point, n)
		for j := 0; j < n; j++ {
			eastWest[j] = geo.NewPoint(coord(gridOriginLat, i), coord(gridOriginLon, j))
			northSouth[j] = geo.NewPoint(coord(gridOriginLat, j), coord(gridOriginLon, i))
		}
		roads = append(roads, geo.Track{Points: eastWest}, geo.Track{Points: northSouth})
	}
	return roads
}

func graphBounds(g *roadgraph.Graph) models.BoundingBox {
	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: math.Inf(1), Lon: math.Inf(1)},
		TopRight:   models.Location{Lat: math.Inf(-1), Lon: math.Inf(-1)},
	}
	g.ForEachNode(func(_ roadgraph.NodeID, p geo.Point) {
		box.BottomLeft.Lat = math.Min(box.BottomLeft.Lat, p.Lat)
		box.BottomLeft.Lon = math.Min(box.BottomLeft.Lon, p.Lon)
		box.TopRight.Lat = math.Max(box.TopRight.Lat, p.Lat)
		box.TopRight.Lon = math.Max(box.TopRight.Lon, p.Lon)
	})
	return box
}

func randomPoint(r *rand.Rand, box models.BoundingBox) geo.Point {
	return geo.NewPoint(
		box.BottomLeft.Lat+r.Float64()*(box.TopRight.Lat-box.BottomLeft.Lat),
		box.BottomLeft.Lon+r.Float64()*(box.TopRight.Lon-box.BottomLeft.Lon),
	)
}

func boolCount(ok bool) int {
	if ok {
		return 1
	}
	return 0
}
