package main

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/kass/roadmatch/internal/metrics"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

var (
	// Styles are only applied when stdout is a terminal
	colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

func printTitle(title string) {
	fmt.Printf("\n%s\n", render(titleStyle, title))
	fmt.Println(strings.Repeat("=", 60))
}

func printSuccess(message string) {
	fmt.Println(render(successStyle, "✓ "+message))
}

func printInfo(message string) {
	fmt.Println(render(infoStyle, "• "+message))
}

func printWarning(message string) {
	fmt.Println(render(warnStyle, "! "+message))
}

func printStat(label string, value any) {
	fmt.Printf("  %s %s\n", render(labelStyle, label+":"), render(statStyle, fmt.Sprint(value)))
}

// matchStats counts pipeline events for the run summary and forwards them to
// the Prometheus collectors
type matchStats struct {
	metrics.Collector

	direct      atomic.Int64
	fallback    atomic.Int64
	unreachable atomic.Int64
	roads       atomic.Int64
	segments    atomic.Int64
	points      atomic.Int64
}

func (s *matchStats) ObserveSegment(o roadgraph.Outcome) {
	s.Collector.ObserveSegment(o)
	switch o {
	case roadgraph.Direct:
		s.direct.Add(1)
	case roadgraph.Fallback:
		s.fallback.Add(1)
	case roadgraph.Unreachable:
		s.unreachable.Add(1)
	}
}

func (s *matchStats) ObserveRoads(count int) {
	s.Collector.ObserveRoads(count)
	s.roads.Add(int64(count))
}

func (s *matchStats) ObserveMatch(elapsed time.Duration, points int) {
	s.Collector.ObserveMatch(elapsed, points)
	s.segments.Add(1)
	s.points.Add(int64(points))
}

func printSummary(s *matchStats, elapsed time.Duration) {
	printTitle("Summary")
	printStat("Segments matched", s.segments.Load())
	printStat("Matched points", s.points.Load())
	printStat("Roads fetched", s.roads.Load())
	printStat("Direct pairs", s.direct.Load())
	printStat("Fallback pairs", s.fallback.Load())
	printStat("Unreachable pairs", s.unreachable.Load())
	printStat("Total time", elapsed.Round(time.Millisecond))

	if n := s.unreachable.Load(); n > 0 {
		printWarning(fmt.Sprintf("%d point pairs had no reachable road node and were kept unmatched", n))
	}
}
