package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/pkg/matcher"
)

var (
	inputFile    string
	outputFile   string
	outputFormat string
	roadsFile    string
	interpolate  int
	smooth       bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the tracks of a file onto roads",
	Long: `Read every track segment of a GPX (or GeoJSON) file, load the roads
around each segment, match it and write the matched segments in input order.`,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input track file (.gpx or .geojson)")
	matchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file")
	matchCmd.Flags().IntVarP(&interpolate, "interpolate", "p", 0, "Densify factor applied before matching (overrides config)")
	matchCmd.Flags().BoolVar(&smooth, "smooth", false, "Smooth tracks with a 3-point moving average before matching")
	matchCmd.Flags().StringVar(&outputFormat, "format", "gpx", "Output format: gpx or geojson")
	matchCmd.Flags().StringVar(&roadsFile, "roads", "", "GeoJSON road file used instead of the configured road source")
	_ = matchCmd.MarkFlagRequired("input")
	_ = matchCmd.MarkFlagRequired("output")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	writer, err := newTrackWriter(outputFormat, outputFile)
	if err != nil {
		return err
	}

	source, closeSource, err := openRoadSource(ctx, cfg.Roads, roadsFile)
	if err != nil {
		return err
	}
	defer closeSource()

	pcfg := processorConfig(cfg)
	if cmd.Flags().Changed("interpolate") {
		pcfg.Interpolate = interpolate
	}
	if smooth {
		pcfg.Smooth = true
	}

	stats := &matchStats{}
	p := matcher.NewProcessor(source, pcfg,
		matcher.WithProcessorObserver(stats),
		matcher.WithProcessorLogger(appLogger))

	printTitle("roadmatch")
	printInfo(fmt.Sprintf("Matching %s with roads from %s", inputFile, sourceLabel(cfg.Roads, roadsFile)))

	start := time.Now()
	if err := p.Process(ctx, newTrackReader(inputFile), writer); err != nil {
		return err
	}

	printSummary(stats, time.Since(start))
	printSuccess(fmt.Sprintf("Matched tracks written to %s", outputFile))
	return nil
}
