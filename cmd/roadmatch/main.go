package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/internal/config"
	"github.com/kass/roadmatch/internal/logger"
	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/roadgraph"
)

var (
	configFile string
	verbose    bool

	cfg       = config.Default()
	appLogger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "roadmatch",
	Short: "Match GPS tracks onto a road network",
	Long: `Snap noisy GPS tracks onto a road graph built from OpenStreetMap,
PostGIS or GeoJSON roads and reconstruct the path driven between the points.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(matchCmd, serveCmd, importCmd, benchCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}
	cfg = loaded
	appLogger = logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return nil
}

// exitCode is 2 for unusable input, 3 for road source failures and 1 otherwise
func exitCode(err error) int {
	var dsErr *matcher.DataSourceError
	switch {
	case errors.Is(err, geo.ErrEmptyTrack), errors.Is(err, roadgraph.ErrEmptyGraph):
		return 2
	case errors.As(err, &dsErr):
		return 3
	default:
		return 1
	}
}
