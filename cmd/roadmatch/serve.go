package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/internal/metrics"
	"github.com/kass/roadmatch/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP matching service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&roadsFile, "roads", "", "GeoJSON road file used instead of the configured road source")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	source, closeSource, err := openRoadSource(ctx, cfg.Roads, roadsFile)
	if err != nil {
		return err
	}
	defer closeSource()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(cfg.Server, processorConfig(cfg), source,
		server.WithObserver(metrics.Collector{}),
		server.WithLogger(appLogger))
	return srv.Run(ctx)
}
