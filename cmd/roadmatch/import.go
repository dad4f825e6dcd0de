package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/pkg/geojsonfile"
)

var (
	importFile  string
	importReset bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a GeoJSON road file into PostGIS",
	Long: `Create the roads table if needed, insert every LineString of the file
and build the spatial index used by the postgis road source.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "roads", "", "GeoJSON road file")
	importCmd.Flags().BoolVar(&importReset, "reset", false, "Drop and recreate the roads table first")
	_ = importCmd.MarkFlagRequired("roads")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := geojsonfile.LoadRoads(importFile)
	if err != nil {
		return err
	}

	store, err := openPostGIS(ctx, cfg.Roads.PostGIS)
	if err != nil {
		return err
	}
	defer store.Close()

	printTitle("roadmatch import")
	printInfo(fmt.Sprintf("Loaded %d roads from %s", len(f.Roads()), importFile))

	if err := store.InitSchema(ctx, importReset); err != nil {
		return err
	}

	start := time.Now()
	inserted, err := store.BulkInsertRoads(ctx, f.Roads())
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Inserted %d roads in %v", inserted, time.Since(start).Round(time.Millisecond)))
	if skipped := len(f.Roads()) - inserted; skipped > 0 {
		printWarning(fmt.Sprintf("Skipped %d roads with fewer than two points", skipped))
	}

	start = time.Now()
	if err := store.CreateSpatialIndex(ctx); err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Spatial index created in %v", time.Since(start).Round(time.Millisecond)))

	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	printStat("Roads in table", total)
	return nil
}
