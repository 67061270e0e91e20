package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/inputs"
	"github.com/hydrotools/lfcoords/raster"
	"github.com/hydrotools/lfcoords/raster/geotiff"
)

// Checks the configuration and inputs without searching or publishing
func main() {
	cfgPath := flag.String("config", "config.yml", "Path to the run configuration")
	limit := flag.Int("limit", 10, "Number of stations to display")
	flag.Parse()

	log.Println("╔═══════════════════════════════════════════════════════════╗")
	log.Println("║        DRY-RUN TEST (no search, no Kafka)                 ║")
	log.Println("╚═══════════════════════════════════════════════════════════╝")
	log.Printf("Config: %s", *cfgPath)
	log.Printf("Display Limit: %d stations", *limit)
	log.Println("───────────────────────────────────────────────────────────")

	startTime := time.Now()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("✅ Configuration valid")

	in, err := inputs.Loader{GeoTIFF: geotiff.Read}.Load(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to load inputs: %v", err)
	}

	fine := raster.FineResolution(in.LDDFine.Grid())
	coarse := raster.CoarseResolution(in.LDDCoarse.Grid())
	log.Printf("✅ Fine grid: %s (%.8f°)", fine.Label, fine.CellSize)
	log.Printf("✅ Coarse grid: %s (%.6f°)", coarse.Label, coarse.CellSize)
	log.Printf("📄 Point layers: %s_%s, %s_%s", inputs.Stem(cfg), fine.Label, inputs.Stem(cfg), coarse.Label)

	log.Println("📋 Sample stations:")
	log.Println("═══════════════════════════════════════════════════════════")
	outside := 0
	for i := range in.Stations {
		s := &in.Stations[i]
		ups, err := in.UpstreamFine.ValueAt(s.Lon, s.Lat)
		if err != nil {
			outside++
			log.Printf("⚠️  Station %s lies outside the fine grid", s.ID)
		}
		if i >= *limit {
			continue
		}
		data, err := s.ToJSON()
		if err != nil {
			log.Printf("⚠️  Station %s: %v", s.ID, err)
			continue
		}
		fmt.Println(string(data))
		if cells, err := in.LDDFine.UpstreamCells(s.Lon, s.Lat); err == nil {
			log.Printf("   %s: %d cells drain through the reference pixel (%.1f km2 upstream, %.1f km2 reported)", s.ID, cells, ups, s.Area)
		}
	}

	log.Println("📊 STATISTICS:")
	log.Println("═══════════════════════════════════════════════════════════")
	log.Printf("✅ Stations: %d (%d rows dropped)", len(in.Stations), in.Dropped)
	log.Printf("⚠️  Outside the fine grid: %d", outside)
	log.Printf("⏱️  Load Time: %v", time.Since(startTime))
	log.Println("═══════════════════════════════════════════════════════════")
}
