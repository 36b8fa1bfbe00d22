// Command portscan runs the multi-scale port detection pipeline over an AIS
// CSV extract: preprocess, cluster at every scale, suppress duplicates, merge
// across scales, analyze geometry, then write the report, map, plots, and a
// database record of the run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/harborsight/portscan/internal/ais"
	"github.com/harborsight/portscan/internal/config"
	"github.com/harborsight/portscan/internal/monitoring"
	"github.com/harborsight/portscan/internal/portdb"
	"github.com/harborsight/portscan/internal/ports"
	"github.com/harborsight/portscan/internal/report"
	"github.com/harborsight/portscan/internal/version"
	"github.com/harborsight/portscan/internal/visualize"
)

var (
	inputFile   = flag.String("input", "", "AIS CSV input file (required)")
	configFile  = flag.String("config", "", "Optional JSON config overriding defaults")
	outDir      = flag.String("out", "port_detection_results", "Output directory for report, map, and plots")
	dbFile      = flag.String("db", "", "Optional SQLite file to record the run in")
	workers     = flag.Int("workers", 0, "Clustering workers per scale (0 = NumCPU)")
	chunkSize   = flag.Int("chunk", 0, "CSV rows per partition (0 = config value)")
	noPlots     = flag.Bool("no-plots", false, "Skip map and plot generation")
	verbose     = flag.Bool("verbose", false, "Log per-partition clustering detail")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *inputFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	monitoring.SetDebug(*verbose)

	if err := run(); err != nil {
		log.Fatalf("portscan: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	f, err := os.Open(*inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	log.Printf("[Main] Preprocessing %s", *inputFile)
	partitions, stats, err := ais.NewPreprocessor(cfg).Run(f)
	if err != nil {
		return fmt.Errorf("preprocessing failed: %w", err)
	}

	detector := ports.NewDetector(cfg.DetectorConfig())
	final := detector.Detect(partitions)
	if len(final) == 0 {
		log.Printf("[Main] No ports detected")
	} else {
		log.Printf("[Main] Detected %d ports", len(final))
	}

	gen := report.NewGenerator(cfg, final, stats)
	if _, err := gen.WriteFile(*outDir); err != nil {
		return err
	}

	if !*noPlots {
		if _, err := visualize.WriteMap(*outDir, final); err != nil {
			return err
		}
		if _, err := visualize.WritePlots(*outDir, cfg, final); err != nil {
			return err
		}
	}

	if *dbFile != "" {
		db, err := portdb.Open(*dbFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err := db.SaveRun(*inputFile, stats, final)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		log.Printf("[Main] Recorded run %s in %s", runID, *dbFile)
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
