package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/claude/swimlaps/internal/config"
	"github.com/claude/swimlaps/internal/importer"
	"github.com/claude/swimlaps/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	input := flag.String("input", "", "path to export.xml, export .json or .zip archive")
	outDir := flag.String("out", "", "directory for chart images (overrides output_dir)")
	dates := flag.String("date", "", "comma-separated workout dates YYYY-MM-DD (default: all)")
	dryRun := flag.Bool("dry-run", false, "print tables without writing charts or metrics")
	noChart := flag.Bool("no-chart", false, "skip chart rendering")
	flag.Parse()

	boot := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *input != "" {
		cfg.Input = *input
	}
	if flag.NArg() > 0 {
		cfg.Input = flag.Arg(0)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *dates != "" {
		cfg.Dates = nil
		for _, d := range strings.Split(*dates, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Dates = append(cfg.Dates, d)
			}
		}
	}
	if *noChart {
		cfg.Charts.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	if cfg.Input == "" {
		fmt.Fprintf(os.Stderr, "Usage: swimlaps [-config config.yaml] [-out dir] [-date 2024-05-01] [-dry-run] [-no-chart] export.zip\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Tables go to stdout, so logs go to stderr once configured.
	log := cfg.Log.NewLogger(os.Stderr)

	if *dryRun {
		log.Info("DRY RUN mode - no charts or metrics will be written")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	imp := importer.New(cfg, log, metrics.New(), os.Stdout, *dryRun)
	stats, err := imp.Import(ctx, cfg.Input)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"format", stats.Format,
		"input_bytes", stats.InputBytes,
		"workouts", stats.Tables.Workouts,
		"workouts_selected", stats.WorkoutsSelected,
		"workouts_processed", stats.WorkoutsProcessed,
		"workouts_failed", stats.WorkoutsFailed,
		"laps_reconstructed", stats.LapsReconstructed,
		"charts_written", stats.ChartsWritten,
		"charts_failed", stats.ChartsFailed,
	)
	if len(stats.UnmatchedDates) > 0 {
		log.Info("dates without a swimming workout", "dates", stats.UnmatchedDates)
	}
}
