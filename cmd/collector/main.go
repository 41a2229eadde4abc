// Package main provides the news collection command that partitions
// keyword queries by quarter, drains each partition and merges the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"qnews/internal/collector"
	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/internal/merge"
	"qnews/internal/models"
	"qnews/internal/partition"
	"qnews/internal/report"
	"qnews/internal/runner"
	"qnews/internal/search"
	"qnews/internal/sink"
)

func main() {
	// 1. Define Command-Line Flags
	// ----------------------------
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	mode := flag.String("mode", runner.ModeAuto, "Run mode: auto (collect+merge), all (collect only), single (one unit), merge (merge only)")
	keyword := flag.String("keyword", "", "Search keyword (single mode)")
	quarter := flag.String("quarter", "", "Quarter label, e.g. 2022_Q1 (single mode)")
	startDate := flag.String("start-date", "", "Unit start date YYYY-MM-DD (single mode, defaults to the quarter boundary)")
	endDate := flag.String("end-date", "", "Unit end date YYYY-MM-DD (single mode, defaults to the quarter boundary)")
	partsDir := flag.String("parts-dir", "", "Override the partition output directory")
	startYear := flag.Int("start-year", 0, "Override the first collection year")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	// .env is optional; real environments set the variables directly.
	_ = godotenv.Load()

	// 2. Load Configuration
	// ---------------------
	usingDefaults := false

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		cfg = config.DefaultConfig()
		usingDefaults = true
	}

	if *partsDir != "" {
		cfg.Output.PartsDir = *partsDir
	}

	if *startYear != 0 {
		cfg.Collection.StartYear = *startYear
	}

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}

	log, err := logger.NewFileLogger(level, cfg.Logging.Dir)
	if err != nil {
		log = logger.NewLogger(level)
		log.Warn(fmt.Sprintf("⚠️  File logging unavailable: %v", err))
	} else {
		defer func() {
			_ = log.Close()
		}()
	}

	if usingDefaults {
		log.Warn(fmt.Sprintf("⚠️  %s not found, using defaults", *configPath))
	}

	// 3. Load Credentials
	// -------------------
	// Merge mode never talks to the API, so it runs without credentials.
	var creds config.Credentials

	if *mode != runner.ModeMerge {
		creds, err = config.CredentialsFromEnv()
		if err != nil {
			log.Error(fmt.Sprintf("❌ %v", err))
			os.Exit(1)
		}
	}

	// 4. Assemble the Engine
	// ----------------------
	store := sink.NewStore(cfg.Output.PartsDir)
	client := search.NewNaverClient(cfg, creds, log)
	col := collector.New(client, store, cfg, log)
	merger := merge.NewEngine(store, cfg, log)
	run := runner.New(col, merger, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting news collection engine")
	log.Info(fmt.Sprintf("📍 Mode: %s | Keywords: %d | Start year: %d",
		*mode, len(cfg.Keywords), cfg.Collection.StartYear))

	startTime := time.Now()

	switch *mode {
	case runner.ModeAuto:
		runAuto(ctx, run, cfg, log)
	case runner.ModeAll:
		runCollect(ctx, run, cfg, log)
	case runner.ModeSingle:
		runSingle(ctx, run, log, *keyword, *quarter, *startDate, *endDate)
	case runner.ModeMerge:
		runMergeOnly(run, cfg, log)
	default:
		log.Error(fmt.Sprintf("❌ Unknown mode %q", *mode))
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("✨ Done in %v", time.Since(startTime).Round(time.Millisecond)))
}

// buildUnits expands the configured keywords into the full work-unit list.
func buildUnits(cfg *config.Config, log *logger.Logger) []models.WorkUnit {
	units, err := partition.Units(cfg.Keywords, cfg.Collection.StartYear, time.Now())
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	if len(units) == 0 {
		log.Warn("⚠️  No work units to collect (start year is in the future?)")
		os.Exit(0)
	}

	return units
}

func runAuto(ctx context.Context, run *runner.Runner, cfg *config.Config, log *logger.Logger) {
	units := buildUnits(cfg, log)

	log.Info(fmt.Sprintf("Phase 1: Collecting %d units...", len(units)))

	state, stats, err := run.RunAll(ctx, units)
	saveState(run, state, log)

	if err != nil {
		log.Error(fmt.Sprintf("❌ Run aborted: %v", err))
		printSummary(state, nil)
		os.Exit(1)
	}

	log.Info("Phase 2: Merge complete")
	printSummary(state, stats)
	reportFailures(state, log)
}

func runCollect(ctx context.Context, run *runner.Runner, cfg *config.Config, log *logger.Logger) {
	units := buildUnits(cfg, log)

	state, err := run.RunCollect(ctx, units)
	saveState(run, state, log)

	if err != nil {
		log.Error(fmt.Sprintf("❌ Run aborted: %v", err))
		printSummary(state, nil)
		os.Exit(1)
	}

	printSummary(state, nil)
	reportFailures(state, log)
}

func runSingle(ctx context.Context, run *runner.Runner, log *logger.Logger, keyword, quarter, startDate, endDate string) {
	if keyword == "" || quarter == "" {
		log.Error("❌ Single mode requires -keyword and -quarter")
		flag.PrintDefaults()
		os.Exit(1)
	}

	unit, err := resolveUnit(keyword, quarter, startDate, endDate)
	if err != nil {
		log.Error(fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	state, err := run.RunUnit(ctx, unit)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Run aborted: %v", err))
		printSummary(state, nil)
		os.Exit(1)
	}

	printSummary(state, nil)
	reportFailures(state, log)
}

func runMergeOnly(run *runner.Runner, cfg *config.Config, log *logger.Logger) {
	units := buildUnits(cfg, log)

	stats, err := run.RunMerge(units)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Merge failed: %v", err))
		os.Exit(1)
	}

	state := models.NewRunState(runner.ModeMerge)
	state.Finish()
	printSummary(state, stats)
}

// resolveUnit builds the single-mode work unit, deriving date bounds from
// the quarter label when they are not given explicitly.
func resolveUnit(keyword, quarterLabel, startDate, endDate string) (models.WorkUnit, error) {
	q, err := partition.QuarterByLabel(quarterLabel, time.Now())
	if err != nil {
		return models.WorkUnit{}, err
	}

	start, end := q.Start, q.End

	if startDate != "" {
		if start, err = time.Parse(models.DateLayout, startDate); err != nil {
			return models.WorkUnit{}, fmt.Errorf("invalid -start-date: %w", err)
		}
	}

	if endDate != "" {
		if end, err = time.Parse(models.DateLayout, endDate); err != nil {
			return models.WorkUnit{}, fmt.Errorf("invalid -end-date: %w", err)
		}
	}

	return models.NewWorkUnit(keyword, quarterLabel, start, end)
}

func saveState(run *runner.Runner, state *models.RunState, log *logger.Logger) {
	path, err := run.SaveState(state)
	if err != nil {
		log.Warn(fmt.Sprintf("⚠️  Could not save run state: %v", err))
		return
	}

	log.Info(fmt.Sprintf("💾 Run state saved to %s", path))
}

func printSummary(state *models.RunState, stats *merge.Stats) {
	fmt.Println("\n------------------------------------------------")
	fmt.Println("📊 Summary Report")
	fmt.Println("------------------------------------------------")
	fmt.Println(report.Summary(state, stats))
	fmt.Println("------------------------------------------------")
}

// reportFailures lists the units that need a re-run. Partial units do not
// change the exit code; callers consult the run state to retry exactly the
// failed units.
func reportFailures(state *models.RunState, log *logger.Logger) {
	failed := state.FailedUnits()
	if len(failed) == 0 {
		return
	}

	log.Warn(fmt.Sprintf("⚠️  %d units need a re-run", len(failed)))

	for _, u := range failed {
		log.Warn(fmt.Sprintf("  - %s_%s (%s)", u.Keyword, u.Quarter, u.Status))
	}
}
