package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"finstat/pkg/core/config"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/ratios"
	"finstat/pkg/core/report"
	"finstat/pkg/core/store"
	"finstat/pkg/core/vocab"
	"finstat/pkg/models"
)

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Note: no .env file found, using process environment.")
	}

	var (
		periodFlag  = flag.String("period", "annual", "statement period: annual or quarterly")
		workersFlag = flag.Int("workers", 0, "concurrent company fetches (0 = config default)")
		mapFlag     = flag.String("map", "", "CSV sector map with Symbol and Sector columns")
		outFlag     = flag.String("out", "", "directory for the markdown report (default: config output_dir)")
		saveFlag    = flag.Bool("save", false, "persist the run to Postgres (requires DATABASE_URL)")
		configFlag  = flag.String("config", "", "config file (default: $FINSTAT_CONFIG, then ./config.yaml)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: sector [flags] SECTOR")
		flag.PrintDefaults()
		os.Exit(2)
	}
	sectorName := strings.Join(flag.Args(), " ")

	kind, err := models.ParsePeriodKind(*periodFlag)
	if err != nil {
		die("%v", err)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		die("%v", err)
	}
	log.DefaultLogger.Level = log.ParseLevel(cfg.LogLevel)

	ctx := context.Background()
	analyzer, err := buildAnalyzer(ctx, cfg, *mapFlag, *workersFlag, *saveFlag)
	if err != nil {
		die("%v", err)
	}

	fmt.Printf("📊 Scanning %s sector (%s statements)...\n", sectorName, kind)
	run, err := analyzer.AnalyzeSector(ctx, sectorName, kind)
	if err != nil {
		die("%s: %v", sectorName, err)
	}

	printRun(run)
	if run.Processed == 0 {
		die("%s: no company produced usable data", sectorName)
	}

	if *saveFlag {
		if err := store.NewAnalysisRepo().SaveSectorRun(ctx, run); err != nil {
			die("save run: %v", err)
		}
		fmt.Printf("✓ Run %s saved to Postgres\n", run.RunID)
	}

	outDir := *outFlag
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if outDir != "" {
		doc, err := report.Sector(run)
		if err != nil {
			die("render report: %v", err)
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			die("create output dir: %v", err)
		}
		name := strings.ReplaceAll(strings.ToLower(sectorName), " ", "_")
		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.md", name, kind))
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			die("write report: %v", err)
		}
		fmt.Printf("📝 Report written to %s\n", path)
	}
}

// buildAnalyzer wires the provider client, the hybrid statement cache, the
// sector directory and the optional persistence sink. Directory priority:
// explicit -map file, then the configured CSV when it exists, then the
// companies table when a database is reachable.
func buildAnalyzer(ctx context.Context, cfg *config.Config, mapPath string, workers int, save bool) (*pipeline.Analyzer, error) {
	client := ingest.NewClient(cfg.Provider.BaseURL,
		ingest.WithRateLimit(cfg.Provider.RateLimit),
		ingest.WithTimeout(cfg.Provider.Timeout()),
		ingest.WithAPIKey(os.Getenv("FINSTAT_API_KEY")),
	)

	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(ctx); err != nil {
			log.Warn().Err(err).Msg("database unavailable, continuing without it")
		}
	}
	cache := store.NewStatementCache(store.GetPool(), cfg.Cache.Dir, cfg.Cache.TTL())
	fetcher := store.NewCachingFetcher(client, cache)

	analyzer := pipeline.NewAnalyzer(fetcher)
	if workers > 0 {
		analyzer.SetWorkers(workers)
	} else {
		analyzer.SetWorkers(cfg.Workers)
	}

	directory, err := buildDirectory(cfg, mapPath)
	if err != nil {
		return nil, err
	}
	analyzer.SetDirectory(directory)

	if cfg.VocabOverlay != "" {
		v, err := vocab.Default().WithOverlay(cfg.VocabOverlay)
		if err != nil {
			return nil, fmt.Errorf("vocabulary overlay: %w", err)
		}
		analyzer.SetVocabulary(v)
	}

	if save {
		if store.GetPool() == nil {
			return nil, fmt.Errorf("-save requires DATABASE_URL")
		}
		analyzer.SetSink(store.NewAnalysisRepo())
	}

	return analyzer, nil
}

func buildDirectory(cfg *config.Config, mapPath string) (pipeline.Directory, error) {
	if mapPath != "" {
		return store.NewCSVDirectory(mapPath)
	}
	if cfg.DirectoryCSV != "" {
		if _, err := os.Stat(cfg.DirectoryCSV); err == nil {
			return store.NewCSVDirectory(cfg.DirectoryCSV)
		}
	}
	if store.GetPool() != nil {
		return store.NewPGDirectory(), nil
	}
	return nil, fmt.Errorf("no sector directory available: provide -map or DATABASE_URL")
}

func printRun(run *pipeline.SectorAnalysis) {
	fmt.Printf("\nProcessed %d of %d %s\n",
		run.Processed, run.Requested, plural(run.Requested, "company", "companies"))

	if len(run.Skipped) > 0 {
		fmt.Printf("\nSkipped (%d):\n", len(run.Skipped))
		symbols := make([]string, 0, len(run.Skipped))
		for symbol := range run.Skipped {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			fmt.Printf("  ✗ %-8s %s\n", symbol, run.Skipped[symbol])
		}
	}

	if run.Processed == 0 {
		return
	}

	fmt.Printf("\nSector aggregate (%d %s):\n",
		run.Processed, plural(run.Processed, "company", "companies"))
	fmt.Printf("  %-34s %6s %10s %10s %10s %10s\n", "ratio", "count", "avg", "median", "min", "max")
	for _, name := range ratios.Names {
		stats, ok := run.Aggregate[name]
		if !ok || stats.Count == 0 {
			continue
		}
		fmt.Printf("  %-34s %6d %10s %10s %10s %10s\n",
			name, stats.Count, stat(stats.Avg), stat(stats.Median), stat(stats.Min), stat(stats.Max))
	}
}

func stat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
