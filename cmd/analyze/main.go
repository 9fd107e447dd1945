package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"finstat/pkg/core/config"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/ratios"
	"finstat/pkg/core/report"
	"finstat/pkg/core/store"
	"finstat/pkg/core/verify"
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
		periodFlag = flag.String("period", "annual", "statement period: annual or quarterly")
		yearsFlag  = flag.Int("years", 0, "limit output to the N most recent periods (0 = all)")
		outFlag    = flag.String("out", "", "directory for the markdown report (default: config output_dir)")
		saveFlag   = flag.Bool("save", false, "persist the analysis to Postgres (requires DATABASE_URL)")
		configFlag = flag.String("config", "", "config file (default: $FINSTAT_CONFIG, then ./config.yaml)")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] SYMBOL")
		flag.PrintDefaults()
		os.Exit(2)
	}
	symbol := strings.ToUpper(flag.Arg(0))

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
	analyzer, err := buildAnalyzer(ctx, cfg, *saveFlag)
	if err != nil {
		die("%v", err)
	}

	fmt.Printf("📊 Analyzing %s (%s statements)...\n", symbol, kind)
	analysis, err := analyzer.AnalyzeCompany(ctx, symbol, kind)
	if err != nil {
		die("%s: %v", symbol, err)
	}
	truncatePeriods(analysis, *yearsFlag)

	printAnalysis(analysis)

	outDir := *outFlag
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if outDir != "" {
		doc, err := report.Company(analysis)
		if err != nil {
			die("render report: %v", err)
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			die("create output dir: %v", err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.md", symbol, kind))
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			die("write report: %v", err)
		}
		fmt.Printf("📝 Report written to %s\n", path)
	}
}

// buildAnalyzer wires the provider client, the hybrid statement cache and
// the optional persistence sink.
func buildAnalyzer(ctx context.Context, cfg *config.Config, save bool) (*pipeline.Analyzer, error) {
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
	analyzer.SetWorkers(cfg.Workers)

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

// truncatePeriods keeps only the n most recent columns for display.
func truncatePeriods(a *pipeline.CompanyAnalysis, n int) {
	if n <= 0 {
		return
	}
	if a.Matrix != nil && len(a.Matrix.Columns) > n {
		a.Matrix.Columns = a.Matrix.Columns[:n]
	}
	if a.Ratios != nil && len(a.Ratios.Columns) > n {
		a.Ratios.Columns = a.Ratios.Columns[:n]
	}
}

func printAnalysis(a *pipeline.CompanyAnalysis) {
	if a.Profile != nil {
		fmt.Printf("\n%s (%s / %s)\n", a.Profile.Name, a.Profile.Sector, a.Profile.Industry)
	}

	periods := a.Matrix.Periods()
	fmt.Printf("\nStandardized statements (%d %s):\n", len(periods), plural(len(periods), "period", "periods"))
	fmt.Printf("  %-32s", "item")
	for _, p := range periods {
		fmt.Printf(" %14s", p.Format("2006-01-02"))
	}
	fmt.Println()
	for _, key := range vocab.Default().Keys() {
		row, any := "", false
		for i := range a.Matrix.Columns {
			if v, ok := a.Matrix.Columns[i].Get(key); ok {
				row += fmt.Sprintf(" %14.2f", v)
				any = true
			} else {
				row += fmt.Sprintf(" %14s", "-")
			}
		}
		if any {
			fmt.Printf("  %-32s%s\n", key, row)
		}
	}

	fmt.Printf("\nVerification (%s):\n", a.Verification.Period.Format("2006-01-02"))
	for _, c := range a.Verification.Checks {
		glyph := "✓"
		switch c.Status {
		case verify.Failed:
			glyph = "✗"
		case verify.Skipped:
			glyph = "•"
		}
		line := fmt.Sprintf("  %s %-22s %s", glyph, c.Name, c.Status)
		if c.Detail != "" {
			line += ": " + c.Detail
		} else if len(c.Missing) > 0 {
			line += ": missing " + strings.Join(c.Missing, ", ")
		}
		fmt.Println(line)
	}

	fmt.Println("\nRatios (latest period):")
	latest := a.Ratios.Latest()
	for _, name := range ratios.Names {
		if v, ok := latest.Get(name); ok {
			fmt.Printf("  %-34s %10.4f\n", name, v)
		} else {
			fmt.Printf("  %-34s %10s\n", name, "-")
		}
	}

	if len(a.Diagnostics) > 0 {
		fmt.Printf("\n%d normalization %s dropped input:\n", len(a.Diagnostics), plural(len(a.Diagnostics), "diagnostic", "diagnostics"))
		for _, d := range a.Diagnostics {
			fmt.Printf("  - %s\n", d)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
