package store

import (
	"context"
	"os"
	"testing"
	"time"

	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/models"
)

// These tests exercise the live Postgres paths and only run when
// DATABASE_URL points at a reachable database.

var integrationSchema = []string{
	`CREATE TABLE IF NOT EXISTS company_analysis (
		symbol TEXT NOT NULL,
		period_kind TEXT NOT NULL,
		analysis_json JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (symbol, period_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS sector_runs (
		run_id UUID PRIMARY KEY,
		sector TEXT NOT NULL,
		period_kind TEXT NOT NULL,
		result_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS statement_cache (
		symbol TEXT NOT NULL,
		period_kind TEXT NOT NULL,
		statements_json JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (symbol, period_kind)
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		symbol TEXT PRIMARY KEY,
		name TEXT,
		sector TEXT,
		industry TEXT
	)`,
}

func requireDB(t *testing.T) context.Context {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	if err := InitDB(ctx); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	for _, stmt := range integrationSchema {
		if _, err := GetPool().Exec(ctx, stmt); err != nil {
			t.Fatalf("schema setup: %v", err)
		}
	}
	return ctx
}

func TestPGAnalysisRoundtrip(t *testing.T) {
	ctx := requireDB(t)
	pool := GetPool()
	defer pool.Exec(ctx, `DELETE FROM company_analysis WHERE symbol = 'ITEST'`)

	repo := NewAnalysisRepo()
	analysis := &pipeline.CompanyAnalysis{
		Symbol:      "ITEST",
		PeriodKind:  models.PeriodAnnual,
		GeneratedAt: time.Now().UTC(),
	}

	if err := repo.SaveCompanyAnalysis(ctx, analysis); err != nil {
		t.Fatalf("SaveCompanyAnalysis: %v", err)
	}
	// Upsert: saving again must not error.
	if err := repo.SaveCompanyAnalysis(ctx, analysis); err != nil {
		t.Fatalf("second SaveCompanyAnalysis: %v", err)
	}

	loaded, err := repo.LoadCompanyAnalysis(ctx, "ITEST", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("LoadCompanyAnalysis: %v", err)
	}
	if loaded.Symbol != "ITEST" || loaded.PeriodKind != models.PeriodAnnual {
		t.Errorf("loaded = %s/%s", loaded.Symbol, loaded.PeriodKind)
	}

	if _, err := repo.LoadCompanyAnalysis(ctx, "ITEST", models.PeriodQuarterly); err == nil {
		t.Error("expected error for missing period kind")
	}
}

func TestPGSectorRunRoundtrip(t *testing.T) {
	ctx := requireDB(t)
	pool := GetPool()
	defer pool.Exec(ctx, `DELETE FROM sector_runs WHERE sector = 'ITEST-SECTOR'`)

	repo := NewAnalysisRepo()
	run := &pipeline.SectorAnalysis{
		RunID:       "5e0fdbb0-0c41-4b29-b3b5-0d2c0a1a9f11",
		Sector:      "ITEST-SECTOR",
		PeriodKind:  models.PeriodAnnual,
		Requested:   1,
		GeneratedAt: time.Now().UTC(),
	}

	if err := repo.SaveSectorRun(ctx, run); err != nil {
		t.Fatalf("SaveSectorRun: %v", err)
	}

	loaded, err := repo.LoadSectorRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("LoadSectorRun: %v", err)
	}
	if loaded.Sector != "ITEST-SECTOR" || loaded.Requested != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestPGStatementCache(t *testing.T) {
	ctx := requireDB(t)
	pool := GetPool()
	defer pool.Exec(ctx, `DELETE FROM statement_cache WHERE symbol = 'ITEST'`)

	cache := NewStatementCache(pool, "", time.Hour)
	set := sampleSet()

	if err := cache.Save(ctx, "ITEST", models.PeriodAnnual, set); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := cache.Get(ctx, "ITEST", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("cache miss after save")
	}
	income := got[statements.Income]
	if income == nil || income.Items["Total Revenue"]["2023-12-31"] != 1000 {
		t.Errorf("cached income table = %+v", income)
	}
}

func TestPGDirectory(t *testing.T) {
	ctx := requireDB(t)
	pool := GetPool()
	defer pool.Exec(ctx, `DELETE FROM companies WHERE symbol IN ('ITESTA', 'ITESTB')`)

	seed := `
		INSERT INTO companies (symbol, name, sector, industry)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET sector = EXCLUDED.sector
	`
	if _, err := pool.Exec(ctx, seed, "ITESTA", "A Corp", "ITest Sector", "Widgets"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := pool.Exec(ctx, seed, "ITESTB", "B Corp", "itest sector", "Widgets"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dir := NewPGDirectory()
	members, err := dir.Lookup(ctx, "ITEST SECTOR")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("members = %v, want 2 symbols", members)
	}
}
