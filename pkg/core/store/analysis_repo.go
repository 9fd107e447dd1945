package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"finstat/pkg/core/pipeline"
	"finstat/pkg/models"
)

// AnalysisRepo persists finished analyses. One row per (symbol,
// period_kind) for companies, one row per run for sector scans; the full
// document lives in a JSONB column.
//
// Schema assumption (managed outside this package):
//
//	CREATE TABLE IF NOT EXISTS company_analysis (
//	  symbol TEXT NOT NULL,
//	  period_kind TEXT NOT NULL,
//	  analysis_json JSONB NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL,
//	  PRIMARY KEY (symbol, period_kind)
//	);
//
//	CREATE TABLE IF NOT EXISTS sector_runs (
//	  run_id UUID PRIMARY KEY,
//	  sector TEXT NOT NULL,
//	  period_kind TEXT NOT NULL,
//	  result_json JSONB NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL
//	);
type AnalysisRepo struct{}

// NewAnalysisRepo creates a new repository instance.
func NewAnalysisRepo() *AnalysisRepo {
	return &AnalysisRepo{}
}

// SaveCompanyAnalysis upserts the analysis document for its symbol and
// period kind. Satisfies the pipeline sink interface.
func (r *AnalysisRepo) SaveCompanyAnalysis(ctx context.Context, analysis *pipeline.CompanyAnalysis) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := `
		INSERT INTO company_analysis (symbol, period_kind, analysis_json, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, period_kind)
		DO UPDATE SET
			analysis_json = EXCLUDED.analysis_json,
			updated_at = EXCLUDED.updated_at;
	`

	if _, err := pool.Exec(ctx, query, analysis.Symbol, string(analysis.PeriodKind), jsonData, time.Now()); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// LoadCompanyAnalysis retrieves the stored analysis for a symbol and
// period kind.
func (r *AnalysisRepo) LoadCompanyAnalysis(ctx context.Context, symbol string, kind models.PeriodKind) (*pipeline.CompanyAnalysis, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT analysis_json FROM company_analysis WHERE symbol = $1 AND period_kind = $2`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, symbol, string(kind)).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no analysis found for %s (%s)", symbol, kind)
		}
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	var analysis pipeline.CompanyAnalysis
	if err := json.Unmarshal(jsonData, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &analysis, nil
}

// SaveSectorRun stores one sector scan result under its run id.
func (r *AnalysisRepo) SaveSectorRun(ctx context.Context, run *pipeline.SectorAnalysis) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal sector run: %w", err)
	}

	query := `
		INSERT INTO sector_runs (run_id, sector, period_kind, result_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id)
		DO UPDATE SET result_json = EXCLUDED.result_json;
	`

	if _, err := pool.Exec(ctx, query, run.RunID, run.Sector, string(run.PeriodKind), jsonData, time.Now()); err != nil {
		return fmt.Errorf("failed to save sector run: %w", err)
	}
	return nil
}

// LoadSectorRun retrieves one sector scan result by run id.
func (r *AnalysisRepo) LoadSectorRun(ctx context.Context, runID string) (*pipeline.SectorAnalysis, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT result_json FROM sector_runs WHERE run_id = $1`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, runID).Scan(&jsonData)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no sector run found for %s", runID)
		}
		return nil, fmt.Errorf("failed to load sector run: %w", err)
	}

	var run pipeline.SectorAnalysis
	if err := json.Unmarshal(jsonData, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sector run: %w", err)
	}
	return &run, nil
}
