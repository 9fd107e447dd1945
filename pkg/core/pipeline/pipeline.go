// Package pipeline orchestrates the analysis flow: fetch raw statements,
// normalize to the canonical matrix, compute ratio history, verify the
// latest period, and fan the per-company pipeline out across a sector
// under a bounded worker pool. Collaborators (provider, directory, sink)
// enter through interfaces so live clients, caches and test doubles are
// interchangeable.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"finstat/pkg/core/ratios"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/verify"
	"finstat/pkg/core/vocab"
	"finstat/pkg/models"
)

// DefaultWorkers is the sector fan-out width when none is configured.
const DefaultWorkers = 4

// StatementFetcher retrieves the raw statement tables for a symbol.
type StatementFetcher interface {
	FetchStatements(ctx context.Context, symbol string, kind models.PeriodKind) (statements.RawSet, error)
}

// ProfileFetcher retrieves the company profile for a symbol. A missing
// profile is (nil, nil), never an error.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)
}

// Fetcher combines statement and profile retrieval. Implementations may
// talk to the live provider API, a cache, or a test double.
type Fetcher interface {
	StatementFetcher
	ProfileFetcher
}

// Directory resolves sector names to member symbols.
type Directory interface {
	Lookup(ctx context.Context, sector string) ([]string, error)
	Sectors(ctx context.Context) ([]string, error)
}

// AnalysisSink persists finished company analyses.
type AnalysisSink interface {
	SaveCompanyAnalysis(ctx context.Context, analysis *CompanyAnalysis) error
}

// Per-symbol outcomes inside a batch. Neither is fatal: the batch records
// the symbol as skipped and proceeds.
var (
	// ErrNoData marks a symbol whose provider returned no statement data.
	ErrNoData = errors.New("no statement data")

	// ErrNormalization marks a symbol whose raw data produced no usable
	// standardized matrix.
	ErrNormalization = errors.New("standardization produced no usable data")
)

// CompanyAnalysis is the full result for one symbol and period kind.
type CompanyAnalysis struct {
	Symbol       string                 `json:"symbol"`
	PeriodKind   models.PeriodKind      `json:"period_kind"`
	Profile      *models.CompanyProfile `json:"profile,omitempty"`
	Matrix       *statements.Matrix     `json:"matrix"`
	Ratios       *ratios.History        `json:"ratios"`
	Verification verify.Report          `json:"verification"`
	Diagnostics  []string               `json:"diagnostics,omitempty"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// Analyzer runs the per-company pipeline and the sector scan.
type Analyzer struct {
	fetcher   Fetcher
	directory Directory
	sink      AnalysisSink
	vocab     *vocab.Vocabulary
	workers   int
}

// NewAnalyzer creates an analyzer over a fetcher using the built-in
// vocabulary and default worker width.
func NewAnalyzer(fetcher Fetcher) *Analyzer {
	return &Analyzer{
		fetcher: fetcher,
		vocab:   vocab.Default(),
		workers: DefaultWorkers,
	}
}

// SetDirectory injects the sector directory used by AnalyzeSector.
func (a *Analyzer) SetDirectory(d Directory) {
	a.directory = d
}

// SetSink injects an optional persistence sink. A save failure is logged
// and never fails the analysis.
func (a *Analyzer) SetSink(s AnalysisSink) {
	a.sink = s
}

// SetVocabulary replaces the synonym table, e.g. after loading an overlay.
func (a *Analyzer) SetVocabulary(v *vocab.Vocabulary) {
	if v != nil {
		a.vocab = v
	}
}

// SetWorkers sets the sector fan-out width.
func (a *Analyzer) SetWorkers(n int) {
	if n > 0 {
		a.workers = n
	}
}

// AnalyzeCompany executes the full pipeline for a single symbol: fetch,
// normalize, ratio history, verification of the latest period. Total data
// absence comes back as ErrNoData, a matrix that never materializes as
// ErrNormalization; both mean "skip this symbol", not "abort".
func (a *Analyzer) AnalyzeCompany(ctx context.Context, symbol string, kind models.PeriodKind) (*CompanyAnalysis, error) {
	raw, err := a.fetcher.FetchStatements(ctx, symbol, kind)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Str("symbol", symbol).Err(err).Msg("statement fetch failed")
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	if raw.Empty() {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	matrix, diagnostics := statements.Normalize(raw, a.vocab)
	for _, d := range diagnostics {
		log.Debug().Str("symbol", symbol).Msg(d)
	}
	if matrix == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNormalization)
	}

	analysis := &CompanyAnalysis{
		Symbol:       symbol,
		PeriodKind:   kind,
		Matrix:       matrix,
		Ratios:       ratios.ForMatrix(matrix),
		Verification: verify.Run(matrix.Latest()),
		Diagnostics:  diagnostics,
		GeneratedAt:  time.Now().UTC(),
	}

	profile, err := a.fetcher.FetchProfile(ctx, symbol)
	if err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("profile fetch failed")
	} else {
		analysis.Profile = profile
	}

	if a.sink != nil {
		if err := a.sink.SaveCompanyAnalysis(ctx, analysis); err != nil {
			log.Warn().Str("symbol", symbol).Err(err).Msg("analysis save failed")
		}
	}

	return analysis, nil
}
