package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"finstat/pkg/core/ratios"
	"finstat/pkg/core/sector"
	"finstat/pkg/models"
)

// Skip reasons recorded for symbols that produce no ratio vector.
const (
	SkipNoData        = "no data"
	SkipNormalization = "normalization failed"
	SkipNoRatios      = "no ratios"
)

// SectorAnalysis is the result of one sector scan.
type SectorAnalysis struct {
	RunID       string                `json:"run_id"`
	Sector      string                `json:"sector"`
	PeriodKind  models.PeriodKind     `json:"period_kind"`
	Ratios      map[string]ratios.Set `json:"ratios"`
	Aggregate   sector.Summary        `json:"aggregate"`
	Skipped     map[string]string     `json:"skipped"`
	Requested   int                   `json:"requested"`
	Processed   int                   `json:"processed"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// companyResult is one settled task of the sector fan-out.
type companyResult struct {
	symbol   string
	analysis *CompanyAnalysis
	err      error
}

// AnalyzeSector scans every directory member of a sector under a bounded
// worker pool, collects the latest-period ratio vector per company over a
// fan-in channel, and aggregates only after all tasks settle. A company
// that yields nothing is recorded in Skipped with its reason; only a
// cancelled context aborts the scan.
func (a *Analyzer) AnalyzeSector(ctx context.Context, sectorName string, kind models.PeriodKind) (*SectorAnalysis, error) {
	if a.directory == nil {
		return nil, errors.New("no sector directory configured")
	}

	symbols, err := a.directory.Lookup(ctx, sectorName)
	if err != nil {
		return nil, fmt.Errorf("sector lookup %q: %w", sectorName, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no companies found for sector %q", sectorName)
	}

	log.Info().
		Str("sector", sectorName).
		Int("companies", len(symbols)).
		Int("workers", a.workers).
		Msg("starting sector scan")

	results := make(chan companyResult)
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			analysis, err := a.AnalyzeCompany(ctx, symbol, kind)
			results <- companyResult{symbol: symbol, analysis: analysis, err: err}
		}(symbol)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &SectorAnalysis{
		RunID:      uuid.New().String(),
		Sector:     sectorName,
		PeriodKind: kind,
		Ratios:     make(map[string]ratios.Set, len(symbols)),
		Skipped:    make(map[string]string),
		Requested:  len(symbols),
	}

	var runErr error
	for res := range results {
		switch {
		case res.err == nil:
			latest := res.analysis.Ratios.Latest()
			if latest.Valid() == 0 {
				out.Skipped[res.symbol] = SkipNoRatios
				log.Info().Str("symbol", res.symbol).Str("outcome", SkipNoRatios).Msg("company skipped")
				continue
			}
			out.Ratios[res.symbol] = latest
			log.Info().Str("symbol", res.symbol).Int("ratios", latest.Valid()).Msg("company processed")
		case errors.Is(res.err, context.Canceled), errors.Is(res.err, context.DeadlineExceeded):
			if runErr == nil {
				runErr = res.err
			}
		case errors.Is(res.err, ErrNormalization):
			out.Skipped[res.symbol] = SkipNormalization
			log.Info().Str("symbol", res.symbol).Str("outcome", SkipNormalization).Msg("company skipped")
		default:
			out.Skipped[res.symbol] = SkipNoData
			log.Info().Str("symbol", res.symbol).Str("outcome", SkipNoData).Msg("company skipped")
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	out.Processed = len(out.Ratios)
	out.Aggregate = sector.Aggregate(out.Ratios)
	out.GeneratedAt = time.Now().UTC()

	log.Info().
		Str("sector", sectorName).
		Str("run_id", out.RunID).
		Int("processed", out.Processed).
		Int("skipped", len(out.Skipped)).
		Msg("sector scan complete")

	return out, nil
}
