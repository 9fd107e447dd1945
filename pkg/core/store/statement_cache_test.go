package store

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/models"
)

var _ pipeline.Fetcher = (*CachingFetcher)(nil)
var _ pipeline.AnalysisSink = (*AnalysisRepo)(nil)

func sampleSet() statements.RawSet {
	return statements.RawSet{
		statements.Income: {
			Kind: statements.Income,
			Items: map[string]map[string]float64{
				"Total Revenue": {"2023-12-31": 1000, "2022-12-31": 800},
			},
		},
		statements.Balance: {
			Kind: statements.Balance,
			Items: map[string]map[string]float64{
				"Total Assets": {"2023-12-31": 2000},
			},
		},
	}
}

func TestStatementCacheFileRoundtrip(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir(), time.Hour)
	ctx := context.Background()

	set := sampleSet()
	if err := cache.Save(ctx, "ACME", models.PeriodAnnual, set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := cache.Get(ctx, "ACME", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("cache miss after save")
	}
	if !reflect.DeepEqual(got, set) {
		t.Errorf("roundtrip mismatch:\ngot  %+v\nwant %+v", got, set)
	}

	if !cache.Exists(ctx, "ACME", models.PeriodAnnual) {
		t.Error("Exists = false after save")
	}
}

func TestStatementCacheKeysByPeriodKind(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir(), time.Hour)
	ctx := context.Background()

	if err := cache.Save(ctx, "ACME", models.PeriodAnnual, sampleSet()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := cache.Get(ctx, "ACME", models.PeriodQuarterly)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("quarterly lookup served an annual entry")
	}
}

func TestStatementCacheTTL(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir(), time.Nanosecond)
	ctx := context.Background()

	if err := cache.Save(ctx, "ACME", models.PeriodAnnual, sampleSet()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	got, err := cache.Get(ctx, "ACME", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expired entry served as a hit")
	}
}

func TestStatementCacheZeroTTLNeverExpires(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir(), 0)
	ctx := context.Background()

	if err := cache.Save(ctx, "ACME", models.PeriodAnnual, sampleSet()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := cache.Get(ctx, "ACME", models.PeriodAnnual)
	if err != nil || got == nil {
		t.Errorf("Get = %v, %v; want hit", got, err)
	}
}

func TestStatementCacheMiss(t *testing.T) {
	cache := NewStatementCache(nil, t.TempDir(), time.Hour)

	got, err := cache.Get(context.Background(), "NOPE", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v for unknown symbol, want nil", got)
	}
}

// countingFetcher serves a fixed set and counts statement fetches.
type countingFetcher struct {
	mu      sync.Mutex
	set     statements.RawSet
	profile *models.CompanyProfile
	calls   int
}

func (f *countingFetcher) FetchStatements(ctx context.Context, symbol string, kind models.PeriodKind) (statements.RawSet, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.set, nil
}

func (f *countingFetcher) FetchProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return f.profile, nil
}

func TestCachingFetcherServesSecondFetchFromCache(t *testing.T) {
	inner := &countingFetcher{set: sampleSet()}
	cache := NewStatementCache(nil, t.TempDir(), time.Hour)
	fetcher := NewCachingFetcher(inner, cache)
	ctx := context.Background()

	first, err := fetcher.FetchStatements(ctx, "ACME", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := fetcher.FetchStatements(ctx, "ACME", models.PeriodAnnual)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner fetches = %d, want 1", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached fetch differs from original")
	}
}

func TestCachingFetcherNeverPinsEmptySets(t *testing.T) {
	inner := &countingFetcher{set: statements.RawSet{}}
	cache := NewStatementCache(nil, t.TempDir(), time.Hour)
	fetcher := NewCachingFetcher(inner, cache)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := fetcher.FetchStatements(ctx, "EMPTY", models.PeriodAnnual); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner fetches = %d, want 2 (absence must not be cached)", inner.calls)
	}
}

func TestCachingFetcherProfilePassthrough(t *testing.T) {
	inner := &countingFetcher{profile: &models.CompanyProfile{Symbol: "ACME", Name: "Acme Corp"}}
	fetcher := NewCachingFetcher(inner, NewStatementCache(nil, t.TempDir(), time.Hour))

	profile, err := fetcher.FetchProfile(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile == nil || profile.Name != "Acme Corp" {
		t.Errorf("profile = %+v", profile)
	}
}
