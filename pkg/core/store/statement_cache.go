package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phuslu/log"

	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/models"
)

// StatementCache caches fetched raw statement sets keyed by symbol and
// period kind. Hybrid vault: DB (primary) + file system (fallback/local).
// Entries older than the TTL are treated as misses; a zero TTL disables
// expiry.
//
// Schema assumption (managed outside this package):
//
//	CREATE TABLE IF NOT EXISTS statement_cache (
//	  symbol TEXT NOT NULL,
//	  period_kind TEXT NOT NULL,
//	  statements_json JSONB NOT NULL,
//	  fetched_at TIMESTAMPTZ NOT NULL,
//	  PRIMARY KEY (symbol, period_kind)
//	);
type StatementCache struct {
	pool    *pgxpool.Pool
	fileDir string
	ttl     time.Duration
}

// NewStatementCache creates a cache instance. If pool is nil it falls back
// to a file cache in dir; if dir is also empty it defaults to
// .cache/statements.
func NewStatementCache(pool *pgxpool.Pool, dir string, ttl time.Duration) *StatementCache {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "statements")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("statement cache dir not writable")
		}
	}
	return &StatementCache{pool: pool, fileDir: dir, ttl: ttl}
}

// cacheEntry is the file-cache envelope around one fetched set.
type cacheEntry struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	PeriodKind models.PeriodKind `json:"period_kind"`
	Statements statements.RawSet `json:"statements"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Get retrieves a cached set. A miss, an expired entry and an unreadable
// entry all come back as (nil, nil): the caller re-fetches.
func (c *StatementCache) Get(ctx context.Context, symbol string, kind models.PeriodKind) (statements.RawSet, error) {
	if c.pool != nil {
		query := `
			SELECT statements_json, fetched_at
			FROM statement_cache
			WHERE symbol = $1 AND period_kind = $2
			LIMIT 1
		`
		var jsonData []byte
		var fetchedAt time.Time
		err := c.pool.QueryRow(ctx, query, symbol, string(kind)).Scan(&jsonData, &fetchedAt)
		if err != nil {
			return nil, nil // Cache miss
		}
		if c.expired(fetchedAt) {
			return nil, nil
		}
		var set statements.RawSet
		if err := json.Unmarshal(jsonData, &set); err != nil {
			return nil, fmt.Errorf("failed to unmarshal db cached statements: %w", err)
		}
		return set, nil
	}

	if c.fileDir != "" {
		return c.loadFromFile(c.entryPath(symbol, kind))
	}

	return nil, nil
}

// Save stores one fetched set in the cache.
func (c *StatementCache) Save(ctx context.Context, symbol string, kind models.PeriodKind, set statements.RawSet) error {
	if c.pool != nil {
		jsonData, err := json.Marshal(set)
		if err != nil {
			return fmt.Errorf("failed to marshal statements: %w", err)
		}

		query := `
			INSERT INTO statement_cache (symbol, period_kind, statements_json, fetched_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol, period_kind)
			DO UPDATE SET
				statements_json = EXCLUDED.statements_json,
				fetched_at = EXCLUDED.fetched_at;
		`
		if _, err := c.pool.Exec(ctx, query, symbol, string(kind), jsonData, time.Now()); err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
	}

	if c.fileDir != "" {
		entry := cacheEntry{
			ID:         uuid.New().String(),
			Symbol:     symbol,
			PeriodKind: kind,
			Statements: set,
			FetchedAt:  time.Now(),
		}
		fileBytes, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		if err := os.WriteFile(c.entryPath(symbol, kind), fileBytes, 0644); err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}

	return nil
}

// Exists checks whether a fresh entry is cached.
func (c *StatementCache) Exists(ctx context.Context, symbol string, kind models.PeriodKind) bool {
	set, err := c.Get(ctx, symbol, kind)
	return err == nil && set != nil
}

func (c *StatementCache) expired(fetchedAt time.Time) bool {
	return c.ttl > 0 && time.Since(fetchedAt) > c.ttl
}

func (c *StatementCache) entryPath(symbol string, kind models.PeriodKind) string {
	safe := strings.ToUpper(strings.ReplaceAll(symbol, string(filepath.Separator), "_"))
	return filepath.Join(c.fileDir, fmt.Sprintf("%s_%s.json", safe, kind))
}

func (c *StatementCache) loadFromFile(path string) (statements.RawSet, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil // Not found
	}
	var entry cacheEntry
	if err := json.Unmarshal(fileBytes, &entry); err != nil {
		return nil, nil // Unreadable entries are misses, never errors
	}
	if c.expired(entry.FetchedAt) {
		return nil, nil
	}
	return entry.Statements, nil
}

// CachingFetcher wraps a fetcher with the statement cache. Profiles pass
// straight through; only statement sets are cached, and an empty set is
// never pinned.
type CachingFetcher struct {
	inner pipeline.Fetcher
	cache *StatementCache
}

// NewCachingFetcher creates the caching decorator.
func NewCachingFetcher(inner pipeline.Fetcher, cache *StatementCache) *CachingFetcher {
	return &CachingFetcher{inner: inner, cache: cache}
}

// FetchStatements serves from the cache when it can, otherwise delegates
// and caches the result. A cache write failure is logged, never surfaced.
func (f *CachingFetcher) FetchStatements(ctx context.Context, symbol string, kind models.PeriodKind) (statements.RawSet, error) {
	if set, err := f.cache.Get(ctx, symbol, kind); err == nil && set != nil {
		log.Debug().Str("symbol", symbol).Str("period", string(kind)).Msg("statement cache hit")
		return set, nil
	}

	set, err := f.inner.FetchStatements(ctx, symbol, kind)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		return set, nil
	}

	if err := f.cache.Save(ctx, symbol, kind, set); err != nil {
		log.Warn().Str("symbol", symbol).Err(err).Msg("statement cache save failed")
	}
	return set, nil
}

// FetchProfile delegates to the wrapped fetcher.
func (f *CachingFetcher) FetchProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	return f.inner.FetchProfile(ctx, symbol)
}
