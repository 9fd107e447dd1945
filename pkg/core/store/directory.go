package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// PGDirectory resolves sector membership from the companies table.
// Sector matching is case-insensitive.
//
// Schema assumption (managed outside this package):
//
//	CREATE TABLE IF NOT EXISTS companies (
//	  symbol TEXT PRIMARY KEY,
//	  name TEXT,
//	  sector TEXT,
//	  industry TEXT
//	);
type PGDirectory struct{}

// NewPGDirectory creates a directory over the shared pool.
func NewPGDirectory() *PGDirectory {
	return &PGDirectory{}
}

// Lookup returns the symbols filed under a sector, sorted.
func (d *PGDirectory) Lookup(ctx context.Context, sector string) ([]string, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT symbol FROM companies WHERE LOWER(sector) = LOWER($1) ORDER BY symbol`
	rows, err := pool.Query(ctx, query, sector)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector members: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// Sectors lists the distinct sector names on file, sorted.
func (d *PGDirectory) Sectors(ctx context.Context) ([]string, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT DISTINCT sector FROM companies WHERE sector IS NOT NULL AND sector <> '' ORDER BY sector`
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	var sectors []string
	for rows.Next() {
		var sector string
		if err := rows.Scan(&sector); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, sector)
	}
	return sectors, rows.Err()
}

// CSVDirectory resolves sector membership from a local CSV file with a
// header carrying at least Symbol and Sector columns (any order, any
// case, extra columns ignored). The file is read once at construction.
type CSVDirectory struct {
	members map[string][]string
	display map[string]string
}

// NewCSVDirectory loads a sector map file.
func NewCSVDirectory(path string) (*CSVDirectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sector map %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sector map %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sector map %s is empty", path)
	}

	symbolCol, sectorCol := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "symbol", "ticker":
			if symbolCol < 0 {
				symbolCol = i
			}
		case "sector":
			if sectorCol < 0 {
				sectorCol = i
			}
		}
	}
	if symbolCol < 0 || sectorCol < 0 {
		return nil, fmt.Errorf("sector map %s: header must contain Symbol and Sector columns", path)
	}

	d := &CSVDirectory{
		members: make(map[string][]string),
		display: make(map[string]string),
	}
	seen := make(map[string]bool)
	for _, record := range records[1:] {
		if symbolCol >= len(record) || sectorCol >= len(record) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[symbolCol]))
		sector := strings.TrimSpace(record[sectorCol])
		if symbol == "" || sector == "" {
			continue
		}
		key := strings.ToLower(sector)
		if _, ok := d.display[key]; !ok {
			d.display[key] = sector
		}
		if seen[key+"\x00"+symbol] {
			continue
		}
		seen[key+"\x00"+symbol] = true
		d.members[key] = append(d.members[key], symbol)
	}

	return d, nil
}

// Lookup returns the symbols filed under a sector, sorted. Matching is
// case-insensitive; an unknown sector yields an empty slice.
func (d *CSVDirectory) Lookup(ctx context.Context, sector string) ([]string, error) {
	symbols := d.members[strings.ToLower(strings.TrimSpace(sector))]
	out := make([]string, len(symbols))
	copy(out, symbols)
	sort.Strings(out)
	return out, nil
}

// Sectors lists the sector names from the file in their original spelling,
// sorted.
func (d *CSVDirectory) Sectors(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(d.display))
	for _, name := range d.display {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
