package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"finstat/pkg/core/pipeline"
)

var (
	_ pipeline.Directory = (*PGDirectory)(nil)
	_ pipeline.Directory = (*CSVDirectory)(nil)
)

func writeSectorMap(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sectors.csv")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVDirectoryLookup(t *testing.T) {
	path := writeSectorMap(t, `Name,Symbol,Sector,Country
Acme Corp,ACME,Technology,US
Beta Inc,beta,technology,US
Gamma LLC,GAMMA,Energy,US
Acme Corp,ACME,Technology,US
,MISSING_SECTOR,,US
`)
	dir, err := NewCSVDirectory(path)
	if err != nil {
		t.Fatalf("NewCSVDirectory: %v", err)
	}

	got, err := dir.Lookup(context.Background(), "TECHNOLOGY")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := []string{"ACME", "BETA"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("technology members = %v, want %v", got, want)
	}

	empty, err := dir.Lookup(context.Background(), "Utilities")
	if err != nil {
		t.Fatalf("Lookup unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown sector members = %v, want none", empty)
	}
}

func TestCSVDirectorySectors(t *testing.T) {
	path := writeSectorMap(t, `Symbol,Sector
ACME,Technology
GAMMA,Energy
DELTA,energy
`)
	dir, err := NewCSVDirectory(path)
	if err != nil {
		t.Fatalf("NewCSVDirectory: %v", err)
	}

	got, err := dir.Sectors(context.Background())
	if err != nil {
		t.Fatalf("Sectors: %v", err)
	}
	// First spelling wins; names sorted.
	want := []string{"Energy", "Technology"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sectors = %v, want %v", got, want)
	}
}

func TestCSVDirectoryTickerHeaderAlias(t *testing.T) {
	path := writeSectorMap(t, `Ticker,Sector
ACME,Technology
`)
	dir, err := NewCSVDirectory(path)
	if err != nil {
		t.Fatalf("NewCSVDirectory: %v", err)
	}
	got, err := dir.Lookup(context.Background(), "Technology")
	if err != nil || len(got) != 1 || got[0] != "ACME" {
		t.Errorf("lookup via Ticker header = %v, %v", got, err)
	}
}

func TestCSVDirectoryMissingColumns(t *testing.T) {
	path := writeSectorMap(t, `Symbol,Exchange
ACME,NYSE
`)
	if _, err := NewCSVDirectory(path); err == nil {
		t.Fatal("expected error when Sector column is missing")
	}
}

func TestCSVDirectoryMissingFile(t *testing.T) {
	if _, err := NewCSVDirectory(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
