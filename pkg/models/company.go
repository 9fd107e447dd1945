package models

import (
	"fmt"
	"strings"
)

// PeriodKind selects the reporting granularity fetched from the provider.
type PeriodKind string

const (
	PeriodAnnual    PeriodKind = "annual"
	PeriodQuarterly PeriodKind = "quarterly"
)

// ParsePeriodKind normalizes a user-supplied period flag.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annual", "a", "fy":
		return PeriodAnnual, nil
	case "quarterly", "q":
		return PeriodQuarterly, nil
	default:
		return "", fmt.Errorf("invalid period kind %q (want annual or quarterly)", s)
	}
}

// CompanyProfile is the descriptive record returned by the provider's
// profile endpoint. MarketCap is nil when the provider omits it.
type CompanyProfile struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Sector    string   `json:"sector"`
	Industry  string   `json:"industry"`
	Website   string   `json:"website"`
	MarketCap *float64 `json:"market_cap,omitempty"`
}
