// Package statements models the raw vendor statement tables returned by a
// financial-data provider and the standardized canonical matrix built from
// them. Raw tables keep vendor spellings untouched; the matrix speaks the
// canonical vocabulary only.
package statements

import (
	"time"
)

// =============================================================================
// RAW PROVIDER TABLES
// =============================================================================

// Kind identifies one of the three financial statements.
type Kind string

const (
	Income   Kind = "income"
	Balance  Kind = "balance"
	CashFlow Kind = "cashflow"
)

// Kinds lists the statements in processing order. On a vendor-label
// collision across statements for the same period, the earlier statement
// wins.
var Kinds = [3]Kind{Income, Balance, CashFlow}

// RawTable is one statement exactly as fetched: vendor line-item label ×
// period label → value. A missing cell has no map entry; the value space is
// whatever the provider sent, including junk the normalizer will drop.
type RawTable struct {
	Kind  Kind                          `json:"kind"`
	Items map[string]map[string]float64 `json:"items"`
}

// Empty reports whether the table holds no cells at all.
func (t *RawTable) Empty() bool {
	if t == nil || len(t.Items) == 0 {
		return true
	}
	for _, periods := range t.Items {
		if len(periods) > 0 {
			return false
		}
	}
	return true
}

// RawSet groups the up-to-three statements of one fetch. A statement the
// provider could not deliver is nil or missing.
type RawSet map[Kind]*RawTable

// Empty reports whether no statement in the set carries data.
func (s RawSet) Empty() bool {
	for _, t := range s {
		if !t.Empty() {
			return false
		}
	}
	return true
}

// =============================================================================
// STANDARDIZED MATRIX
// =============================================================================

// Cell is one resolved canonical value plus its provenance: the vendor
// label that supplied it.
type Cell struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Vector is one period's canonical item set. Items holds only resolved
// keys; an absent key means the item never resolved for this period, which
// is never the same as zero.
type Vector struct {
	Period time.Time       `json:"period"`
	Items  map[string]Cell `json:"items"`
}

// Get returns the canonical item value and whether it is present.
func (v *Vector) Get(key string) (float64, bool) {
	if v == nil {
		return 0, false
	}
	cell, ok := v.Items[key]
	if !ok {
		return 0, false
	}
	return cell.Value, true
}

// Value returns the item as a nullable number: nil when absent.
func (v *Vector) Value(key string) *float64 {
	if v == nil {
		return nil
	}
	if cell, ok := v.Items[key]; ok {
		val := cell.Value
		return &val
	}
	return nil
}

// Empty reports whether the vector resolved nothing.
func (v *Vector) Empty() bool {
	return v == nil || len(v.Items) == 0
}

// Matrix is the standardized canonical-item × period table. Columns are
// distinct reporting dates sorted descending; a nil Matrix means "no usable
// data", which is distinct from a matrix with sparse cells.
type Matrix struct {
	Columns []Vector `json:"columns"`
}

// Len returns the number of period columns.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Columns)
}

// Latest returns the most recent period column, nil when the matrix is
// empty.
func (m *Matrix) Latest() *Vector {
	if m.Len() == 0 {
		return nil
	}
	return &m.Columns[0]
}

// Periods returns the column dates in matrix order (descending).
func (m *Matrix) Periods() []time.Time {
	if m == nil {
		return nil
	}
	out := make([]time.Time, len(m.Columns))
	for i, col := range m.Columns {
		out[i] = col.Period
	}
	return out
}
