package ratios

import (
	"time"

	"finstat/pkg/core/statements"
)

// Column pairs one reporting period with its ratio set.
type Column struct {
	Period time.Time `json:"period"`
	Ratios Set       `json:"ratios"`
}

// History is the per-period ratio matrix: one column per standardized
// matrix column, in the same (descending) order, including periods where
// nothing computed.
type History struct {
	Columns []Column `json:"columns"`
}

// Len returns the number of period columns.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Columns)
}

// Latest returns the most recent period's ratio set, nil when the history
// is empty.
func (h *History) Latest() Set {
	if h.Len() == 0 {
		return nil
	}
	return h.Columns[0].Ratios
}

// ForMatrix applies ForPeriod to every column of a standardized matrix
// independently, preserving column order exactly. A nil or empty matrix
// yields nil.
func ForMatrix(m *statements.Matrix) *History {
	if m.Len() == 0 {
		return nil
	}
	h := &History{Columns: make([]Column, 0, m.Len())}
	for i := range m.Columns {
		col := &m.Columns[i]
		h.Columns = append(h.Columns, Column{
			Period: col.Period,
			Ratios: ForPeriod(col),
		})
	}
	return h
}
