package statements

import (
	"fmt"
	"math"
	"sort"
	"time"

	"finstat/pkg/core/vocab"
)

// periodKey is the normalized form period labels are merged under; two
// labels spelling the same calendar date collapse into one column.
const periodKey = "2006-01-02"

// periodFormats are the vendor date spellings accepted for column labels,
// tried in order.
var periodFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006",
}

// Normalize merges up to three raw statements into one standardized matrix.
//
// Period labels are coerced to calendar dates; columns that fail to parse
// are dropped. All statements' cells for one period form a single raw bag
// (first statement processed wins a label collision), and each canonical
// key resolves to the first synonym present in that bag, in vocabulary
// preference order. Periods where nothing resolves are omitted; columns are
// sorted by period descending.
//
// The returned matrix is nil when no cell anywhere survives, which callers
// must treat as "no usable data" rather than an empty result. Diagnostics
// describe every dropped label or value; the function itself never fails
// and never logs.
func Normalize(set RawSet, v *vocab.Vocabulary) (*Matrix, []string) {
	if v == nil {
		v = vocab.Default()
	}

	var diags []string
	if len(set) == 0 || set.Empty() {
		return nil, append(diags, "no statement data supplied")
	}

	// Raw bags per normalized period date: vendor label → value.
	bags := make(map[string]map[string]float64)

	for _, kind := range Kinds {
		table := set[kind]
		if table.Empty() {
			continue
		}
		for label, periods := range table.Items {
			for rawPeriod, value := range periods {
				date, ok := parsePeriod(rawPeriod)
				if !ok {
					diags = append(diags, fmt.Sprintf("%s: dropped unparseable period label %q", kind, rawPeriod))
					continue
				}
				if math.IsNaN(value) || math.IsInf(value, 0) {
					diags = append(diags, fmt.Sprintf("%s: dropped non-finite value for %q (%s)", kind, label, date.Format(periodKey)))
					continue
				}
				key := date.Format(periodKey)
				bag, ok := bags[key]
				if !ok {
					bag = make(map[string]float64)
					bags[key] = bag
				}
				if _, exists := bag[label]; exists {
					continue
				}
				bag[label] = value
			}
		}
	}

	if len(bags) == 0 {
		return nil, append(diags, "no periods survived normalization")
	}

	columns := make([]Vector, 0, len(bags))
	for key, bag := range bags {
		period, _ := time.Parse(periodKey, key)
		resolved := v.Resolve(bag)
		if len(resolved) == 0 {
			continue
		}
		items := make(map[string]Cell, len(resolved))
		for canonical, match := range resolved {
			items[canonical] = Cell{Value: match.Value, Label: match.Label}
		}
		columns = append(columns, Vector{Period: period, Items: items})
	}

	if len(columns) == 0 {
		return nil, append(diags, "no canonical items resolved in any period")
	}

	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Period.After(columns[j].Period)
	})

	return &Matrix{Columns: columns}, diags
}

// parsePeriod coerces a vendor period label to a calendar date. Duplicate
// spellings of the same date normalize to one key.
func parsePeriod(label string) (time.Time, bool) {
	for _, format := range periodFormats {
		if t, err := time.Parse(format, label); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
