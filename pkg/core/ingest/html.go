package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"finstat/pkg/core/statements"
)

// kindTitleWords identifies each statement's table in page titles and
// captions.
var kindTitleWords = map[statements.Kind][]string{
	statements.Income:   {"income", "operations", "profit and loss"},
	statements.Balance:  {"balance"},
	statements.CashFlow: {"cash flow", "cash-flow", "cashflow"},
}

// ParseStatementHTML extracts one raw statement table from an HTML page.
// The table is located by caption or preceding heading; when no title
// matches, tables are assumed to appear in income, balance, cash flow
// order. The header row supplies period labels and the first column vendor
// labels. Currency and separator noise is tolerated; blank and dash cells
// stay missing.
func ParseStatementHTML(html string, kind statements.Kind) (*statements.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var matched *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		if titleMatchesKind(tableTitle(table), kind) {
			matched = table
			return false
		}
		return true
	})

	// Pages without usable titles list the three statements in the
	// conventional order.
	if matched == nil {
		tables := doc.Find("table")
		if idx := kindIndex(kind); idx < tables.Length() {
			matched = tables.Eq(idx)
		}
	}
	if matched == nil {
		return nil, fmt.Errorf("no %s table found", kind)
	}

	table := parseStatementTable(matched, kind)
	if table.Empty() {
		return nil, fmt.Errorf("%s table carries no numeric cells", kind)
	}
	return table, nil
}

// tableTitle finds a table's title from its caption or the element
// immediately before it.
func tableTitle(table *goquery.Selection) string {
	if caption := table.Find("caption").First(); caption.Length() > 0 {
		return strings.TrimSpace(caption.Text())
	}
	if prev := table.Prev(); prev.Length() > 0 {
		return strings.TrimSpace(prev.Text())
	}
	return ""
}

func titleMatchesKind(title string, kind statements.Kind) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, word := range kindTitleWords[kind] {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func kindIndex(kind statements.Kind) int {
	for i, k := range statements.Kinds {
		if k == kind {
			return i
		}
	}
	return 0
}

// parseStatementTable reads the matched table. The first row with two or
// more cells is the header carrying period labels; every later row is one
// vendor line item keyed by its first cell.
func parseStatementTable(sel *goquery.Selection, kind statements.Kind) *statements.RawTable {
	out := &statements.RawTable{
		Kind:  kind,
		Items: make(map[string]map[string]float64),
	}

	var periods []string
	headerSeen := false
	sel.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}

		if !headerSeen {
			cells.Each(func(j int, cell *goquery.Selection) {
				if j > 0 {
					periods = append(periods, strings.TrimSpace(cell.Text()))
				}
			})
			headerSeen = true
			return
		}

		label := ""
		cells.Each(func(j int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if j == 0 {
				label = text
				return
			}
			if label == "" || j-1 >= len(periods) || periods[j-1] == "" {
				return
			}
			value, ok := parseCellText(text)
			if !ok {
				return
			}
			if out.Items[label] == nil {
				out.Items[label] = make(map[string]float64)
			}
			// First occurrence of a duplicated row wins.
			if _, exists := out.Items[label][periods[j-1]]; exists {
				return
			}
			out.Items[label][periods[j-1]] = value
		})
	})

	return out
}

// parseCellText converts one table cell into a number. Parentheses mean
// negative; currency symbols, thousands separators and stray whitespace
// are stripped. Blank, dash and placeholder cells report absent.
func parseCellText(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "-", "–", "—", "n/a", "na", "nan", "none", "null":
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "").Replace(s)
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(value) {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}

// isFinite reports whether v is a usable number (not NaN or Inf).
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
