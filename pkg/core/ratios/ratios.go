// Package ratios derives the named per-period financial ratios from a
// standardized canonical vector. Every computation is total: missing
// operands and zero denominators surface as explicitly absent values, never
// as zero, Inf, NaN, or a panic.
package ratios

import (
	"math"

	"finstat/pkg/core/statements"
)

// Names lists the computed ratios in display order. Every Set carries an
// entry for each of these names.
var Names = []string{
	"Gross Margin",
	"Net Margin",
	"Operating Margin",
	"Current Ratio",
	"Quick Ratio",
	"Debt to Equity",
	"Liabilities to Equity",
	"Debt Ratio",
	"Return on Equity (ROE)",
	"Return on Assets (ROA)",
	"Return on Capital Employed (ROCE)",
	"Inventory Turnover",
	"Asset Turnover",
	"Receivable Turnover",
}

// Set maps ratio name → value. A nil value means the ratio could not be
// computed for this period; it is never conflated with zero.
type Set map[string]*float64

// Get returns the named ratio and whether it is present.
func (s Set) Get(name string) (float64, bool) {
	v, ok := s[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Valid counts the ratios that actually computed.
func (s Set) Valid() int {
	n := 0
	for _, v := range s {
		if v != nil {
			n++
		}
	}
	return n
}

// ForPeriod computes all named ratios for one canonical vector. A nil or
// empty vector yields a Set whose entries are all absent.
func ForPeriod(v *statements.Vector) Set {
	// Profitability inputs
	gp := v.Value("gross_profit")
	rev := v.Value("revenue")
	ni := v.Value("net_income")
	oi := v.Value("operating_income")

	// Liquidity inputs
	ca := v.Value("current_assets")
	cl := v.Value("current_liabilities")
	inv := v.Value("inventory")

	// Leverage inputs
	std := v.Value("short_term_debt")
	ltd := v.Value("long_term_debt")
	equity := v.Value("total_equity")
	liab := v.Value("total_liabilities")
	assets := v.Value("total_assets")

	// Activity inputs
	cogs := v.Value("cost_of_revenue")
	ar := v.Value("accounts_receivable")

	set := make(Set, len(Names))

	// Profitability
	set["Gross Margin"] = safeDiv(gp, rev)
	set["Net Margin"] = safeDiv(ni, rev)
	set["Operating Margin"] = safeDiv(oi, rev)

	// Liquidity. Quick assets need inventory: when inventory is unknown
	// the numerator stays absent rather than falling back to current
	// assets alone.
	set["Current Ratio"] = safeDiv(ca, cl)
	set["Quick Ratio"] = safeDiv(sub(ca, inv), cl)

	// Leverage. Total debt treats a missing sub-component as zero only
	// when the other one is present; both missing leaves it absent.
	totalDebt := sumPresent(std, ltd)
	set["Debt to Equity"] = safeDiv(totalDebt, equity)
	set["Liabilities to Equity"] = safeDiv(liab, equity)
	set["Debt Ratio"] = safeDiv(totalDebt, assets)

	// Returns. End-of-period balances stand in for averages; turnover
	// figures inherit the same approximation.
	set["Return on Equity (ROE)"] = safeDiv(ni, equity)
	set["Return on Assets (ROA)"] = safeDiv(ni, assets)
	set["Return on Capital Employed (ROCE)"] = safeDiv(oi, sub(assets, cl))

	// Activity
	set["Inventory Turnover"] = safeDiv(cogs, inv)
	set["Asset Turnover"] = safeDiv(rev, assets)
	set["Receivable Turnover"] = safeDiv(rev, ar)

	return set
}

// safeDiv divides two nullable operands. Absent operands, a zero
// denominator, or a non-finite quotient all yield absent.
func safeDiv(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil {
		return nil
	}
	if *denominator == 0 {
		return nil
	}
	q := *numerator / *denominator
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return nil
	}
	return &q
}

// sub returns a-b, absent when either operand is absent.
func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

// sumPresent adds the present parts, treating missing ones as zero. It is
// absent only when every part is missing.
func sumPresent(parts ...*float64) *float64 {
	sum := 0.0
	any := false
	for _, p := range parts {
		if p != nil {
			sum += *p
			any = true
		}
	}
	if !any {
		return nil
	}
	return &sum
}
