// Package verify runs the fixed battery of accounting identity checks
// against one period's canonical vector. The battery always reports all six
// checks; a check that cannot run is Skipped with the inputs it was
// missing, and a check outside tolerance is Failed with the full numeric
// context. Nothing here escalates: a failed identity is a data-quality
// finding, not an error.
package verify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"finstat/pkg/core/statements"
)

// Status is the outcome of one identity check.
type Status string

const (
	Passed  Status = "Passed"
	Failed  Status = "Failed"
	Skipped Status = "Skipped"
)

// Tolerances of the identity battery. All are relative except the
// cash-flow check, which also grants an absolute floor so small statements
// are not rejected on rounding noise.
const (
	balanceRelTol     = 0.015
	grossProfitRelTol = 0.01
	operatingRelTol   = 0.05
	netIncomeRelTol   = 0.015
	cashFlowRelTol    = 0.02
	cashFlowAbsTol    = 1000.0

	// cashFloor absorbs float noise on the cash non-negativity check.
	cashFloor = -1e-6
)

// CheckNames lists the six checks in report order.
var CheckNames = []string{
	"BalanceSheetEq",
	"CashCheck",
	"GrossProfitCheck",
	"OperatingIncomeCheck",
	"NetIncomeCheck",
	"CashFlowSumCheck",
}

// Check is the outcome of one identity check. Computed/Expected/Diff are
// set on failures; Missing names the inputs a skipped check lacked.
type Check struct {
	Name     string   `json:"name"`
	Status   Status   `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	Computed *float64 `json:"computed,omitempty"`
	Expected *float64 `json:"expected,omitempty"`
	Diff     *float64 `json:"diff,omitempty"`
}

// Report holds the six check outcomes for one period, always in CheckNames
// order.
type Report struct {
	Period time.Time `json:"period"`
	Checks []Check   `json:"checks"`
}

// Check returns the named check, nil when the name is unknown.
func (r *Report) Check(name string) *Check {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// Failures counts checks that ran and fell outside tolerance.
func (r *Report) Failures() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == Failed {
			n++
		}
	}
	return n
}

// Run executes the six-check battery on one canonical vector. A nil or
// empty vector skips every check; the report still carries all six
// entries.
func Run(v *statements.Vector) Report {
	r := Report{Checks: make([]Check, 0, len(CheckNames))}
	if v != nil {
		r.Period = v.Period
	}

	// 1. Balance sheet equation: assets = liabilities + equity.
	assets := v.Value("total_assets")
	liabs := v.Value("total_liabilities")
	equity := v.Value("total_equity")
	if missing := missingOf(component{"Total Assets", assets}, component{"Total Liabilities", liabs}, component{"Total Equity", equity}); len(missing) > 0 {
		r.Checks = append(r.Checks, skipped("BalanceSheetEq", missing))
	} else {
		expected := *liabs + *equity
		r.Checks = append(r.Checks, compare("BalanceSheetEq", *assets, expected, balanceRelTol, 0,
			fmt.Sprintf("Mismatch: A=%.2f, L+E=%.2f, Diff=%.2f", *assets, expected, *assets-expected)))
	}

	// 2. Cash non-negativity.
	cash := v.Value("cash")
	switch {
	case cash == nil:
		r.Checks = append(r.Checks, skipped("CashCheck", []string{"Cash"}))
	case *cash >= cashFloor:
		r.Checks = append(r.Checks, passed("CashCheck"))
	default:
		c := failure("CashCheck", *cash, 0)
		c.Detail = fmt.Sprintf("Negative cash: %.2f", *cash)
		r.Checks = append(r.Checks, c)
	}

	// 3. Gross profit identity: gross profit = revenue - cost of revenue.
	revenue := v.Value("revenue")
	cogs := v.Value("cost_of_revenue")
	gp := v.Value("gross_profit")
	if missing := missingOf(component{"Revenue", revenue}, component{"Cost of Revenue", cogs}, component{"Gross Profit", gp}); len(missing) > 0 {
		r.Checks = append(r.Checks, skipped("GrossProfitCheck", missing))
	} else {
		expected := *revenue - *cogs
		r.Checks = append(r.Checks, compare("GrossProfitCheck", *gp, expected, grossProfitRelTol, 0,
			fmt.Sprintf("Mismatch: GP=%.2f, Rev-CoGS=%.2f, Diff=%.2f", *gp, expected, *gp-expected)))
	}

	// 4. Operating income identity: operating income = gross profit -
	// operating expenses. The expense term prefers the direct item and
	// falls back to R&D + SG&A; the two definitions are not generally
	// equivalent, so the fallback order is fixed.
	opInc := v.Value("operating_income")
	opEx := v.Value("operating_expenses")
	if opEx == nil {
		rd := v.Value("research_development")
		sga := v.Value("selling_general_administrative")
		if rd != nil || sga != nil {
			total := deref(rd) + deref(sga)
			opEx = &total
		}
	}
	if gp == nil || opInc == nil || opEx == nil {
		missing := missingOf(component{"Gross Profit", gp}, component{"Operating Income", opInc})
		if opEx == nil {
			missing = append(missing, "Operating Expenses (Total or Components)")
		}
		r.Checks = append(r.Checks, skipped("OperatingIncomeCheck", missing))
	} else {
		expected := *gp - *opEx
		r.Checks = append(r.Checks, compare("OperatingIncomeCheck", *opInc, expected, operatingRelTol, 0,
			fmt.Sprintf("Mismatch: OpInc=%.2f, GP-OpEx=%.2f, Diff=%.2f", *opInc, expected, *opInc-expected)))
	}

	// 5. Net income identity: net income = income before tax - tax.
	ni := v.Value("net_income")
	ibt := v.Value("income_before_tax")
	tax := v.Value("income_tax_expense")
	if missing := missingOf(component{"Net Income", ni}, component{"Income Before Tax", ibt}, component{"Income Tax Expense", tax}); len(missing) > 0 {
		r.Checks = append(r.Checks, skipped("NetIncomeCheck", missing))
	} else {
		expected := *ibt - *tax
		r.Checks = append(r.Checks, compare("NetIncomeCheck", *ni, expected, netIncomeRelTol, 0,
			fmt.Sprintf("Mismatch: NetInc=%.2f, IBT-Tax=%.2f, Diff=%.2f", *ni, expected, *ni-expected)))
	}

	// 6. Cash flow sum identity: change in cash = operating + investing +
	// financing cash flow.
	change := v.Value("change_in_cash")
	opCF := v.Value("operating_cash_flow")
	invCF := v.Value("investing_cash_flow")
	finCF := v.Value("financing_cash_flow")
	if missing := missingOf(component{"Change in Cash", change}, component{"Operating CF", opCF}, component{"Investing CF", invCF}, component{"Financing CF", finCF}); len(missing) > 0 {
		r.Checks = append(r.Checks, skipped("CashFlowSumCheck", missing))
	} else {
		expected := *opCF + *invCF + *finCF
		r.Checks = append(r.Checks, compare("CashFlowSumCheck", *change, expected, cashFlowRelTol, cashFlowAbsTol,
			fmt.Sprintf("Mismatch: ChangeCash=%.2f, SumCF=%.2f, Diff=%.2f", *change, expected, *change-expected)))
	}

	return r
}

// within reports whether a and b agree under the combined tolerance
// |a-b| <= max(rel*max(|a|,|b|), abs).
func within(a, b, relTol, absTol float64) bool {
	return math.Abs(a-b) <= math.Max(relTol*math.Max(math.Abs(a), math.Abs(b)), absTol)
}

type component struct {
	name  string
	value *float64
}

func missingOf(components ...component) []string {
	var missing []string
	for _, c := range components {
		if c.value == nil {
			missing = append(missing, c.name)
		}
	}
	return missing
}

func passed(name string) Check {
	return Check{Name: name, Status: Passed}
}

func skipped(name string, missing []string) Check {
	return Check{
		Name:    name,
		Status:  Skipped,
		Missing: missing,
		Detail:  fmt.Sprintf("Missing components (%s)", strings.Join(missing, ", ")),
	}
}

func failure(name string, computed, expected float64) Check {
	diff := computed - expected
	return Check{
		Name:     name,
		Status:   Failed,
		Computed: &computed,
		Expected: &expected,
		Diff:     &diff,
	}
}

func compare(name string, computed, expected, relTol, absTol float64, detail string) Check {
	if within(computed, expected, relTol, absTol) {
		return passed(name)
	}
	c := failure(name, computed, expected)
	c.Detail = detail
	return c
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
